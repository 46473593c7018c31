package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mikey/llm-phish-triage/internal/core"
)

// keyPrefix namespaces conversation keys in Redis.
const keyPrefix = "triage:conv:"

// RedisStore is a Redis implementation of the ConversationStore interface.
// Expiry rides on Redis key TTLs, so no cleanup task is needed.
type RedisStore struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisStore creates a new Redis conversation store
func NewRedisStore(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl, logger: logger}
}

// Get retrieves a conversation by id
func (s *RedisStore) Get(ctx context.Context, id string) (*core.Conversation, error) {
	data, err := s.rdb.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, core.ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}

	var conv core.Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, fmt.Errorf("decode conversation: %w", err)
	}
	return &conv, nil
}

// Put stores a conversation, resetting its TTL
func (s *RedisStore) Put(ctx context.Context, conv *core.Conversation) error {
	data, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("encode conversation: %w", err)
	}

	if err := s.rdb.Set(ctx, keyPrefix+conv.ID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("store conversation: %w", err)
	}
	return nil
}

// Delete removes a conversation
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.rdb.Del(ctx, keyPrefix+id).Err(); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	return nil
}
