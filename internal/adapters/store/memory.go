// Package store provides ConversationStore backings: in-process memory,
// SQLite, MySQL and Redis. All of them expire conversations after a TTL so
// long-running deployments do not accumulate finished dialogues.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/llm-phish-triage/internal/core"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryStore is an in-memory implementation of the ConversationStore
// interface. Conversations are held as JSON snapshots so callers never share
// mutable state with the store.
type MemoryStore struct {
	entries     map[string]memoryEntry
	mu          sync.RWMutex
	ttl         time.Duration
	cleanupFreq time.Duration
	logger      *zap.Logger
	stopCh      chan struct{}
}

// NewMemoryStore creates a new in-memory conversation store
func NewMemoryStore(ttl, cleanupFreq time.Duration, logger *zap.Logger) *MemoryStore {
	s := &MemoryStore{
		entries:     make(map[string]memoryEntry),
		ttl:         ttl,
		cleanupFreq: cleanupFreq,
		logger:      logger,
		stopCh:      make(chan struct{}),
	}

	// Start background cleanup
	go s.startCleanupTask()

	return s
}

// Get retrieves a conversation by id
func (s *MemoryStore) Get(ctx context.Context, id string) (*core.Conversation, error) {
	s.mu.RLock()
	entry, ok := s.entries[id]
	s.mu.RUnlock()

	if !ok || time.Now().After(entry.expiresAt) {
		return nil, core.ErrConversationNotFound
	}

	var conv core.Conversation
	if err := json.Unmarshal(entry.data, &conv); err != nil {
		return nil, fmt.Errorf("decode conversation: %w", err)
	}
	return &conv, nil
}

// Put stores a conversation, resetting its TTL
func (s *MemoryStore) Put(ctx context.Context, conv *core.Conversation) error {
	data, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("encode conversation: %w", err)
	}

	s.mu.Lock()
	s.entries[conv.ID] = memoryEntry{data: data, expiresAt: time.Now().Add(s.ttl)}
	s.mu.Unlock()
	return nil
}

// Delete removes a conversation
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	delete(s.entries, id)
	s.mu.Unlock()
	return nil
}

// Cleanup removes expired conversations
func (s *MemoryStore) Cleanup(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	expired := 0
	for id, entry := range s.entries {
		if now.After(entry.expiresAt) {
			delete(s.entries, id)
			expired++
		}
	}

	s.logger.Debug("Cleaned up expired conversations", zap.Int("expired_count", expired))
	return nil
}

// startCleanupTask starts a background task to clean up expired conversations
func (s *MemoryStore) startCleanupTask() {
	ticker := time.NewTicker(s.cleanupFreq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.Cleanup(context.Background()); err != nil {
				s.logger.Error("Failed to clean up conversations", zap.Error(err))
			}
		case <-s.stopCh:
			return
		}
	}
}

// Stop stops the background cleanup task
func (s *MemoryStore) Stop() {
	close(s.stopCh)
}
