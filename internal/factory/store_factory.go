package factory

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mikey/llm-phish-triage/internal/adapters/store"
	"github.com/mikey/llm-phish-triage/internal/config"
	"github.com/mikey/llm-phish-triage/internal/core"
)

// StoreFactory creates conversation stores based on configuration
type StoreFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewStoreFactory creates a new store factory
func NewStoreFactory(cfg *config.Config, logger *zap.Logger) *StoreFactory {
	return &StoreFactory{cfg: cfg, logger: logger}
}

// CreateConversationStore creates a conversation store based on the configuration
func (f *StoreFactory) CreateConversationStore() (core.ConversationStore, error) {
	c, err := f.cfg.GetStore()
	if err != nil {
		return nil, err
	}

	switch c.Type {
	case "memory":
		return store.NewMemoryStore(c.TTL, c.CleanupFreq, f.logger), nil
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(c.SQLitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		return store.NewSQLiteStore(c.SQLitePath, c.TTL, c.CleanupFreq, f.logger)
	case "mysql":
		return store.NewMySQLStore(c.MySQLDSN, c.TTL, c.CleanupFreq, f.logger)
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
		})
		return store.NewRedisStore(rdb, c.TTL, f.logger), nil
	default:
		return nil, fmt.Errorf("unsupported store type: %s", c.Type)
	}
}
