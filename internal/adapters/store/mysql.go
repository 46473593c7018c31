package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/mikey/llm-phish-triage/internal/core"
)

// MySQLStore is a MySQL implementation of the ConversationStore interface
type MySQLStore struct {
	db          *sql.DB
	ttl         time.Duration
	cleanupFreq time.Duration
	logger      *zap.Logger
	stopCh      chan struct{}
}

// NewMySQLStore creates a new MySQL conversation store
func NewMySQLStore(dsn string, ttl, cleanupFreq time.Duration, logger *zap.Logger) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS conversations (
			id VARCHAR(64) PRIMARY KEY,
			state MEDIUMTEXT,
			updated_at TIMESTAMP,
			expires_at TIMESTAMP,
			INDEX idx_conversations_expires_at (expires_at)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	s := &MySQLStore{
		db:          db,
		ttl:         ttl,
		cleanupFreq: cleanupFreq,
		logger:      logger,
		stopCh:      make(chan struct{}),
	}

	// Start background cleanup
	go s.startCleanupTask()

	return s, nil
}

// Get retrieves a conversation by id
func (s *MySQLStore) Get(ctx context.Context, id string) (*core.Conversation, error) {
	var state string
	err := s.db.QueryRowContext(ctx, `
		SELECT state FROM conversations
		WHERE id = ? AND expires_at > ?
	`, id, time.Now().UTC()).Scan(&state)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, core.ErrConversationNotFound
		}
		return nil, fmt.Errorf("query conversation: %w", err)
	}

	var conv core.Conversation
	if err := json.Unmarshal([]byte(state), &conv); err != nil {
		return nil, fmt.Errorf("decode conversation: %w", err)
	}
	return &conv, nil
}

// Put stores a conversation, resetting its TTL
func (s *MySQLStore) Put(ctx context.Context, conv *core.Conversation) error {
	data, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("encode conversation: %w", err)
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO conversations (id, state, updated_at, expires_at)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			state = VALUES(state),
			updated_at = VALUES(updated_at),
			expires_at = VALUES(expires_at)
	`, conv.ID, string(data), now, now.Add(s.ttl))
	if err != nil {
		return fmt.Errorf("store conversation: %w", err)
	}
	return nil
}

// Delete removes a conversation
func (s *MySQLStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	return nil
}

// Cleanup removes expired conversations
func (s *MySQLStore) Cleanup(ctx context.Context) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE expires_at <= ?`, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("cleanup conversations: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil {
		s.logger.Debug("Cleaned up expired conversations", zap.Int64("expired_count", n))
	}
	return nil
}

func (s *MySQLStore) startCleanupTask() {
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

// Stop stops the background cleanup task and closes the database
func (s *MySQLStore) Stop() {
	close(s.stopCh)
	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close MySQL database", zap.Error(err))
	}
}
