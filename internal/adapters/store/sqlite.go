package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/mikey/llm-phish-triage/internal/core"
)

// SQLiteStore is a SQLite implementation of the ConversationStore interface.
// Each conversation is a single JSON-blob row.
type SQLiteStore struct {
	db          *sql.DB
	ttl         time.Duration
	cleanupFreq time.Duration
	logger      *zap.Logger
	stopCh      chan struct{}
}

// NewSQLiteStore creates a new SQLite conversation store
func NewSQLiteStore(dbPath string, ttl, cleanupFreq time.Duration, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			state TEXT,
			updated_at TIMESTAMP,
			expires_at TIMESTAMP
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_conversations_expires_at ON conversations(expires_at)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	s := &SQLiteStore{
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
func (s *SQLiteStore) Get(ctx context.Context, id string) (*core.Conversation, error) {
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
func (s *SQLiteStore) Put(ctx context.Context, conv *core.Conversation) error {
	data, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("encode conversation: %w", err)
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO conversations (id, state, updated_at, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			state = excluded.state,
			updated_at = excluded.updated_at,
			expires_at = excluded.expires_at
	`, conv.ID, string(data), now, now.Add(s.ttl))
	if err != nil {
		return fmt.Errorf("store conversation: %w", err)
	}
	return nil
}

// Delete removes a conversation
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	return nil
}

// Cleanup removes expired conversations
func (s *SQLiteStore) Cleanup(ctx context.Context) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE expires_at <= ?`, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("cleanup conversations: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil {
		s.logger.Debug("Cleaned up expired conversations", zap.Int64("expired_count", n))
	}
	return nil
}

func (s *SQLiteStore) startCleanupTask() {
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
func (s *SQLiteStore) Stop() {
	close(s.stopCh)
	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close SQLite database", zap.Error(err))
	}
}
