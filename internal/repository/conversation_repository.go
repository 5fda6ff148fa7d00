package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// ConversationRepository remembers which chats an account already has history with
type ConversationRepository struct {
	db *sql.DB
}

func NewConversationRepository(dbPath string) (*ConversationRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS conversations (
		chat TEXT PRIMARY KEY,
		first_seen INTEGER NOT NULL,
		last_seen INTEGER NOT NULL,
		message_count INTEGER NOT NULL DEFAULT 0
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize conversations table: %w", err)
	}

	return &ConversationRepository{db: db}, nil
}

// Record notes that at least one message exists in the chat
func (r *ConversationRepository) Record(ctx context.Context, chat string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO conversations (chat, first_seen, last_seen, message_count)
		VALUES (?1, ?2, ?2, 1)
		ON CONFLICT (chat) DO UPDATE
		SET last_seen = MAX(last_seen, EXCLUDED.last_seen),
		    message_count = message_count + 1
	`, chat, at.Unix())
	return err
}

func (r *ConversationRepository) Exists(ctx context.Context, chat string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT message_count FROM conversations WHERE chat=?1", chat).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *ConversationRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM conversations").Scan(&n)
	return n, err
}

func (r *ConversationRepository) Close() error {
	return r.db.Close()
}
