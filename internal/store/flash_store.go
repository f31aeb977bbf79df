package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/tracimfeed/internal/model"
)

// CreateFlashMessage inserts a new flash message. A missing id is generated
// and a missing level defaults to info.
func (s *SQLiteStore) CreateFlashMessage(ctx context.Context, m model.FlashMessage) error {
	if strings.TrimSpace(m.Message) == "" {
		return fmt.Errorf("flash message must not be empty")
	}
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.Level == "" {
		m.Level = model.FlashInfo
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO flash_messages (id, level, message, read, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		m.ID, string(m.Level), m.Message, boolToInt(m.Read), m.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("creating flash message: %w", err)
	}
	return nil
}

// GetUnreadFlashMessages retrieves all flash messages that have not been
// dismissed, newest first.
func (s *SQLiteStore) GetUnreadFlashMessages(ctx context.Context) ([]model.FlashMessage, error) {
	var messages []model.FlashMessage
	err := s.db.SelectContext(ctx, &messages, `
		SELECT id, level, message, read, created_at
		FROM flash_messages
		WHERE read = 0
		ORDER BY created_at DESC, rowid DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("querying unread flash messages: %w", err)
	}
	return messages, nil
}

// MarkFlashRead dismisses a single flash message.
func (s *SQLiteStore) MarkFlashRead(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE flash_messages SET read = 1 WHERE id = ?", id,
	)
	if err != nil {
		return fmt.Errorf("marking flash message %s as read: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("flash message %s: %w", id, ErrNotFound)
	}
	return nil
}

// MarkAllFlashRead dismisses every flash message.
func (s *SQLiteStore) MarkAllFlashRead(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "UPDATE flash_messages SET read = 1 WHERE read = 0"); err != nil {
		return fmt.Errorf("marking flash messages as read: %w", err)
	}
	return nil
}
