package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vovakirdan/pairchat/internal/store"
)

const messageColumns = `id, chat_id, sender_id, content, temp_id, created_at`

// CreateMessage persists a message to storage.
func (s *SQLiteStore) CreateMessage(ctx context.Context, msg *store.Message) error {
	query := `
		INSERT INTO messages (id, chat_id, sender_id, content, temp_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query, msg.ID, msg.ChatID, msg.SenderID, msg.Content, msg.TempID, toUnix(msg.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	return nil
}

// ListMessages retrieves messages from a chat with pagination.
func (s *SQLiteStore) ListMessages(ctx context.Context, chatID string, limit int, beforeID string) ([]*store.Message, error) {
	var query string
	var args []any

	if beforeID != "" {
		query = `
			SELECT ` + messageColumns + `
			FROM messages
			WHERE chat_id = ? AND seq < (SELECT seq FROM messages WHERE id = ?)
			ORDER BY seq DESC
			LIMIT ?
		`
		args = []any{chatID, beforeID, limit}
	} else {
		query = `
			SELECT ` + messageColumns + `
			FROM messages
			WHERE chat_id = ?
			ORDER BY seq DESC
			LIMIT ?
		`
		args = []any{chatID, limit}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*store.Message, 0)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse to get chronological order
	for i := range len(messages) / 2 {
		messages[i], messages[len(messages)-1-i] = messages[len(messages)-1-i], messages[i]
	}

	return messages, nil
}

// LastMessage returns the most recently created message of a chat.
func (s *SQLiteStore) LastMessage(ctx context.Context, chatID string) (*store.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE chat_id = ?
		ORDER BY seq DESC
		LIMIT 1
	`
	return scanMessage(s.db.QueryRowContext(ctx, query, chatID))
}

func scanMessage(row rowScanner) (*store.Message, error) {
	var (
		msg       store.Message
		createdAt int64
	)
	err := row.Scan(&msg.ID, &msg.ChatID, &msg.SenderID, &msg.Content, &msg.TempID, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("message: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("scan message: %w", err)
	}
	msg.CreatedAt = fromUnix(createdAt)

	return &msg, nil
}
