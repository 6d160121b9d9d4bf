package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vovakirdan/pairchat/internal/store"
)

const chatColumns = `id, participant_a, participant_b, message_ids, created_at, updated_at`

// CreateChat creates the chat for the unordered pair (a, b), or returns the
// existing one. Deduplication relies on the UNIQUE pair_key column, so two
// concurrent calls for the same pair resolve to one record.
func (s *SQLiteStore) CreateChat(ctx context.Context, a, b string, at time.Time) (*store.Chat, bool, error) {
	if a == b {
		return nil, false, fmt.Errorf("create chat: participants must differ")
	}
	if a > b {
		a, b = b, a
	}
	key := store.PairKey(a, b)

	query := `
		INSERT INTO chats (id, participant_a, participant_b, pair_key, message_ids, created_at, updated_at)
		VALUES (?, ?, ?, ?, '[]', ?, ?)
		ON CONFLICT(pair_key) DO NOTHING
	`
	ts := toUnix(at)
	result, err := s.db.ExecContext(ctx, query, uuid.NewString(), a, b, key, ts, ts)
	if err != nil {
		return nil, false, fmt.Errorf("insert chat: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("get rows affected: %w", err)
	}

	chat, err := s.getChatByPairKey(ctx, key)
	if err != nil {
		return nil, false, err
	}

	return chat, rows == 1, nil
}

// GetChat retrieves a chat by ID.
func (s *SQLiteStore) GetChat(ctx context.Context, id string) (*store.Chat, error) {
	query := `SELECT ` + chatColumns + ` FROM chats WHERE id = ?`
	return scanChat(s.db.QueryRowContext(ctx, query, id))
}

// FindChatByParticipants looks a chat up by its unordered pair.
func (s *SQLiteStore) FindChatByParticipants(ctx context.Context, a, b string) (*store.Chat, error) {
	return s.getChatByPairKey(ctx, store.PairKey(a, b))
}

func (s *SQLiteStore) getChatByPairKey(ctx context.Context, key string) (*store.Chat, error) {
	query := `SELECT ` + chatColumns + ` FROM chats WHERE pair_key = ?`
	return scanChat(s.db.QueryRowContext(ctx, query, key))
}

// ListChatsForUser lists the user's chats, most recently updated first.
func (s *SQLiteStore) ListChatsForUser(ctx context.Context, userID string) ([]*store.Chat, error) {
	query := `
		SELECT ` + chatColumns + `
		FROM chats
		WHERE participant_a = ? OR participant_b = ?
		ORDER BY updated_at DESC, created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("query chats: %w", err)
	}
	defer rows.Close()

	chats := make([]*store.Chat, 0)
	for rows.Next() {
		chat, err := scanChat(rows)
		if err != nil {
			return nil, err
		}
		chats = append(chats, chat)
	}

	return chats, rows.Err()
}

// AppendMessage appends messageID to the chat's sequence and raises updated_at.
func (s *SQLiteStore) AppendMessage(ctx context.Context, chatID, messageID string, at time.Time) error {
	query := `
		UPDATE chats
		SET message_ids = json_insert(message_ids, '$[#]', ?),
		    updated_at = MAX(updated_at, ?)
		WHERE id = ?
	`
	return s.updateChat(ctx, "append message", query, messageID, toUnix(at), chatID)
}

// TouchChat raises updated_at to at.
func (s *SQLiteStore) TouchChat(ctx context.Context, chatID string, at time.Time) error {
	query := `UPDATE chats SET updated_at = MAX(updated_at, ?) WHERE id = ?`
	return s.updateChat(ctx, "touch chat", query, toUnix(at), chatID)
}

func (s *SQLiteStore) updateChat(ctx context.Context, op, query string, args ...any) error {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: chat: %w", op, store.ErrNotFound)
	}
	return nil
}

func scanChat(row rowScanner) (*store.Chat, error) {
	var (
		chat                 store.Chat
		messageIDs           string
		createdAt, updatedAt int64
	)
	err := row.Scan(&chat.ID, &chat.ParticipantA, &chat.ParticipantB, &messageIDs, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("chat: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query chat: %w", err)
	}

	if err := json.Unmarshal([]byte(messageIDs), &chat.MessageIDs); err != nil {
		return nil, fmt.Errorf("decode message ids: %w", err)
	}
	chat.CreatedAt = fromUnix(createdAt)
	chat.UpdatedAt = fromUnix(updatedAt)

	return &chat, nil
}
