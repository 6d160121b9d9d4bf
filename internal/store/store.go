package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound marks a lookup for a record that does not exist.
var ErrNotFound = errors.New("record not found")

// User represents a user in the system.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Chat is a conversation between exactly two users.
type Chat struct {
	ID           string
	ParticipantA string
	ParticipantB string
	// MessageIDs is the cached message sequence. It may lag behind the
	// messages table when a follow-up append failed.
	MessageIDs []string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// HasParticipant reports whether userID is one of the two participants.
func (c *Chat) HasParticipant(userID string) bool {
	return c.ParticipantA == userID || c.ParticipantB == userID
}

// Other returns the participant that is not userID.
func (c *Chat) Other(userID string) string {
	if c.ParticipantA == userID {
		return c.ParticipantB
	}
	return c.ParticipantA
}

// PairKey returns the canonical key for an unordered pair of users.
func PairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + ":" + b
}

// Message represents a persisted chat message.
type Message struct {
	ID        string
	ChatID    string
	SenderID  string
	Content   string
	TempID    string
	CreatedAt time.Time
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser creates a new user with hashed password.
	CreateUser(ctx context.Context, username, passwordHash string) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id string) (*User, error)

	// GetUserByUsername retrieves a user by username.
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// SearchUsers searches for users by username.
	SearchUsers(ctx context.Context, query string) ([]*User, error)
}

// ChatStore handles chat persistence. Every method is atomic for the single
// chat record it touches; nothing spans records.
type ChatStore interface {
	// CreateChat creates the chat for the unordered pair (a, b). When the pair
	// already has a chat it is returned instead and created is false.
	CreateChat(ctx context.Context, a, b string, at time.Time) (chat *Chat, created bool, err error)

	// GetChat retrieves a chat by ID.
	GetChat(ctx context.Context, id string) (*Chat, error)

	// FindChatByParticipants looks a chat up by its unordered pair.
	FindChatByParticipants(ctx context.Context, a, b string) (*Chat, error)

	// ListChatsForUser lists the user's chats, most recently updated first.
	ListChatsForUser(ctx context.Context, userID string) ([]*Chat, error)

	// AppendMessage appends messageID to the chat's sequence and raises
	// updated_at to at (it never lowers it).
	AppendMessage(ctx context.Context, chatID, messageID string, at time.Time) error

	// TouchChat raises updated_at to at (it never lowers it).
	TouchChat(ctx context.Context, chatID string, at time.Time) error
}

// MessageStore handles message persistence.
type MessageStore interface {
	// CreateMessage persists a message. Creation order defines ordering.
	CreateMessage(ctx context.Context, msg *Message) error

	// ListMessages returns up to limit messages of a chat in creation order.
	// If beforeID is set, only messages created before it are returned.
	ListMessages(ctx context.Context, chatID string, limit int, beforeID string) ([]*Message, error)

	// LastMessage returns the most recently created message of a chat.
	LastMessage(ctx context.Context, chatID string) (*Message, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	ChatStore
	MessageStore

	// Close closes the underlying database connection.
	Close() error
}
