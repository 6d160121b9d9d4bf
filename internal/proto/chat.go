package proto

import "time"

// UserRef is the public view of a user.
type UserRef struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
	Deleted  bool   `json:"deleted,omitempty"`
}

// DeletedUserName is shown in place of a participant whose record is gone.
const DeletedUserName = "Deleted User"

// DeletedUser builds the placeholder for a participant that no longer exists.
func DeletedUser(id string) *UserRef {
	return &UserRef{ID: id, Username: DeletedUserName, Deleted: true}
}

// ChatSummary is the client-facing projection of a chat.
type ChatSummary struct {
	ID           string     `json:"_id"`
	Participants []string   `json:"participants,omitempty"`
	OtherUser    *UserRef   `json:"otherUser,omitempty"`
	Messages     []string   `json:"messages,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    *time.Time `json:"updatedAt,omitempty"`

	LastMessage   string `json:"lastMessage,omitempty"`
	LastMessageID string `json:"lastMessageId,omitempty"`
}

// Recency is updatedAt, falling back to createdAt.
func (c ChatSummary) Recency() time.Time {
	if c.UpdatedAt != nil {
		return *c.UpdatedAt
	}
	return c.CreatedAt
}

// Message is a persisted message as sent over HTTP and the push channel.
// The recovery fields are only set on the send response.
type Message struct {
	ID        string    `json:"_id"`
	ChatID    string    `json:"chatId"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	TempID    string    `json:"tempId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`

	OriginalChatID string `json:"originalChatId,omitempty"`
	NewChatID      string `json:"newChatId,omitempty"`
	ChatRestored   bool   `json:"chatRestored,omitempty"`
	ChatCreated    bool   `json:"chatCreated,omitempty"`
}

// Recovered reports whether the server re-targeted the message to another chat.
func (m Message) Recovered() bool {
	return m.ChatRestored || m.ChatCreated
}

// CreateChatRequest is the body of POST /api/chats.
type CreateChatRequest struct {
	RecipientID string `json:"recipientId" binding:"required"`
}

// SendMessageRequest is the body of POST /api/chats/{chatId}/messages.
type SendMessageRequest struct {
	Content     string `json:"content"`
	TempID      string `json:"tempId"`
	RecipientID string `json:"recipientId,omitempty"`
}

// ErrorResponse is the error body of every REST endpoint.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
