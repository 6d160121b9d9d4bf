package messaging

import (
	"context"
	"errors"

	"github.com/samber/lo"

	"github.com/vovakirdan/pairchat/internal/proto"
	"github.com/vovakirdan/pairchat/internal/store"
)

// ToMessage maps a stored message to its wire form.
func ToMessage(m *store.Message) proto.Message {
	return proto.Message{
		ID:        m.ID,
		ChatID:    m.ChatID,
		Sender:    m.SenderID,
		Content:   m.Content,
		TempID:    m.TempID,
		CreatedAt: m.CreatedAt,
	}
}

// toSummary projects a chat without a resolved other user. Push payloads
// use this form and carry participants so each receiver resolves the other
// side itself.
func toSummary(chat *store.Chat) proto.ChatSummary {
	updated := chat.UpdatedAt
	return proto.ChatSummary{
		ID:           chat.ID,
		Participants: []string{chat.ParticipantA, chat.ParticipantB},
		Messages:     lo.Ternary(chat.MessageIDs == nil, []string{}, chat.MessageIDs),
		CreatedAt:    chat.CreatedAt,
		UpdatedAt:    &updated,
	}
}

// summaryFor builds the viewer-specific summary of chat: the other
// participant is resolved, or replaced by the deleted-user placeholder, and
// the last message is attached when there is one.
func (s *Service) summaryFor(ctx context.Context, chat *store.Chat, viewerID string) (proto.ChatSummary, error) {
	summary := toSummary(chat)

	otherID := chat.Other(viewerID)
	other, err := s.store.GetUserByID(ctx, otherID)
	switch {
	case err == nil:
		summary.OtherUser = &proto.UserRef{ID: other.ID, Username: other.Username}
	case errors.Is(err, store.ErrNotFound):
		summary.OtherUser = proto.DeletedUser(otherID)
	default:
		return proto.ChatSummary{}, err
	}

	last, err := s.store.LastMessage(ctx, chat.ID)
	switch {
	case err == nil:
		summary.LastMessage = last.Content
		summary.LastMessageID = last.ID
	case !errors.Is(err, store.ErrNotFound):
		return proto.ChatSummary{}, err
	}

	return summary, nil
}
