package messaging

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/vovakirdan/pairchat/internal/proto"
	"github.com/vovakirdan/pairchat/internal/store"
)

const (
	DefaultMessageLimit = 50
	MaxMessageLimit     = 200
	MinSearchLength     = 3
)

// Broadcaster pushes an event to a conversation and its participants.
// Implementations must not block and do not report delivery failures.
type Broadcaster interface {
	Broadcast(event string, payload any, conversationID string, participantIDs ...string)
}

// Service persists chats and messages and notifies participants.
type Service struct {
	store       store.Store
	broadcaster Broadcaster
	log         *zerolog.Logger
	now         func() time.Time
}

// New creates a messaging service.
func New(st store.Store, broadcaster Broadcaster, logger *zerolog.Logger) *Service {
	return &Service{
		store:       st,
		broadcaster: broadcaster,
		log:         logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// SendInput is a message submitted by a participant.
type SendInput struct {
	ChatID      string
	SenderID    string
	Content     string
	TempID      string
	RecipientID string
}

// CreateChat returns the chat between senderID and recipientID, creating it
// if the pair has none. An existing chat is touched so it resurfaces at the
// top of both chat lists.
func (s *Service) CreateChat(ctx context.Context, senderID, recipientID string) (proto.ChatSummary, bool, error) {
	if _, err := uuid.Parse(recipientID); err != nil {
		return proto.ChatSummary{}, false, validationError(CodeInvalidID, "invalid recipient id")
	}
	if senderID == recipientID {
		return proto.ChatSummary{}, false, &Error{Kind: ErrSelfChat, Code: CodeSelfChat, Message: "cannot chat with yourself"}
	}

	if _, err := s.store.GetUserByID(ctx, recipientID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return proto.ChatSummary{}, false, notFoundError(CodeUserNotFound, "recipient not found")
		}
		return proto.ChatSummary{}, false, persistenceError("load recipient", err)
	}

	now := s.now()
	chat, created, err := s.store.CreateChat(ctx, senderID, recipientID, now)
	if err != nil {
		return proto.ChatSummary{}, false, persistenceError("create chat", err)
	}

	event := proto.EventNewChat
	if !created {
		event = proto.EventChatUpdated
		if err := s.store.TouchChat(ctx, chat.ID, now); err != nil {
			s.log.Warn().Err(err).Str("chat_id", chat.ID).Msg("failed to refresh chat")
		} else if now.After(chat.UpdatedAt) {
			chat.UpdatedAt = now
		}
	}

	summary, err := s.summaryFor(ctx, chat, senderID)
	if err != nil {
		return proto.ChatSummary{}, false, persistenceError("load chat summary", err)
	}

	s.broadcaster.Broadcast(event, pushSummary(chat, summary), chat.ID, chat.ParticipantA, chat.ParticipantB)

	s.log.Info().
		Str("chat_id", chat.ID).
		Str("sender_id", senderID).
		Str("recipient_id", recipientID).
		Bool("created", created).
		Msg("chat opened")

	return summary, created, nil
}

// SendMessage persists a message and notifies both participants. When the
// referenced chat is gone the message is re-targeted to the pair's chat, or
// to a new one, and the response says so.
func (s *Service) SendMessage(ctx context.Context, in SendInput) (proto.Message, error) {
	if _, err := uuid.Parse(in.ChatID); err != nil {
		return proto.Message{}, validationError(CodeInvalidID, "invalid chat id")
	}
	if strings.TrimSpace(in.Content) == "" {
		return proto.Message{}, validationError(CodeMissingFields, "message content is required")
	}

	res := s.resolveChat(ctx, in.ChatID, in.SenderID, in.RecipientID)

	var (
		chat    *store.Chat
		created bool
	)
	switch res.State {
	case Found:
		chat = res.Chat
		if !chat.HasParticipant(in.SenderID) {
			return proto.Message{}, forbiddenError()
		}
	case MissingWithAlternative:
		chat = res.Chat
	case MissingNeedsCreate:
		var err error
		chat, created, err = s.store.CreateChat(ctx, in.SenderID, in.RecipientID, s.now())
		if err != nil {
			return proto.Message{}, persistenceError("create chat", err)
		}
		// Lost a race with a concurrent create for the same pair.
		if !created {
			res.State = MissingWithAlternative
		}
	case Unrecoverable:
		return proto.Message{}, res.Err
	}

	msg := &store.Message{
		ID:        uuid.NewString(),
		ChatID:    chat.ID,
		SenderID:  in.SenderID,
		Content:   in.Content,
		TempID:    in.TempID,
		CreatedAt: s.now(),
	}
	if err := s.store.CreateMessage(ctx, msg); err != nil {
		return proto.Message{}, persistenceError("save message", err)
	}

	if err := s.store.AppendMessage(ctx, chat.ID, msg.ID, msg.CreatedAt); err != nil {
		s.log.Warn().Err(err).Str("chat_id", chat.ID).Str("message_id", msg.ID).Msg("failed to append message to chat")
	} else {
		chat.MessageIDs = append(chat.MessageIDs, msg.ID)
		if msg.CreatedAt.After(chat.UpdatedAt) {
			chat.UpdatedAt = msg.CreatedAt
		}
	}

	out := ToMessage(msg)
	if res.State != Found {
		out.OriginalChatID = in.ChatID
		out.NewChatID = chat.ID
		out.ChatRestored = res.State == MissingWithAlternative
		out.ChatCreated = res.State == MissingNeedsCreate
		s.log.Info().
			Str("original_chat_id", in.ChatID).
			Str("new_chat_id", chat.ID).
			Str("recovery", res.State.String()).
			Msg("message re-targeted")
	}

	summary := toSummary(chat)
	if created {
		s.broadcaster.Broadcast(proto.EventNewChat, summary, chat.ID, chat.ParticipantA, chat.ParticipantB)
	}
	s.broadcaster.Broadcast(proto.EventMessageReceived, ToMessage(msg), chat.ID, chat.ParticipantA, chat.ParticipantB)
	summary.LastMessage = msg.Content
	summary.LastMessageID = msg.ID
	s.broadcaster.Broadcast(proto.EventChatUpdated, summary, chat.ID, chat.ParticipantA, chat.ParticipantB)

	return out, nil
}

// ListChats returns the user's chats, most recently updated first.
func (s *Service) ListChats(ctx context.Context, userID string) ([]proto.ChatSummary, error) {
	chats, err := s.store.ListChatsForUser(ctx, userID)
	if err != nil {
		return nil, persistenceError("list chats", err)
	}

	summaries := make([]proto.ChatSummary, 0, len(chats))
	for _, chat := range chats {
		summary, err := s.summaryFor(ctx, chat, userID)
		if err != nil {
			return nil, persistenceError("load chat summary", err)
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// GetChat returns one chat as seen by userID.
func (s *Service) GetChat(ctx context.Context, chatID, userID string) (proto.ChatSummary, error) {
	chat, err := s.Authorize(ctx, chatID, userID)
	if err != nil {
		return proto.ChatSummary{}, err
	}
	summary, err := s.summaryFor(ctx, chat, userID)
	if err != nil {
		return proto.ChatSummary{}, persistenceError("load chat summary", err)
	}
	return summary, nil
}

// Authorize loads a chat and checks that userID takes part in it.
func (s *Service) Authorize(ctx context.Context, chatID, userID string) (*store.Chat, error) {
	if _, err := uuid.Parse(chatID); err != nil {
		return nil, validationError(CodeInvalidID, "invalid chat id")
	}
	chat, err := s.store.GetChat(ctx, chatID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFoundError(CodeChatNotFound, "chat not found")
		}
		return nil, persistenceError("load chat", err)
	}
	if !chat.HasParticipant(userID) {
		return nil, forbiddenError()
	}
	return chat, nil
}

// ListMessages returns a page of a chat's messages, oldest first. Messages
// are read from the message store so they stay visible even if the chat's
// cached sequence missed an append. A chat that no longer exists has no
// messages.
func (s *Service) ListMessages(ctx context.Context, chatID, userID string, limit int, beforeID string) ([]proto.Message, error) {
	if _, err := s.Authorize(ctx, chatID, userID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return []proto.Message{}, nil
		}
		return nil, err
	}
	if beforeID != "" {
		if _, err := uuid.Parse(beforeID); err != nil {
			return nil, validationError(CodeInvalidID, "invalid message id")
		}
	}

	switch {
	case limit <= 0:
		limit = DefaultMessageLimit
	case limit > MaxMessageLimit:
		limit = MaxMessageLimit
	}

	msgs, err := s.store.ListMessages(ctx, chatID, limit, beforeID)
	if err != nil {
		return nil, persistenceError("list messages", err)
	}
	return lo.Map(msgs, func(m *store.Message, _ int) proto.Message { return ToMessage(m) }), nil
}

// SearchUsers finds users whose name contains query, excluding userID.
func (s *Service) SearchUsers(ctx context.Context, query, userID string) ([]proto.UserRef, error) {
	query = strings.TrimSpace(query)
	if len(query) < MinSearchLength {
		return nil, validationError(CodeMissingFields, "search query must be at least 3 characters")
	}

	users, err := s.store.SearchUsers(ctx, query)
	if err != nil {
		return nil, persistenceError("search users", err)
	}

	return lo.FilterMap(users, func(u *store.User, _ int) (proto.UserRef, bool) {
		return proto.UserRef{ID: u.ID, Username: u.Username}, u.ID != userID
	}), nil
}

// pushSummary strips the viewer-specific fields from summary before it is
// pushed to both participants.
func pushSummary(chat *store.Chat, summary proto.ChatSummary) proto.ChatSummary {
	push := toSummary(chat)
	push.LastMessage = summary.LastMessage
	push.LastMessageID = summary.LastMessageID
	return push
}
