package messaging

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/vovakirdan/pairchat/internal/store"
)

// Recovery is the outcome of resolving the chat a message is sent to.
type Recovery int

const (
	// Found means the referenced chat exists.
	Found Recovery = iota
	// MissingWithAlternative means the chat is gone but the pair already has
	// another chat the message can go to.
	MissingWithAlternative
	// MissingNeedsCreate means the chat is gone and a new one must be created
	// for the pair.
	MissingNeedsCreate
	// Unrecoverable means the chat is gone and cannot be repaired.
	Unrecoverable
)

func (r Recovery) String() string {
	switch r {
	case Found:
		return "found"
	case MissingWithAlternative:
		return "missing_with_alternative"
	case MissingNeedsCreate:
		return "missing_needs_create"
	case Unrecoverable:
		return "unrecoverable"
	default:
		return "unknown"
	}
}

// Resolution carries the chat a send should target. Chat is nil for
// MissingNeedsCreate and Unrecoverable; Err explains Unrecoverable.
type Resolution struct {
	State Recovery
	Chat  *store.Chat
	Err   error
}

// resolveChat runs the recovery state machine for a send to chatID.
func (s *Service) resolveChat(ctx context.Context, chatID, senderID, recipientID string) Resolution {
	chat, err := s.store.GetChat(ctx, chatID)
	if err == nil {
		return Resolution{State: Found, Chat: chat}
	}
	if !errors.Is(err, store.ErrNotFound) {
		return Resolution{State: Unrecoverable, Err: persistenceError("load chat", err)}
	}

	if recipientID == "" {
		return Resolution{State: Unrecoverable, Err: notFoundError(CodeChatNotFoundNoRecipient,
			"chat not found and no recipient supplied")}
	}
	if _, err := uuid.Parse(recipientID); err != nil {
		return Resolution{State: Unrecoverable, Err: validationError(CodeInvalidID, "invalid recipient id")}
	}
	if recipientID == senderID {
		return Resolution{State: Unrecoverable, Err: &Error{Kind: ErrSelfChat, Code: CodeSelfChat,
			Message: "cannot chat with yourself"}}
	}

	alt, err := s.store.FindChatByParticipants(ctx, senderID, recipientID)
	switch {
	case err == nil:
		return Resolution{State: MissingWithAlternative, Chat: alt}
	case !errors.Is(err, store.ErrNotFound):
		return Resolution{State: Unrecoverable, Err: persistenceError("find chat", err)}
	}

	if _, err := s.store.GetUserByID(ctx, recipientID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Resolution{State: Unrecoverable, Err: notFoundError(CodeChatNotFoundRecipientMissing,
				"chat not found and recipient no longer exists")}
		}
		return Resolution{State: Unrecoverable, Err: persistenceError("load recipient", err)}
	}

	return Resolution{State: MissingNeedsCreate}
}
