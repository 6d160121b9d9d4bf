package messaging

import (
	"errors"
	"fmt"
)

// Error kinds. Match them with errors.Is.
var (
	ErrValidation    = errors.New("validation failed")
	ErrSelfChat      = errors.New("cannot chat with yourself")
	ErrAuthorization = errors.New("not authorized")
	ErrNotFound      = errors.New("not found")
	ErrPersistence   = errors.New("persistence failed")
)

// Error codes returned to clients.
const (
	CodeInvalidID                    = "INVALID_ID"
	CodeMissingFields                = "MISSING_FIELDS"
	CodeSelfChat                     = "SELF_CHAT"
	CodeNotParticipant               = "NOT_PARTICIPANT"
	CodeUserNotFound                 = "USER_NOT_FOUND"
	CodeChatNotFound                 = "CHAT_NOT_FOUND"
	CodeChatNotFoundNoRecipient      = "CHAT_NOT_FOUND_NO_RECIPIENT"
	CodeChatNotFoundRecipientMissing = "CHAT_NOT_FOUND_RECIPIENT_MISSING"
	CodePersistenceFailed            = "PERSISTENCE_FAILED"
)

// Error is a gateway failure with a kind, a client-facing code and message,
// and optionally the underlying cause.
type Error struct {
	Kind    error
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Is matches the error's kind.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

func validationError(code, msg string) *Error {
	return &Error{Kind: ErrValidation, Code: code, Message: msg}
}

func notFoundError(code, msg string) *Error {
	return &Error{Kind: ErrNotFound, Code: code, Message: msg}
}

func forbiddenError() *Error {
	return &Error{Kind: ErrAuthorization, Code: CodeNotParticipant, Message: "not a participant of this chat"}
}

func persistenceError(op string, err error) *Error {
	return &Error{Kind: ErrPersistence, Code: CodePersistenceFailed, Message: op + " failed", Err: err}
}
