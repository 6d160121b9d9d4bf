package core

import "errors"

// Error codes sent on the push channel.
const (
	ErrCodeBadRequest    = "bad_request"
	ErrCodeUnauthorized  = "unauthorized"
	ErrCodeForbidden     = "forbidden"
	ErrCodeNotInRoom     = "not_in_room"
	ErrCodeNotSetUp      = "not_set_up"
	ErrCodeRateLimited   = "rate_limited"
	ErrCodeInvalidFrame  = "invalid_message"
	ErrCodeAlreadySetUp  = "already_set_up"
	ErrCodeInternalError = "internal_error"
)

var (
	ErrNotRegistered = errors.New("connection not registered")
	ErrNotInRoom     = errors.New("not in room")
)
