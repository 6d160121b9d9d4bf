package http

import (
	"encoding/json"
	"errors"

	"github.com/vovakirdan/pairchat/internal/core"
	"github.com/vovakirdan/pairchat/internal/proto"
	"github.com/vovakirdan/pairchat/internal/service/messaging"
)

func outboundFromEvent(event core.Event) proto.Outbound {
	return proto.Outbound{
		Type:  proto.OutboundTypeEvent,
		Event: event.Name,
		Data:  event.Payload,
	}
}

func errorFrame(code, msg string) proto.Outbound {
	return proto.Outbound{
		Type:  proto.OutboundTypeError,
		Error: &proto.Error{Code: code, Msg: msg},
	}
}

// chatRef decodes the chat reference carried by join, leave and typing frames.
func chatRef(inbound proto.Inbound) (string, *proto.Error) {
	var ref proto.ChatRefData
	if err := json.Unmarshal(inbound.Data, &ref); err != nil {
		return "", &proto.Error{Code: core.ErrCodeInvalidFrame, Msg: "malformed data"}
	}
	if ref.ChatID == "" {
		return "", &proto.Error{Code: core.ErrCodeBadRequest, Msg: "chatId is required"}
	}
	return ref.ChatID, nil
}

// pushError maps a gateway error to a push-channel error.
func pushError(err error) *proto.Error {
	var gwErr *messaging.Error
	if !errors.As(err, &gwErr) {
		return &proto.Error{Code: core.ErrCodeInternalError, Msg: "internal error"}
	}
	switch {
	case errors.Is(err, messaging.ErrValidation):
		return &proto.Error{Code: core.ErrCodeBadRequest, Msg: gwErr.Message}
	case errors.Is(err, messaging.ErrAuthorization), errors.Is(err, messaging.ErrNotFound):
		// A missing chat and a foreign chat look the same on the push channel.
		return &proto.Error{Code: core.ErrCodeForbidden, Msg: gwErr.Message}
	default:
		return &proto.Error{Code: core.ErrCodeInternalError, Msg: "internal error"}
	}
}
