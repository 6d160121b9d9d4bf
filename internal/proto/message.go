package proto

import "encoding/json"

// Inbound is the envelope for frames coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	InboundTypeSetup      = "setup"
	InboundTypeJoinChat   = "join chat"
	InboundTypeLeaveChat  = "leave chat"
	InboundTypeTyping     = "typing"
	InboundTypeStopTyping = "stop typing"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"
)

// Push event names.
const (
	EventConnected       = "connected"
	EventNewChat         = "new chat"
	EventChatUpdated     = "chat updated"
	EventMessageReceived = "message received"
	EventTyping          = "typing"
	EventStopTyping      = "stop typing"
)

// SetupData authenticates a push connection. UserID is optional; when set it
// must match the identity carried by the token.
type SetupData struct {
	Token  string `json:"token"`
	UserID string `json:"userId,omitempty"`
}

// ChatRefData names a conversation.
type ChatRefData struct {
	ChatID string `json:"chatId"`
}

// Outbound is the envelope for frames sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// Envelope is Outbound as seen by a client, with the payload left undecoded.
type Envelope struct {
	Type  string          `json:"type"`
	Event string          `json:"event,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error *Error          `json:"error,omitempty"`
}

// ConnectedData acknowledges setup.
type ConnectedData struct {
	UserID       string `json:"userId"`
	ConnectionID string `json:"connectionId"`
}

// TypingData is relayed to the other connections in a conversation.
type TypingData struct {
	ChatID string `json:"chatId"`
	UserID string `json:"userId"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
