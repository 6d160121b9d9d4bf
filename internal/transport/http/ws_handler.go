package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"
	"slices"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/pairchat/internal/auth"
	"github.com/vovakirdan/pairchat/internal/config"
	"github.com/vovakirdan/pairchat/internal/core"
	"github.com/vovakirdan/pairchat/internal/proto"
	"github.com/vovakirdan/pairchat/internal/service/messaging"
	"github.com/vovakirdan/pairchat/internal/utils"
)

// WSHandler upgrades HTTP connections and bridges them to core.Client.
type WSHandler struct {
	router  *core.Router
	auth    *auth.Service
	gateway *messaging.Service
	cfg     *config.Config
	log     *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(router *core.Router, authService *auth.Service, gateway *messaging.Service, cfg *config.Config, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{router: router, auth: authService, gateway: gateway, cfg: cfg, log: logger}
}

// wsSession is the per-connection state owned by the read loop. The client
// is handed to the write loop through ready once setup succeeds.
type wsSession struct {
	client *core.Client
	ready  chan *core.Client
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")
	if h.cfg.MaxMessageBytes > 0 {
		conn.SetReadLimit(h.cfg.MaxMessageBytes)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	session := &wsSession{ready: make(chan *core.Client, 1)}
	limiter := newRateLimiter(h.cfg.InboundPerMinute)
	limiter.startReset(ctx.Done())

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, session, limiter)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, session)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	if session.client != nil {
		h.router.Registry().Unregister(session.client)
		h.log.Info().Str("conn_id", session.client.ID()).Str("user_id", session.client.OwnerID()).Msg("ws client disconnected")
	}

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, session *wsSession, limiter *rateLimiter) error {
	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			h.log.Debug().Err(err).Msg("read ws inbound")
			return err
		}

		if !limiter.allow() {
			if err := wsjson.Write(ctx, conn, errorFrame(core.ErrCodeRateLimited, "too many messages")); err != nil {
				return err
			}
			continue
		}

		if protoErr := h.handleInbound(ctx, session, inbound); protoErr != nil {
			if err := wsjson.Write(ctx, conn, proto.Outbound{Type: proto.OutboundTypeError, Error: protoErr}); err != nil {
				return err
			}
		}
	}
}

func (h *WSHandler) handleInbound(ctx context.Context, session *wsSession, inbound proto.Inbound) *proto.Error {
	if inbound.Type == proto.InboundTypeSetup {
		if session.client != nil {
			return &proto.Error{Code: core.ErrCodeAlreadySetUp, Msg: "connection already set up"}
		}
		return h.setup(session, inbound)
	}

	client := session.client
	if client == nil {
		return &proto.Error{Code: core.ErrCodeNotSetUp, Msg: "send setup first"}
	}

	switch inbound.Type {
	case proto.InboundTypeJoinChat:
		chatID, protoErr := chatRef(inbound)
		if protoErr != nil {
			return protoErr
		}
		if _, err := h.gateway.Authorize(ctx, chatID, client.OwnerID()); err != nil {
			return pushError(err)
		}
		if _, err := h.router.Registry().Join(client, chatID); err != nil {
			return &proto.Error{Code: core.ErrCodeInternalError, Msg: err.Error()}
		}
		h.log.Debug().Str("conn_id", client.ID()).Str("chat_id", chatID).Msg("joined chat")
	case proto.InboundTypeLeaveChat:
		chatID, protoErr := chatRef(inbound)
		if protoErr != nil {
			return protoErr
		}
		if err := h.router.Registry().Leave(client, chatID); err != nil {
			return &proto.Error{Code: core.ErrCodeNotInRoom, Msg: err.Error()}
		}
	case proto.InboundTypeTyping, proto.InboundTypeStopTyping:
		chatID, protoErr := chatRef(inbound)
		if protoErr != nil {
			return protoErr
		}
		if !slices.Contains(h.router.Registry().Joined(client), chatID) {
			return &proto.Error{Code: core.ErrCodeNotInRoom, Msg: "join the chat first"}
		}
		event := proto.EventTyping
		if inbound.Type == proto.InboundTypeStopTyping {
			event = proto.EventStopTyping
		}
		h.router.Relay(client, event, proto.TypingData{ChatID: chatID, UserID: client.OwnerID()}, chatID)
	default:
		return &proto.Error{Code: core.ErrCodeInvalidFrame, Msg: "unknown message type"}
	}
	return nil
}

// setup authenticates the connection from the token and registers it.
func (h *WSHandler) setup(session *wsSession, inbound proto.Inbound) *proto.Error {
	var data proto.SetupData
	if err := json.Unmarshal(inbound.Data, &data); err != nil {
		return &proto.Error{Code: core.ErrCodeInvalidFrame, Msg: "malformed data"}
	}

	claims, err := h.auth.ValidateToken(data.Token)
	if err != nil {
		h.log.Debug().Err(err).Msg("ws setup with invalid token")
		return &proto.Error{Code: core.ErrCodeUnauthorized, Msg: "invalid token"}
	}
	if data.UserID != "" && data.UserID != claims.UserID {
		h.log.Warn().Str("claimed", data.UserID).Str("token_user", claims.UserID).Msg("ws setup identity mismatch")
		return &proto.Error{Code: core.ErrCodeUnauthorized, Msg: "userId does not match token"}
	}

	client := core.NewClient(utils.NewID(), claims.UserID, h.cfg.ConnBuffer)
	h.router.Registry().Register(client)
	session.client = client
	client.Send(proto.EventConnected, proto.ConnectedData{UserID: claims.UserID, ConnectionID: client.ID()})
	session.ready <- client

	h.log.Info().Str("conn_id", client.ID()).Str("user_id", claims.UserID).Msg("ws client set up")
	return nil
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, session *wsSession) error {
	var client *core.Client
	select {
	case client = <-session.ready:
	case <-ctx.Done():
		return ctx.Err()
	}

	for {
		select {
		case event := <-client.Events:
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				h.log.Error().Err(err).Str("conn_id", client.ID()).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
