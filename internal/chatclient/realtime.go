package chatclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/pairchat/internal/proto"
)

var (
	// ErrNotConnected is returned by commands sent while the push channel is down.
	ErrNotConnected = errors.New("push channel not connected")
	// ErrUnauthorized means the server refused the token; retrying cannot help.
	ErrUnauthorized = errors.New("push channel setup rejected")
)

// Realtime keeps a push connection open, reconnecting with backoff. After
// every (re)connect it re-joins the open chat and calls the OnConnected
// hook so the caller can resync whatever it missed.
type Realtime struct {
	baseURL string
	token   string
	recon   *Reconnector
	log     *zerolog.Logger

	mu          sync.Mutex
	conn        *websocket.Conn
	openChat    string
	onEvent     func(proto.Envelope)
	onConnected func(context.Context, proto.ConnectedData)
}

// NewRealtime creates a push client for the server at baseURL.
func NewRealtime(baseURL, token string, recon *Reconnector, logger *zerolog.Logger) *Realtime {
	if recon == nil {
		recon = NewReconnector()
	}
	return &Realtime{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		recon:   recon,
		log:     logger,
	}
}

// OnEvent registers the handler for pushed events.
func (r *Realtime) OnEvent(fn func(proto.Envelope)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onEvent = fn
}

// OnConnected registers a hook run after each successful setup.
func (r *Realtime) OnConnected(fn func(context.Context, proto.ConnectedData)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onConnected = fn
}

// Run connects and keeps the connection alive until ctx is done, the token
// is rejected, or reconnect attempts run out. Every call starts with the full
// attempt budget.
func (r *Realtime) Run(ctx context.Context) error {
	r.recon.Reset()
	for {
		err := r.session(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, ErrUnauthorized) {
			return err
		}
		if !r.recon.ShouldReconnect() {
			return fmt.Errorf("giving up after %d attempts: %w", r.recon.Attempt(), err)
		}

		delay := r.recon.NextDelay()
		r.log.Warn().Err(err).Int("attempt", r.recon.Attempt()).Dur("delay", delay).Msg("push channel lost, reconnecting")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (r *Realtime) session(ctx context.Context) error {
	conn, _, err := websocket.Dial(ctx, wsURL(r.baseURL), nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.CloseNow()

	if err := writeFrame(ctx, conn, proto.InboundTypeSetup, proto.SetupData{Token: r.token}); err != nil {
		return fmt.Errorf("send setup: %w", err)
	}

	var first proto.Envelope
	if err := wsjson.Read(ctx, conn, &first); err != nil {
		return fmt.Errorf("read setup reply: %w", err)
	}
	if first.Type == proto.OutboundTypeError && first.Error != nil {
		return fmt.Errorf("%w: %s", ErrUnauthorized, first.Error.Msg)
	}
	if first.Event != proto.EventConnected {
		return fmt.Errorf("expected %q, got %q", proto.EventConnected, first.Event)
	}
	var connected proto.ConnectedData
	if err := json.Unmarshal(first.Data, &connected); err != nil {
		return fmt.Errorf("decode %s: %w", proto.EventConnected, err)
	}

	r.recon.MarkConnected()
	r.mu.Lock()
	r.conn = conn
	openChat := r.openChat
	onConnected := r.onConnected
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.conn = nil
		r.mu.Unlock()
	}()

	r.log.Info().Str("conn_id", connected.ConnectionID).Str("user_id", connected.UserID).Msg("push channel connected")

	if openChat != "" {
		if err := writeFrame(ctx, conn, proto.InboundTypeJoinChat, proto.ChatRefData{ChatID: openChat}); err != nil {
			return fmt.Errorf("rejoin %s: %w", openChat, err)
		}
	}
	if onConnected != nil {
		onConnected(ctx, connected)
	}

	for {
		var env proto.Envelope
		if err := wsjson.Read(ctx, conn, &env); err != nil {
			return err
		}
		if env.Type == proto.OutboundTypeError {
			if env.Error != nil {
				r.log.Warn().Str("code", env.Error.Code).Str("msg", env.Error.Msg).Msg("push channel error")
			}
			continue
		}

		r.mu.Lock()
		onEvent := r.onEvent
		r.mu.Unlock()
		if onEvent != nil {
			onEvent(env)
		}
	}
}

// JoinChat opens chatID on the push channel. The chat is remembered and
// re-joined after a reconnect even if the channel is currently down.
func (r *Realtime) JoinChat(ctx context.Context, chatID string) error {
	r.mu.Lock()
	previous := r.openChat
	r.openChat = chatID
	r.mu.Unlock()

	if previous != "" && previous != chatID {
		if err := r.send(ctx, proto.InboundTypeLeaveChat, proto.ChatRefData{ChatID: previous}); err != nil && !errors.Is(err, ErrNotConnected) {
			return err
		}
	}
	err := r.send(ctx, proto.InboundTypeJoinChat, proto.ChatRefData{ChatID: chatID})
	if errors.Is(err, ErrNotConnected) {
		return nil
	}
	return err
}

// LeaveChat closes the open chat.
func (r *Realtime) LeaveChat(ctx context.Context) error {
	r.mu.Lock()
	chatID := r.openChat
	r.openChat = ""
	r.mu.Unlock()

	if chatID == "" {
		return nil
	}
	return r.send(ctx, proto.InboundTypeLeaveChat, proto.ChatRefData{ChatID: chatID})
}

// Typing signals that the user started or stopped typing in chatID.
func (r *Realtime) Typing(ctx context.Context, chatID string, typing bool) error {
	kind := proto.InboundTypeTyping
	if !typing {
		kind = proto.InboundTypeStopTyping
	}
	return r.send(ctx, kind, proto.ChatRefData{ChatID: chatID})
}

func (r *Realtime) send(ctx context.Context, kind string, data any) error {
	r.mu.Lock()
	conn := r.conn
	r.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	return writeFrame(ctx, conn, kind, data)
}

func writeFrame(ctx context.Context, conn *websocket.Conn, kind string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return wsjson.Write(ctx, conn, proto.Inbound{Type: kind, Data: raw})
}

func wsURL(baseURL string) string {
	u := strings.Replace(baseURL, "https://", "wss://", 1)
	u = strings.Replace(u, "http://", "ws://", 1)
	return u + "/ws"
}
