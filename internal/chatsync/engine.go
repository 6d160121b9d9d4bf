package chatsync

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/pairchat/internal/proto"
)

// Cache persists the state between client runs.
type Cache interface {
	// Load returns the stored state for selfID; ok is false when none exists.
	Load(ctx context.Context, selfID string) (state State, ok bool, err error)
	Save(ctx context.Context, state State) error
}

// ChatLister fetches the authoritative chat list.
type ChatLister interface {
	ListChats(ctx context.Context) ([]proto.ChatSummary, error)
}

// Engine serializes transitions over a State, persists each result and
// carries out the effects the transitions request.
type Engine struct {
	mu       sync.Mutex
	state    State
	cache    Cache
	lister   ChatLister
	log      *zerolog.Logger
	onChange func(State)
}

// NewEngine restores the cached state for selfID, or starts empty.
func NewEngine(ctx context.Context, selfID string, cache Cache, lister ChatLister, logger *zerolog.Logger) (*Engine, error) {
	state, ok, err := cache.Load(ctx, selfID)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	if !ok || state.SelfID != selfID {
		state = NewState(selfID)
	}
	return &Engine{
		state:  state.clone(),
		cache:  cache,
		lister: lister,
		log:    logger,
	}, nil
}

// OnChange registers fn to be called with every new state.
func (e *Engine) OnChange(fn func(State)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onChange = fn
}

// State returns a snapshot of the current state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.clone()
}

// HandleEvent applies a pushed event. Unknown events are ignored.
func (e *Engine) HandleEvent(ctx context.Context, env proto.Envelope) error {
	switch env.Event {
	case proto.EventNewChat, proto.EventChatUpdated:
		var summary proto.ChatSummary
		if err := json.Unmarshal(env.Data, &summary); err != nil {
			return fmt.Errorf("decode %s: %w", env.Event, err)
		}
		if env.Event == proto.EventNewChat {
			return e.apply(ctx, func(s State) (State, []Effect) { return s.ApplyNewChat(summary) })
		}
		return e.apply(ctx, func(s State) (State, []Effect) { return s.ApplyChatUpdated(summary) })
	case proto.EventMessageReceived:
		var msg proto.Message
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			return fmt.Errorf("decode %s: %w", env.Event, err)
		}
		return e.apply(ctx, func(s State) (State, []Effect) { return s.ApplyMessage(msg) })
	default:
		return nil
	}
}

// Select opens a chat.
func (e *Engine) Select(ctx context.Context, chatID string) error {
	return e.apply(ctx, func(s State) (State, []Effect) { return s.Select(chatID), nil })
}

// AddPending records an outgoing message before its HTTP response arrives.
func (e *Engine) AddPending(ctx context.Context, tempID, chatID string) error {
	return e.apply(ctx, func(s State) (State, []Effect) { return s.AddPending(tempID, chatID), nil })
}

// ApplySendResult reconciles a send response.
func (e *Engine) ApplySendResult(ctx context.Context, msg proto.Message) error {
	return e.apply(ctx, func(s State) (State, []Effect) { return s.ApplySendResult(msg) })
}

// Resync replaces the chat list with the server's.
func (e *Engine) Resync(ctx context.Context) error {
	chats, err := e.lister.ListChats(ctx)
	if err != nil {
		return fmt.Errorf("list chats: %w", err)
	}
	return e.apply(ctx, func(s State) (State, []Effect) { return s.ReplaceChats(chats), nil })
}

func (e *Engine) apply(ctx context.Context, transition func(State) (State, []Effect)) error {
	e.mu.Lock()
	next, effects := transition(e.state)
	e.state = next
	// Saved under the lock so the cache never goes back to an older state.
	if err := e.cache.Save(ctx, next); err != nil {
		e.log.Warn().Err(err).Msg("failed to persist chat state")
	}
	onChange := e.onChange
	snapshot := next.clone()
	e.mu.Unlock()

	if onChange != nil {
		onChange(snapshot)
	}

	return e.run(ctx, effects)
}

func (e *Engine) run(ctx context.Context, effects []Effect) error {
	resync := false
	for _, effect := range effects {
		switch effect.Kind {
		case EffectResync:
			resync = true
		case EffectConfirmed:
			e.log.Debug().Str("chat_id", effect.ChatID).Str("temp_id", effect.TempID).Msg("message confirmed")
		}
	}
	if !resync {
		return nil
	}
	return e.Resync(ctx)
}
