package chatsync

import (
	"cmp"
	"maps"
	"slices"
	"time"

	"github.com/samber/lo"

	"github.com/vovakirdan/pairchat/internal/proto"
)

// EffectKind names a side effect requested by a state transition.
type EffectKind int

const (
	// EffectResync asks for the chat list to be fetched again.
	EffectResync EffectKind = iota + 1
	// EffectConfirmed reports that a locally sent message was confirmed.
	EffectConfirmed
)

// Effect is a side effect the caller of a transition must carry out.
type Effect struct {
	Kind   EffectKind
	ChatID string
	TempID string
}

// Entry is a cached chat summary with the local touch stamp used to break
// recency ties. PreviewAt is the creation time of the message shown as the
// preview, zero when unknown.
type Entry struct {
	Summary   proto.ChatSummary `json:"summary"`
	Touch     uint64            `json:"touch"`
	PreviewAt time.Time         `json:"previewAt,omitempty"`
}

func newEntry(summary proto.ChatSummary, touch uint64) Entry {
	e := Entry{Summary: summary, Touch: touch}
	if summary.LastMessageID != "" {
		e.PreviewAt = summary.Recency()
	}
	return e
}

// State is the client's view of its chats. Every transition is a pure
// function: it returns a new State and never mutates the receiver.
type State struct {
	SelfID     string            `json:"selfId"`
	Chats      []Entry           `json:"chats"`
	Unread     map[string]int    `json:"unread"`
	Processed  ProcessedLog      `json:"processed"`
	OpenChatID string            `json:"openChatId"`
	Clock      uint64            `json:"clock"`
	Pending    map[string]string `json:"pending"` // tempId -> chatId
}

// NewState returns an empty state for the given identity.
func NewState(selfID string) State {
	return State{
		SelfID:  selfID,
		Unread:  make(map[string]int),
		Pending: make(map[string]string),
	}
}

func (s State) clone() State {
	out := s
	out.Chats = slices.Clone(s.Chats)
	out.Unread = maps.Clone(s.Unread)
	if out.Unread == nil {
		out.Unread = make(map[string]int)
	}
	out.Pending = maps.Clone(s.Pending)
	if out.Pending == nil {
		out.Pending = make(map[string]string)
	}
	return out
}

func (s *State) tick() uint64 {
	s.Clock++
	return s.Clock
}

func (s State) indexOf(chatID string) int {
	_, i, ok := lo.FindIndexOf(s.Chats, func(e Entry) bool { return e.Summary.ID == chatID })
	if !ok {
		return -1
	}
	return i
}

// sortChats orders by recency, newest first, then by most recent touch.
func (s *State) sortChats() {
	slices.SortStableFunc(s.Chats, func(a, b Entry) int {
		if c := b.Summary.Recency().Compare(a.Summary.Recency()); c != 0 {
			return c
		}
		return cmp.Compare(b.Touch, a.Touch)
	})
}

// ApplyNewChat upserts a chat announced by a "new chat" event.
func (s State) ApplyNewChat(summary proto.ChatSummary) (State, []Effect) {
	next := s.clone()
	next.Chats = lo.Filter(next.Chats, func(e Entry, _ int) bool { return e.Summary.ID != summary.ID })
	next.Chats = append([]Entry{newEntry(summary, next.tick())}, next.Chats...)
	next.sortChats()
	return next, nil
}

// ApplyChatUpdated merges a "chat updated" event into the list.
func (s State) ApplyChatUpdated(summary proto.ChatSummary) (State, []Effect) {
	next := s.clone()
	if i := next.indexOf(summary.ID); i >= 0 {
		entry := next.Chats[i]
		entry.Summary = merge(entry.Summary, summary)
		entry.Touch = next.tick()
		if summary.LastMessageID != "" {
			entry.PreviewAt = summary.Recency()
		}
		next.Chats[i] = entry
	} else {
		next.Chats = append(next.Chats, newEntry(summary, next.tick()))
	}
	next.sortChats()
	return next, nil
}

// merge overlays the non-zero fields of update onto base.
func merge(base, update proto.ChatSummary) proto.ChatSummary {
	if len(update.Participants) > 0 {
		base.Participants = update.Participants
	}
	if update.OtherUser != nil {
		base.OtherUser = update.OtherUser
	}
	if update.Messages != nil {
		base.Messages = update.Messages
	}
	if !update.CreatedAt.IsZero() {
		base.CreatedAt = update.CreatedAt
	}
	if update.UpdatedAt != nil && (base.UpdatedAt == nil || update.UpdatedAt.After(*base.UpdatedAt)) {
		base.UpdatedAt = update.UpdatedAt
	}
	if update.LastMessageID != "" {
		base.LastMessage = update.LastMessage
		base.LastMessageID = update.LastMessageID
	}
	return base
}

// ApplyMessage accounts a "message received" event. A message id is counted
// at most once however often it is delivered, and a late copy of an older
// message never replaces a newer preview.
func (s State) ApplyMessage(msg proto.Message) (State, []Effect) {
	next := s.clone()
	var effects []Effect

	if msg.Sender == next.SelfID && msg.TempID != "" {
		if _, ok := next.Pending[msg.TempID]; ok {
			delete(next.Pending, msg.TempID)
			effects = append(effects, Effect{Kind: EffectConfirmed, ChatID: msg.ChatID, TempID: msg.TempID})
		}
	}

	if msg.Sender != next.SelfID && msg.ChatID != next.OpenChatID && !next.Processed.Contains(msg.ID) {
		next.Processed = next.Processed.Add(msg.ID)
		next.Unread[msg.ChatID]++
	}

	i := next.indexOf(msg.ChatID)
	if i < 0 {
		return next, append(effects, Effect{Kind: EffectResync, ChatID: msg.ChatID})
	}

	entry := next.Chats[i]
	if msg.CreatedAt.Before(entry.PreviewAt) {
		return next, effects
	}
	entry.Summary.LastMessage = msg.Content
	entry.Summary.LastMessageID = msg.ID
	entry.PreviewAt = msg.CreatedAt
	updated := entry.Summary.Recency()
	if msg.CreatedAt.After(updated) {
		updated = msg.CreatedAt
	}
	entry.Summary.UpdatedAt = timePtr(updated)
	entry.Touch = next.tick()
	next.Chats[i] = entry
	next.sortChats()

	return next, effects
}

// Select opens a chat and clears its unread counter. An empty id closes the
// open chat without touching any counter.
func (s State) Select(chatID string) State {
	next := s.clone()
	next.OpenChatID = chatID
	if chatID != "" {
		next.Unread[chatID] = 0
	}
	return next
}

// ReplaceChats installs a freshly fetched chat list. Unread counters are
// kept; the list order follows recency.
func (s State) ReplaceChats(chats []proto.ChatSummary) State {
	next := s.clone()
	next.Chats = make([]Entry, len(chats))
	// The fetched list is newest first, so the first entry gets the latest touch.
	for i := len(chats) - 1; i >= 0; i-- {
		next.Chats[i] = newEntry(chats[i], next.tick())
	}
	next.sortChats()
	return next
}

// AddPending records a message sent locally and not yet confirmed.
func (s State) AddPending(tempID, chatID string) State {
	next := s.clone()
	next.Pending[tempID] = chatID
	return next
}

// ApplySendResult reconciles the HTTP response of a send. A re-targeted
// message moves the open chat and its unread counter to the new id and
// drops the stale entry.
func (s State) ApplySendResult(msg proto.Message) (State, []Effect) {
	next := s.clone()
	var effects []Effect

	if msg.TempID != "" {
		if _, ok := next.Pending[msg.TempID]; ok {
			delete(next.Pending, msg.TempID)
			effects = append(effects, Effect{Kind: EffectConfirmed, ChatID: msg.ChatID, TempID: msg.TempID})
		}
	}
	if !next.Processed.Contains(msg.ID) {
		next.Processed = next.Processed.Add(msg.ID)
	}

	if !msg.Recovered() {
		return next, effects
	}

	if next.OpenChatID == msg.OriginalChatID {
		next.OpenChatID = msg.NewChatID
	}
	if n, ok := next.Unread[msg.OriginalChatID]; ok {
		next.Unread[msg.NewChatID] += n
		delete(next.Unread, msg.OriginalChatID)
	}
	next.Chats = lo.Filter(next.Chats, func(e Entry, _ int) bool { return e.Summary.ID != msg.OriginalChatID })

	return next, append(effects, Effect{Kind: EffectResync, ChatID: msg.NewChatID})
}

// Peer returns the other participant of a cached chat, if known.
func (s State) Peer(chatID string) (string, bool) {
	i := s.indexOf(chatID)
	if i < 0 {
		return "", false
	}
	summary := s.Chats[i].Summary
	if summary.OtherUser != nil && summary.OtherUser.ID != "" {
		return summary.OtherUser.ID, true
	}
	return lo.Find(summary.Participants, func(id string) bool { return id != s.SelfID })
}

// Summaries returns the chat list in display order.
func (s State) Summaries() []proto.ChatSummary {
	return lo.Map(s.Chats, func(e Entry, _ int) proto.ChatSummary { return e.Summary })
}

// UnreadCount returns the unread counter of a chat.
func (s State) UnreadCount(chatID string) int {
	return s.Unread[chatID]
}

// TotalUnread sums every unread counter.
func (s State) TotalUnread() int {
	return lo.Sum(lo.Values(s.Unread))
}

func timePtr(t time.Time) *time.Time {
	return &t
}
