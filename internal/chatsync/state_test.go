package chatsync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/pairchat/internal/proto"
)

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func at(minutes int) time.Time {
	return base.Add(time.Duration(minutes) * time.Minute)
}

func summary(id string, minutes int) proto.ChatSummary {
	return proto.ChatSummary{ID: id, CreatedAt: at(0), UpdatedAt: timePtr(at(minutes))}
}

func message(id, chatID, sender string, minutes int) proto.Message {
	return proto.Message{ID: id, ChatID: chatID, Sender: sender, Content: "text " + id, CreatedAt: at(minutes)}
}

func ids(s State) []string {
	out := make([]string, 0, len(s.Chats))
	for _, e := range s.Chats {
		out = append(out, e.Summary.ID)
	}
	return out
}

func requireSorted(t *testing.T, s State) {
	t.Helper()
	for i := 1; i < len(s.Chats); i++ {
		prev, cur := s.Chats[i-1].Summary.Recency(), s.Chats[i].Summary.Recency()
		require.False(t, cur.After(prev), "chat %d is newer than chat %d", i, i-1)
	}
}

func TestNewChatUpsertsWithoutDuplicates(t *testing.T) {
	req := require.New(t)
	s := NewState("u1")

	s, _ = s.ApplyNewChat(summary("c1", 1))
	s, _ = s.ApplyNewChat(summary("c2", 2))
	s, _ = s.ApplyNewChat(summary("c1", 1))

	req.Equal([]string{"c2", "c1"}, ids(s))
}

func TestChatUpdatedMergesAndSorts(t *testing.T) {
	req := require.New(t)
	s := NewState("u1").ReplaceChats([]proto.ChatSummary{summary("c2", 2), summary("c1", 1)})

	update := proto.ChatSummary{ID: "c1", UpdatedAt: timePtr(at(5)), LastMessage: "hey", LastMessageID: "m9"}
	s, _ = s.ApplyChatUpdated(update)

	req.Equal([]string{"c1", "c2"}, ids(s))
	req.Equal("hey", s.Chats[0].Summary.LastMessage)
	req.Equal(at(0), s.Chats[0].Summary.CreatedAt)

	// Unknown chats are inserted.
	s, _ = s.ApplyChatUpdated(summary("c3", 3))
	req.Equal([]string{"c1", "c3", "c2"}, ids(s))
	requireSorted(t, s)
}

func TestChatUpdatedTieBreaksByTouch(t *testing.T) {
	req := require.New(t)
	s := NewState("u1")

	s, _ = s.ApplyChatUpdated(summary("c1", 1))
	s, _ = s.ApplyChatUpdated(summary("c2", 1))
	req.Equal([]string{"c2", "c1"}, ids(s))

	s, _ = s.ApplyChatUpdated(summary("c1", 1))
	req.Equal([]string{"c1", "c2"}, ids(s))
}

func TestMessageIsCountedOnce(t *testing.T) {
	req := require.New(t)
	s := NewState("u2").ReplaceChats([]proto.ChatSummary{summary("c1", 1)})

	msg := message("m1", "c1", "u1", 2)
	s, _ = s.ApplyMessage(msg)
	s, _ = s.ApplyMessage(msg)

	req.Equal(1, s.UnreadCount("c1"))
	req.Len(s.Chats, 1)
}

func TestOwnAndOpenChatMessagesAreNotUnread(t *testing.T) {
	req := require.New(t)
	s := NewState("u2").ReplaceChats([]proto.ChatSummary{summary("c1", 1), summary("c2", 1)})

	s, _ = s.ApplyMessage(message("m1", "c1", "u2", 2))
	req.Zero(s.UnreadCount("c1"))

	s = s.Select("c2")
	s, _ = s.ApplyMessage(message("m2", "c2", "u1", 3))
	req.Zero(s.UnreadCount("c2"))
	req.Equal("c2", s.Chats[0].Summary.ID)
}

func TestSelectClearsOnlyThatChat(t *testing.T) {
	req := require.New(t)
	s := NewState("u2").ReplaceChats([]proto.ChatSummary{summary("c1", 1), summary("c2", 1)})

	s, _ = s.ApplyMessage(message("m1", "c1", "u1", 2))
	s, _ = s.ApplyMessage(message("m2", "c2", "u1", 3))
	s, _ = s.ApplyMessage(message("m3", "c2", "u1", 4))

	s = s.Select("c1")
	req.Zero(s.UnreadCount("c1"))
	req.Equal(2, s.UnreadCount("c2"))
	req.Equal(2, s.TotalUnread())

	// Re-sync and chat events never clear a counter.
	s = s.ReplaceChats([]proto.ChatSummary{summary("c2", 4), summary("c1", 2)})
	s, _ = s.ApplyChatUpdated(summary("c2", 5))
	req.Equal(2, s.UnreadCount("c2"))
}

func TestMessageForUnknownChatRequestsResync(t *testing.T) {
	req := require.New(t)
	s := NewState("u2")

	s, effects := s.ApplyMessage(message("m1", "c9", "u1", 1))
	req.Empty(s.Chats)
	req.Equal([]Effect{{Kind: EffectResync, ChatID: "c9"}}, effects)
	req.Equal(1, s.UnreadCount("c9"))
}

func TestMessageNeverMovesRecencyBackwards(t *testing.T) {
	req := require.New(t)
	s := NewState("u2").ReplaceChats([]proto.ChatSummary{summary("c1", 10)})

	s, _ = s.ApplyMessage(message("m1", "c1", "u1", 5))
	req.Equal(at(10), s.Chats[0].Summary.Recency())
	req.Equal("m1", s.Chats[0].Summary.LastMessageID)
}

func TestTransitionsDoNotMutateInput(t *testing.T) {
	req := require.New(t)
	before := NewState("u2").ReplaceChats([]proto.ChatSummary{summary("c1", 1), summary("c2", 2)})

	after, _ := before.ApplyMessage(message("m1", "c1", "u1", 3))
	after = after.Select("c2")

	req.Equal([]string{"c2", "c1"}, ids(before))
	req.Zero(before.UnreadCount("c1"))
	req.Empty(before.OpenChatID)
	req.False(before.Processed.Contains("m1"))
	req.Equal([]string{"c1", "c2"}, ids(after))
}

func TestOrderingAfterMixedEvents(t *testing.T) {
	s := NewState("u1")
	s, _ = s.ApplyNewChat(summary("c1", 1))
	s, _ = s.ApplyNewChat(summary("c2", 3))
	s, _ = s.ApplyChatUpdated(summary("c3", 2))
	s, _ = s.ApplyMessage(message("m1", "c1", "u2", 4))
	s, _ = s.ApplyMessage(message("m2", "c3", "u2", 6))
	s, _ = s.ApplyChatUpdated(summary("c2", 5))

	requireSorted(t, s)
	require.Equal(t, []string{"c3", "c2", "c1"}, ids(s))
}

// u1 sends "hi" into c1; u2's list moves c1 to the top and counts it unless
// c1 is open.
func TestScenarioHiFromU1(t *testing.T) {
	msg := proto.Message{ID: "m1", ChatID: "c1", Sender: "u1", Content: "hi", TempID: "t1", CreatedAt: at(10)}
	chats := []proto.ChatSummary{summary("c2", 5), summary("c1", 1)}

	t.Run("not open", func(t *testing.T) {
		req := require.New(t)
		s := NewState("u2").ReplaceChats(chats)
		s, _ = s.ApplyMessage(msg)

		req.Equal("c1", s.Chats[0].Summary.ID)
		req.Equal("hi", s.Chats[0].Summary.LastMessage)
		req.Equal(1, s.UnreadCount("c1"))
	})

	t.Run("open", func(t *testing.T) {
		req := require.New(t)
		s := NewState("u2").ReplaceChats(chats).Select("c1")
		s, _ = s.ApplyMessage(msg)

		req.Equal("c1", s.Chats[0].Summary.ID)
		req.Zero(s.UnreadCount("c1"))
	})
}

func TestPendingMessageConfirmation(t *testing.T) {
	req := require.New(t)
	s := NewState("u1").ReplaceChats([]proto.ChatSummary{summary("c1", 1)}).AddPending("t1", "c1")

	msg := message("m1", "c1", "u1", 2)
	msg.TempID = "t1"

	s, effects := s.ApplySendResult(msg)
	req.Equal([]Effect{{Kind: EffectConfirmed, ChatID: "c1", TempID: "t1"}}, effects)
	req.Empty(s.Pending)

	// The pushed copy of the same message confirms nothing new.
	s, effects = s.ApplyMessage(msg)
	req.Empty(effects)
	req.Zero(s.UnreadCount("c1"))
}

func TestSendResultRemapsRecoveredChat(t *testing.T) {
	req := require.New(t)
	s := NewState("u1").ReplaceChats([]proto.ChatSummary{summary("stale", 1)}).Select("stale")

	msg := message("m1", "fresh", "u1", 2)
	msg.OriginalChatID = "stale"
	msg.NewChatID = "fresh"
	msg.ChatCreated = true

	s, effects := s.ApplySendResult(msg)
	req.Equal("fresh", s.OpenChatID)
	req.Empty(s.Chats)
	req.Equal([]Effect{{Kind: EffectResync, ChatID: "fresh"}}, effects)
}

func TestLateDuplicateKeepsNewerPreview(t *testing.T) {
	req := require.New(t)
	s := NewState("u2").ReplaceChats([]proto.ChatSummary{summary("c1", 1)})

	older := message("m1", "c1", "u1", 2)
	s, _ = s.ApplyMessage(older)
	s, _ = s.ApplyMessage(message("m2", "c1", "u1", 3))
	s, _ = s.ApplyMessage(older)

	req.Equal("m2", s.Chats[0].Summary.LastMessageID)
	req.Equal("text m2", s.Chats[0].Summary.LastMessage)
	req.Equal(at(3), s.Chats[0].Summary.Recency())
	req.Equal(2, s.UnreadCount("c1"))
}

func TestListedPreviewIsNotReplacedByOlderMessage(t *testing.T) {
	req := require.New(t)
	listed := summary("c1", 5)
	listed.LastMessage = "latest"
	listed.LastMessageID = "m9"
	s := NewState("u2").ReplaceChats([]proto.ChatSummary{listed})

	s, _ = s.ApplyMessage(message("m1", "c1", "u1", 2))
	req.Equal("latest", s.Chats[0].Summary.LastMessage)

	s, _ = s.ApplyMessage(message("m10", "c1", "u1", 6))
	req.Equal("text m10", s.Chats[0].Summary.LastMessage)
}

func TestOnlyCountedMessagesAreRecorded(t *testing.T) {
	req := require.New(t)
	s := NewState("u2").ReplaceChats([]proto.ChatSummary{summary("c1", 1), summary("c2", 1)}).Select("c2")

	s, _ = s.ApplyMessage(message("own", "c1", "u2", 2))
	s, _ = s.ApplyMessage(message("open", "c2", "u1", 3))
	s, _ = s.ApplyMessage(message("counted", "c1", "u1", 4))

	req.False(s.Processed.Contains("own"))
	req.False(s.Processed.Contains("open"))
	req.True(s.Processed.Contains("counted"))
	req.Equal(1, s.Processed.Len())
}

func TestSendResultMovesUnreadToNewChat(t *testing.T) {
	req := require.New(t)
	s := NewState("u1").ReplaceChats([]proto.ChatSummary{summary("stale", 1), summary("other", 1)}).Select("other")
	s, _ = s.ApplyMessage(message("m1", "stale", "u2", 2))
	s, _ = s.ApplyMessage(message("m2", "stale", "u2", 3))
	req.Equal(2, s.UnreadCount("stale"))

	msg := message("m3", "fresh", "u1", 4)
	msg.OriginalChatID = "stale"
	msg.NewChatID = "fresh"
	msg.ChatRestored = true

	s, _ = s.ApplySendResult(msg)
	req.Zero(s.UnreadCount("stale"))
	req.Equal(2, s.UnreadCount("fresh"))
	req.Equal(2, s.TotalUnread())
	req.Equal("other", s.OpenChatID)
	req.True(s.Processed.Contains("m3"))
}

func TestPeerFallsBackToParticipants(t *testing.T) {
	req := require.New(t)
	withUser := summary("c1", 1)
	withUser.OtherUser = &proto.UserRef{ID: "u9", Username: "zed"}
	pushed := summary("c2", 1)
	pushed.Participants = []string{"u1", "u3"}
	s := NewState("u1").ReplaceChats([]proto.ChatSummary{withUser, pushed})

	peer, ok := s.Peer("c1")
	req.True(ok)
	req.Equal("u9", peer)

	peer, ok = s.Peer("c2")
	req.True(ok)
	req.Equal("u3", peer)

	_, ok = s.Peer("missing")
	req.False(ok)
}
