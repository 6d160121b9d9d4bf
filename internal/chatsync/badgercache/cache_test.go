package badgercache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/pairchat/internal/chatsync"
	"github.com/vovakirdan/pairchat/internal/proto"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	cache, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })
	return cache
}

func TestLoadMissing(t *testing.T) {
	cache := newTestCache(t)

	_, ok, err := cache.Load(context.Background(), "u1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	cache := newTestCache(t)

	updated := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	state := chatsync.NewState("u2").
		ReplaceChats([]proto.ChatSummary{{ID: "c1", CreatedAt: updated, UpdatedAt: &updated}})
	state, _ = state.ApplyMessage(proto.Message{ID: "m1", ChatID: "c1", Sender: "u1", Content: "hi", CreatedAt: updated})
	state = state.Select("c1")

	req.NoError(cache.Save(ctx, state))

	loaded, ok, err := cache.Load(ctx, "u2")
	req.NoError(err)
	req.True(ok)
	req.Equal("c1", loaded.OpenChatID)
	req.True(loaded.Processed.Contains("m1"))
	req.Len(loaded.Chats, 1)
	req.Equal("hi", loaded.Chats[0].Summary.LastMessage)
	req.True(updated.Equal(loaded.Chats[0].Summary.Recency()))

	_, ok, err = cache.Load(ctx, "u1")
	req.NoError(err)
	req.False(ok)
}

func TestSaveOverwrites(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	cache := newTestCache(t)

	state := chatsync.NewState("u1")
	state.Unread["c1"] = 2
	req.NoError(cache.Save(ctx, state))

	state = state.Select("c1")
	req.NoError(cache.Save(ctx, state))

	loaded, _, err := cache.Load(ctx, "u1")
	req.NoError(err)
	req.Zero(loaded.UnreadCount("c1"))
}
