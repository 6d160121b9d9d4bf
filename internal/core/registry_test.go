package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryJoinRequiresRegistration(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()
	c := NewClient("c1", "u1", 4)

	_, err := reg.Join(c, "chat-1")
	req.ErrorIs(err, ErrNotRegistered)

	reg.Register(c)
	added, err := reg.Join(c, "chat-1")
	req.NoError(err)
	req.True(added)

	added, err = reg.Join(c, "chat-1")
	req.NoError(err)
	req.False(added)
	req.Equal([]string{"chat-1"}, reg.Joined(c))
}

func TestRegistryUnregisterDropsEmptyRooms(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()
	a := NewClient("c1", "u1", 4)
	b := NewClient("c2", "u2", 4)
	reg.Register(a)
	reg.Register(b)

	_, _ = reg.Join(a, "chat-1")
	_, _ = reg.Join(a, "chat-2")
	_, _ = reg.Join(b, "chat-1")

	conns, rooms := reg.Stats()
	req.Equal(2, conns)
	req.Equal(2, rooms)

	reg.Unregister(a)
	conns, rooms = reg.Stats()
	req.Equal(1, conns)
	req.Equal(1, rooms)
	req.Len(reg.RoomMembers("chat-1"), 1)
	req.Empty(reg.RoomMembers("chat-2"))
	req.Empty(reg.ConnectionsOf("u1"))
}

func TestRegistryLeave(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()
	c := NewClient("c1", "u1", 4)
	reg.Register(c)

	req.ErrorIs(reg.Leave(c, "chat-1"), ErrNotInRoom)

	_, _ = reg.Join(c, "chat-1")
	req.NoError(reg.Leave(c, "chat-1"))
	req.Empty(reg.Joined(c))
	_, rooms := reg.Stats()
	req.Zero(rooms)
}

func TestRegistryMultipleConnectionsPerOwner(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()
	reg.Register(NewClient("c1", "u1", 4))
	reg.Register(NewClient("c2", "u1", 4))
	reg.Register(NewClient("c3", "u2", 4))

	req.Len(reg.ConnectionsOf("u1"), 2)
	req.Len(reg.ConnectionsOf("u2"), 1)
	req.Empty(reg.ConnectionsOf("u3"))
}
