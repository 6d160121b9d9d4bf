package core

import (
	"sort"
	"sync"
)

// Registry maps identities and conversations to live connections.
// Conversation membership is client-driven: a connection is only in a room
// after it explicitly joins it.
type Registry struct {
	mu      sync.RWMutex
	conns   map[string]Connection
	byOwner map[string]map[string]Connection // owner -> connection id -> connection
	joined  map[string]map[string]struct{}   // connection id -> conversation ids
	rooms   map[string]*Room
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		conns:   make(map[string]Connection),
		byOwner: make(map[string]map[string]Connection),
		joined:  make(map[string]map[string]struct{}),
		rooms:   make(map[string]*Room),
	}
}

// Register records a connection under its owner.
func (r *Registry) Register(c Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.conns[c.ID()] = c
	owned, ok := r.byOwner[c.OwnerID()]
	if !ok {
		owned = make(map[string]Connection)
		r.byOwner[c.OwnerID()] = owned
	}
	owned[c.ID()] = c
	if _, ok := r.joined[c.ID()]; !ok {
		r.joined[c.ID()] = make(map[string]struct{})
	}
}

// Unregister forgets a connection and removes it from every room it joined.
// Rooms left empty are dropped.
func (r *Registry) Unregister(c Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for conversationID := range r.joined[c.ID()] {
		r.leaveLocked(c, conversationID)
	}
	delete(r.joined, c.ID())
	delete(r.conns, c.ID())

	if owned, ok := r.byOwner[c.OwnerID()]; ok {
		delete(owned, c.ID())
		if len(owned) == 0 {
			delete(r.byOwner, c.OwnerID())
		}
	}
}

// Join subscribes a registered connection to a conversation.
// Returns true if it was not already joined.
func (r *Registry) Join(c Connection, conversationID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	joined, ok := r.joined[c.ID()]
	if !ok {
		return false, ErrNotRegistered
	}

	room, ok := r.rooms[conversationID]
	if !ok {
		room = NewRoom(conversationID)
		r.rooms[conversationID] = room
	}
	joined[conversationID] = struct{}{}
	return room.AddClient(c), nil
}

// Leave unsubscribes a connection from a conversation.
func (r *Registry) Leave(c Connection, conversationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.joined[c.ID()][conversationID]; !ok {
		return ErrNotInRoom
	}
	r.leaveLocked(c, conversationID)
	return nil
}

func (r *Registry) leaveLocked(c Connection, conversationID string) {
	delete(r.joined[c.ID()], conversationID)
	room, ok := r.rooms[conversationID]
	if !ok {
		return
	}
	room.RemoveClient(c)
	if room.Empty() {
		delete(r.rooms, conversationID)
	}
}

// ConnectionsOf returns every live connection owned by userID.
func (r *Registry) ConnectionsOf(userID string) []Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	owned := r.byOwner[userID]
	conns := make([]Connection, 0, len(owned))
	for _, c := range owned {
		conns = append(conns, c)
	}
	return conns
}

// RoomMembers returns the connections joined to a conversation.
func (r *Registry) RoomMembers(conversationID string) []Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[conversationID]
	if !ok {
		return nil
	}
	return room.Members()
}

// Joined lists the conversations a connection has joined, sorted.
func (r *Registry) Joined(c Connection) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.joined[c.ID()]))
	for id := range r.joined[c.ID()] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Stats reports the number of live connections and non-empty rooms.
func (r *Registry) Stats() (connections, rooms int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns), len(r.rooms)
}
