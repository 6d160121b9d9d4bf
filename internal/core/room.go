package core

// Room groups connections joined to the same conversation.
type Room struct {
	Name    string
	clients map[string]Connection
}

// NewRoom constructs a room with no clients.
func NewRoom(name string) *Room {
	return &Room{
		Name:    name,
		clients: make(map[string]Connection),
	}
}

// AddClient inserts a connection into the room. Returns true if newly added.
func (r *Room) AddClient(c Connection) bool {
	if _, exists := r.clients[c.ID()]; exists {
		return false
	}
	r.clients[c.ID()] = c
	return true
}

// RemoveClient deletes a connection from the room. Returns true if removed.
func (r *Room) RemoveClient(c Connection) bool {
	if _, exists := r.clients[c.ID()]; !exists {
		return false
	}
	delete(r.clients, c.ID())
	return true
}

// Members returns a snapshot of the room's connections.
func (r *Room) Members() []Connection {
	members := make([]Connection, 0, len(r.clients))
	for _, c := range r.clients {
		members = append(members, c)
	}
	return members
}

// Empty returns true if no clients are in the room.
func (r *Room) Empty() bool {
	return len(r.clients) == 0
}
