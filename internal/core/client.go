package core

// Connection is a live push connection as seen by the registry.
type Connection interface {
	// ID identifies the connection itself.
	ID() string
	// OwnerID is the authenticated identity that opened the connection.
	OwnerID() string
	// Send queues an event without blocking and reports whether it was accepted.
	Send(event string, payload any) bool
}

// Event is a push notification queued for one connection.
type Event struct {
	Name    string
	Payload any
}

// Client is a Connection backed by a bounded event queue drained by the
// transport's write loop.
type Client struct {
	id      string
	ownerID string
	Events  chan Event
}

// NewClient constructs a client with an event queue of the given size.
func NewClient(id, ownerID string, buffer int) *Client {
	if buffer <= 0 {
		buffer = 8
	}
	return &Client{
		id:      id,
		ownerID: ownerID,
		Events:  make(chan Event, buffer),
	}
}

func (c *Client) ID() string      { return c.id }
func (c *Client) OwnerID() string { return c.ownerID }

// Send drops the event when the queue is full rather than stalling the sender.
func (c *Client) Send(event string, payload any) bool {
	select {
	case c.Events <- Event{Name: event, Payload: payload}:
		return true
	default:
		return false
	}
}
