package core

import (
	"github.com/rs/zerolog"
)

// Delivery counts what a broadcast reached.
type Delivery struct {
	Room    int // connections reached through the conversation room
	Direct  int // connections reached through the owner fallback
	Dropped int // sends refused by a full queue
}

// Router delivers events to connections through the Registry.
//
// Delivery is at-least-once: a connection can receive the same event through
// the room and through the direct fallback. Clients deduplicate.
type Router struct {
	registry *Registry
	log      *zerolog.Logger
}

// NewRouter creates a router over registry.
func NewRouter(registry *Registry, logger *zerolog.Logger) *Router {
	return &Router{registry: registry, log: logger}
}

// Registry returns the registry the router delivers through.
func (r *Router) Registry() *Registry {
	return r.registry
}

// Broadcast delivers event to every connection joined to conversationID, and
// directly to the connections of each participant that has none joined there.
// It never blocks and never reports failures to the caller.
func (r *Router) Broadcast(event string, payload any, conversationID string, participantIDs ...string) {
	d := r.Deliver(event, payload, conversationID, participantIDs...)
	r.log.Debug().
		Str("event", event).
		Str("chat_id", conversationID).
		Int("room", d.Room).
		Int("direct", d.Direct).
		Int("dropped", d.Dropped).
		Msg("broadcast")
}

// Deliver is Broadcast with the delivery counts returned.
func (r *Router) Deliver(event string, payload any, conversationID string, participantIDs ...string) Delivery {
	var d Delivery

	present := make(map[string]struct{})
	for _, c := range r.registry.RoomMembers(conversationID) {
		present[c.OwnerID()] = struct{}{}
		r.send(c, event, payload, &d.Room, &d.Dropped)
	}

	seen := make(map[string]struct{}, len(participantIDs))
	for _, userID := range participantIDs {
		if _, ok := present[userID]; ok {
			continue
		}
		if _, ok := seen[userID]; ok {
			continue
		}
		seen[userID] = struct{}{}
		for _, c := range r.registry.ConnectionsOf(userID) {
			r.send(c, event, payload, &d.Direct, &d.Dropped)
		}
	}

	return d
}

// Relay sends event to the other connections joined to conversationID.
func (r *Router) Relay(from Connection, event string, payload any, conversationID string) Delivery {
	var d Delivery
	for _, c := range r.registry.RoomMembers(conversationID) {
		if c.ID() == from.ID() {
			continue
		}
		r.send(c, event, payload, &d.Room, &d.Dropped)
	}
	return d
}

func (r *Router) send(c Connection, event string, payload any, delivered, dropped *int) {
	if c.Send(event, payload) {
		*delivered++
		return
	}
	*dropped++
	r.log.Debug().Str("conn_id", c.ID()).Str("user_id", c.OwnerID()).Str("event", event).Msg("dropping event for slow consumer")
}
