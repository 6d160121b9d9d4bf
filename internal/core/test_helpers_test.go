package core

import (
	"testing"
	"time"
)

func mustEvent(t *testing.T, c *Client, name string) Event {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-c.Events:
			if ev.Name == name {
				return ev
			}
		case <-deadline:
			t.Fatalf("expected event %q not received on %s", name, c.ID())
			return Event{}
		}
	}
}

func drain(c *Client) []Event {
	var out []Event
	for {
		select {
		case ev := <-c.Events:
			out = append(out, ev)
		default:
			return out
		}
	}
}
