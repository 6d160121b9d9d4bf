package chatclient

import (
	"math"
	"math/rand/v2"
	"time"
)

// Reconnect defaults.
const (
	DefaultBaseDelay   = time.Second
	DefaultMaxDelay    = 30 * time.Second
	DefaultMaxAttempts = 10

	// A connection that stayed up this long resets the attempt counter.
	stableAfter = 60 * time.Second
)

// Reconnector computes exponential backoff with jitter for a bounded number
// of attempts. It is not safe for concurrent use.
type Reconnector struct {
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxAttempts int // 0 means unlimited

	attempt     int
	connectedAt time.Time
	now         func() time.Time
	jitter      func() float64
}

// NewReconnector returns a reconnector with the default policy.
func NewReconnector() *Reconnector {
	return &Reconnector{
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxDelay,
		MaxAttempts: DefaultMaxAttempts,
		now:         time.Now,
		jitter:      rand.Float64,
	}
}

// ShouldReconnect reports whether another attempt is allowed.
func (r *Reconnector) ShouldReconnect() bool {
	return r.MaxAttempts == 0 || r.attempt < r.MaxAttempts
}

// MarkConnected records a successful connection.
func (r *Reconnector) MarkConnected() {
	r.connectedAt = r.now()
}

// Attempt returns how many delays have been handed out since the last reset.
func (r *Reconnector) Attempt() int {
	return r.attempt
}

// NextDelay returns the wait before the next attempt and counts it.
func (r *Reconnector) NextDelay() time.Duration {
	if !r.connectedAt.IsZero() && r.now().Sub(r.connectedAt) > stableAfter {
		r.attempt = 0
	}
	r.connectedAt = time.Time{}

	jitter := r.jitter() * float64(r.BaseDelay) * 0.5
	delay := time.Duration(math.Min(
		float64(r.BaseDelay)*math.Pow(2, float64(r.attempt))+jitter,
		float64(r.MaxDelay),
	))
	r.attempt++
	return delay
}

// Reset forgets every attempt.
func (r *Reconnector) Reset() {
	r.attempt = 0
	r.connectedAt = time.Time{}
}
