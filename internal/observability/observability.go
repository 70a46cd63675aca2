// Package observability implements the Observer port from spec.md §6: a
// single Emit(Event) sink that every defensive layer (rate limiter, circuit
// breaker, router) posts to, decoupled from any specific backend.
package observability

import "time"

// Event is one observability record: a named occurrence plus free-form
// attributes, timestamped by the caller (never time.Now() internally, so
// tests can supply deterministic clocks).
type Event struct {
	Name   string
	At     time.Time
	Fields map[string]any
}

// Observer receives Events. Implementations must not block the caller for
// long; logging/metrics backends should buffer or drop under pressure
// rather than apply backpressure to request handling.
type Observer interface {
	Emit(e Event)
}

// Noop discards every event. The default when no observability backend is
// configured.
type Noop struct{}

func (Noop) Emit(Event) {}
