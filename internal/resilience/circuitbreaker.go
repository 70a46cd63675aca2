package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State is one of the three circuit breaker states (spec.md §4.12).
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned by Execute while the breaker is Open.
var ErrCircuitOpen = errors.New("circuit breaker open")

// StateChangeObserver is notified on every transition, for the
// observability port (spec.md §6: "circuit.open", "circuit.closed").
type StateChangeObserver func(name string, from, to State)

// CircuitBreaker protects one fragile downstream call: Closed while healthy,
// Open after FailureThreshold consecutive failures, HalfOpen for one trial
// call after OpenDuration, Closed again on its success or Open again on its
// failure.
type CircuitBreaker struct {
	name             string
	failureThreshold int
	openDuration     time.Duration
	onChange         StateChangeObserver
	now              func() time.Time

	mu          sync.Mutex
	state       State
	failures    int
	openedAt    time.Time
	halfOpenBusy bool
}

// New builds a CircuitBreaker named name (used only for logging/observer
// events).
func New(name string, failureThreshold int, openDuration time.Duration, onChange StateChangeObserver) *CircuitBreaker {
	return &CircuitBreaker{
		name:             name,
		failureThreshold: failureThreshold,
		openDuration:     openDuration,
		onChange:         onChange,
		now:              time.Now,
	}
}

// State returns the breaker's current state, resolving Open->HalfOpen
// transitions that are due.
func (c *CircuitBreaker) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.maybeHalfOpenLocked()
	return c.state
}

func (c *CircuitBreaker) maybeHalfOpenLocked() {
	if c.state == Open && c.now().Sub(c.openedAt) >= c.openDuration {
		c.transitionLocked(HalfOpen)
		c.halfOpenBusy = false
	}
}

func (c *CircuitBreaker) transitionLocked(to State) {
	if c.state == to {
		return
	}
	from := c.state
	c.state = to
	if c.onChange != nil {
		onChange, name := c.onChange, c.name
		go onChange(name, from, to)
	}
}

// Execute runs op, guarded by the breaker. While Open it returns
// ErrCircuitOpen without calling op. In HalfOpen only one trial call is let
// through at a time; concurrent callers are rejected with ErrCircuitOpen
// until that trial resolves.
func (c *CircuitBreaker) Execute(ctx context.Context, op func(context.Context) error) error {
	c.mu.Lock()
	c.maybeHalfOpenLocked()
	switch c.state {
	case Open:
		c.mu.Unlock()
		return ErrCircuitOpen
	case HalfOpen:
		if c.halfOpenBusy {
			c.mu.Unlock()
			return ErrCircuitOpen
		}
		c.halfOpenBusy = true
	}
	c.mu.Unlock()

	err := op(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == HalfOpen {
		c.halfOpenBusy = false
	}
	if err != nil {
		c.failures++
		if c.state == HalfOpen || c.failures >= c.failureThreshold {
			c.openedAt = c.now()
			c.transitionLocked(Open)
		}
		return err
	}
	c.failures = 0
	c.transitionLocked(Closed)
	return nil
}

// Reset forces the breaker back to Closed, clearing the failure count.
func (c *CircuitBreaker) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures = 0
	c.halfOpenBusy = false
	c.transitionLocked(Closed)
}
