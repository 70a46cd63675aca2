package session

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/richard-senior/mcp/internal/concurrency"
	"github.com/richard-senior/mcp/internal/logger"
)

// CloseHook is called once, synchronously, for a connection that is closing,
// after it has been removed from the table, moved to Closing and had its
// in-flight requests cancelled. Registered owners (such as resource
// subscriptions) use it to release what the connection held, per spec.md
// §4.2's disconnect responsibilities.
type CloseHook func(connID string)

// Manager owns the table of live connections keyed by connection ID
// (spec.md §4.2). It does not itself know how to route frames; each
// transport registers a peer with Accept and hands the peer's inbound frames
// to the router itself, keeping Manager free of a router import and avoiding
// the ConnectionManager<->Router<->Registries cycle noted in spec.md §9.
type Manager struct {
	mu          sync.RWMutex
	connections map[string]*Connection

	cancellation *concurrency.CancellationManager
	closeHooks   []CloseHook
}

// NewManager builds an empty manager. cancellation may be nil if the host
// does not support request cancellation.
func NewManager(cancellation *concurrency.CancellationManager) *Manager {
	return &Manager{
		connections:  make(map[string]*Connection),
		cancellation: cancellation,
	}
}

// OnClose registers a hook invoked for every connection as it begins
// closing. Hooks run in registration order.
func (m *Manager) OnClose(hook CloseHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeHooks = append(m.closeHooks, hook)
}

// Accept allocates a new connection ID and registers the connection,
// called by a transport as soon as it accepts a new transport-level peer.
func (m *Manager) Accept(send Send) *Connection {
	conn := newConnection(uuid.NewString(), send)
	m.mu.Lock()
	m.connections[conn.ID] = conn
	m.mu.Unlock()
	logger.Info("connection accepted:", conn.ID)
	return conn
}

// Get looks up a connection by ID.
func (m *Manager) Get(id string) (*Connection, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.connections[id]
	return c, ok
}

// AuthorizeRequest enforces the per-connection state machine described in
// spec.md §4.2: any method but "initialize" sent while New is rejected with
// -32002; "initialize" sent while already Initialized is rejected with
// -32600 ("already initialized").
func (m *Manager) AuthorizeRequest(connID, method string) error {
	conn, ok := m.Get(connID)
	if !ok {
		return fmt.Errorf("unknown connection %q", connID)
	}
	state := conn.State()
	if method == "initialize" {
		if state != StateNew {
			return &AlreadyInitializedError{}
		}
		return nil
	}
	if state == StateNew {
		return &NotInitializedError{}
	}
	return nil
}

// NotInitializedError maps to protocol.ErrNotInitialized.
type NotInitializedError struct{}

func (e *NotInitializedError) Error() string { return "server not initialized" }

// AlreadyInitializedError maps to protocol.ErrInvalidRequest.
type AlreadyInitializedError struct{}

func (e *AlreadyInitializedError) Error() string { return "connection already initialized" }

// Close removes connID from the table, transitions it to Closing, cancels
// its in-flight requests, runs every registered close hook (dropping
// subscriptions), then marks it Closed (spec.md §4.2). Idempotent.
func (m *Manager) Close(connID string) {
	m.mu.Lock()
	conn, ok := m.connections[connID]
	if !ok {
		m.mu.Unlock()
		return
	}
	delete(m.connections, connID)
	hooks := append([]CloseHook(nil), m.closeHooks...)
	m.mu.Unlock()

	conn.markClosing()
	if m.cancellation != nil {
		m.cancellation.CancelAll(connID)
	}
	for _, hook := range hooks {
		hook(connID)
	}
	conn.markClosed()
	logger.Info("connection closed:", connID)
}

// Broadcast delivers frame to every currently Initialized connection,
// skipping any whose Send fails (the connection's own transport loop will
// notice the broken link and call Close).
func (m *Manager) Broadcast(frame []byte) {
	m.mu.RLock()
	targets := make([]*Connection, 0, len(m.connections))
	for _, c := range m.connections {
		if c.State() == StateInitialized {
			targets = append(targets, c)
		}
	}
	m.mu.RUnlock()

	for _, c := range targets {
		if err := c.Send(frame); err != nil {
			logger.Warn("broadcast send failed for connection", c.ID, err)
		}
	}
}

// SendTo delivers frame to one specific connection, if it still exists.
func (m *Manager) SendTo(connID string, frame []byte) error {
	conn, ok := m.Get(connID)
	if !ok {
		return fmt.Errorf("unknown connection %q", connID)
	}
	return conn.Send(frame)
}

// Count reports the number of live connections, chiefly for health/metrics
// reporting.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.connections)
}
