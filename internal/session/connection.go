// Package session implements the per-connection state machine and the
// connection table that owns it (spec.md §4.2).
package session

import (
	"encoding/json"
	"sync"

	"github.com/richard-senior/mcp/pkg/protocol"
)

// State is a connection's position in the New -> Initialized -> Closing ->
// Closed lifecycle.
type State int

const (
	StateNew State = iota
	StateInitialized
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateInitialized:
		return "initialized"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ClientInfo is the name/version pair a client declares in initialize.
type ClientInfo struct {
	Name    string
	Version string
}

// Send delivers one outbound frame to the connection's transport. Supplied
// by whatever transport accepted the connection; the session package never
// imports pkg/transport directly, avoiding the router/transport/session
// import cycle the teacher's singleton Server sidestepped by having only
// one of each.
type Send func(frame []byte) error

// Connection tracks one live transport instance: its lifecycle state, the
// client's declared identity, and the negotiated protocol version.
type Connection struct {
	ID     string
	send   Send
	closed chan struct{}

	mu            sync.RWMutex
	state         State
	clientInfo    ClientInfo
	clientCaps    map[string]any
	negotiatedVer string
}

func newConnection(id string, send Send) *Connection {
	return &Connection{ID: id, send: send, closed: make(chan struct{}), state: StateNew}
}

// State returns the connection's current lifecycle state.
func (c *Connection) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// MarkInitialized records the client's handshake details and transitions to
// Initialized. Returns false if the connection was not in State New.
func (c *Connection) MarkInitialized(info ClientInfo, caps map[string]any, negotiatedVersion string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateNew {
		return false
	}
	c.clientInfo = info
	c.clientCaps = caps
	c.negotiatedVer = negotiatedVersion
	c.state = StateInitialized
	return true
}

// ClientInfo returns the client's declared identity, valid once Initialized.
func (c *Connection) ClientInfo() ClientInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.clientInfo
}

// NegotiatedVersion returns the protocol version agreed during initialize.
func (c *Connection) NegotiatedVersion() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.negotiatedVer
}

// markClosing transitions to Closing, idempotently.
func (c *Connection) markClosing() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateClosed {
		c.state = StateClosing
	}
}

func (c *Connection) markClosed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateClosed
}

// Send writes one frame to the connection's transport.
func (c *Connection) Send(frame []byte) error {
	return c.send(frame)
}

// WriteResponse marshals and sends a single response.
func (c *Connection) WriteResponse(resp *protocol.Response) error {
	b, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return c.send(b)
}

// WriteNotification marshals and sends a single notification.
func (c *Connection) WriteNotification(n *protocol.Request) error {
	b, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return c.send(b)
}
