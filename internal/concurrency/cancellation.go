// Package concurrency holds the two small per-connection primitives the
// router needs: a cancel-handle table (spec.md §4.11) and a progress-token
// tracker (spec.md §4.11).
package concurrency

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/richard-senior/mcp/pkg/protocol"
)

// CancellationManager maps (connectionId, requestId) to a cancel function.
// One instance is shared by the whole process; every connection's requests
// share the same table, keyed by connection id.
type CancellationManager struct {
	mu    sync.Mutex
	byKey map[string]context.CancelFunc
}

// NewCancellationManager constructs an empty manager.
func NewCancellationManager() *CancellationManager {
	return &CancellationManager{byKey: make(map[string]context.CancelFunc)}
}

func key(connID string, reqID json.RawMessage) string {
	return connID + "\x00" + protocol.FormatID(reqID)
}

// Register derives a cancellable context from parent, stores its cancel
// function, and returns the new context for the handler to run under.
func (m *CancellationManager) Register(parent context.Context, connID string, reqID json.RawMessage) context.Context {
	ctx, cancel := context.WithCancel(parent)
	m.mu.Lock()
	m.byKey[key(connID, reqID)] = cancel
	m.mu.Unlock()
	return ctx
}

// Trigger cancels the request's context, if it is still registered.
// Triggering an unknown (connID, reqID) is a documented no-op.
func (m *CancellationManager) Trigger(connID string, reqID json.RawMessage) bool {
	m.mu.Lock()
	cancel, ok := m.byKey[key(connID, reqID)]
	m.mu.Unlock()
	if !ok {
		return false
	}
	cancel()
	return true
}

// Deregister removes the entry once the handler has returned, whether it
// completed normally or was cancelled.
func (m *CancellationManager) Deregister(connID string, reqID json.RawMessage) {
	m.mu.Lock()
	delete(m.byKey, key(connID, reqID))
	m.mu.Unlock()
}

// CancelAll triggers and removes every entry belonging to connID, called
// from ConnectionManager on transport disconnect.
func (m *CancellationManager) CancelAll(connID string) {
	prefix := connID + "\x00"
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, cancel := range m.byKey {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			cancel()
			delete(m.byKey, k)
		}
	}
}
