// Package transport implements the pluggable frame carriers named in
// spec.md §4.1 and §6: stdio, Server-Sent Events over HTTP, and WebSocket.
// Each accepts connections, hands every inbound frame to a router, and
// writes back whatever the router returns.
package transport

import (
	"context"

	"github.com/richard-senior/mcp/internal/router"
	"github.com/richard-senior/mcp/internal/session"
)

// Transport serves connections until ctx is cancelled, registering each one
// with manager and routing its frames through rt.
type Transport interface {
	Serve(ctx context.Context, manager *session.Manager, rt *router.Router) error
}
