package registry

import (
	"sync"

	"github.com/richard-senior/mcp/pkg/protocol"
)

// RootRegistry holds the client-declared filesystem/URI roots (spec.md
// §4.7). Unlike tools/resources/prompts, roots are declared by the client,
// not offered by the server, so this registry has no provider behaviour to
// dispatch to - it is a single process-wide ordered list, shared by all
// connections, that the latest declaration replaces.
type RootRegistry struct {
	mu    sync.RWMutex
	roots []protocol.Root
}

// NewRootRegistry builds an empty registry.
func NewRootRegistry() *RootRegistry {
	return &RootRegistry{}
}

// Set replaces the full root list, as sent by
// notifications/roots/list_changed.
func (r *RootRegistry) Set(roots []protocol.Root) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.roots = append([]protocol.Root(nil), roots...)
}

// List returns a snapshot of the current roots.
func (r *RootRegistry) List() []protocol.Root {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]protocol.Root, len(r.roots))
	copy(out, r.roots)
	return out
}
