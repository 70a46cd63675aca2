// Package registry implements the tool, resource, prompt, and root
// registries (spec.md §4.5-§4.7): name/URI-scheme -> provider maps that
// fan out a "changed" notification on every mutation.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/richard-senior/mcp/internal/validation"
	"github.com/richard-senior/mcp/pkg/mcp"
	"github.com/richard-senior/mcp/pkg/protocol"
)

// ToolRegistry holds every registered Tool, read-locked for Get/List and
// write-locked for Register/Unregister, emitting onChanged after each
// mutation so the notification service can fan out
// "notifications/tools/list_changed".
type ToolRegistry struct {
	mu        sync.RWMutex
	order     []string
	byName    map[string]mcp.Tool
	onChanged func()
}

// NewToolRegistry builds an empty registry. onChanged may be nil.
func NewToolRegistry(onChanged func()) *ToolRegistry {
	return &ToolRegistry{byName: make(map[string]mcp.Tool), onChanged: onChanged}
}

// Register adds tool, failing if its name is already registered.
func (r *ToolRegistry) Register(tool mcp.Tool) error {
	name := tool.Definition().Name
	r.mu.Lock()
	if _, exists := r.byName[name]; exists {
		r.mu.Unlock()
		return fmt.Errorf("tool %q already registered", name)
	}
	r.byName[name] = tool
	r.order = append(r.order, name)
	r.mu.Unlock()
	r.fireChanged()
	return nil
}

// Unregister removes a tool by name.
func (r *ToolRegistry) Unregister(name string) error {
	r.mu.Lock()
	if _, exists := r.byName[name]; !exists {
		r.mu.Unlock()
		return fmt.Errorf("tool %q not registered", name)
	}
	delete(r.byName, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.mu.Unlock()
	r.fireChanged()
	return nil
}

// Get looks up a tool by name.
func (r *ToolRegistry) Get(name string) (mcp.Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byName[name]
	return t, ok
}

// List returns a snapshot of every tool's definition, in registration order.
// The returned slice is never aliased with internal state.
func (r *ToolRegistry) List() []protocol.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]protocol.Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name].Definition())
	}
	return out
}

func (r *ToolRegistry) fireChanged() {
	if r.onChanged != nil {
		r.onChanged()
	}
}

// ValidatedToolWrapper validates arguments against the wrapped tool's
// declared InputSchema before delegating. On a schema violation it returns
// an error without ever calling the wrapped tool's Execute (spec.md §8's
// universal invariant).
type ValidatedToolWrapper struct {
	Inner     mcp.Tool
	Validator *validation.Validator
}

func (w *ValidatedToolWrapper) Definition() protocol.Tool { return w.Inner.Definition() }

func (w *ValidatedToolWrapper) Execute(ctx context.Context, args map[string]any) (*protocol.ToolResult, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}
	findings, err := w.Validator.Validate(w.Inner.Definition().InputSchema, raw)
	if err != nil {
		return nil, err
	}
	if len(findings) > 0 {
		return nil, &ArgumentValidationError{Findings: findings}
	}
	return w.Inner.Execute(ctx, args)
}

// ArgumentValidationError reports that tool arguments failed schema
// validation.
type ArgumentValidationError struct {
	Findings []validation.Finding
}

func (e *ArgumentValidationError) Error() string {
	if len(e.Findings) == 0 {
		return "invalid tool arguments"
	}
	return fmt.Sprintf("invalid tool arguments: %s: %s", e.Findings[0].Path, e.Findings[0].Message)
}
