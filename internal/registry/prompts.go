package registry

import (
	"fmt"
	"sync"

	"github.com/richard-senior/mcp/pkg/mcp"
	"github.com/richard-senior/mcp/pkg/protocol"
)

// PromptRegistry holds every registered Prompt, following the same
// register/unregister/list/changed shape as ToolRegistry (spec.md §4.7).
type PromptRegistry struct {
	mu        sync.RWMutex
	order     []string
	byName    map[string]mcp.Prompt
	onChanged func()
}

// NewPromptRegistry builds an empty registry. onChanged may be nil.
func NewPromptRegistry(onChanged func()) *PromptRegistry {
	return &PromptRegistry{byName: make(map[string]mcp.Prompt), onChanged: onChanged}
}

// Register adds a prompt, failing if its name is already registered.
func (r *PromptRegistry) Register(p mcp.Prompt) error {
	name := p.Definition().Name
	r.mu.Lock()
	if _, exists := r.byName[name]; exists {
		r.mu.Unlock()
		return fmt.Errorf("prompt %q already registered", name)
	}
	r.byName[name] = p
	r.order = append(r.order, name)
	r.mu.Unlock()
	r.fireChanged()
	return nil
}

// Unregister removes a prompt by name.
func (r *PromptRegistry) Unregister(name string) error {
	r.mu.Lock()
	if _, exists := r.byName[name]; !exists {
		r.mu.Unlock()
		return fmt.Errorf("prompt %q not registered", name)
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

// Get looks up a prompt by name.
func (r *PromptRegistry) Get(name string) (mcp.Prompt, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byName[name]
	return p, ok
}

// List returns a snapshot of every prompt's definition, in registration
// order.
func (r *PromptRegistry) List() []protocol.Prompt {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]protocol.Prompt, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name].Definition())
	}
	return out
}

func (r *PromptRegistry) fireChanged() {
	if r.onChanged != nil {
		r.onChanged()
	}
}

// MissingArgumentError reports that a required prompt argument was not
// supplied to prompts/get.
type MissingArgumentError struct {
	Prompt   string
	Argument string
}

func (e *MissingArgumentError) Error() string {
	return fmt.Sprintf("prompt %q: missing required argument %q", e.Prompt, e.Argument)
}

// RequireArguments validates args against def's declared PromptArguments,
// returning the first missing required argument as an error. Shared by every
// Prompt implementation so "required" is enforced uniformly rather than
// ad-hoc per prompt (spec.md §4.7).
func RequireArguments(def protocol.Prompt, args map[string]string) error {
	for _, a := range def.Arguments {
		if !a.Required {
			continue
		}
		if _, ok := args[a.Name]; !ok {
			return &MissingArgumentError{Prompt: def.Name, Argument: a.Name}
		}
	}
	return nil
}
