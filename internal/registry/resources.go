package registry

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/richard-senior/mcp/pkg/mcp"
	"github.com/richard-senior/mcp/pkg/protocol"
)

// ResourceRegistry maps a URI scheme to the provider that owns it, and owns
// the (connectionId, uri) -> observer subscription table on top of every
// provider (spec.md §4.6).
type ResourceRegistry struct {
	mu        sync.RWMutex
	schemes   []string // insertion order
	providers map[string]mcp.ResourceProvider

	// subs[uri][connID] = true; refcount is len(subs[uri]).
	subs map[string]map[string]bool

	onChanged  func()
	updateSink UpdateSink
}

// NewResourceRegistry builds an empty registry.
func NewResourceRegistry(onChanged func()) *ResourceRegistry {
	return &ResourceRegistry{
		providers: make(map[string]mcp.ResourceProvider),
		subs:      make(map[string]map[string]bool),
		onChanged: onChanged,
	}
}

// RegisterProvider adds a provider for its declared scheme.
func (r *ResourceRegistry) RegisterProvider(p mcp.ResourceProvider) error {
	scheme := p.Scheme()
	r.mu.Lock()
	if _, exists := r.providers[scheme]; exists {
		r.mu.Unlock()
		return fmt.Errorf("resource scheme %q already registered", scheme)
	}
	r.providers[scheme] = p
	r.schemes = append(r.schemes, scheme)
	r.mu.Unlock()
	r.fireChanged()
	return nil
}

// UnregisterProvider removes a scheme's provider.
func (r *ResourceRegistry) UnregisterProvider(scheme string) error {
	r.mu.Lock()
	if _, exists := r.providers[scheme]; !exists {
		r.mu.Unlock()
		return fmt.Errorf("resource scheme %q not registered", scheme)
	}
	delete(r.providers, scheme)
	for i, s := range r.schemes {
		if s == scheme {
			r.schemes = append(r.schemes[:i], r.schemes[i+1:]...)
			break
		}
	}
	r.mu.Unlock()
	r.fireChanged()
	return nil
}

func (r *ResourceRegistry) fireChanged() {
	if r.onChanged != nil {
		r.onChanged()
	}
}

// List concatenates every provider's listing, in scheme-then-provider order
// (spec.md §4.4's deterministic ordering requirement).
func (r *ResourceRegistry) List(ctx context.Context) ([]protocol.Resource, error) {
	r.mu.RLock()
	schemes := append([]string(nil), r.schemes...)
	providers := make([]mcp.ResourceProvider, 0, len(schemes))
	for _, s := range schemes {
		providers = append(providers, r.providers[s])
	}
	r.mu.RUnlock()

	var out []protocol.Resource
	for _, p := range providers {
		list, err := p.List(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, list...)
	}
	return out, nil
}

func (r *ResourceRegistry) providerFor(rawURI string) (mcp.ResourceProvider, error) {
	u, err := url.Parse(rawURI)
	if err != nil {
		return nil, fmt.Errorf("invalid uri %q: %w", rawURI, err)
	}
	r.mu.RLock()
	p, ok := r.providers[u.Scheme]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no resource provider for scheme %q", u.Scheme)
	}
	return p, nil
}

// Read dispatches to the provider owning uri's scheme.
func (r *ResourceRegistry) Read(ctx context.Context, uri string) (*protocol.ResourceContentPayload, error) {
	p, err := r.providerFor(uri)
	if err != nil {
		return nil, err
	}
	return p.Read(ctx, uri)
}

// Subscribe records connID's interest in uri, asking the underlying provider
// to start watching only when connID is the first observer.
func (r *ResourceRegistry) Subscribe(connID, uri string) error {
	p, err := r.providerFor(uri)
	if err != nil {
		return err
	}

	r.mu.Lock()
	observers, ok := r.subs[uri]
	if !ok {
		observers = make(map[string]bool)
		r.subs[uri] = observers
	}
	firstObserver := len(observers) == 0
	observers[connID] = true
	r.mu.Unlock()

	if firstObserver {
		if err := p.Subscribe(uri, r.onProviderUpdate); err != nil {
			r.mu.Lock()
			delete(observers, connID)
			if len(observers) == 0 {
				delete(r.subs, uri)
			}
			r.mu.Unlock()
			return err
		}
	}
	return nil
}

// onProviderUpdate is the callback given to every provider's Subscribe;
// fan-out to individual connections happens one layer up, in the
// notification service, which calls Observers.
func (r *ResourceRegistry) onProviderUpdate(uri string) {
	if r.updateSink != nil {
		r.updateSink(r.Observers(uri), uri)
	}
}

// UpdateSink delivers (connectionIDs, uri) whenever a subscribed resource
// changes. Kept separate from onChanged (list_changed) since the two
// notifications have different payloads and different audiences.
type UpdateSink func(connIDs []string, uri string)

// SetUpdateSink installs the callback used to fan out resource update
// notifications.
func (r *ResourceRegistry) SetUpdateSink(sink UpdateSink) {
	r.mu.Lock()
	r.updateSink = sink
	r.mu.Unlock()
}

// Observers returns the connection IDs currently subscribed to uri.
func (r *ResourceRegistry) Observers(uri string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	observers, ok := r.subs[uri]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(observers))
	for connID := range observers {
		out = append(out, connID)
	}
	return out
}

// Unsubscribe removes connID's interest in uri, releasing the provider-side
// watch when connID was the last observer.
func (r *ResourceRegistry) Unsubscribe(connID, uri string) error {
	r.mu.Lock()
	observers, ok := r.subs[uri]
	if !ok || !observers[connID] {
		r.mu.Unlock()
		return fmt.Errorf("no subscription for %q on this connection", uri)
	}
	delete(observers, connID)
	lastObserver := len(observers) == 0
	if lastObserver {
		delete(r.subs, uri)
	}
	r.mu.Unlock()

	if lastObserver {
		p, err := r.providerFor(uri)
		if err == nil {
			return p.Unsubscribe(uri)
		}
	}
	return nil
}

// ReleaseConnection drops every subscription owned by connID, releasing the
// provider-side watch for any uri whose last observer was connID. Called by
// ConnectionManager on transport disconnect.
func (r *ResourceRegistry) ReleaseConnection(connID string) {
	r.mu.Lock()
	var toRelease []string
	for uri, observers := range r.subs {
		if observers[connID] {
			delete(observers, connID)
			if len(observers) == 0 {
				delete(r.subs, uri)
				toRelease = append(toRelease, uri)
			}
		}
	}
	r.mu.Unlock()

	for _, uri := range toRelease {
		if p, err := r.providerFor(uri); err == nil {
			_ = p.Unsubscribe(uri)
		}
	}
}
