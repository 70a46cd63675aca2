// Package resources hosts the demo resource providers wired into the
// default ResourceRegistry: memory:// (static, always on), file:// (fsnotify-
// backed), and web:// (HTTP-backed).
package resources

import (
	"context"
	"fmt"

	"github.com/richard-senior/mcp/internal/logger"
	"github.com/richard-senior/mcp/pkg/protocol"
)

// MemoryProvider serves a small, fixed catalogue of in-process resources.
// Adapted from the teacher's pkg/resources/example.go (ExampleResource,
// WeatherResource, HandleResourceQuery) into the mcp.ResourceProvider shape.
// Subscribe/Unsubscribe are no-ops: nothing in memory ever changes, so there
// is nothing to watch.
type MemoryProvider struct {
	entries map[string]memoryEntry
	order   []string
}

type memoryEntry struct {
	resource protocol.Resource
	content  string
}

// NewMemoryProvider builds the provider with the teacher's example and
// weather demo resources.
func NewMemoryProvider() *MemoryProvider {
	p := &MemoryProvider{entries: make(map[string]memoryEntry)}
	p.add(
		protocol.Resource{
			URI:         "memory://example_documentation",
			Name:        "example_documentation",
			Description: "Example documentation resource for MCP",
			MimeType:    "text/markdown",
		},
		"# MCP Documentation\n\nThis is example documentation for the Model Context Protocol.",
	)
	p.add(
		protocol.Resource{
			URI:         "memory://weather_data",
			Name:        "weather_data",
			Description: "Historical weather data resource",
			MimeType:    "application/json",
		},
		`{"location":"San Francisco","current":{"temperature":72,"humidity":65,"conditions":"Partly Cloudy"}}`,
	)
	return p
}

func (p *MemoryProvider) add(r protocol.Resource, content string) {
	p.entries[r.URI] = memoryEntry{resource: r, content: content}
	p.order = append(p.order, r.URI)
}

func (p *MemoryProvider) Scheme() string { return "memory" }

func (p *MemoryProvider) List(ctx context.Context) ([]protocol.Resource, error) {
	out := make([]protocol.Resource, 0, len(p.order))
	for _, uri := range p.order {
		out = append(out, p.entries[uri].resource)
	}
	return out, nil
}

func (p *MemoryProvider) Read(ctx context.Context, uri string) (*protocol.ResourceContentPayload, error) {
	e, ok := p.entries[uri]
	if !ok {
		return nil, fmt.Errorf("no memory resource %q", uri)
	}
	return &protocol.ResourceContentPayload{URI: uri, MimeType: e.resource.MimeType, Text: e.content}, nil
}

func (p *MemoryProvider) Subscribe(uri string, onUpdate func(uri string)) error {
	if _, ok := p.entries[uri]; !ok {
		return fmt.Errorf("no memory resource %q", uri)
	}
	logger.Debug("memory provider: subscribe is a no-op, content is immutable", uri)
	return nil
}

func (p *MemoryProvider) Unsubscribe(uri string) error { return nil }
