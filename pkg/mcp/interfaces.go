// Package mcp defines the behavioural contracts behind the protocol's static
// records: tools that execute, resources that read and watch, prompts that
// render. Cancellation is modelled the ordinary Go way, as a context.Context
// passed to every call that may block.
package mcp

import (
	"context"

	"github.com/richard-senior/mcp/pkg/protocol"
)

// Tool is an executable tool. Execute must observe ctx promptly: once ctx is
// done, it should return ctx.Err() rather than continuing to do work.
type Tool interface {
	Definition() protocol.Tool
	Execute(ctx context.Context, args map[string]any) (*protocol.ToolResult, error)
}

// ResourceProvider owns every URI under one scheme. Subscribe/Unsubscribe are
// called by the registry only on the first and last observer of a given uri
// respectively; the provider never has to track observer counts itself.
type ResourceProvider interface {
	Scheme() string
	List(ctx context.Context) ([]protocol.Resource, error)
	Read(ctx context.Context, uri string) (*protocol.ResourceContentPayload, error)

	// Subscribe starts watching uri, invoking onUpdate (with uri) whenever
	// its content changes, until Unsubscribe is called for the same uri.
	Subscribe(uri string, onUpdate func(uri string)) error
	Unsubscribe(uri string) error
}

// Prompt is a named, parameterised prompt template.
type Prompt interface {
	Definition() protocol.Prompt
	Get(ctx context.Context, args map[string]string) (*protocol.PromptResult, error)
}

// ToolFunc adapts a plain function plus a static definition into a Tool.
type ToolFunc struct {
	Def protocol.Tool
	Run func(ctx context.Context, args map[string]any) (*protocol.ToolResult, error)
}

func (t ToolFunc) Definition() protocol.Tool { return t.Def }

func (t ToolFunc) Execute(ctx context.Context, args map[string]any) (*protocol.ToolResult, error) {
	return t.Run(ctx, args)
}
