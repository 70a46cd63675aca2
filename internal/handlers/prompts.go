package handlers

import (
	"context"
	"encoding/json"

	"github.com/richard-senior/mcp/internal/registry"
	"github.com/richard-senior/mcp/pkg/protocol"
)

// PromptsList implements the "prompts/list" handler (spec.md §4.7).
func (d *Deps) PromptsList(ctx context.Context, connID string, raw json.RawMessage) (any, error) {
	return map[string]any{"prompts": d.Prompts.List()}, nil
}

// PromptsGet implements the "prompts/get" handler.
func (d *Deps) PromptsGet(ctx context.Context, connID string, raw json.RawMessage) (any, error) {
	var params PromptsGetParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, protocol.NewError(protocol.ErrInvalidParams, "Invalid params", err.Error())
	}
	prompt, ok := d.Prompts.Get(params.Name)
	if !ok {
		return nil, protocol.NewError(protocol.ErrPromptNotFound, "Prompt not found", params.Name)
	}
	if err := registry.RequireArguments(prompt.Definition(), params.Arguments); err != nil {
		return nil, protocol.NewError(protocol.ErrInvalidParams, err.Error(), nil)
	}
	result, err := prompt.Get(ctx, params.Arguments)
	if err != nil {
		return nil, protocol.Wrap(protocol.ErrInternal, err, nil)
	}
	return result, nil
}
