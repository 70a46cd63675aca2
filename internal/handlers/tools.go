package handlers

import (
	"context"
	"encoding/json"

	"github.com/richard-senior/mcp/internal/registry"
	"github.com/richard-senior/mcp/pkg/protocol"
)

// ToolsList implements the "tools/list" handler (spec.md §4.5, §8 scenario 1).
func (d *Deps) ToolsList(ctx context.Context, connID string, raw json.RawMessage) (any, error) {
	return map[string]any{"tools": d.Tools.List()}, nil
}

// ToolsCall implements the "tools/call" handler, driving progress reporting
// when the caller supplied a progress token (spec.md §4.11).
func (d *Deps) ToolsCall(ctx context.Context, connID string, raw json.RawMessage) (any, error) {
	var params ToolsCallParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, protocol.NewError(protocol.ErrInvalidParams, "Invalid params", err.Error())
	}
	tool, ok := d.Tools.Get(params.Name)
	if !ok {
		return nil, protocol.NewError(protocol.ErrToolNotFound, "Tool not found", params.Name)
	}

	var token string
	if params.Meta != nil {
		token = params.Meta.ProgressToken
	}
	if token != "" {
		d.Progress.Begin(connID, token)
		defer d.Progress.End(token)
	}

	result, err := tool.Execute(ctx, params.Arguments)
	if err != nil {
		if verr, ok := err.(*registry.ArgumentValidationError); ok {
			return nil, protocol.NewError(protocol.ErrInvalidParams, "Invalid tool arguments", verr.Findings)
		}
		return nil, protocol.Wrap(protocol.ErrToolExecutionError, err, nil)
	}
	return result, nil
}
