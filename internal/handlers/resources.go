package handlers

import (
	"context"
	"encoding/json"

	"github.com/richard-senior/mcp/pkg/protocol"
)

// ResourcesList implements the "resources/list" handler (spec.md §4.6).
func (d *Deps) ResourcesList(ctx context.Context, connID string, raw json.RawMessage) (any, error) {
	list, err := d.Resources.List(ctx)
	if err != nil {
		return nil, protocol.Wrap(protocol.ErrResourceAccess, err, nil)
	}
	return map[string]any{"resources": list}, nil
}

// ResourcesRead implements the "resources/read" handler.
func (d *Deps) ResourcesRead(ctx context.Context, connID string, raw json.RawMessage) (any, error) {
	var params ResourcesReadParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, protocol.NewError(protocol.ErrInvalidParams, "Invalid params", err.Error())
	}
	payload, err := d.Resources.Read(ctx, params.URI)
	if err != nil {
		return nil, protocol.NewError(protocol.ErrResourceNotFound, "Resource not found", params.URI)
	}
	return map[string]any{"contents": []protocol.ResourceContentPayload{*payload}}, nil
}

// ResourcesSubscribe implements the "resources/subscribe" handler (spec.md
// §8 scenario 7).
func (d *Deps) ResourcesSubscribe(ctx context.Context, connID string, raw json.RawMessage) (any, error) {
	var params ResourcesSubscribeParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, protocol.NewError(protocol.ErrInvalidParams, "Invalid params", err.Error())
	}
	if err := d.Resources.Subscribe(connID, params.URI); err != nil {
		return nil, protocol.NewError(protocol.ErrResourceNotFound, "Resource not found", params.URI)
	}
	return map[string]any{}, nil
}

// ResourcesUnsubscribe implements the "resources/unsubscribe" handler.
func (d *Deps) ResourcesUnsubscribe(ctx context.Context, connID string, raw json.RawMessage) (any, error) {
	var params ResourcesSubscribeParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, protocol.NewError(protocol.ErrInvalidParams, "Invalid params", err.Error())
	}
	if err := d.Resources.Unsubscribe(connID, params.URI); err != nil {
		return nil, protocol.NewError(protocol.ErrResourceNotFound, "No such subscription", params.URI)
	}
	return map[string]any{}, nil
}
