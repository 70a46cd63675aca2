package handlers

import (
	"context"
	"encoding/json"

	"github.com/richard-senior/mcp/internal/logger"
	"github.com/richard-senior/mcp/internal/session"
	"github.com/richard-senior/mcp/pkg/protocol"
)

// Initialize implements the "initialize" handler (spec.md §4.2, §4.10).
func (d *Deps) Initialize(ctx context.Context, connID string, raw json.RawMessage) (any, error) {
	var params InitializeParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, protocol.NewError(protocol.ErrInvalidParams, "Invalid params", err.Error())
	}

	negotiated, err := d.Negotiator.Negotiate(params.ProtocolVersion)
	if err != nil {
		return nil, protocol.NewError(protocol.ErrProtocolMismatch, "Unsupported protocol version", protocol.ProtocolMismatchData{
			Supported: d.Negotiator.Supported(),
			Requested: params.ProtocolVersion,
		})
	}

	conn, ok := d.Manager.Get(connID)
	if !ok {
		return nil, protocol.NewError(protocol.ErrInternal, "Internal error", "unknown connection")
	}
	info := session.ClientInfo{Name: params.ClientInfo.Name, Version: params.ClientInfo.Version}
	if !conn.MarkInitialized(info, params.Capabilities, negotiated) {
		return nil, protocol.NewError(protocol.ErrInvalidRequest, "Connection already initialized", nil)
	}
	logger.Info("connection initialized:", connID, info.Name, info.Version, negotiated)

	return InitializeResult{
		ProtocolVersion: negotiated,
		Capabilities: map[string]any{
			"tools":     map[string]any{"listChanged": true},
			"resources": map[string]any{"subscribe": true, "listChanged": true},
			"prompts":   map[string]any{"listChanged": true},
			"logging":   map[string]any{},
		},
		ServerInfo: d.ServerInfo,
	}, nil
}

// Ping implements the "ping" handler: a no-op liveness check.
func (d *Deps) Ping(ctx context.Context, connID string, raw json.RawMessage) (any, error) {
	return map[string]any{}, nil
}

// Cancel implements the "cancel" handler (spec.md §4.11, §8 scenario 5).
// Triggering cancellation for an unknown or already-completed request id is
// a documented no-op, not an error.
func (d *Deps) Cancel(ctx context.Context, connID string, raw json.RawMessage) (any, error) {
	var params CancelParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, protocol.NewError(protocol.ErrInvalidParams, "Invalid params", err.Error())
	}
	d.Cancellation.Trigger(connID, params.RequestID)
	return map[string]any{}, nil
}

// RootsListChanged implements "notifications/roots/list_changed" sent by a
// client announcing its roots; the params carry the full set, which replaces
// the stored list (see RootsSetParams).
func (d *Deps) RootsListChanged(ctx context.Context, connID string, raw json.RawMessage) (any, error) {
	var params RootsSetParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, protocol.NewError(protocol.ErrInvalidParams, "Invalid params", err.Error())
	}
	d.Roots.Set(params.Roots)
	return map[string]any{}, nil
}

// RootsList implements the "roots/list" handler.
func (d *Deps) RootsList(ctx context.Context, connID string, raw json.RawMessage) (any, error) {
	return map[string]any{"roots": d.Roots.List()}, nil
}

// LoggingSetLevel implements the "logging/setLevel" handler.
func (d *Deps) LoggingSetLevel(ctx context.Context, connID string, raw json.RawMessage) (any, error) {
	var params LoggingSetLevelParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, protocol.NewError(protocol.ErrInvalidParams, "Invalid params", err.Error())
	}
	logger.SetLevel(logger.LevelFromString(params.Level))
	return map[string]any{}, nil
}

// SamplingCreateMessage implements "sampling/createMessage". This core does
// not host a model to sample from; it reports the method as not implemented
// rather than silently accepting a request it can't fulfil. Hosts that wire
// in an LLM-backed sampler should replace this handler in app.Build.
func (d *Deps) SamplingCreateMessage(ctx context.Context, connID string, raw json.RawMessage) (any, error) {
	return nil, protocol.NewError(protocol.ErrMethodNotFound, "sampling/createMessage is not implemented by this server", nil)
}

// CompletionComplete implements "completion/complete". It decodes the params
// and returns an empty completion (no values, total 0, hasMore false) for
// every request; it computes no candidate values. Hosts that need completion
// wire a replacement in app.Build.
func (d *Deps) CompletionComplete(ctx context.Context, connID string, raw json.RawMessage) (any, error) {
	var params CompletionCompleteParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, protocol.NewError(protocol.ErrInvalidParams, "Invalid params", err.Error())
	}
	return map[string]any{
		"completion": map[string]any{
			"values":  []string{},
			"total":   0,
			"hasMore": false,
		},
	}, nil
}
