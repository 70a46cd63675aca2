// Package handlers implements the dispatch-table entries named in spec.md
// §9's handler sum type: one function per JSON-RPC method, registered into
// a router.Router by app.Build.
package handlers

import (
	"encoding/json"
	"fmt"

	"github.com/richard-senior/mcp/pkg/protocol"
)

// InitializeParams is the params object of the "initialize" request.
type InitializeParams struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    map[string]any `json:"capabilities"`
	ClientInfo      struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"clientInfo"`
}

// InitializeResult is the result object of "initialize".
type InitializeResult struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    map[string]any `json:"capabilities"`
	ServerInfo      ServerInfo     `json:"serverInfo"`
}

// ServerInfo identifies this server implementation to the client.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// CancelParams is the params object of the "cancel" notification/request.
type CancelParams struct {
	RequestID json.RawMessage `json:"requestId"`
	Reason    string          `json:"reason,omitempty"`
}

// ToolsCallParams is the params object of "tools/call".
type ToolsCallParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
	Meta      *RequestMeta   `json:"_meta,omitempty"`
}

// RequestMeta carries the progress token a caller wants progress reports
// delivered against (spec.md §4.11).
type RequestMeta struct {
	ProgressToken string `json:"progressToken,omitempty"`
}

// ResourcesReadParams is the params object of "resources/read".
type ResourcesReadParams struct {
	URI string `json:"uri"`
}

// ResourcesSubscribeParams is shared by "resources/subscribe" and
// "resources/unsubscribe".
type ResourcesSubscribeParams struct {
	URI string `json:"uri"`
}

// PromptsGetParams is the params object of "prompts/get".
type PromptsGetParams struct {
	Name      string            `json:"name"`
	Arguments map[string]string `json:"arguments,omitempty"`
}

// LoggingSetLevelParams is the params object of "logging/setLevel".
type LoggingSetLevelParams struct {
	Level string `json:"level"`
}

// CompletionCompleteParams is the params object of "completion/complete".
type CompletionCompleteParams struct {
	Ref      map[string]any `json:"ref"`
	Argument struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	} `json:"argument"`
}

// RootsSetParams carries the roots a client declares. This core accepts them
// only through a client->server "notifications/roots/list_changed"
// notification carrying the full list; initialize does not read roots and the
// server makes no "roots/list" call of its own.
type RootsSetParams struct {
	Roots []protocol.Root `json:"roots"`
}

func decodeParams(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("invalid params: %w", err)
	}
	return nil
}
