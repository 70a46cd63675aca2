package protocol

import (
	"encoding/json"
	"fmt"
)

// ContentItem is a tagged variant: a text block, an inline base64 image, or a
// reference to a resource by URI. Only the fields for Type are populated.
type ContentItem struct {
	Type string `json:"type"`

	// Text is set when Type == "text".
	Text string `json:"text,omitempty"`

	// Data is base64-encoded image bytes, set when Type == "image".
	Data     string `json:"data,omitempty"`
	MimeType string `json:"mimeType,omitempty"`

	// URI is set when Type == "resource".
	URI string `json:"uri,omitempty"`
}

// TextContent builds a {type:"text"} content item.
func TextContent(text string) ContentItem { return ContentItem{Type: "text", Text: text} }

// ImageContent builds a {type:"image"} content item. data must already be
// base64-encoded.
func ImageContent(data, mimeType string) ContentItem {
	return ContentItem{Type: "image", Data: data, MimeType: mimeType}
}

// ResourceContent builds a {type:"resource"} content item referencing uri.
func ResourceContent(uri string) ContentItem { return ContentItem{Type: "resource", URI: uri} }

// Validate rejects malformed variants before they reach the wire.
func (c ContentItem) Validate() error {
	switch c.Type {
	case "text":
		if c.Text == "" {
			return fmt.Errorf("text content requires text")
		}
	case "image":
		if c.Data == "" || c.MimeType == "" {
			return fmt.Errorf("image content requires data and mimeType")
		}
	case "resource":
		if c.URI == "" {
			return fmt.Errorf("resource content requires uri")
		}
	default:
		return fmt.Errorf("unknown content type %q", c.Type)
	}
	return nil
}

// ToolResult is what a Tool.Execute call returns on success (or, with
// IsError set, on a handled domain failure reported as tool content rather
// than a JSON-RPC error).
type ToolResult struct {
	Content []ContentItem `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

// ErrorToolResult wraps a message as a single-item error result.
func ErrorToolResult(message string) *ToolResult {
	return &ToolResult{Content: []ContentItem{TextContent(message)}, IsError: true}
}

// InputSchema is the JSON-Schema-draft-07 subset this core understands:
// object type, flat or nested properties, required list.
type InputSchema struct {
	Type                 string                 `json:"type"`
	Properties           map[string]SchemaProp  `json:"properties,omitempty"`
	Required             []string               `json:"required,omitempty"`
	AdditionalProperties bool                   `json:"additionalProperties"`
	Extra                map[string]any         `json:"-"`
}

// SchemaProp describes one property within an InputSchema.
type SchemaProp struct {
	Type        string                `json:"type"`
	Description string                `json:"description,omitempty"`
	Enum        []string              `json:"enum,omitempty"`
	Items       *SchemaProp           `json:"items,omitempty"`
	Properties  map[string]SchemaProp `json:"properties,omitempty"`
	Required    []string              `json:"required,omitempty"`
}

// MarshalJSON merges Extra into the object so schema authors can attach
// vocabulary this struct doesn't model (e.g. "$schema") without losing it.
func (s InputSchema) MarshalJSON() ([]byte, error) {
	type alias InputSchema
	base, err := json.Marshal(alias(s))
	if err != nil {
		return nil, err
	}
	if len(s.Extra) == 0 {
		return base, nil
	}
	merged := map[string]any{}
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for k, v := range s.Extra {
		if _, exists := merged[k]; !exists {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

// Tool describes one callable tool: its declared schema, not its behaviour.
// Behaviour lives behind the mcp.Tool interface in package mcp.
type Tool struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	InputSchema InputSchema `json:"inputSchema"`
}

// Resource describes a resource's metadata, as returned by resources/list.
type Resource struct {
	URI         string `json:"uri"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

// ResourceContentPayload is the content returned by resources/read.
type ResourceContentPayload struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType,omitempty"`
	Text     string `json:"text,omitempty"`
	Blob     string `json:"blob,omitempty"`
}

// PromptArgument describes one named argument a prompt accepts.
type PromptArgument struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`
}

// Prompt describes a prompt template's metadata.
type Prompt struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Arguments   []PromptArgument `json:"arguments,omitempty"`
}

// PromptMessage is one message in a GetPrompt result.
type PromptMessage struct {
	Role    string      `json:"role"`
	Content ContentItem `json:"content"`
}

// PromptResult is what Prompt.Get returns.
type PromptResult struct {
	Description string          `json:"description,omitempty"`
	Messages    []PromptMessage `json:"messages"`
}

// Root describes one filesystem or URI root a client has exposed to the
// server.
type Root struct {
	URI  string `json:"uri"`
	Name string `json:"name,omitempty"`
}
