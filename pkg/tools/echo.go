// Package tools hosts the demo tool catalogue wired into the default
// ToolRegistry: echo, calculator, datetime, and fetch_markdown (spec.md §8
// scenario 1's registration order).
package tools

import (
	"context"
	"fmt"

	"github.com/richard-senior/mcp/pkg/mcp"
	"github.com/richard-senior/mcp/pkg/protocol"
)

// Echo returns the input text unchanged, used to exercise the tools/call
// round trip without any side effects.
func Echo() mcp.Tool {
	return mcp.ToolFunc{
		Def: protocol.Tool{
			Name:        "echo",
			Description: "Returns the text argument unchanged. Useful for verifying the tools/call round trip.",
			InputSchema: protocol.InputSchema{
				Type: "object",
				Properties: map[string]protocol.SchemaProp{
					"text": {Type: "string", Description: "The text to echo back"},
				},
				Required: []string{"text"},
			},
		},
		Run: func(ctx context.Context, args map[string]any) (*protocol.ToolResult, error) {
			text, _ := args["text"].(string)
			if text == "" {
				return nil, fmt.Errorf("text parameter is required and must be a non-empty string")
			}
			return &protocol.ToolResult{Content: []protocol.ContentItem{protocol.TextContent(text)}}, nil
		},
	}
}
