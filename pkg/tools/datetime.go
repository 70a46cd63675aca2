package tools

import (
	"context"
	"time"

	"github.com/richard-senior/mcp/pkg/mcp"
	"github.com/richard-senior/mcp/pkg/protocol"
)

// DateTime returns the current date and time, formatted per the optional
// "format" argument. Adapted from the teacher's HandleDateTimeTool into an
// mcp.Tool closure returning structured ToolResult content instead of a
// bare map.
func DateTime() mcp.Tool {
	return mcp.ToolFunc{
		Def: protocol.Tool{
			Name:        "datetime",
			Description: "Returns the current date and time",
			InputSchema: protocol.InputSchema{
				Type: "object",
				Properties: map[string]protocol.SchemaProp{
					"format": {
						Type:        "string",
						Description: "The format of the datetime to be returned such as 2006-01-02T15:04:05Z07:00",
					},
				},
				Required: []string{},
			},
		},
		Run: func(ctx context.Context, args map[string]any) (*protocol.ToolResult, error) {
			format := time.RFC3339
			if f, ok := args["format"].(string); ok && f != "" {
				format = f
			}
			return &protocol.ToolResult{Content: []protocol.ContentItem{
				protocol.TextContent(time.Now().Format(format)),
			}}, nil
		},
	}
}
