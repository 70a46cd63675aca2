package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richard-senior/mcp/internal/validation"
	"github.com/richard-senior/mcp/pkg/mcp"
	"github.com/richard-senior/mcp/pkg/protocol"
)

func fakeTool(name string) mcp.ToolFunc {
	return mcp.ToolFunc{
		Def: protocol.Tool{
			Name: name,
			InputSchema: protocol.InputSchema{
				Type: "object",
				Properties: map[string]protocol.SchemaProp{
					"value": {Type: "string"},
				},
				Required: []string{"value"},
			},
		},
		Run: func(ctx context.Context, args map[string]any) (*protocol.ToolResult, error) {
			return &protocol.ToolResult{Content: []protocol.ContentItem{protocol.TextContent("ok")}}, nil
		},
	}
}

func TestToolRegistryRegisterAndList(t *testing.T) {
	var changed int
	reg := NewToolRegistry(func() { changed++ })

	require.NoError(t, reg.Register(fakeTool("echo")))
	require.NoError(t, reg.Register(fakeTool("calculator")))
	assert.Equal(t, 2, changed)

	names := make([]string, 0, 2)
	for _, def := range reg.List() {
		names = append(names, def.Name)
	}
	assert.Equal(t, []string{"echo", "calculator"}, names)

	err := reg.Register(fakeTool("echo"))
	assert.Error(t, err)
}

func TestToolRegistryUnregister(t *testing.T) {
	reg := NewToolRegistry(nil)
	require.NoError(t, reg.Register(fakeTool("echo")))
	require.NoError(t, reg.Unregister("echo"))

	_, ok := reg.Get("echo")
	assert.False(t, ok)
	assert.Error(t, reg.Unregister("echo"))
}

func TestValidatedToolWrapperRejectsBadArguments(t *testing.T) {
	v := validation.New(validation.Strict)
	w := &ValidatedToolWrapper{Inner: fakeTool("echo"), Validator: v}

	_, err := w.Execute(context.Background(), map[string]any{})
	require.Error(t, err)
	var argErr *ArgumentValidationError
	require.ErrorAs(t, err, &argErr)
	require.Len(t, argErr.Findings, 1)
	assert.Equal(t, "value", argErr.Findings[0].Path)
}

func TestValidatedToolWrapperDelegatesOnValidArguments(t *testing.T) {
	v := validation.New(validation.Strict)
	w := &ValidatedToolWrapper{Inner: fakeTool("echo"), Validator: v}

	result, err := w.Execute(context.Background(), map[string]any{"value": "hi"})
	require.NoError(t, err)
	require.Len(t, result.Content, 1)
}
