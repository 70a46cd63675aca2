package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richard-senior/mcp/pkg/mcp"
	"github.com/richard-senior/mcp/pkg/protocol"
)

type fakePrompt struct {
	def protocol.Prompt
}

func (p fakePrompt) Definition() protocol.Prompt { return p.def }

func (p fakePrompt) Get(ctx context.Context, args map[string]string) (*protocol.PromptResult, error) {
	if err := RequireArguments(p.def, args); err != nil {
		return nil, err
	}
	return &protocol.PromptResult{}, nil
}

func TestPromptRegistryRegisterListAndChanged(t *testing.T) {
	var changed int
	reg := NewPromptRegistry(func() { changed++ })

	greet := fakePrompt{def: protocol.Prompt{
		Name:      "greet",
		Arguments: []protocol.PromptArgument{{Name: "who", Required: true}},
	}}
	require.NoError(t, reg.Register(mcp.Prompt(greet)))
	assert.Equal(t, 1, changed)

	got, ok := reg.Get("greet")
	require.True(t, ok)
	assert.Equal(t, "greet", got.Definition().Name)

	names := make([]string, 0, 1)
	for _, def := range reg.List() {
		names = append(names, def.Name)
	}
	assert.Equal(t, []string{"greet"}, names)
}

func TestRequireArgumentsReportsFirstMissing(t *testing.T) {
	def := protocol.Prompt{
		Name: "greet",
		Arguments: []protocol.PromptArgument{
			{Name: "who", Required: true},
			{Name: "tone", Required: false},
		},
	}

	err := RequireArguments(def, map[string]string{})
	require.Error(t, err)
	var missing *MissingArgumentError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "who", missing.Argument)

	assert.NoError(t, RequireArguments(def, map[string]string{"who": "world"}))
}
