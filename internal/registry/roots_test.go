package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/richard-senior/mcp/pkg/protocol"
)

func TestRootRegistrySetReplacesAndIsolatesSnapshot(t *testing.T) {
	reg := NewRootRegistry()
	assert.Empty(t, reg.List())

	roots := []protocol.Root{{URI: "file:///a"}, {URI: "file:///b"}}
	reg.Set(roots)

	got := reg.List()
	assert.Equal(t, roots, got)

	// Mutating the slice passed to Set, or the slice returned by List, must
	// not reach back into the registry's internal state.
	roots[0].URI = "file:///mutated"
	got[1].URI = "file:///mutated"
	assert.Equal(t, "file:///a", reg.List()[0].URI)
	assert.Equal(t, "file:///b", reg.List()[1].URI)

	reg.Set([]protocol.Root{{URI: "file:///c"}})
	assert.Equal(t, []protocol.Root{{URI: "file:///c"}}, reg.List())
}
