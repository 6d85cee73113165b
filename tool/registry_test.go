package tool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSource struct{ tools []Tool }

func (s staticSource) Tools(context.Context) ([]Tool, error) { return s.tools, nil }

func TestRegistry_AddAndReplace(t *testing.T) {
	reg := NewRegistry()
	reg.Add(newEchoTool("a", nil))
	reg.Add(newEchoTool("b", nil))
	reg.Add(newEchoTool("a", nil)) // replace keeps position

	assert.Equal(t, []string{"a", "b"}, reg.Keys())
	assert.Equal(t, 2, reg.Len())
}

func TestRegistry_AddSource(t *testing.T) {
	reg := NewRegistry(newEchoTool("native", nil))

	err := reg.AddSource(context.Background(), staticSource{tools: []Tool{newEchoTool("remote", nil)}})
	require.NoError(t, err)

	_, ok := reg.Get("remote")
	assert.True(t, ok)
	assert.Equal(t, []string{"native", "remote"}, reg.Keys())
}

func TestRegistry_Filter(t *testing.T) {
	reg := NewRegistry(newEchoTool("a", nil), newEchoTool("b", nil), newEchoTool("c", nil))

	allowed := reg.Filter(func(key string) bool { return key != "b" })

	assert.Equal(t, []string{"a", "c"}, allowed.Keys())
	// The original is untouched.
	assert.Equal(t, 3, reg.Len())
}

func TestRegistry_DefinitionsSortedWithDefaultSchema(t *testing.T) {
	reg := NewRegistry(newEchoTool("zeta", nil), newEchoTool("alpha", nil))

	defs := reg.Definitions()
	require.Len(t, defs, 2)

	assert.Equal(t, "alpha", defs[0].Function.Name)
	assert.Equal(t, "zeta", defs[1].Function.Name)
	assert.Equal(t, "function", defs[0].Type)
	// nil schema is normalized to an empty object schema.
	assert.Equal(t, "object", defs[0].Function.Parameters["type"])
}
