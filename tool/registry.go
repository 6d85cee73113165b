package tool

import (
	"context"
	"fmt"
	"sort"

	"github.com/hupe1980/agentrelay/model"
)

// Source produces tools on demand. OpenAPI and MCP generators implement
// Source so the engine can assemble a fresh tool set per processing context.
type Source interface {
	Tools(ctx context.Context) ([]Tool, error)
}

// Registry is a keyed tool set assembled per processing context from the
// native registry, caller-supplied tools and generated API/MCP tools.
// Registration order is preserved for deterministic definition listings and
// suggestion output.
type Registry struct {
	tools map[string]Tool
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool)}
	for _, t := range tools {
		r.Add(t)
	}
	return r
}

// Add registers a tool, replacing any prior tool with the same key.
func (r *Registry) Add(t Tool) {
	if _, exists := r.tools[t.Key()]; !exists {
		r.order = append(r.order, t.Key())
	}
	r.tools[t.Key()] = t
}

// AddSource resolves a source and registers all of its tools.
func (r *Registry) AddSource(ctx context.Context, src Source) error {
	tools, err := src.Tools(ctx)
	if err != nil {
		return fmt.Errorf("resolve tool source: %w", err)
	}
	for _, t := range tools {
		r.Add(t)
	}
	return nil
}

// Get looks a tool up by exact key.
func (r *Registry) Get(key string) (Tool, bool) {
	t, ok := r.tools[key]
	return t, ok
}

// Keys returns all tool keys in registration order.
func (r *Registry) Keys() []string {
	keys := make([]string, len(r.order))
	copy(keys, r.order)
	return keys
}

// Len returns the number of registered tools.
func (r *Registry) Len() int { return len(r.tools) }

// Filter returns a new registry holding only tools whose key satisfies
// allow. Used to narrow the full tool set to an agent's allow-list.
func (r *Registry) Filter(allow func(key string) bool) *Registry {
	out := NewRegistry()
	for _, key := range r.order {
		if allow(key) {
			out.Add(r.tools[key])
		}
	}
	return out
}

// Definitions translates the registered tools into the function-schema
// format handed to chat connectors, sorted by key for stable output.
func (r *Registry) Definitions() []model.ToolDefinition {
	keys := r.Keys()
	sort.Strings(keys)
	defs := make([]model.ToolDefinition, 0, len(keys))
	for _, key := range keys {
		t := r.tools[key]
		params := t.InputSchema()
		if params == nil {
			params = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		defs = append(defs, model.ToolDefinition{
			Type: "function",
			Function: model.FunctionDefinition{
				Name:        t.Key(),
				Description: t.Description(),
				Parameters:  params,
			},
		})
	}
	return defs
}
