package tool

import (
	"context"

	"github.com/hupe1980/agentrelay/internal/util"
)

// FunctionTool is a generic adapter that exposes a plain Go function as an
// agentrelay tool. It has no internal mutable state after construction and is
// safe for concurrent use.
//
// The invocation pipeline validates arguments against the declared schema
// before Execute is called, so the wrapped function can rely on required
// fields being present and correctly typed.
type FunctionTool struct {
	key         string
	name        string
	description string
	inputSchema map[string]any
	fn          func(ctx context.Context, tc *Context, args map[string]any) (any, error)
}

// NewFunctionTool constructs a FunctionTool from an explicit schema and
// function.
//
// Example:
//
//	sumTool := NewFunctionTool(
//	  "calculate_sum",
//	  "Calculate the sum of two numbers",
//	  map[string]any{
//	    "type": "object",
//	    "properties": map[string]any{
//	      "a": map[string]any{"type": "number"},
//	      "b": map[string]any{"type": "number"},
//	    },
//	    "required": []string{"a", "b"},
//	  },
//	  func(ctx context.Context, tc *Context, args map[string]any) (any, error) {
//	    return args["a"].(float64) + args["b"].(float64), nil
//	  },
//	)
func NewFunctionTool(
	key, description string,
	inputSchema map[string]any,
	fn func(ctx context.Context, tc *Context, args map[string]any) (any, error),
) *FunctionTool {
	return &FunctionTool{
		key:         key,
		name:        key,
		description: description,
		inputSchema: inputSchema,
		fn:          fn,
	}
}

// NewFunctionToolFromStruct derives the input schema from a struct using
// reflection. It is a convenience for simple argument containers.
//
// Example:
//
//	type SumArgs struct {
//	  A float64 `json:"a" description:"First addend"`
//	  B float64 `json:"b" description:"Second addend"`
//	}
//
//	sumTool := NewFunctionToolFromStruct("calculate_sum",
//	  "Calculate the sum of two numbers", SumArgs{}, fn)
func NewFunctionToolFromStruct(
	key, description string,
	structType any,
	fn func(ctx context.Context, tc *Context, args map[string]any) (any, error),
) *FunctionTool {
	return NewFunctionTool(key, description, util.CreateSchema(structType), fn)
}

// Key returns the unique tool key used in call declarations and routing.
func (t *FunctionTool) Key() string { return t.key }

// Name returns the tool display name.
func (t *FunctionTool) Name() string { return t.name }

// Description returns the natural language description exposed to models.
func (t *FunctionTool) Description() string { return t.description }

// InputSchema returns the JSON Schema describing expected arguments.
func (t *FunctionTool) InputSchema() map[string]any { return t.inputSchema }

// Execute invokes the wrapped function.
func (t *FunctionTool) Execute(ctx context.Context, tc *Context, args map[string]any) (any, error) {
	return t.fn(ctx, tc, args)
}
