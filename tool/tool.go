// Package tool implements the tool calling subsystem that lets agents invoke
// structured capabilities (native functions, OpenAPI-described HTTP
// endpoints, MCP servers) behind a single execution contract with schema
// validated arguments, typo detection and remediation-oriented diagnostics.
package tool

import (
	"context"
	"fmt"

	"github.com/hupe1980/agentrelay/logging"
)

// Tool is the single capability contract shared by native functions,
// OpenAPI-generated HTTP calls and MCP-protocol calls. The orchestration
// core depends only on this interface.
//
// Tool implementations should:
//   - Provide unique keys (snake_case recommended) and clear descriptions
//   - Declare a JSON Schema for their input; an empty/absent schema, or an
//     object schema without required properties, accepts any input
//   - Handle errors by returning them; the invocation pipeline converts
//     errors and panics into structured diagnostics
//   - Be safe for concurrent use
type Tool interface {
	// Key returns the unique identifier used in function call declarations
	// and allow-lists.
	Key() string

	// Name returns the display name of the tool.
	Name() string

	// Description returns a human-readable description provided to the LLM
	// to help it decide when and how to use the tool.
	Description() string

	// InputSchema returns a JSON Schema describing the expected arguments.
	InputSchema() map[string]any

	// Execute runs the tool with parsed, schema-validated arguments.
	Execute(ctx context.Context, tc *Context, args map[string]any) (any, error)
}

// Context carries per-invocation state into a tool execution. Tools are
// constructed fresh per processing context; the core holds no reference
// beyond one event's processing.
type Context struct {
	ThreadID  string
	AgentID   string
	AgentName string
	CallID    string
	Metadata  map[string]any

	logger logging.Logger
}

// NewContext creates a tool execution context. A nil logger defaults to the
// no-op logger.
func NewContext(threadID, agentID, agentName, callID string, logger logging.Logger) *Context {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Context{
		ThreadID:  threadID,
		AgentID:   agentID,
		AgentName: agentName,
		CallID:    callID,
		logger:    logger,
	}
}

// Logger returns the context logger.
func (c *Context) Logger() logging.Logger { return c.logger }

// Error represents a failure during tool execution with a stable code for
// categorization.
type Error struct {
	Tool    string `json:"tool"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewError creates a new Error with the specified details.
func NewError(tool, message, code string) *Error {
	return &Error{Tool: tool, Message: message, Code: code}
}
