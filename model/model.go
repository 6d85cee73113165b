package model

import (
	"context"
	"fmt"
	"strings"
)

// ToolCall represents a function call request surfaced by a model provider.
// Unified across vendors so downstream logic does not need per-provider
// branching. Arguments is the raw JSON string exactly as the model emitted
// it; parsing and validation happen in the tool invocation pipeline.
type ToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type,omitempty"` // "function"
	Function ToolCallFunction `json:"function"`
}

// ToolCallFunction describes the concrete function target of a tool call.
type ToolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // JSON string of arguments
}

// ToolDefinition declaratively exposes a callable function to the model.
type ToolDefinition struct {
	Type     string             `json:"type"` // "function"
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes an individual function (tool) exposed to the
// model. Parameters is a JSON Schema object (minimal subset expected).
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ChatMessage is a single normalized conversation turn handed to a provider.
type ChatMessage struct {
	Role       string     `json:"role"` // "system", "user", "assistant", "tool"
	Name       string     `json:"name,omitempty"`
	Content    string     `json:"content"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
}

// ChatRequest captures the normalized connector input produced by the
// NEW_MESSAGE processor.
type ChatRequest struct {
	Messages []ChatMessage    `json:"messages"`
	Tools    []ToolDefinition `json:"tools,omitempty"`
}

// ChatResponse is the terminal result of one connector call. Answer and
// ToolCalls may both be empty (a silent no-op turn), or both be present.
type ChatResponse struct {
	Answer    string     `json:"answer,omitempty"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// Config selects the provider and generation parameters for one agent.
type Config struct {
	Provider    string  `json:"provider,omitempty" yaml:"provider,omitempty"`
	Model       string  `json:"model,omitempty" yaml:"model,omitempty"`
	Temperature float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	MaxTokens   int64   `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
}

// StreamFunc receives completion tokens as they arrive. A nil StreamFunc
// disables streaming. Tokens are delivery-only: they are never persisted.
type StreamFunc func(token string)

// Info contains metadata about a connector implementation.
type Info struct {
	Provider      string `json:"provider"`
	SupportsTools bool   `json:"supports_tools"`
}

// Connector is the minimal interface the LLM_CALL processor drives. The call
// blocks until the provider returns a terminal response; streaming tokens, if
// requested via stream, are forwarded before Chat returns.
type Connector interface {
	Chat(ctx context.Context, req ChatRequest, cfg Config, stream StreamFunc) (*ChatResponse, error)

	// Info returns information about the connector implementation.
	Info() Info
}

// MockConnector is a lightweight in-memory Connector useful for tests and
// examples. Canned answers are matched against the last message's content;
// canned tool calls against the substring they were registered for.
type MockConnector struct {
	answers   map[string]string
	toolCalls map[string][]ToolCall
}

// NewMockConnector constructs a MockConnector with tool support enabled.
func NewMockConnector() *MockConnector {
	return &MockConnector{
		answers:   make(map[string]string),
		toolCalls: make(map[string][]ToolCall),
	}
}

// AddAnswer registers a deterministic canned completion for an input prompt.
func (m *MockConnector) AddAnswer(prompt, answer string) { m.answers[prompt] = answer }

// AddToolCalls registers canned tool calls returned when the last message
// contains the given substring.
func (m *MockConnector) AddToolCalls(contains string, calls ...ToolCall) {
	m.toolCalls[contains] = calls
}

// Chat implements Connector; streams the answer character-wise when stream is
// supplied, then returns the terminal response.
func (m *MockConnector) Chat(ctx context.Context, req ChatRequest, _ Config, stream StreamFunc) (*ChatResponse, error) {
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("no messages provided")
	}
	last := req.Messages[len(req.Messages)-1].Content

	for contains, calls := range m.toolCalls {
		if strings.Contains(last, contains) {
			return &ChatResponse{ToolCalls: calls}, nil
		}
	}

	answer := m.answers[last]
	if answer == "" {
		answer = fmt.Sprintf("Mock response to: %s", last)
	}
	if stream != nil {
		for _, r := range answer {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
				stream(string(r))
			}
		}
	}
	return &ChatResponse{Answer: answer}, nil
}

// Info implements Connector.
func (m *MockConnector) Info() Info { return Info{Provider: "mock", SupportsTools: true} }
