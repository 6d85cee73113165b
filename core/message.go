package core

import (
	"time"

	"github.com/hupe1980/agentrelay/model"
)

// SenderType classifies the originator of a message.
type SenderType string

const (
	// SenderAgent marks a message authored by a configured agent.
	SenderAgent SenderType = "agent"
	// SenderUser marks a message authored by an external user.
	SenderUser SenderType = "user"
	// SenderTool marks a message carrying a tool execution result.
	SenderTool SenderType = "tool"
	// SenderSystem marks an orchestrator-injected message.
	SenderSystem SenderType = "system"
)

// Message is a durable transcript row. ToolCallID links a tool-result message
// back to the model-emitted call it answers; ToolCalls carries the raw calls
// attached to an agent turn.
type Message struct {
	ID         string           `json:"id"`
	ThreadID   string           `json:"thread_id"`
	SenderID   string           `json:"sender_id"`
	SenderType SenderType       `json:"sender_type"`
	Content    string           `json:"content"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
	ToolCalls  []model.ToolCall `json:"tool_calls,omitempty"`
	Metadata   map[string]any   `json:"metadata,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
}

// NewMessage creates a transcript row from a NEW_MESSAGE payload.
func NewMessage(threadID string, p NewMessagePayload) Message {
	return Message{
		ID:         NewID(),
		ThreadID:   threadID,
		SenderID:   p.SenderID,
		SenderType: p.SenderType,
		Content:    p.Content,
		ToolCallID: p.ToolCallID,
		ToolCalls:  p.ToolCalls,
		Metadata:   p.Metadata,
		CreatedAt:  time.Now().UTC(),
	}
}
