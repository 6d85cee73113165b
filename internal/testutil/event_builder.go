package testutil

import (
	"time"

	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/model"
)

// EventBuilder provides a fluent helper for constructing queue events in
// tests. Example:
//
//	ev := NewEventBuilder("thread-1").From("user-1", core.SenderUser).Content("hi @Bob").Build()
//
// Chain only the parts you need; sensible defaults are applied.
type EventBuilder struct {
	threadID   string
	id         string
	traceID    string
	priority   int
	createdAt  time.Time
	senderID   string
	senderType core.SenderType
	content    string
	toolCallID string
	toolCalls  []model.ToolCall
	metadata   map[string]any
}

// NewEventBuilder creates a builder for a NEW_MESSAGE event on the thread.
func NewEventBuilder(threadID string) *EventBuilder {
	return &EventBuilder{
		threadID:   threadID,
		senderID:   "user-1",
		senderType: core.SenderUser,
		createdAt:  time.Now().UTC(),
	}
}

// ID overrides the auto-generated event id (chainable). Use where tie-break
// determinism matters.
func (b *EventBuilder) ID(id string) *EventBuilder { b.id = id; return b }

// Trace sets the trace id (chainable).
func (b *EventBuilder) Trace(id string) *EventBuilder { b.traceID = id; return b }

// Priority sets the queue priority (chainable).
func (b *EventBuilder) Priority(p int) *EventBuilder { b.priority = p; return b }

// CreatedAt pins the creation timestamp (chainable).
func (b *EventBuilder) CreatedAt(t time.Time) *EventBuilder { b.createdAt = t; return b }

// From sets the sender identity (chainable).
func (b *EventBuilder) From(id string, t core.SenderType) *EventBuilder {
	b.senderID = id
	b.senderType = t
	return b
}

// Content sets the message body (chainable).
func (b *EventBuilder) Content(c string) *EventBuilder { b.content = c; return b }

// ToolResult marks the message as a tool result answering callID (chainable).
func (b *EventBuilder) ToolResult(callID string) *EventBuilder {
	b.senderType = core.SenderTool
	b.toolCallID = callID
	return b
}

// ToolCalls attaches raw model tool calls to the message (chainable).
func (b *EventBuilder) ToolCalls(calls ...model.ToolCall) *EventBuilder {
	b.toolCalls = append(b.toolCalls, calls...)
	return b
}

// Meta sets one metadata key (chainable).
func (b *EventBuilder) Meta(key string, value any) *EventBuilder {
	if b.metadata == nil {
		b.metadata = make(map[string]any)
	}
	b.metadata[key] = value
	return b
}

// Build assembles the NEW_MESSAGE event.
func (b *EventBuilder) Build() core.Event {
	ev := core.NewMessageEvent(b.threadID, core.NewMessagePayload{
		SenderID:   b.senderID,
		SenderType: b.senderType,
		Content:    b.content,
		ToolCallID: b.toolCallID,
		ToolCalls:  b.toolCalls,
		Metadata:   b.metadata,
	})

	if b.id != "" {
		ev.ID = b.id
	}

	if b.traceID != "" {
		ev.TraceID = b.traceID
	}

	ev.Priority = b.priority
	ev.CreatedAt = b.createdAt
	ev.UpdatedAt = b.createdAt

	return ev
}
