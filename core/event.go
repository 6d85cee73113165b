package core

import (
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/agentrelay/model"
)

// EventType discriminates the payload carried by an Event.
type EventType string

const (
	// EventNewMessage carries an inbound or agent-produced message that must
	// be persisted and routed.
	EventNewMessage EventType = "NEW_MESSAGE"
	// EventLLMCall carries a fully assembled request for the chat connector.
	EventLLMCall EventType = "LLM_CALL"
	// EventToolCall carries a single tool invocation on behalf of an agent.
	EventToolCall EventType = "TOOL_CALL"
	// EventToken is an ephemeral streaming fragment. Token events are
	// forwarded via callbacks only and must never be enqueued; storage
	// implementations reject them with ErrEphemeralEvent.
	EventToken EventType = "TOKEN"
)

// EventStatus tracks the lifecycle of a queued event. Transitions are
// strictly pending -> processing -> {completed | failed | overwritten};
// terminal rows are never mutated again.
type EventStatus string

const (
	// StatusPending marks an event waiting to be picked up by the worker.
	StatusPending EventStatus = "pending"
	// StatusProcessing marks the single event a worker is currently handling.
	StatusProcessing EventStatus = "processing"
	// StatusCompleted marks an event fully handled by a processor.
	StatusCompleted EventStatus = "completed"
	// StatusFailed marks an event whose processing raised an unrecoverable
	// error; the thread's drain loop fail-stops at this point.
	StatusFailed EventStatus = "failed"
	// StatusOverwritten marks an event whose outcome was replaced by a
	// caller-supplied OnEvent override.
	StatusOverwritten EventStatus = "overwritten"
)

// ValidTransition reports whether a status change is allowed by the event
// lifecycle. Terminal statuses accept no further transitions.
func ValidTransition(from, to EventStatus) bool {
	switch from {
	case StatusPending:
		return to == StatusProcessing
	case StatusProcessing:
		return to == StatusCompleted || to == StatusFailed || to == StatusOverwritten
	default:
		return false
	}
}

// Event is a persisted unit of work in a thread's queue. After creation only
// Status and UpdatedAt change, and only through Storage.UpdateQueueItemStatus.
//
// Priority orders the queue: higher values drain first, ties break by
// CreatedAt ascending then ID ascending, giving a strict total order so
// replays are deterministic. TTLMs/ExpiresAt are carried but not enforced by
// the worker; see ExpiryPolicy for the extension seam.
type Event struct {
	ID            string         `json:"id"`
	ThreadID      string         `json:"thread_id"`
	Type          EventType      `json:"type"`
	Payload       any            `json:"payload,omitempty"`
	ParentEventID string         `json:"parent_event_id,omitempty"`
	TraceID       string         `json:"trace_id,omitempty"`
	Priority      int            `json:"priority"`
	Status        EventStatus    `json:"status"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	TTLMs         int64          `json:"ttl_ms,omitempty"`
	ExpiresAt     *time.Time     `json:"expires_at,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// NewMessagePayload is the payload of a NEW_MESSAGE event.
type NewMessagePayload struct {
	SenderID   string           `json:"sender_id"`
	SenderType SenderType       `json:"sender_type"`
	Content    string           `json:"content"`
	ToolCalls  []model.ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
	Metadata   map[string]any   `json:"metadata,omitempty"`
}

// LLMCallPayload is the payload of an LLM_CALL event: a fully assembled chat
// connector request bound to the agent that will answer.
type LLMCallPayload struct {
	AgentID   string                 `json:"agent_id"`
	AgentName string                 `json:"agent_name"`
	Messages  []model.ChatMessage    `json:"messages"`
	Tools     []model.ToolDefinition `json:"tools,omitempty"`
	Config    model.Config           `json:"config"`
}

// ToolCallPayload is the payload of a TOOL_CALL event: one raw tool call as
// emitted by the model, plus the identity of the requesting agent so the
// result can be routed back.
type ToolCallPayload struct {
	AgentID    string         `json:"agent_id"`
	AgentName  string         `json:"agent_name"`
	SenderID   string         `json:"sender_id"`
	SenderType SenderType     `json:"sender_type"`
	Call       model.ToolCall `json:"call"`
}

// NewEvent creates a pending event bound to a thread. Prefer the typed
// constructors below for the three concrete payload kinds.
func NewEvent(threadID string, typ EventType) Event {
	now := time.Now().UTC()
	return Event{
		ID:        NewID(),
		ThreadID:  threadID,
		Type:      typ,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewMessageEvent creates a pending NEW_MESSAGE event with a fresh trace id
// when none is supplied. It is the entry point used by external callers to
// start a conversation turn.
func NewMessageEvent(threadID string, payload NewMessagePayload) Event {
	e := NewEvent(threadID, EventNewMessage)
	e.TraceID = NewID()
	e.Payload = &payload
	return e
}

// NewLLMCallEvent creates a pending LLM_CALL event descending from parent.
// Trace id and priority are inherited so the whole cascade of one turn stays
// correlated and ordered.
func NewLLMCallEvent(parent Event, payload LLMCallPayload) Event {
	e := NewEvent(parent.ThreadID, EventLLMCall)
	e.ParentEventID = parent.ID
	e.TraceID = parent.TraceID
	e.Priority = parent.Priority
	e.Payload = &payload
	return e
}

// NewToolCallEvent creates a pending TOOL_CALL event descending from parent.
func NewToolCallEvent(parent Event, payload ToolCallPayload) Event {
	e := NewEvent(parent.ThreadID, EventToolCall)
	e.ParentEventID = parent.ID
	e.TraceID = parent.TraceID
	e.Priority = parent.Priority
	e.Payload = &payload
	return e
}

// ChildMessageEvent creates a pending NEW_MESSAGE event descending from
// parent, carrying an agent reply or a tool result back into the routing
// loop. Unlike NewMessageEvent it inherits the parent's trace id.
func ChildMessageEvent(parent Event, payload NewMessagePayload) Event {
	e := NewEvent(parent.ThreadID, EventNewMessage)
	e.ParentEventID = parent.ID
	e.TraceID = parent.TraceID
	e.Priority = parent.Priority
	e.Payload = &payload
	return e
}

// NewMessage returns the typed payload of a NEW_MESSAGE event, or nil when
// the event is of another type or carries a foreign payload.
func (e Event) NewMessage() *NewMessagePayload {
	p, _ := e.Payload.(*NewMessagePayload)
	return p
}

// LLMCall returns the typed payload of an LLM_CALL event, or nil.
func (e Event) LLMCall() *LLMCallPayload {
	p, _ := e.Payload.(*LLMCallPayload)
	return p
}

// ToolCall returns the typed payload of a TOOL_CALL event, or nil.
func (e Event) ToolCall() *ToolCallPayload {
	p, _ := e.Payload.(*ToolCallPayload)
	return p
}

// IsTerminal reports whether the event reached a terminal status.
func (e Event) IsTerminal() bool {
	return e.Status == StatusCompleted || e.Status == StatusFailed || e.Status == StatusOverwritten
}

// NewID generates a new unique identifier for events, messages and traces.
func NewID() string { return uuid.NewString() }
