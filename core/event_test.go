package core

import (
	"testing"

	"github.com/hupe1980/agentrelay/model"
)

func TestEvent_ConstructorsAndAccessors(t *testing.T) {
	ev := NewMessageEvent("t1", NewMessagePayload{SenderID: "user-1", SenderType: SenderUser, Content: "hi"})
	if ev.ID == "" || ev.TraceID == "" || ev.ThreadID != "t1" || ev.Status != StatusPending {
		t.Fatalf("NewMessageEvent did not initialize fields correctly: %+v", ev)
	}
	if ev.NewMessage() == nil || ev.NewMessage().Content != "hi" {
		t.Fatalf("NewMessage accessor failed: %+v", ev.Payload)
	}
	if ev.LLMCall() != nil || ev.ToolCall() != nil {
		t.Fatal("foreign-payload accessors must return nil")
	}

	ev.Priority = 42
	llm := NewLLMCallEvent(ev, LLMCallPayload{AgentID: "a1", AgentName: "Alice"})
	if llm.TraceID != ev.TraceID || llm.ParentEventID != ev.ID || llm.Priority != 42 {
		t.Fatalf("LLM call event must inherit trace, parent and priority: %+v", llm)
	}

	tc := NewToolCallEvent(ev, ToolCallPayload{AgentID: "a1", Call: model.ToolCall{ID: "c1"}})
	if tc.Type != EventToolCall || tc.ToolCall().Call.ID != "c1" {
		t.Fatalf("tool call event malformed: %+v", tc)
	}

	child := ChildMessageEvent(ev, NewMessagePayload{SenderID: "a1", SenderType: SenderAgent})
	if child.TraceID != ev.TraceID || child.Type != EventNewMessage {
		t.Fatalf("child message event malformed: %+v", child)
	}
}

func TestValidTransition(t *testing.T) {
	valid := []struct{ from, to EventStatus }{
		{StatusPending, StatusProcessing},
		{StatusProcessing, StatusCompleted},
		{StatusProcessing, StatusFailed},
		{StatusProcessing, StatusOverwritten},
	}
	for _, tc := range valid {
		if !ValidTransition(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be valid", tc.from, tc.to)
		}
	}

	invalid := []struct{ from, to EventStatus }{
		{StatusPending, StatusCompleted},
		{StatusPending, StatusFailed},
		{StatusCompleted, StatusProcessing},
		{StatusFailed, StatusPending},
		{StatusOverwritten, StatusCompleted},
		{StatusProcessing, StatusPending},
	}
	for _, tc := range invalid {
		if ValidTransition(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be invalid", tc.from, tc.to)
		}
	}
}

func TestEvent_IsTerminal(t *testing.T) {
	ev := NewEvent("t1", EventNewMessage)
	if ev.IsTerminal() {
		t.Error("pending event must not be terminal")
	}
	for _, s := range []EventStatus{StatusCompleted, StatusFailed, StatusOverwritten} {
		ev.Status = s
		if !ev.IsTerminal() {
			t.Errorf("status %s must be terminal", s)
		}
	}
}
