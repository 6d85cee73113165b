package flow

import (
	"context"
	"fmt"

	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/tool"
)

// ToolCallProcessor executes one tool call through the invocation pipeline
// and wraps the result into a tool-sender NEW_MESSAGE event so the next
// LLM turn can correlate the result to its request.
type ToolCallProcessor struct{}

// Type implements Processor.
func (ToolCallProcessor) Type() core.EventType { return core.EventToolCall }

// ShouldProcess accepts every well-formed TOOL_CALL event.
func (ToolCallProcessor) ShouldProcess(_ *Context, ev core.Event) bool {
	return ev.ToolCall() != nil
}

// Process implements Processor. Malformed calls and execution failures are
// recovered into diagnostic content by the pipeline; this processor only
// fails on infrastructure errors such as an unknown issuing agent.
func (ToolCallProcessor) Process(ctx context.Context, fc *Context, ev core.Event) ([]core.Event, error) {
	payload := ev.ToolCall()
	if payload == nil {
		return nil, fmt.Errorf("event %s: missing TOOL_CALL payload", ev.ID)
	}

	agent, ok := fc.AgentByID(payload.AgentID)
	if !ok {
		return nil, fmt.Errorf("event %s: unknown agent %q", ev.ID, payload.AgentID)
	}

	allowed := fc.Tools.Filter(agent.MayUseTool)
	toolCtx := tool.NewContext(ev.ThreadID, agent.ID, agent.Name, payload.Call.ID, fc.logger())

	result := tool.Invoke(ctx, allowed, toolCtx, payload.Call)

	reply := core.ChildMessageEvent(ev, core.NewMessagePayload{
		SenderID:   payload.AgentID,
		SenderType: core.SenderTool,
		Content:    result.Content(),
		ToolCallID: result.ToolCallID,
	})
	return []core.Event{reply}, nil
}
