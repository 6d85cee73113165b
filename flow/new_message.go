package flow

import (
	"context"
	"fmt"

	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/model"
)

// chainPriorityBase is the priority assigned to the first target of a
// top-level message's fan-out. Follow-up chains inherit their priority, so
// a running cascade keeps draining ahead of fresh default-priority messages.
const chainPriorityBase = 100

// NewMessageProcessor persists the message and routes it: tool calls become
// TOOL_CALL events, everything else becomes one LLM_CALL event per resolved
// target agent.
type NewMessageProcessor struct{}

// Type implements Processor.
func (NewMessageProcessor) Type() core.EventType { return core.EventNewMessage }

// ShouldProcess accepts every well-formed NEW_MESSAGE event.
func (NewMessageProcessor) ShouldProcess(_ *Context, ev core.Event) bool {
	return ev.NewMessage() != nil
}

// Process implements Processor. The message is persisted unconditionally
// before any routing decision; skipRouting in the payload metadata is the
// escape hatch for callers that only need persistence.
func (p NewMessageProcessor) Process(ctx context.Context, fc *Context, ev core.Event) ([]core.Event, error) {
	payload := ev.NewMessage()
	if payload == nil {
		return nil, fmt.Errorf("event %s: missing NEW_MESSAGE payload", ev.ID)
	}

	if err := fc.Storage.CreateMessage(ctx, core.NewMessage(ev.ThreadID, *payload)); err != nil {
		return nil, fmt.Errorf("persist message: %w", err)
	}

	if skip, _ := payload.Metadata["skipRouting"].(bool); skip {
		return nil, nil
	}

	targets := resolveTargets(fc, payload)
	if len(targets) == 0 {
		fc.logger().Debug("flow.route.no_target", "thread_id", ev.ThreadID, "sender_id", payload.SenderID)
		return nil, nil
	}

	var produced []core.Event
	for i, target := range targets {
		priority := ev.Priority
		if priority == 0 {
			// Start a new chain: strictly decreasing so multi-agent fan-out
			// drains in resolved order without interleaving.
			priority = chainPriorityBase - i
		}

		if len(payload.ToolCalls) > 0 {
			produced = append(produced, p.toolCallEvents(ev, *payload, target, priority)...)
			continue
		}

		llmEvent, err := p.llmCallEvent(ctx, fc, ev, target)
		if err != nil {
			return nil, err
		}
		llmEvent.Priority = priority
		produced = append(produced, llmEvent)
	}
	return produced, nil
}

// toolCallEvents emits one TOOL_CALL event per raw call, synthesizing a call
// id when the model omitted one.
func (NewMessageProcessor) toolCallEvents(ev core.Event, payload core.NewMessagePayload, target core.Agent, priority int) []core.Event {
	events := make([]core.Event, 0, len(payload.ToolCalls))
	for _, call := range payload.ToolCalls {
		if call.ID == "" {
			call.ID = core.NewID()
		}
		child := core.NewToolCallEvent(ev, core.ToolCallPayload{
			AgentID:    target.ID,
			AgentName:  target.Name,
			SenderID:   payload.SenderID,
			SenderType: payload.SenderType,
			Call:       call,
		})
		child.Priority = priority
		events = append(events, child)
	}
	return events
}

// llmCallEvent assembles the connector request for one target: system
// prompt, per-viewer history and the target's allowed tool definitions.
func (NewMessageProcessor) llmCallEvent(ctx context.Context, fc *Context, ev core.Event, target core.Agent) (core.Event, error) {
	history, err := fc.Storage.GetMessageHistory(ctx, ev.ThreadID, target.ID)
	if err != nil {
		return core.Event{}, fmt.Errorf("load history: %w", err)
	}

	var task *core.Task
	if fc.Thread.TaskID != "" {
		task, err = fc.Storage.GetTaskByID(ctx, fc.Thread.TaskID)
		if err != nil && err != core.ErrNotFound {
			return core.Event{}, fmt.Errorf("load task: %w", err)
		}
	}

	payload := ev.NewMessage()
	messages := make([]model.ChatMessage, 0, len(history)+1)
	messages = append(messages, model.ChatMessage{
		Role:    "system",
		Content: buildSystemPrompt(fc.Thread, task, target, payload.Metadata),
	})
	messages = append(messages, buildHistory(ctx, fc, history, target)...)

	allowed := fc.Tools.Filter(target.MayUseTool)

	return core.NewLLMCallEvent(ev, core.LLMCallPayload{
		AgentID:   target.ID,
		AgentName: target.Name,
		Messages:  messages,
		Tools:     allowed.Definitions(),
		Config:    target.LLMOptions,
	}), nil
}
