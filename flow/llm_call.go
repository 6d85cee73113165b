package flow

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/model"
)

// LLMCallProcessor delegates an assembled request to the chat connector and
// feeds the reply back into the routing loop as a NEW_MESSAGE event.
type LLMCallProcessor struct{}

// Type implements Processor.
func (LLMCallProcessor) Type() core.EventType { return core.EventLLMCall }

// ShouldProcess accepts every well-formed LLM_CALL event.
func (LLMCallProcessor) ShouldProcess(_ *Context, ev core.Event) bool {
	return ev.LLMCall() != nil
}

// Process implements Processor. Streaming tokens, when a TokenFunc is
// configured, are forwarded as they arrive and never persisted. A turn
// producing neither an answer nor tool calls is a silent no-op.
func (LLMCallProcessor) Process(ctx context.Context, fc *Context, ev core.Event) ([]core.Event, error) {
	payload := ev.LLMCall()
	if payload == nil {
		return nil, fmt.Errorf("event %s: missing LLM_CALL payload", ev.ID)
	}

	var stream model.StreamFunc
	if fc.OnToken != nil {
		threadID, agentName := ev.ThreadID, payload.AgentName
		stream = func(token string) { fc.OnToken(threadID, agentName, token) }
	}

	resp, err := fc.Connector.Chat(ctx, model.ChatRequest{
		Messages: payload.Messages,
		Tools:    payload.Tools,
	}, payload.Config, stream)
	if err != nil {
		return nil, fmt.Errorf("chat connector: %w", err)
	}

	answer := stripSelfPrefix(resp.Answer, payload.AgentName)
	if answer == "" && len(resp.ToolCalls) == 0 {
		fc.logger().Debug("flow.llm.empty_turn", "thread_id", ev.ThreadID, "agent", payload.AgentName)
		return nil, nil
	}

	reply := core.ChildMessageEvent(ev, core.NewMessagePayload{
		SenderID:   payload.AgentID,
		SenderType: core.SenderAgent,
		Content:    answer,
		ToolCalls:  resp.ToolCalls,
	})
	return []core.Event{reply}, nil
}

// stripSelfPrefix removes a leading "[Name]:" or "@Name" self-identification
// from the answer, case-insensitively, so agents don't double-announce
// themselves in the transcript.
func stripSelfPrefix(answer, agentName string) string {
	if answer == "" || agentName == "" {
		return strings.TrimSpace(answer)
	}
	pattern := regexp.MustCompile(`(?i)^\s*(\[` + regexp.QuoteMeta(agentName) + `\]\s*:?|@` + regexp.QuoteMeta(agentName) + `\b[:,]?)\s*`)
	return strings.TrimSpace(pattern.ReplaceAllString(answer, ""))
}
