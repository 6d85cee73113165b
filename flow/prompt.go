package flow

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/model"
)

// buildSystemPrompt assembles the system prompt for one agent's turn:
// thread context, optional task context, agent identity, optional metadata
// sections and the current timestamp.
func buildSystemPrompt(thread *core.Thread, task *core.Task, agent core.Agent, metadata map[string]any) string {
	var b strings.Builder

	if thread.Context != "" {
		b.WriteString("## Conversation context\n")
		b.WriteString(thread.Context)
		b.WriteString("\n\n")
	}

	if task != nil {
		b.WriteString("## Task\n")
		b.WriteString(task.Title)
		if task.Description != "" {
			b.WriteString("\n")
			b.WriteString(task.Description)
		}
		b.WriteString("\n\n")
	}

	fmt.Fprintf(&b, "## Identity\nYou are %s.", agent.Name)
	if agent.Role != "" {
		fmt.Fprintf(&b, " Role: %s.", agent.Role)
	}
	if agent.Personality != "" {
		fmt.Fprintf(&b, " Personality: %s.", agent.Personality)
	}
	b.WriteString("\n")
	if agent.Instructions != "" {
		b.WriteString("\n## Instructions\n")
		b.WriteString(agent.Instructions)
		b.WriteString("\n")
	}

	if len(metadata) > 0 {
		b.WriteString("\n## Additional context\n")
		keys := make([]string, 0, len(metadata))
		for k := range metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "%s: %v\n", k, metadata[k])
		}
	}

	fmt.Fprintf(&b, "\nCurrent time: %s\n", time.Now().UTC().Format(time.RFC3339))
	return b.String()
}

// buildHistory reformats the thread transcript from the perspective of one
// agent: its own turns become assistant messages, tool results keep their
// correlation id, and every other sender's turn is presented as a user
// message prefixed with the sender's name.
func buildHistory(ctx context.Context, fc *Context, msgs []core.Message, viewer core.Agent) []model.ChatMessage {
	history := make([]model.ChatMessage, 0, len(msgs))
	for _, msg := range msgs {
		switch {
		case msg.SenderID == viewer.ID && msg.SenderType == core.SenderAgent:
			history = append(history, model.ChatMessage{
				Role:      "assistant",
				Content:   msg.Content,
				ToolCalls: msg.ToolCalls,
			})
		case msg.SenderType == core.SenderTool:
			history = append(history, model.ChatMessage{
				Role:       "tool",
				Content:    msg.Content,
				ToolCallID: msg.ToolCallID,
			})
		case msg.SenderType == core.SenderSystem:
			history = append(history, model.ChatMessage{
				Role:    "system",
				Content: msg.Content,
			})
		default:
			history = append(history, model.ChatMessage{
				Role:    "user",
				Content: fmt.Sprintf("%s: %s", senderName(ctx, fc, msg), msg.Content),
			})
		}
	}
	return history
}

// senderName resolves a display name for history formatting: agent roster
// first, then the user directory, then the raw sender id.
func senderName(ctx context.Context, fc *Context, msg core.Message) string {
	if a, ok := fc.AgentByID(msg.SenderID); ok {
		return a.Name
	}
	if user, err := fc.Storage.GetUserByExternalID(ctx, msg.SenderID); err == nil && user != nil {
		return user.Name
	}
	return msg.SenderID
}
