package agentrelay

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/engine"
	"github.com/hupe1980/agentrelay/model"
	"github.com/hupe1980/agentrelay/tool"
)

func TestRelay_BasicConversation(t *testing.T) {
	connector := model.NewMockConnector()

	relay, err := New([]core.Agent{{ID: "agent-bob", Name: "Bob"}}, func(o *Options) {
		o.Connector = connector
	})
	require.NoError(t, err)

	ctx := context.Background()
	thread, err := relay.CreateThread(ctx, "user-1", "agent-bob")
	require.NoError(t, err)

	entry, err := relay.Send(ctx, thread.ID, "user-1", "hello")
	require.NoError(t, err)
	assert.NotEmpty(t, entry.TraceID)

	history, err := relay.History(ctx, thread.ID, "user-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "hello", history[0].Content)
	assert.Equal(t, core.SenderAgent, history[1].SenderType)
}

func TestRelay_ToolConversation(t *testing.T) {
	now := tool.NewFunctionTool("get_time", "returns a fixed time", map[string]any{"type": "object"},
		func(context.Context, *tool.Context, map[string]any) (any, error) {
			return "12:00", nil
		})

	connector := model.NewMockConnector()
	connector.AddToolCalls("what time", model.ToolCall{
		ID:       "call-1",
		Function: model.ToolCallFunction{Name: "get_time", Arguments: "{}"},
	})

	agents := []core.Agent{{ID: "agent-bob", Name: "Bob", AllowedTools: []string{"get_time"}}}
	relay, err := New(agents, func(o *Options) {
		o.Connector = connector
		o.EngineOptions = []engine.Option{engine.WithTools(now)}
	})
	require.NoError(t, err)

	ctx := context.Background()
	thread, err := relay.CreateThread(ctx, "user-1", "agent-bob")
	require.NoError(t, err)

	_, err = relay.Send(ctx, thread.ID, "user-1", "what time is it?")
	require.NoError(t, err)

	history, err := relay.History(ctx, thread.ID, "user-1")
	require.NoError(t, err)

	var sawToolResult bool
	for _, msg := range history {
		if msg.SenderType == core.SenderTool && msg.Content == "12:00" {
			sawToolResult = true
		}
	}
	assert.True(t, sawToolResult, "tool result must appear in the transcript")
}
