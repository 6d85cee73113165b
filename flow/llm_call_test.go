package flow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/internal/testutil"
	"github.com/hupe1980/agentrelay/model"
)

func llmCallEventFor(threadID, agentID, agentName, lastContent string) core.Event {
	parent := core.NewMessageEvent(threadID, core.NewMessagePayload{})
	parent.Priority = 100
	return core.NewLLMCallEvent(parent, core.LLMCallPayload{
		AgentID:   agentID,
		AgentName: agentName,
		Messages: []model.ChatMessage{
			{Role: "system", Content: "You are " + agentName + "."},
			{Role: "user", Content: lastContent},
		},
	})
}

func TestLLMCallProcessor_ProducesReplyMessage(t *testing.T) {
	st, thread := testutil.NewFixtureBuilder().Participants("user-1", "agent-bob").Build()

	connector := model.NewMockConnector()
	connector.AddAnswer("ping", "pong")

	fc := &Context{Thread: &thread, Agents: testutil.TwoAgents(), Storage: st, Connector: connector}

	ev := llmCallEventFor(thread.ID, "agent-bob", "Bob", "ping")
	produced, err := LLMCallProcessor{}.Process(context.Background(), fc, ev)
	require.NoError(t, err)
	require.Len(t, produced, 1)

	reply := produced[0]
	assert.Equal(t, core.EventNewMessage, reply.Type)
	assert.Equal(t, ev.TraceID, reply.TraceID)
	assert.Equal(t, 100, reply.Priority, "cascade inherits the chain priority")

	payload := reply.NewMessage()
	require.NotNil(t, payload)
	assert.Equal(t, "agent-bob", payload.SenderID)
	assert.Equal(t, core.SenderAgent, payload.SenderType)
	assert.Equal(t, "pong", payload.Content)
}

func TestLLMCallProcessor_ToolCallsPassThrough(t *testing.T) {
	st, thread := testutil.NewFixtureBuilder().Participants("user-1", "agent-bob").Build()

	connector := model.NewMockConnector()
	connector.AddToolCalls("weather", model.ToolCall{
		ID:       "call-1",
		Function: model.ToolCallFunction{Name: "get_weather", Arguments: `{"city":"Berlin"}`},
	})

	fc := &Context{Thread: &thread, Agents: testutil.TwoAgents(), Storage: st, Connector: connector}

	produced, err := LLMCallProcessor{}.Process(context.Background(), fc,
		llmCallEventFor(thread.ID, "agent-bob", "Bob", "check the weather please"))
	require.NoError(t, err)
	require.Len(t, produced, 1)

	payload := produced[0].NewMessage()
	require.NotNil(t, payload)
	require.Len(t, payload.ToolCalls, 1)
	assert.Equal(t, "get_weather", payload.ToolCalls[0].Function.Name)
}

func TestLLMCallProcessor_StreamsTokens(t *testing.T) {
	st, thread := testutil.NewFixtureBuilder().Participants("user-1", "agent-bob").Build()

	connector := model.NewMockConnector()
	connector.AddAnswer("ping", "ok")

	var tokens []string
	fc := &Context{
		Thread:    &thread,
		Agents:    testutil.TwoAgents(),
		Storage:   st,
		Connector: connector,
		OnToken: func(_, agentName, token string) {
			assert.Equal(t, "Bob", agentName)
			tokens = append(tokens, token)
		},
	}

	_, err := LLMCallProcessor{}.Process(context.Background(), fc,
		llmCallEventFor(thread.ID, "agent-bob", "Bob", "ping"))
	require.NoError(t, err)
	assert.Equal(t, []string{"o", "k"}, tokens)
}

type silentConnector struct{}

func (silentConnector) Chat(context.Context, model.ChatRequest, model.Config, model.StreamFunc) (*model.ChatResponse, error) {
	return &model.ChatResponse{}, nil
}

func (silentConnector) Info() model.Info { return model.Info{Provider: "silent"} }

func TestLLMCallProcessor_EmptyTurnProducesNothing(t *testing.T) {
	st, thread := testutil.NewFixtureBuilder().Participants("user-1", "agent-bob").Build()
	fc := &Context{Thread: &thread, Agents: testutil.TwoAgents(), Storage: st, Connector: silentConnector{}}

	produced, err := LLMCallProcessor{}.Process(context.Background(), fc,
		llmCallEventFor(thread.ID, "agent-bob", "Bob", "anything"))
	require.NoError(t, err)
	assert.Empty(t, produced)
}

func TestStripSelfPrefix(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"[Bob]: hello", "hello"},
		{"[bob]: hello", "hello"},
		{"@Bob: hello", "hello"},
		{"@Bob, hello", "hello"},
		{"  [Bob] hello", "hello"},
		{"hello from Bob", "hello from Bob"},
		{"@Bobby stays", "@Bobby stays"},
		{"", ""},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, stripSelfPrefix(tc.in, "Bob"), "input %q", tc.in)
	}
}
