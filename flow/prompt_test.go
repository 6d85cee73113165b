package flow

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/internal/testutil"
	"github.com/hupe1980/agentrelay/model"
)

func TestBuildSystemPrompt_Sections(t *testing.T) {
	thread := &core.Thread{Context: "Quarterly planning discussion."}
	task := &core.Task{Title: "Draft the roadmap", Description: "Focus on Q4."}
	agent := core.Agent{
		Name:         "Alice",
		Role:         "analyst",
		Personality:  "direct",
		Instructions: "Keep answers short.",
	}

	prompt := buildSystemPrompt(thread, task, agent, map[string]any{
		"channel": "web",
		"beta":    true,
	})

	assert.Contains(t, prompt, "## Conversation context\nQuarterly planning discussion.")
	assert.Contains(t, prompt, "## Task\nDraft the roadmap\nFocus on Q4.")
	assert.Contains(t, prompt, "You are Alice. Role: analyst. Personality: direct.")
	assert.Contains(t, prompt, "## Instructions\nKeep answers short.")
	assert.Contains(t, prompt, "Current time: ")

	// Metadata keys render sorted.
	idx := strings.Index(prompt, "beta: true")
	require.Greater(t, idx, -1)
	assert.Less(t, idx, strings.Index(prompt, "channel: web"))
}

func TestBuildSystemPrompt_MinimalAgent(t *testing.T) {
	prompt := buildSystemPrompt(&core.Thread{}, nil, core.Agent{Name: "Bob"}, nil)

	assert.NotContains(t, prompt, "## Conversation context")
	assert.NotContains(t, prompt, "## Task")
	assert.NotContains(t, prompt, "## Instructions")
	assert.Contains(t, prompt, "You are Bob.")
}

func TestBuildHistory_Perspective(t *testing.T) {
	st, thread := testutil.NewFixtureBuilder().
		Participants("ext-1", "agent-alice", "agent-bob").
		User("ext-1", "Carol").
		Build()

	agents := testutil.TwoAgents()
	fc := &Context{Thread: &thread, Agents: agents, Storage: st}
	bob := agents[1]

	msgs := []core.Message{
		{SenderID: "ext-1", SenderType: core.SenderUser, Content: "hello"},
		{SenderID: "agent-alice", SenderType: core.SenderAgent, Content: "hi there"},
		{
			SenderID: "agent-bob", SenderType: core.SenderAgent, Content: "checking",
			ToolCalls: []model.ToolCall{{ID: "call-1", Function: model.ToolCallFunction{Name: "get_weather"}}},
		},
		{SenderID: "agent-bob", SenderType: core.SenderTool, Content: `{"temp":21}`, ToolCallID: "call-1"},
		{SenderID: "sys", SenderType: core.SenderSystem, Content: "thread archived soon"},
	}

	history := buildHistory(context.Background(), fc, msgs, bob)
	require.Len(t, history, 5)

	// Users resolve through the directory, peer agents through the roster.
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, "Carol: hello", history[0].Content)

	assert.Equal(t, "user", history[1].Role)
	assert.Equal(t, "Alice: hi there", history[1].Content)

	// The viewer's own turns are assistant turns, tool calls preserved.
	assert.Equal(t, "assistant", history[2].Role)
	assert.Equal(t, "checking", history[2].Content)
	require.Len(t, history[2].ToolCalls, 1)

	assert.Equal(t, "tool", history[3].Role)
	assert.Equal(t, "call-1", history[3].ToolCallID)

	assert.Equal(t, "system", history[4].Role)
}

func TestSenderName_FallsBackToRawID(t *testing.T) {
	st, thread := testutil.NewFixtureBuilder().Participants("user-x", "agent-bob").Build()
	fc := &Context{Thread: &thread, Agents: testutil.TwoAgents(), Storage: st}

	name := senderName(context.Background(), fc, core.Message{SenderID: "user-x"})
	assert.Equal(t, "user-x", name)
}
