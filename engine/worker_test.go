package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/flow"
	"github.com/hupe1980/agentrelay/internal/testutil"
	"github.com/hupe1980/agentrelay/model"
	"github.com/hupe1980/agentrelay/tool"
)

// newRecordingTool wraps a plain function as a tool with a single optional
// "text" argument.
func newRecordingTool(key string, fn func(args map[string]any) (any, error)) tool.Tool {
	return tool.NewFunctionTool(key, "test tool",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"text": map[string]any{"type": "string"},
			},
		},
		func(_ context.Context, _ *tool.Context, args map[string]any) (any, error) {
			return fn(args)
		},
	)
}

func TestWorker_DrainsInPriorityOrder(t *testing.T) {
	st, thread := testutil.NewFixtureBuilder().Participants("user-1", "agent-alice", "agent-bob").Build()
	eng := newTestEngine(t, st, model.NewMockConnector(), testutil.TwoAgents())

	var order []int
	eng.callbacks.OnEvent = func(_ context.Context, ev core.Event) ([]core.Event, error) {
		order = append(order, ev.Priority)
		return nil, nil // observe only
	}

	for _, p := range []int{5, 1, 3} {
		ev := testutil.NewEventBuilder(thread.ID).Content("note").Meta("skipRouting", true).Priority(p).Build()
		require.NoError(t, eng.Enqueue(context.Background(), ev))
	}

	require.NoError(t, eng.RunWorker(context.Background(), thread.ID))
	assert.Equal(t, []int{5, 3, 1}, order)
}

func TestWorker_OnEventOverrideMarksOverwritten(t *testing.T) {
	st, thread := testutil.NewFixtureBuilder().Participants("user-1", "agent-bob").Build()

	override := func(_ context.Context, ev core.Event) ([]core.Event, error) {
		payload := ev.NewMessage()
		if payload == nil || payload.SenderType != core.SenderUser {
			return nil, nil
		}
		replacement := core.ChildMessageEvent(ev, core.NewMessagePayload{
			SenderID:   "sys",
			SenderType: core.SenderSystem,
			Content:    "redacted",
			Metadata:   map[string]any{"skipRouting": true},
		})
		return []core.Event{replacement}, nil
	}

	eng := newTestEngine(t, st, model.NewMockConnector(), testutil.TwoAgents(),
		WithCallbacks(Callbacks{OnEvent: override}))

	_, err := eng.SendMessage(context.Background(), thread.ID, userPayload("secret"))
	require.NoError(t, err)

	events := st.Events()
	require.Len(t, events, 2)
	assert.Equal(t, core.StatusOverwritten, events[0].Status)
	assert.Equal(t, core.StatusCompleted, events[1].Status, "the replacement runs normal processing")

	// The override swallowed the original, so only the replacement was
	// persisted.
	history, err := st.GetMessageHistory(context.Background(), thread.ID, "user-1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "redacted", history[0].Content)
}

func TestWorker_OnEventErrorIsSwallowed(t *testing.T) {
	st, thread := testutil.NewFixtureBuilder().Participants("user-1", "agent-bob").Build()

	hook := func(context.Context, core.Event) ([]core.Event, error) {
		return nil, errors.New("hook exploded")
	}

	eng := newTestEngine(t, st, model.NewMockConnector(), testutil.TwoAgents(),
		WithCallbacks(Callbacks{OnEvent: hook}))

	_, err := eng.SendMessage(context.Background(), thread.ID, userPayload("hello"))
	require.NoError(t, err, "hook errors must not break processing")

	history, err := st.GetMessageHistory(context.Background(), thread.ID, "user-1")
	require.NoError(t, err)
	assert.Len(t, history, 2, "default processing ran despite the hook error")
}

func TestWorker_OnEventPanicIsSwallowed(t *testing.T) {
	st, thread := testutil.NewFixtureBuilder().Participants("user-1", "agent-bob").Build()

	hook := func(context.Context, core.Event) ([]core.Event, error) { panic("boom") }

	eng := newTestEngine(t, st, model.NewMockConnector(), testutil.TwoAgents(),
		WithCallbacks(Callbacks{OnEvent: hook}))

	_, err := eng.SendMessage(context.Background(), thread.ID, userPayload("hello"))
	require.NoError(t, err)
}

// markerProcessor is a custom NEW_MESSAGE processor used to test dispatch
// precedence.
type markerProcessor struct {
	name     string
	accept   bool
	fail     bool
	produce  bool
	observed *[]string
}

func (p markerProcessor) Type() core.EventType { return core.EventNewMessage }

func (p markerProcessor) ShouldProcess(*flow.Context, core.Event) bool { return p.accept }

func (p markerProcessor) Process(_ context.Context, _ *flow.Context, ev core.Event) ([]core.Event, error) {
	*p.observed = append(*p.observed, p.name)

	if p.fail {
		return nil, errors.New(p.name + " failed")
	}

	// Only take over user messages so the produced event does not recurse.
	if !p.produce || ev.NewMessage() == nil || ev.NewMessage().SenderID == "custom" {
		return nil, nil
	}

	out := core.ChildMessageEvent(ev, core.NewMessagePayload{
		SenderID:   "custom",
		SenderType: core.SenderSystem,
		Content:    "handled by " + p.name,
		Metadata:   map[string]any{"skipRouting": true},
	})
	return []core.Event{out}, nil
}

func TestWorker_CustomProcessorPrecedence(t *testing.T) {
	st, thread := testutil.NewFixtureBuilder().Participants("user-1", "agent-bob").Build()

	var observed []string
	eng := newTestEngine(t, st, model.NewMockConnector(), testutil.TwoAgents(),
		WithProcessors(core.EventNewMessage,
			markerProcessor{name: "declines", accept: false, observed: &observed},
			markerProcessor{name: "errors", accept: true, fail: true, observed: &observed},
			markerProcessor{name: "wins", accept: true, produce: true, observed: &observed},
			markerProcessor{name: "unreached", accept: true, produce: true, observed: &observed},
		))

	_, err := eng.SendMessage(context.Background(), thread.ID, userPayload("hello"))
	require.NoError(t, err)

	// Declined processors are skipped, erroring ones fall through, the first
	// producer wins and later ones never run for the same event. The winner's
	// produced event runs the chain again, where every custom processor
	// passes and the default takes over.
	assert.Equal(t, []string{"errors", "wins", "errors", "wins", "unreached"}, observed)

	events := st.Events()
	require.NotEmpty(t, events)
	assert.Equal(t, core.StatusCompleted, events[0].Status, "custom handling completes, not overwrites")

	// The default processor only ever saw the replacement, so the original
	// user message was never persisted.
	history, err := st.GetMessageHistory(context.Background(), thread.ID, "user-1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "handled by wins", history[0].Content)
}

func TestWorker_EmptyCustomResultFallsThroughToDefault(t *testing.T) {
	st, thread := testutil.NewFixtureBuilder().Participants("user-1", "agent-bob").Build()

	var observed []string
	eng := newTestEngine(t, st, model.NewMockConnector(), testutil.TwoAgents(),
		WithProcessors(core.EventNewMessage,
			markerProcessor{name: "observer", accept: true, observed: &observed},
		))

	_, err := eng.SendMessage(context.Background(), thread.ID, userPayload("hello"))
	require.NoError(t, err)

	assert.NotEmpty(t, observed)

	history, err := st.GetMessageHistory(context.Background(), thread.ID, "user-1")
	require.NoError(t, err)
	assert.Len(t, history, 2, "default processor handled the event after the empty custom result")
}

func TestWorker_TokenEventsNeverReachTheQueue(t *testing.T) {
	st, thread := testutil.NewFixtureBuilder().Participants("user-1", "agent-bob").Build()

	var tokens int
	eng := newTestEngine(t, st, model.NewMockConnector(), testutil.TwoAgents(),
		WithCallbacks(Callbacks{OnToken: func(_, _, _ string) { tokens++ }}))

	_, err := eng.SendMessage(context.Background(), thread.ID, userPayload("hello"))
	require.NoError(t, err)

	assert.Greater(t, tokens, 0, "streaming tokens are forwarded")
	for _, ev := range st.Events() {
		assert.NotEqual(t, core.EventToken, ev.Type)
	}
}
