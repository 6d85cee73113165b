package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/model"
)

func newTestSQLite(t *testing.T) *SQLite {
	t.Helper()

	st, err := NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	return st
}

func TestSQLite_Pragmas(t *testing.T) {
	st := newTestSQLite(t)

	var busyTimeout int
	require.NoError(t, st.DB().QueryRow("PRAGMA busy_timeout").Scan(&busyTimeout))
	assert.Equal(t, 5000, busyTimeout)
}

func TestSQLite_QueueOrdering(t *testing.T) {
	ctx := context.Background()
	st := newTestSQLite(t)
	base := time.Now().UTC().Truncate(time.Second)

	for i, p := range []int{5, 1, 3} {
		ev := core.NewEvent("t1", core.EventNewMessage)
		ev.Priority = p
		ev.CreatedAt = base.Add(time.Duration(i) * time.Second)
		ev.UpdatedAt = ev.CreatedAt
		require.NoError(t, st.AddToQueue(ctx, "t1", ev))
	}

	var drained []int
	for {
		ev, err := st.GetNextPendingQueueItem(ctx, "t1")
		if err != nil {
			assert.ErrorIs(t, err, core.ErrNotFound)
			break
		}
		drained = append(drained, ev.Priority)
		require.NoError(t, st.UpdateQueueItemStatus(ctx, ev.ID, core.StatusProcessing))
		require.NoError(t, st.UpdateQueueItemStatus(ctx, ev.ID, core.StatusCompleted))
	}

	assert.Equal(t, []int{5, 3, 1}, drained)
}

func TestSQLite_PayloadRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := newTestSQLite(t)

	ev := core.NewMessageEvent("t1", core.NewMessagePayload{
		SenderID:   "user-1",
		SenderType: core.SenderUser,
		Content:    "hi @Bob",
		Metadata:   map[string]any{"channel": "web"},
	})
	require.NoError(t, st.AddToQueue(ctx, "t1", ev))

	got, err := st.GetNextPendingQueueItem(ctx, "t1")
	require.NoError(t, err)

	payload := got.NewMessage()
	require.NotNil(t, payload, "typed payload must survive the round-trip")
	assert.Equal(t, "hi @Bob", payload.Content)
	assert.Equal(t, core.SenderUser, payload.SenderType)
	assert.Equal(t, "web", payload.Metadata["channel"])
	assert.Equal(t, ev.TraceID, got.TraceID)
}

func TestSQLite_ToolCallPayloadRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := newTestSQLite(t)

	parent := core.NewMessageEvent("t1", core.NewMessagePayload{SenderID: "agent-bob"})
	ev := core.NewToolCallEvent(parent, core.ToolCallPayload{
		AgentID:   "agent-bob",
		AgentName: "Bob",
		Call: model.ToolCall{
			ID:       "call-1",
			Type:     "function",
			Function: model.ToolCallFunction{Name: "get_weather", Arguments: `{"city":"Berlin"}`},
		},
	})
	require.NoError(t, st.AddToQueue(ctx, "t1", ev))

	got, err := st.GetNextPendingQueueItem(ctx, "t1")
	require.NoError(t, err)

	payload := got.ToolCall()
	require.NotNil(t, payload)
	assert.Equal(t, "get_weather", payload.Call.Function.Name)
	assert.Equal(t, parent.ID, got.ParentEventID)
}

func TestSQLite_StatusLifecycle(t *testing.T) {
	ctx := context.Background()
	st := newTestSQLite(t)

	ev := core.NewEvent("t1", core.EventNewMessage)
	require.NoError(t, st.AddToQueue(ctx, "t1", ev))

	err := st.UpdateQueueItemStatus(ctx, ev.ID, core.StatusCompleted)
	assert.ErrorIs(t, err, core.ErrInvalidTransition)

	require.NoError(t, st.UpdateQueueItemStatus(ctx, ev.ID, core.StatusProcessing))

	item, err := st.GetProcessingQueueItem(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, ev.ID, item.ID)

	require.NoError(t, st.UpdateQueueItemStatus(ctx, ev.ID, core.StatusFailed))

	err = st.UpdateQueueItemStatus(ctx, ev.ID, core.StatusProcessing)
	assert.ErrorIs(t, err, core.ErrInvalidTransition)
}

func TestSQLite_RejectsTokenEvents(t *testing.T) {
	st := newTestSQLite(t)
	err := st.AddToQueue(context.Background(), "t1", core.NewEvent("t1", core.EventToken))
	assert.ErrorIs(t, err, core.ErrEphemeralEvent)
}

func TestSQLite_ThreadTaskUserRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := newTestSQLite(t)

	thread := core.NewThread("user-1", "agent-bob")
	thread.Title = "planning"
	thread.TaskID = "task-1"
	thread.Metadata = map[string]any{"origin": "api"}
	require.NoError(t, st.SaveThread(ctx, thread))

	require.NoError(t, st.SaveTask(ctx, core.Task{ID: "task-1", Title: "Ship it", CreatedAt: time.Now().UTC()}))
	require.NoError(t, st.SaveUser(ctx, core.User{ID: "u1", ExternalID: "ext-1", Name: "Carol"}))

	got, err := st.GetThreadByID(ctx, thread.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"user-1", "agent-bob"}, got.Participants)
	assert.Equal(t, "planning", got.Title)
	assert.Equal(t, "api", got.Metadata["origin"])

	task, err := st.GetTaskByID(ctx, "task-1")
	require.NoError(t, err)
	assert.Equal(t, "Ship it", task.Title)

	user, err := st.GetUserByExternalID(ctx, "ext-1")
	require.NoError(t, err)
	assert.Equal(t, "Carol", user.Name)
}

func TestSQLite_MessageHistoryOrdered(t *testing.T) {
	ctx := context.Background()
	st := newTestSQLite(t)
	base := time.Now().UTC().Truncate(time.Second)

	for i, content := range []string{"first", "second", "third"} {
		msg := core.NewMessage("t1", core.NewMessagePayload{
			SenderID:   "user-1",
			SenderType: core.SenderUser,
			Content:    content,
		})
		msg.CreatedAt = base.Add(time.Duration(i) * time.Second)
		require.NoError(t, st.CreateMessage(ctx, msg))
	}

	history, err := st.GetMessageHistory(ctx, "t1", "anyone")
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "first", history[0].Content)
	assert.Equal(t, "third", history[2].Content)
}
