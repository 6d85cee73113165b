package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hupe1980/agentrelay/core"
)

// Memory is a mutex-guarded in-memory core.Storage. Events keep an insertion
// sequence so that creation-time ties (same wall-clock instant) still order
// deterministically before the id tiebreak.
type Memory struct {
	mu       sync.Mutex
	seq      int64
	events   []*memEvent
	messages map[string][]core.Message
	threads  map[string]core.Thread
	tasks    map[string]core.Task
	users    map[string]core.User
}

type memEvent struct {
	core.Event
	seq int64
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		messages: make(map[string][]core.Message),
		threads:  make(map[string]core.Thread),
		tasks:    make(map[string]core.Task),
		users:    make(map[string]core.User),
	}
}

// AddThread registers a thread snapshot. Fixture helper; threads are
// read-only to the core.
func (m *Memory) AddThread(t core.Thread) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.threads[t.ID] = t
}

// AddTask registers a task record.
func (m *Memory) AddTask(t core.Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[t.ID] = t
}

// AddUser registers a user record, keyed by external id.
func (m *Memory) AddUser(u core.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ExternalID] = u
}

// Events returns a snapshot of every queue row, in insertion order. Test
// helper for asserting on the execution trace.
func (m *Memory) Events() []core.Event {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]core.Event, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.Event)
	}
	return out
}

func (m *Memory) AddToQueue(_ context.Context, threadID string, ev core.Event) error {
	if ev.Type == core.EventToken {
		return core.ErrEphemeralEvent
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	ev.ThreadID = threadID
	if ev.Status == "" {
		ev.Status = core.StatusPending
	}

	m.seq++
	m.events = append(m.events, &memEvent{Event: ev, seq: m.seq})
	return nil
}

func (m *Memory) GetProcessingQueueItem(_ context.Context, threadID string) (*core.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range m.events {
		if e.ThreadID == threadID && e.Status == core.StatusProcessing {
			ev := e.Event
			return &ev, nil
		}
	}
	return nil, core.ErrNotFound
}

func (m *Memory) GetNextPendingQueueItem(_ context.Context, threadID string) (*core.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var pending []*memEvent
	for _, e := range m.events {
		if e.ThreadID == threadID && e.Status == core.StatusPending {
			pending = append(pending, e)
		}
	}

	if len(pending) == 0 {
		return nil, core.ErrNotFound
	}

	sort.SliceStable(pending, func(i, j int) bool {
		a, b := pending[i], pending[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		if a.seq != b.seq {
			return a.seq < b.seq
		}
		return a.ID < b.ID
	})

	ev := pending[0].Event
	return &ev, nil
}

func (m *Memory) UpdateQueueItemStatus(_ context.Context, eventID string, status core.EventStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range m.events {
		if e.ID != eventID {
			continue
		}

		if !core.ValidTransition(e.Status, status) {
			return fmt.Errorf("%w: %s -> %s", core.ErrInvalidTransition, e.Status, status)
		}

		e.Status = status
		e.UpdatedAt = time.Now().UTC()
		return nil
	}
	return core.ErrNotFound
}

func (m *Memory) CreateMessage(_ context.Context, msg core.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.messages[msg.ThreadID] = append(m.messages[msg.ThreadID], msg)
	return nil
}

func (m *Memory) GetThreadByID(_ context.Context, threadID string) (*core.Thread, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.threads[threadID]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &t, nil
}

func (m *Memory) GetTaskByID(_ context.Context, taskID string) (*core.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[taskID]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &t, nil
}

func (m *Memory) GetMessageHistory(_ context.Context, threadID, _ string) ([]core.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	msgs := m.messages[threadID]
	out := make([]core.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (m *Memory) GetUserByExternalID(_ context.Context, externalID string) (*core.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[externalID]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &u, nil
}

var _ core.Storage = (*Memory)(nil)
