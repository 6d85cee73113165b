package testutil

import (
	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/store"
)

// FixtureBuilder wires an in-memory store with a thread, its participants and
// optional task/user records. Example:
//
//	st, thread := NewFixtureBuilder().
//		Participants("user-1", "agent-bob").
//		User("user-1", "Carol").
//		Build()
type FixtureBuilder struct {
	thread core.Thread
	tasks  []core.Task
	users  []core.User
}

// NewFixtureBuilder creates a builder with an empty active thread.
func NewFixtureBuilder() *FixtureBuilder {
	return &FixtureBuilder{thread: core.NewThread()}
}

// ThreadID pins the thread id (chainable).
func (b *FixtureBuilder) ThreadID(id string) *FixtureBuilder {
	b.thread.ID = id
	return b
}

// Participants sets the thread participants (chainable).
func (b *FixtureBuilder) Participants(ids ...string) *FixtureBuilder {
	b.thread.Participants = ids
	return b
}

// ThreadContext sets the thread context line folded into system prompts
// (chainable).
func (b *FixtureBuilder) ThreadContext(c string) *FixtureBuilder {
	b.thread.Context = c
	return b
}

// Task binds a task to the thread (chainable).
func (b *FixtureBuilder) Task(t core.Task) *FixtureBuilder {
	b.thread.TaskID = t.ID
	b.tasks = append(b.tasks, t)
	return b
}

// User registers a user record resolvable by external id (chainable).
func (b *FixtureBuilder) User(externalID, name string) *FixtureBuilder {
	b.users = append(b.users, core.User{ID: core.NewID(), ExternalID: externalID, Name: name})
	return b
}

// Build assembles the store and returns it with the thread.
func (b *FixtureBuilder) Build() (*store.Memory, core.Thread) {
	st := store.NewMemory()
	st.AddThread(b.thread)

	for _, t := range b.tasks {
		st.AddTask(t)
	}

	for _, u := range b.users {
		st.AddUser(u)
	}

	return st, b.thread
}

// TwoAgents returns a ready-made roster with agents Alice and Bob, both
// allowed to address anyone and neither holding tools.
func TwoAgents() []core.Agent {
	return []core.Agent{
		{ID: "agent-alice", Name: "Alice", Role: "analyst"},
		{ID: "agent-bob", Name: "Bob", Role: "engineer"},
	}
}
