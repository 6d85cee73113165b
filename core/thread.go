package core

import "time"

// ThreadStatus tracks the lifecycle of a conversation thread.
type ThreadStatus string

const (
	// ThreadActive accepts new events and messages.
	ThreadActive ThreadStatus = "active"
	// ThreadArchived is terminal; archiving is triggered outside the core.
	ThreadArchived ThreadStatus = "archived"
)

// Thread is a conversation scope owning participants, messages and its own
// event queue. ParentThreadID nests sub-conversations under a parent.
type Thread struct {
	ID             string       `json:"id"`
	Title          string       `json:"title,omitempty"`
	Participants   []string     `json:"participants"`
	Status         ThreadStatus `json:"status"`
	ParentThreadID string       `json:"parent_thread_id,omitempty"`
	TaskID         string       `json:"task_id,omitempty"`
	Context        string       `json:"context,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// NewThread creates an active thread with the given participants.
func NewThread(participants ...string) Thread {
	now := time.Now().UTC()
	return Thread{
		ID:           NewID(),
		Participants: participants,
		Status:       ThreadActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// HasParticipant reports whether id is among the thread's participants.
func (t Thread) HasParticipant(id string) bool {
	for _, p := range t.Participants {
		if p == id {
			return true
		}
	}
	return false
}

// OtherParticipant returns the single counterpart of id in a two-party
// thread, or "" when the thread has a different participant count or id is
// not a participant. It backs the two-party routing fallback.
func (t Thread) OtherParticipant(id string) string {
	if len(t.Participants) != 2 || !t.HasParticipant(id) {
		return ""
	}
	if t.Participants[0] == id {
		return t.Participants[1]
	}
	return t.Participants[0]
}

// Task is a read-side record whose description can be folded into an agent's
// system prompt when the thread is bound to a task.
type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// User is a read-side record resolving an external identity to a display
// name for history formatting.
type User struct {
	ID         string `json:"id"`
	ExternalID string `json:"external_id,omitempty"`
	Name       string `json:"name"`
}
