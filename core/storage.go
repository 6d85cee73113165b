package core

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by Storage lookups for unknown identifiers.
	ErrNotFound = errors.New("not found")
	// ErrEphemeralEvent is returned when a TOKEN event is handed to
	// AddToQueue. Token events exist only on the streaming callback path.
	ErrEphemeralEvent = errors.New("token events are ephemeral and must not be enqueued")
	// ErrInvalidTransition is returned by UpdateQueueItemStatus for a status
	// change outside the pending -> processing -> terminal lifecycle.
	ErrInvalidTransition = errors.New("invalid event status transition")
)

// Storage is the persistence contract the worker drains against. Each
// operation is individually atomic; the core never wraps multi-step
// sequences in a transaction.
//
// Queue ordering contract: GetNextPendingQueueItem returns the pending event
// with the highest priority, ties broken by creation time ascending then id
// ascending — a strict total order shared by every implementation.
type Storage interface {
	// AddToQueue appends a new pending event to the thread's queue. TOKEN
	// events are rejected with ErrEphemeralEvent.
	AddToQueue(ctx context.Context, threadID string, ev Event) error

	// GetProcessingQueueItem returns the event currently in processing
	// status for the thread, or ErrNotFound when the thread is idle.
	GetProcessingQueueItem(ctx context.Context, threadID string) (*Event, error)

	// GetNextPendingQueueItem returns the next pending event per the queue
	// ordering contract, or ErrNotFound when the queue is drained.
	GetNextPendingQueueItem(ctx context.Context, threadID string) (*Event, error)

	// UpdateQueueItemStatus advances an event through its lifecycle.
	// Transitions outside the lifecycle return ErrInvalidTransition.
	UpdateQueueItemStatus(ctx context.Context, eventID string, status EventStatus) error

	// CreateMessage appends a row to the thread transcript.
	CreateMessage(ctx context.Context, msg Message) error

	// GetThreadByID loads a thread snapshot.
	GetThreadByID(ctx context.Context, threadID string) (*Thread, error)

	// GetTaskByID loads the task bound to a thread, if any.
	GetTaskByID(ctx context.Context, taskID string) (*Task, error)

	// GetMessageHistory returns the thread transcript in creation order.
	// viewerID lets implementations apply per-viewer visibility rules; the
	// in-tree implementations return the full transcript.
	GetMessageHistory(ctx context.Context, threadID, viewerID string) ([]Message, error)

	// GetUserByExternalID resolves an external identity to a user record.
	GetUserByExternalID(ctx context.Context, externalID string) (*User, error)
}

// ExpiryPolicy is the extension seam for TTL handling. The worker carries
// TTLMs/ExpiresAt on events but intentionally does not enforce them: the
// intended semantics (drop expired pending events vs. requeue stuck
// processing items) are not settled. Implementations can be consulted by a
// future worker revision; NoExpiry is the only in-tree policy.
type ExpiryPolicy interface {
	// Expired reports whether the event should be skipped instead of
	// processed.
	Expired(ev Event) bool
}

// NoExpiry never expires events. It documents the current no-op behavior.
type NoExpiry struct{}

// Expired always returns false.
func (NoExpiry) Expired(Event) bool { return false }
