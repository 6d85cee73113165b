// Package agentrelay provides a high-level façade over the event engine for
// building multi-agent conversation systems. Most applications interact with
// this package by:
//  1. Creating a Relay via New() with an agent roster (optionally overriding
//     the default in-memory storage and mock connector)
//  2. Creating a thread with the participating identities
//  3. Sending messages with Send, which drains the thread's event queue until
//     the turn's full cascade (routing, model calls, tool calls) settles
//
// The façade delegates orchestration to engine.Engine while keeping setup
// ergonomics concise. All defaults are safe for local development and
// testing; production deployments supply the SQLite store and a real model
// connector.
package agentrelay

import (
	"context"

	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/engine"
	"github.com/hupe1980/agentrelay/logging"
	"github.com/hupe1980/agentrelay/model"
	"github.com/hupe1980/agentrelay/store"
)

// Options configures the Relay instance.
type Options struct {
	// Storage persists threads, messages and the event queue. Defaults to
	// the in-memory store.
	Storage core.Storage

	// Connector answers LLM_CALL events. Defaults to the mock connector.
	Connector model.Connector

	// Logger receives structured diagnostics. Defaults to the no-op logger.
	Logger logging.Logger

	// EngineOptions are passed through to the underlying engine (tools, tool
	// sources, callbacks, custom processors).
	EngineOptions []engine.Option
}

// Relay is the high-level façade aggregating the engine and its storage.
type Relay struct {
	storage core.Storage
	engine  *engine.Engine
}

// New creates a Relay over the given agent roster with optional overrides.
func New(agents []core.Agent, optFns ...func(o *Options)) (*Relay, error) {
	opts := Options{
		Storage:   store.NewMemory(),
		Connector: model.NewMockConnector(),
		Logger:    logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	engineOpts := append([]engine.Option{engine.WithLogger(opts.Logger)}, opts.EngineOptions...)

	eng, err := engine.New(opts.Storage, opts.Connector, agents, engineOpts...)
	if err != nil {
		return nil, err
	}

	return &Relay{storage: opts.Storage, engine: eng}, nil
}

// Engine exposes the underlying engine for advanced wiring.
func (r *Relay) Engine() *engine.Engine { return r.engine }

// CreateThread registers a new active thread with the given participants.
// Requires a storage with thread registration (both in-tree stores qualify);
// callers with external thread management can skip it.
func (r *Relay) CreateThread(ctx context.Context, participants ...string) (core.Thread, error) {
	thread := core.NewThread(participants...)

	switch s := r.storage.(type) {
	case *store.Memory:
		s.AddThread(thread)
	case *store.SQLite:
		if err := s.SaveThread(ctx, thread); err != nil {
			return core.Thread{}, err
		}
	}

	return thread, nil
}

// Send enqueues a user message on the thread and drains the queue until the
// resulting cascade settles. It returns the entry event for correlation.
func (r *Relay) Send(ctx context.Context, threadID, senderID, content string) (core.Event, error) {
	return r.engine.SendMessage(ctx, threadID, core.NewMessagePayload{
		SenderID:   senderID,
		SenderType: core.SenderUser,
		Content:    content,
	})
}

// History returns the thread transcript as seen by viewerID.
func (r *Relay) History(ctx context.Context, threadID, viewerID string) ([]core.Message, error) {
	return r.storage.GetMessageHistory(ctx, threadID, viewerID)
}
