package engine

import (
	"context"
	"fmt"

	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/flow"
	"github.com/hupe1980/agentrelay/logging"
	"github.com/hupe1980/agentrelay/model"
	"github.com/hupe1980/agentrelay/tool"
)

// Options configures an Engine. All fields are optional except Storage and
// Connector, which have no sensible zero value for real deployments.
type Options struct {
	// Logger receives structured diagnostics. Defaults to a slog-backed
	// logger writing to stderr.
	Logger logging.Logger

	// Tools are native tools registered directly on the engine.
	Tools []tool.Tool

	// ToolSources contribute additional tools at drain time (MCP servers,
	// OpenAPI documents). Sources are consulted when a worker builds its
	// per-pass context, so late-bound tools appear without re-registration.
	ToolSources []tool.Source

	// Callbacks attaches the optional caller hooks.
	Callbacks Callbacks

	// Processors registers custom processors per event type. They are
	// consulted after the OnEvent hook and before the defaults, in the
	// order given; the first one that produces events wins.
	Processors map[core.EventType][]flow.Processor
}

// Option mutates Options.
type Option func(*Options)

// WithLogger sets the engine logger.
func WithLogger(l logging.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithTools registers native tools.
func WithTools(tools ...tool.Tool) Option {
	return func(o *Options) { o.Tools = append(o.Tools, tools...) }
}

// WithToolSources registers dynamic tool sources.
func WithToolSources(sources ...tool.Source) Option {
	return func(o *Options) { o.ToolSources = append(o.ToolSources, sources...) }
}

// WithCallbacks attaches caller hooks.
func WithCallbacks(cb Callbacks) Option {
	return func(o *Options) { o.Callbacks = cb }
}

// WithProcessors appends custom processors for an event type.
func WithProcessors(t core.EventType, procs ...flow.Processor) Option {
	return func(o *Options) {
		if o.Processors == nil {
			o.Processors = make(map[core.EventType][]flow.Processor)
		}
		o.Processors[t] = append(o.Processors[t], procs...)
	}
}

// Engine drives event processing for conversation threads. It is safe for
// concurrent use; independent threads drain in parallel while each single
// thread is drained by at most one worker pass at a time.
type Engine struct {
	storage   core.Storage
	connector model.Connector
	agents    []core.Agent
	tools     []tool.Tool
	sources   []tool.Source
	callbacks Callbacks
	custom    map[core.EventType][]flow.Processor
	defaults  map[core.EventType]flow.Processor
	locks     *threadLocks
	logger    logging.Logger
}

// New creates an engine over the given storage, model connector and agent
// roster.
func New(storage core.Storage, connector model.Connector, agents []core.Agent, optFns ...Option) (*Engine, error) {
	if storage == nil {
		return nil, fmt.Errorf("engine: storage is required")
	}

	if connector == nil {
		return nil, fmt.Errorf("engine: connector is required")
	}

	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NewDefaultSlogLogger()
	}

	defaults := make(map[core.EventType]flow.Processor)
	for _, p := range flow.Defaults() {
		defaults[p.Type()] = p
	}

	return &Engine{
		storage:   storage,
		connector: connector,
		agents:    agents,
		tools:     opts.Tools,
		sources:   opts.ToolSources,
		callbacks: opts.Callbacks,
		custom:    opts.Processors,
		defaults:  defaults,
		locks:     newThreadLocks(),
		logger:    opts.Logger,
	}, nil
}

// Enqueue appends an event to its thread's queue without starting a worker.
// Use it to batch several events before a single drain.
func (e *Engine) Enqueue(ctx context.Context, ev core.Event) error {
	return e.storage.AddToQueue(ctx, ev.ThreadID, ev)
}

// SendMessage enqueues a new-message event for the thread and drains the
// queue until no pending work remains. It returns the enqueued event so the
// caller can correlate follow-ups via its trace id.
func (e *Engine) SendMessage(ctx context.Context, threadID string, payload core.NewMessagePayload) (core.Event, error) {
	ev := core.NewMessageEvent(threadID, payload)
	if err := e.storage.AddToQueue(ctx, threadID, ev); err != nil {
		return core.Event{}, fmt.Errorf("enqueue message: %w", err)
	}

	if err := e.RunWorker(ctx, threadID); err != nil {
		return ev, err
	}

	return ev, nil
}

// buildContext assembles the per-pass flow context: a fresh thread snapshot
// and the full tool registry (native tools plus everything the sources
// currently offer).
func (e *Engine) buildContext(ctx context.Context, threadID string) (*flow.Context, error) {
	thread, err := e.storage.GetThreadByID(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("load thread %s: %w", threadID, err)
	}

	reg := tool.NewRegistry(e.tools...)
	for _, src := range e.sources {
		if err := reg.AddSource(ctx, src); err != nil {
			return nil, fmt.Errorf("load tool source: %w", err)
		}
	}

	return &flow.Context{
		Thread:    thread,
		Agents:    e.agents,
		Storage:   e.storage,
		Connector: e.connector,
		Tools:     reg,
		OnToken:   e.callbacks.OnToken,
		Logger:    e.logger,
	}, nil
}
