package engine

import (
	"context"

	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/flow"
)

// OnEventFunc is the caller-level override hook. It runs before any
// processor. Returning a non-empty slice of events replaces the default
// handling entirely: the returned events are enqueued and the observed event
// is marked overwritten instead of completed. Returning an empty slice (or
// nil) means "just observing"; normal processing continues unchanged.
//
// Errors and panics from the hook are logged and swallowed; an override hook
// must never break the pipeline.
type OnEventFunc func(ctx context.Context, ev core.Event) ([]core.Event, error)

// Callbacks bundles the optional hooks a caller can attach to an engine.
type Callbacks struct {
	// OnEvent observes (and may override) every event before processing.
	OnEvent OnEventFunc

	// OnToken receives streamed tokens from model calls as they arrive.
	// Tokens are ephemeral and never stored.
	OnToken flow.TokenFunc
}
