package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/flow"
)

// RunWorker drains the thread's queue until no pending event remains. It is
// idempotent: running it on an empty or fully drained queue is a no-op.
//
// The drain is a flat loop, not a recursion: each iteration dequeues exactly
// one event, processes it, persists its follow-up events, and only then
// marks it terminal. An event's fan-out is therefore visible in the queue
// before the event itself leaves processing, so a crash between the two steps
// leaves a re-runnable trace rather than lost work.
//
// On the first processing error the worker marks the event failed and stops;
// remaining pending events stay in the queue untouched.
func (e *Engine) RunWorker(ctx context.Context, threadID string) error {
	unlock := e.locks.Acquire(threadID)
	defer unlock()

	// Best-effort cross-process guard. If another worker already holds an
	// event in processing, back off and let it finish the drain.
	if item, err := e.storage.GetProcessingQueueItem(ctx, threadID); err != nil {
		if !errors.Is(err, core.ErrNotFound) {
			return fmt.Errorf("check processing item: %w", err)
		}
	} else if item != nil {
		e.logger.Debug("worker backing off, thread busy", "threadId", threadID, "eventId", item.ID)
		return nil
	}

	for {
		ev, err := e.storage.GetNextPendingQueueItem(ctx, threadID)
		if err != nil {
			if errors.Is(err, core.ErrNotFound) {
				return nil
			}

			return fmt.Errorf("next pending item: %w", err)
		}

		if err := e.processOne(ctx, threadID, *ev); err != nil {
			return err
		}
	}
}

// processOne runs a single event through the dispatch chain and applies the
// status discipline: processing while in flight, then exactly one of
// completed, overwritten or failed.
func (e *Engine) processOne(ctx context.Context, threadID string, ev core.Event) error {
	if err := e.storage.UpdateQueueItemStatus(ctx, ev.ID, core.StatusProcessing); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	e.logger.Debug("processing event", "threadId", threadID, "eventId", ev.ID, "type", ev.Type, "traceId", ev.TraceID, "priority", ev.Priority)

	fc, err := e.buildContext(ctx, threadID)
	if err != nil {
		return e.fail(ctx, ev, err)
	}

	produced, terminal, err := e.dispatch(ctx, fc, ev)
	if err != nil {
		return e.fail(ctx, ev, err)
	}

	for _, child := range produced {
		if err := e.storage.AddToQueue(ctx, child.ThreadID, child); err != nil {
			return e.fail(ctx, ev, fmt.Errorf("enqueue follow-up: %w", err))
		}
	}

	if err := e.storage.UpdateQueueItemStatus(ctx, ev.ID, terminal); err != nil {
		return fmt.Errorf("mark %s: %w", terminal, err)
	}

	return nil
}

// fail marks the event failed and returns the original processing error,
// wrapped. The status update is best-effort; if it also fails the processing
// error still wins.
func (e *Engine) fail(ctx context.Context, ev core.Event, cause error) error {
	e.logger.Error("event processing failed", "eventId", ev.ID, "type", ev.Type, "error", cause)

	if err := e.storage.UpdateQueueItemStatus(ctx, ev.ID, core.StatusFailed); err != nil {
		e.logger.Error("marking event failed", "eventId", ev.ID, "error", err)
	}

	return fmt.Errorf("process event %s: %w", ev.ID, cause)
}

// dispatch resolves which handler services the event and returns its produced
// events together with the terminal status for the observed event.
//
// Precedence: the caller OnEvent hook (non-empty result overrides and yields
// overwritten), then custom processors in registration order (first non-empty
// producer wins), then the default processor for the event type. Hook and
// custom-processor errors are logged and skipped; only the selected handler's
// error fails the event.
func (e *Engine) dispatch(ctx context.Context, fc *flow.Context, ev core.Event) ([]core.Event, core.EventStatus, error) {
	if hook := e.callbacks.OnEvent; hook != nil {
		produced, err := e.safeOnEvent(ctx, hook, ev)
		if err != nil {
			e.logger.Warn("onEvent hook error, continuing with processors", "eventId", ev.ID, "error", err)
		} else if len(produced) > 0 {
			return produced, core.StatusOverwritten, nil
		}
	}

	for _, p := range e.custom[ev.Type] {
		if !p.ShouldProcess(fc, ev) {
			continue
		}

		produced, err := e.safeProcess(ctx, p, fc, ev)
		if err != nil {
			e.logger.Warn("custom processor error, trying next", "eventId", ev.ID, "error", err)
			continue
		}

		if len(produced) > 0 {
			return produced, core.StatusCompleted, nil
		}
	}

	p, ok := e.defaults[ev.Type]
	if !ok || !p.ShouldProcess(fc, ev) {
		e.logger.Debug("no processor for event", "eventId", ev.ID, "type", ev.Type)
		return nil, core.StatusCompleted, nil
	}

	produced, err := p.Process(ctx, fc, ev)
	if err != nil {
		return nil, core.StatusFailed, err
	}

	return produced, core.StatusCompleted, nil
}

// safeOnEvent shields the drain loop from a panicking hook.
func (e *Engine) safeOnEvent(ctx context.Context, hook OnEventFunc, ev core.Event) (produced []core.Event, err error) {
	defer func() {
		if r := recover(); r != nil {
			produced, err = nil, fmt.Errorf("onEvent hook panic: %v", r)
		}
	}()

	return hook(ctx, ev)
}

// safeProcess shields the drain loop from a panicking custom processor.
func (e *Engine) safeProcess(ctx context.Context, p flow.Processor, fc *flow.Context, ev core.Event) (produced []core.Event, err error) {
	defer func() {
		if r := recover(); r != nil {
			produced, err = nil, fmt.Errorf("processor panic: %v", r)
		}
	}()

	return p.Process(ctx, fc, ev)
}
