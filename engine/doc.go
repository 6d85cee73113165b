// Package engine hosts the orchestration core: the per-thread worker that
// drains the event queue in strict priority order, the override/extension
// dispatch chain (caller OnEvent hook, custom processors, default
// processors) and the status-transition discipline that makes the queue a
// replayable execution trace.
//
// Concurrency model: one logical pass per thread at a time. Multiple threads
// drain concurrently and independently; within a thread every event's side
// effects, including enqueuing follow-ups, complete before the next event is
// dequeued. The guarantee is enforced twice: a best-effort check of the
// persisted processing row (safe across processes, racy by design) and an
// in-memory mutex keyed by thread id that closes the race window within one
// process.
package engine
