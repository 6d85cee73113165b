// Package core provides the foundational domain types and interfaces used by
// agentrelay. It defines the core abstractions for:
//
//   - Events (persisted, typed units of work in a thread's queue)
//   - Threads (conversation scopes owning messages and an event queue)
//   - Messages (the durable conversational transcript, distinct from events)
//   - Agents (read-only LLM persona configuration with allow-lists)
//   - Storage (the narrow persistence contract the worker drains against)
//
// The package intentionally keeps implementation concerns (persistence,
// worker orchestration, concrete processors) out of scope, exposing small
// interfaces to enable custom backends and extensions.
//
// The split between Event and Message is deliberate: the event queue is the
// durable execution trace, the message table is the durable transcript.
// Processing a NEW_MESSAGE event persists exactly one Message before any
// routing decision is taken.
package core
