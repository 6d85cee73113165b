// Package flow implements the default event processors that drive a
// conversation turn: NEW_MESSAGE routing, LLM_CALL delegation and TOOL_CALL
// execution. Each processor consumes one event and may produce follow-up
// events; the engine's worker drains them in strict priority order.
package flow

import (
	"context"

	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/logging"
	"github.com/hupe1980/agentrelay/model"
	"github.com/hupe1980/agentrelay/tool"
)

// Processor handles one event type. Custom processors registered with the
// engine implement the same interface; the first processor producing a
// non-empty event list wins.
type Processor interface {
	// Type returns the event type this processor handles.
	Type() core.EventType

	// ShouldProcess lets a processor decline an event it is not interested
	// in without counting as the winning producer.
	ShouldProcess(fc *Context, ev core.Event) bool

	// Process consumes the event and returns follow-up events (all enqueued
	// as pending before the current event reaches a terminal status).
	Process(ctx context.Context, fc *Context, ev core.Event) ([]core.Event, error)
}

// TokenFunc forwards streaming completion tokens to the caller. Tokens are
// ephemeral: they never become events.
type TokenFunc func(threadID, agentName, token string)

// Context bundles the dependencies a processor needs for one event. It is
// rebuilt by the worker for every event: thread snapshot, agent roster,
// storage handle, connector and the fully assembled tool registry.
type Context struct {
	Thread    *core.Thread
	Agents    []core.Agent
	Storage   core.Storage
	Connector model.Connector
	Tools     *tool.Registry
	OnToken   TokenFunc
	Logger    logging.Logger
}

// AgentByID resolves an agent by id.
func (c *Context) AgentByID(id string) (core.Agent, bool) {
	for _, a := range c.Agents {
		if a.ID == id {
			return a, true
		}
	}
	return core.Agent{}, false
}

// AgentByName resolves an agent by display name.
func (c *Context) AgentByName(name string) (core.Agent, bool) {
	for _, a := range c.Agents {
		if a.Name == name {
			return a, true
		}
	}
	return core.Agent{}, false
}

// logger returns the context logger, defaulting to the no-op logger.
func (c *Context) logger() logging.Logger {
	if c.Logger == nil {
		return logging.NoOpLogger{}
	}
	return c.Logger
}

// Defaults returns the three default processors in dispatch order.
func Defaults() []Processor {
	return []Processor{
		NewMessageProcessor{},
		LLMCallProcessor{},
		ToolCallProcessor{},
	}
}
