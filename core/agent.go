package core

import "github.com/hupe1980/agentrelay/model"

// Agent is read-only persona configuration supplied by the caller at session
// start. The core never mutates agents; routing and tool resolution only read
// the allow-lists.
//
// An empty AllowedAgents list means the agent may address any peer; an empty
// AllowedTools list means the agent gets no tools (tools are opt-in).
type Agent struct {
	ID            string       `json:"id" yaml:"id"`
	Name          string       `json:"name" yaml:"name"`
	Role          string       `json:"role,omitempty" yaml:"role,omitempty"`
	Personality   string       `json:"personality,omitempty" yaml:"personality,omitempty"`
	Instructions  string       `json:"instructions,omitempty" yaml:"instructions,omitempty"`
	AllowedAgents []string     `json:"allowed_agents,omitempty" yaml:"allowed_agents,omitempty"`
	AllowedTools  []string     `json:"allowed_tools,omitempty" yaml:"allowed_tools,omitempty"`
	LLMOptions    model.Config `json:"llm_options,omitempty" yaml:"llm_options,omitempty"`
}

// MayAddress reports whether the agent is allowed to address the named peer.
// An empty allow-list imposes no restriction.
func (a Agent) MayAddress(name string) bool {
	if len(a.AllowedAgents) == 0 {
		return true
	}
	for _, allowed := range a.AllowedAgents {
		if allowed == name {
			return true
		}
	}
	return false
}

// MayUseTool reports whether the tool key is on the agent's allow-list.
func (a Agent) MayUseTool(key string) bool {
	for _, allowed := range a.AllowedTools {
		if allowed == key {
			return true
		}
	}
	return false
}
