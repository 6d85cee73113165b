package flow

import (
	"regexp"

	"github.com/hupe1980/agentrelay/core"
)

// mentionPattern captures @name mentions. Identifiers are word characters
// plus dashes; no trailing word boundary is required so "@Bob," matches.
var mentionPattern = regexp.MustCompile(`@([\w-]+)`)

// resolveTargets determines which agents must react to a message. The rules
// apply in order, first match wins:
//
//  1. Tool results, and agent turns carrying tool calls, route back to the
//     single agent whose id equals the sender id — tool traffic always
//     returns to its requester.
//  2. @name mentions, in first-occurrence order and de-duplicated. When the
//     sender is itself an agent, mentions outside the sender's AllowedAgents
//     list are dropped (an empty allow-list imposes no restriction).
//  3. In a thread with exactly two participants, the other participant —
//     no mention required in 1:1 threads.
//  4. Otherwise no implicit target: the message stays persisted but nothing
//     is dispatched.
func resolveTargets(fc *Context, p *core.NewMessagePayload) []core.Agent {
	if p.SenderType == core.SenderTool || len(p.ToolCalls) > 0 {
		if requester, ok := fc.AgentByID(p.SenderID); ok {
			return []core.Agent{requester}
		}
		return nil
	}

	if targets := mentionedAgents(fc, p); len(targets) > 0 {
		return targets
	}

	if other := fc.Thread.OtherParticipant(p.SenderID); other != "" {
		if target, ok := fc.AgentByID(other); ok {
			return []core.Agent{target}
		}
	}

	return nil
}

// mentionedAgents scans content for @name mentions and resolves them to
// known agents, preserving first-occurrence order.
func mentionedAgents(fc *Context, p *core.NewMessagePayload) []core.Agent {
	matches := mentionPattern.FindAllStringSubmatch(p.Content, -1)
	if len(matches) == 0 {
		return nil
	}

	var sender *core.Agent
	if p.SenderType == core.SenderAgent {
		if a, ok := fc.AgentByID(p.SenderID); ok {
			sender = &a
		}
	}

	seen := map[string]bool{}
	var targets []core.Agent
	for _, m := range matches {
		name := m[1]
		if seen[name] {
			continue
		}
		seen[name] = true

		target, ok := fc.AgentByName(name)
		if !ok {
			continue
		}
		if sender != nil && !sender.MayAddress(name) {
			continue
		}
		targets = append(targets, target)
	}
	return targets
}
