// Package model defines the normalized chat connector contract between the
// orchestration core and concrete LLM providers. Provider adapters live in
// subpackages (openai, anthropic) and translate ChatRequest/ChatResponse to
// vendor SDK calls; the core depends only on the Connector interface.
package model
