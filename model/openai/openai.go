// Package openai provides a model.Connector implementation backed by the
// OpenAI Chat Completions API (including streaming and function/tool
// calling). It adapts agentrelay's normalized ChatRequest/ChatResponse
// structures into the SDK's message format and back.
package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"

	"github.com/hupe1980/agentrelay/model"
)

// aggCall aggregates partial tool call streaming deltas (id, name, arguments)
// allowing reconstruction of complete tool calls when the finish reason is
// emitted. Internal helper (unexported).
type aggCall struct{ id, name, args string }

// Options configure the OpenAI connector. Fields mirror a subset of Chat
// Completion parameters intentionally kept minimal.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
}

// Connector wraps the OpenAI Chat Completions API behind model.Connector.
type Connector struct {
	client *openai.Client
	opts   Options
}

// New creates a new OpenAI connector using the official client with
// credentials resolved from the environment.
func New(optFns ...func(o *Options)) *Connector {
	client := openai.NewClient()
	return NewFromClient(&client, optFns...)
}

// NewFromClient creates a new OpenAI connector from an existing client.
func NewFromClient(client *openai.Client, optFns ...func(o *Options)) *Connector {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Connector{client: client, opts: opts}
}

// Chat implements model.Connector. Per-agent cfg overrides the connector
// defaults; a non-nil stream switches to the streaming API and forwards
// content tokens as they arrive.
func (c *Connector) Chat(ctx context.Context, req model.ChatRequest, cfg model.Config, stream model.StreamFunc) (*model.ChatResponse, error) {
	params := c.buildParams(req, cfg)
	if stream != nil {
		return c.chatStreaming(ctx, params, stream)
	}
	return c.chatBlocking(ctx, params)
}

// Info implements model.Connector.
func (c *Connector) Info() model.Info {
	return model.Info{Provider: "openai", SupportsTools: true}
}

// buildParams assembles the OpenAI request including tool definitions.
func (c *Connector) buildParams(req model.ChatRequest, cfg model.Config) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Messages:            buildMessages(req.Messages),
		Model:               c.opts.Model,
		Temperature:         openai.Float(c.opts.Temperature),
		MaxCompletionTokens: openai.Int(c.opts.MaxCompletionTokens),
	}
	if cfg.Model != "" {
		params.Model = cfg.Model
	}
	if cfg.Temperature != 0 {
		params.Temperature = openai.Float(cfg.Temperature)
	}
	if cfg.MaxTokens != 0 {
		params.MaxCompletionTokens = openai.Int(cfg.MaxTokens)
	}
	if len(req.Tools) == 0 {
		return params
	}
	tools := make([]openai.ChatCompletionToolParam, len(req.Tools))
	for i, tdef := range req.Tools {
		tools[i] = openai.ChatCompletionToolParam{
			Type: "function",
			Function: openai.FunctionDefinitionParam{
				Name:        tdef.Function.Name,
				Description: openai.String(tdef.Function.Description),
				Parameters:  tdef.Function.Parameters,
			},
		}
	}
	params.Tools = tools
	return params
}

// buildMessages converts normalized chat messages into OpenAI chat messages.
func buildMessages(msgs []model.ChatMessage) []openai.ChatCompletionMessageParamUnion {
	var messages []openai.ChatCompletionMessageParamUnion
	for _, m := range msgs {
		switch m.Role {
		case "system":
			messages = append(messages, openai.SystemMessage(m.Content))
		case "tool":
			messages = append(messages, openai.ToolMessage(m.Content, m.ToolCallID))
		case "assistant":
			if len(m.ToolCalls) == 0 {
				messages = append(messages, openai.AssistantMessage(m.Content))
				continue
			}
			messages = append(
				messages,
				openai.ChatCompletionMessageParamUnion{OfAssistant: &openai.ChatCompletionAssistantMessageParam{
					Role:      "assistant",
					ToolCalls: toToolCallParams(m.ToolCalls),
				}},
			)
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}
	return messages
}

// toToolCallParams converts normalized tool calls to OpenAI assistant params.
func toToolCallParams(calls []model.ToolCall) []openai.ChatCompletionMessageToolCallParam {
	out := make([]openai.ChatCompletionMessageToolCallParam, len(calls))
	for i, tc := range calls {
		out[i] = openai.ChatCompletionMessageToolCallParam{
			ID:   tc.ID,
			Type: "function",
			Function: openai.ChatCompletionMessageToolCallFunctionParam{
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			},
		}
	}
	return out
}

// chatBlocking performs a normal (non-streaming) completion.
func (c *Connector) chatBlocking(ctx context.Context, params openai.ChatCompletionNewParams) (*model.ChatResponse, error) {
	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return &model.ChatResponse{}, nil
	}
	choice := completion.Choices[0]
	resp := &model.ChatResponse{Answer: choice.Message.Content}
	for _, tc := range choice.Message.ToolCalls {
		resp.ToolCalls = append(resp.ToolCalls, model.ToolCall{
			ID:   tc.ID,
			Type: "function",
			Function: model.ToolCallFunction{
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			},
		})
	}
	return resp, nil
}

// chatStreaming drives the streaming API, forwarding content deltas to the
// stream callback and aggregating tool call deltas into complete calls.
func (c *Connector) chatStreaming(ctx context.Context, params openai.ChatCompletionNewParams, stream model.StreamFunc) (*model.ChatResponse, error) {
	s := c.client.Chat.Completions.NewStreaming(ctx, params)
	var answer strings.Builder
	toolAgg := map[int64]*aggCall{}
	var order []int64
	for s.Next() {
		ck := s.Current()
		for _, ch := range ck.Choices {
			if ch.Delta.Content != "" {
				answer.WriteString(ch.Delta.Content)
				stream(ch.Delta.Content)
			}
			for _, tc := range ch.Delta.ToolCalls {
				ac, ok := toolAgg[tc.Index]
				if !ok {
					ac = &aggCall{}
					toolAgg[tc.Index] = ac
					order = append(order, tc.Index)
				}
				if tc.ID != "" {
					ac.id = tc.ID
				}
				if tc.Function.Name != "" {
					ac.name = tc.Function.Name
				}
				if tc.Function.Arguments != "" {
					ac.args += tc.Function.Arguments
				}
			}
		}
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("openai streaming: %w", err)
	}
	resp := &model.ChatResponse{Answer: answer.String()}
	for _, idx := range order {
		ac := toolAgg[idx]
		resp.ToolCalls = append(resp.ToolCalls, model.ToolCall{
			ID:   ac.id,
			Type: "function",
			Function: model.ToolCallFunction{
				Name:      ac.name,
				Arguments: ac.args,
			},
		})
	}
	return resp, nil
}
