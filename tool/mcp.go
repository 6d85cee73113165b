package tool

import (
	"context"
	"fmt"
	"strings"

	mcpclient "github.com/mark3labs/mcp-go/client"
	mcpprotocol "github.com/mark3labs/mcp-go/mcp"
)

// MCPSource generates tools from an MCP server reached over stdio. The
// server process is spawned on first resolution, the protocol handshake is
// performed once, and every advertised tool is adapted to the Tool contract.
type MCPSource struct {
	Command string
	Args    []string
	Env     map[string]string

	client mcpclient.MCPClient
}

// NewMCPSource describes an MCP server to spawn over stdio.
func NewMCPSource(command string, args ...string) *MCPSource {
	return &MCPSource{Command: command, Args: args}
}

// Tools implements Source: spawn, initialize, list, adapt.
func (s *MCPSource) Tools(ctx context.Context) ([]Tool, error) {
	if s.client == nil {
		client, err := mcpclient.NewStdioMCPClient(s.Command, envMapToSlice(s.Env), s.Args...)
		if err != nil {
			return nil, fmt.Errorf("spawn mcp server %q: %w", s.Command, err)
		}

		initReq := mcpprotocol.InitializeRequest{}
		initReq.Params.ProtocolVersion = mcpprotocol.LATEST_PROTOCOL_VERSION
		initReq.Params.ClientInfo = mcpprotocol.Implementation{
			Name:    "agentrelay",
			Version: "1.0.0",
		}
		if _, err := client.Initialize(ctx, initReq); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("mcp initialize %q: %w", s.Command, err)
		}
		s.client = client
	}

	listed, err := s.client.ListTools(ctx, mcpprotocol.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("mcp tools/list %q: %w", s.Command, err)
	}

	tools := make([]Tool, 0, len(listed.Tools))
	for i := range listed.Tools {
		tools = append(tools, &mcpTool{client: s.client, def: listed.Tools[i]})
	}
	return tools, nil
}

// Close terminates the server process.
func (s *MCPSource) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

// envMapToSlice converts a map to the KEY=VALUE slice format expected by
// exec.Cmd.
func envMapToSlice(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}

// mcpTool adapts one advertised MCP tool to the Tool contract.
type mcpTool struct {
	client mcpclient.MCPClient
	def    mcpprotocol.Tool
}

func (t *mcpTool) Key() string         { return t.def.Name }
func (t *mcpTool) Name() string        { return t.def.Name }
func (t *mcpTool) Description() string { return t.def.Description }

// InputSchema converts the advertised schema to the generic map form.
func (t *mcpTool) InputSchema() map[string]any {
	schema := map[string]any{"type": "object"}
	if t.def.InputSchema.Properties != nil {
		schema["properties"] = t.def.InputSchema.Properties
	} else {
		schema["properties"] = map[string]any{}
	}
	if len(t.def.InputSchema.Required) > 0 {
		schema["required"] = t.def.InputSchema.Required
	}
	return schema
}

// Execute performs a tools/call round trip, flattening text content blocks
// into one string result.
func (t *mcpTool) Execute(ctx context.Context, _ *Context, args map[string]any) (any, error) {
	req := mcpprotocol.CallToolRequest{}
	req.Params.Name = t.def.Name
	req.Params.Arguments = args

	result, err := t.client.CallTool(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("mcp tools/call %q: %w", t.def.Name, err)
	}

	var texts []string
	for _, content := range result.Content {
		if text, ok := mcpprotocol.AsTextContent(content); ok {
			texts = append(texts, text.Text)
		}
	}
	output := strings.Join(texts, "\n")
	if result.IsError {
		return nil, fmt.Errorf("%s", output)
	}
	return output, nil
}
