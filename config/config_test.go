package config

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.Model)
	assert.Equal(t, 0.7, cfg.Temperature)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("AGENTRELAY_PROVIDER", "anthropic")
	t.Setenv("AGENTRELAY_MODEL", "claude-sonnet-4-20250514")
	t.Setenv("AGENTRELAY_LOG_LEVEL", "debug")
	t.Setenv("AGENTRELAY_STORE_PATH", "/tmp/relay.db")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "anthropic", cfg.Provider)
	assert.Equal(t, "claude-sonnet-4-20250514", cfg.Model)
	assert.Equal(t, "/tmp/relay.db", cfg.StorePath)
	assert.Equal(t, slog.LevelDebug, cfg.LoggingConfig().Level)
}

func TestParseAgents(t *testing.T) {
	agents, err := ParseAgents([]byte(`
agents:
  - id: agent-alice
    name: Alice
    role: analyst
    allowed_agents: [Bob]
    llm_options:
      model: gpt-4o-mini
      temperature: 0.2
  - id: agent-bob
    name: Bob
    allowed_tools: [get_weather]
`))
	require.NoError(t, err)
	require.Len(t, agents, 2)

	assert.Equal(t, "agent-alice", agents[0].ID)
	assert.Equal(t, []string{"Bob"}, agents[0].AllowedAgents)
	assert.Equal(t, "gpt-4o-mini", agents[0].LLMOptions.Model)
	assert.InDelta(t, 0.2, agents[0].LLMOptions.Temperature, 1e-9)

	assert.True(t, agents[1].MayUseTool("get_weather"))
	assert.False(t, agents[1].MayUseTool("drop_tables"))
}

func TestParseAgents_Validation(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{"empty roster", "agents: []", "no agents"},
		{"missing id", "agents:\n  - name: Alice", "missing id"},
		{"missing name", "agents:\n  - id: a1", "missing name"},
		{"duplicate id", "agents:\n  - id: a1\n    name: Alice\n  - id: a1\n    name: Bob", "duplicate agent id"},
		{"duplicate name", "agents:\n  - id: a1\n    name: Alice\n  - id: a2\n    name: Alice", "duplicate agent name"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseAgents([]byte(tc.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}
