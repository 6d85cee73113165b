// Package config loads runtime configuration from the environment and agent
// rosters from YAML files.
package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/logging"
)

// Config is the process-level runtime configuration, populated from
// AGENTRELAY_* environment variables.
type Config struct {
	// Provider selects the chat backend: "openai", "anthropic" or "mock".
	Provider string `envconfig:"PROVIDER" default:"openai"`

	// Model is the default model identifier, overridable per agent.
	Model string `envconfig:"MODEL" default:"gpt-4o-mini"`

	// Temperature is the default sampling temperature.
	Temperature float64 `envconfig:"TEMPERATURE" default:"0.7"`

	// MaxTokens caps the completion length; 0 leaves the provider default.
	MaxTokens int `envconfig:"MAX_TOKENS" default:"0"`

	// StorePath is the SQLite database path. Empty selects the in-memory
	// store.
	StorePath string `envconfig:"STORE_PATH"`

	// AgentsFile is the path of the YAML agent roster.
	AgentsFile string `envconfig:"AGENTS_FILE"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// LogFormat is "text" or "json".
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`
}

// Load populates Config from AGENTRELAY_* environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("AGENTRELAY", &cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}
	return &cfg, nil
}

// LoggingConfig translates the runtime config into logger settings.
func (c *Config) LoggingConfig() logging.Config {
	return logging.Config{
		Level:  parseLevel(c.LogLevel),
		Format: c.LogFormat,
	}
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// roster is the YAML document shape for agent files.
type roster struct {
	Agents []core.Agent `yaml:"agents"`
}

// LoadAgents reads a YAML agent roster from path and validates it: every
// agent needs an id and a name, both unique within the file.
func LoadAgents(path string) ([]core.Agent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read agents file: %w", err)
	}

	return ParseAgents(data)
}

// ParseAgents decodes and validates an agent roster from raw YAML.
func ParseAgents(data []byte) ([]core.Agent, error) {
	var r roster
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode agents yaml: %w", err)
	}

	if len(r.Agents) == 0 {
		return nil, fmt.Errorf("agents file defines no agents")
	}

	seenID := make(map[string]bool, len(r.Agents))
	seenName := make(map[string]bool, len(r.Agents))

	for i, a := range r.Agents {
		if a.ID == "" {
			return nil, fmt.Errorf("agent %d: missing id", i)
		}

		if a.Name == "" {
			return nil, fmt.Errorf("agent %q: missing name", a.ID)
		}

		if seenID[a.ID] {
			return nil, fmt.Errorf("duplicate agent id %q", a.ID)
		}

		if seenName[a.Name] {
			return nil, fmt.Errorf("duplicate agent name %q", a.Name)
		}

		seenID[a.ID] = true
		seenName[a.Name] = true
	}

	return r.Agents, nil
}
