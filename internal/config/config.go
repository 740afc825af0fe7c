// Package config loads the game master's configuration: a YAML file
// layered under environment overrides. Missing file means defaults; an
// unreadable or malformed file is an error, never a silent fallback.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"agentgm/internal/embedding"
	"agentgm/internal/logging"
	"agentgm/internal/memory"
)

// Provider selects and tunes the completion backend.
type Provider struct {
	// Name is "openai" (any OpenAI-compatible endpoint) or "anthropic".
	Name    string `yaml:"name"`
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`

	MaxAttempts int           `yaml:"max_attempts"`
	BaseBackoff time.Duration `yaml:"base_backoff"`
	CallTimeout time.Duration `yaml:"call_timeout"`
}

// Config is the full configuration tree.
type Config struct {
	Provider  Provider         `yaml:"provider"`
	Embedding embedding.Config `yaml:"embedding"`
	Memory    memory.Config    `yaml:"memory"`
	Logging   logging.Config   `yaml:"logging"`

	// DBPath is the SQLite world database. ":memory:" is accepted.
	DBPath string `yaml:"db_path"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Provider: Provider{
			Name:        "openai",
			MaxAttempts: 3,
			BaseBackoff: time.Second,
			CallTimeout: 30 * time.Second,
		},
		Embedding: embedding.Config{Provider: "ollama"},
		Memory:    memory.DefaultConfig(),
		DBPath:    "world.db",
	}
}

// Load reads path (when it exists), then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	applyEnvOverrides(cfg)
	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	switch c.Provider.Name {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("unknown provider %q", c.Provider.Name)
	}
	if c.Memory.CompactTrigger <= c.Memory.WindowCapacity {
		return fmt.Errorf("memory compact_trigger (%d) must exceed window_capacity (%d)",
			c.Memory.CompactTrigger, c.Memory.WindowCapacity)
	}
	return nil
}
