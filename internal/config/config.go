// Package config loads and validates the Conductor configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the main configuration structure for Conductor.
type Config struct {
	Provider    ProviderConfig   `yaml:"provider"`
	Engine      EngineConfig     `yaml:"engine"`
	Workspace   WorkspaceConfig  `yaml:"workspace"`
	Checkpoints CheckpointConfig `yaml:"checkpoints"`
	Compaction  CompactionConfig `yaml:"compaction"`
	Gate        GateConfig       `yaml:"gate"`
	Logging     LoggingConfig    `yaml:"logging"`
}

// ProviderConfig selects and configures the model backend.
type ProviderConfig struct {
	// Name is "anthropic" or "openai".
	Name    string `yaml:"name"`
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	// SummaryModel runs transcript summarization; defaults to Model.
	SummaryModel string `yaml:"summary_model"`
}

// EngineConfig tunes the step loop.
type EngineConfig struct {
	SystemPrompt string        `yaml:"system_prompt"`
	MaxSteps     int           `yaml:"max_steps"`
	MaxTokens    int           `yaml:"max_tokens"`
	ToolTimeout  time.Duration `yaml:"tool_timeout"`
	// ToolConcurrency bounds parallel tool execution within one step.
	ToolConcurrency int `yaml:"tool_concurrency"`
}

// WorkspaceConfig selects the virtual store backend.
type WorkspaceConfig struct {
	// Type is "memory", "disk", "sandbox", or "kv".
	Type string `yaml:"type"`
	// Root is the storage root for disk and sandbox backends.
	Root string `yaml:"root"`
	// SQLitePath backs the kv workspace.
	SQLitePath string `yaml:"sqlite_path"`
	// Namespace prefixes kv workspace keys.
	Namespace string `yaml:"namespace"`
	// MaxStreamBytes caps each of stdout and stderr for sandbox
	// execution; 0 uses the built-in default.
	MaxStreamBytes int `yaml:"max_stream_bytes"`
	// Mounts route path prefixes to additional backends; the Type
	// backend above serves everything else.
	Mounts []MountConfig `yaml:"mounts"`
}

// MountConfig binds a path prefix to a secondary workspace backend.
type MountConfig struct {
	Prefix string `yaml:"prefix"`
	// Type is "memory", "disk", or "kv". Sandbox mounts are not
	// supported; only the primary backend can execute.
	Type       string `yaml:"type"`
	Root       string `yaml:"root"`
	SQLitePath string `yaml:"sqlite_path"`
	Namespace  string `yaml:"namespace"`
}

// CheckpointConfig selects the checkpoint store backend.
type CheckpointConfig struct {
	// Type is "memory", "disk", or "kv".
	Type string `yaml:"type"`
	// Dir holds per-thread JSON files for the disk backend.
	Dir string `yaml:"dir"`
	// SQLitePath backs the kv checkpoint store.
	SQLitePath string `yaml:"sqlite_path"`
}

// CompactionConfig tunes result eviction and transcript summarization.
type CompactionConfig struct {
	MaxResultTokens     int  `yaml:"max_result_tokens"`
	MaxTranscriptTokens int  `yaml:"max_transcript_tokens"`
	KeepRecent          int  `yaml:"keep_recent"`
	DisableSummary      bool `yaml:"disable_summary"`
}

// GateConfig configures the interrupt gate.
type GateConfig struct {
	Allowlist       []string `yaml:"allowlist"`
	RequireApproval []string `yaml:"require_approval"`
	// DefaultDecision is "allowed" or "pending".
	DefaultDecision string `yaml:"default_decision"`
}

// LoggingConfig tunes the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given: in-memory
// workspace and checkpoints, Anthropic provider keyed from the environment.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads and parses the configuration file. Environment variables in
// the file expand before parsing, so api_key can stay out of the file
// itself (api_key: ${ANTHROPIC_API_KEY}).
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the wiring cannot honor.
func (c *Config) Validate() error {
	switch c.Provider.Name {
	case "anthropic", "openai":
	default:
		return fmt.Errorf("unknown provider %q", c.Provider.Name)
	}
	switch c.Workspace.Type {
	case "memory", "kv":
	case "disk", "sandbox":
		if c.Workspace.Root == "" {
			return fmt.Errorf("workspace type %q requires root", c.Workspace.Type)
		}
	default:
		return fmt.Errorf("unknown workspace type %q", c.Workspace.Type)
	}
	for _, m := range c.Workspace.Mounts {
		if m.Prefix == "" {
			return fmt.Errorf("workspace mount requires prefix")
		}
		switch m.Type {
		case "memory", "kv":
		case "disk":
			if m.Root == "" {
				return fmt.Errorf("mount %q: disk mount requires root", m.Prefix)
			}
		default:
			return fmt.Errorf("mount %q: unknown type %q", m.Prefix, m.Type)
		}
	}
	switch c.Checkpoints.Type {
	case "memory", "kv":
	case "disk":
		if c.Checkpoints.Dir == "" {
			return fmt.Errorf("checkpoint type disk requires dir")
		}
	default:
		return fmt.Errorf("unknown checkpoint type %q", c.Checkpoints.Type)
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Provider.Name == "" {
		cfg.Provider.Name = "anthropic"
	}
	if cfg.Provider.APIKey == "" {
		switch cfg.Provider.Name {
		case "openai":
			cfg.Provider.APIKey = os.Getenv("OPENAI_API_KEY")
		default:
			cfg.Provider.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	}
	if cfg.Engine.MaxSteps == 0 {
		cfg.Engine.MaxSteps = 50
	}
	if cfg.Engine.MaxTokens == 0 {
		cfg.Engine.MaxTokens = 4096
	}
	if cfg.Engine.ToolTimeout == 0 {
		cfg.Engine.ToolTimeout = 2 * time.Minute
	}
	if cfg.Engine.ToolConcurrency == 0 {
		cfg.Engine.ToolConcurrency = 4
	}
	if cfg.Workspace.Type == "" {
		cfg.Workspace.Type = "memory"
	}
	if cfg.Workspace.Namespace == "" {
		cfg.Workspace.Namespace = "files"
	}
	if cfg.Checkpoints.Type == "" {
		cfg.Checkpoints.Type = "memory"
	}
	if cfg.Compaction.MaxResultTokens == 0 {
		cfg.Compaction.MaxResultTokens = 2000
	}
	if cfg.Compaction.MaxTranscriptTokens == 0 {
		cfg.Compaction.MaxTranscriptTokens = 100000
	}
	if cfg.Compaction.KeepRecent == 0 {
		cfg.Compaction.KeepRecent = 8
	}
	if cfg.Gate.DefaultDecision == "" {
		cfg.Gate.DefaultDecision = "allowed"
	}
	if len(cfg.Gate.RequireApproval) == 0 {
		cfg.Gate.RequireApproval = []string{"execute"}
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}
