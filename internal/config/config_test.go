package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "conductor.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
provider:
  name: anthropic
  api_key: sk-test
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Workspace.Type != "memory" || cfg.Checkpoints.Type != "memory" {
		t.Errorf("backend defaults: %+v %+v", cfg.Workspace, cfg.Checkpoints)
	}
	if cfg.Engine.MaxSteps != 50 || cfg.Engine.ToolTimeout != 2*time.Minute {
		t.Errorf("engine defaults: %+v", cfg.Engine)
	}
	if cfg.Compaction.KeepRecent != 8 {
		t.Errorf("compaction defaults: %+v", cfg.Compaction)
	}
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("TEST_CONDUCTOR_KEY", "sk-from-env")
	path := writeConfig(t, `
provider:
  name: openai
  api_key: ${TEST_CONDUCTOR_KEY}
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider.APIKey != "sk-from-env" {
		t.Errorf("api key = %q", cfg.Provider.APIKey)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(c *Config) {}, true},
		{"bad provider", func(c *Config) { c.Provider.Name = "bard" }, false},
		{"disk workspace without root", func(c *Config) { c.Workspace.Type = "disk" }, false},
		{"disk workspace with root", func(c *Config) { c.Workspace.Type = "disk"; c.Workspace.Root = "/tmp/ws" }, true},
		{"sandbox without root", func(c *Config) { c.Workspace.Type = "sandbox" }, false},
		{"disk checkpoints without dir", func(c *Config) { c.Checkpoints.Type = "disk" }, false},
		{"unknown checkpoint type", func(c *Config) { c.Checkpoints.Type = "s3" }, false},
		{"memory mount", func(c *Config) {
			c.Workspace.Mounts = []MountConfig{{Prefix: "/scratch", Type: "memory"}}
		}, true},
		{"mount without prefix", func(c *Config) {
			c.Workspace.Mounts = []MountConfig{{Type: "memory"}}
		}, false},
		{"disk mount without root", func(c *Config) {
			c.Workspace.Mounts = []MountConfig{{Prefix: "/data", Type: "disk"}}
		}, false},
		{"sandbox mount", func(c *Config) {
			c.Workspace.Mounts = []MountConfig{{Prefix: "/run", Type: "sandbox", Root: "/tmp/run"}}
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok && err != nil {
				t.Errorf("Validate: %v", err)
			}
			if !tt.ok && err == nil {
				t.Error("Validate: expected error")
			}
		})
	}
}
