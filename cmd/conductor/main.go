// Package main provides the CLI entry point for Conductor, a checkpointed
// tool-using agent engine.
//
// # Basic Usage
//
// Run a thread:
//
//	conductor run --thread my-task "rename the helper package"
//
// Resume after an interrupt:
//
//	conductor run --thread my-task --approve <tool_call_id>
//	conductor run --thread my-task --reject <tool_call_id> --reason "not on prod"
//
// List checkpointed threads:
//
//	conductor threads
//
// # Environment Variables
//
//   - CONDUCTOR_CONFIG: Path to configuration file
//   - ANTHROPIC_API_KEY: Anthropic API key
//   - OPENAI_API_KEY: OpenAI API key
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/haasonsaas/conductor/internal/config"
)

var version = "dev"

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:          "conductor",
		Short:        "Conductor - checkpointed tool-using agent engine",
		Version:      version,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to configuration file (or set CONDUCTOR_CONFIG)")

	loadConfig := func() (*config.Config, error) {
		path := configPath
		if path == "" {
			path = os.Getenv("CONDUCTOR_CONFIG")
		}
		if path == "" {
			return config.Default(), nil
		}
		return config.Load(path)
	}

	rootCmd.AddCommand(
		buildRunCmd(loadConfig),
		buildThreadsCmd(loadConfig),
	)
	return rootCmd
}

func setupLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
