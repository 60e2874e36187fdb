package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/haasonsaas/conductor/internal/agent"
	"github.com/haasonsaas/conductor/internal/agent/providers"
	"github.com/haasonsaas/conductor/internal/checkpoint"
	"github.com/haasonsaas/conductor/internal/compaction"
	"github.com/haasonsaas/conductor/internal/config"
	"github.com/haasonsaas/conductor/internal/kv"
	"github.com/haasonsaas/conductor/internal/observability"
	"github.com/haasonsaas/conductor/internal/tools/execute"
	"github.com/haasonsaas/conductor/internal/tools/files"
	"github.com/haasonsaas/conductor/internal/tools/task"
	"github.com/haasonsaas/conductor/internal/tools/todos"
	"github.com/haasonsaas/conductor/internal/vfs"
	"github.com/haasonsaas/conductor/pkg/models"
)

type configLoader func() (*config.Config, error)

func buildRunCmd(loadConfig configLoader) *cobra.Command {
	var (
		threadID string
		approves []string
		rejects  []string
		edits    []string
		reason   string
	)

	cmd := &cobra.Command{
		Use:   "run [input]",
		Short: "Run or resume a thread",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := setupLogger(cfg)

			input := ""
			if len(args) > 0 {
				input = args[0]
			}
			resolutions := make(map[string]agent.Resolution)
			for _, id := range approves {
				resolutions[id] = agent.Resolution{Approve: true}
			}
			for _, id := range rejects {
				resolutions[id] = agent.Resolution{Approve: false, Reason: reason}
			}
			for _, edit := range edits {
				id, raw, ok := strings.Cut(edit, "=")
				if !ok || !json.Valid([]byte(raw)) {
					return fmt.Errorf("--edit expects id=<json>, got %q", edit)
				}
				resolutions[id] = agent.Resolution{Approve: true, Input: json.RawMessage(raw)}
			}
			if input == "" && len(resolutions) == 0 {
				return fmt.Errorf("nothing to do: provide input or --approve/--reject")
			}

			rt, err := buildRuntime(cfg)
			if err != nil {
				return err
			}
			defer rt.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			events, err := rt.engine.Run(ctx, agent.Request{
				ThreadID:    threadID,
				Input:       input,
				Resolutions: resolutions,
			})
			if err != nil {
				return err
			}

			logger.Debug("run started", "thread_id", threadID)
			return printEvents(events)
		},
	}

	cmd.Flags().StringVar(&threadID, "thread", "", "Thread ID to run or resume (empty: ephemeral run)")
	cmd.Flags().StringSliceVar(&approves, "approve", nil, "Approve a pending tool call by ID")
	cmd.Flags().StringSliceVar(&rejects, "reject", nil, "Reject a pending tool call by ID")
	cmd.Flags().StringSliceVar(&edits, "edit", nil, "Approve a pending tool call with replaced input (id=<json>)")
	cmd.Flags().StringVar(&reason, "reason", "", "Reason attached to rejections")
	return cmd
}

func buildThreadsCmd(loadConfig configLoader) *cobra.Command {
	threadsCmd := &cobra.Command{
		Use:   "threads",
		Short: "List checkpointed threads",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			setupLogger(cfg)

			rt, err := buildRuntime(cfg)
			if err != nil {
				return err
			}
			defer rt.close()

			threads, err := rt.checkpoints.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(threads) == 0 {
				fmt.Println("no threads")
				return nil
			}
			for _, id := range threads {
				cp, err := rt.checkpoints.Load(cmd.Context(), id)
				if err != nil {
					fmt.Printf("%s\t(unreadable: %v)\n", id, err)
					continue
				}
				fmt.Printf("%s\tstep %d\t%d messages\t%s\n",
					id, cp.Step, len(cp.Messages), cp.CreatedAt.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}

	threadsCmd.AddCommand(&cobra.Command{
		Use:   "delete <thread-id>",
		Short: "Delete a thread's checkpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			setupLogger(cfg)

			rt, err := buildRuntime(cfg)
			if err != nil {
				return err
			}
			defer rt.close()

			if err := rt.checkpoints.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("deleted %s\n", args[0])
			return nil
		},
	})
	return threadsCmd
}

// runtime holds the wired engine and everything that needs closing.
type runtime struct {
	engine      *agent.Engine
	checkpoints checkpoint.Store
	closers     []func() error
}

func (r *runtime) close() {
	for _, fn := range r.closers {
		_ = fn()
	}
}

// buildRuntime assembles the engine from configuration: workspace backend,
// checkpoint store, provider, compaction, gate, and the tool set.
func buildRuntime(cfg *config.Config) (*runtime, error) {
	rt := &runtime{}

	workspace, executor, err := buildWorkspace(cfg, rt)
	if err != nil {
		return nil, err
	}
	checkpoints, err := buildCheckpoints(cfg, rt)
	if err != nil {
		return nil, err
	}
	rt.checkpoints = checkpoints

	provider, err := buildProvider(cfg)
	if err != nil {
		return nil, err
	}

	var summarizer *compaction.Summarizer
	if !cfg.Compaction.DisableSummary {
		summaryModel := cfg.Provider.SummaryModel
		if summaryModel == "" {
			summaryModel = cfg.Provider.Model
		}
		summarizer = compaction.NewSummarizer(
			summaryComplete(provider, summaryModel),
			cfg.Compaction.MaxTranscriptTokens,
			cfg.Compaction.KeepRecent,
		)
	}

	registry := agent.NewRegistry()
	engine, err := agent.NewEngine(agent.Options{
		Provider:     provider,
		Registry:     registry,
		Gate:         agent.NewGate(gatePolicy(cfg)),
		Workspace:    workspace,
		Checkpoints:  checkpoints,
		Evictor:      compaction.NewEvictor(workspace, cfg.Compaction.MaxResultTokens),
		Summarizer:   summarizer,
		Metrics:      observability.NewMetrics(),
		SystemPrompt: cfg.Engine.SystemPrompt,
		Model:        cfg.Provider.Model,
		MaxTokens:    cfg.Engine.MaxTokens,
		MaxSteps:     cfg.Engine.MaxSteps,
		ToolTimeout:  cfg.Engine.ToolTimeout,

		ToolConcurrency: cfg.Engine.ToolConcurrency,
	})
	if err != nil {
		return nil, err
	}
	rt.engine = engine

	toolSet := files.All(files.Config{Store: workspace})
	toolSet = append(toolSet,
		todos.NewWriteTool(engine.Todos()),
		task.New(engine.Subagent),
	)
	if executor != nil {
		toolSet = append(toolSet, execute.New(executor, cfg.Engine.ToolTimeout))
	}
	for _, tool := range toolSet {
		if err := registry.Register(tool); err != nil {
			return nil, fmt.Errorf("register %s: %w", tool.Name(), err)
		}
	}

	return rt, nil
}

func buildWorkspace(cfg *config.Config, rt *runtime) (vfs.Store, vfs.Executor, error) {
	var (
		primary  vfs.Store
		executor vfs.Executor
	)
	switch cfg.Workspace.Type {
	case "memory":
		primary = vfs.NewMemory()
	case "disk":
		store, err := vfs.NewDisk(cfg.Workspace.Root)
		if err != nil {
			return nil, nil, err
		}
		primary = store
	case "sandbox":
		store, err := vfs.NewSandbox(cfg.Workspace.Root, cfg.Workspace.MaxStreamBytes)
		if err != nil {
			return nil, nil, err
		}
		primary, executor = store, store
	case "kv":
		backend, err := kv.NewSQLite(kv.SQLiteConfig{Path: cfg.Workspace.SQLitePath})
		if err != nil {
			return nil, nil, err
		}
		rt.closers = append(rt.closers, backend.Close)
		primary = vfs.NewKV(backend, cfg.Workspace.Namespace)
	default:
		return nil, nil, fmt.Errorf("unknown workspace type %q", cfg.Workspace.Type)
	}

	if len(cfg.Workspace.Mounts) == 0 {
		return primary, executor, nil
	}
	mounts := make([]vfs.Mount, 0, len(cfg.Workspace.Mounts))
	for _, m := range cfg.Workspace.Mounts {
		store, err := buildMount(m, rt)
		if err != nil {
			return nil, nil, fmt.Errorf("mount %q: %w", m.Prefix, err)
		}
		mounts = append(mounts, vfs.Mount{Prefix: m.Prefix, Store: store})
	}
	composite, err := vfs.NewComposite(primary, mounts...)
	if err != nil {
		return nil, nil, err
	}
	return composite, executor, nil
}

func buildMount(m config.MountConfig, rt *runtime) (vfs.Store, error) {
	switch m.Type {
	case "memory":
		return vfs.NewMemory(), nil
	case "disk":
		return vfs.NewDisk(m.Root)
	case "kv":
		backend, err := kv.NewSQLite(kv.SQLiteConfig{Path: m.SQLitePath})
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, backend.Close)
		namespace := m.Namespace
		if namespace == "" {
			namespace = "files"
		}
		return vfs.NewKV(backend, namespace), nil
	default:
		return nil, fmt.Errorf("unknown mount type %q", m.Type)
	}
}

func buildCheckpoints(cfg *config.Config, rt *runtime) (checkpoint.Store, error) {
	switch cfg.Checkpoints.Type {
	case "memory":
		return checkpoint.NewMemoryStore(), nil
	case "disk":
		return checkpoint.NewDiskStore(cfg.Checkpoints.Dir)
	case "kv":
		backend, err := kv.NewSQLite(kv.SQLiteConfig{Path: cfg.Checkpoints.SQLitePath})
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, backend.Close)
		return checkpoint.NewKVStore(backend), nil
	default:
		return nil, fmt.Errorf("unknown checkpoint type %q", cfg.Checkpoints.Type)
	}
}

func buildProvider(cfg *config.Config) (agent.Provider, error) {
	switch cfg.Provider.Name {
	case "anthropic":
		return providers.NewAnthropicProvider(providers.AnthropicConfig{
			APIKey:       cfg.Provider.APIKey,
			BaseURL:      cfg.Provider.BaseURL,
			DefaultModel: cfg.Provider.Model,
		})
	case "openai":
		return providers.NewOpenAIProvider(providers.OpenAIConfig{
			APIKey:       cfg.Provider.APIKey,
			BaseURL:      cfg.Provider.BaseURL,
			DefaultModel: cfg.Provider.Model,
		})
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider.Name)
	}
}

func gatePolicy(cfg *config.Config) *agent.GatePolicy {
	return &agent.GatePolicy{
		Allowlist:       cfg.Gate.Allowlist,
		RequireApproval: cfg.Gate.RequireApproval,
		DefaultDecision: agent.Decision(cfg.Gate.DefaultDecision),
	}
}

// summaryComplete adapts a streaming provider into the blocking call the
// summarizer needs.
func summaryComplete(provider agent.Provider, model string) compaction.CompleteFunc {
	return func(ctx context.Context, system string, messages []*models.Message) (string, error) {
		chunks, err := provider.Complete(ctx, &agent.CompletionRequest{
			Model:    model,
			System:   system,
			Messages: messages,
		})
		if err != nil {
			return "", err
		}
		var b strings.Builder
		for chunk := range chunks {
			if chunk.Error != nil {
				return "", chunk.Error
			}
			b.WriteString(chunk.Text)
		}
		return b.String(), nil
	}
}

// printEvents renders the run's event stream to the terminal.
func printEvents(events <-chan models.Event) error {
	var runErr error
	for ev := range events {
		switch ev.Type {
		case models.EventText:
			fmt.Print(ev.Text)
		case models.EventToolCall:
			fmt.Printf("\n[tool] %s %s\n", ev.ToolCall.Name, compactJSON(ev.ToolCall.Input))
		case models.EventToolResult:
			if ev.ToolResult.IsError {
				fmt.Printf("[tool error] %s\n", firstLine(ev.ToolResult.Content))
			}
		case models.EventFileWritten, models.EventFileEdited:
			fmt.Printf("[file] %s\n", ev.File.Path)
		case models.EventInterruptNeeded:
			fmt.Printf("\n[interrupt] %s needs approval (id %s)\n  input: %s\n  resume with: conductor run --thread %s --approve %s\n",
				ev.Interrupt.ToolName, ev.Interrupt.ToolCallID, ev.Interrupt.Input, ev.ThreadID, ev.Interrupt.ToolCallID)
		case models.EventTranscriptCompacted:
			fmt.Printf("[compacted] %d older messages summarized\n", ev.Compaction.ReplacedMsgs)
		case models.EventSubagentStarted:
			fmt.Printf("[subagent %s] started\n", ev.SubagentID)
		case models.EventSubagentFinished:
			fmt.Printf("[subagent %s] finished\n", ev.SubagentID)
		case models.EventDone:
			fmt.Printf("\n[done] step %d\n", ev.Done.Step)
		case models.EventError:
			runErr = fmt.Errorf("%s", ev.Err)
		}
	}
	return runErr
}

func compactJSON(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "{}"
	}
	s := string(raw)
	if len(s) > 120 {
		s = s[:117] + "..."
	}
	return s
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
