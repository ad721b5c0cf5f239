// Package main provides the CLI entry point for the orchestration runtime.
//
// orchestrate drives markdown-defined agents through an LLM provider in one
// of three modes: a single drained activation, an autonomous cycle loop, or
// a DAG workflow (with resume-from-failure).
//
// # Basic usage
//
//	orchestrate run --agent agents/researcher.md --input "find the changelog"
//	orchestrate autonomous --agent agents/builder.md --prompt "ship the feature"
//	orchestrate workflow run --file workflows/release.md
//	orchestrate workflow resume --file workflows/release.md
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/haasonsaas/orchkernel/internal/config"
	"github.com/haasonsaas/orchkernel/internal/kernel"
	"github.com/haasonsaas/orchkernel/internal/mcp"
	"github.com/haasonsaas/orchkernel/internal/observability"
	"github.com/haasonsaas/orchkernel/internal/provider"
	"github.com/haasonsaas/orchkernel/internal/registry"
	"github.com/haasonsaas/orchkernel/internal/runcontroller"
	"github.com/haasonsaas/orchkernel/internal/vfs"
)

var (
	version   = "dev"
	commit    = "none"
	configPath string
	workspaceDir string
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	shutdownTracing, err := observability.NewTracerProvider(observability.TraceConfig{ServiceName: "orchestrate", ServiceVersion: version})
	if err != nil {
		slog.Warn("tracing disabled", "error", err)
	} else {
		defer shutdownTracing(context.Background())
	}

	if err := buildRootCmd().Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "orchestrate",
		Short:        "Multi-agent orchestration runtime",
		Version:      fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "orchestrate.yaml", "path to config file")
	root.PersistentFlags().StringVar(&workspaceDir, "workspace", ".", "on-disk directory mirrored into the VFS as agents/ and workflows/")
	root.AddCommand(buildRunCmd(), buildAutonomousCmd(), buildWorkflowCmd())
	return root
}

// loadConfig reads the config file, falling back to hardcoded defaults when
// it is absent — a fresh checkout should still run without first writing a
// config file.
func loadConfig() *config.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Warn("falling back to default config", "path", configPath, "error", err)
		cfg = &config.Config{}
	}
	return cfg
}

// buildEnvironment wires a fresh VFS mirrored from workspaceDir, a Registry
// watching it, and a Controller bound to a Mock provider.
//
// The runtime's AI Provider contract (chat/abort/endSession over a
// streaming channel) is specified in full, but a concrete LLM SDK adapter
// is explicitly out of scope (see spec's Non-goals) — only the streaming
// contract and a scripted Mock implementation ship here. Wire a real
// provider.Provider implementation in before pointing this at a live LLM.
func buildEnvironment(logger *slog.Logger) (*runcontroller.Controller, *vfs.DiskWatch, error) {
	cfg := loadConfig()

	store := vfs.NewMemVFS()
	if err := seedWorkspace(workspaceDir, store); err != nil {
		return nil, nil, fmt.Errorf("orchestrate: seed workspace: %w", err)
	}

	reg := registry.New(store, logger)

	watch, err := vfs.NewDiskWatch(workspaceDir, store, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("orchestrate: mirror workspace: %w", err)
	}
	prov := provider.NewMock()

	mcpServers, err := cfg.MCP.MCPServerConfigs()
	if err != nil {
		return nil, nil, fmt.Errorf("orchestrate: mcp config: %w", err)
	}
	mcpMgr := mcp.NewManager(logger)
	for _, sc := range mcpServers {
		mcpMgr.Register(sc)
	}

	ctrlCfg := runcontroller.Config{
		Kernel: kernel.Config{
			MaxConcurrency: cfg.Kernel.MaxConcurrency,
			MaxDepth:       cfg.Kernel.MaxDepth,
			MaxFanout:      cfg.Kernel.MaxFanout,
			TokenBudget:    cfg.Kernel.TokenBudget,
		},
		MaxParallelSteps: cfg.RunController.MaxParallelSteps,
		OutputDir:        cfg.RunController.OutputDir,
	}

	ctrl := runcontroller.New(ctrlCfg, store, reg, prov, mcpMgr, prometheus.NewRegistry(), logger)
	return ctrl, watch, nil
}

// seedWorkspace walks dir once at startup, loading every file's content into
// the VFS under its path relative to dir. DiskWatch only mirrors edits made
// after it starts, so without this an agent or workflow file already on
// disk before the process launched would never be registered.
func seedWorkspace(dir string, store vfs.VFS) error {
	return filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return nil
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return nil
		}
		vpath := strings.ReplaceAll(rel, string(filepath.Separator), "/")
		return store.Write(vpath, string(data), "startup-seed")
	})
}

func buildRunCmd() *cobra.Command {
	var agentPath, input string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Drain a single activation for one agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, watch, err := buildEnvironment(slog.Default())
			if err != nil {
				return err
			}
			defer watch.Close()

			result, err := ctrl.Run(cmd.Context(), agentPath, input)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), result.Output)
			return nil
		},
	}
	cmd.Flags().StringVar(&agentPath, "agent", "", "VFS path of the agent file, e.g. agents/researcher.md")
	cmd.Flags().StringVar(&input, "input", "", "input text for the agent's first turn")
	cmd.MarkFlagRequired("agent")
	return cmd
}

func buildAutonomousCmd() *cobra.Command {
	var agentPath, prompt string
	cmd := &cobra.Command{
		Use:   "autonomous",
		Short: "Run an agent through its autonomous cycle loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, watch, err := buildEnvironment(slog.Default())
			if err != nil {
				return err
			}
			defer watch.Close()

			profile, ok := ctrl.Registry.Get(agentPath)
			if !ok {
				return fmt.Errorf("orchestrate: no agent profile registered at %s", agentPath)
			}

			result, err := ctrl.RunAutonomous(cmd.Context(), profile, prompt)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cycles run: %d, stopped: %v, score: %.2f\n", result.CyclesRun, result.Stopped, result.Final.Score)
			return nil
		},
	}
	cmd.Flags().StringVar(&agentPath, "agent", "", "VFS path of the agent file")
	cmd.Flags().StringVar(&prompt, "prompt", "", "mission prompt")
	cmd.MarkFlagRequired("agent")
	cmd.MarkFlagRequired("prompt")
	return cmd
}

func buildWorkflowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflow",
		Short: "Run or resume a DAG workflow",
	}
	cmd.AddCommand(buildWorkflowRunCmd(), buildWorkflowResumeCmd())
	return cmd
}

func buildWorkflowRunCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute a workflow file from scratch",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, watch, err := buildEnvironment(slog.Default())
			if err != nil {
				return err
			}
			defer watch.Close()

			result, err := ctrl.RunWorkflow(cmd.Context(), file)
			fmt.Fprintf(cmd.OutOrStdout(), "output written to %s\n", result.OutputPath)
			return err
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "VFS path of the workflow file")
	cmd.MarkFlagRequired("file")
	return cmd
}

func buildWorkflowResumeCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "resume",
		Short: "Resume a workflow from its last persisted resume ticket",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, watch, err := buildEnvironment(slog.Default())
			if err != nil {
				return err
			}
			defer watch.Close()

			resume, ok, err := runcontroller.ReadResumeTicket(ctrl.VFS, file)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("orchestrate: no resume ticket found for %s", file)
			}

			result, err := ctrl.ResumeWorkflow(cmd.Context(), file, resume)
			fmt.Fprintf(cmd.OutOrStdout(), "output written to %s\n", result.OutputPath)
			return err
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "VFS path of the workflow file")
	cmd.MarkFlagRequired("file")
	return cmd
}
