// Package autonomous implements the cycle-bounded autonomous runner: an
// agent that keeps acting against its own mission state across repeated
// sessions instead of stopping after one.
package autonomous

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/haasonsaas/orchkernel/internal/collab"
	"github.com/haasonsaas/orchkernel/internal/kernel"
	"github.com/haasonsaas/orchkernel/internal/vfs"
	"github.com/haasonsaas/orchkernel/pkg/orcmodels"
)

// completionThreshold is the heuristic cutoff at which a cycle's estimated
// completion score is treated as "mission done" when StopWhenComplete is
// set. It is a tunable default, not a correctness boundary: a runner
// configured with StopWhenComplete false ignores it entirely, and nothing
// downstream depends on this exact value.
const completionThreshold = 0.8

// MissionState is the per-agent-path record persisted to the VFS between
// autonomous cycles.
type MissionState struct {
	AgentPath string  `json:"agent_path"`
	Prompt    string  `json:"prompt"`
	Cycle     int     `json:"cycle"`
	Complete  bool    `json:"complete"`
	Score     float64 `json:"score"`
}

func missionPath(agentPath string) string {
	return "missions/" + strings.ReplaceAll(strings.TrimSuffix(agentPath, ".md"), "/", "_") + ".json"
}

// prepareMissionState loads a prior mission for agentPath if resume is
// requested and the stored prompt matches the new one (compared trimmed,
// case-insensitive, since an operator retyping the same mission with
// different whitespace or casing should still resume rather than restart).
// A missing or corrupt record yields a fresh state rather than an error.
func prepareMissionState(source vfs.VFS, agentPath, prompt string, resume bool) MissionState {
	fresh := MissionState{AgentPath: agentPath, Prompt: prompt}

	if !resume {
		return fresh
	}
	raw, ok := source.Read(missionPath(agentPath))
	if !ok {
		return fresh
	}

	var stored MissionState
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return fresh
	}
	if !strings.EqualFold(strings.TrimSpace(stored.Prompt), strings.TrimSpace(prompt)) {
		return fresh
	}
	return stored
}

func saveMissionState(source vfs.VFS, state MissionState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("autonomous: marshal mission state: %w", err)
	}
	return source.Write(missionPath(state.AgentPath), string(raw), "autonomous-runner")
}

// Runner drives an agent through repeated cycles via a Kernel, persisting
// mission state to the VFS so a later resumeMission call picks up where a
// prior run left off.
type Runner struct {
	Kernel *kernel.Kernel
	Logger *slog.Logger
}

// New creates a Runner bound to k.
func New(k *kernel.Kernel, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{Kernel: k, Logger: logger}
}

// Result summarizes how a Run invocation ended.
type Result struct {
	CyclesRun int
	Stopped   bool // true if StopWhenComplete triggered an early stop
	Aborted   bool // true if ctx was cancelled mid-run
	Final     MissionState
}

// Run drives profile through up to cfg.MaxCycles sessions. Between cycles
// it snapshots working memory, checks the task queue for seeded work when
// idle, and persists mission state so a subsequent Run with ResumeMission
// can continue instead of restarting.
func (r *Runner) Run(ctx context.Context, profile orcmodels.AgentProfile, prompt string) (Result, error) {
	cfg := profile.Autonomous
	if cfg == nil {
		cfg = &orcmodels.AutonomousConfig{MaxCycles: 1}
	}
	maxCycles := cfg.MaxCycles
	if maxCycles <= 0 {
		maxCycles = 1
	}

	state := prepareMissionState(r.Kernel.VFS, profile.Path, prompt, cfg.ResumeMission)

	for state.Cycle < maxCycles {
		if ctx.Err() != nil {
			return Result{CyclesRun: state.Cycle, Aborted: true, Final: state}, nil
		}

		input := r.nextInput(cfg, prompt, state)

		output, err := r.Kernel.RunStep(ctx, profile.Path, input)
		if err != nil {
			return Result{CyclesRun: state.Cycle, Final: state}, fmt.Errorf("autonomous: run cycle %d: %w", state.Cycle, err)
		}

		state.Cycle++
		state.Score = estimateCompletion(output, r.Kernel.Tasks)
		r.Kernel.Memory.Write(profile.Name, fmt.Sprintf("cycle %d: %s", state.Cycle, output), "autonomous-cycle")

		if err := saveMissionState(r.Kernel.VFS, state); err != nil {
			r.Logger.Warn("autonomous: failed to persist mission state", "agent_path", profile.Path, "error", err)
		}

		if cfg.StopWhenComplete && state.Score >= completionThreshold {
			state.Complete = true
			saveMissionState(r.Kernel.VFS, state)
			return Result{CyclesRun: state.Cycle, Stopped: true, Final: state}, nil
		}
	}

	return Result{CyclesRun: state.Cycle, Final: state}, nil
}

// nextInput picks a cycle's prompt: a claimed task when SeedTaskWhenIdle is
// set and one is pending, otherwise a condensed mission prompt carrying the
// last few memory entries forward.
func (r *Runner) nextInput(cfg *orcmodels.AutonomousConfig, missionPrompt string, state MissionState) string {
	if cfg.SeedTaskWhenIdle {
		if task, ok := r.Kernel.Tasks.ClaimNext("autonomous-runner"); ok {
			return task.Description
		}
	}

	recent := r.Kernel.Memory.Last(10)
	if len(recent) == 0 {
		return missionPrompt
	}

	var b strings.Builder
	b.WriteString(missionPrompt)
	b.WriteString("\n\nRecent progress:\n")
	for _, e := range recent {
		b.WriteString("- ")
		b.WriteString(e.Content)
		b.WriteString("\n")
	}
	return b.String()
}

// estimateCompletion is a placeholder heuristic, not a correctness
// boundary: an explicit "MISSION_COMPLETE" marker in the output always
// scores 1.0; otherwise the score tracks the fraction of known tasks
// marked done, or 0 if no tasks exist yet.
func estimateCompletion(output string, tasks *collab.TaskQueue) float64 {
	if strings.Contains(output, "MISSION_COMPLETE") {
		return 1.0
	}
	all := tasks.All()
	if len(all) == 0 {
		return 0
	}
	done := 0
	for _, t := range all {
		if t.Status == collab.TaskDone {
			done++
		}
	}
	return float64(done) / float64(len(all))
}
