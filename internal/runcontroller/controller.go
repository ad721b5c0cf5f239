// Package runcontroller is the top-level façade: it chooses a run mode,
// resets per-run collaboration surfaces, builds the Kernel/Runner/Engine the
// mode needs, and writes workflow output into the VFS.
package runcontroller

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/haasonsaas/orchkernel/internal/autonomous"
	"github.com/haasonsaas/orchkernel/internal/eventlog"
	"github.com/haasonsaas/orchkernel/internal/kernel"
	"github.com/haasonsaas/orchkernel/internal/mcp"
	"github.com/haasonsaas/orchkernel/internal/provider"
	"github.com/haasonsaas/orchkernel/internal/registry"
	"github.com/haasonsaas/orchkernel/internal/vfs"
	"github.com/haasonsaas/orchkernel/internal/workflow"
	"github.com/haasonsaas/orchkernel/pkg/orcmodels"
)

// Mode selects which of the three execution models a Controller invocation
// runs.
type Mode string

const (
	ModeRun             Mode = "run"
	ModeRunAutonomous   Mode = "runAutonomous"
	ModeRunWorkflow     Mode = "runWorkflow"
	ModeResumeWorkflow  Mode = "resumeWorkflow"
)

// Config bounds a Controller's Kernel instances and workflow output.
type Config struct {
	Kernel           kernel.Config
	MaxParallelSteps int
	OutputDir        string // VFS path prefix workflow output files are written under
}

func (c Config) sanitized() Config {
	if c.MaxParallelSteps <= 0 {
		c.MaxParallelSteps = 4
	}
	if c.OutputDir == "" {
		c.OutputDir = "outputs"
	}
	return c
}

// Controller is the Run Controller: it owns the VFS/Registry/Provider/MCP
// collaborators that outlive any one run, and builds a fresh Kernel (with
// fresh collaboration surfaces) for each invocation.
type Controller struct {
	cfg Config

	VFS      vfs.VFS
	Registry *registry.Registry
	Provider provider.Provider
	MCP      *mcp.Manager
	PromReg  prometheus.Registerer
	Logger   *slog.Logger
}

// New constructs a Controller. promReg may be nil (a fresh registry is used
// per Kernel in that case).
func New(cfg Config, source vfs.VFS, reg *registry.Registry, prov provider.Provider, mcpMgr *mcp.Manager, promReg prometheus.Registerer, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		cfg:      cfg.sanitized(),
		VFS:      source,
		Registry: reg,
		Provider: prov,
		MCP:      mcpMgr,
		PromReg:  promReg,
		Logger:   logger,
	}
}

// newKernel builds a Kernel with fresh collaboration surfaces for one run.
// Every Controller-level invocation gets its own blackboard/pub-sub/working
// memory/task queue so runs never leak state into one another.
func (c *Controller) newKernel() *kernel.Kernel {
	log := eventlog.New(c.VFS)
	k := kernel.New(c.cfg.Kernel, c.VFS, c.Registry, log, c.Provider, c.PromReg, c.Logger)
	if c.MCP != nil {
		k.MCP = c.MCP
	}
	return k
}

// RunResult summarizes a single-shot run.
type RunResult struct {
	ActivationID string
	Output       string
}

// Run drains a single activation for agentPath against input (mode "run").
func (c *Controller) Run(ctx context.Context, agentPath, input string) (RunResult, error) {
	k := c.newKernel()
	output, err := k.RunStep(ctx, agentPath, input)
	if err != nil {
		return RunResult{}, fmt.Errorf("runcontroller: run: %w", err)
	}
	return RunResult{Output: output}, nil
}

// RunAutonomous drives profile through its autonomous cycle loop (mode
// "runAutonomous").
func (c *Controller) RunAutonomous(ctx context.Context, profile orcmodels.AgentProfile, prompt string) (autonomous.Result, error) {
	k := c.newKernel()
	runner := autonomous.New(k, c.Logger)
	result, err := runner.Run(ctx, profile, prompt)
	if err != nil {
		return result, fmt.Errorf("runcontroller: runAutonomous: %w", err)
	}
	return result, nil
}

// WorkflowRunResult is the outcome of a workflow run or resume.
type WorkflowRunResult struct {
	Results    []workflow.StepResult
	Resume     orcmodels.WorkflowResume
	OutputPath string
	Resumed    bool
}

// RunWorkflow parses and executes the workflow file at workflowPath from
// scratch (mode "runWorkflow"), writing a summary to OutputDir on
// completion or failure.
func (c *Controller) RunWorkflow(ctx context.Context, workflowPath string) (WorkflowRunResult, error) {
	def, err := c.loadWorkflow(workflowPath)
	if err != nil {
		return WorkflowRunResult{}, err
	}

	k := c.newKernel()
	engine := workflow.New(k, c.cfg.MaxParallelSteps, c.Logger)
	results, resume, runErr := engine.Execute(ctx, def, nil)
	return c.finishWorkflow(def, results, resume, runErr, false)
}

// ResumeWorkflow reparses workflowPath and resumes execution from a
// previously-failed run's resume ticket (mode "resumeWorkflow").
func (c *Controller) ResumeWorkflow(ctx context.Context, workflowPath string, resume orcmodels.WorkflowResume) (WorkflowRunResult, error) {
	def, err := c.loadWorkflow(workflowPath)
	if err != nil {
		return WorkflowRunResult{}, err
	}

	k := c.newKernel()
	engine := workflow.New(k, c.cfg.MaxParallelSteps, c.Logger)
	results, finalResume, runErr := engine.ResumeFrom(ctx, def, resume)
	return c.finishWorkflow(def, results, finalResume, runErr, true)
}

func (c *Controller) loadWorkflow(workflowPath string) (orcmodels.WorkflowDefinition, error) {
	raw, ok := c.VFS.Read(workflowPath)
	if !ok {
		return orcmodels.WorkflowDefinition{}, fmt.Errorf("runcontroller: workflow %s not found", workflowPath)
	}
	return c.loadWorkflowDefFromContent(workflowPath, raw)
}

// loadWorkflowDefFromContent parses and validates workflow file content
// already read from the VFS. Shared by loadWorkflow and the Scheduler,
// which reads ahead of time while scanning the workflows/ prefix.
func (c *Controller) loadWorkflowDefFromContent(workflowPath, raw string) (orcmodels.WorkflowDefinition, error) {
	def, err := workflow.ParseFile(workflowPath, raw)
	if err != nil {
		return orcmodels.WorkflowDefinition{}, fmt.Errorf("runcontroller: %w", err)
	}
	if len(def.Diagnostics) > 0 {
		return orcmodels.WorkflowDefinition{}, fmt.Errorf("runcontroller: workflow %s invalid: %s", workflowPath, strings.Join(def.Diagnostics, "; "))
	}
	return def, nil
}

// finishWorkflow writes the workflow's output file and, on failure,
// persists the resume ticket to the VFS so a later resumeWorkflow call can
// read it back without the caller threading it through out-of-band state.
func (c *Controller) finishWorkflow(def orcmodels.WorkflowDefinition, results []workflow.StepResult, resume orcmodels.WorkflowResume, runErr error, resumed bool) (WorkflowRunResult, error) {
	outputPath := c.writeOutputFile(def, results, runErr, resumed)

	res := WorkflowRunResult{Results: results, Resume: resume, OutputPath: outputPath, Resumed: resumed}
	if runErr != nil {
		resumeTicketPath := resumeTicketPath(def.Path)
		if err := writeResumeTicket(c.VFS, resumeTicketPath, resume); err != nil {
			c.Logger.Warn("runcontroller: failed to persist resume ticket", "workflow", def.Path, "error", err)
		}
		return res, fmt.Errorf("runcontroller: workflow %s failed: %w", def.Path, runErr)
	}
	return res, nil
}

func resumeTicketPath(workflowPath string) string {
	slug := slugify(workflowPath)
	return "resume-tickets/" + slug + ".json"
}

func slugify(p string) string {
	p = strings.TrimSuffix(path.Base(p), path.Ext(p))
	return strings.ReplaceAll(strings.ToLower(p), " ", "-")
}

// stamp is a thin indirection over time.Now so output filenames are
// deterministic under test (tests reassign stamp to return a fixed time).
var stamp = func() time.Time { return time.Now().UTC() }

func (c *Controller) writeOutputFile(def orcmodels.WorkflowDefinition, results []workflow.StepResult, runErr error, resumed bool) string {
	slug := slugify(def.Path)
	ts := stamp().Format("20060102T150405Z")
	outPath := fmt.Sprintf("%s/%s-%s.md", c.cfg.OutputDir, slug, ts)

	var b strings.Builder
	fmt.Fprintf(&b, "# Workflow: %s\n\n", def.Name)
	if resumed {
		fmt.Fprintf(&b, "_resumed from a prior failed run_\n\n")
	}
	status := "completed"
	if runErr != nil {
		status = "failed"
	}
	fmt.Fprintf(&b, "- status: %s\n- steps: %d\n", status, len(results))

	totalTokens := 0
	for _, r := range results {
		totalTokens += r.Tokens
	}
	fmt.Fprintf(&b, "- tokens: %d\n\n", totalTokens)

	for _, r := range results {
		if r.Failed {
			fmt.Fprintf(&b, "## %s — failed\n\n%v\n\n", r.StepID, r.Err)
			continue
		}
		text, _ := r.Output["text"].AsString()
		fmt.Fprintf(&b, "## %s\n\n%s\n\n", r.StepID, text)
	}

	if err := c.VFS.Write(outPath, b.String(), "run-controller"); err != nil {
		c.Logger.Warn("runcontroller: failed to write workflow output", "path", outPath, "error", err)
	}
	return outPath
}
