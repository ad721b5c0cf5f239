package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/haasonsaas/orchkernel/internal/kernel"
	"github.com/haasonsaas/orchkernel/pkg/orcmodels"
)

// ErrAborted is returned by Execute/ResumeFrom when the context is
// cancelled between dispatch batches.
var ErrAborted = fmt.Errorf("Workflow aborted")

// ErrDeadlock is returned when no step is ready to run but the workflow is
// not yet fully completed — every remaining step depends, directly or
// transitively, on a step that failed.
var ErrDeadlock = fmt.Errorf("Workflow deadlock")

var placeholderPattern = regexp.MustCompile(`\{[A-Za-z0-9_.]+\}`)

// StepResult is one completed step's outcome.
type StepResult struct {
	StepID  string
	Output  map[string]orcmodels.Value
	Tokens  int
	Failed  bool
	Err     error
}

// Engine executes a parsed WorkflowDefinition's steps against a Kernel,
// dispatching each ready batch in parallel up to MaxParallelSteps.
type Engine struct {
	Kernel          *kernel.Kernel
	MaxParallelSteps int
	Logger          *slog.Logger
}

// New creates an Engine bound to k.
func New(k *kernel.Kernel, maxParallelSteps int, logger *slog.Logger) *Engine {
	if maxParallelSteps <= 0 {
		maxParallelSteps = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{Kernel: k, MaxParallelSteps: maxParallelSteps, Logger: logger}
}

// Execute runs def from scratch.
func (e *Engine) Execute(ctx context.Context, def orcmodels.WorkflowDefinition, variables map[string]orcmodels.Value) ([]StepResult, orcmodels.WorkflowResume, error) {
	return e.run(ctx, def, variables, nil)
}

// ResumeFrom continues a previously failed run: resume.CompletedSteps and
// resume.CompletedOutputs seed the completed set so finished steps are not
// re-executed, and resume.Variables replaces the starting variable set.
func (e *Engine) ResumeFrom(ctx context.Context, def orcmodels.WorkflowDefinition, resume orcmodels.WorkflowResume) ([]StepResult, orcmodels.WorkflowResume, error) {
	return e.run(ctx, def, resume.Variables, &resume)
}

func (e *Engine) run(ctx context.Context, def orcmodels.WorkflowDefinition, variables map[string]orcmodels.Value, resume *orcmodels.WorkflowResume) ([]StepResult, orcmodels.WorkflowResume, error) {
	if len(def.Diagnostics) > 0 {
		return nil, orcmodels.WorkflowResume{}, fmt.Errorf("workflow: invalid definition: %s", strings.Join(def.Diagnostics, "; "))
	}
	if variables == nil {
		variables = make(map[string]orcmodels.Value)
	}

	completed := make(map[string]bool)
	outputs := make(map[string]map[string]orcmodels.Value)
	tokens := make(map[string]int)
	var results []StepResult

	if resume != nil {
		for _, id := range resume.CompletedSteps {
			completed[id] = true
		}
		for id, out := range resume.CompletedOutputs {
			outputs[id] = out
		}
		for id, tok := range resume.PerStepTokens {
			tokens[id] = tok
		}
	}

	e.Kernel.EventLog.Append(orcmodels.EventWorkflowStart, "", "", map[string]any{"workflow": def.Path})

	for len(completed) < len(def.Steps) {
		if ctx.Err() != nil {
			return results, buildResume(completed, outputs, tokens, variables), ErrAborted
		}

		batch := ReadyBatch(def, completed)
		if len(batch) == 0 {
			return results, buildResume(completed, outputs, tokens, variables), ErrDeadlock
		}

		batchResults, batchErr := e.dispatchBatch(batch, variables, outputs)
		var mu sync.Mutex
		mu.Lock()
		for _, r := range batchResults {
			results = append(results, r)
			if !r.Failed {
				completed[r.StepID] = true
				outputs[r.StepID] = r.Output
				tokens[r.StepID] = r.Tokens
			}
		}
		mu.Unlock()

		e.Kernel.EventLog.Append(orcmodels.EventWorkflowStep, "", "", map[string]any{
			"workflow": def.Path, "batch_size": len(batch),
		})

		if batchErr != nil {
			resumeTicket := buildResume(completed, outputs, tokens, variables)
			e.Kernel.EventLog.Append(orcmodels.EventWorkflowComplete, "", "", map[string]any{
				"workflow": def.Path, "status": "failed",
			})
			return results, resumeTicket, batchErr
		}
	}

	e.Kernel.EventLog.Append(orcmodels.EventWorkflowComplete, "", "", map[string]any{
		"workflow": def.Path, "status": "completed",
	})
	return results, buildResume(completed, outputs, tokens, variables), nil
}

// dispatchBatch runs every step in batch concurrently, bounded by
// MaxParallelSteps, letting in-flight peers settle before propagating the
// first failure.
func (e *Engine) dispatchBatch(batch []orcmodels.WorkflowStep, variables map[string]orcmodels.Value, outputs map[string]map[string]orcmodels.Value) ([]StepResult, error) {
	g, gctx := errgroup.WithContext(context.Background()) // steps run to completion even if one fails
	g.SetLimit(e.MaxParallelSteps)

	results := make([]StepResult, len(batch))
	var firstErr error
	var mu sync.Mutex

	for i, step := range batch {
		i, step := i, step
		g.Go(func() error {
			prompt := substitute(step.Prompt, variables, outputs)
			output, err := e.Kernel.RunStep(gctx, step.AgentPath, prompt)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				results[i] = StepResult{StepID: step.ID, Failed: true, Err: err}
				if firstErr == nil {
					firstErr = fmt.Errorf("workflow: step %q failed: %w", step.ID, err)
				}
				return nil
			}
			results[i] = StepResult{
				StepID: step.ID,
				Output: map[string]orcmodels.Value{"text": {Kind: orcmodels.KindString, Str: output}},
			}
			return nil
		})
	}

	g.Wait()
	return results, firstErr
}

// substitute performs the two-pass template expansion: first {stepId.key}
// references into prior step outputs, then bare {name} references into the
// workflow's variable set. Unresolved placeholders are left as-is.
func substitute(tmpl string, variables map[string]orcmodels.Value, outputs map[string]map[string]orcmodels.Value) string {
	first := placeholderPattern.ReplaceAllStringFunc(tmpl, func(token string) string {
		key := token[1 : len(token)-1]
		parts := strings.SplitN(key, ".", 2)
		if len(parts) != 2 {
			return token
		}
		stepOut, ok := outputs[parts[0]]
		if !ok {
			return token
		}
		v, ok := stepOut[parts[1]]
		if !ok {
			return token
		}
		s, _ := v.AsString()
		return s
	})

	return placeholderPattern.ReplaceAllStringFunc(first, func(token string) string {
		key := token[1 : len(token)-1]
		v, ok := variables[key]
		if !ok {
			return token
		}
		s, _ := v.AsString()
		return s
	})
}

func buildResume(completed map[string]bool, outputs map[string]map[string]orcmodels.Value, tokens map[string]int, variables map[string]orcmodels.Value) orcmodels.WorkflowResume {
	steps := make([]string, 0, len(completed))
	for id := range completed {
		steps = append(steps, id)
	}
	return orcmodels.WorkflowResume{
		Variables:        variables,
		CompletedOutputs: outputs,
		PerStepTokens:    tokens,
		CompletedSteps:   steps,
	}
}
