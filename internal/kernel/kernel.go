// Package kernel implements the scheduler and per-session execution loop at
// the center of the runtime: it pulls activations off a priority queue,
// resolves an agent profile for each, and drives that agent's model/tool
// turns to a terminal state.
package kernel

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/haasonsaas/orchkernel/internal/collab"
	"github.com/haasonsaas/orchkernel/internal/eventlog"
	"github.com/haasonsaas/orchkernel/internal/mcp"
	"github.com/haasonsaas/orchkernel/internal/provider"
	"github.com/haasonsaas/orchkernel/internal/registry"
	"github.com/haasonsaas/orchkernel/internal/toolplugin"
	"github.com/haasonsaas/orchkernel/internal/vfs"
	"github.com/haasonsaas/orchkernel/pkg/orcmodels"
)

// Config bounds a Kernel's resource usage, per the concurrency and
// resource model: MaxConcurrency caps simultaneously-running sessions,
// MaxDepth/MaxFanout bound spawn trees, TokenBudget caps total tokens
// consumed across the run.
type Config struct {
	MaxConcurrency int
	MaxDepth       int
	MaxFanout      int
	TokenBudget    int // 0 means unbounded
}

func (c Config) sanitized() Config {
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = 4
	}
	if c.MaxDepth <= 0 {
		c.MaxDepth = 5
	}
	if c.MaxFanout <= 0 {
		c.MaxFanout = 8
	}
	return c
}

// Kernel is the scheduler. It owns the activation queue, the set of
// sessions it has created, and every collaboration surface a session's
// tools reach through a ToolContext.
type Kernel struct {
	cfg Config

	VFS      vfs.VFS
	Registry *registry.Registry
	EventLog *eventlog.Log
	Provider provider.Provider
	MCP      *mcp.Manager

	Blackboard *collab.Blackboard
	PubSub     *collab.PubSub
	Memory     *collab.WorkingMemory
	Tasks      *collab.TaskQueue

	Metrics *Metrics
	Logger  *slog.Logger

	mu        sync.Mutex
	queue     *ActivationQueue
	sessions  map[string]*orcmodels.Session
	childOf   map[string]int    // activation id -> children already spawned
	agentPathOf map[string]string // activation id -> agent path, so a child can resolve its parent's path for signal_parent
	tokensUsed int64
	paused    atomic.Bool
	tools     map[string]toolplugin.Plugin
}

// New constructs a Kernel. promReg may be nil, in which case the Kernel
// registers its metrics against a fresh prometheus.NewRegistry().
func New(cfg Config, source vfs.VFS, reg *registry.Registry, log *eventlog.Log, prov provider.Provider, promReg prometheus.Registerer, logger *slog.Logger) *Kernel {
	if logger == nil {
		logger = slog.Default()
	}
	if promReg == nil {
		promReg = prometheus.NewRegistry()
	}
	k := &Kernel{
		cfg:        cfg.sanitized(),
		VFS:        source,
		Registry:   reg,
		EventLog:   log,
		Provider:   prov,
		MCP:        mcp.NewManager(logger),
		Blackboard: collab.NewBlackboard(),
		PubSub:     collab.NewPubSub(),
		Memory:     collab.NewWorkingMemory(),
		Tasks:      collab.NewTaskQueue(),
		Metrics:    NewMetrics(promReg),
		Logger:     logger,
		queue:       NewActivationQueue(),
		sessions:    make(map[string]*orcmodels.Session),
		childOf:     make(map[string]int),
		agentPathOf: make(map[string]string),
		tools:       make(map[string]toolplugin.Plugin),
	}
	k.registerDefaultTools()
	return k
}

func (k *Kernel) registerDefaultTools() {
	for _, t := range []toolplugin.Plugin{
		toolplugin.VFSRead{}, toolplugin.VFSWrite{}, toolplugin.VFSList{}, toolplugin.VFSDelete{},
		toolplugin.SpawnAgent{}, toolplugin.Delegate{}, toolplugin.SignalParent{},
		toolplugin.BlackboardRead{}, toolplugin.BlackboardWrite{},
		toolplugin.MemoryRead{}, toolplugin.MemoryWrite{},
		toolplugin.TaskQueueRead{}, toolplugin.TaskQueueWrite{},
		toolplugin.WebFetch{}, toolplugin.WebSearch{},
		toolplugin.MCPBridge{},
	} {
		k.RegisterTool(t)
	}
}

// RegisterTool adds or replaces a tool plugin by its descriptor name.
func (k *Kernel) RegisterTool(p toolplugin.Plugin) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.tools[p.Descriptor().Name] = p
}

// Enqueue validates an activation against the Kernel's budgets and, if
// valid, pushes it onto the queue. It assigns an ID if the caller did not
// supply one. Validation happens entirely before any mutation: a rejected
// activation never touches the queue, the event log, or the token budget.
func (k *Kernel) Enqueue(a orcmodels.Activation) (string, error) {
	if a.SpawnDepth > k.cfg.MaxDepth {
		return "", fmt.Errorf("kernel: spawn depth %d exceeds max depth %d", a.SpawnDepth, k.cfg.MaxDepth)
	}
	if _, ok := k.Registry.Get(a.AgentPath); !ok {
		return "", fmt.Errorf("kernel: no agent profile registered at %s", a.AgentPath)
	}
	if k.cfg.TokenBudget > 0 && atomic.LoadInt64(&k.tokensUsed) >= int64(k.cfg.TokenBudget) {
		return "", fmt.Errorf("kernel: token budget %d exhausted", k.cfg.TokenBudget)
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}

	k.mu.Lock()
	k.queue.Push(a)
	k.mu.Unlock()

	k.Metrics.QueueLength.Set(float64(k.queue.Len()))
	k.EventLog.Append(orcmodels.EventActivation, a.AgentID, a.ID, map[string]any{"agent_path": a.AgentPath})
	return a.ID, nil
}

// RunUntilEmpty drains the queue, running up to MaxConcurrency sessions at
// once, and returns once every enqueued-and-spawned activation has reached
// a terminal state.
func (k *Kernel) RunUntilEmpty(ctx context.Context) error {
	sem := make(chan struct{}, k.cfg.MaxConcurrency)
	var wg sync.WaitGroup
	var firstErr error
	var errMu sync.Mutex

	for {
		if k.paused.Load() {
			break
		}
		k.mu.Lock()
		activation, ok := k.queue.Pop()
		if ok {
			k.Metrics.QueueLength.Set(float64(k.queue.Len()))
		}
		k.mu.Unlock()
		if !ok {
			// Nothing queued right now: wait for in-flight sessions, which
			// may still spawn children, before treating the queue as drained.
			wg.Wait()
			k.mu.Lock()
			empty := k.queue.Len() == 0
			k.mu.Unlock()
			if empty {
				break
			}
			continue
		}

		sem <- struct{}{}
		wg.Add(1)
		go func(a orcmodels.Activation) {
			defer wg.Done()
			defer func() { <-sem }()
			if _, err := k.runSession(ctx, a); err != nil {
				errMu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				errMu.Unlock()
			}
		}(activation)
	}

	wg.Wait()
	return firstErr
}

// Pause stops RunUntilEmpty from popping further activations. In-flight
// sessions run to completion.
func (k *Kernel) Pause() { k.paused.Store(true) }

// Resume clears a prior Pause.
func (k *Kernel) Resume() { k.paused.Store(false) }

// KillAll aborts every tracked session by cancelling its Cancel func, if
// one was recorded, clears the queue, and gates dispatch so RunUntilEmpty
// stops pulling queued activations — the Kernel then transitions idle.
func (k *Kernel) KillAll() {
	k.paused.Store(true)
	k.mu.Lock()
	defer k.mu.Unlock()
	for _, s := range k.sessions {
		if s.Cancel != nil {
			s.Cancel()
		}
	}
	k.queue.Clear()
	k.Metrics.QueueLength.Set(0)
}

// RunStep runs agentPath synchronously at spawn depth 0 with no parent,
// returning its final assistant output. This is the entry point the
// Workflow Engine and Run Controller use to execute one workflow step or
// top-level run as an ordinary Kernel session.
func (k *Kernel) RunStep(ctx context.Context, agentPath, input string) (string, error) {
	return k.runSessionAndReturn(ctx, toolplugin.SpawnRequest{AgentPath: agentPath, Input: input}, "", 0)
}

// runSessionAndReturn runs req synchronously as a depth-bounded child
// activation (used by the delegate/custom-tool built-ins) and returns its
// final assistant output.
func (k *Kernel) runSessionAndReturn(ctx context.Context, req toolplugin.SpawnRequest, parentID string, depth int) (string, error) {
	activation := orcmodels.Activation{
		ID:         uuid.NewString(),
		AgentPath:  req.AgentPath,
		Input:      req.Input,
		ParentID:   parentID,
		SpawnDepth: depth,
		Priority:   req.Priority,
	}
	if _, ok := k.Registry.Get(activation.AgentPath); !ok {
		return "", fmt.Errorf("kernel: no agent profile registered at %s", activation.AgentPath)
	}
	return k.runSession(ctx, activation)
}

func (k *Kernel) incrementChildCount(activationID string) func() {
	return func() {
		k.mu.Lock()
		k.childOf[activationID]++
		k.mu.Unlock()
	}
}

func (k *Kernel) childCount(activationID string) int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.childOf[activationID]
}

// agentPathForActivation resolves the agent path a still-running (or
// previously run) activation was registered under, so a child session can
// address signal_parent's OnSpawn call at the parent's own agent file.
func (k *Kernel) agentPathForActivation(id string) string {
	if id == "" {
		return ""
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.agentPathOf[id]
}

func (k *Kernel) addTokens(n int) {
	atomic.AddInt64(&k.tokensUsed, int64(n))
}
