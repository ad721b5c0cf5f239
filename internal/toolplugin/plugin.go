// Package toolplugin defines the tool plugin contract every built-in and
// custom tool implements, and the ToolContext handle those tools use to
// reach the Kernel's collaboration surfaces without importing it directly.
package toolplugin

import (
	"context"
	"log/slog"

	"github.com/haasonsaas/orchkernel/internal/collab"
	"github.com/haasonsaas/orchkernel/internal/eventlog"
	"github.com/haasonsaas/orchkernel/internal/registry"
	"github.com/haasonsaas/orchkernel/internal/vfs"
	"github.com/haasonsaas/orchkernel/pkg/orcmodels"
)

// Plugin is the contract every tool — built-in or custom-synthesized —
// satisfies. Execute returns its result as plain text; a tool-level failure
// (as opposed to a Go error worth aborting the session over) is reported by
// returning a string with the "Error: " prefix, matching what the model
// sees as a normal tool result rather than a session fault.
type Plugin interface {
	Descriptor() orcmodels.ToolDescriptor
	Execute(ctx context.Context, tc *ToolContext, args map[string]orcmodels.Value) (string, error)
}

// SpawnRequest is what a spawn/delegate tool hands to the Kernel to create
// a new activation. The Kernel validates budgets and enqueues; the tool
// itself never touches the queue directly.
type SpawnRequest struct {
	AgentPath string
	Input     string
	Priority  int
}

// ToolContext is built once per session by the session loop and shared by
// every tool call of that session, so SpawnCount accumulates across those
// calls. It carries read/write access to every collaboration surface plus
// the spawn-budget bookkeeping a tool must consult before calling back into
// the Kernel.
type ToolContext struct {
	VFS       vfs.VFS
	Registry  *registry.Registry
	EventLog  *eventlog.Log
	Blackboard *collab.Blackboard
	PubSub     *collab.PubSub
	Memory     *collab.WorkingMemory
	Tasks      *collab.TaskQueue
	Logger     *slog.Logger

	MCPServers map[string]MCPCaller

	CurrentAgentID      string
	CurrentActivationID string
	ParentAgentID       string
	ParentAgentPath     string // agent path the parent activation was running, for signal_parent's OnSpawn call
	SpawnDepth          int
	MaxDepth            int
	MaxFanout           int
	ChildCount          int // children already spawned by the current activation, as of session start
	SpawnCount          int // children spawned so far within this tool context's own lifetime, updated live
	PreferredModel      string
	APIKey              string

	// OnSpawn enqueues req as a new activation and returns its activation
	// id. The Kernel rejects a request deeper than MaxDepth, for an
	// unregistered agent, or after the token budget is spent; it does not
	// check MaxFanout, so a tool must perform the ChildCount+SpawnCount <
	// MaxFanout check itself before calling this, per invariant 7 (budget
	// checks precede any mutation).
	OnSpawn func(req SpawnRequest) (activationID string, err error)

	// OnRunSessionAndReturn runs a full synchronous child activation
	// (depth-bounded) and returns its final output, used by tools that
	// need a result back rather than a fire-and-forget spawn.
	OnRunSessionAndReturn func(req SpawnRequest) (output string, err error)

	// IncrementChildCount records a spawn with the Kernel's own bookkeeping
	// (k.childOf), which a later session sees as ChildCount. It does not
	// update this ToolContext's own SpawnCount, which a tool must bump
	// itself so the same session's next spawn call sees it.
	IncrementChildCount func()
}

// WithExtras returns a shallow copy of tc with ChildCount and
// CurrentActivationID overridden, leaving tc itself unchanged.
func (tc *ToolContext) WithExtras(childCount int, activationID string) *ToolContext {
	clone := *tc
	clone.ChildCount = childCount
	clone.CurrentActivationID = activationID
	return &clone
}
