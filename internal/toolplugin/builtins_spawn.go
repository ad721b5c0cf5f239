package toolplugin

import (
	"context"
	"fmt"
	"strings"

	"github.com/haasonsaas/orchkernel/pkg/orcmodels"
)

const agentsPrefix = "agents/"

// checkSpawnBudget enforces invariant 7: depth and fanout limits are
// checked before any state mutation, so a rejected spawn leaves no trace.
// Fanout counts both the session's pre-existing children (ChildCount) and
// whatever this same tool context has itself spawned so far (SpawnCount),
// so a second spawn within one session sees the first one's effect.
func checkSpawnBudget(tc *ToolContext) error {
	if tc.SpawnDepth+1 > tc.MaxDepth {
		return fmt.Errorf("Error: depth limit reached")
	}
	if tc.ChildCount+tc.SpawnCount+1 > tc.MaxFanout {
		return fmt.Errorf("Error: fanout limit reached")
	}
	return nil
}

// agentPathFor resolves a spawn_agent filename argument to its registry
// path, tolerating a caller that already passed a full agents/-prefixed
// path.
func agentPathFor(filename string) string {
	if strings.HasPrefix(filename, agentsPrefix) {
		return filename
	}
	return agentsPrefix + filename
}

// handoffPacket builds the condensed input a spawned or delegated
// activation receives: the task text followed by up to the last 10
// working-memory entries, so the child starts with the context its
// parent accumulated rather than the task alone.
func handoffPacket(tc *ToolContext, task, extraContext string) string {
	var b strings.Builder
	b.WriteString(task)

	if extraContext != "" {
		b.WriteString("\n\ncontext:\n")
		b.WriteString(extraContext)
	}

	if tc.Memory != nil {
		if recent := tc.Memory.Last(10); len(recent) > 0 {
			b.WriteString("\n\nworking memory:\n")
			for _, e := range recent {
				b.WriteString("- ")
				b.WriteString(e.Content)
				b.WriteString("\n")
			}
		}
	}

	return b.String()
}

// SpawnAgent creates a new, independently-scheduled activation of another
// agent. If the agent file at the target path is not yet registered, it
// writes and registers it first.
type SpawnAgent struct{}

func (SpawnAgent) Descriptor() orcmodels.ToolDescriptor {
	return orcmodels.ToolDescriptor{
		Name:        "spawn_agent",
		Description: "Spawn a new, independently-scheduled activation of another agent, writing and registering its file first if needed.",
		Parameters: []orcmodels.ToolParameter{
			{Name: "filename", Type: orcmodels.ParamString, Description: "Agent file name or path under agents/.", Required: true},
			{Name: "content", Type: orcmodels.ParamString, Description: "Agent file content, used only if the agent isn't already registered.", Required: false},
			{Name: "task", Type: orcmodels.ParamString, Description: "Task for the spawned activation's first turn.", Required: true},
			{Name: "priority", Type: orcmodels.ParamNumber, Description: "Scheduling priority, lower runs first.", Required: false},
		},
	}
}

func (t SpawnAgent) Execute(_ context.Context, tc *ToolContext, args map[string]orcmodels.Value) (string, error) {
	if err := checkSpawnBudget(tc); err != nil {
		return err.Error(), nil
	}
	filename, ok := stringArg(args, "filename")
	if !ok {
		return "Error: filename is required", nil
	}
	task, ok := stringArg(args, "task")
	if !ok {
		return "Error: task is required", nil
	}
	priority := 0
	if v, ok := args["priority"]; ok {
		priority = int(v.Num)
	}

	path := agentPathFor(filename)
	if _, registered := tc.Registry.Get(path); !registered {
		content, _ := stringArg(args, "content")
		if err := tc.VFS.Write(path, content, tc.CurrentAgentID); err != nil {
			return fmt.Sprintf("Error: %s", err), nil
		}
		if _, registered := tc.Registry.Get(path); !registered {
			return fmt.Sprintf("Error: %s did not register as an agent", path), nil
		}
	}

	id, err := tc.OnSpawn(SpawnRequest{
		AgentPath: path,
		Input:     handoffPacket(tc, task, ""),
		Priority:  priority,
	})
	if err != nil {
		return fmt.Sprintf("Error: %s", err), nil
	}
	tc.SpawnCount++
	if tc.IncrementChildCount != nil {
		tc.IncrementChildCount()
	}
	return fmt.Sprintf("spawned activation %s", id), nil
}

// Delegate spawns a child activation and blocks until it finishes,
// returning its final output to the caller.
type Delegate struct{}

func (Delegate) Descriptor() orcmodels.ToolDescriptor {
	return orcmodels.ToolDescriptor{
		Name:        "delegate",
		Description: "Run another agent to completion and return its final output.",
		Parameters: []orcmodels.ToolParameter{
			{Name: "agent", Type: orcmodels.ParamString, Description: "Registry path of the agent to run.", Required: true},
			{Name: "task", Type: orcmodels.ParamString, Description: "Task for the delegated run's first turn.", Required: true},
			{Name: "priority", Type: orcmodels.ParamNumber, Description: "Scheduling priority, lower runs first.", Required: false},
			{Name: "context", Type: orcmodels.ParamString, Description: "Extra context to append to the handoff.", Required: false},
		},
	}
}

func (t Delegate) Execute(_ context.Context, tc *ToolContext, args map[string]orcmodels.Value) (string, error) {
	if err := checkSpawnBudget(tc); err != nil {
		return err.Error(), nil
	}
	agentPath, ok := stringArg(args, "agent")
	if !ok {
		return "Error: agent is required", nil
	}
	task, ok := stringArg(args, "task")
	if !ok {
		return "Error: task is required", nil
	}
	priority := 0
	if v, ok := args["priority"]; ok {
		priority = int(v.Num)
	}
	extraContext, _ := stringArg(args, "context")

	output, err := tc.OnRunSessionAndReturn(SpawnRequest{
		AgentPath: agentPath,
		Input:     handoffPacket(tc, task, extraContext),
		Priority:  priority,
	})
	if err != nil {
		return fmt.Sprintf("Error: %s", err), nil
	}
	tc.SpawnCount++
	if tc.IncrementChildCount != nil {
		tc.IncrementChildCount()
	}
	return output, nil
}

// SignalParent enqueues an activation on the parent agent, at priority 0,
// and records a signal event — used to report progress or request
// attention without blocking the current session.
type SignalParent struct{}

func (SignalParent) Descriptor() orcmodels.ToolDescriptor {
	return orcmodels.ToolDescriptor{
		Name:        "signal_parent",
		Description: "Send a signal to the activation that spawned this one.",
		Parameters: []orcmodels.ToolParameter{
			{Name: "message", Type: orcmodels.ParamString, Description: "Signal payload.", Required: true},
		},
	}
}

func (t SignalParent) Execute(_ context.Context, tc *ToolContext, args map[string]orcmodels.Value) (string, error) {
	if tc.ParentAgentID == "" {
		return "Error: this activation has no parent to signal", nil
	}
	message, _ := stringArg(args, "message")

	id, err := tc.OnSpawn(SpawnRequest{
		AgentPath: tc.ParentAgentPath,
		Input:     message,
		Priority:  0,
	})
	if err != nil {
		return fmt.Sprintf("Error: %s", err), nil
	}

	tc.EventLog.Append(orcmodels.EventSignal, tc.CurrentAgentID, tc.CurrentActivationID, map[string]any{
		"parent":     tc.ParentAgentID,
		"message":    message,
		"activation": id,
	})
	return "signal sent", nil
}
