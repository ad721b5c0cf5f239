package toolplugin

import (
	"context"
	"fmt"
	"strings"

	"github.com/haasonsaas/orchkernel/pkg/orcmodels"
)

// BlackboardRead reads a shared key.
type BlackboardRead struct{}

func (BlackboardRead) Descriptor() orcmodels.ToolDescriptor {
	return orcmodels.ToolDescriptor{
		Name:        "blackboard_read",
		Description: "Read a value from the shared blackboard.",
		Parameters: []orcmodels.ToolParameter{
			{Name: "key", Type: orcmodels.ParamString, Description: "Key to read.", Required: true},
		},
	}
}

func (t BlackboardRead) Execute(_ context.Context, tc *ToolContext, args map[string]orcmodels.Value) (string, error) {
	key, ok := stringArg(args, "key")
	if !ok {
		return "Error: key is required", nil
	}
	v, ok := tc.Blackboard.Read(key)
	if !ok {
		return fmt.Sprintf("Error: no value at key %s", key), nil
	}
	s, _ := v.AsString()
	return s, nil
}

// BlackboardWrite writes a shared key.
type BlackboardWrite struct{}

func (BlackboardWrite) Descriptor() orcmodels.ToolDescriptor {
	return orcmodels.ToolDescriptor{
		Name:        "blackboard_write",
		Description: "Write a value to the shared blackboard, visible to every agent in the run.",
		Parameters: []orcmodels.ToolParameter{
			{Name: "key", Type: orcmodels.ParamString, Description: "Key to write.", Required: true},
			{Name: "value", Type: orcmodels.ParamString, Description: "Value to store.", Required: true},
		},
	}
}

func (t BlackboardWrite) Execute(_ context.Context, tc *ToolContext, args map[string]orcmodels.Value) (string, error) {
	key, ok := stringArg(args, "key")
	if !ok {
		return "Error: key is required", nil
	}
	value, _ := stringArg(args, "value")
	tc.Blackboard.Write(key, orcmodels.Value{Kind: orcmodels.KindString, Str: value})
	return "written", nil
}

// MemoryWrite appends a tagged note to working memory.
type MemoryWrite struct{}

func (MemoryWrite) Descriptor() orcmodels.ToolDescriptor {
	return orcmodels.ToolDescriptor{
		Name:        "memory_write",
		Description: "Write a tagged note to the run's working memory.",
		Parameters: []orcmodels.ToolParameter{
			{Name: "content", Type: orcmodels.ParamString, Description: "Note content.", Required: true},
			{Name: "tags", Type: orcmodels.ParamString, Description: "Comma-separated tags.", Required: false},
		},
	}
}

func (t MemoryWrite) Execute(_ context.Context, tc *ToolContext, args map[string]orcmodels.Value) (string, error) {
	content, ok := stringArg(args, "content")
	if !ok {
		return "Error: content is required", nil
	}
	var tags []string
	if tagsArg, ok := stringArg(args, "tags"); ok && tagsArg != "" {
		for _, tag := range strings.Split(tagsArg, ",") {
			tags = append(tags, strings.TrimSpace(tag))
		}
	}
	tc.Memory.Write(tc.CurrentAgentID, content, tags...)
	return "noted", nil
}

// MemoryRead reads working memory entries, optionally filtered by tag.
type MemoryRead struct{}

func (MemoryRead) Descriptor() orcmodels.ToolDescriptor {
	return orcmodels.ToolDescriptor{
		Name:        "memory_read",
		Description: "Read the run's working memory, optionally filtered by tag.",
		Parameters: []orcmodels.ToolParameter{
			{Name: "tag", Type: orcmodels.ParamString, Description: "Tag to filter by.", Required: false},
		},
	}
}

func (t MemoryRead) Execute(_ context.Context, tc *ToolContext, args map[string]orcmodels.Value) (string, error) {
	var entries []string
	var tags []string
	if tag, ok := stringArg(args, "tag"); ok && tag != "" {
		tags = []string{tag}
	}
	for _, e := range tc.Memory.Read(tags...) {
		entries = append(entries, fmt.Sprintf("[%s] %s", e.AgentID, e.Content))
	}
	if len(entries) == 0 {
		return "(no matching entries)", nil
	}
	return strings.Join(entries, "\n"), nil
}

// TaskQueueWrite enqueues a new task.
type TaskQueueWrite struct{}

func (TaskQueueWrite) Descriptor() orcmodels.ToolDescriptor {
	return orcmodels.ToolDescriptor{
		Name:        "task_queue_write",
		Description: "Enqueue a task for a future cycle or another agent to claim.",
		Parameters: []orcmodels.ToolParameter{
			{Name: "description", Type: orcmodels.ParamString, Description: "Task description.", Required: true},
		},
	}
}

func (t TaskQueueWrite) Execute(_ context.Context, tc *ToolContext, args map[string]orcmodels.Value) (string, error) {
	description, ok := stringArg(args, "description")
	if !ok {
		return "Error: description is required", nil
	}
	id := tc.Tasks.Enqueue(description)
	return fmt.Sprintf("enqueued task %s", id), nil
}

// TaskQueueRead claims and returns the next pending task.
type TaskQueueRead struct{}

func (TaskQueueRead) Descriptor() orcmodels.ToolDescriptor {
	return orcmodels.ToolDescriptor{
		Name:        "task_queue_read",
		Description: "Claim the oldest pending task from the shared task queue.",
	}
}

func (t TaskQueueRead) Execute(_ context.Context, tc *ToolContext, args map[string]orcmodels.Value) (string, error) {
	task, ok := tc.Tasks.ClaimNext(tc.CurrentAgentID)
	if !ok {
		return "(no pending tasks)", nil
	}
	return fmt.Sprintf("%s: %s", task.ID, task.Description), nil
}
