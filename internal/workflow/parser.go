// Package workflow implements the Workflow Engine: DAG validation,
// topological ordering, and parallel, resumable step dispatch.
package workflow

import (
	"fmt"

	"github.com/haasonsaas/orchkernel/pkg/orcmodels"
)

// Parse validates def's steps and fills in its ExecutionOrder via Kahn's
// algorithm. A structurally invalid definition (duplicate id, unknown
// dependency, cycle) is returned with Diagnostics populated and
// ExecutionOrder left empty rather than as a Go error, so a caller can
// surface every problem at once instead of failing on the first.
func Parse(def orcmodels.WorkflowDefinition) orcmodels.WorkflowDefinition {
	def.Diagnostics = nil
	def.ExecutionOrder = nil

	seen := make(map[string]bool, len(def.Steps))
	for _, s := range def.Steps {
		if s.ID == "" {
			def.Diagnostics = append(def.Diagnostics, "a step is missing an id")
			continue
		}
		if s.AgentPath == "" {
			def.Diagnostics = append(def.Diagnostics, fmt.Sprintf("step %q is missing an agent path", s.ID))
		}
		if s.Prompt == "" {
			def.Diagnostics = append(def.Diagnostics, fmt.Sprintf("step %q is missing a prompt", s.ID))
		}
		if seen[s.ID] {
			def.Diagnostics = append(def.Diagnostics, fmt.Sprintf("duplicate step id %q", s.ID))
			continue
		}
		seen[s.ID] = true
	}

	for _, s := range def.Steps {
		for _, dep := range s.DependsOn {
			if !seen[dep] {
				def.Diagnostics = append(def.Diagnostics, fmt.Sprintf("step %q depends on unknown step %q", s.ID, dep))
			}
		}
	}

	if len(def.Diagnostics) > 0 {
		return def
	}

	order, ok := topologicalOrder(def.Steps)
	if !ok {
		def.Diagnostics = append(def.Diagnostics, "workflow contains a dependency cycle")
		return def
	}
	def.ExecutionOrder = order
	return def
}

// topologicalOrder applies Kahn's algorithm: repeatedly remove nodes with
// no remaining unresolved dependency, batching ties by step declaration
// order so the result is deterministic for equal-priority steps.
func topologicalOrder(steps []orcmodels.WorkflowStep) ([]string, bool) {
	indegree := make(map[string]int, len(steps))
	dependents := make(map[string][]string, len(steps))
	order := make([]string, 0, len(steps))
	stepIndex := make(map[string]int, len(steps))

	for i, s := range steps {
		indegree[s.ID] = len(s.DependsOn)
		stepIndex[s.ID] = i
		for _, dep := range s.DependsOn {
			dependents[dep] = append(dependents[dep], s.ID)
		}
	}

	var ready []string
	for _, s := range steps {
		if indegree[s.ID] == 0 {
			ready = append(ready, s.ID)
		}
	}

	for len(ready) > 0 {
		// Deterministic: always take the lowest-declaration-order ready node.
		best := 0
		for i := 1; i < len(ready); i++ {
			if stepIndex[ready[i]] < stepIndex[ready[best]] {
				best = i
			}
		}
		id := ready[best]
		ready = append(ready[:best], ready[best+1:]...)
		order = append(order, id)

		for _, dep := range dependents[id] {
			indegree[dep]--
			if indegree[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}

	if len(order) != len(steps) {
		return nil, false
	}
	return order, true
}

// ReadyBatch returns every step in def.ExecutionOrder whose dependencies
// are all present in completed but which is not itself in completed —
// i.e. the next set of steps that could run in parallel right now.
func ReadyBatch(def orcmodels.WorkflowDefinition, completed map[string]bool) []orcmodels.WorkflowStep {
	byID := make(map[string]orcmodels.WorkflowStep, len(def.Steps))
	for _, s := range def.Steps {
		byID[s.ID] = s
	}

	var ready []orcmodels.WorkflowStep
	for _, id := range def.ExecutionOrder {
		if completed[id] {
			continue
		}
		step := byID[id]
		allDepsDone := true
		for _, dep := range step.DependsOn {
			if !completed[dep] {
				allDepsDone = false
				break
			}
		}
		if allDepsDone {
			ready = append(ready, step)
		}
	}
	return ready
}
