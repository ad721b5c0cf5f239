package runcontroller

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAutoWorkflowsRegistersOnlyAutoTriggered(t *testing.T) {
	c, store, _ := newTestController(t)
	require.NoError(t, store.Write("agents/a.md", "---\nname: a\n---\nstep a\n", "system"))
	require.NoError(t, store.Write("workflows/auto.md", "---\nname: auto\ntrigger: auto\ncron_schedule: \"*/5 * * * *\"\nsteps:\n  - id: a\n    agent: agents/a.md\n    prompt: go\n---\n", "system"))
	require.NoError(t, store.Write("workflows/manual.md", "---\nname: manual\nsteps:\n  - id: a\n    agent: agents/a.md\n    prompt: go\n---\n", "system"))

	sched := NewScheduler(c, nil)
	require.NoError(t, sched.LoadAutoWorkflows(store))

	entries := sched.cron.Entries()
	assert.Len(t, entries, 1)
}

func TestLoadAutoWorkflowsSkipsInvalidSchedule(t *testing.T) {
	c, store, _ := newTestController(t)
	require.NoError(t, store.Write("agents/a.md", "---\nname: a\n---\nstep a\n", "system"))
	require.NoError(t, store.Write("workflows/bad.md", "---\nname: bad\ntrigger: auto\ncron_schedule: \"not a schedule\"\nsteps:\n  - id: a\n    agent: agents/a.md\n    prompt: go\n---\n", "system"))

	sched := NewScheduler(c, nil)
	require.NoError(t, sched.LoadAutoWorkflows(store))

	assert.Empty(t, sched.cron.Entries())
}
