package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haasonsaas/orchkernel/pkg/orcmodels"
)

const sampleWorkflow = `---
name: nightly-report
description: summarize yesterday's activity
trigger: auto
cron_schedule: "0 6 * * *"
steps:
  - id: gather
    agent: agents/gather.md
    prompt: collect yesterday's events
  - id: summarize
    agent: agents/summarize.md
    prompt: "summarize: {gather.text}"
    depends_on: [gather]
---
`

func TestParseFileParsesTriggerAndSteps(t *testing.T) {
	def, err := ParseFile("workflows/nightly.md", sampleWorkflow)
	require.NoError(t, err)
	require.Empty(t, def.Diagnostics)
	assert.Equal(t, orcmodels.TriggerAuto, def.Trigger)
	assert.Equal(t, "0 6 * * *", def.CronSchedule)
	assert.Equal(t, []string{"gather", "summarize"}, def.ExecutionOrder)
}

func TestParseFileRejectsMissingFrontMatter(t *testing.T) {
	_, err := ParseFile("workflows/bad.md", "no front matter here")
	require.Error(t, err)
}

func TestParseFileDefaultsToManualTrigger(t *testing.T) {
	def, err := ParseFile("workflows/manual.md", "---\nname: manual-run\nsteps:\n  - id: a\n    agent: agents/a.md\n    prompt: go\n---\n")
	require.NoError(t, err)
	assert.Equal(t, orcmodels.TriggerManual, def.Trigger)
}
