package runcontroller

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haasonsaas/orchkernel/internal/provider"
	"github.com/haasonsaas/orchkernel/internal/registry"
	"github.com/haasonsaas/orchkernel/internal/vfs"
	"github.com/haasonsaas/orchkernel/pkg/orcmodels"
)

func newTestController(t *testing.T) (*Controller, *vfs.MemVFS, *provider.Mock) {
	store := vfs.NewMemVFS()
	reg := registry.New(store, nil)
	t.Cleanup(reg.Close)
	mock := provider.NewMock()
	c := New(Config{}, store, reg, mock, nil, prometheus.NewRegistry(), nil)

	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	origStamp := stamp
	stamp = func() time.Time { return fixed }
	t.Cleanup(func() { stamp = origStamp })

	return c, store, mock
}

func scriptText(text string) provider.Script {
	return provider.Script{
		{Kind: provider.ChunkText, Text: text},
		{Kind: provider.ChunkDone, TokenCount: 1},
	}
}

func TestRunExecutesSingleActivation(t *testing.T) {
	c, store, mock := newTestController(t)
	require.NoError(t, store.Write("agents/a.md", "---\nname: a\n---\nEcho.\n", "system"))
	mock.Enqueue(scriptText("hello"))

	result, err := c.Run(context.Background(), "agents/a.md", "hi")
	require.NoError(t, err)
	assert.Equal(t, "hello", result.Output)
}

func TestRunWorkflowWritesOutputFile(t *testing.T) {
	c, store, mock := newTestController(t)
	require.NoError(t, store.Write("agents/a.md", "---\nname: a\n---\nstep a\n", "system"))
	require.NoError(t, store.Write("agents/b.md", "---\nname: b\n---\nstep b\n", "system"))
	require.NoError(t, store.Write("workflows/demo.md", demoWorkflow, "system"))

	mock.Enqueue(scriptText("A-out"))
	mock.Enqueue(scriptText("B-out"))

	result, err := c.RunWorkflow(context.Background(), "workflows/demo.md")
	require.NoError(t, err)
	require.NotEmpty(t, result.OutputPath)

	content, ok := store.Read(result.OutputPath)
	require.True(t, ok)
	assert.Contains(t, content, "status: completed")
	assert.Contains(t, content, "A-out")
	assert.Contains(t, content, "B-out")
}

func TestRunWorkflowPersistsResumeTicketOnFailure(t *testing.T) {
	c, store, mock := newTestController(t)
	require.NoError(t, store.Write("agents/a.md", "---\nname: a\n---\nstep a\n", "system"))
	require.NoError(t, store.Write("agents/b.md", "---\nname: b\n---\nstep b\n", "system"))
	require.NoError(t, store.Write("workflows/demo.md", demoWorkflow, "system"))

	mock.Enqueue(scriptText("A-out"))
	mock.Enqueue(provider.Script{{Kind: provider.ChunkError, Err: errBoom}})

	_, err := c.RunWorkflow(context.Background(), "workflows/demo.md")
	require.Error(t, err)

	resume, ok, rerr := ReadResumeTicket(store, "workflows/demo.md")
	require.NoError(t, rerr)
	require.True(t, ok)
	assert.Contains(t, resume.CompletedSteps, "a")
}

func TestResumeWorkflowSkipsCompletedSteps(t *testing.T) {
	c, store, mock := newTestController(t)
	require.NoError(t, store.Write("agents/a.md", "---\nname: a\n---\nstep a\n", "system"))
	require.NoError(t, store.Write("agents/b.md", "---\nname: b\n---\nstep b\n", "system"))
	require.NoError(t, store.Write("workflows/demo.md", demoWorkflow, "system"))

	resume := orcmodels.WorkflowResume{
		CompletedSteps:   []string{"a"},
		CompletedOutputs: map[string]map[string]orcmodels.Value{"a": {"text": {Kind: orcmodels.KindString, Str: "A-out"}}},
		Variables:        map[string]orcmodels.Value{},
	}
	mock.Enqueue(scriptText("B-out"))

	result, err := c.ResumeWorkflow(context.Background(), "workflows/demo.md", resume)
	require.NoError(t, err)
	assert.True(t, result.Resumed)
	content, ok := store.Read(result.OutputPath)
	require.True(t, ok)
	assert.Contains(t, content, "resumed from a prior failed run")
}

const demoWorkflow = `---
name: demo
steps:
  - id: a
    agent: agents/a.md
    prompt: do a
  - id: b
    agent: agents/b.md
    prompt: "use {a.text}"
    depends_on: [a]
---
`

type boomErr struct{}

func (boomErr) Error() string { return "boom" }

var errBoom = boomErr{}
