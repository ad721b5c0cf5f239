package autonomous

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haasonsaas/orchkernel/internal/collab"
	"github.com/haasonsaas/orchkernel/internal/eventlog"
	"github.com/haasonsaas/orchkernel/internal/kernel"
	"github.com/haasonsaas/orchkernel/internal/provider"
	"github.com/haasonsaas/orchkernel/internal/registry"
	"github.com/haasonsaas/orchkernel/internal/vfs"
	"github.com/haasonsaas/orchkernel/pkg/orcmodels"
)

func newTestRunner(t *testing.T) (*Runner, *vfs.MemVFS, *provider.Mock) {
	store := vfs.NewMemVFS()
	reg := registry.New(store, nil)
	t.Cleanup(reg.Close)
	log := eventlog.New(store)
	mock := provider.NewMock()
	k := kernel.New(kernel.Config{MaxConcurrency: 1}, store, reg, log, mock, prometheus.NewRegistry(), nil)
	return New(k, nil), store, mock
}

const autonomousAgent = "---\nname: runner-agent\nmodel: test-model\nautonomous:\n  max_cycles: 3\n  stop_when_complete: true\n---\nWork the mission.\n"

func TestRunStopsAtMaxCycles(t *testing.T) {
	runner, store, mock := newTestRunner(t)
	require.NoError(t, store.Write("agents/runner.md", autonomousAgent, "system"))

	for i := 0; i < 3; i++ {
		mock.Enqueue(provider.Script{
			{Kind: provider.ChunkText, Text: "working on it"},
			{Kind: provider.ChunkDone, TokenCount: 1},
		})
	}

	profile, _ := runner.Kernel.Registry.Get("agents/runner.md")
	result, err := runner.Run(context.Background(), profile, "finish the mission")
	require.NoError(t, err)

	assert.Equal(t, 3, result.CyclesRun)
	assert.False(t, result.Stopped)
}

func TestRunStopsEarlyOnMissionComplete(t *testing.T) {
	runner, store, mock := newTestRunner(t)
	require.NoError(t, store.Write("agents/runner.md", autonomousAgent, "system"))

	mock.Enqueue(provider.Script{
		{Kind: provider.ChunkText, Text: "MISSION_COMPLETE"},
		{Kind: provider.ChunkDone, TokenCount: 1},
	})

	profile, _ := runner.Kernel.Registry.Get("agents/runner.md")
	result, err := runner.Run(context.Background(), profile, "finish fast")
	require.NoError(t, err)

	assert.True(t, result.Stopped)
	assert.Equal(t, 1, result.CyclesRun)
	assert.True(t, result.Final.Complete)
}

func TestPrepareMissionStateFreshWhenNotResuming(t *testing.T) {
	store := vfs.NewMemVFS()
	state := prepareMissionState(store, "agents/a.md", "do it", false)
	assert.Equal(t, 0, state.Cycle)
}

func TestPrepareMissionStateResumesOnMatchingPrompt(t *testing.T) {
	store := vfs.NewMemVFS()
	saveMissionState(store, MissionState{AgentPath: "agents/a.md", Prompt: "Do It", Cycle: 2})

	state := prepareMissionState(store, "agents/a.md", "  do it  ", true)
	assert.Equal(t, 2, state.Cycle)
}

func TestPrepareMissionStateFreshOnPromptMismatch(t *testing.T) {
	store := vfs.NewMemVFS()
	saveMissionState(store, MissionState{AgentPath: "agents/a.md", Prompt: "old mission", Cycle: 5})

	state := prepareMissionState(store, "agents/a.md", "new mission", true)
	assert.Equal(t, 0, state.Cycle)
}

func TestPrepareMissionStateFreshOnCorruptJSON(t *testing.T) {
	store := vfs.NewMemVFS()
	require.NoError(t, store.Write(missionPath("agents/a.md"), "{not json", "test"))

	state := prepareMissionState(store, "agents/a.md", "do it", true)
	assert.Equal(t, 0, state.Cycle)
}

func TestEstimateCompletionDetectsMarker(t *testing.T) {
	assert.Equal(t, 1.0, estimateCompletion("done: MISSION_COMPLETE", collab.NewTaskQueue()))
}

func TestEstimateCompletionTracksTaskRatio(t *testing.T) {
	q := collab.NewTaskQueue()
	id := q.Enqueue("one task")
	assert.Equal(t, 0.0, estimateCompletion("still working", q))
	q.Complete(id)
	assert.Equal(t, 1.0, estimateCompletion("still working", q))
}
