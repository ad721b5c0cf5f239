package kernel

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haasonsaas/orchkernel/internal/eventlog"
	"github.com/haasonsaas/orchkernel/internal/provider"
	"github.com/haasonsaas/orchkernel/internal/registry"
	"github.com/haasonsaas/orchkernel/internal/vfs"
	"github.com/haasonsaas/orchkernel/pkg/orcmodels"
)

func newTestKernel(t *testing.T, cfg Config) (*Kernel, *vfs.MemVFS, *provider.Mock) {
	store := vfs.NewMemVFS()
	reg := registry.New(store, nil)
	t.Cleanup(reg.Close)
	log := eventlog.New(store)
	mock := provider.NewMock()
	k := New(cfg, store, reg, log, mock, prometheus.NewRegistry(), nil)
	return k, store, mock
}

const plainAgent = "---\nname: worker\nmodel: test-model\n---\nYou are a worker.\n"

func TestEnqueueRejectsUnknownAgent(t *testing.T) {
	k, _, _ := newTestKernel(t, Config{})
	_, err := k.Enqueue(orcmodels.Activation{AgentPath: "agents/missing.md"})
	assert.Error(t, err)
}

func TestEnqueueRejectsOverMaxDepth(t *testing.T) {
	k, store, _ := newTestKernel(t, Config{MaxDepth: 2})
	require.NoError(t, store.Write("agents/worker.md", plainAgent, "system"))

	_, err := k.Enqueue(orcmodels.Activation{AgentPath: "agents/worker.md", SpawnDepth: 3})
	assert.Error(t, err)
}

func TestRunUntilEmptyCompletesSimpleSession(t *testing.T) {
	k, store, mock := newTestKernel(t, Config{MaxConcurrency: 2})
	require.NoError(t, store.Write("agents/worker.md", plainAgent, "system"))
	mock.Enqueue(provider.Script{
		{Kind: provider.ChunkText, Text: "all done"},
		{Kind: provider.ChunkDone, TokenCount: 5},
	})

	id, err := k.Enqueue(orcmodels.Activation{AgentPath: "agents/worker.md", Input: "go"})
	require.NoError(t, err)

	require.NoError(t, k.RunUntilEmpty(context.Background()))

	entries := k.EventLog.ForActivation(id)
	var sawComplete bool
	for _, e := range entries {
		if e.Type == orcmodels.EventComplete {
			sawComplete = true
			assert.Equal(t, string(orcmodels.SessionCompleted), e.Data["status"])
		}
	}
	assert.True(t, sawComplete)
}

func TestSessionExecutesToolCallsThenCompletes(t *testing.T) {
	k, store, mock := newTestKernel(t, Config{MaxConcurrency: 1})
	require.NoError(t, store.Write("agents/worker.md", plainAgent, "system"))

	mock.Enqueue(provider.Script{
		{Kind: provider.ChunkToolCall, ToolCallID: "call-1", ToolName: "vfs_write", ToolArgs: map[string]orcmodels.Value{
			"path":    {Kind: orcmodels.KindString, Str: "notes.md"},
			"content": {Kind: orcmodels.KindString, Str: "hello"},
		}},
		{Kind: provider.ChunkDone, TokenCount: 2},
	})
	mock.Enqueue(provider.Script{
		{Kind: provider.ChunkText, Text: "wrote it"},
		{Kind: provider.ChunkDone, TokenCount: 2},
	})

	id, err := k.Enqueue(orcmodels.Activation{AgentPath: "agents/worker.md", Input: "write a note"})
	require.NoError(t, err)
	require.NoError(t, k.RunUntilEmpty(context.Background()))

	content, ok := store.Read("notes.md")
	require.True(t, ok)
	assert.Equal(t, "hello", content)

	entries := k.EventLog.ForActivation(id)
	var sawToolCall, sawToolResult bool
	for _, e := range entries {
		switch e.Type {
		case orcmodels.EventToolCall:
			sawToolCall = true
		case orcmodels.EventToolResult:
			sawToolResult = true
		}
	}
	assert.True(t, sawToolCall)
	assert.True(t, sawToolResult)
}

func TestSpawnAgentEnqueuesChildActivation(t *testing.T) {
	k, store, mock := newTestKernel(t, Config{MaxConcurrency: 2, MaxDepth: 3, MaxFanout: 3})
	require.NoError(t, store.Write("agents/parent.md", "---\nname: parent\n---\nspawns children\n", "system"))
	require.NoError(t, store.Write("agents/child.md", "---\nname: child\n---\ndoes child work\n", "system"))

	mock.Enqueue(provider.Script{
		{Kind: provider.ChunkToolCall, ToolCallID: "call-1", ToolName: "spawn_agent", ToolArgs: map[string]orcmodels.Value{
			"filename": {Kind: orcmodels.KindString, Str: "agents/child.md"},
			"task":     {Kind: orcmodels.KindString, Str: "go"},
		}},
		{Kind: provider.ChunkDone, TokenCount: 1},
	})
	mock.Enqueue(provider.Script{
		{Kind: provider.ChunkText, Text: "spawned"},
		{Kind: provider.ChunkDone, TokenCount: 1},
	})
	mock.Enqueue(provider.Script{
		{Kind: provider.ChunkText, Text: "child done"},
		{Kind: provider.ChunkDone, TokenCount: 1},
	})

	_, err := k.Enqueue(orcmodels.Activation{AgentPath: "agents/parent.md", Input: "go", AgentID: "parent-1"})
	require.NoError(t, err)
	require.NoError(t, k.RunUntilEmpty(context.Background()))

	var sawChildActivation bool
	for _, e := range k.EventLog.All() {
		if e.Type == orcmodels.EventActivation {
			if path, _ := e.Data["agent_path"].(string); path == "agents/child.md" {
				sawChildActivation = true
			}
		}
	}
	assert.True(t, sawChildActivation)
}

func TestPauseStopsSchedulingFurtherActivations(t *testing.T) {
	k, store, mock := newTestKernel(t, Config{MaxConcurrency: 1})
	require.NoError(t, store.Write("agents/worker.md", plainAgent, "system"))
	mock.Enqueue(provider.Script{{Kind: provider.ChunkDone, TokenCount: 1}})

	k.Pause()
	_, err := k.Enqueue(orcmodels.Activation{AgentPath: "agents/worker.md", Input: "go"})
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		k.RunUntilEmpty(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunUntilEmpty did not return promptly while paused")
	}

	assert.Equal(t, 1, k.queue.Len())
}

func TestKillAllClearsQueueAndPausesDispatch(t *testing.T) {
	k, store, _ := newTestKernel(t, Config{})
	require.NoError(t, store.Write("agents/worker.md", plainAgent, "system"))

	_, err := k.Enqueue(orcmodels.Activation{AgentPath: "agents/worker.md", Input: "go"})
	require.NoError(t, err)
	require.Equal(t, 1, k.queue.Len())

	k.KillAll()

	assert.Equal(t, 0, k.queue.Len())
	assert.True(t, k.paused.Load())
}

func TestRunSessionMarksAbortedAndEmitsAbortWhenCancelledMidTurn(t *testing.T) {
	k, store, mock := newTestKernel(t, Config{MaxConcurrency: 1})
	require.NoError(t, store.Write("agents/worker.md", plainAgent, "system"))

	ctx, cancel := context.WithCancel(context.Background())
	mock.OnChat(func(string, provider.ChatConfig, []orcmodels.Message) {
		cancel()
	})
	mock.Enqueue(provider.Script{
		{Kind: provider.ChunkText, Text: "partial"},
		{Kind: provider.ChunkDone, TokenCount: 1},
	})

	_, err := k.runSession(ctx, orcmodels.Activation{ID: "act-1", AgentPath: "agents/worker.md", Input: "go"})
	require.NoError(t, err)

	var sawAbort, sawComplete bool
	for _, e := range k.EventLog.ForActivation("act-1") {
		switch e.Type {
		case orcmodels.EventAbort:
			sawAbort = true
		case orcmodels.EventComplete:
			sawComplete = true
		}
	}
	assert.True(t, sawAbort, "a session cancelled mid-turn must emit abort, not complete")
	assert.False(t, sawComplete)
}

func TestQueueOrdersByPriorityThenCreation(t *testing.T) {
	q := NewActivationQueue()
	now := time.Now()
	q.Push(orcmodels.Activation{ID: "low-priority", Priority: 5, CreatedAt: now})
	q.Push(orcmodels.Activation{ID: "high-priority", Priority: 1, CreatedAt: now.Add(time.Second)})
	q.Push(orcmodels.Activation{ID: "high-priority-earlier", Priority: 1, CreatedAt: now})

	first, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, "high-priority-earlier", first.ID)

	second, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, "high-priority", second.ID)

	third, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, "low-priority", third.ID)
}
