package eventlog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haasonsaas/orchkernel/internal/vfs"
	"github.com/haasonsaas/orchkernel/pkg/orcmodels"
)

func TestAppendAssignsSequentialIDs(t *testing.T) {
	l := New(vfs.NewMemVFS())

	e1 := l.Append(orcmodels.EventActivation, "agent-1", "act-1", nil)
	e2 := l.Append(orcmodels.EventToolCall, "agent-1", "act-1", nil)

	assert.Equal(t, uint64(0), e1.ID)
	assert.Equal(t, uint64(1), e2.ID)
}

func TestForActivationFiltersCorrectly(t *testing.T) {
	l := New(vfs.NewMemVFS())
	l.Append(orcmodels.EventActivation, "agent-1", "act-1", nil)
	l.Append(orcmodels.EventActivation, "agent-2", "act-2", nil)
	l.Append(orcmodels.EventComplete, "agent-1", "act-1", nil)

	entries := l.ForActivation("act-1")
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, "act-1", e.ActivationID)
	}
}

func TestCheckpointRecordedOnlyForCheckpointEvents(t *testing.T) {
	store := vfs.NewMemVFS()
	require.NoError(t, store.Write("agents/a.md", "hello", "system"))
	l := New(store)

	l.Append(orcmodels.EventToolCall, "a", "act-1", nil)
	_, ok := l.GetCheckpoint(0)
	assert.False(t, ok, "tool_call should not produce a checkpoint")

	spawn := l.Append(orcmodels.EventSpawn, "a", "act-1", nil)
	ckpt, ok := l.GetCheckpoint(spawn.ID)
	require.True(t, ok)
	assert.Equal(t, "hello", ckpt.Files["agents/a.md"])
	assert.Equal(t, spawn.ID, ckpt.EventID)
}

func TestGetCheckpointReturnsMostRecentAtOrBefore(t *testing.T) {
	l := New(vfs.NewMemVFS())
	l.Append(orcmodels.EventSpawn, "a", "act-1", nil)
	second := l.Append(orcmodels.EventSpawn, "a", "act-2", nil)
	l.Append(orcmodels.EventToolCall, "a", "act-3", nil)

	ckpt, ok := l.GetCheckpoint(second.ID + 5)
	require.True(t, ok)
	assert.Equal(t, second.ID, ckpt.EventID)
}

func TestSinceReturnsEntriesFromID(t *testing.T) {
	l := New(vfs.NewMemVFS())
	l.Append(orcmodels.EventActivation, "a", "act-1", nil)
	l.Append(orcmodels.EventActivation, "a", "act-2", nil)
	l.Append(orcmodels.EventActivation, "a", "act-3", nil)

	entries := l.Since(1)
	require.Len(t, entries, 2)
	assert.Equal(t, uint64(1), entries[0].ID)
}
