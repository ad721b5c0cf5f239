package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haasonsaas/orchkernel/internal/vfs"
	"github.com/haasonsaas/orchkernel/pkg/orcmodels"
)

const sampleAgent = `---
name: researcher
model: claude-opus
safety_mode: cautious
tools:
  - web_fetch
  - vfs_write
autonomous:
  max_cycles: 10
  stop_when_complete: true
mcp_servers:
  - search
---
You are a careful researcher. Cite your sources.
`

func TestParseAgentFile(t *testing.T) {
	profile, err := parseAgentFile("agents/researcher.md", sampleAgent)
	require.NoError(t, err)

	assert.Equal(t, "researcher", profile.Name)
	assert.Equal(t, "claude-opus", profile.Model)
	assert.Equal(t, orcmodels.SafetyCautious, profile.SafetyMode)
	assert.Equal(t, []string{"web_fetch", "vfs_write"}, profile.ToolAllowList)
	require.NotNil(t, profile.Autonomous)
	assert.Equal(t, 10, profile.Autonomous.MaxCycles)
	assert.True(t, profile.Autonomous.StopWhenComplete)
	require.Len(t, profile.MCPServers, 1)
	assert.Equal(t, "search", profile.MCPServers[0].Name)
	assert.Contains(t, profile.SystemPrompt, "careful researcher")
}

func TestParseAgentFileNoFrontMatter(t *testing.T) {
	profile, err := parseAgentFile("agents/plain.md", "Just a prompt, no header.")
	require.NoError(t, err)
	assert.Equal(t, "plain", profile.Name)
	assert.Equal(t, "Just a prompt, no header.", profile.SystemPrompt)
}

func TestParseAgentFileUnterminatedFrontMatter(t *testing.T) {
	_, err := parseAgentFile("agents/bad.md", "---\nname: x\nno closing delimiter")
	assert.Error(t, err)
}

func TestRegistryTracksVFSWrites(t *testing.T) {
	store := vfs.NewMemVFS()
	reg := New(store, nil)
	defer reg.Close()

	require.NoError(t, store.Write("agents/a.md", sampleAgent, "system"))

	profile, ok := reg.Get("agents/a.md")
	require.True(t, ok)
	assert.Equal(t, "researcher", profile.Name)

	all := reg.ListAll()
	require.Len(t, all, 1)
}

func TestRegistryIgnoresNonAgentPaths(t *testing.T) {
	store := vfs.NewMemVFS()
	reg := New(store, nil)
	defer reg.Close()

	require.NoError(t, store.Write("outputs/report.md", "not an agent", "system"))
	assert.Empty(t, reg.ListAll())
}

func TestRegistryUnregistersOnDelete(t *testing.T) {
	store := vfs.NewMemVFS()
	require.NoError(t, store.Write("agents/a.md", sampleAgent, "system"))
	reg := New(store, nil)
	defer reg.Close()

	require.NoError(t, store.Delete("agents/a.md"))

	_, ok := reg.Get("agents/a.md")
	assert.False(t, ok)
}

func TestRegistryKeepsPreviousProfileOnParseFailure(t *testing.T) {
	store := vfs.NewMemVFS()
	reg := New(store, nil)
	defer reg.Close()

	require.NoError(t, store.Write("agents/a.md", sampleAgent, "system"))
	require.NoError(t, store.Write("agents/a.md", "---\nunterminated", "system"))

	profile, ok := reg.Get("agents/a.md")
	require.True(t, ok)
	assert.Equal(t, "researcher", profile.Name)
}
