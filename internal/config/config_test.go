package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haasonsaas/orchkernel/internal/mcp"
)

const sampleConfig = `
kernel:
  max_concurrency: 8
  max_depth: 3
run_controller:
  output_dir: build-outputs
mcp:
  servers:
    - name: search
      transport: http
      endpoint: http://localhost:9000
logging:
  level: debug
`

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "orchestrate.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaultsForMissingFields(t *testing.T) {
	path := writeTemp(t, sampleConfig)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Kernel.MaxConcurrency)
	assert.Equal(t, 3, cfg.Kernel.MaxDepth)
	assert.Equal(t, 8, cfg.Kernel.MaxFanout) // default, not set in YAML
	assert.Equal(t, "build-outputs", cfg.RunController.OutputDir)
	assert.Equal(t, 4, cfg.RunController.MaxParallelSteps)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	_, err := Load("/nonexistent/path/orchestrate.yaml")
	require.Error(t, err)
}

func TestMCPServerConfigsRejectsStdio(t *testing.T) {
	cfg := MCPConfig{Servers: []MCPServerConfig{{Name: "x", Transport: "stdio", Endpoint: "whatever"}}}
	_, err := cfg.MCPServerConfigs()
	require.Error(t, err)
}

func TestMCPServerConfigsConvertsHTTP(t *testing.T) {
	cfg := MCPConfig{Servers: []MCPServerConfig{{Name: "search", Transport: "http", Endpoint: "http://x"}}}
	out, err := cfg.MCPServerConfigs()
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, mcp.TransportHTTP, out[0].Transport)
}
