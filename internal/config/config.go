// Package config loads the runtime's top-level YAML configuration: Kernel
// budgets, MCP server registrations, and Run Controller defaults, matching
// the teacher's root-Config-plus-sub-structs pattern.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/haasonsaas/orchkernel/internal/mcp"
)

// Config is the root configuration for cmd/orchestrate.
type Config struct {
	Kernel        KernelConfig        `yaml:"kernel"`
	RunController RunControllerConfig `yaml:"run_controller"`
	MCP           MCPConfig           `yaml:"mcp"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// KernelConfig mirrors kernel.Config with YAML tags, so it can be decoded
// directly from a config file and handed to kernel.New.
type KernelConfig struct {
	MaxConcurrency int `yaml:"max_concurrency"`
	MaxDepth       int `yaml:"max_depth"`
	MaxFanout      int `yaml:"max_fanout"`
	TokenBudget    int `yaml:"token_budget"`
}

// RunControllerConfig configures the Run Controller's workflow-output and
// autonomous-run defaults.
type RunControllerConfig struct {
	WorkspaceRoot   string        `yaml:"workspace_root"`
	OutputDir       string        `yaml:"output_dir"`
	MaxParallelSteps int          `yaml:"max_parallel_steps"`
	DefaultMaxCycles int          `yaml:"default_max_cycles"`
	StepTimeout     time.Duration `yaml:"step_timeout"`
}

// MCPConfig lists the MCP servers agent profiles may reference by name.
type MCPConfig struct {
	Servers []MCPServerConfig `yaml:"servers"`
}

// MCPServerConfig is one entry of MCPConfig.Servers.
type MCPServerConfig struct {
	Name      string `yaml:"name"`
	Transport string `yaml:"transport"`
	Endpoint  string `yaml:"endpoint"`
}

// LoggingConfig controls the root slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "text"
}

// Load reads, expands environment variables in, and parses the YAML config
// file at path. Missing optional sections are filled with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Kernel.MaxConcurrency <= 0 {
		cfg.Kernel.MaxConcurrency = 4
	}
	if cfg.Kernel.MaxDepth <= 0 {
		cfg.Kernel.MaxDepth = 5
	}
	if cfg.Kernel.MaxFanout <= 0 {
		cfg.Kernel.MaxFanout = 8
	}
	if cfg.RunController.WorkspaceRoot == "" {
		cfg.RunController.WorkspaceRoot = "."
	}
	if cfg.RunController.OutputDir == "" {
		cfg.RunController.OutputDir = "outputs"
	}
	if cfg.RunController.MaxParallelSteps <= 0 {
		cfg.RunController.MaxParallelSteps = 4
	}
	if cfg.RunController.DefaultMaxCycles <= 0 {
		cfg.RunController.DefaultMaxCycles = 1
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// MCPServerConfigs converts the YAML-level MCP server list into
// mcp.ServerConfig values ready for mcp.Manager.Register, rejecting stdio
// transports up front with a descriptive error rather than letting the
// rejection surface later at connect time.
func (c MCPConfig) MCPServerConfigs() ([]mcp.ServerConfig, error) {
	out := make([]mcp.ServerConfig, 0, len(c.Servers))
	for _, s := range c.Servers {
		kind := mcp.TransportKind(strings.ToLower(s.Transport))
		if kind == mcp.TransportStdio {
			return nil, fmt.Errorf("config: mcp server %q: stdio transport is not supported", s.Name)
		}
		out = append(out, mcp.ServerConfig{Name: s.Name, Transport: kind, Endpoint: s.Endpoint})
	}
	return out, nil
}
