package registry

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/haasonsaas/orchkernel/pkg/orcmodels"
)

// frontMatter is the YAML shape of an agent definition file's header block.
type frontMatter struct {
	Name       string             `yaml:"name"`
	Model      string             `yaml:"model"`
	SafetyMode string             `yaml:"safety_mode"`
	Tools      []string           `yaml:"tools"`
	Autonomous *autonomousYAML    `yaml:"autonomous"`
	MCPServers []string           `yaml:"mcp_servers"`
	CustomTool []customToolYAML   `yaml:"custom_tools"`
}

type autonomousYAML struct {
	MaxCycles        int  `yaml:"max_cycles"`
	StopWhenComplete bool `yaml:"stop_when_complete"`
	ResumeMission    bool `yaml:"resume_mission"`
	SeedTaskWhenIdle bool `yaml:"seed_task_when_idle"`
}

type customToolYAML struct {
	Name         string                   `yaml:"name"`
	Description  string                   `yaml:"description"`
	Parameters   []toolParamYAML          `yaml:"parameters"`
	PromptTmpl   string                   `yaml:"prompt_template"`
	Model        string                   `yaml:"model"`
	ResultSchema map[string]any           `yaml:"result_schema"`
}

type toolParamYAML struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	Description string `yaml:"description"`
	Required    bool   `yaml:"required"`
}

// parseAgentFile splits content into its leading "---\n...\n---\n" YAML
// front matter and the markdown body that follows, then builds an
// AgentProfile. The body, with leading and trailing whitespace trimmed,
// becomes the agent's system prompt.
func parseAgentFile(path, content string) (orcmodels.AgentProfile, error) {
	fm, body, err := splitFrontMatter(content)
	if err != nil {
		return orcmodels.AgentProfile{}, fmt.Errorf("registry: %s: %w", path, err)
	}

	var parsed frontMatter
	if fm != "" {
		if err := yaml.Unmarshal([]byte(fm), &parsed); err != nil {
			return orcmodels.AgentProfile{}, fmt.Errorf("registry: %s: invalid front matter: %w", path, err)
		}
	}

	profile := orcmodels.AgentProfile{
		Path:          path,
		Name:          parsed.Name,
		Model:         parsed.Model,
		SafetyMode:    safetyModeFromString(parsed.SafetyMode),
		SystemPrompt:  strings.TrimSpace(body),
		ToolAllowList: parsed.Tools,
	}
	if profile.Name == "" {
		profile.Name = defaultNameFromPath(path)
	}

	if parsed.Autonomous != nil {
		profile.Autonomous = &orcmodels.AutonomousConfig{
			MaxCycles:        parsed.Autonomous.MaxCycles,
			StopWhenComplete: parsed.Autonomous.StopWhenComplete,
			ResumeMission:    parsed.Autonomous.ResumeMission,
			SeedTaskWhenIdle: parsed.Autonomous.SeedTaskWhenIdle,
		}
	}

	for _, name := range parsed.MCPServers {
		profile.MCPServers = append(profile.MCPServers, orcmodels.MCPServerRef{Name: name})
	}

	for _, ct := range parsed.CustomTool {
		def := orcmodels.CustomToolDef{
			Name:         ct.Name,
			Description:  ct.Description,
			PromptTmpl:   ct.PromptTmpl,
			Model:        ct.Model,
			ResultSchema: ct.ResultSchema,
		}
		for _, p := range ct.Parameters {
			def.Parameters = append(def.Parameters, orcmodels.ToolParameter{
				Name:        p.Name,
				Type:        orcmodels.ToolParamType(p.Type),
				Description: p.Description,
				Required:    p.Required,
			})
		}
		profile.CustomTools = append(profile.CustomTools, def)
	}

	return profile, nil
}

// splitFrontMatter separates a leading "---\n...\n---\n" block from the rest
// of the document. A document with no front matter returns an empty header
// and the whole content as body.
func splitFrontMatter(content string) (header, body string, err error) {
	const delim = "---"
	trimmed := strings.TrimLeft(content, "\n")
	if !strings.HasPrefix(trimmed, delim) {
		return "", content, nil
	}

	rest := trimmed[len(delim):]
	rest = strings.TrimPrefix(rest, "\n")
	end := strings.Index(rest, "\n"+delim)
	if end == -1 {
		return "", "", fmt.Errorf("unterminated front matter block")
	}

	header = rest[:end]
	body = rest[end+len(delim)+1:]
	return header, body, nil
}

func defaultNameFromPath(path string) string {
	name := path
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	return strings.TrimSuffix(name, ".md")
}

func safetyModeFromString(s string) orcmodels.SafetyMode {
	switch s {
	case "cautious":
		return orcmodels.SafetyCautious
	case "yolo":
		return orcmodels.SafetyYolo
	default:
		return orcmodels.SafetyDefault
	}
}
