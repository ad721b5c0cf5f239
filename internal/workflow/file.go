package workflow

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/haasonsaas/orchkernel/pkg/orcmodels"
)

type stepYAML struct {
	ID        string   `yaml:"id"`
	Agent     string   `yaml:"agent"`
	Prompt    string   `yaml:"prompt"`
	DependsOn []string `yaml:"depends_on"`
	Outputs   []string `yaml:"outputs"`
}

type frontMatterYAML struct {
	Name         string     `yaml:"name"`
	Description  string     `yaml:"description"`
	Trigger      string     `yaml:"trigger"`
	CronSchedule string     `yaml:"cron_schedule"`
	Steps        []stepYAML `yaml:"steps"`
}

// ParseFile parses a workflow markdown file (YAML front matter delimited by
// "---" lines, describing name/description/trigger/steps) into a
// WorkflowDefinition and immediately runs it through Parse for dependency
// validation and execution ordering.
func ParseFile(path, content string) (orcmodels.WorkflowDefinition, error) {
	header, _, err := splitFrontMatter(content)
	if err != nil {
		return orcmodels.WorkflowDefinition{}, fmt.Errorf("workflow: %s: %w", path, err)
	}

	var fm frontMatterYAML
	if err := yaml.Unmarshal([]byte(header), &fm); err != nil {
		return orcmodels.WorkflowDefinition{}, fmt.Errorf("workflow: %s: invalid front matter: %w", path, err)
	}

	trigger := orcmodels.TriggerManual
	if strings.EqualFold(fm.Trigger, "auto") {
		trigger = orcmodels.TriggerAuto
	}

	steps := make([]orcmodels.WorkflowStep, 0, len(fm.Steps))
	for _, s := range fm.Steps {
		steps = append(steps, orcmodels.WorkflowStep{
			ID:        s.ID,
			AgentPath: s.Agent,
			Prompt:    s.Prompt,
			DependsOn: s.DependsOn,
			Outputs:   s.Outputs,
		})
	}

	def := orcmodels.WorkflowDefinition{
		Path:         path,
		Name:         fm.Name,
		Description:  fm.Description,
		Trigger:      trigger,
		CronSchedule: fm.CronSchedule,
		Steps:        steps,
	}
	return Parse(def), nil
}

// splitFrontMatter separates a leading "---\n...\n---\n" block from the rest
// of a workflow file. Unlike internal/registry's copy this one has no
// markdown-body use: the remainder is discarded since a workflow file's
// meaning lives entirely in its front matter.
func splitFrontMatter(content string) (header, body string, err error) {
	const delim = "---"
	trimmed := strings.TrimLeft(content, "\n")
	if !strings.HasPrefix(trimmed, delim) {
		return "", "", fmt.Errorf("missing leading %q front-matter delimiter", delim)
	}
	rest := trimmed[len(delim):]
	idx := strings.Index(rest, "\n"+delim)
	if idx == -1 {
		return "", "", fmt.Errorf("unterminated front-matter block")
	}
	header = rest[:idx]
	body = strings.TrimPrefix(rest[idx+len("\n"+delim):], "\n")
	return header, body, nil
}
