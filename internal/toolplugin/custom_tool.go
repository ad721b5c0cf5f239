package toolplugin

import (
	"context"
	"fmt"
	"strings"

	"github.com/haasonsaas/orchkernel/pkg/orcmodels"
)

// CustomTool wraps a CustomToolDef declared in an agent profile's front
// matter as an ordinary Plugin. Execution synthesizes a throwaway agent
// file under agents/_custom_*.md whose system prompt is the tool's prompt
// template with {arg} placeholders substituted, then delegates to it and
// returns its output as the tool result.
type CustomTool struct {
	Def CustomToolDef
}

// CustomToolDef is an alias of orcmodels.CustomToolDef, so callers of
// toolplugin can name it without importing orcmodels.
type CustomToolDef = orcmodels.CustomToolDef

func (c CustomTool) Descriptor() orcmodels.ToolDescriptor {
	return orcmodels.ToolDescriptor{
		Name:        c.Def.Name,
		Description: c.Def.Description,
		Parameters:  c.Def.Parameters,
	}
}

func (c CustomTool) Execute(_ context.Context, tc *ToolContext, args map[string]orcmodels.Value) (string, error) {
	if err := checkSpawnBudget(tc); err != nil {
		return err.Error(), nil
	}

	prompt := c.Def.PromptTmpl
	for name, v := range args {
		s, _ := v.AsString()
		prompt = strings.ReplaceAll(prompt, "{"+name+"}", s)
	}

	path := fmt.Sprintf("agents/_custom_%s_%s.md", c.Def.Name, tc.CurrentActivationID)
	model := c.Def.Model
	if model == "" {
		model = tc.PreferredModel
	}
	content := fmt.Sprintf("---\nname: %s\nmodel: %s\n---\n%s\n", c.Def.Name, model, prompt)
	if err := tc.VFS.Write(path, content, tc.CurrentAgentID); err != nil {
		return "", fmt.Errorf("toolplugin: custom_tool: synthesize agent file: %w", err)
	}

	output, err := tc.OnRunSessionAndReturn(SpawnRequest{AgentPath: path, Input: prompt})
	if err != nil {
		return fmt.Sprintf("Error: %s", err), nil
	}
	tc.SpawnCount++
	if tc.IncrementChildCount != nil {
		tc.IncrementChildCount()
	}
	return output, nil
}
