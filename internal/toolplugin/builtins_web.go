package toolplugin

import (
	"context"

	"github.com/haasonsaas/orchkernel/pkg/orcmodels"
)

// WebFetch and WebSearch are declared so agent profiles can list them in a
// tool allow-list and providers can describe them, but actual network
// access is out of scope: both return a fixed not-implemented result. A
// deployment that wants real web access supplies its own Plugin under the
// same tool name at registration time.
type WebFetch struct{}

func (WebFetch) Descriptor() orcmodels.ToolDescriptor {
	return orcmodels.ToolDescriptor{
		Name:        "web_fetch",
		Description: "Fetch the contents of a URL.",
		Parameters: []orcmodels.ToolParameter{
			{Name: "url", Type: orcmodels.ParamString, Description: "URL to fetch.", Required: true},
		},
	}
}

func (WebFetch) Execute(context.Context, *ToolContext, map[string]orcmodels.Value) (string, error) {
	return "Error: web_fetch is not available in this deployment", nil
}

type WebSearch struct{}

func (WebSearch) Descriptor() orcmodels.ToolDescriptor {
	return orcmodels.ToolDescriptor{
		Name:        "web_search",
		Description: "Search the web for a query.",
		Parameters: []orcmodels.ToolParameter{
			{Name: "query", Type: orcmodels.ParamString, Description: "Search query.", Required: true},
		},
	}
}

func (WebSearch) Execute(context.Context, *ToolContext, map[string]orcmodels.Value) (string, error) {
	return "Error: web_search is not available in this deployment", nil
}
