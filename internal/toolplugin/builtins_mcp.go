package toolplugin

import (
	"context"
	"fmt"
	"strings"

	"github.com/haasonsaas/orchkernel/pkg/orcmodels"
)

// MCPCaller is the minimal surface the mcp package's client exposes back to
// a tool plugin, kept here (rather than importing internal/mcp directly)
// so toolplugin has no dependency on the transport layer.
type MCPCaller interface {
	CallTool(ctx context.Context, toolName string, args map[string]orcmodels.Value) (string, error)
}

// MCPBridge is the mcp_call tool: it dispatches the call addressed by its
// "server:tool" target argument to the matching connected MCP server.
// tc.MCPServers holds, for each of the agent profile's MCPServerRefs, that
// server's Client if the Kernel's mcp.Manager has already connected it when
// the session starts.
type MCPBridge struct{}

func (MCPBridge) Descriptor() orcmodels.ToolDescriptor {
	return orcmodels.ToolDescriptor{
		Name:        "mcp_call",
		Description: "Call a tool exposed by a connected MCP server, addressed as server:tool.",
		Parameters: []orcmodels.ToolParameter{
			{Name: "target", Type: orcmodels.ParamString, Description: "server:tool address.", Required: true},
			{Name: "arguments", Type: orcmodels.ParamObject, Description: "Arguments for the target tool.", Required: false},
		},
	}
}

func (MCPBridge) Execute(ctx context.Context, tc *ToolContext, args map[string]orcmodels.Value) (string, error) {
	target, ok := stringArg(args, "target")
	if !ok {
		return "Error: target is required", nil
	}
	parts := strings.SplitN(target, ":", 2)
	if len(parts) != 2 {
		return "Error: target must be server:tool", nil
	}
	server, tool := parts[0], parts[1]

	caller, ok := tc.MCPServers[server]
	if !ok {
		return fmt.Sprintf("Error: no connected MCP server named %s", server), nil
	}

	var nested map[string]orcmodels.Value
	if v, ok := args["arguments"]; ok {
		nested = v.Obj
	}

	result, err := caller.CallTool(ctx, tool, nested)
	if err != nil {
		return fmt.Sprintf("Error: %s", err), nil
	}
	return result, nil
}
