package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/haasonsaas/orchkernel/pkg/orcmodels"
)

// Client adapts one connected server's Transport to the
// toolplugin.MCPCaller contract the Kernel hands to the mcp_call built-in.
type Client struct {
	name      string
	transport Transport
}

// CallTool implements toolplugin.MCPCaller.
func (c *Client) CallTool(ctx context.Context, toolName string, args map[string]orcmodels.Value) (string, error) {
	plain := make(map[string]any, len(args))
	for k, v := range args {
		raw, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("mcp: marshal arg %s for %s: %w", k, toolName, err)
		}
		var decoded any
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return "", fmt.Errorf("mcp: decode arg %s for %s: %w", k, toolName, err)
		}
		plain[k] = decoded
	}

	result, err := c.transport.CallTool(ctx, toolName, plain)
	if err != nil {
		return "", fmt.Errorf("mcp: server %q tool %q: %w", c.name, toolName, err)
	}
	if result.IsErr {
		return "", fmt.Errorf("mcp: server %q tool %q returned an error: %s", c.name, toolName, result.Text)
	}
	return result.Text, nil
}

// ListTools returns the tool directory the connected server advertised.
func (c *Client) ListTools(ctx context.Context) ([]ToolInfo, error) {
	return c.transport.ListTools(ctx)
}
