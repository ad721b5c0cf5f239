package mcp

import "context"

// Transport is the wire-level contract a connected MCP server implements.
// A Manager holds one Transport per connected server name.
type Transport interface {
	Connect(ctx context.Context) error
	ListTools(ctx context.Context) ([]ToolInfo, error)
	CallTool(ctx context.Context, name string, args map[string]any) (CallResult, error)
	Close() error
}

// NewTransport builds the Transport matching cfg.Transport. Stdio is
// rejected: this runtime has no process-spawning surface, so a stdio
// server config always fails fast with a descriptive error rather than
// silently hanging on Connect.
func NewTransport(cfg ServerConfig) (Transport, error) {
	switch cfg.Transport {
	case TransportHTTP:
		return newHTTPTransport(cfg), nil
	case TransportSSE:
		return newSSETransport(cfg), nil
	case TransportStdio:
		return nil, errStdioUnsupported(cfg.Name)
	default:
		return nil, errUnknownTransport(cfg.Name, cfg.Transport)
	}
}
