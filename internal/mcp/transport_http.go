package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// httpTransport speaks MCP's HTTP request/response binding: each call is a
// single POST of a JSON-RPC-shaped envelope to the server's endpoint.
type httpTransport struct {
	cfg    ServerConfig
	client *http.Client
}

func newHTTPTransport(cfg ServerConfig) *httpTransport {
	return &httpTransport{cfg: cfg, client: &http.Client{Timeout: DefaultConnectTimeout}}
}

type rpcEnvelope struct {
	Method string         `json:"method"`
	Params map[string]any `json:"params,omitempty"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Message string `json:"message"`
}

func (t *httpTransport) call(ctx context.Context, method string, params map[string]any, out any) error {
	body, err := json.Marshal(rpcEnvelope{Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("mcp: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("mcp: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("mcp: server %q: %w", t.cfg.Name, err)
	}
	defer resp.Body.Close()

	var envelope rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("mcp: server %q: decode response: %w", t.cfg.Name, err)
	}
	if envelope.Error != nil {
		return fmt.Errorf("mcp: server %q: %s", t.cfg.Name, envelope.Error.Message)
	}
	if out != nil && len(envelope.Result) > 0 {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return fmt.Errorf("mcp: server %q: decode result: %w", t.cfg.Name, err)
		}
	}
	return nil
}

func (t *httpTransport) Connect(ctx context.Context) error {
	return t.call(ctx, "initialize", nil, nil)
}

func (t *httpTransport) ListTools(ctx context.Context) ([]ToolInfo, error) {
	var out struct {
		Tools []ToolInfo `json:"tools"`
	}
	if err := t.call(ctx, "tools/list", nil, &out); err != nil {
		return nil, err
	}
	return out.Tools, nil
}

func (t *httpTransport) CallTool(ctx context.Context, name string, args map[string]any) (CallResult, error) {
	var out CallResult
	err := t.call(ctx, "tools/call", map[string]any{"name": name, "arguments": args}, &out)
	return out, err
}

func (t *httpTransport) Close() error { return nil }

var _ Transport = (*httpTransport)(nil)
