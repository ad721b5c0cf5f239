package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
)

// sseTransport speaks MCP's Server-Sent-Events binding: a long-lived GET
// stream delivers server->client events, while outbound calls are posted to
// a separate message endpoint derived from the initial "endpoint" event.
type sseTransport struct {
	cfg ServerConfig

	mu          sync.Mutex
	messageURL  string
	client      *http.Client
	stream      *http.Response
	connectOnce sync.Once
}

func newSSETransport(cfg ServerConfig) *sseTransport {
	return &sseTransport{cfg: cfg, client: &http.Client{}}
}

func (t *sseTransport) Connect(ctx context.Context) error {
	var connectErr error
	t.connectOnce.Do(func() {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.cfg.Endpoint, nil)
		if err != nil {
			connectErr = fmt.Errorf("mcp: server %q: build stream request: %w", t.cfg.Name, err)
			return
		}
		req.Header.Set("Accept", "text/event-stream")

		resp, err := t.client.Do(req)
		if err != nil {
			connectErr = fmt.Errorf("mcp: server %q: %w", t.cfg.Name, err)
			return
		}
		t.stream = resp

		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			line := scanner.Text()
			if strings.HasPrefix(line, "data:") {
				t.mu.Lock()
				t.messageURL = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
				t.mu.Unlock()
				break
			}
		}
		if t.messageURL == "" {
			connectErr = fmt.Errorf("mcp: server %q: no endpoint event received", t.cfg.Name)
		}
	})
	return connectErr
}

func (t *sseTransport) post(ctx context.Context, method string, params map[string]any, out any) error {
	t.mu.Lock()
	url := t.messageURL
	t.mu.Unlock()
	if url == "" {
		return fmt.Errorf("mcp: server %q: not connected", t.cfg.Name)
	}

	body, err := json.Marshal(rpcEnvelope{Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("mcp: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(string(body)))
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
		return json.Unmarshal(envelope.Result, out)
	}
	return nil
}

func (t *sseTransport) ListTools(ctx context.Context) ([]ToolInfo, error) {
	var out struct {
		Tools []ToolInfo `json:"tools"`
	}
	if err := t.post(ctx, "tools/list", nil, &out); err != nil {
		return nil, err
	}
	return out.Tools, nil
}

func (t *sseTransport) CallTool(ctx context.Context, name string, args map[string]any) (CallResult, error) {
	var out CallResult
	err := t.post(ctx, "tools/call", map[string]any{"name": name, "arguments": args}, &out)
	return out, err
}

func (t *sseTransport) Close() error {
	if t.stream != nil {
		return t.stream.Body.Close()
	}
	return nil
}

var _ Transport = (*sseTransport)(nil)
