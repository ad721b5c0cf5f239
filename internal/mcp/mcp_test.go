package mcp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haasonsaas/orchkernel/pkg/orcmodels"
)

func newTestHTTPServer(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/rpc", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"result":{"text":"ok","isErr":false}}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPTransportCallTool(t *testing.T) {
	srv := newTestHTTPServer(t)
	transport := newHTTPTransport(ServerConfig{Name: "test", Transport: TransportHTTP, Endpoint: srv.URL + "/rpc"})

	require.NoError(t, transport.Connect(context.Background()))
	result, err := transport.CallTool(context.Background(), "echo", map[string]any{"x": 1})
	require.NoError(t, err)
	assert.Equal(t, "ok", result.Text)
}

func TestManagerConnectIsIdempotent(t *testing.T) {
	srv := newTestHTTPServer(t)
	m := NewManager(nil)
	m.Register(ServerConfig{Name: "test", Transport: TransportHTTP, Endpoint: srv.URL + "/rpc"})

	c1, err := m.Connect(context.Background(), "test")
	require.NoError(t, err)
	c2, err := m.Connect(context.Background(), "test")
	require.NoError(t, err)

	assert.Same(t, c1, c2)
	assert.Len(t, m.Clients(), 1)
}

func TestManagerConnectUnknownServer(t *testing.T) {
	m := NewManager(nil)
	_, err := m.Connect(context.Background(), "missing")
	assert.Error(t, err)
}

func TestStdioTransportRejected(t *testing.T) {
	_, err := NewTransport(ServerConfig{Name: "local", Transport: TransportStdio})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stdio")
}

func TestClientCallToolAdaptsValues(t *testing.T) {
	srv := newTestHTTPServer(t)
	m := NewManager(nil)
	m.Register(ServerConfig{Name: "test", Transport: TransportHTTP, Endpoint: srv.URL + "/rpc"})
	client, err := m.Connect(context.Background(), "test")
	require.NoError(t, err)

	out, err := client.CallTool(context.Background(), "echo", map[string]orcmodels.Value{
		"x": {Kind: orcmodels.KindString, Str: "hi"},
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
}
