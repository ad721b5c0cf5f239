package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Manager owns one Client per configured server and makes Connect
// idempotent: a server already connected is never dialed again, and when
// concurrent Connect calls for the same server each dial, only the first
// to finish is kept and the others' transports are closed (invariant 8).
type Manager struct {
	mu      sync.Mutex
	configs map[string]ServerConfig
	clients map[string]*Client
	logger  *slog.Logger
}

// NewManager creates a Manager with no servers registered yet.
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		configs: make(map[string]ServerConfig),
		clients: make(map[string]*Client),
		logger:  logger,
	}
}

// Register adds a server's configuration without connecting to it. Connect
// must be called for the server before its Client is usable; Register never
// dials.
func (m *Manager) Register(cfg ServerConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.configs[cfg.Name] = cfg
}

// Connect dials server if it is not already connected. Calling Connect
// again for an already-connected server is a no-op that returns the
// existing client.
func (m *Manager) Connect(ctx context.Context, server string) (*Client, error) {
	m.mu.Lock()
	if c, ok := m.clients[server]; ok {
		m.mu.Unlock()
		return c, nil
	}
	cfg, ok := m.configs[server]
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("mcp: no server registered as %q", server)
	}

	transport, err := NewTransport(cfg)
	if err != nil {
		return nil, err
	}

	connectCtx, cancel := context.WithTimeout(ctx, DefaultConnectTimeout)
	defer cancel()
	if err := retryConnect(connectCtx, func() error { return transport.Connect(connectCtx) }); err != nil {
		return nil, fmt.Errorf("mcp: connect %q: %w", server, err)
	}

	client := &Client{name: server, transport: transport}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.clients[server]; ok {
		// Lost a race with a concurrent Connect; keep the winner, close ours.
		transport.Close()
		return existing, nil
	}
	m.clients[server] = client
	m.logger.Info("mcp server connected", "server", server, "transport", cfg.Transport)
	return client, nil
}

// Clients returns every currently connected server's Client, keyed by name.
func (m *Manager) Clients() map[string]*Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]*Client, len(m.clients))
	for k, v := range m.clients {
		out[k] = v
	}
	return out
}

// Stop closes every connected server's transport.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for name, c := range m.clients {
		if err := c.transport.Close(); err != nil {
			m.logger.Warn("mcp server close failed", "server", name, "error", err)
		}
	}
	m.clients = make(map[string]*Client)
}
