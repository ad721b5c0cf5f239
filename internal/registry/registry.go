// Package registry implements the Agent Registry: a derived, queryable view
// of every AgentProfile parsed from VFS files under the "agents/" prefix.
package registry

import (
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/haasonsaas/orchkernel/internal/vfs"
	"github.com/haasonsaas/orchkernel/pkg/orcmodels"
)

const agentsPrefix = "agents/"

// Registry holds the parsed AgentProfile for every known agent path. It
// subscribes to a VFS at construction time and keeps itself current as
// files under agents/ are written or removed, regardless of whether the
// write came from a tool call or a disk-watch mirror.
type Registry struct {
	mu       sync.RWMutex
	profiles map[string]orcmodels.AgentProfile
	logger   *slog.Logger
	unsub    func()
}

// New creates a Registry bound to source, performs an initial scan of
// existing agents/ files, and subscribes to future changes.
func New(source vfs.VFS, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		profiles: make(map[string]orcmodels.AgentProfile),
		logger:   logger,
	}

	for _, path := range source.List(agentsPrefix) {
		if content, ok := source.Read(path); ok {
			r.registerFromFile(path, content)
		}
	}

	r.unsub = source.Subscribe(func(c vfs.Change) {
		if !strings.HasPrefix(c.Path, agentsPrefix) {
			return
		}
		switch c.Kind {
		case vfs.ChangeWrite:
			r.registerFromFile(c.Path, c.Content)
		case vfs.ChangeDelete:
			r.unregister(c.Path)
		}
	})

	return r
}

// registerFromFile parses content as an agent definition and stores or
// replaces the profile at path. A parse failure is logged and the previous
// profile (if any) is left in place, since a malformed edit should not
// erase a working agent from the registry.
func (r *Registry) registerFromFile(path, content string) {
	profile, err := parseAgentFile(path, content)
	if err != nil {
		r.logger.Warn("registry: discarding unparsable agent file", "path", path, "error", err)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[path] = profile
}

func (r *Registry) unregister(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.profiles, path)
}

// Get returns the profile at path, if known.
func (r *Registry) Get(path string) (orcmodels.AgentProfile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[path]
	return p, ok
}

// ListAll returns every currently known profile, sorted by path.
func (r *Registry) ListAll() []orcmodels.AgentProfile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]orcmodels.AgentProfile, 0, len(r.profiles))
	for _, p := range r.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Close detaches the Registry from its VFS subscription.
func (r *Registry) Close() {
	if r.unsub != nil {
		r.unsub()
	}
}
