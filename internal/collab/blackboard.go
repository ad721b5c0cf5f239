// Package collab implements the collaboration surfaces shared across
// activations of a run: the blackboard, pub/sub channels, working memory,
// and the persistent task queue.
package collab

import (
	"sort"
	"sync"

	"github.com/haasonsaas/orchkernel/pkg/orcmodels"
)

// Blackboard is a shared key/value store every activation in a run can read
// and write. Writes simply overwrite; there is no versioning here (that
// lives in the VFS for file-backed state).
type Blackboard struct {
	mu     sync.RWMutex
	values map[string]orcmodels.Value
}

// NewBlackboard creates an empty Blackboard.
func NewBlackboard() *Blackboard {
	return &Blackboard{values: make(map[string]orcmodels.Value)}
}

// Read returns the value at key, if set.
func (b *Blackboard) Read(key string) (orcmodels.Value, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.values[key]
	return v, ok
}

// Write sets key to value, overwriting any prior value.
func (b *Blackboard) Write(key string, value orcmodels.Value) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.values[key] = value
}

// Keys returns every currently set key, sorted.
func (b *Blackboard) Keys() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, 0, len(b.values))
	for k := range b.values {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
