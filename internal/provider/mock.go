package provider

import (
	"context"
	"sync"

	"github.com/haasonsaas/orchkernel/pkg/orcmodels"
)

// Script is one scripted provider turn: the chunks to emit, in order, for
// one call to Chat. Scripts are consumed in enqueue order by whichever
// session calls Chat next.
type Script []StreamChunk

// Mock is a deterministic Provider driven by a queue of Scripts. Callers
// push scripts with Enqueue before the Kernel invokes Chat; each call pops
// the next script. When the queue is empty, Chat returns a single
// ChunkDone chunk.
type Mock struct {
	mu       sync.Mutex
	queue    []Script
	aborted  map[string]bool
	onChat   func(sessionID string, cfg ChatConfig, history []orcmodels.Message)
}

// NewMock creates an empty Mock provider.
func NewMock() *Mock {
	return &Mock{aborted: make(map[string]bool)}
}

// Enqueue appends a script to be returned by the next Chat call.
func (m *Mock) Enqueue(s Script) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, s)
}

// OnChat installs an observer invoked synchronously at the start of every
// Chat call, useful for assertions on what history/tools the kernel built.
func (m *Mock) OnChat(fn func(sessionID string, cfg ChatConfig, history []orcmodels.Message)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChat = fn
}

// Chat implements Provider.
func (m *Mock) Chat(ctx context.Context, sessionID string, cfg ChatConfig, history []orcmodels.Message) (<-chan StreamChunk, error) {
	m.mu.Lock()
	if m.onChat != nil {
		m.onChat(sessionID, cfg, history)
	}
	var script Script
	if len(m.queue) > 0 {
		script = m.queue[0]
		m.queue = m.queue[1:]
	} else {
		script = Script{{Kind: ChunkDone, TokenCount: 1}}
	}
	m.mu.Unlock()

	ch := make(chan StreamChunk)
	go func() {
		defer close(ch)
		for _, c := range script {
			select {
			case <-ctx.Done():
				return
			case ch <- c:
			}
			m.mu.Lock()
			stop := m.aborted[sessionID]
			m.mu.Unlock()
			if stop {
				return
			}
		}
	}()
	return ch, nil
}

// Abort implements Provider.
func (m *Mock) Abort(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.aborted[sessionID] = true
}

var _ Provider = (*Mock)(nil)
