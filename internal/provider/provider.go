// Package provider defines the AI Provider contract the Kernel's session
// loop streams against, plus a deterministic mock implementation used by
// every other package's tests.
package provider

import (
	"context"

	"github.com/haasonsaas/orchkernel/pkg/orcmodels"
)

// ChunkKind distinguishes the four shapes a StreamChunk can take.
type ChunkKind string

const (
	ChunkText     ChunkKind = "text"
	ChunkToolCall ChunkKind = "tool_call"
	ChunkDone     ChunkKind = "done"
	ChunkError    ChunkKind = "error"
)

// StreamChunk is one element of a provider's response stream. Only the
// field matching Kind is meaningful.
type StreamChunk struct {
	Kind       ChunkKind
	Text       string
	ToolCallID string
	ToolName   string
	ToolArgs   map[string]orcmodels.Value
	TokenCount int
	Err        error
}

// ChatConfig carries the per-call parameters a session's model turn needs.
type ChatConfig struct {
	Model        string
	SystemPrompt string
	Tools        []orcmodels.ToolDescriptor
}

// Provider streams a model turn as a sequence of StreamChunk values over a
// channel, closing it when the turn ends (ChunkDone or ChunkError having
// already been sent). Implementations must be safe for concurrent use
// across distinct sessionIDs.
type Provider interface {
	Chat(ctx context.Context, sessionID string, config ChatConfig, history []orcmodels.Message) (<-chan StreamChunk, error)
	Abort(sessionID string)
}

// EndSession releases any per-session adapter state a Provider keeps (tool
// call id bookkeeping, pending-turn buffers). Providers that hold none may
// decline to implement it; callers should type-assert for it.
type SessionEnder interface {
	EndSession(sessionID string)
}
