// Package eventlog implements the append-only, total-ordered Event Log and
// its derived replay checkpoints.
package eventlog

import (
	"sync"
	"time"

	"github.com/haasonsaas/orchkernel/internal/vfs"
	"github.com/haasonsaas/orchkernel/pkg/orcmodels"
)

// checkpointEvents are the event types that get a ReplayCheckpoint snapshot
// recorded alongside them.
var checkpointEvents = map[orcmodels.EventType]bool{
	orcmodels.EventSpawn:      true,
	orcmodels.EventFileChange: true,
	orcmodels.EventComplete:   true,
	orcmodels.EventError:      true,
}

// Log is the append-only event store. Every Append call assigns the next
// sequential ID; readers never observe IDs out of order.
type Log struct {
	mu          sync.RWMutex
	entries     []orcmodels.EventLogEntry
	checkpoints []orcmodels.ReplayCheckpoint
	nextID      uint64
	source      vfs.VFS
}

// New creates an empty Log that snapshots source's full file tree into any
// checkpoint it records.
func New(source vfs.VFS) *Log {
	return &Log{source: source}
}

// Append assigns the entry its ID and timestamp, stores it, and — for
// checkpoint-eligible event types — records a ReplayCheckpoint capturing
// the full VFS state at that point.
func (l *Log) Append(eventType orcmodels.EventType, agentID, activationID string, data map[string]any) orcmodels.EventLogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := orcmodels.EventLogEntry{
		ID:           l.nextID,
		Timestamp:    time.Now(),
		Type:         eventType,
		AgentID:      agentID,
		ActivationID: activationID,
		Data:         data,
	}
	l.nextID++
	l.entries = append(l.entries, entry)

	if checkpointEvents[eventType] {
		l.checkpoints = append(l.checkpoints, l.snapshot(entry))
	}

	return entry
}

func (l *Log) snapshot(entry orcmodels.EventLogEntry) orcmodels.ReplayCheckpoint {
	files := make(map[string]string)
	if l.source != nil {
		for _, path := range l.source.GetAllPaths() {
			if content, ok := l.source.Read(path); ok {
				files[path] = content
			}
		}
	}
	return orcmodels.ReplayCheckpoint{
		ID:           checkpointID(entry.ID),
		EventID:      entry.ID,
		Files:        files,
		AgentID:      entry.AgentID,
		ActivationID: entry.ActivationID,
	}
}

func checkpointID(eventID uint64) string {
	return "ckpt-" + itoa(eventID)
}

func itoa(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}

// All returns every entry, oldest first.
func (l *Log) All() []orcmodels.EventLogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]orcmodels.EventLogEntry(nil), l.entries...)
}

// Since returns every entry with ID >= fromID, oldest first.
func (l *Log) Since(fromID uint64) []orcmodels.EventLogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []orcmodels.EventLogEntry
	for _, e := range l.entries {
		if e.ID >= fromID {
			out = append(out, e)
		}
	}
	return out
}

// ForActivation returns every entry recorded for the given activation, in
// the order they were appended.
func (l *Log) ForActivation(activationID string) []orcmodels.EventLogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []orcmodels.EventLogEntry
	for _, e := range l.entries {
		if e.ActivationID == activationID {
			out = append(out, e)
		}
	}
	return out
}

// GetCheckpoint returns the latest recorded checkpoint with EventID <=
// eventID, i.e. the most recent snapshot at or before that point in the
// log.
func (l *Log) GetCheckpoint(eventID uint64) (orcmodels.ReplayCheckpoint, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var best orcmodels.ReplayCheckpoint
	found := false
	for _, c := range l.checkpoints {
		if c.EventID <= eventID {
			best = c
			found = true
		}
	}
	return best, found
}
