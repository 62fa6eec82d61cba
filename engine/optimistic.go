/*
optimistic.go - Not-yet-durable entry buffer

PURPOSE:
  Lets a caller register an injection immediately after the user logs it,
  before the persistence collaborator confirms the write. Buffered entries
  are treated exactly like persisted ones for every read-side computation;
  the caller removes them by identifier once the durable write resolves
  or fails. Insertion and removal belong entirely to the caller - the
  engine places no retention constraints beyond "present until removed".

IDENTIFIERS:
  Buffered entries carry locally generated identifiers with a "local-"
  prefix so they are distinguishable from durable ones.
*/
package engine

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

const localIDPrefix = "local-"

// NewLocalInjectionID generates an identifier for a not-yet-persisted
// injection, distinguishable from durable identifiers.
func NewLocalInjectionID() InjectionID {
	return InjectionID(localIDPrefix + uuid.NewString())
}

// IsLocalID reports whether an identifier was locally generated.
func IsLocalID(id InjectionID) bool {
	return strings.HasPrefix(string(id), localIDPrefix)
}

// OptimisticBuffer holds pending injections. This is the one piece of
// shared mutable state that interacts with the engine, so it is guarded;
// everything read from it is a copy.
type OptimisticBuffer struct {
	mu      sync.RWMutex
	entries map[InjectionID]Injection
}

func NewOptimisticBuffer() *OptimisticBuffer {
	return &OptimisticBuffer{entries: make(map[InjectionID]Injection)}
}

// Add registers a pending injection, assigning a local identifier when
// the entry has none. Returns the identifier used.
func (b *OptimisticBuffer) Add(inj Injection) InjectionID {
	b.mu.Lock()
	defer b.mu.Unlock()
	if inj.ID == "" {
		inj.ID = NewLocalInjectionID()
	}
	b.entries[inj.ID] = inj
	return inj.ID
}

// Remove drops a pending entry. Removal is the only mutation allowed on
// buffered entries; no-op for unknown identifiers.
func (b *OptimisticBuffer) Remove(id InjectionID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.entries, id)
}

// Snapshot returns a copy of the buffered entries.
func (b *OptimisticBuffer) Snapshot() []Injection {
	b.mu.RLock()
	defer b.mu.RUnlock()
	entries := make([]Injection, 0, len(b.entries))
	for _, inj := range b.entries {
		entries = append(entries, inj)
	}
	return entries
}

// Len returns the number of buffered entries.
func (b *OptimisticBuffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

// MergeInjections unions durable records with pending entries at read
// time. Durable records win on identifier collision (the pending copy is
// simply stale and about to be removed by its owner).
func MergeInjections(durable, pending []Injection) []Injection {
	if len(pending) == 0 {
		return durable
	}
	seen := make(map[InjectionID]struct{}, len(durable))
	merged := make([]Injection, 0, len(durable)+len(pending))
	for _, inj := range durable {
		seen[inj.ID] = struct{}{}
		merged = append(merged, inj)
	}
	for _, inj := range pending {
		if _, dup := seen[inj.ID]; !dup {
			merged = append(merged, inj)
		}
	}
	return merged
}
