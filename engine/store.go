/*
store.go - Persistence collaborator interfaces

PURPOSE:
  Defines the contract between the engine and the persistence
  collaborator. The engine consumes full-replace snapshots (not deltas)
  and recomputes from scratch on every snapshot; consistency and
  transactions are the collaborator's responsibility.

EXCLUSIVE ACTIVATION:
  SetActiveProtocol enforces the "at most one active non-trashed
  protocol" invariant at the storage layer. The engine only ever reads
  one active protocol at a time and never toggles the flag itself.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite
  - engine/store/memory.go: In-memory for testing/dev
*/
package engine

import "context"

// ProtocolStore persists protocols and serves full snapshots of them.
type ProtocolStore interface {
	// SaveProtocol inserts or replaces a protocol record.
	SaveProtocol(ctx context.Context, p Protocol) error

	// ListProtocols returns every protocol, trashed included, ordered by
	// creation. The engine filters; the store does not.
	ListProtocols(ctx context.Context) ([]Protocol, error)

	// GetProtocol returns one protocol or ErrProtocolNotFound.
	GetProtocol(ctx context.Context, id ProtocolID) (*Protocol, error)

	// SetActiveProtocol activates one protocol and deactivates all
	// others atomically.
	SetActiveProtocol(ctx context.Context, id ProtocolID) error

	// TrashProtocol soft-deletes a protocol. History is preserved.
	TrashProtocol(ctx context.Context, id ProtocolID) error
}

// InjectionStore persists log events and serves full snapshots of them.
type InjectionStore interface {
	SaveInjection(ctx context.Context, inj Injection) error
	ListInjections(ctx context.Context) ([]Injection, error)
	GetInjection(ctx context.Context, id InjectionID) (*Injection, error)
	TrashInjection(ctx context.Context, id InjectionID) error
}

// Settings is the presentation-driven state the engine respects when
// aggregating: per-protocol visibility and the focus-active-only filter.
type Settings struct {
	Visibility      VisibilityMap
	FocusActiveOnly bool
}

// SettingsStore persists the settings collaborator's state.
type SettingsStore interface {
	GetSettings(ctx context.Context) (Settings, error)
	SaveSettings(ctx context.Context, s Settings) error
}

// SnapshotStore is the full persistence collaborator surface.
type SnapshotStore interface {
	ProtocolStore
	InjectionStore
	SettingsStore
}
