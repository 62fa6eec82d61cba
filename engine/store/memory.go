// Package store provides SnapshotStore implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/dose-engine/engine"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu         sync.RWMutex
	protocols  map[engine.ProtocolID]engine.Protocol
	injections map[engine.InjectionID]engine.Injection
	settings   engine.Settings
}

func NewMemory() *Memory {
	return &Memory{
		protocols:  make(map[engine.ProtocolID]engine.Protocol),
		injections: make(map[engine.InjectionID]engine.Injection),
		settings:   engine.Settings{Visibility: engine.VisibilityMap{}},
	}
}

var _ engine.SnapshotStore = (*Memory)(nil)

// -----------------------------------------------------------------------------
// Protocols
// -----------------------------------------------------------------------------

func (m *Memory) SaveProtocol(_ context.Context, p engine.Protocol) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.protocols[p.ID] = p
	return nil
}

func (m *Memory) ListProtocols(_ context.Context) ([]engine.Protocol, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]engine.Protocol, 0, len(m.protocols))
	for _, p := range m.protocols {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (m *Memory) GetProtocol(_ context.Context, id engine.ProtocolID) (*engine.Protocol, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.protocols[id]
	if !ok {
		return nil, engine.ErrProtocolNotFound
	}
	return &p, nil
}

// SetActiveProtocol activates one protocol exclusively. Trashed protocols
// cannot be activated.
func (m *Memory) SetActiveProtocol(_ context.Context, id engine.ProtocolID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	target, ok := m.protocols[id]
	if !ok || target.IsTrashed {
		return engine.ErrProtocolNotFound
	}
	for pid, p := range m.protocols {
		p.IsActive = pid == id
		m.protocols[pid] = p
	}
	return nil
}

func (m *Memory) TrashProtocol(_ context.Context, id engine.ProtocolID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.protocols[id]
	if !ok {
		return engine.ErrProtocolNotFound
	}
	p.IsTrashed = true
	p.IsActive = false
	m.protocols[id] = p
	return nil
}

// -----------------------------------------------------------------------------
// Injections
// -----------------------------------------------------------------------------

func (m *Memory) SaveInjection(_ context.Context, inj engine.Injection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.injections[inj.ID] = inj
	return nil
}

func (m *Memory) ListInjections(_ context.Context) ([]engine.Injection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]engine.Injection, 0, len(m.injections))
	for _, inj := range m.injections {
		result = append(result, inj)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Date.Equal(result[j].Date) {
			return result[i].ID < result[j].ID
		}
		return result[i].Date.Before(result[j].Date)
	})
	return result, nil
}

func (m *Memory) GetInjection(_ context.Context, id engine.InjectionID) (*engine.Injection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inj, ok := m.injections[id]
	if !ok {
		return nil, engine.ErrInjectionNotFound
	}
	return &inj, nil
}

func (m *Memory) TrashInjection(_ context.Context, id engine.InjectionID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inj, ok := m.injections[id]
	if !ok {
		return engine.ErrInjectionNotFound
	}
	inj.IsTrashed = true
	m.injections[id] = inj
	return nil
}

// -----------------------------------------------------------------------------
// Settings
// -----------------------------------------------------------------------------

func (m *Memory) GetSettings(_ context.Context) (engine.Settings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	copied := engine.Settings{
		Visibility:      make(engine.VisibilityMap, len(m.settings.Visibility)),
		FocusActiveOnly: m.settings.FocusActiveOnly,
	}
	for id, shown := range m.settings.Visibility {
		copied.Visibility[id] = shown
	}
	return copied, nil
}

func (m *Memory) SaveSettings(_ context.Context, s engine.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.Visibility == nil {
		s.Visibility = engine.VisibilityMap{}
	}
	m.settings = s
	return nil
}

// Reset drops all records. Used by the demo scenario loader.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.protocols = make(map[engine.ProtocolID]engine.Protocol)
	m.injections = make(map[engine.InjectionID]engine.Injection)
	m.settings = engine.Settings{Visibility: engine.VisibilityMap{}}
	return nil
}
