package settings

import (
	"context"
	"sync"
)

type Store interface {
	// Load returns the stored blob, or nil when nothing was saved yet.
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, raw []byte) error
}

// Manager caches the current settings in memory and writes changes through to a Store.
type Manager struct {
	store Store

	mu       sync.RWMutex
	cur      Settings
	revision uint64
}

func NewManager(ctx context.Context, store Store) (*Manager, error) {
	m := &Manager{store: store, cur: Defaults()}
	if store == nil {
		return m, nil
	}
	raw, err := store.Load(ctx)
	if err != nil {
		return nil, err
	}
	m.cur = Decode(raw)
	return m, nil
}

// Current returns the active settings and a revision that changes on every update.
func (m *Manager) Current() (Settings, uint64) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cur, m.revision
}

func (m *Manager) Update(ctx context.Context, s Settings) (Settings, error) {
	s.Normalize()
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	if m.store != nil {
		raw, err := encode(s)
		if err != nil {
			return Settings{}, err
		}
		if err := m.store.Save(ctx, raw); err != nil {
			return Settings{}, err
		}
	}
	m.mu.Lock()
	m.cur = s
	m.revision++
	m.mu.Unlock()
	return s, nil
}
