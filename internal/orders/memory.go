package orders

import (
	"context"
	"sort"
	"sync"
	"time"

	"wachtrij/internal/queue"
)

// MemoryStore is the keyed order collection mirrored from the game client.
// It stays unavailable until the first Replace.
type MemoryStore struct {
	mu       sync.RWMutex
	loaded   bool
	byID     map[string]queue.Order
	revision uint64
	updated  time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: map[string]queue.Order{}}
}

func (s *MemoryStore) Orders(ctx context.Context) ([]queue.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.loaded {
		return nil, ErrUnavailable
	}
	out := make([]queue.Order, 0, len(s.byID))
	for _, o := range s.byID {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Replace swaps the whole collection, matching how the client exposes its model map.
func (s *MemoryStore) Replace(orders []queue.Order, at time.Time) uint64 {
	next := make(map[string]queue.Order, len(orders))
	for _, o := range orders {
		next[o.ID] = o
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID = next
	s.loaded = true
	s.revision++
	s.updated = at
	return s.revision
}

// Reset drops everything and marks the store unavailable again.
func (s *MemoryStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID = map[string]queue.Order{}
	s.loaded = false
	s.revision++
	s.updated = time.Time{}
}

type Stats struct {
	Loaded    bool
	Orders    int
	Revision  uint64
	UpdatedAt time.Time
}

func (s *MemoryStore) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		Loaded:    s.loaded,
		Orders:    len(s.byID),
		Revision:  s.revision,
		UpdatedAt: s.updated,
	}
}
