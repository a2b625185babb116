package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/cognicore/paracosm/pkg/paracosm/store"
)

// Store is an in-memory implementation of store.Store for tests.
type Store struct {
	mu        sync.RWMutex
	snapshots map[string]store.Snapshot
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{snapshots: make(map[string]store.Snapshot)}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// SaveReality inserts or replaces a snapshot, keyed by reality name.
func (s *Store) SaveReality(ctx context.Context, snap store.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[snap.Name] = snap
	return nil
}

// LoadReality returns a snapshot by name.
func (s *Store) LoadReality(ctx context.Context, name string) (store.Snapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[name]
	return snap, ok, nil
}

// ListRealities returns stored reality names, sorted.
func (s *Store) ListRealities(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.snapshots))
	for name := range s.snapshots {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

// DeleteReality removes a snapshot by name.
func (s *Store) DeleteReality(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snapshots, name)
	return nil
}
