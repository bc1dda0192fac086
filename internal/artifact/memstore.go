package artifact

import (
	"context"
	"fmt"
	"sync"
)

// Compile-time check that MemStore satisfies Store.
var _ Store = (*MemStore)(nil)

// MemStore holds artifacts in process memory. It is safe for concurrent use
// and never hands out a pointer into its own records; List reports artifacts
// in the order they were created.
type MemStore struct {
	mu      sync.RWMutex
	items   map[string]*Artifact
	created []string
}

// NewMemStore returns an empty store.
func NewMemStore() *MemStore {
	return &MemStore{items: make(map[string]*Artifact)}
}

// Create stores a copy of a. It fails if the ID is empty or already taken.
func (s *MemStore) Create(_ context.Context, a Artifact) error {
	if a.ID == "" {
		return fmt.Errorf("artifact: id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[a.ID]; exists {
		return fmt.Errorf("artifact %q already exists", a.ID)
	}
	s.items[a.ID] = a.Clone()
	s.created = append(s.created, a.ID)
	return nil
}

// Get returns a deep copy of the artifact with the given ID.
func (s *MemStore) Get(_ context.Context, id string) (*Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.items[id]
	if !ok {
		return nil, fmt.Errorf("artifact %q: %w", id, ErrNotFound)
	}
	return a.Clone(), nil
}

// Update runs fn on a copy under the write lock and commits the copy only
// when fn succeeds.
func (s *MemStore) Update(_ context.Context, id string, fn func(*Artifact) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.items[id]
	if !ok {
		return fmt.Errorf("artifact %q: %w", id, ErrNotFound)
	}
	next := a.Clone()
	if err := fn(next); err != nil {
		return err
	}
	next.ID = id
	s.items[id] = next
	return nil
}

// List returns copies of matching artifacts in creation order.
func (s *MemStore) List(_ context.Context, f Filter) ([]Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []Artifact{}
	for _, id := range s.created {
		a := s.items[id]
		if f.Match(a) {
			out = append(out, *a.Clone())
		}
	}
	return out, nil
}
