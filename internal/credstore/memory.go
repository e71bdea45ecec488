package credstore

import (
	"context"
	"sync"
)

// MemoryStore keeps the pair in process memory only.
type MemoryStore struct {
	mu   sync.RWMutex
	pair *Pair
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Get implements Store.
func (s *MemoryStore) Get(ctx context.Context) (Pair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pair == nil {
		return Pair{}, ErrNotFound
	}
	return *s.pair, nil
}

// Set implements Store.
func (s *MemoryStore) Set(ctx context.Context, pair Pair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = &pair
	return nil
}

// Clear implements Store.
func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = nil
	return nil
}

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }
