package memory

import (
	"context"
	"sync"

	"wrkledger/pkg/platform/sentinel"
)

// Store is an in-memory consumed-signature set.
type Store struct {
	mu       sync.Mutex
	consumed map[string]struct{}
}

// New constructs an empty Store.
func New() *Store {
	return &Store{consumed: make(map[string]struct{})}
}

// MarkConsumed records the replay key, failing with ErrAlreadyUsed when
// it was recorded before.
func (s *Store) MarkConsumed(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.consumed[key]; ok {
		return sentinel.ErrAlreadyUsed
	}
	s.consumed[key] = struct{}{}
	return nil
}

// Unmark removes a replay key recorded by a movement that later failed.
func (s *Store) Unmark(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.consumed, key)
	return nil
}

func (s *Store) IsConsumed(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.consumed[key]
	return ok, nil
}
