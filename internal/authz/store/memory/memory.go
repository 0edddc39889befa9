package memory

import (
	"context"
	"sync"

	"wrkledger/pkg/domain"
	"wrkledger/pkg/platform/sentinel"
)

// Store is an in-memory authorization registry.
type Store struct {
	mu        sync.RWMutex
	admin     domain.Address
	delegates map[domain.Address]struct{}
}

// New constructs a Store with the given admin.
func New(admin domain.Address) *Store {
	return &Store{
		admin:     admin,
		delegates: make(map[domain.Address]struct{}),
	}
}

func (s *Store) Admin(_ context.Context) (domain.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.admin.IsZero() {
		return domain.ZeroAddress, sentinel.ErrNotFound
	}
	return s.admin, nil
}

func (s *Store) SetAdmin(_ context.Context, admin domain.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.admin = admin
	return nil
}

func (s *Store) Add(_ context.Context, delegate domain.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delegates[delegate] = struct{}{}
	return nil
}

func (s *Store) Remove(_ context.Context, delegate domain.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.delegates, delegate)
	return nil
}

func (s *Store) Contains(_ context.Context, delegate domain.Address) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.delegates[delegate]
	return ok, nil
}
