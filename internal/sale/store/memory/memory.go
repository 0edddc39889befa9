package memory

import (
	"context"
	"sync"

	"wrkledger/internal/sale/models"
)

// Store holds the sale state in memory. Execute runs validate and
// mutate under one lock so checks and effects cannot interleave.
type Store struct {
	mu    sync.Mutex
	state models.SaleState
}

// New constructs a Store seeded with the given state.
func New(state models.SaleState) *Store {
	return &Store{state: state}
}

func (s *Store) Get(_ context.Context) (models.SaleState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, nil
}

func (s *Store) Execute(_ context.Context, validate func(models.SaleState) error, mutate func(*models.SaleState)) (models.SaleState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := validate(s.state); err != nil {
		return models.SaleState{}, err
	}
	mutate(&s.state)
	return s.state, nil
}
