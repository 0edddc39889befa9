package memory

import (
	"context"
	"sync"

	"wrkledger/internal/ledger/models"
	"wrkledger/pkg/domain"
	"wrkledger/pkg/platform/sentinel"
)

type allowanceKey struct {
	owner   domain.Address
	spender domain.Address
}

// Store is an in-memory ledger. Movements apply atomically under a
// single lock.
type Store struct {
	mu          sync.RWMutex
	balances    map[domain.Address]domain.Amount
	allowances  map[allowanceKey]domain.Amount
	totalSupply domain.Amount
}

// New constructs an empty Store.
func New() *Store {
	return &Store{
		balances:   make(map[domain.Address]domain.Amount),
		allowances: make(map[allowanceKey]domain.Amount),
	}
}

func (s *Store) BalanceOf(_ context.Context, addr domain.Address) (domain.Amount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balances[addr], nil
}

func (s *Store) Allowance(_ context.Context, owner, spender domain.Address) (domain.Amount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.allowances[allowanceKey{owner, spender}], nil
}

func (s *Store) TotalSupply(_ context.Context) (domain.Amount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totalSupply, nil
}

func (s *Store) SetAllowance(_ context.Context, owner, spender domain.Address, amount domain.Amount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.allowances[allowanceKey{owner, spender}] = amount
	return nil
}

// Apply validates the movement's full debit (and allowance, when a
// spender is set) before mutating anything.
func (s *Store) Apply(_ context.Context, m models.Movement) error {
	total, err := m.Total()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.balances[m.From] < total {
		return sentinel.ErrInsufficientFunds
	}
	if m.Spender != nil {
		key := allowanceKey{m.From, *m.Spender}
		if s.allowances[key] < total {
			return sentinel.ErrInsufficientAllowance
		}
		s.allowances[key] -= total
	}

	s.balances[m.From] -= total
	for _, c := range m.Credits {
		s.balances[c.To] += c.Amount
	}
	return nil
}

func (s *Store) Mint(_ context.Context, to domain.Address, amount domain.Amount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	supply, err := domain.AddAmount(s.totalSupply, amount)
	if err != nil {
		return err
	}
	balance, err := domain.AddAmount(s.balances[to], amount)
	if err != nil {
		return err
	}
	s.totalSupply = supply
	s.balances[to] = balance
	return nil
}
