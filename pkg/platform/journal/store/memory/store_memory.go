package memory

import (
	"context"
	"sync"

	"wrkledger/pkg/domain"
	"wrkledger/pkg/platform/journal"
)

// Store keeps journal entries in memory. The development and test default;
// production uses the postgres store.
type Store struct {
	mu      sync.RWMutex
	entries []journal.Entry
}

func New() *Store {
	return &Store{}
}

func (s *Store) Append(_ context.Context, entry journal.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

// ListByAccount returns entries touching the account, oldest first. A limit
// of 0 means no limit.
func (s *Store) ListByAccount(_ context.Context, account domain.Address, limit int) ([]journal.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []journal.Entry
	for _, e := range s.entries {
		if touches(e, account) {
			out = append(out, e)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// All returns every entry in append order. Test helper.
func (s *Store) All() []journal.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]journal.Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

func touches(e journal.Entry, account domain.Address) bool {
	return e.From == account || e.To == account ||
		e.Purchaser == account || e.Beneficiary == account || e.Wallet == account
}
