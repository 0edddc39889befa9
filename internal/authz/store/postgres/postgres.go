package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"wrkledger/pkg/domain"
	"wrkledger/pkg/platform/sentinel"
	"wrkledger/pkg/platform/tx"
)

// Schema creates the authorization tables.
const Schema = `
CREATE TABLE IF NOT EXISTS authz_admin (
    singleton BOOLEAN PRIMARY KEY DEFAULT TRUE CHECK (singleton),
    address   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS authz_delegates (
    address TEXT PRIMARY KEY
);
`

// Store persists the admin identity and delegate set in PostgreSQL.
type Store struct {
	db *sql.DB
}

// New constructs a PostgreSQL-backed authorization store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Admin(ctx context.Context) (domain.Address, error) {
	q := tx.QuerierFrom(ctx, s.db)
	var raw string
	err := q.QueryRowContext(ctx, `SELECT address FROM authz_admin WHERE singleton`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ZeroAddress, sentinel.ErrNotFound
	}
	if err != nil {
		return domain.ZeroAddress, fmt.Errorf("load admin: %w", err)
	}
	admin, err := domain.ParseAddress(raw)
	if err != nil {
		return domain.ZeroAddress, fmt.Errorf("load admin: %w", err)
	}
	return admin, nil
}

func (s *Store) SetAdmin(ctx context.Context, admin domain.Address) error {
	q := tx.QuerierFrom(ctx, s.db)
	_, err := q.ExecContext(ctx, `
		INSERT INTO authz_admin (singleton, address) VALUES (TRUE, $1)
		ON CONFLICT (singleton) DO UPDATE SET address = EXCLUDED.address`,
		admin.String())
	if err != nil {
		return fmt.Errorf("set admin: %w", err)
	}
	return nil
}

func (s *Store) Add(ctx context.Context, delegate domain.Address) error {
	q := tx.QuerierFrom(ctx, s.db)
	_, err := q.ExecContext(ctx, `
		INSERT INTO authz_delegates (address) VALUES ($1)
		ON CONFLICT (address) DO NOTHING`,
		delegate.String())
	if err != nil {
		return fmt.Errorf("add delegate: %w", err)
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, delegate domain.Address) error {
	q := tx.QuerierFrom(ctx, s.db)
	_, err := q.ExecContext(ctx, `DELETE FROM authz_delegates WHERE address = $1`, delegate.String())
	if err != nil {
		return fmt.Errorf("remove delegate: %w", err)
	}
	return nil
}

func (s *Store) Contains(ctx context.Context, delegate domain.Address) (bool, error) {
	q := tx.QuerierFrom(ctx, s.db)
	var exists bool
	err := q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM authz_delegates WHERE address = $1)`,
		delegate.String()).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check delegate: %w", err)
	}
	return exists, nil
}
