package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"wrkledger/pkg/platform/sentinel"
	"wrkledger/pkg/platform/tx"
)

// Schema creates the consumed-signature table.
const Schema = `
CREATE TABLE IF NOT EXISTS presigned_consumed (
    replay_key TEXT PRIMARY KEY
);
`

// Store persists the consumed-signature set in PostgreSQL.
type Store struct {
	db *sql.DB
}

// New constructs a PostgreSQL-backed consumed-signature store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) MarkConsumed(ctx context.Context, key string) error {
	q := tx.QuerierFrom(ctx, s.db)
	res, err := q.ExecContext(ctx, `
		INSERT INTO presigned_consumed (replay_key) VALUES ($1)
		ON CONFLICT (replay_key) DO NOTHING`, key)
	if err != nil {
		return fmt.Errorf("mark signature consumed: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark signature consumed: %w", err)
	}
	if inserted == 0 {
		return sentinel.ErrAlreadyUsed
	}
	return nil
}

func (s *Store) Unmark(ctx context.Context, key string) error {
	q := tx.QuerierFrom(ctx, s.db)
	if _, err := q.ExecContext(ctx, `DELETE FROM presigned_consumed WHERE replay_key = $1`, key); err != nil {
		return fmt.Errorf("unmark signature: %w", err)
	}
	return nil
}

func (s *Store) IsConsumed(ctx context.Context, key string) (bool, error) {
	q := tx.QuerierFrom(ctx, s.db)
	var exists bool
	err := q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM presigned_consumed WHERE replay_key = $1)`, key).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check signature: %w", err)
	}
	return exists, nil
}
