package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"wrkledger/internal/ledger/models"
	"wrkledger/pkg/domain"
	"wrkledger/pkg/platform/sentinel"
	"wrkledger/pkg/platform/tx"
)

// Schema creates the ledger tables.
const Schema = `
CREATE TABLE IF NOT EXISTS ledger_accounts (
    address TEXT PRIMARY KEY,
    balance NUMERIC(20,0) NOT NULL DEFAULT 0 CHECK (balance >= 0)
);

CREATE TABLE IF NOT EXISTS ledger_allowances (
    owner     TEXT NOT NULL,
    spender   TEXT NOT NULL,
    remaining NUMERIC(20,0) NOT NULL CHECK (remaining >= 0),
    PRIMARY KEY (owner, spender)
);

CREATE TABLE IF NOT EXISTS ledger_meta (
    singleton    BOOLEAN PRIMARY KEY DEFAULT TRUE CHECK (singleton),
    total_supply NUMERIC(20,0) NOT NULL DEFAULT 0
);
`

// Store persists ledger state in PostgreSQL. Movements run inside a
// database transaction with the debited rows locked FOR UPDATE.
type Store struct {
	db *sql.DB
}

// New constructs a PostgreSQL-backed ledger store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) BalanceOf(ctx context.Context, addr domain.Address) (domain.Amount, error) {
	q := tx.QuerierFrom(ctx, s.db)
	var raw string
	err := q.QueryRowContext(ctx,
		`SELECT balance::TEXT FROM ledger_accounts WHERE address = $1`,
		addr.String()).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load balance: %w", err)
	}
	return parseAmount(raw)
}

func (s *Store) Allowance(ctx context.Context, owner, spender domain.Address) (domain.Amount, error) {
	q := tx.QuerierFrom(ctx, s.db)
	var raw string
	err := q.QueryRowContext(ctx,
		`SELECT remaining::TEXT FROM ledger_allowances WHERE owner = $1 AND spender = $2`,
		owner.String(), spender.String()).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load allowance: %w", err)
	}
	return parseAmount(raw)
}

func (s *Store) TotalSupply(ctx context.Context) (domain.Amount, error) {
	q := tx.QuerierFrom(ctx, s.db)
	var raw string
	err := q.QueryRowContext(ctx, `SELECT total_supply::TEXT FROM ledger_meta WHERE singleton`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load total supply: %w", err)
	}
	return parseAmount(raw)
}

func (s *Store) SetAllowance(ctx context.Context, owner, spender domain.Address, amount domain.Amount) error {
	q := tx.QuerierFrom(ctx, s.db)
	_, err := q.ExecContext(ctx, `
		INSERT INTO ledger_allowances (owner, spender, remaining) VALUES ($1, $2, $3)
		ON CONFLICT (owner, spender) DO UPDATE SET remaining = EXCLUDED.remaining`,
		owner.String(), spender.String(), formatAmount(amount))
	if err != nil {
		return fmt.Errorf("set allowance: %w", err)
	}
	return nil
}

func (s *Store) Apply(ctx context.Context, m models.Movement) error {
	total, err := m.Total()
	if err != nil {
		return err
	}

	return tx.RunInTx(ctx, s.db, func(txCtx context.Context) error {
		q := tx.QuerierFrom(txCtx, s.db)

		balance, err := lockBalance(txCtx, q, m.From)
		if err != nil {
			return err
		}
		if balance < total {
			return sentinel.ErrInsufficientFunds
		}

		if m.Spender != nil {
			remaining, err := lockAllowance(txCtx, q, m.From, *m.Spender)
			if err != nil {
				return err
			}
			if remaining < total {
				return sentinel.ErrInsufficientAllowance
			}
			_, err = q.ExecContext(txCtx, `
				UPDATE ledger_allowances SET remaining = remaining - $3
				WHERE owner = $1 AND spender = $2`,
				m.From.String(), m.Spender.String(), formatAmount(total))
			if err != nil {
				return fmt.Errorf("consume allowance: %w", err)
			}
		}

		_, err = q.ExecContext(txCtx,
			`UPDATE ledger_accounts SET balance = balance - $2 WHERE address = $1`,
			m.From.String(), formatAmount(total))
		if err != nil {
			return fmt.Errorf("debit account: %w", err)
		}

		// Credit in address order so concurrent movements lock rows
		// consistently.
		credits := make([]models.Credit, len(m.Credits))
		copy(credits, m.Credits)
		sort.Slice(credits, func(i, j int) bool { return credits[i].To.String() < credits[j].To.String() })
		for _, c := range credits {
			if err := credit(txCtx, q, c.To, c.Amount); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) Mint(ctx context.Context, to domain.Address, amount domain.Amount) error {
	return tx.RunInTx(ctx, s.db, func(txCtx context.Context) error {
		q := tx.QuerierFrom(txCtx, s.db)
		if err := credit(txCtx, q, to, amount); err != nil {
			return err
		}
		_, err := q.ExecContext(txCtx, `
			INSERT INTO ledger_meta (singleton, total_supply) VALUES (TRUE, $1)
			ON CONFLICT (singleton) DO UPDATE SET total_supply = ledger_meta.total_supply + EXCLUDED.total_supply`,
			formatAmount(amount))
		if err != nil {
			return fmt.Errorf("increase total supply: %w", err)
		}
		return nil
	})
}

func lockBalance(ctx context.Context, q tx.Querier, addr domain.Address) (domain.Amount, error) {
	var raw string
	err := q.QueryRowContext(ctx,
		`SELECT balance::TEXT FROM ledger_accounts WHERE address = $1 FOR UPDATE`,
		addr.String()).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("lock balance: %w", err)
	}
	return parseAmount(raw)
}

func lockAllowance(ctx context.Context, q tx.Querier, owner, spender domain.Address) (domain.Amount, error) {
	var raw string
	err := q.QueryRowContext(ctx,
		`SELECT remaining::TEXT FROM ledger_allowances WHERE owner = $1 AND spender = $2 FOR UPDATE`,
		owner.String(), spender.String()).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("lock allowance: %w", err)
	}
	return parseAmount(raw)
}

func credit(ctx context.Context, q tx.Querier, to domain.Address, amount domain.Amount) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO ledger_accounts (address, balance) VALUES ($1, $2)
		ON CONFLICT (address) DO UPDATE SET balance = ledger_accounts.balance + EXCLUDED.balance`,
		to.String(), formatAmount(amount))
	if err != nil {
		return fmt.Errorf("credit account: %w", err)
	}
	return nil
}

func parseAmount(raw string) (domain.Amount, error) {
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", raw, err)
	}
	return v, nil
}

func formatAmount(a domain.Amount) string {
	return strconv.FormatUint(a, 10)
}
