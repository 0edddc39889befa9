package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"wrkledger/pkg/domain"
	"wrkledger/pkg/platform/journal"
	"wrkledger/pkg/platform/tx"
)

// Store persists journal entries in PostgreSQL. Append joins any transaction
// carried in ctx so a ledger movement and its records commit atomically.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Schema is applied at startup. Addresses are stored as checksummed hex.
const Schema = `
CREATE TABLE IF NOT EXISTS journal_entries (
	id             UUID PRIMARY KEY,
	kind           TEXT NOT NULL,
	ts             TIMESTAMPTZ NOT NULL,
	request_id     TEXT NOT NULL DEFAULT '',
	delegate       TEXT NOT NULL DEFAULT '',
	from_account   TEXT NOT NULL DEFAULT '',
	to_account     TEXT NOT NULL DEFAULT '',
	amount         NUMERIC(20,0) NOT NULL DEFAULT 0,
	purchaser      TEXT NOT NULL DEFAULT '',
	beneficiary    TEXT NOT NULL DEFAULT '',
	payment_amount NUMERIC(20,0) NOT NULL DEFAULT 0,
	token_amount   NUMERIC(20,0) NOT NULL DEFAULT 0,
	wallet         TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS journal_entries_from_idx ON journal_entries (from_account);
CREATE INDEX IF NOT EXISTS journal_entries_to_idx ON journal_entries (to_account);
`

func (s *Store) Append(ctx context.Context, e journal.Entry) error {
	q := tx.QuerierFrom(ctx, s.db)
	_, err := q.ExecContext(ctx, `
		INSERT INTO journal_entries
			(id, kind, ts, request_id, delegate, from_account, to_account, amount,
			 purchaser, beneficiary, payment_amount, token_amount, wallet)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		e.ID, string(e.Kind), e.Timestamp, e.RequestID,
		hexOrEmpty(e.Delegate), hexOrEmpty(e.From), hexOrEmpty(e.To), e.Amount,
		hexOrEmpty(e.Purchaser), hexOrEmpty(e.Beneficiary),
		e.PaymentAmount, e.TokenAmount, hexOrEmpty(e.Wallet),
	)
	if err != nil {
		return fmt.Errorf("append journal entry: %w", err)
	}
	return nil
}

func (s *Store) ListByAccount(ctx context.Context, account domain.Address, limit int) ([]journal.Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	q := tx.QuerierFrom(ctx, s.db)
	rows, err := q.QueryContext(ctx, `
		SELECT id, kind, ts, request_id, delegate, from_account, to_account, amount,
		       purchaser, beneficiary, payment_amount, token_amount, wallet
		FROM journal_entries
		WHERE $1 IN (from_account, to_account, purchaser, beneficiary, wallet)
		ORDER BY ts ASC
		LIMIT $2`,
		account.String(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list journal entries: %w", err)
	}
	defer rows.Close()

	var out []journal.Entry
	for rows.Next() {
		var (
			e    journal.Entry
			kind string
			addr [6]string
		)
		if err := rows.Scan(&e.ID, &kind, &e.Timestamp, &e.RequestID,
			&addr[0], &addr[1], &addr[2], &e.Amount,
			&addr[3], &addr[4], &e.PaymentAmount, &e.TokenAmount, &addr[5],
		); err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		e.Kind = journal.Kind(kind)
		e.Delegate = parseOrZero(addr[0])
		e.From = parseOrZero(addr[1])
		e.To = parseOrZero(addr[2])
		e.Purchaser = parseOrZero(addr[3])
		e.Beneficiary = parseOrZero(addr[4])
		e.Wallet = parseOrZero(addr[5])
		out = append(out, e)
	}
	return out, rows.Err()
}

func hexOrEmpty(a domain.Address) string {
	if a.IsZero() {
		return ""
	}
	return a.String()
}

func parseOrZero(s string) domain.Address {
	if s == "" {
		return domain.ZeroAddress
	}
	a, err := domain.ParseAddress(s)
	if err != nil {
		return domain.ZeroAddress
	}
	return a
}
