package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"wrkledger/internal/sale/models"
	"wrkledger/pkg/domain"
	"wrkledger/pkg/platform/sentinel"
	"wrkledger/pkg/platform/tx"
)

// Schema creates the sale state table.
const Schema = `
CREATE TABLE IF NOT EXISTS sale_state (
    singleton         BOOLEAN PRIMARY KEY DEFAULT TRUE CHECK (singleton),
    cap               NUMERIC(20,0) NOT NULL,
    wei_raised        NUMERIC(20,0) NOT NULL,
    opening_time      TIMESTAMPTZ NOT NULL,
    closing_time      TIMESTAMPTZ NOT NULL,
    rate              NUMERIC(20,0) NOT NULL,
    sales_wallet      TEXT NOT NULL,
    pool_wallet       TEXT NOT NULL,
    available_in_sale NUMERIC(20,0) NOT NULL
);
`

// Store persists the sale state in PostgreSQL as a single row.
type Store struct {
	db *sql.DB
}

// New constructs a PostgreSQL-backed sale store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Init seeds the sale row when none exists. An existing row wins so a
// restart does not reset WeiRaised or AvailableInSale.
func (s *Store) Init(ctx context.Context, state models.SaleState) error {
	q := tx.QuerierFrom(ctx, s.db)
	_, err := q.ExecContext(ctx, `
		INSERT INTO sale_state
		    (singleton, cap, wei_raised, opening_time, closing_time, rate, sales_wallet, pool_wallet, available_in_sale)
		VALUES (TRUE, $1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (singleton) DO NOTHING`,
		format(state.Cap), format(state.WeiRaised), state.OpeningTime, state.ClosingTime,
		format(state.Rate), state.SalesWallet.String(), state.PoolWallet.String(),
		format(state.AvailableInSale))
	if err != nil {
		return fmt.Errorf("init sale state: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context) (models.SaleState, error) {
	return s.load(ctx, false)
}

func (s *Store) Execute(ctx context.Context, validate func(models.SaleState) error, mutate func(*models.SaleState)) (models.SaleState, error) {
	var updated models.SaleState
	err := tx.RunInTx(ctx, s.db, func(txCtx context.Context) error {
		state, err := s.load(txCtx, true)
		if err != nil {
			return err
		}
		if err := validate(state); err != nil {
			return err
		}
		mutate(&state)

		q := tx.QuerierFrom(txCtx, s.db)
		_, err = q.ExecContext(txCtx, `
			UPDATE sale_state SET wei_raised = $1, available_in_sale = $2 WHERE singleton`,
			format(state.WeiRaised), format(state.AvailableInSale))
		if err != nil {
			return fmt.Errorf("update sale state: %w", err)
		}
		updated = state
		return nil
	})
	if err != nil {
		return models.SaleState{}, err
	}
	return updated, nil
}

func (s *Store) load(ctx context.Context, forUpdate bool) (models.SaleState, error) {
	query := `
		SELECT cap::TEXT, wei_raised::TEXT, opening_time, closing_time,
		       rate::TEXT, sales_wallet, pool_wallet, available_in_sale::TEXT
		FROM sale_state WHERE singleton`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	q := tx.QuerierFrom(ctx, s.db)
	var (
		capRaw, raisedRaw, rateRaw, availableRaw string
		opening, closing                         time.Time
		salesWallet, poolWallet                  string
	)
	err := q.QueryRowContext(ctx, query).Scan(
		&capRaw, &raisedRaw, &opening, &closing, &rateRaw, &salesWallet, &poolWallet, &availableRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return models.SaleState{}, sentinel.ErrNotFound
	}
	if err != nil {
		return models.SaleState{}, fmt.Errorf("load sale state: %w", err)
	}

	state := models.SaleState{OpeningTime: opening, ClosingTime: closing}
	if state.Cap, err = parse(capRaw); err != nil {
		return models.SaleState{}, err
	}
	if state.WeiRaised, err = parse(raisedRaw); err != nil {
		return models.SaleState{}, err
	}
	if state.Rate, err = parse(rateRaw); err != nil {
		return models.SaleState{}, err
	}
	if state.AvailableInSale, err = parse(availableRaw); err != nil {
		return models.SaleState{}, err
	}
	if state.SalesWallet, err = domain.ParseAddress(salesWallet); err != nil {
		return models.SaleState{}, fmt.Errorf("load sale state: %w", err)
	}
	if state.PoolWallet, err = domain.ParseAddress(poolWallet); err != nil {
		return models.SaleState{}, fmt.Errorf("load sale state: %w", err)
	}
	return state, nil
}

func parse(raw string) (uint64, error) {
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse sale amount %q: %w", raw, err)
	}
	return v, nil
}

func format(v uint64) string {
	return strconv.FormatUint(v, 10)
}
