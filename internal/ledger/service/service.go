package service

import (
	"context"
	"errors"
	"log/slog"

	ledgermetrics "wrkledger/internal/ledger/metrics"
	"wrkledger/internal/ledger/models"
	"wrkledger/pkg/domain"
	dErrors "wrkledger/pkg/domain-errors"
	"wrkledger/pkg/platform/journal"
	"wrkledger/pkg/platform/sentinel"
)

// Store persists balances, allowances and the total supply.
type Store interface {
	BalanceOf(ctx context.Context, addr domain.Address) (domain.Amount, error)
	Allowance(ctx context.Context, owner, spender domain.Address) (domain.Amount, error)
	TotalSupply(ctx context.Context) (domain.Amount, error)
	SetAllowance(ctx context.Context, owner, spender domain.Address, amount domain.Amount) error
	Apply(ctx context.Context, movement models.Movement) error
	Mint(ctx context.Context, to domain.Address, amount domain.Amount) error
}

// Journal records one entry per movement leg.
type Journal interface {
	Emit(ctx context.Context, entry journal.Entry) error
	EmitAll(ctx context.Context, entries ...journal.Entry) error
}

// TxRunner scopes a function to one transactional boundary so the store
// mutation and its journal entries commit together.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type noopTxRunner struct{}

func (noopTxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// Service is the ledger: balances, allowances and the taxed transfer
// primitive everything else is built on.
type Service struct {
	store   Store
	tax     models.TaxPolicy
	journal Journal
	tx      TxRunner
	logger  *slog.Logger
	metrics *ledgermetrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithJournal(j Journal) Option {
	return func(s *Service) {
		s.journal = j
	}
}

func WithMetrics(m *ledgermetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTxRunner(tx TxRunner) Option {
	return func(s *Service) {
		s.tx = tx
	}
}

// New constructs a Service. The tax policy must validate.
func New(store Store, tax models.TaxPolicy, opts ...Option) (*Service, error) {
	if err := tax.Validate(); err != nil {
		return nil, err
	}
	s := &Service{store: store, tax: tax, tx: noopTxRunner{}}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Transfer debits sender for the full amount and splits it per the tax
// policy: recipient receives amount - fee, the fee account receives fee.
func (s *Service) Transfer(ctx context.Context, sender, recipient domain.Address, amount domain.Amount) error {
	if recipient.IsZero() {
		return dErrors.New(dErrors.CodeZeroRecipient, "recipient address must not be zero")
	}
	movement := s.taxedMovement(sender, recipient, amount, nil)
	if err := s.apply(ctx, movement, "transfer"); err != nil {
		return err
	}
	s.log(ctx, "transfer applied", "from", sender, "to", recipient, "amount", amount)
	return nil
}

// Approve overwrites the spender's allowance unconditionally.
func (s *Service) Approve(ctx context.Context, owner, spender domain.Address, amount domain.Amount) error {
	if err := s.store.SetAllowance(ctx, owner, spender, amount); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to set allowance")
	}
	s.log(ctx, "allowance approved", "owner", owner, "spender", spender, "amount", amount)
	return nil
}

// TransferFrom performs the same taxed transfer as Transfer, debiting
// owner and consuming spender's allowance for the full amount.
func (s *Service) TransferFrom(ctx context.Context, spender, owner, recipient domain.Address, amount domain.Amount) error {
	if recipient.IsZero() {
		return dErrors.New(dErrors.CodeZeroRecipient, "recipient address must not be zero")
	}
	movement := s.taxedMovement(owner, recipient, amount, &spender)
	if err := s.apply(ctx, movement, "transfer_from"); err != nil {
		return err
	}
	s.log(ctx, "transfer-from applied", "spender", spender, "owner", owner, "to", recipient, "amount", amount)
	return nil
}

// Move applies an untaxed multi-leg movement debiting from for the sum
// of all legs. Used by the presigned and distribution services, which
// own their own fee semantics.
func (s *Service) Move(ctx context.Context, from domain.Address, credits []models.Credit) error {
	for _, c := range credits {
		if c.To.IsZero() {
			return dErrors.New(dErrors.CodeZeroRecipient, "recipient address must not be zero")
		}
	}
	return s.apply(ctx, models.Movement{From: from, Credits: credits}, "move")
}

// Mint credits to and grows the total supply. Sale issuance only.
func (s *Service) Mint(ctx context.Context, to domain.Address, amount domain.Amount) error {
	if to.IsZero() {
		return dErrors.New(dErrors.CodeZeroRecipient, "recipient address must not be zero")
	}
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.store.Mint(txCtx, to, amount); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to mint")
		}
		return s.emit(txCtx, journal.Transfer(domain.ZeroAddress, to, amount))
	})
	if err != nil {
		return err
	}
	s.increment("mint")
	return nil
}

func (s *Service) BalanceOf(ctx context.Context, addr domain.Address) (domain.Amount, error) {
	balance, err := s.store.BalanceOf(ctx, addr)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load balance")
	}
	return balance, nil
}

func (s *Service) Allowance(ctx context.Context, owner, spender domain.Address) (domain.Amount, error) {
	remaining, err := s.store.Allowance(ctx, owner, spender)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load allowance")
	}
	return remaining, nil
}

func (s *Service) TotalSupply(ctx context.Context) (domain.Amount, error) {
	supply, err := s.store.TotalSupply(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load total supply")
	}
	return supply, nil
}

// TaxPolicy returns the configured tax policy.
func (s *Service) TaxPolicy() models.TaxPolicy {
	return s.tax
}

func (s *Service) taxedMovement(from, recipient domain.Address, amount domain.Amount, spender *domain.Address) models.Movement {
	net, fee := s.tax.Split(amount)
	credits := []models.Credit{{To: recipient, Amount: net}}
	if fee > 0 {
		credits = append(credits, models.Credit{To: s.tax.FeeAccount, Amount: fee})
	}
	return models.Movement{From: from, Credits: credits, Spender: spender}
}

// apply runs the movement and its journal legs in one transactional
// boundary, emitting one Transfer entry per credit in leg order.
func (s *Service) apply(ctx context.Context, movement models.Movement, kind string) error {
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.store.Apply(txCtx, movement); err != nil {
			switch {
			case errors.Is(err, sentinel.ErrInsufficientFunds):
				return dErrors.New(dErrors.CodeInsufficientBalance, "balance below required debit")
			case errors.Is(err, sentinel.ErrInsufficientAllowance):
				return dErrors.New(dErrors.CodeInsufficientAllowance, "allowance below requested amount")
			case dErrors.HasCode(err, dErrors.CodeValidation):
				return err
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to apply movement")
		}
		entries := make([]journal.Entry, 0, len(movement.Credits))
		for _, c := range movement.Credits {
			entries = append(entries, journal.Transfer(movement.From, c.To, c.Amount))
		}
		return s.emit(txCtx, entries...)
	})
	if err != nil {
		return err
	}
	s.increment(kind)
	if kind == "transfer" || kind == "transfer_from" {
		if len(movement.Credits) == 2 && s.metrics != nil {
			s.metrics.AddFees(movement.Credits[1].Amount)
		}
	}
	return nil
}

func (s *Service) emit(ctx context.Context, entries ...journal.Entry) error {
	if s.journal == nil {
		return nil
	}
	if err := s.journal.EmitAll(ctx, entries...); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to journal movement")
	}
	return nil
}

func (s *Service) increment(kind string) {
	if s.metrics != nil {
		s.metrics.IncrementMovement(kind)
	}
}

func (s *Service) log(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.InfoContext(ctx, msg, args...)
	}
}
