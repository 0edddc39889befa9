package service

import (
	"context"
	"log/slog"

	"wrkledger/internal/ledger/models"
	"wrkledger/pkg/domain"
	dErrors "wrkledger/pkg/domain-errors"
)

// Authorizer answers whether an address may move pool funds.
type Authorizer interface {
	IsAuthorized(ctx context.Context, addr domain.Address) (bool, error)
}

// Ledger moves value out of the pool accounts.
type Ledger interface {
	Move(ctx context.Context, from domain.Address, credits []models.Credit) error
}

// Pools names the accounts the distribution service may debit and the
// sink receiving purchase fees.
type Pools struct {
	Distribution  domain.Address
	InAppPurchase domain.Address
	FeeSink       domain.Address
}

func (p Pools) Validate() error {
	if p.Distribution.IsZero() || p.InAppPurchase.IsZero() || p.FeeSink.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "pool addresses must not be zero")
	}
	return nil
}

// Service lets registered delegates pay out of the distribution pool
// and settle in-app purchases out of the purchase pool.
type Service struct {
	pools  Pools
	authz  Authorizer
	ledger Ledger
	logger *slog.Logger
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// New constructs a Service.
func New(pools Pools, authz Authorizer, ledger Ledger, opts ...Option) (*Service, error) {
	if err := pools.Validate(); err != nil {
		return nil, err
	}
	s := &Service{pools: pools, authz: authz, ledger: ledger}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Distribute pays the full amount from the distribution pool to the
// recipient, untaxed.
func (s *Service) Distribute(ctx context.Context, caller, recipient domain.Address, amount domain.Amount) error {
	if err := s.authorize(ctx, caller); err != nil {
		return err
	}
	if recipient.IsZero() {
		return dErrors.New(dErrors.CodeZeroRecipient, "recipient address must not be zero")
	}
	if err := s.ledger.Move(ctx, s.pools.Distribution, []models.Credit{{To: recipient, Amount: amount}}); err != nil {
		return err
	}
	s.log(ctx, "distribution paid", "delegate", caller, "recipient", recipient, "amount", amount)
	return nil
}

// Purchase debits the in-app-purchase pool for amount, crediting the
// recipient with amount - fee and the fee sink with fee.
func (s *Service) Purchase(ctx context.Context, caller, recipient domain.Address, amount, fee domain.Amount) error {
	if err := s.authorize(ctx, caller); err != nil {
		return err
	}
	if recipient.IsZero() {
		return dErrors.New(dErrors.CodeZeroRecipient, "recipient address must not be zero")
	}
	if fee > amount {
		return dErrors.New(dErrors.CodeValidation, "fee must not exceed amount")
	}

	credits := []models.Credit{{To: recipient, Amount: amount - fee}}
	if fee > 0 {
		credits = append(credits, models.Credit{To: s.pools.FeeSink, Amount: fee})
	}
	if err := s.ledger.Move(ctx, s.pools.InAppPurchase, credits); err != nil {
		return err
	}
	s.log(ctx, "in-app purchase settled", "delegate", caller, "recipient", recipient, "amount", amount, "fee", fee)
	return nil
}

func (s *Service) authorize(ctx context.Context, caller domain.Address) error {
	authorized, err := s.authz.IsAuthorized(ctx, caller)
	if err != nil {
		return err
	}
	if !authorized {
		return dErrors.New(dErrors.CodeUnauthorized, "caller is not an authorized delegate")
	}
	return nil
}

func (s *Service) log(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.InfoContext(ctx, msg, args...)
	}
}
