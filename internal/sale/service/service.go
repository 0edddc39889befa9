package service

import (
	"context"
	"log/slog"

	salemetrics "wrkledger/internal/sale/metrics"
	"wrkledger/internal/sale/models"
	"wrkledger/pkg/domain"
	dErrors "wrkledger/pkg/domain-errors"
	"wrkledger/pkg/platform/journal"
	"wrkledger/pkg/requestcontext"
)

// Store persists the sale state. Execute runs validate and mutate as
// one atomic step.
type Store interface {
	Get(ctx context.Context) (models.SaleState, error)
	Execute(ctx context.Context, validate func(models.SaleState) error, mutate func(*models.SaleState)) (models.SaleState, error)
}

// Ledger issues purchased tokens.
type Ledger interface {
	Mint(ctx context.Context, to domain.Address, amount domain.Amount) error
}

// AdminProvider resolves the current admin identity.
type AdminProvider interface {
	Admin(ctx context.Context) (domain.Address, error)
}

// PaymentForwarder moves the accepted payment to the sales wallet.
// Settlement happens outside the ledger, so this is a port.
type PaymentForwarder interface {
	Forward(ctx context.Context, wallet domain.Address, amount uint64) error
}

// Journal records purchase and closeout entries.
type Journal interface {
	Emit(ctx context.Context, entry journal.Entry) error
	EmitAll(ctx context.Context, entries ...journal.Entry) error
}

// TxRunner scopes the state mutation, issuance and journal entries to
// one transactional boundary.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type noopTxRunner struct{}

func (noopTxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// Service runs the capped, time-windowed token sale.
type Service struct {
	store     Store
	ledger    Ledger
	admin     AdminProvider
	forwarder PaymentForwarder
	journal   Journal
	tx        TxRunner
	logger    *slog.Logger
	metrics   *salemetrics.Metrics
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

func WithMetrics(m *salemetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTxRunner(tx TxRunner) Option {
	return func(s *Service) {
		s.tx = tx
	}
}

func WithPaymentForwarder(f PaymentForwarder) Option {
	return func(s *Service) {
		s.forwarder = f
	}
}

// New constructs a Service.
func New(store Store, ledger Ledger, admin AdminProvider, opts ...Option) *Service {
	s := &Service{store: store, ledger: ledger, admin: admin, tx: noopTxRunner{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BuyTokens accepts a payment while the sale is open and under cap,
// credits the beneficiary at the fixed rate and forwards the payment to
// the sales wallet.
func (s *Service) BuyTokens(ctx context.Context, purchaser, beneficiary domain.Address, payment uint64) (tokens uint64, err error) {
	if beneficiary.IsZero() {
		return 0, s.rejected(dErrors.New(dErrors.CodeZeroRecipient, "beneficiary address must not be zero"))
	}

	now := requestcontext.Now(ctx)
	var salesWallet domain.Address
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		state, err := s.store.Execute(txCtx,
			func(st models.SaleState) error {
				if err := st.CanPurchase(now, payment); err != nil {
					return err
				}
				tokens, err = st.TokensFor(payment)
				return err
			},
			func(st *models.SaleState) {
				st.ApplyPurchase(payment, tokens)
			},
		)
		if err != nil {
			return err
		}
		salesWallet = state.SalesWallet

		if err := s.ledger.Mint(txCtx, beneficiary, tokens); err != nil {
			return err
		}
		return s.emit(txCtx,
			journal.TokenPurchase(purchaser, beneficiary, payment, tokens),
			journal.PaymentForwarded(state.SalesWallet, payment),
		)
	})
	if err != nil {
		return 0, s.rejected(err)
	}

	if s.forwarder != nil {
		if err := s.forwarder.Forward(ctx, salesWallet, payment); err != nil {
			// State has committed; the payment settles out of band and a
			// forwarding failure is retried there, not rolled back here.
			if s.logger != nil {
				s.logger.ErrorContext(ctx, "payment forwarding failed",
					"wallet", salesWallet, "amount", payment, "error", err)
			}
		}
	}

	if s.metrics != nil {
		s.metrics.PurchasesAccepted.Inc()
		s.metrics.TokensIssued.Add(float64(tokens))
		s.metrics.PaymentRaised.Add(float64(payment))
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "sale purchase accepted",
			"purchaser", purchaser, "beneficiary", beneficiary,
			"payment", payment, "tokens", tokens)
	}
	return tokens, nil
}

// TransferRemainingTokens sweeps the unsold allotment to the pool
// wallet. Admin only, after close, and effectively single-shot: a
// second call always fails with NothingRemaining.
func (s *Service) TransferRemainingTokens(ctx context.Context, caller domain.Address) (swept uint64, err error) {
	admin, err := s.admin.Admin(ctx)
	if err != nil {
		return 0, err
	}
	if caller != admin {
		return 0, dErrors.New(dErrors.CodeUnauthorized, "caller is not the admin")
	}

	now := requestcontext.Now(ctx)
	var poolWallet domain.Address
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		state, err := s.store.Execute(txCtx,
			func(st models.SaleState) error {
				return st.CanCloseout(now)
			},
			func(st *models.SaleState) {
				swept = st.ApplyCloseout()
			},
		)
		if err != nil {
			return err
		}
		poolWallet = state.PoolWallet

		if err := s.ledger.Mint(txCtx, state.PoolWallet, swept); err != nil {
			return err
		}
		return s.emit(txCtx, journal.CloseoutSale(state.PoolWallet, swept))
	})
	if err != nil {
		return 0, err
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "unsold sale allotment swept",
			"wallet", poolWallet, "amount", swept)
	}
	return swept, nil
}

// HasClosed reports whether the closing time has passed.
func (s *Service) HasClosed(ctx context.Context) (bool, error) {
	state, err := s.store.Get(ctx)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load sale state")
	}
	return state.HasClosed(requestcontext.Now(ctx)), nil
}

// CapReached reports whether the full cap has been raised.
func (s *Service) CapReached(ctx context.Context) (bool, error) {
	state, err := s.store.Get(ctx)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load sale state")
	}
	return state.CapReached(), nil
}

// State returns a snapshot of the sale state.
func (s *Service) State(ctx context.Context) (models.SaleState, error) {
	state, err := s.store.Get(ctx)
	if err != nil {
		return models.SaleState{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load sale state")
	}
	return state, nil
}

func (s *Service) emit(ctx context.Context, entries ...journal.Entry) error {
	if s.journal == nil {
		return nil
	}
	if err := s.journal.EmitAll(ctx, entries...); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to journal sale entry")
	}
	return nil
}

func (s *Service) rejected(err error) error {
	if s.metrics != nil {
		s.metrics.PurchaseRejected.WithLabelValues(string(dErrors.CodeOf(err))).Inc()
	}
	return err
}
