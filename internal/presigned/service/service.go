package service

import (
	"context"
	"errors"
	"log/slog"

	"wrkledger/internal/ledger/models"
	"wrkledger/internal/presigned/signature"
	"wrkledger/pkg/domain"
	dErrors "wrkledger/pkg/domain-errors"
	"wrkledger/pkg/platform/journal"
	"wrkledger/pkg/platform/sentinel"
)

// Authorizer answers whether an address may submit presigned transfers.
type Authorizer interface {
	IsAuthorized(ctx context.Context, addr domain.Address) (bool, error)
}

// Ledger moves value on the signer's behalf.
type Ledger interface {
	Move(ctx context.Context, from domain.Address, credits []models.Credit) error
}

// ConsumedStore is the replay-protection set. An entry is permanent once
// a presigned transfer commits.
type ConsumedStore interface {
	MarkConsumed(ctx context.Context, key string) error
	Unmark(ctx context.Context, key string) error
}

// Journal records one presigned entry per movement leg.
type Journal interface {
	EmitAll(ctx context.Context, entries ...journal.Entry) error
}

// TxRunner scopes the movement and its journal entries to one
// transactional boundary so they commit together.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type noopTxRunner struct{}

func (noopTxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// Service executes transfers authorized off-line by the token holder's
// signature and submitted by a registered delegate, which is compensated
// from the signer's balance via the fee sink.
type Service struct {
	ledgerID domain.Address
	feeSink  domain.Address
	authz    Authorizer
	ledger   Ledger
	consumed ConsumedStore
	journal  Journal
	tx       TxRunner
	logger   *slog.Logger
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

func WithTxRunner(tx TxRunner) Option {
	return func(s *Service) {
		s.tx = tx
	}
}

// New constructs a Service. ledgerID is the ledger's own identity,
// bound into every signed message so a signature cannot be replayed
// against another deployment.
func New(ledgerID, feeSink domain.Address, authz Authorizer, ledger Ledger, consumed ConsumedStore, opts ...Option) *Service {
	s := &Service{
		ledgerID: ledgerID,
		feeSink:  feeSink,
		authz:    authz,
		ledger:   ledger,
		consumed: consumed,
		tx:       noopTxRunner{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Execute verifies and settles one presigned transfer: value to
// recipient plus fee to the fee sink, both debited from signer. The
// replay key is claimed before the movement and released again if the
// movement fails, so a failed attempt can be resubmitted.
func (s *Service) Execute(ctx context.Context, sig []byte, signer, recipient domain.Address, value, fee, nonce uint64, caller domain.Address) error {
	authorized, err := s.authz.IsAuthorized(ctx, caller)
	if err != nil {
		return err
	}
	if !authorized {
		return dErrors.New(dErrors.CodeUnauthorized, "caller is not an authorized delegate")
	}
	if recipient.IsZero() {
		return dErrors.New(dErrors.CodeZeroRecipient, "recipient address must not be zero")
	}

	digest := signature.Digest(signature.Encode(s.ledgerID, recipient, value, fee, nonce))
	recovered, err := signature.Recover(sig, digest)
	if err != nil {
		return err
	}
	if recovered != signer {
		return dErrors.New(dErrors.CodeSignatureMismatch, "recovered signer does not match claimed signer")
	}

	key := signature.ReplayKey(sig)
	if err := s.consumed.MarkConsumed(ctx, key); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return dErrors.New(dErrors.CodeSignatureReplay, "signature already consumed")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record replay key")
	}

	credits := []models.Credit{{To: recipient, Amount: value}}
	if fee > 0 {
		credits = append(credits, models.Credit{To: s.feeSink, Amount: fee})
	}
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.ledger.Move(txCtx, signer, credits); err != nil {
			return err
		}
		if s.journal == nil {
			return nil
		}
		entries := make([]journal.Entry, 0, len(credits))
		for _, c := range credits {
			entries = append(entries, journal.TransferPreSigned(caller, signer, c.To, c.Amount))
		}
		if err := s.journal.EmitAll(txCtx, entries...); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to journal presigned transfer")
		}
		return nil
	})
	if err != nil {
		// The settle rolled back whole, so the signature may be resubmitted.
		if unmarkErr := s.consumed.Unmark(ctx, key); unmarkErr != nil && s.logger != nil {
			s.logger.ErrorContext(ctx, "failed to release replay key after aborted movement",
				"replay_key", key, "error", unmarkErr)
		}
		return err
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "presigned transfer executed",
			"delegate", caller, "signer", signer, "recipient", recipient,
			"value", value, "fee", fee, "nonce", nonce)
	}
	return nil
}
