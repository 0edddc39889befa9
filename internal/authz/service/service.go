package service

import (
	"context"
	"errors"
	"log/slog"

	"wrkledger/pkg/domain"
	dErrors "wrkledger/pkg/domain-errors"
	"wrkledger/pkg/platform/sentinel"
	"wrkledger/pkg/requestcontext"
)

// Store persists the admin identity and the delegate set.
type Store interface {
	Admin(ctx context.Context) (domain.Address, error)
	SetAdmin(ctx context.Context, admin domain.Address) error
	Add(ctx context.Context, delegate domain.Address) error
	Remove(ctx context.Context, delegate domain.Address) error
	Contains(ctx context.Context, delegate domain.Address) (bool, error)
}

// Service administers the set of addresses permitted to invoke
// delegate-gated operations. Only the admin may mutate the set.
type Service struct {
	store  Store
	logger *slog.Logger
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// New constructs a Service.
func New(store Store, opts ...Option) *Service {
	s := &Service{store: store}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddAuthorized grants delegate privilege. Adding an address that is
// already a delegate succeeds silently.
func (s *Service) AddAuthorized(ctx context.Context, caller, delegate domain.Address) error {
	if err := s.requireAdmin(ctx, caller); err != nil {
		return err
	}
	if delegate.IsZero() {
		return dErrors.New(dErrors.CodeZeroRecipient, "delegate address must not be zero")
	}
	if err := s.store.Add(ctx, delegate); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to add delegate")
	}
	s.log(ctx, "delegate authorized", "delegate", delegate)
	return nil
}

// RemoveAuthorized revokes delegate privilege. Removing an address that
// is not a delegate succeeds silently.
func (s *Service) RemoveAuthorized(ctx context.Context, caller, delegate domain.Address) error {
	if err := s.requireAdmin(ctx, caller); err != nil {
		return err
	}
	if err := s.store.Remove(ctx, delegate); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to remove delegate")
	}
	s.log(ctx, "delegate revoked", "delegate", delegate)
	return nil
}

// IsAuthorized reports whether the address holds delegate privilege.
// The admin is itself a delegate.
func (s *Service) IsAuthorized(ctx context.Context, addr domain.Address) (bool, error) {
	admin, err := s.store.Admin(ctx)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load admin")
	}
	if addr == admin {
		return true, nil
	}
	ok, err := s.store.Contains(ctx, addr)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to query delegate set")
	}
	return ok, nil
}

// Admin returns the current admin identity.
func (s *Service) Admin(ctx context.Context) (domain.Address, error) {
	admin, err := s.store.Admin(ctx)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return domain.ZeroAddress, dErrors.New(dErrors.CodeNotFound, "admin not configured")
		}
		return domain.ZeroAddress, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load admin")
	}
	return admin, nil
}

// TransferAdmin hands the admin role to a new address. Only the current
// admin may call it, and the target must be non-zero.
func (s *Service) TransferAdmin(ctx context.Context, caller, newAdmin domain.Address) error {
	if err := s.requireAdmin(ctx, caller); err != nil {
		return err
	}
	if newAdmin.IsZero() {
		return dErrors.New(dErrors.CodeZeroRecipient, "new admin address must not be zero")
	}
	if err := s.store.SetAdmin(ctx, newAdmin); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to transfer admin")
	}
	s.log(ctx, "admin transferred", "new_admin", newAdmin)
	return nil
}

func (s *Service) requireAdmin(ctx context.Context, caller domain.Address) error {
	admin, err := s.store.Admin(ctx)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load admin")
	}
	if caller != admin {
		return dErrors.New(dErrors.CodeUnauthorized, "caller is not the admin")
	}
	return nil
}

func (s *Service) log(ctx context.Context, msg string, args ...any) {
	if s.logger == nil {
		return
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		args = append(args, "request_id", requestID)
	}
	s.logger.InfoContext(ctx, msg, args...)
}
