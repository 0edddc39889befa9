package models

import (
	"time"

	"wrkledger/pkg/domain"
	dErrors "wrkledger/pkg/domain-errors"
)

// Stage is the time-derived lifecycle position of the sale. It is never
// persisted: it is a pure function of the clock and the state.
type Stage string

const (
	StagePending Stage = "pending"
	StageOpen    Stage = "open"
	StageClosed  Stage = "closed"
)

// SaleState is the capped, time-windowed token sale. Time bounds, cap,
// rate and wallets are fixed at construction; WeiRaised and
// AvailableInSale mutate on each accepted purchase.
type SaleState struct {
	Cap             uint64
	WeiRaised       uint64
	OpeningTime     time.Time
	ClosingTime     time.Time
	Rate            uint64
	SalesWallet     domain.Address
	PoolWallet      domain.Address
	AvailableInSale uint64
}

func (s SaleState) Validate() error {
	if !s.OpeningTime.Before(s.ClosingTime) {
		return dErrors.New(dErrors.CodeValidation, "opening time must precede closing time")
	}
	if s.Cap == 0 {
		return dErrors.New(dErrors.CodeValidation, "cap must be positive")
	}
	if s.Rate == 0 {
		return dErrors.New(dErrors.CodeValidation, "rate must be positive")
	}
	if s.WeiRaised > s.Cap {
		return dErrors.New(dErrors.CodeValidation, "raised amount must not exceed cap")
	}
	if s.SalesWallet.IsZero() || s.PoolWallet.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "sale wallets must not be zero")
	}
	return nil
}

// StageAt derives the lifecycle position at the given time.
func (s SaleState) StageAt(now time.Time) Stage {
	switch {
	case now.Before(s.OpeningTime):
		return StagePending
	case s.HasClosed(now):
		return StageClosed
	default:
		return StageOpen
	}
}

// HasClosed reports whether the closing time has passed.
func (s SaleState) HasClosed(now time.Time) bool {
	return !now.Before(s.ClosingTime)
}

// CapReached reports whether the full cap has been raised, independent
// of time.
func (s SaleState) CapReached() bool {
	return s.WeiRaised == s.Cap
}

// TokensFor converts a payment into its token amount at the fixed rate.
func (s SaleState) TokensFor(payment uint64) (uint64, error) {
	return domain.MulAmount(payment, s.Rate)
}

// CanPurchase validates a purchase of payment units at the given time.
func (s SaleState) CanPurchase(now time.Time, payment uint64) error {
	if payment == 0 {
		return dErrors.New(dErrors.CodeZeroPayment, "payment amount must be positive")
	}
	if s.StageAt(now) != StageOpen {
		return dErrors.New(dErrors.CodeSaleNotOpen, "sale is not open")
	}
	raised, err := domain.AddAmount(s.WeiRaised, payment)
	if err != nil || raised > s.Cap {
		return dErrors.New(dErrors.CodeCapExceeded, "purchase would exceed the sale cap")
	}
	tokens, err := s.TokensFor(payment)
	if err != nil {
		return err
	}
	if tokens > s.AvailableInSale {
		return dErrors.New(dErrors.CodeInsufficientSupply, "sale allotment exhausted")
	}
	return nil
}

// ApplyPurchase records an accepted purchase. Call only after
// CanPurchase passed under the same lock.
func (s *SaleState) ApplyPurchase(payment, tokens uint64) {
	s.WeiRaised += payment
	s.AvailableInSale -= tokens
}

// CanCloseout validates sweeping the unsold allotment at the given time.
func (s SaleState) CanCloseout(now time.Time) error {
	if !s.HasClosed(now) {
		return dErrors.New(dErrors.CodeSaleStillOpen, "sale has not closed yet")
	}
	if s.AvailableInSale == 0 {
		return dErrors.New(dErrors.CodeNothingRemaining, "no sale allotment remaining")
	}
	return nil
}

// ApplyCloseout zeroes the allotment and returns what was left.
func (s *SaleState) ApplyCloseout() uint64 {
	remaining := s.AvailableInSale
	s.AvailableInSale = 0
	return remaining
}
