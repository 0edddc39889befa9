package models

import (
	"math/bits"

	"wrkledger/pkg/domain"
	dErrors "wrkledger/pkg/domain-errors"
)

// Credit is one leg of a movement: an amount credited to a recipient.
type Credit struct {
	To     domain.Address
	Amount domain.Amount
}

// Movement is the atomic unit of balance mutation: one debit against From
// covering every credit leg. When Spender is set, the movement also
// consumes allowance[From][Spender] for the full debit. A movement either
// applies completely or not at all.
type Movement struct {
	From    domain.Address
	Credits []Credit
	Spender *domain.Address
}

// Total returns the full debit the movement requires from From.
func (m Movement) Total() (domain.Amount, error) {
	var total domain.Amount
	for _, c := range m.Credits {
		t, err := domain.AddAmount(total, c.Amount)
		if err != nil {
			return 0, err
		}
		total = t
	}
	return total, nil
}

// TaxPolicy determines the fee split applied to every public transfer.
// The fee is floor(amount * FeeRate / FeeScale); the remainder of the
// division stays on the recipient side.
type TaxPolicy struct {
	FeeAccount domain.Address
	FeeRate    uint64
	FeeScale   uint64
}

func (p TaxPolicy) Validate() error {
	if p.FeeScale == 0 {
		return dErrors.New(dErrors.CodeValidation, "fee scale must be positive")
	}
	if p.FeeRate > p.FeeScale {
		return dErrors.New(dErrors.CodeValidation, "fee rate must not exceed fee scale")
	}
	if p.FeeRate > 0 && p.FeeAccount.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "fee account required when fee rate is positive")
	}
	return nil
}

// Split divides amount into the net credited to the recipient and the fee
// credited to FeeAccount. net + fee == amount always.
func (p TaxPolicy) Split(amount domain.Amount) (net, fee domain.Amount) {
	if p.FeeRate == 0 {
		return amount, 0
	}
	// FeeRate <= FeeScale keeps the 128-bit quotient inside uint64.
	hi, lo := bits.Mul64(amount, p.FeeRate)
	fee, _ = bits.Div64(hi, lo, p.FeeScale)
	return amount - fee, fee
}
