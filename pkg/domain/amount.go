package domain

import (
	"math/bits"

	dErrors "wrkledger/pkg/domain-errors"
)

// Amount is a quantity of token units. Balances and allowances never go
// negative, so the unsigned representation is authoritative; arithmetic that
// could wrap must go through the checked helpers below.
type Amount = uint64

// AddAmount returns a + b, failing instead of wrapping around.
func AddAmount(a, b Amount) (Amount, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, dErrors.New(dErrors.CodeValidation, "amount overflow")
	}
	return sum, nil
}

// MulAmount returns a * b, failing instead of wrapping around.
func MulAmount(a, b Amount) (Amount, error) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, dErrors.New(dErrors.CodeValidation, "amount overflow")
	}
	return lo, nil
}

// SumAmounts totals a series of amounts with overflow checking.
func SumAmounts(amounts ...Amount) (Amount, error) {
	var total Amount
	for _, a := range amounts {
		var err error
		total, err = AddAmount(total, a)
		if err != nil {
			return 0, err
		}
	}
	return total, nil
}
