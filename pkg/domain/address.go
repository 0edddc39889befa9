package domain

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"

	dErrors "wrkledger/pkg/domain-errors"
)

// Address identifies an account on the ledger. It is a 20-byte identifier
// rendered as EIP-55 checksummed hex.
type Address struct {
	inner common.Address
}

// ZeroAddress is the null identifier. It is never a valid transfer recipient.
var ZeroAddress = Address{}

// ParseAddress decodes a 0x-prefixed hex address.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return Address{}, dErrors.New(dErrors.CodeValidation, "invalid address")
	}
	return Address{inner: common.HexToAddress(s)}, nil
}

// AddressFromBytes builds an Address from a raw 20-byte slice.
func AddressFromBytes(b []byte) Address {
	return Address{inner: common.BytesToAddress(b)}
}

func (a Address) IsZero() bool {
	return a.inner == (common.Address{})
}

func (a Address) Bytes() []byte {
	return a.inner.Bytes()
}

func (a Address) String() string {
	return a.inner.Hex()
}

// MarshalText renders the address for JSON payloads and journal records.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.inner.Hex()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
