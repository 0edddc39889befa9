// Package signature verifies presigned transfer authorizations: fixed
// message encoding in, 65-byte recoverable secp256k1 signature in,
// recovered signer address out.
package signature

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/ethereum/go-ethereum/crypto"

	"wrkledger/pkg/domain"
	dErrors "wrkledger/pkg/domain-errors"
)

// signedMessagePrefix is the Ethereum personal-sign prefix for a 32-byte
// digest. Wallets apply it before signing, so recovery must too.
const signedMessagePrefix = "\x19Ethereum Signed Message:\n32"

// Encode produces the canonical message bytes for a presigned transfer:
// ledgerID || recipient || value || fee || nonce, integers big-endian.
func Encode(ledgerID, recipient domain.Address, value, fee, nonce uint64) []byte {
	buf := make([]byte, 0, 20+20+8+8+8)
	buf = append(buf, ledgerID.Bytes()...)
	buf = append(buf, recipient.Bytes()...)
	buf = binary.BigEndian.AppendUint64(buf, value)
	buf = binary.BigEndian.AppendUint64(buf, fee)
	buf = binary.BigEndian.AppendUint64(buf, nonce)
	return buf
}

// Digest hashes the canonical message and applies the signed-message
// prefix. This is the 32-byte value signatures are recovered against.
func Digest(message []byte) []byte {
	inner := crypto.Keccak256(message)
	return crypto.Keccak256([]byte(signedMessagePrefix), inner)
}

// Recover returns the address that produced sig over digest. The
// recovery byte may be 0/1 or the legacy 27/28.
func Recover(sig, digest []byte) (domain.Address, error) {
	if len(sig) != crypto.SignatureLength {
		return domain.ZeroAddress, dErrors.New(dErrors.CodeSignatureMismatch, "signature must be 65 bytes")
	}
	normalized := make([]byte, crypto.SignatureLength)
	copy(normalized, sig)
	if normalized[64] >= 27 {
		normalized[64] -= 27
	}
	if normalized[64] > 1 {
		return domain.ZeroAddress, dErrors.New(dErrors.CodeSignatureMismatch, "invalid recovery byte")
	}
	pub, err := crypto.SigToPub(digest, normalized)
	if err != nil {
		return domain.ZeroAddress, dErrors.Wrap(err, dErrors.CodeSignatureMismatch, "signature recovery failed")
	}
	return domain.AddressFromBytes(crypto.PubkeyToAddress(*pub).Bytes()), nil
}

// ReplayKey derives the replay-protection key for a consumed signature.
func ReplayKey(sig []byte) string {
	return hex.EncodeToString(crypto.Keccak256(sig))
}
