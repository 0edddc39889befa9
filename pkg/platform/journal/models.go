// Package journal is the append-only record of every economically meaningful
// event: ledger transfer legs, presigned transfer legs, sale purchases, and
// sale closeout. Keep entries transport-agnostic so stores and sinks can fan
// out.
package journal

import (
	"context"
	"time"

	"wrkledger/pkg/domain"
)

// Kind classifies a journal entry.
type Kind string

const (
	// KindTransfer is one leg of a ledger movement: from debited, to
	// credited. Taxed transfers produce two entries, recipient leg first.
	KindTransfer Kind = "transfer"

	// KindTransferPreSigned is one leg of a delegate-submitted presigned
	// movement; Delegate records who relayed it.
	KindTransferPreSigned Kind = "transfer_presigned"

	// KindTokenPurchase records a sale issuance.
	KindTokenPurchase Kind = "token_purchase"

	// KindCloseoutSale records the post-sale sweep of unsold allotment.
	KindCloseoutSale Kind = "closeout_sale"

	// KindPaymentForwarded records payment passed through to the sales
	// wallet.
	KindPaymentForwarded Kind = "payment_forwarded"
)

// Entry is a single journal record. Only the fields meaningful for the Kind
// are set; the rest stay zero.
type Entry struct {
	ID        string         `json:"id"`
	Kind      Kind           `json:"kind"`
	Timestamp time.Time      `json:"timestamp"`
	RequestID string         `json:"request_id,omitempty"`
	Delegate  domain.Address `json:"delegate,omitempty"`
	From      domain.Address `json:"from,omitempty"`
	To        domain.Address `json:"to,omitempty"`
	Amount    uint64         `json:"amount,omitempty"`

	// Sale fields.
	Purchaser     domain.Address `json:"purchaser,omitempty"`
	Beneficiary   domain.Address `json:"beneficiary,omitempty"`
	PaymentAmount uint64         `json:"payment_amount,omitempty"`
	TokenAmount   uint64         `json:"token_amount,omitempty"`
	Wallet        domain.Address `json:"wallet,omitempty"`
}

// Transfer builds a transfer-leg entry.
func Transfer(from, to domain.Address, amount uint64) Entry {
	return Entry{Kind: KindTransfer, From: from, To: to, Amount: amount}
}

// TransferPreSigned builds a presigned transfer-leg entry.
func TransferPreSigned(delegate, from, to domain.Address, amount uint64) Entry {
	return Entry{Kind: KindTransferPreSigned, Delegate: delegate, From: from, To: to, Amount: amount}
}

// TokenPurchase builds a sale purchase entry.
func TokenPurchase(purchaser, beneficiary domain.Address, payment, tokens uint64) Entry {
	return Entry{
		Kind:          KindTokenPurchase,
		Purchaser:     purchaser,
		Beneficiary:   beneficiary,
		PaymentAmount: payment,
		TokenAmount:   tokens,
	}
}

// CloseoutSale builds a sale closeout entry.
func CloseoutSale(wallet domain.Address, amount uint64) Entry {
	return Entry{Kind: KindCloseoutSale, Wallet: wallet, Amount: amount}
}

// PaymentForwarded builds a payment pass-through entry.
func PaymentForwarded(wallet domain.Address, amount uint64) Entry {
	return Entry{Kind: KindPaymentForwarded, Wallet: wallet, PaymentAmount: amount}
}

// Store persists journal entries.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	ListByAccount(ctx context.Context, account domain.Address, limit int) ([]Entry, error)
}

// Sink receives entries after they have been durably appended. Sinks are
// best-effort secondary consumers (streams, exports); the Store is the source
// of truth.
type Sink interface {
	Deliver(ctx context.Context, entry Entry) error
}
