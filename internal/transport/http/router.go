// Package httptransport is the thin HTTP layer. Handlers decode, call a
// domain service with the authenticated caller from context, and encode;
// business rules stay in the services.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	salemodels "wrkledger/internal/sale/models"
	"wrkledger/pkg/domain"
	"wrkledger/pkg/platform/journal"
	"wrkledger/pkg/platform/middleware/auth"
	"wrkledger/pkg/platform/middleware/requestid"
	"wrkledger/pkg/platform/middleware/requesttime"
)

// AuthService exchanges client credentials for access tokens.
type AuthService interface {
	IssueToken(ctx context.Context, keyID, secret string) (string, time.Duration, error)
}

// AuthzService administers the delegate registry.
type AuthzService interface {
	AddAuthorized(ctx context.Context, caller, delegate domain.Address) error
	RemoveAuthorized(ctx context.Context, caller, delegate domain.Address) error
	IsAuthorized(ctx context.Context, addr domain.Address) (bool, error)
	Admin(ctx context.Context) (domain.Address, error)
	TransferAdmin(ctx context.Context, caller, newAdmin domain.Address) error
}

// LedgerService exposes balances, allowances and taxed transfers.
type LedgerService interface {
	Transfer(ctx context.Context, sender, recipient domain.Address, amount domain.Amount) error
	Approve(ctx context.Context, owner, spender domain.Address, amount domain.Amount) error
	TransferFrom(ctx context.Context, spender, owner, recipient domain.Address, amount domain.Amount) error
	BalanceOf(ctx context.Context, addr domain.Address) (domain.Amount, error)
	Allowance(ctx context.Context, owner, spender domain.Address) (domain.Amount, error)
	TotalSupply(ctx context.Context) (domain.Amount, error)
}

// PresignedService settles delegate-submitted presigned transfers.
type PresignedService interface {
	Execute(ctx context.Context, sig []byte, signer, recipient domain.Address, value, fee, nonce uint64, caller domain.Address) error
}

// DistributionService pays out of the pool accounts.
type DistributionService interface {
	Distribute(ctx context.Context, caller, recipient domain.Address, amount domain.Amount) error
	Purchase(ctx context.Context, caller, recipient domain.Address, amount, fee domain.Amount) error
}

// SaleService runs the token sale.
type SaleService interface {
	BuyTokens(ctx context.Context, purchaser, beneficiary domain.Address, payment uint64) (uint64, error)
	TransferRemainingTokens(ctx context.Context, caller domain.Address) (uint64, error)
	State(ctx context.Context) (salemodels.SaleState, error)
}

// JournalReader lists journal entries touching an account.
type JournalReader interface {
	ListByAccount(ctx context.Context, account domain.Address, limit int) ([]journal.Entry, error)
}

//go:generate mockgen -destination=mocks/mock_services.go -package=mocks wrkledger/internal/transport/http LedgerService

// Services collects everything the router needs.
type Services struct {
	Logger       *slog.Logger
	Validator    auth.TokenValidator
	Auth         AuthService
	Authz        AuthzService
	Ledger       LedgerService
	Presigned    PresignedService
	Distribution DistributionService
	Sale         SaleService
	Journal      JournalReader
}

// NewRouter wires all public endpoints. Everything except token
// issuance, health and metrics requires a bearer token.
func NewRouter(s Services) http.Handler {
	h := &Handler{s: s}

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(requestid.Middleware)
	r.Use(requesttime.Middleware)

	r.Get("/healthz", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Post("/auth/token", h.handleIssueToken)

	// Reads are public, like any ledger whose state is open to inspection.
	r.Get("/ledger/balance/{address}", h.handleBalance)
	r.Get("/ledger/allowance/{owner}/{spender}", h.handleAllowance)
	r.Get("/ledger/supply", h.handleTotalSupply)
	r.Get("/sale/status", h.handleSaleState)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(s.Validator, s.Logger))

		r.Post("/ledger/transfer", h.handleTransfer)
		r.Post("/ledger/approve", h.handleApprove)
		r.Post("/ledger/transfer-from", h.handleTransferFrom)
		r.Get("/ledger/journal/{address}", h.handleJournal)

		r.Post("/presigned/execute", h.handleExecutePresigned)

		r.Post("/distribution/distribute", h.handleDistribute)
		r.Post("/distribution/purchase", h.handlePurchase)

		r.Post("/sale/purchase", h.handleBuyTokens)
		r.Post("/sale/closeout", h.handleCloseoutSale)

		r.Get("/authz/admin", h.handleAdmin)
		r.Post("/authz/admin", h.handleTransferAdmin)
		r.Post("/authz/delegates", h.handleAddDelegate)
		r.Delete("/authz/delegates/{address}", h.handleRemoveDelegate)
		r.Get("/authz/delegates/{address}", h.handleIsAuthorized)
	})

	return r
}

// Handler holds the wired services for all endpoints.
type Handler struct {
	s Services
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// pathAddress parses an address URL parameter.
func pathAddress(r *http.Request, name string) (domain.Address, error) {
	return domain.ParseAddress(chi.URLParam(r, name))
}
