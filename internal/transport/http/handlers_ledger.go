package httptransport

import (
	"net/http"

	"wrkledger/pkg/domain"
	"wrkledger/pkg/platform/httputil"
	"wrkledger/pkg/requestcontext"
)

type transferRequest struct {
	Recipient domain.Address `json:"recipient"`
	Amount    uint64         `json:"amount"`
}

type approveRequest struct {
	Spender domain.Address `json:"spender"`
	Amount  uint64         `json:"amount"`
}

type transferFromRequest struct {
	Owner     domain.Address `json:"owner"`
	Recipient domain.Address `json:"recipient"`
	Amount    uint64         `json:"amount"`
}

type amountResponse struct {
	Amount uint64 `json:"amount"`
}

// handleTransfer moves tokens from the authenticated caller, taxed.
func (h *Handler) handleTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[transferRequest](w, r, h.s.Logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	if err := h.s.Ledger.Transfer(ctx, requestcontext.Caller(ctx), req.Recipient, req.Amount); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[approveRequest](w, r, h.s.Logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	if err := h.s.Ledger.Approve(ctx, requestcontext.Caller(ctx), req.Spender, req.Amount); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleTransferFrom spends the caller's allowance on the owner's
// balance.
func (h *Handler) handleTransferFrom(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[transferFromRequest](w, r, h.s.Logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	if err := h.s.Ledger.TransferFrom(ctx, requestcontext.Caller(ctx), req.Owner, req.Recipient, req.Amount); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleBalance(w http.ResponseWriter, r *http.Request) {
	addr, err := pathAddress(r, "address")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	balance, err := h.s.Ledger.BalanceOf(r.Context(), addr)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, amountResponse{Amount: balance})
}

func (h *Handler) handleAllowance(w http.ResponseWriter, r *http.Request) {
	owner, err := pathAddress(r, "owner")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	spender, err := pathAddress(r, "spender")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	remaining, err := h.s.Ledger.Allowance(r.Context(), owner, spender)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, amountResponse{Amount: remaining})
}

func (h *Handler) handleTotalSupply(w http.ResponseWriter, r *http.Request) {
	supply, err := h.s.Ledger.TotalSupply(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, amountResponse{Amount: supply})
}

const journalPageLimit = 100

func (h *Handler) handleJournal(w http.ResponseWriter, r *http.Request) {
	addr, err := pathAddress(r, "address")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	entries, err := h.s.Journal.ListByAccount(r.Context(), addr, journalPageLimit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
