package httptransport

import (
	"net/http"

	"wrkledger/pkg/domain"
	"wrkledger/pkg/platform/httputil"
	"wrkledger/pkg/requestcontext"
)

type distributeRequest struct {
	Recipient domain.Address `json:"recipient"`
	Amount    uint64         `json:"amount"`
}

type purchaseRequest struct {
	Recipient domain.Address `json:"recipient"`
	Amount    uint64         `json:"amount"`
	Fee       uint64         `json:"fee"`
}

func (h *Handler) handleDistribute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[distributeRequest](w, r, h.s.Logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	if err := h.s.Distribution.Distribute(ctx, requestcontext.Caller(ctx), req.Recipient, req.Amount); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handlePurchase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[purchaseRequest](w, r, h.s.Logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	if err := h.s.Distribution.Purchase(ctx, requestcontext.Caller(ctx), req.Recipient, req.Amount, req.Fee); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
