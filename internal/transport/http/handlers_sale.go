package httptransport

import (
	"net/http"
	"time"

	"wrkledger/pkg/domain"
	"wrkledger/pkg/platform/httputil"
	"wrkledger/pkg/requestcontext"
)

type buyTokensRequest struct {
	Beneficiary domain.Address `json:"beneficiary"`
	Payment     uint64         `json:"payment"`
}

type buyTokensResponse struct {
	Tokens uint64 `json:"tokens"`
}

type closeoutResponse struct {
	Swept uint64 `json:"swept"`
}

type saleStateResponse struct {
	Stage           string    `json:"stage"`
	Cap             uint64    `json:"cap"`
	WeiRaised       uint64    `json:"wei_raised"`
	Rate            uint64    `json:"rate"`
	OpeningTime     time.Time `json:"opening_time"`
	ClosingTime     time.Time `json:"closing_time"`
	AvailableInSale uint64    `json:"available_in_sale"`
	HasClosed       bool      `json:"has_closed"`
	CapReached      bool      `json:"cap_reached"`
}

// handleBuyTokens accepts a sale purchase by the authenticated caller,
// credited to the named beneficiary.
func (h *Handler) handleBuyTokens(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[buyTokensRequest](w, r, h.s.Logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	tokens, err := h.s.Sale.BuyTokens(ctx, requestcontext.Caller(ctx), req.Beneficiary, req.Payment)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, buyTokensResponse{Tokens: tokens})
}

func (h *Handler) handleCloseoutSale(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	swept, err := h.s.Sale.TransferRemainingTokens(ctx, requestcontext.Caller(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, closeoutResponse{Swept: swept})
}

func (h *Handler) handleSaleState(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	state, err := h.s.Sale.State(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	now := requestcontext.Now(ctx)
	httputil.WriteJSON(w, http.StatusOK, saleStateResponse{
		Stage:           string(state.StageAt(now)),
		Cap:             state.Cap,
		WeiRaised:       state.WeiRaised,
		Rate:            state.Rate,
		OpeningTime:     state.OpeningTime,
		ClosingTime:     state.ClosingTime,
		AvailableInSale: state.AvailableInSale,
		HasClosed:       state.HasClosed(now),
		CapReached:      state.CapReached(),
	})
}
