package httptransport

import (
	"net/http"

	"wrkledger/pkg/domain"
	"wrkledger/pkg/platform/httputil"
	"wrkledger/pkg/requestcontext"
)

type delegateRequest struct {
	Address domain.Address `json:"address"`
}

type adminResponse struct {
	Admin domain.Address `json:"admin"`
}

type authorizedResponse struct {
	Address    domain.Address `json:"address"`
	Authorized bool           `json:"authorized"`
}

func (h *Handler) handleAdmin(w http.ResponseWriter, r *http.Request) {
	admin, err := h.s.Authz.Admin(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, adminResponse{Admin: admin})
}

func (h *Handler) handleTransferAdmin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[delegateRequest](w, r, h.s.Logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	if err := h.s.Authz.TransferAdmin(ctx, requestcontext.Caller(ctx), req.Address); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleAddDelegate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[delegateRequest](w, r, h.s.Logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	if err := h.s.Authz.AddAuthorized(ctx, requestcontext.Caller(ctx), req.Address); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRemoveDelegate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	addr, err := pathAddress(r, "address")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.s.Authz.RemoveAuthorized(ctx, requestcontext.Caller(ctx), addr); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleIsAuthorized(w http.ResponseWriter, r *http.Request) {
	addr, err := pathAddress(r, "address")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	authorized, err := h.s.Authz.IsAuthorized(r.Context(), addr)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, authorizedResponse{Address: addr, Authorized: authorized})
}
