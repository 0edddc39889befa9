package httptransport

import (
	"net/http"

	"wrkledger/pkg/platform/httputil"
	"wrkledger/pkg/requestcontext"
)

type issueTokenRequest struct {
	KeyID  string `json:"key_id"`
	Secret string `json:"secret"`
}

type issueTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

func (h *Handler) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[issueTokenRequest](w, r, h.s.Logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	token, ttl, err := h.s.Auth.IssueToken(ctx, req.KeyID, req.Secret)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, issueTokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(ttl.Seconds()),
	})
}
