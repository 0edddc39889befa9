package httptransport

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"wrkledger/pkg/domain"
	dErrors "wrkledger/pkg/domain-errors"
	"wrkledger/pkg/platform/httputil"
	"wrkledger/pkg/requestcontext"
)

type executePresignedRequest struct {
	Signature string         `json:"signature"` // 0x-prefixed, 65 bytes
	Signer    domain.Address `json:"signer"`
	Recipient domain.Address `json:"recipient"`
	Value     uint64         `json:"value"`
	Fee       uint64         `json:"fee"`
	Nonce     uint64         `json:"nonce"`
}

// handleExecutePresigned settles a presigned transfer submitted by the
// authenticated delegate.
func (h *Handler) handleExecutePresigned(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[executePresignedRequest](w, r, h.s.Logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	sig, err := hexutil.Decode(req.Signature)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "signature must be 0x-prefixed hex"))
		return
	}

	err = h.s.Presigned.Execute(ctx, sig, req.Signer, req.Recipient, req.Value, req.Fee, req.Nonce, requestcontext.Caller(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
