package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"wrkledger/internal/apiauth"
	authzservice "wrkledger/internal/authz/service"
	authzmem "wrkledger/internal/authz/store/memory"
	distservice "wrkledger/internal/distribution/service"
	ledgermodels "wrkledger/internal/ledger/models"
	ledgerservice "wrkledger/internal/ledger/service"
	ledgermem "wrkledger/internal/ledger/store/memory"
	presignedservice "wrkledger/internal/presigned/service"
	"wrkledger/internal/presigned/signature"
	presignedmem "wrkledger/internal/presigned/store/memory"
	salemodels "wrkledger/internal/sale/models"
	saleservice "wrkledger/internal/sale/service"
	salemem "wrkledger/internal/sale/store/memory"
	httpmocks "wrkledger/internal/transport/http/mocks"
	"wrkledger/pkg/domain"
	dErrors "wrkledger/pkg/domain-errors"
	journalmem "wrkledger/pkg/platform/journal/store/memory"
	"wrkledger/pkg/platform/journal/publisher"
	"wrkledger/pkg/secrets"
)

const (
	ledgerIDHex = "0x0000000000000000000000000000000000000001"
	adminHex    = "0x1a5b8a59c528458a640d7018c1e806dfb96cbada"
	userHex     = "0x14723a09acff6d2a60dcdf7aa4aff308fddc160c"
	poolHex     = "0x4b0897b0513fdc7c541b6d9d7e929c4e5364d2db"
	sinkHex     = "0x583031d1113ad414f02576bd6afabfb302140225"
	walletHex   = "0xdd870fa1b7c4700f2bd7f44238821c26f7392148"
)

type RouterSuite struct {
	suite.Suite

	server      *httptest.Server
	jwt         *apiauth.JWT
	ledgerStore *ledgermem.Store

	admin  domain.Address
	user   domain.Address
	pool   domain.Address
	sink   domain.Address
	wallet domain.Address
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	s.admin = s.addr(adminHex)
	s.user = s.addr(userHex)
	s.pool = s.addr(poolHex)
	s.sink = s.addr(sinkHex)
	s.wallet = s.addr(walletHex)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	entries := journalmem.New()
	pub := publisher.New(entries)

	s.ledgerStore = ledgermem.New()
	ledger, err := ledgerservice.New(s.ledgerStore,
		ledgermodels.TaxPolicy{FeeAccount: s.sink, FeeRate: 1, FeeScale: 100},
		ledgerservice.WithJournal(pub), ledgerservice.WithLogger(logger))
	s.Require().NoError(err)

	authz := authzservice.New(authzmem.New(s.admin), authzservice.WithLogger(logger))

	presigned := presignedservice.New(s.addr(ledgerIDHex), s.sink, authz, ledger, presignedmem.New(),
		presignedservice.WithJournal(pub), presignedservice.WithLogger(logger))

	dist, err := distservice.New(
		distservice.Pools{Distribution: s.pool, InAppPurchase: s.pool, FeeSink: s.sink},
		authz, ledger, distservice.WithLogger(logger))
	s.Require().NoError(err)

	sale := saleservice.New(salemem.New(salemodels.SaleState{
		Cap:             1000,
		OpeningTime:     time.Now().Add(-time.Hour),
		ClosingTime:     time.Now().Add(time.Hour),
		Rate:            2,
		SalesWallet:     s.wallet,
		PoolWallet:      s.pool,
		AvailableInSale: 5000,
	}), ledger, authz, saleservice.WithJournal(pub), saleservice.WithLogger(logger))

	s.jwt = apiauth.NewJWT("router-test-key", "wrkledger")
	hash, err := secrets.Hash("s3cret")
	s.Require().NoError(err)
	authSvc := apiauth.New(s.jwt, []apiauth.Credential{
		{KeyID: "admin-key", SecretHash: hash, Address: s.admin},
		{KeyID: "user-key", SecretHash: hash, Address: s.user},
	}, time.Hour, apiauth.WithLogger(logger))

	router := NewRouter(Services{
		Logger:       logger,
		Validator:    s.jwt,
		Auth:         authSvc,
		Authz:        authz,
		Ledger:       ledger,
		Presigned:    presigned,
		Distribution: dist,
		Sale:         sale,
		Journal:      entries,
	})
	s.server = httptest.NewServer(router)
	s.T().Cleanup(s.server.Close)
}

func (s *RouterSuite) addr(hex string) domain.Address {
	a, err := domain.ParseAddress(hex)
	s.Require().NoError(err)
	return a
}

func (s *RouterSuite) token(address domain.Address) string {
	token, err := s.jwt.GenerateAccessToken("test", address, time.Hour)
	s.Require().NoError(err)
	return token
}

func (s *RouterSuite) do(method, path, token string, body any) *http.Response {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, s.server.URL+path, reader)
	s.Require().NoError(err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.server.Client().Do(req)
	s.Require().NoError(err)
	return resp
}

func (s *RouterSuite) decode(resp *http.Response, v any) {
	defer resp.Body.Close()
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(v))
}

func (s *RouterSuite) fund(addr domain.Address, amount uint64) {
	s.Require().NoError(s.ledgerStore.Mint(context.Background(), addr, amount))
}

func (s *RouterSuite) TestHealthIsPublic() {
	resp := s.do(http.MethodGet, "/healthz", "", nil)
	defer resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)
}

func (s *RouterSuite) TestBalanceReadIsPublic() {
	s.fund(s.user, 42)

	resp := s.do(http.MethodGet, fmt.Sprintf("/ledger/balance/%s", userHex), "", nil)
	s.Equal(http.StatusOK, resp.StatusCode)

	var balance struct {
		Amount uint64 `json:"amount"`
	}
	s.decode(resp, &balance)
	s.Equal(uint64(42), balance.Amount)
}

func (s *RouterSuite) TestTransferRequiresToken() {
	resp := s.do(http.MethodPost, "/ledger/transfer", "",
		map[string]any{"recipient": adminHex, "amount": 1})
	defer resp.Body.Close()
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *RouterSuite) TestIssueTokenAndTransfer() {
	s.fund(s.user, 1000)

	var tokenResp struct {
		AccessToken string `json:"access_token"`
	}
	resp := s.do(http.MethodPost, "/auth/token", "", map[string]string{"key_id": "user-key", "secret": "s3cret"})
	s.Equal(http.StatusOK, resp.StatusCode)
	s.decode(resp, &tokenResp)
	s.NotEmpty(tokenResp.AccessToken)

	resp = s.do(http.MethodPost, "/ledger/transfer", tokenResp.AccessToken,
		map[string]any{"recipient": adminHex, "amount": 100})
	defer resp.Body.Close()
	s.Equal(http.StatusNoContent, resp.StatusCode)

	var balance struct {
		Amount uint64 `json:"amount"`
	}
	resp = s.do(http.MethodGet, fmt.Sprintf("/ledger/balance/%s", adminHex), tokenResp.AccessToken, nil)
	s.decode(resp, &balance)
	s.Equal(uint64(99), balance.Amount)
}

func (s *RouterSuite) TestIssueTokenRejectsBadSecret() {
	resp := s.do(http.MethodPost, "/auth/token", "", map[string]string{"key_id": "user-key", "secret": "nope"})
	defer resp.Body.Close()
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *RouterSuite) TestTransferErrorEnvelope() {
	resp := s.do(http.MethodPost, "/ledger/transfer", s.token(s.user),
		map[string]any{"recipient": adminHex, "amount": 100})
	s.Equal(http.StatusUnprocessableEntity, resp.StatusCode)

	var envelope struct {
		Error string `json:"error"`
	}
	s.decode(resp, &envelope)
	s.Equal(string(dErrors.CodeInsufficientBalance), envelope.Error)
}

func (s *RouterSuite) TestAuthzRoundTrip() {
	adminToken := s.token(s.admin)

	resp := s.do(http.MethodPost, "/authz/delegates", adminToken, map[string]string{"address": userHex})
	resp.Body.Close()
	s.Equal(http.StatusNoContent, resp.StatusCode)

	var authorized struct {
		Authorized bool `json:"authorized"`
	}
	resp = s.do(http.MethodGet, fmt.Sprintf("/authz/delegates/%s", userHex), adminToken, nil)
	s.decode(resp, &authorized)
	s.True(authorized.Authorized)

	resp = s.do(http.MethodDelete, fmt.Sprintf("/authz/delegates/%s", userHex), adminToken, nil)
	resp.Body.Close()
	s.Equal(http.StatusNoContent, resp.StatusCode)

	// Non-admin mutation is rejected.
	resp = s.do(http.MethodPost, "/authz/delegates", s.token(s.user), map[string]string{"address": userHex})
	defer resp.Body.Close()
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *RouterSuite) TestPresignedExecuteOverHTTP() {
	key, err := crypto.GenerateKey()
	s.Require().NoError(err)
	signer := domain.AddressFromBytes(crypto.PubkeyToAddress(key.PublicKey).Bytes())
	s.fund(signer, 1000)

	// The admin is implicitly a delegate.
	digest := signature.Digest(signature.Encode(s.addr(ledgerIDHex), s.user, 100, 2, 7))
	sig, err := crypto.Sign(digest, key)
	s.Require().NoError(err)

	resp := s.do(http.MethodPost, "/presigned/execute", s.token(s.admin), map[string]any{
		"signature": hexutil.Encode(sig),
		"signer":    signer.String(),
		"recipient": userHex,
		"value":     100,
		"fee":       2,
		"nonce":     7,
	})
	resp.Body.Close()
	s.Equal(http.StatusNoContent, resp.StatusCode)

	balance, err := s.ledgerStore.BalanceOf(context.Background(), signer)
	s.Require().NoError(err)
	s.Equal(uint64(898), balance)

	// Replay maps to 409.
	resp = s.do(http.MethodPost, "/presigned/execute", s.token(s.admin), map[string]any{
		"signature": hexutil.Encode(sig),
		"signer":    signer.String(),
		"recipient": userHex,
		"value":     100,
		"fee":       2,
		"nonce":     7,
	})
	defer resp.Body.Close()
	s.Equal(http.StatusConflict, resp.StatusCode)
}

func (s *RouterSuite) TestSaleBuyAndState() {
	resp := s.do(http.MethodPost, "/sale/purchase", s.token(s.user),
		map[string]any{"beneficiary": userHex, "payment": 10})
	s.Equal(http.StatusOK, resp.StatusCode)

	var bought struct {
		Tokens uint64 `json:"tokens"`
	}
	s.decode(resp, &bought)
	s.Equal(uint64(20), bought.Tokens)

	var state struct {
		Stage      string `json:"stage"`
		WeiRaised  uint64 `json:"wei_raised"`
		CapReached bool   `json:"cap_reached"`
	}
	resp = s.do(http.MethodGet, "/sale/status", "", nil)
	s.decode(resp, &state)
	s.Equal("open", state.Stage)
	s.Equal(uint64(10), state.WeiRaised)
	s.False(state.CapReached)
}

func TestHandlerTranslatesLedgerErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger := httpmocks.NewMockLedgerService(ctrl)
	ledger.EXPECT().
		BalanceOf(gomock.Any(), gomock.Any()).
		Return(uint64(0), dErrors.New(dErrors.CodeInternal, "store exploded"))

	jwt := apiauth.NewJWT("router-test-key", "wrkledger")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := NewRouter(Services{Logger: logger, Validator: jwt, Ledger: ledger})

	token, err := jwt.GenerateAccessToken("test", domain.ZeroAddress, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/ledger/balance/"+userHex, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var envelope struct {
		Error       string `json:"error"`
		Description string `json:"error_description"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, string(dErrors.CodeInternal), envelope.Error)
	assert.Empty(t, envelope.Description)
}
