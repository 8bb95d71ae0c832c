package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/etcmint/mintgate/pkg/apierr"
	"github.com/etcmint/mintgate/pkg/chain"
	"github.com/etcmint/mintgate/pkg/ingress"
	"github.com/etcmint/mintgate/pkg/types"
)

const testKey = "test-key-1"

// fakeChain implements ChainService with overridable behaviors and call
// counting, so handler tests run without any RPC endpoint.
type fakeChain struct {
	calls int

	createFungibleFn func(chain.CreateFungibleParams) (chain.DeployResult, error)
	listTokensFn     func(limit, offset uint64) ([]types.Token, uint64, error)
	ownerTokensFn    func(owner string) ([]types.Token, error)
	tokenInfoFn      func(tokenID uint64) (types.Token, error)
	mintFn           func(tokenID uint64, p chain.MintParams) (chain.OpResult, error)
	pauseFn          func(tokenID uint64) (chain.OpResult, error)
	healthFn         func() (types.ChainStatus, error)
}

func confirmedOp(kind types.OperationKind, id string) types.Operation {
	return types.Operation{
		ID: id, Kind: kind, Status: types.OperationConfirmed,
		TxHash: "0xf00d", BlockNumber: 42, CreatedAt: time.Now(),
	}
}

func sampleToken(id uint64) types.Token {
	return types.Token{
		ID: id, Kind: types.TokenKindFungible, Address: "0x1111111111111111111111111111111111111111",
		Owner: "0x2222222222222222222222222222222222222222", Name: "My Token", Symbol: "MTK",
		Burnable: true, Pausable: true, CreatedAt: time.Unix(1700000000, 0),
	}
}

func (f *fakeChain) CreateFungible(_ context.Context, p chain.CreateFungibleParams) (chain.DeployResult, error) {
	f.calls++
	if f.createFungibleFn != nil {
		return f.createFungibleFn(p)
	}
	id := uint64(1)
	return chain.DeployResult{
		Operation:    confirmedOp(types.OpDeploy, "deploy-1"),
		TokenID:      &id,
		TokenAddress: "0x1111111111111111111111111111111111111111",
	}, nil
}

func (f *fakeChain) CreateNonFungible(_ context.Context, _ chain.CreateNonFungibleParams) (chain.DeployResult, error) {
	f.calls++
	id := uint64(2)
	return chain.DeployResult{
		Operation:    confirmedOp(types.OpDeploy, "deploy-2"),
		TokenID:      &id,
		TokenAddress: "0x3333333333333333333333333333333333333333",
	}, nil
}

func (f *fakeChain) TokenInfo(_ context.Context, tokenID uint64) (types.Token, error) {
	f.calls++
	if f.tokenInfoFn != nil {
		return f.tokenInfoFn(tokenID)
	}
	return sampleToken(tokenID), nil
}

func (f *fakeChain) ListTokens(_ context.Context, limit, offset uint64) ([]types.Token, uint64, error) {
	f.calls++
	if f.listTokensFn != nil {
		return f.listTokensFn(limit, offset)
	}
	return []types.Token{sampleToken(1)}, 1, nil
}

func (f *fakeChain) OwnerTokens(_ context.Context, owner string) ([]types.Token, error) {
	f.calls++
	if f.ownerTokensFn != nil {
		return f.ownerTokensFn(owner)
	}
	return []types.Token{sampleToken(1), sampleToken(2)}, nil
}

func (f *fakeChain) Mint(_ context.Context, tokenID uint64, p chain.MintParams) (chain.OpResult, error) {
	f.calls++
	if f.mintFn != nil {
		return f.mintFn(tokenID, p)
	}
	return chain.OpResult{Operation: confirmedOp(types.OpMint, "mint-1-3")}, nil
}

func (f *fakeChain) Burn(_ context.Context, tokenID uint64, p chain.BurnParams) (chain.OpResult, error) {
	f.calls++
	return chain.OpResult{Operation: confirmedOp(types.OpBurn, "burn-1-4")}, nil
}

func (f *fakeChain) Transfer(_ context.Context, tokenID uint64, p chain.TransferParams) (chain.OpResult, error) {
	f.calls++
	return chain.OpResult{Operation: confirmedOp(types.OpTransfer, "transfer-1-5")}, nil
}

func (f *fakeChain) Pause(_ context.Context, tokenID uint64, _ string) (chain.OpResult, error) {
	f.calls++
	if f.pauseFn != nil {
		return f.pauseFn(tokenID)
	}
	return chain.OpResult{Operation: confirmedOp(types.OpPause, "pause-1-6")}, nil
}

func (f *fakeChain) Unpause(_ context.Context, tokenID uint64, _ string) (chain.OpResult, error) {
	f.calls++
	return chain.OpResult{Operation: confirmedOp(types.OpUnpause, "unpause-1-7")}, nil
}

func (f *fakeChain) UpdateMetadata(_ context.Context, tokenID uint64, uri, _ string) (chain.OpResult, error) {
	f.calls++
	return chain.OpResult{Operation: confirmedOp(types.OpUpdateMetadata, "update-metadata-1-8")}, nil
}

func (f *fakeChain) ListOnDex(_ context.Context, tokenID uint64, _ string) (chain.OpResult, error) {
	f.calls++
	return chain.OpResult{Operation: confirmedOp(types.OpListOnDex, "list-on-dex-1-9")}, nil
}

func (f *fakeChain) EstimateDeployFee(_ context.Context, _ chain.FeeParams) (types.FeeQuote, error) {
	f.calls++
	return types.FeeQuote{GasLimit: 120000, GasPrice: "1000000000", GasPriceInDisplayUnit: "1.0", EstimatedCost: "0.00012"}, nil
}

func (f *fakeChain) Balance(_ context.Context, tokenID uint64, address string) (types.Balance, error) {
	f.calls++
	return types.Balance{
		TokenID: tokenID, Kind: types.TokenKindFungible, Address: address,
		Symbol: "MTK", Decimals: 18, Raw: "500000000000000000000", Formatted: "500.0",
	}, nil
}

func (f *fakeChain) HealthCheck(_ context.Context) (types.ChainStatus, error) {
	if f.healthFn != nil {
		return f.healthFn()
	}
	return types.ChainStatus{Connected: true, ChainID: 61, BlockNumber: 100}, nil
}

func newTestServer(t *testing.T, fake *fakeChain) *Server {
	t.Helper()
	return NewServer(fake, Options{
		ListenAddr: "127.0.0.1:0",
		Version:    "test",
		Keys:       ingress.NewKeySet([]string{testKey}),
		Limiter:    ingress.NewRateLimiter(time.Minute, 1000),
	})
}

func doJSON(h http.Handler, method, path, body string, authed bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		req.Header.Set("Authorization", "Bearer "+testKey)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeMap(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	return m
}

func TestDeployReturnsAsyncEnvelope(t *testing.T) {
	fake := &fakeChain{}
	srv := newTestServer(t, fake)

	body := `{"kind":"Erc20","name":"My Token","symbol":"MTK","initialSupply":"1000000","burnable":true,"pausable":true}`
	rec := doJSON(srv.Handler(), http.MethodPost, "/v1/tokens", body, true)

	require.Equal(t, http.StatusCreated, rec.Code)
	m := decodeMap(t, rec)
	require.Equal(t, "Confirmed", m["status"])
	require.Equal(t, "0xf00d", m["txHash"])
	require.NotEmpty(t, m["requestId"])

	data := m["data"].(map[string]any)
	require.Equal(t, "1", data["tokenId"])
	require.NotEmpty(t, data["tokenAddress"])
	require.Equal(t, "Erc20", data["kind"])
}

func TestDeployValidationShortCircuits(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"missing symbol and supply", `{"kind":"Erc20","name":"X"}`},
		{"bad kind", `{"kind":"Erc1155","name":"X","symbol":"XX","initialSupply":"1"}`},
		{"non-numeric supply", `{"kind":"Erc20","name":"X","symbol":"XX","initialSupply":"1,000"}`},
		{"negative supply", `{"kind":"Erc20","name":"X","symbol":"XX","initialSupply":"-5"}`},
		{"not json", `{{{`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fake := &fakeChain{}
			srv := newTestServer(t, fake)
			rec := doJSON(srv.Handler(), http.MethodPost, "/v1/tokens", tc.body, true)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			m := decodeMap(t, rec)
			require.Equal(t, "BadRequest", m["name"])
			require.NotEmpty(t, m["requestId"])
			require.Zero(t, fake.calls, "validation failures must not reach the chain layer")
		})
	}
}

func TestMissingAPIKeyIsUnauthorized(t *testing.T) {
	srv := newTestServer(t, &fakeChain{})

	rec := doJSON(srv.Handler(), http.MethodPost, "/v1/tokens", `{"kind":"Erc20"}`, false)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	m := decodeMap(t, rec)
	require.Equal(t, "Unauthorized", m["name"])
	require.NotEmpty(t, m["requestId"])
}

func TestListTokensPagination(t *testing.T) {
	fake := &fakeChain{
		listTokensFn: func(limit, offset uint64) ([]types.Token, uint64, error) {
			items := make([]types.Token, 0, limit)
			total := uint64(10)
			for id := offset + 1; id <= total && uint64(len(items)) < limit; id++ {
				items = append(items, sampleToken(id))
			}
			return items, total, nil
		},
	}
	srv := newTestServer(t, fake)

	rec := doJSON(srv.Handler(), http.MethodGet, "/v1/tokens?limit=3&offset=0", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	m := decodeMap(t, rec)
	page := m["pagination"].(map[string]any)
	require.Equal(t, float64(10), page["total"])
	require.Equal(t, true, page["hasMore"])
	require.Len(t, m["data"], 3)

	rec = doJSON(srv.Handler(), http.MethodGet, "/v1/tokens?limit=3&offset=8", "", true)
	m = decodeMap(t, rec)
	page = m["pagination"].(map[string]any)
	require.Equal(t, false, page["hasMore"])
	require.Len(t, m["data"], 2)
}

func TestListTokensRejectsBadWindow(t *testing.T) {
	srv := newTestServer(t, &fakeChain{})

	for _, q := range []string{"limit=0", "limit=501", "limit=abc", "offset=-1", "offset=x"} {
		rec := doJSON(srv.Handler(), http.MethodGet, "/v1/tokens?"+q, "", true)
		require.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestListTokensByOwnerIsSinglePage(t *testing.T) {
	srv := newTestServer(t, &fakeChain{})

	rec := doJSON(srv.Handler(), http.MethodGet, "/v1/tokens?owner=0x2222222222222222222222222222222222222222", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	m := decodeMap(t, rec)
	page := m["pagination"].(map[string]any)
	require.Equal(t, float64(2), page["total"])
	require.Equal(t, false, page["hasMore"])
	require.Len(t, m["data"], 2)
}

func TestGetTokenNotFound(t *testing.T) {
	fake := &fakeChain{
		tokenInfoFn: func(tokenID uint64) (types.Token, error) {
			return types.Token{}, apierr.NotFound("token %d does not exist", tokenID)
		},
	}
	srv := newTestServer(t, fake)

	rec := doJSON(srv.Handler(), http.MethodGet, "/v1/tokens/99", "", true)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "NotFound", decodeMap(t, rec)["name"])
}

func TestGetTokenRejectsNonNumericID(t *testing.T) {
	srv := newTestServer(t, &fakeChain{})

	rec := doJSON(srv.Handler(), http.MethodGet, "/v1/tokens/abc", "", true)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMintValidation(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"missing to", `{"amount":"5"}`},
		{"zero address", `{"to":"0x0000000000000000000000000000000000000000","amount":"5"}`},
		{"bad address", `{"to":"nope","amount":"5"}`},
		{"bad amount", `{"to":"0x70997970C51812dc3A010C7d01b50e0d17dc79C8","amount":"5e3"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fake := &fakeChain{}
			srv := newTestServer(t, fake)
			rec := doJSON(srv.Handler(), http.MethodPost, "/v1/tokens/1/mint", tc.body, true)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			require.Zero(t, fake.calls)
		})
	}
}

func TestMintReturnsAsyncEnvelope(t *testing.T) {
	srv := newTestServer(t, &fakeChain{})

	body := `{"to":"0x70997970C51812dc3A010C7d01b50e0d17dc79C8","amount":"500"}`
	rec := doJSON(srv.Handler(), http.MethodPost, "/v1/tokens/1/mint", body, true)

	require.Equal(t, http.StatusCreated, rec.Code)
	m := decodeMap(t, rec)
	require.Equal(t, "mint-1-3", m["id"])
	require.Equal(t, "Confirmed", m["status"])
	data := m["data"].(map[string]any)
	require.Equal(t, "500", data["amount"])
}

func TestTimeoutCarriesTxHash(t *testing.T) {
	fake := &fakeChain{
		mintFn: func(tokenID uint64, p chain.MintParams) (chain.OpResult, error) {
			op := confirmedOp(types.OpMint, "mint-1-3")
			op.Status = types.OperationSubmitted
			return chain.OpResult{Operation: op}, apierr.UpstreamTimeout("0xdeadbeef")
		},
	}
	srv := newTestServer(t, fake)

	body := `{"to":"0x70997970C51812dc3A010C7d01b50e0d17dc79C8","amount":"1"}`
	rec := doJSON(srv.Handler(), http.MethodPost, "/v1/tokens/1/mint", body, true)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	m := decodeMap(t, rec)
	require.Equal(t, "UpstreamTimeout", m["name"])
	require.Equal(t, "0xdeadbeef", m["txHash"])
}

func TestBurnRequiresAmountOrUnit(t *testing.T) {
	fake := &fakeChain{}
	srv := newTestServer(t, fake)

	rec := doJSON(srv.Handler(), http.MethodPost, "/v1/tokens/1/burn", `{}`, true)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Zero(t, fake.calls)
}

func TestPauseConflictPassesThrough(t *testing.T) {
	fake := &fakeChain{
		pauseFn: func(tokenID uint64) (chain.OpResult, error) {
			return chain.OpResult{}, apierr.Conflict("token %d is not pausable", tokenID)
		},
	}
	srv := newTestServer(t, fake)

	rec := doJSON(srv.Handler(), http.MethodPost, "/v1/tokens/1/pause", "", true)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "Conflict", decodeMap(t, rec)["name"])
}

func TestUpdateMetadata(t *testing.T) {
	srv := newTestServer(t, &fakeChain{})

	rec := doJSON(srv.Handler(), http.MethodPatch, "/v1/tokens/1", `{"metadataURI":"ipfs://new"}`, true)
	require.Equal(t, http.StatusCreated, rec.Code)
	m := decodeMap(t, rec)
	require.Equal(t, "ipfs://new", m["data"].(map[string]any)["metadataURI"])

	rec = doJSON(srv.Handler(), http.MethodPatch, "/v1/tokens/1", `{}`, true)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBalanceResource(t *testing.T) {
	srv := newTestServer(t, &fakeChain{})

	rec := doJSON(srv.Handler(), http.MethodGet, "/v1/tokens/1/balance/0x70997970C51812dc3A010C7d01b50e0d17dc79C8", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeMap(t, rec)["data"].(map[string]any)
	require.Equal(t, "500.0", data["formatted"])
	require.Equal(t, float64(18), data["decimals"])
}

func TestEstimateFeeEndpoints(t *testing.T) {
	srv := newTestServer(t, &fakeChain{})

	body := `{"kind":"Erc20","name":"X","symbol":"XX","initialSupply":"100"}`
	rec := doJSON(srv.Handler(), http.MethodPost, "/v1/tokens/estimate-fee", body, true)
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeMap(t, rec)["data"].(map[string]any)
	require.Equal(t, "120000", data["gasLimit"])

	rec = doJSON(srv.Handler(), http.MethodPost, "/v1/tokens/1/estimate-fee", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestUnknownRouteIs404(t *testing.T) {
	srv := newTestServer(t, &fakeChain{})

	rec := doJSON(srv.Handler(), http.MethodGet, "/v1/nothing-here", "", true)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "NotFound", decodeMap(t, rec)["name"])
}

func TestHealthBypassesAuthAndBudget(t *testing.T) {
	fake := &fakeChain{}
	srv := NewServer(fake, Options{
		ListenAddr: "127.0.0.1:0",
		Version:    "1.2.3",
		Keys:       ingress.NewKeySet([]string{testKey}),
		Limiter:    ingress.NewRateLimiter(time.Minute, 1),
	})

	// Health probes: no auth header, repeated calls.
	for i := 0; i < 5; i++ {
		rec := doJSON(srv.Handler(), http.MethodGet, "/v1/health", "", false)
		require.Equal(t, http.StatusOK, rec.Code)
		m := decodeMap(t, rec)
		require.Equal(t, "healthy", m["status"])
		require.Equal(t, "1.2.3", m["version"])
	}

	// The single budgeted request still goes through afterwards.
	rec := doJSON(srv.Handler(), http.MethodGet, "/v1/tokens/1", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthReportsUnhealthy(t *testing.T) {
	fake := &fakeChain{
		healthFn: func() (types.ChainStatus, error) {
			return types.ChainStatus{}, apierr.UpstreamUnavailable(context.DeadlineExceeded)
		},
	}
	srv := newTestServer(t, fake)

	rec := doJSON(srv.Handler(), http.MethodGet, "/v1/health", "", false)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	m := decodeMap(t, rec)
	require.Equal(t, "unhealthy", m["status"])
	require.NotEmpty(t, m["error"])
}
