package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/etcmint/mintgate/pkg/types"
)

// Client is a typed HTTP client for the gateway API, for CLI and
// integration-test usage.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient substitutes the underlying HTTP client.
func WithHTTPClient(httpc *http.Client) Option {
	return func(c *Client) { c.httpc = httpc }
}

// New builds a client for the gateway at baseURL, authenticating every
// request with apiKey.
func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpc:   &http.Client{Timeout: 150 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is a non-2xx response decoded from the error envelope.
type APIError struct {
	StatusCode int
	Name       string
	Message    string
	RequestID  string
	TxHash     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Name, e.StatusCode, e.Message)
}

// AsyncOperation is the decoded async-operation envelope.
type AsyncOperation struct {
	ID        string         `json:"id"`
	Status    string         `json:"status"`
	TxHash    string         `json:"txHash"`
	Data      map[string]any `json:"data"`
	RequestID string         `json:"requestId"`
}

// Page is one window of a paginated token listing.
type Page struct {
	Data       []types.Token `json:"data"`
	Pagination struct {
		Total   uint64 `json:"total"`
		Limit   uint64 `json:"limit"`
		Offset  uint64 `json:"offset"`
		HasMore bool   `json:"hasMore"`
	} `json:"pagination"`
}

// Health is the readiness probe response.
type Health struct {
	Status     string             `json:"status"`
	Version    string             `json:"version"`
	Uptime     int64              `json:"uptime"`
	Blockchain *types.ChainStatus `json:"blockchain"`
	Error      string             `json:"error"`
}

// CreateTokenRequest describes a deployment. Kind selects the standard;
// the fungible-only and non-fungible-only fields are ignored for the
// other kind.
type CreateTokenRequest struct {
	Kind          types.TokenKind `json:"kind"`
	Name          string          `json:"name"`
	Symbol        string          `json:"symbol"`
	InitialSupply string          `json:"initialSupply,omitempty"`
	Decimals      *uint8          `json:"decimals,omitempty"`
	MetadataURI   string          `json:"metadataURI,omitempty"`
	BaseURI       string          `json:"baseURI,omitempty"`
	Burnable      bool            `json:"burnable"`
	Pausable      bool            `json:"pausable"`
	ListOnDex     bool            `json:"listOnDex"`
	ExternalID    string          `json:"externalId,omitempty"`
}

// MintRequest mints supply (fungible, Amount) or a unit (non-fungible,
// URI) to a recipient.
type MintRequest struct {
	To         string `json:"to"`
	Amount     string `json:"amount,omitempty"`
	URI        string `json:"uri,omitempty"`
	ExternalID string `json:"externalId,omitempty"`
}

// BurnRequest burns supply (Amount) or a unit (UnitID).
type BurnRequest struct {
	Amount     string `json:"amount,omitempty"`
	UnitID     string `json:"unitId,omitempty"`
	ExternalID string `json:"externalId,omitempty"`
}

// TransferRequest moves supply or a unit to a recipient.
type TransferRequest struct {
	From       string `json:"from,omitempty"`
	To         string `json:"to"`
	Amount     string `json:"amount,omitempty"`
	UnitID     string `json:"unitId,omitempty"`
	ExternalID string `json:"externalId,omitempty"`
}

// CreateToken deploys a new token.
func (c *Client) CreateToken(ctx context.Context, req CreateTokenRequest) (*AsyncOperation, error) {
	var op AsyncOperation
	if err := c.do(ctx, http.MethodPost, "/v1/tokens", req, &op); err != nil {
		return nil, err
	}
	return &op, nil
}

// Token fetches one token's details.
func (c *Client) Token(ctx context.Context, tokenID uint64) (*types.Token, error) {
	var env struct {
		Data types.Token `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/v1/tokens/%d", tokenID), nil, &env); err != nil {
		return nil, err
	}
	return &env.Data, nil
}

// ListTokens fetches one page of the token registry.
func (c *Client) ListTokens(ctx context.Context, limit, offset uint64) (*Page, error) {
	q := url.Values{}
	q.Set("limit", strconv.FormatUint(limit, 10))
	q.Set("offset", strconv.FormatUint(offset, 10))
	var page Page
	if err := c.do(ctx, http.MethodGet, "/v1/tokens?"+q.Encode(), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// TokensByOwner fetches every token owned by an address.
func (c *Client) TokensByOwner(ctx context.Context, owner string) (*Page, error) {
	var page Page
	if err := c.do(ctx, http.MethodGet, "/v1/tokens?owner="+url.QueryEscape(owner), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Balance fetches the balance of an address for one token.
func (c *Client) Balance(ctx context.Context, tokenID uint64, address string) (*types.Balance, error) {
	var env struct {
		Data types.Balance `json:"data"`
	}
	path := fmt.Sprintf("/v1/tokens/%d/balance/%s", tokenID, url.PathEscape(address))
	if err := c.do(ctx, http.MethodGet, path, nil, &env); err != nil {
		return nil, err
	}
	return &env.Data, nil
}

// EstimateDeployFee quotes the cost of a deployment described by req.
func (c *Client) EstimateDeployFee(ctx context.Context, req CreateTokenRequest) (*types.FeeQuote, error) {
	var env struct {
		Data types.FeeQuote `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/tokens/estimate-fee", req, &env); err != nil {
		return nil, err
	}
	return &env.Data, nil
}

// Mint mints to a recipient.
func (c *Client) Mint(ctx context.Context, tokenID uint64, req MintRequest) (*AsyncOperation, error) {
	return c.asyncPost(ctx, fmt.Sprintf("/v1/tokens/%d/mint", tokenID), req)
}

// Burn destroys supply or a unit.
func (c *Client) Burn(ctx context.Context, tokenID uint64, req BurnRequest) (*AsyncOperation, error) {
	return c.asyncPost(ctx, fmt.Sprintf("/v1/tokens/%d/burn", tokenID), req)
}

// Transfer moves supply or a unit.
func (c *Client) Transfer(ctx context.Context, tokenID uint64, req TransferRequest) (*AsyncOperation, error) {
	return c.asyncPost(ctx, fmt.Sprintf("/v1/tokens/%d/transfer", tokenID), req)
}

// Pause suspends transfers on a pausable fungible token.
func (c *Client) Pause(ctx context.Context, tokenID uint64) (*AsyncOperation, error) {
	return c.asyncPost(ctx, fmt.Sprintf("/v1/tokens/%d/pause", tokenID), nil)
}

// Unpause resumes transfers.
func (c *Client) Unpause(ctx context.Context, tokenID uint64) (*AsyncOperation, error) {
	return c.asyncPost(ctx, fmt.Sprintf("/v1/tokens/%d/unpause", tokenID), nil)
}

// ListOnDex performs the post-deployment DEX listing step.
func (c *Client) ListOnDex(ctx context.Context, tokenID uint64) (*AsyncOperation, error) {
	return c.asyncPost(ctx, fmt.Sprintf("/v1/tokens/%d/list-on-dex", tokenID), nil)
}

// UpdateMetadata points a token's metadata URI somewhere new.
func (c *Client) UpdateMetadata(ctx context.Context, tokenID uint64, metadataURI string) (*AsyncOperation, error) {
	body := map[string]string{"metadataURI": metadataURI}
	var op AsyncOperation
	if err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/v1/tokens/%d", tokenID), body, &op); err != nil {
		return nil, err
	}
	return &op, nil
}

// Healthz probes readiness. A 503 is returned as (health, nil) with
// Status "unhealthy" rather than as an error.
func (c *Client) Healthz(ctx context.Context) (*Health, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/health", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var h Health
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return nil, fmt.Errorf("decoding health response: %w", err)
	}
	return &h, nil
}

func (c *Client) asyncPost(ctx context.Context, path string, body any) (*AsyncOperation, error) {
	var op AsyncOperation
	if err := c.do(ctx, http.MethodPost, path, body, &op); err != nil {
		return nil, err
	}
	return &op, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		rd = bytes.NewReader(raw)
	} else {
		rd = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var envelope struct {
			Error     string `json:"error"`
			Name      string `json:"name"`
			RequestID string `json:"requestId"`
			TxHash    string `json:"txHash"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
			return fmt.Errorf("server returned %d with undecodable body", resp.StatusCode)
		}
		return &APIError{
			StatusCode: resp.StatusCode,
			Name:       envelope.Name,
			Message:    envelope.Error,
			RequestID:  envelope.RequestID,
			TxHash:     envelope.TxHash,
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response body: %w", err)
	}
	return nil
}
