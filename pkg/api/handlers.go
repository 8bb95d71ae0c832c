package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"

	"github.com/etcmint/mintgate/pkg/apierr"
	"github.com/etcmint/mintgate/pkg/chain"
	"github.com/etcmint/mintgate/pkg/types"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// decodeBody parses a JSON request body. An empty body is an error unless
// optional is set, in which case dst is left zero.
func decodeBody(r *http.Request, dst any, optional bool) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return nil
	}
	if optional && errors.Is(err, io.EOF) {
		return nil
	}
	return apierr.BadRequest("invalid JSON body: %v", err)
}

// pathTokenID extracts the {id} route variable. Non-numeric ids are a
// validation failure, not a missing resource.
func pathTokenID(r *http.Request) (uint64, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, apierr.BadRequest("token id %q is not a positive integer", raw)
	}
	return id, nil
}

// validAddress rejects malformed and zero addresses before any chain call.
func validAddress(field, addr string) error {
	if addr == "" {
		return apierr.BadRequest("%s is required", field)
	}
	if !common.IsHexAddress(addr) {
		return apierr.BadRequest("%s %q is not a hex address", field, addr)
	}
	if common.HexToAddress(addr) == (common.Address{}) {
		return apierr.BadRequest("%s must not be the zero address", field)
	}
	return nil
}

// validAmount performs the syntactic check on a decimal amount string so
// bad input never reaches the chain layer. Scale is checked there, where
// the token's decimals are known.
func validAmount(field, s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return apierr.BadRequest("%s is required", field)
	}
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" || !isDigits(whole) || (frac != "" && !isDigits(frac)) {
		return apierr.BadRequest("%s %q is not a non-negative decimal number", field, s)
	}
	return nil
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return s != ""
}

type createTokenRequest struct {
	Kind          string `json:"kind"`
	Name          string `json:"name"`
	Symbol        string `json:"symbol"`
	InitialSupply string `json:"initialSupply"`
	Decimals      *uint8 `json:"decimals"`
	MetadataURI   string `json:"metadataURI"`
	BaseURI       string `json:"baseURI"`
	Burnable      bool   `json:"burnable"`
	Pausable      bool   `json:"pausable"`
	ListOnDex     bool   `json:"listOnDex"`
	ExternalID    string `json:"externalId"`
}

func (req *createTokenRequest) validate() error {
	kind := types.TokenKind(req.Kind)
	if !kind.Valid() {
		return apierr.BadRequest("kind must be %q or %q", types.TokenKindFungible, types.TokenKindNonFungible)
	}
	if strings.TrimSpace(req.Name) == "" {
		return apierr.BadRequest("name is required")
	}
	if strings.TrimSpace(req.Symbol) == "" {
		return apierr.BadRequest("symbol is required")
	}
	if kind == types.TokenKindFungible {
		if err := validAmount("initialSupply", req.InitialSupply); err != nil {
			return err
		}
	}
	return nil
}

func (req *createTokenRequest) decimals() uint8 {
	if req.Decimals != nil {
		return *req.Decimals
	}
	return 18
}

func (s *Server) createToken(w http.ResponseWriter, r *http.Request) error {
	var req createTokenRequest
	if err := decodeBody(r, &req, false); err != nil {
		return err
	}
	if err := req.validate(); err != nil {
		return err
	}

	var res chain.DeployResult
	var err error
	switch types.TokenKind(req.Kind) {
	case types.TokenKindFungible:
		res, err = s.chain.CreateFungible(r.Context(), chain.CreateFungibleParams{
			Name:          req.Name,
			Symbol:        req.Symbol,
			InitialSupply: req.InitialSupply,
			Decimals:      req.decimals(),
			MetadataURI:   req.MetadataURI,
			Burnable:      req.Burnable,
			Pausable:      req.Pausable,
			ListOnDex:     req.ListOnDex,
			ExternalID:    req.ExternalID,
		})
	case types.TokenKindNonFungible:
		res, err = s.chain.CreateNonFungible(r.Context(), chain.CreateNonFungibleParams{
			Name:       req.Name,
			Symbol:     req.Symbol,
			BaseURI:    req.BaseURI,
			Burnable:   req.Burnable,
			ExternalID: req.ExternalID,
		})
	}
	if err != nil {
		return err
	}

	data := map[string]any{
		"name":   req.Name,
		"symbol": req.Symbol,
		"kind":   req.Kind,
	}
	// A mined deploy whose identity could not be decoded reports null
	// identity fields alongside the Failed status.
	if res.TokenID != nil {
		data["tokenId"] = strconv.FormatUint(*res.TokenID, 10)
		data["tokenAddress"] = res.TokenAddress
	} else {
		data["tokenId"] = nil
		data["tokenAddress"] = nil
	}
	if res.Operation.BlockNumber != 0 {
		data["blockNumber"] = res.Operation.BlockNumber
	}
	writeAsyncOp(w, r, res.Operation, data)
	return nil
}

func (s *Server) listTokens(w http.ResponseWriter, r *http.Request) error {
	q := r.URL.Query()

	if owner := q.Get("owner"); owner != "" {
		if !common.IsHexAddress(owner) {
			return apierr.BadRequest("owner %q is not a hex address", owner)
		}
		items, err := s.chain.OwnerTokens(r.Context(), owner)
		if err != nil {
			return err
		}
		// Owner filtering is a single non-paginated page.
		writePage(w, r, items, uint64(len(items)), uint64(len(items)), 0)
		return nil
	}

	limit := uint64(defaultListLimit)
	offset := uint64(0)
	var err error
	if raw := q.Get("limit"); raw != "" {
		if limit, err = strconv.ParseUint(raw, 10, 64); err != nil || limit < 1 || limit > maxListLimit {
			return apierr.BadRequest("limit must be an integer in [1, %d]", maxListLimit)
		}
	}
	if raw := q.Get("offset"); raw != "" {
		if offset, err = strconv.ParseUint(raw, 10, 64); err != nil {
			return apierr.BadRequest("offset must be a non-negative integer")
		}
	}

	items, total, err := s.chain.ListTokens(r.Context(), limit, offset)
	if err != nil {
		return err
	}
	writePage(w, r, items, total, limit, offset)
	return nil
}

func (s *Server) getToken(w http.ResponseWriter, r *http.Request) error {
	id, err := pathTokenID(r)
	if err != nil {
		return err
	}
	token, err := s.chain.TokenInfo(r.Context(), id)
	if err != nil {
		return err
	}
	writeResource(w, r, http.StatusOK, token)
	return nil
}

type updateMetadataRequest struct {
	MetadataURI string `json:"metadataURI"`
	ExternalID  string `json:"externalId"`
}

func (s *Server) updateMetadata(w http.ResponseWriter, r *http.Request) error {
	id, err := pathTokenID(r)
	if err != nil {
		return err
	}
	var req updateMetadataRequest
	if err := decodeBody(r, &req, false); err != nil {
		return err
	}
	if strings.TrimSpace(req.MetadataURI) == "" {
		return apierr.BadRequest("metadataURI is required")
	}

	res, err := s.chain.UpdateMetadata(r.Context(), id, req.MetadataURI, req.ExternalID)
	if err != nil {
		return err
	}
	writeAsyncOp(w, r, res.Operation, map[string]any{"metadataURI": req.MetadataURI})
	return nil
}

func (s *Server) getBalance(w http.ResponseWriter, r *http.Request) error {
	id, err := pathTokenID(r)
	if err != nil {
		return err
	}
	addr := mux.Vars(r)["address"]
	if !common.IsHexAddress(addr) {
		return apierr.BadRequest("address %q is not a hex address", addr)
	}

	balance, err := s.chain.Balance(r.Context(), id, addr)
	if err != nil {
		return err
	}
	writeResource(w, r, http.StatusOK, balance)
	return nil
}

func (s *Server) estimateDeployFee(w http.ResponseWriter, r *http.Request) error {
	var req createTokenRequest
	if err := decodeBody(r, &req, false); err != nil {
		return err
	}
	if err := req.validate(); err != nil {
		return err
	}

	quote, err := s.chain.EstimateDeployFee(r.Context(), chain.FeeParams{
		Kind:          types.TokenKind(req.Kind),
		Name:          req.Name,
		Symbol:        req.Symbol,
		InitialSupply: req.InitialSupply,
		Decimals:      req.decimals(),
		MetadataURI:   req.MetadataURI,
		BaseURI:       req.BaseURI,
		Burnable:      req.Burnable,
		Pausable:      req.Pausable,
		ListOnDex:     req.ListOnDex,
	})
	if err != nil {
		return err
	}
	writeResource(w, r, http.StatusOK, quote)
	return nil
}

// estimateTokenFee quotes the cost of a hypothetical re-deploy of an
// existing token, using its current on-chain parameters.
func (s *Server) estimateTokenFee(w http.ResponseWriter, r *http.Request) error {
	id, err := pathTokenID(r)
	if err != nil {
		return err
	}
	token, err := s.chain.TokenInfo(r.Context(), id)
	if err != nil {
		return err
	}

	p := chain.FeeParams{
		Kind:     token.Kind,
		Name:     token.Name,
		Symbol:   token.Symbol,
		Burnable: token.Burnable,
	}
	if token.Kind == types.TokenKindFungible {
		p.InitialSupply = "0"
		p.Decimals = 18
		p.MetadataURI = token.MetadataURI
		p.Pausable = token.Pausable
		p.ListOnDex = token.ListedOnDex
	} else {
		p.BaseURI = token.MetadataURI
	}

	quote, err := s.chain.EstimateDeployFee(r.Context(), p)
	if err != nil {
		return err
	}
	writeResource(w, r, http.StatusOK, quote)
	return nil
}

type mintRequest struct {
	To         string `json:"to"`
	Amount     string `json:"amount"`
	URI        string `json:"uri"`
	ExternalID string `json:"externalId"`
}

func (s *Server) mint(w http.ResponseWriter, r *http.Request) error {
	id, err := pathTokenID(r)
	if err != nil {
		return err
	}
	var req mintRequest
	if err := decodeBody(r, &req, false); err != nil {
		return err
	}
	if err := validAddress("to", req.To); err != nil {
		return err
	}
	if req.Amount != "" {
		if err := validAmount("amount", req.Amount); err != nil {
			return err
		}
	}

	res, err := s.chain.Mint(r.Context(), id, chain.MintParams{
		To:         req.To,
		Amount:     req.Amount,
		URI:        req.URI,
		ExternalID: req.ExternalID,
	})
	if err != nil {
		return err
	}

	data := map[string]any{"to": req.To}
	if req.Amount != "" {
		data["amount"] = req.Amount
	}
	if res.MintedUnit != "" {
		data["unitId"] = res.MintedUnit
	}
	writeAsyncOp(w, r, res.Operation, data)
	return nil
}

type burnRequest struct {
	Amount     string `json:"amount"`
	UnitID     string `json:"unitId"`
	ExternalID string `json:"externalId"`
}

func (s *Server) burn(w http.ResponseWriter, r *http.Request) error {
	id, err := pathTokenID(r)
	if err != nil {
		return err
	}
	var req burnRequest
	if err := decodeBody(r, &req, false); err != nil {
		return err
	}
	if req.Amount == "" && req.UnitID == "" {
		return apierr.BadRequest("either amount or unitId is required")
	}
	if req.Amount != "" {
		if err := validAmount("amount", req.Amount); err != nil {
			return err
		}
	}

	res, err := s.chain.Burn(r.Context(), id, chain.BurnParams{
		Amount:     req.Amount,
		UnitID:     req.UnitID,
		ExternalID: req.ExternalID,
	})
	if err != nil {
		return err
	}

	data := map[string]any{}
	if req.Amount != "" {
		data["amount"] = req.Amount
	}
	if req.UnitID != "" {
		data["unitId"] = req.UnitID
	}
	writeAsyncOp(w, r, res.Operation, data)
	return nil
}

type transferRequest struct {
	From       string `json:"from"`
	To         string `json:"to"`
	Amount     string `json:"amount"`
	UnitID     string `json:"unitId"`
	ExternalID string `json:"externalId"`
}

func (s *Server) transfer(w http.ResponseWriter, r *http.Request) error {
	id, err := pathTokenID(r)
	if err != nil {
		return err
	}
	var req transferRequest
	if err := decodeBody(r, &req, false); err != nil {
		return err
	}
	if err := validAddress("to", req.To); err != nil {
		return err
	}
	if req.Amount == "" && req.UnitID == "" {
		return apierr.BadRequest("either amount or unitId is required")
	}
	if req.Amount != "" {
		if err := validAmount("amount", req.Amount); err != nil {
			return err
		}
	}

	res, err := s.chain.Transfer(r.Context(), id, chain.TransferParams{
		From:       req.From,
		To:         req.To,
		Amount:     req.Amount,
		UnitID:     req.UnitID,
		ExternalID: req.ExternalID,
	})
	if err != nil {
		return err
	}

	data := map[string]any{"to": req.To}
	if req.Amount != "" {
		data["amount"] = req.Amount
	}
	if req.UnitID != "" {
		data["unitId"] = req.UnitID
	}
	writeAsyncOp(w, r, res.Operation, data)
	return nil
}

type externalIDRequest struct {
	ExternalID string `json:"externalId"`
}

func (s *Server) pause(w http.ResponseWriter, r *http.Request) error {
	return s.simpleOp(w, r, s.chain.Pause)
}

func (s *Server) unpause(w http.ResponseWriter, r *http.Request) error {
	return s.simpleOp(w, r, s.chain.Unpause)
}

func (s *Server) listOnDex(w http.ResponseWriter, r *http.Request) error {
	return s.simpleOp(w, r, s.chain.ListOnDex)
}

// simpleOp handles the body-less verbs: pause, unpause, list-on-dex. An
// optional body may still carry an externalId.
func (s *Server) simpleOp(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, tokenID uint64, externalID string) (chain.OpResult, error)) error {
	id, err := pathTokenID(r)
	if err != nil {
		return err
	}
	var req externalIDRequest
	if err := decodeBody(r, &req, true); err != nil {
		return err
	}

	res, err := op(r.Context(), id, req.ExternalID)
	if err != nil {
		return err
	}
	writeAsyncOp(w, r, res.Operation, nil)
	return nil
}
