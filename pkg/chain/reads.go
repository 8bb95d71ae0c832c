package chain

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"

	"github.com/etcmint/mintgate/pkg/apierr"
	"github.com/etcmint/mintgate/pkg/types"
)

// Read operations never take the submission lease and may run in parallel
// with each other and with in-flight transactions.

const (
	// ListTokens clamps limit into [1, maxListLimit].
	maxListLimit = 500
)

// TokenInfo reads one token's registry entry from the factory.
func (g *Gateway) TokenInfo(ctx context.Context, tokenID uint64) (types.Token, error) {
	factory, err := g.factoryContract(ctx)
	if err != nil {
		return types.Token{}, err
	}

	total, err := g.tokenCount(ctx, factory)
	if err != nil {
		return types.Token{}, err
	}
	if tokenID == 0 || tokenID > total {
		return types.Token{}, apierr.NotFound("token %d not found", tokenID)
	}

	return g.readTokenInfo(ctx, factory, tokenID)
}

// ListTokens pages through the factory registry. IDs are factory-assigned
// and 1-based, so page N covers ids offset+1 .. min(offset+limit, total).
func (g *Gateway) ListTokens(ctx context.Context, limit, offset uint64) ([]types.Token, uint64, error) {
	if limit < 1 {
		limit = 1
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	factory, err := g.factoryContract(ctx)
	if err != nil {
		return nil, 0, err
	}
	total, err := g.tokenCount(ctx, factory)
	if err != nil {
		return nil, 0, err
	}

	tokens := make([]types.Token, 0, limit)
	for id := offset + 1; id <= total && id <= offset+limit; id++ {
		token, err := g.readTokenInfo(ctx, factory, id)
		if err != nil {
			return nil, 0, err
		}
		tokens = append(tokens, token)
	}
	return tokens, total, nil
}

// OwnerTokens returns every token owned by the address, in factory return
// order, unpaginated.
func (g *Gateway) OwnerTokens(ctx context.Context, owner string) ([]types.Token, error) {
	if !common.IsHexAddress(owner) {
		return nil, apierr.BadRequest("owner %q is not a hex address", owner)
	}

	factory, err := g.factoryContract(ctx)
	if err != nil {
		return nil, err
	}

	var out []any
	if err := factory.Call(g.callOpts(ctx), &out, "getOwnerTokens", common.HexToAddress(owner)); err != nil {
		return nil, apierr.UpstreamUnavailable(err)
	}
	ids, ok := out[0].([]*big.Int)
	if !ok {
		return nil, apierr.Internal(fmt.Errorf("getOwnerTokens returned %T", out[0]))
	}

	tokens := make([]types.Token, 0, len(ids))
	for _, id := range ids {
		token, err := g.readTokenInfo(ctx, factory, id.Uint64())
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}
	return tokens, nil
}

// Balance reads a fresh per-(token, address) snapshot; never cached.
func (g *Gateway) Balance(ctx context.Context, tokenID uint64, address string) (types.Balance, error) {
	if !common.IsHexAddress(address) {
		return types.Balance{}, apierr.BadRequest("address %q is not a hex address", address)
	}

	info, err := g.TokenInfo(ctx, tokenID)
	if err != nil {
		return types.Balance{}, err
	}

	holder := common.HexToAddress(address)
	balance := types.Balance{
		TokenID: tokenID,
		Kind:    info.Kind,
		Address: holder.Hex(),
		Symbol:  info.Symbol,
	}

	switch info.Kind {
	case types.TokenKindFungible:
		token, err := g.bindFungible(ctx, info.Address)
		if err != nil {
			return types.Balance{}, err
		}
		decimals, err := g.fungibleDecimals(ctx, info.Address)
		if err != nil {
			return types.Balance{}, err
		}
		var out []any
		if err := token.Call(g.callOpts(ctx), &out, "balanceOf", holder); err != nil {
			return types.Balance{}, apierr.UpstreamUnavailable(err)
		}
		raw, ok := out[0].(*big.Int)
		if !ok {
			return types.Balance{}, apierr.Internal(fmt.Errorf("balanceOf returned %T", out[0]))
		}
		balance.Decimals = decimals
		balance.Raw = raw.String()
		balance.Formatted = formatAmount(raw, decimals)

	case types.TokenKindNonFungible:
		token, err := g.bindNonFungible(ctx, info.Address)
		if err != nil {
			return types.Balance{}, err
		}
		var out []any
		if err := token.Call(g.callOpts(ctx), &out, "balanceOf", holder); err != nil {
			return types.Balance{}, apierr.UpstreamUnavailable(err)
		}
		count, ok := out[0].(*big.Int)
		if !ok {
			return types.Balance{}, apierr.Internal(fmt.Errorf("balanceOf returned %T", out[0]))
		}
		balance.Raw = count.String()
	}

	return balance, nil
}

// HealthCheck confirms the RPC node answers and reports the gateway's
// chain identity. Any RPC failure fails the whole check.
func (g *Gateway) HealthCheck(ctx context.Context) (types.ChainStatus, error) {
	client, err := g.ethClient(ctx)
	if err != nil {
		return types.ChainStatus{}, err
	}

	block, err := client.BlockNumber(ctx)
	if err != nil {
		return types.ChainStatus{}, apierr.UpstreamUnavailable(err)
	}
	chainID, err := client.ChainID(ctx)
	if err != nil {
		return types.ChainStatus{}, apierr.UpstreamUnavailable(err)
	}

	return types.ChainStatus{
		Connected:      true,
		ChainID:        chainID.Uint64(),
		BlockNumber:    block,
		SignerAddress:  g.signer.Hex(),
		FactoryAddress: g.factoryAddr.Hex(),
	}, nil
}

func (g *Gateway) callOpts(ctx context.Context) *bind.CallOpts {
	return &bind.CallOpts{Context: ctx}
}

func (g *Gateway) tokenCount(ctx context.Context, factory *bind.BoundContract) (uint64, error) {
	var out []any
	if err := factory.Call(g.callOpts(ctx), &out, "tokenCount"); err != nil {
		return 0, apierr.UpstreamUnavailable(err)
	}
	count, ok := out[0].(*big.Int)
	if !ok {
		return 0, apierr.Internal(fmt.Errorf("tokenCount returned %T", out[0]))
	}
	return count.Uint64(), nil
}

// readTokenInfo decodes the factory's getTokenInfo tuple.
func (g *Gateway) readTokenInfo(ctx context.Context, factory *bind.BoundContract, tokenID uint64) (types.Token, error) {
	var out []any
	if err := factory.Call(g.callOpts(ctx), &out, "getTokenInfo", new(big.Int).SetUint64(tokenID)); err != nil {
		return types.Token{}, apierr.UpstreamUnavailable(err)
	}
	if len(out) != 11 {
		return types.Token{}, apierr.Internal(fmt.Errorf("getTokenInfo returned %d fields, want 11", len(out)))
	}

	token := types.Token{ID: tokenID}
	kindTag, _ := out[1].(uint8)
	if kindTag == 1 {
		token.Kind = types.TokenKindNonFungible
	} else {
		token.Kind = types.TokenKindFungible
	}
	if addr, ok := out[2].(common.Address); ok {
		token.Address = addr.Hex()
	}
	if owner, ok := out[3].(common.Address); ok {
		token.Owner = owner.Hex()
	}
	token.Name, _ = out[4].(string)
	token.Symbol, _ = out[5].(string)
	token.MetadataURI, _ = out[6].(string)
	if createdAt, ok := out[7].(*big.Int); ok {
		token.CreatedAt = time.Unix(createdAt.Int64(), 0).UTC()
	}
	token.Burnable, _ = out[8].(bool)
	token.Pausable, _ = out[9].(bool)
	token.ListedOnDex, _ = out[10].(bool)
	return token, nil
}

// fungibleDecimals reads the child token's declared precision.
func (g *Gateway) fungibleDecimals(ctx context.Context, address string) (uint8, error) {
	token, err := g.bindFungible(ctx, address)
	if err != nil {
		return 0, err
	}
	var out []any
	if err := token.Call(g.callOpts(ctx), &out, "decimals"); err != nil {
		return 0, apierr.UpstreamUnavailable(err)
	}
	decimals, ok := out[0].(uint8)
	if !ok {
		return 0, apierr.Internal(fmt.Errorf("decimals returned %T", out[0]))
	}
	return decimals, nil
}
