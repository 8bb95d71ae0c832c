package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/etcmint/mintgate/pkg/apierr"
	"github.com/etcmint/mintgate/pkg/types"
)

// FeeParams describes the deployment whose cost is being quoted.
type FeeParams struct {
	Kind          types.TokenKind
	Name          string
	Symbol        string
	InitialSupply string
	Decimals      uint8
	MetadataURI   string
	BaseURI       string
	Burnable      bool
	Pausable      bool
	ListOnDex     bool
}

// gasMargin is the fixed safety margin applied to gas estimates: +20%,
// integer math.
func gasMargin(estimate uint64) uint64 {
	return estimate * 120 / 100
}

// EstimateDeployFee quotes gas for the appropriate create* call without
// submitting anything. The quote is ephemeral and never persisted.
func (g *Gateway) EstimateDeployFee(ctx context.Context, p FeeParams) (types.FeeQuote, error) {
	client, err := g.ethClient(ctx)
	if err != nil {
		return types.FeeQuote{}, err
	}

	var data []byte
	switch p.Kind {
	case types.TokenKindFungible:
		supply, perr := parseAmount(p.InitialSupply, p.Decimals)
		if perr != nil {
			return types.FeeQuote{}, apierr.BadRequest("initialSupply: %v", perr)
		}
		data, err = factoryABI.Pack("createERC20", p.Name, p.Symbol, supply, p.MetadataURI, p.Burnable, p.Pausable, p.ListOnDex)
	case types.TokenKindNonFungible:
		data, err = factoryABI.Pack("createERC721", p.Name, p.Symbol, p.BaseURI, p.Burnable)
	default:
		return types.FeeQuote{}, apierr.BadRequest("kind %q is not supported", p.Kind)
	}
	if err != nil {
		return types.FeeQuote{}, apierr.Internal(err)
	}

	estimate, err := client.EstimateGas(ctx, ethereum.CallMsg{
		From: g.signer,
		To:   &g.factoryAddr,
		Data: data,
	})
	if err != nil {
		return types.FeeQuote{}, g.classifySubmitError(err)
	}

	gasLimit := gasMargin(estimate)
	gasPrice, err := g.currentGasPrice(ctx, client)
	if err != nil {
		return types.FeeQuote{}, err
	}

	cost := new(big.Int).Mul(gasPrice, new(big.Int).SetUint64(gasLimit))
	return types.FeeQuote{
		GasLimit:              gasLimit,
		GasPrice:              gasPrice.String(),
		GasPriceInDisplayUnit: formatAmount(gasPrice, 9),
		EstimatedCost:         formatAmount(cost, 18),
	}, nil
}

// currentGasPrice fetches the node's suggested legacy gas price. When the
// node reports a priority/legacy fee split instead, fall back to a
// max-fee-per-gas derived from the pending base fee and suggested tip.
func (g *Gateway) currentGasPrice(ctx context.Context, client *ethclient.Client) (*big.Int, error) {
	price, err := client.SuggestGasPrice(ctx)
	if err == nil && price.Sign() > 0 {
		return price, nil
	}

	tip, tipErr := client.SuggestGasTipCap(ctx)
	if tipErr != nil {
		return nil, apierr.UpstreamUnavailable(tipErr)
	}
	head, headErr := client.HeaderByNumber(ctx, nil)
	if headErr != nil {
		return nil, apierr.UpstreamUnavailable(headErr)
	}
	if head.BaseFee == nil {
		if err != nil {
			return nil, apierr.UpstreamUnavailable(err)
		}
		return price, nil
	}

	// maxFeePerGas = 2*baseFee + tip
	maxFee := new(big.Int).Mul(head.BaseFee, big.NewInt(2))
	return maxFee.Add(maxFee, tip), nil
}
