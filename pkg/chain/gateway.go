package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"

	"github.com/etcmint/mintgate/pkg/apierr"
	"github.com/etcmint/mintgate/pkg/events"
	"github.com/etcmint/mintgate/pkg/ledger"
	"github.com/etcmint/mintgate/pkg/log"
	"github.com/etcmint/mintgate/pkg/types"
)

// Gateway is the sole owner of the RPC connection, the operator signing
// identity, and the factory contract binding. All transaction submissions
// are serialised through a single-slot lease scoped to the signer, so two
// concurrent writes can never claim the same nonce; reads run in parallel
// on the shared connection.
type Gateway struct {
	rpcURL         string
	chainID        *big.Int
	key            *ecdsa.PrivateKey
	signer         common.Address
	factoryAddr    common.Address
	receiptTimeout time.Duration

	ledger *ledger.Ledger
	broker *events.Broker
	logger zerolog.Logger

	// lease is the submission lease: nonce acquisition, signing, and
	// broadcast form one critical section. Receipt waiting happens outside
	// the lease so several transactions may be in flight at once.
	lease chan struct{}

	// client and factory are dialed lazily and reused process-wide.
	mu      sync.Mutex
	client  *ethclient.Client
	factory *bind.BoundContract
}

// Config carries the chain-facing subset of gateway configuration.
type Config struct {
	RPCURL         string
	ChainID        uint64
	PrivateKeyHex  string // raw hex, no 0x prefix
	FactoryAddress string
	ReceiptTimeout time.Duration
}

// New parses the operator key and constructs the gateway. The RPC endpoint
// is not contacted here: connectivity problems surface through the health
// probe and individual operations, never at bootstrap.
func New(cfg Config, led *ledger.Ledger, broker *events.Broker) (*Gateway, error) {
	key, err := crypto.HexToECDSA(cfg.PrivateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("parse operator private key: %w", err)
	}
	if !common.IsHexAddress(cfg.FactoryAddress) {
		return nil, fmt.Errorf("factory address %q is not a hex address", cfg.FactoryAddress)
	}

	return &Gateway{
		rpcURL:         cfg.RPCURL,
		chainID:        new(big.Int).SetUint64(cfg.ChainID),
		key:            key,
		signer:         crypto.PubkeyToAddress(key.PublicKey),
		factoryAddr:    common.HexToAddress(cfg.FactoryAddress),
		receiptTimeout: cfg.ReceiptTimeout,
		ledger:         led,
		broker:         broker,
		logger:         log.WithComponent("chain"),
		lease:          make(chan struct{}, 1),
	}, nil
}

// SignerAddress is the operator identity used for every on-chain write.
func (g *Gateway) SignerAddress() string {
	return g.signer.Hex()
}

// FactoryAddress is the bound factory contract address.
func (g *Gateway) FactoryAddress() string {
	return g.factoryAddr.Hex()
}

// ethClient returns the shared RPC connection, dialing it on first use.
func (g *Gateway) ethClient(ctx context.Context) (*ethclient.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.client == nil {
		client, err := ethclient.DialContext(ctx, g.rpcURL)
		if err != nil {
			return nil, apierr.UpstreamUnavailable(err)
		}
		g.client = client
		g.factory = bind.NewBoundContract(g.factoryAddr, factoryABI, client, client, client)
	}
	return g.client, nil
}

func (g *Gateway) factoryContract(ctx context.Context) (*bind.BoundContract, error) {
	if _, err := g.ethClient(ctx); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.factory, nil
}

// DeployResult is the outcome of a create operation. TokenID and
// TokenAddress are nil when the TokenCreated event could not be decoded
// from the receipt, in which case Operation.Status is Failed.
type DeployResult struct {
	Operation    types.Operation
	TokenID      *uint64
	TokenAddress string
}

// OpResult is the outcome of a verb-keyed write operation. MintedUnit is
// set only for non-fungible mints.
type OpResult struct {
	Operation  types.Operation
	MintedUnit string
}

// CreateFungibleParams describes a fungible deployment. InitialSupply is a
// decimal string interpreted in Decimals units.
type CreateFungibleParams struct {
	Name          string
	Symbol        string
	InitialSupply string
	Decimals      uint8
	MetadataURI   string
	Burnable      bool
	Pausable      bool
	ListOnDex     bool
	ExternalID    string
}

// CreateNonFungibleParams describes a non-fungible deployment.
type CreateNonFungibleParams struct {
	Name       string
	Symbol     string
	BaseURI    string
	Burnable   bool
	ExternalID string
}

// CreateFungible deploys a new fungible child token through the factory
// and waits for the receipt.
func (g *Gateway) CreateFungible(ctx context.Context, p CreateFungibleParams) (DeployResult, error) {
	supply, err := parseAmount(p.InitialSupply, p.Decimals)
	if err != nil {
		return DeployResult{}, apierr.BadRequest("initialSupply: %v", err)
	}

	payload := map[string]any{
		"kind": types.TokenKindFungible, "name": p.Name, "symbol": p.Symbol,
		"initialSupply": p.InitialSupply, "burnable": p.Burnable,
		"pausable": p.Pausable, "listOnDex": p.ListOnDex,
	}
	opID := g.ledger.BeginDeploy(payload, p.ExternalID)

	receipt, err := g.transact(ctx, opID, func(opts *bind.TransactOpts, factory *bind.BoundContract) (*gethtypes.Transaction, error) {
		return factory.Transact(opts, "createERC20", p.Name, p.Symbol, supply, p.MetadataURI, p.Burnable, p.Pausable, p.ListOnDex)
	})
	if err != nil {
		op, _ := g.ledger.Get(opID)
		return DeployResult{Operation: op}, err
	}

	return g.deployResult(opID, receipt), nil
}

// CreateNonFungible deploys a new non-fungible child token.
func (g *Gateway) CreateNonFungible(ctx context.Context, p CreateNonFungibleParams) (DeployResult, error) {
	payload := map[string]any{
		"kind": types.TokenKindNonFungible, "name": p.Name, "symbol": p.Symbol,
		"baseURI": p.BaseURI, "burnable": p.Burnable,
	}
	opID := g.ledger.BeginDeploy(payload, p.ExternalID)

	receipt, err := g.transact(ctx, opID, func(opts *bind.TransactOpts, factory *bind.BoundContract) (*gethtypes.Transaction, error) {
		return factory.Transact(opts, "createERC721", p.Name, p.Symbol, p.BaseURI, p.Burnable)
	})
	if err != nil {
		op, _ := g.ledger.Get(opID)
		return DeployResult{Operation: op}, err
	}

	return g.deployResult(opID, receipt), nil
}

// deployResult resolves the factory-assigned identity from the receipt.
// A receipt without a decodable TokenCreated event downgrades the
// operation to Failed with null identity fields.
func (g *Gateway) deployResult(opID string, receipt *gethtypes.Receipt) DeployResult {
	op, _ := g.ledger.Get(opID)
	res := DeployResult{Operation: op}

	ev := decodeTokenCreated(receipt.Logs, g.factoryAddr)
	if ev == nil {
		// Mined receipt but no decodable event: identity is unknowable, so
		// the operation is reported Failed with null id/address fields.
		if op.Status == types.OperationConfirmed {
			_ = g.ledger.MarkFailed(opID)
		}
		op, _ = g.ledger.Get(opID)
		res.Operation = op
		g.logger.Warn().Str("operation_id", opID).Str("tx_hash", op.TxHash).
			Msg("receipt missing TokenCreated event")
		return res
	}

	id := ev.TokenID.Uint64()
	res.TokenID = &id
	res.TokenAddress = ev.TokenAddress.Hex()

	g.broker.Publish(events.EventTokenCreated, "token deployed", map[string]string{
		"token_id":      ev.TokenID.String(),
		"token_address": res.TokenAddress,
		"symbol":        ev.Symbol,
	})
	return res
}

// MintParams describes a mint. Amount applies to fungible tokens, URI to
// non-fungible ones.
type MintParams struct {
	To         string
	Amount     string
	URI        string
	ExternalID string
}

// Mint issues new supply (fungible) or a new unit (non-fungible) to the
// recipient.
func (g *Gateway) Mint(ctx context.Context, tokenID uint64, p MintParams) (OpResult, error) {
	info, err := g.TokenInfo(ctx, tokenID)
	if err != nil {
		return OpResult{}, err
	}

	payload := map[string]any{"to": p.To}
	var call func(*bind.TransactOpts, *bind.BoundContract) (*gethtypes.Transaction, error)

	switch info.Kind {
	case types.TokenKindFungible:
		decimals, derr := g.fungibleDecimals(ctx, info.Address)
		if derr != nil {
			return OpResult{}, derr
		}
		amount, perr := parseAmount(p.Amount, decimals)
		if perr != nil {
			return OpResult{}, apierr.BadRequest("amount: %v", perr)
		}
		payload["amount"] = p.Amount
		to := common.HexToAddress(p.To)
		token, berr := g.bindFungible(ctx, info.Address)
		if berr != nil {
			return OpResult{}, berr
		}
		call = func(opts *bind.TransactOpts, _ *bind.BoundContract) (*gethtypes.Transaction, error) {
			return token.Transact(opts, "mint", to, amount)
		}

	case types.TokenKindNonFungible:
		payload["uri"] = p.URI
		to := common.HexToAddress(p.To)
		token, berr := g.bindNonFungible(ctx, info.Address)
		if berr != nil {
			return OpResult{}, berr
		}
		call = func(opts *bind.TransactOpts, _ *bind.BoundContract) (*gethtypes.Transaction, error) {
			return token.Transact(opts, "mint", to, p.URI)
		}
	}

	opID := g.ledger.Begin(types.OpMint, tokenID, payload, p.ExternalID)
	receipt, err := g.transact(ctx, opID, call)
	op, _ := g.ledger.Get(opID)
	if err != nil {
		return OpResult{Operation: op}, err
	}

	res := OpResult{Operation: op}
	if info.Kind == types.TokenKindNonFungible {
		if unit := decodeMintedUnit(receipt.Logs, common.HexToAddress(info.Address)); unit != nil {
			res.MintedUnit = unit.String()
		}
	}
	return res, nil
}

// BurnParams describes a burn. Amount applies to fungible tokens (burned
// from the operator's own balance), UnitID to non-fungible ones.
type BurnParams struct {
	Amount     string
	UnitID     string
	ExternalID string
}

// Burn destroys supply from the operator balance (fungible) or a specific
// unit (non-fungible).
func (g *Gateway) Burn(ctx context.Context, tokenID uint64, p BurnParams) (OpResult, error) {
	info, err := g.TokenInfo(ctx, tokenID)
	if err != nil {
		return OpResult{}, err
	}
	if !info.Burnable {
		return OpResult{}, apierr.Conflict("token %d is not burnable", tokenID)
	}

	payload := map[string]any{}
	var call func(*bind.TransactOpts, *bind.BoundContract) (*gethtypes.Transaction, error)

	switch info.Kind {
	case types.TokenKindFungible:
		decimals, derr := g.fungibleDecimals(ctx, info.Address)
		if derr != nil {
			return OpResult{}, derr
		}
		amount, perr := parseAmount(p.Amount, decimals)
		if perr != nil {
			return OpResult{}, apierr.BadRequest("amount: %v", perr)
		}
		payload["amount"] = p.Amount
		token, berr := g.bindFungible(ctx, info.Address)
		if berr != nil {
			return OpResult{}, berr
		}
		call = func(opts *bind.TransactOpts, _ *bind.BoundContract) (*gethtypes.Transaction, error) {
			return token.Transact(opts, "burn", amount)
		}

	case types.TokenKindNonFungible:
		unit, ok := new(big.Int).SetString(strings.TrimSpace(p.UnitID), 10)
		if !ok {
			return OpResult{}, apierr.BadRequest("unitId %q is not an integer", p.UnitID)
		}
		payload["unitId"] = p.UnitID
		token, berr := g.bindNonFungible(ctx, info.Address)
		if berr != nil {
			return OpResult{}, berr
		}
		call = func(opts *bind.TransactOpts, _ *bind.BoundContract) (*gethtypes.Transaction, error) {
			return token.Transact(opts, "burn", unit)
		}
	}

	opID := g.ledger.Begin(types.OpBurn, tokenID, payload, p.ExternalID)
	_, err = g.transact(ctx, opID, call)
	op, _ := g.ledger.Get(opID)
	return OpResult{Operation: op}, err
}

// TransferParams describes a transfer. For fungible tokens the signer
// sends from its own balance and From is ignored; for non-fungible tokens
// From defaults to the signer when absent.
type TransferParams struct {
	From       string
	To         string
	Amount     string
	UnitID     string
	ExternalID string
}

// Transfer moves balance or a specific unit to the recipient.
func (g *Gateway) Transfer(ctx context.Context, tokenID uint64, p TransferParams) (OpResult, error) {
	info, err := g.TokenInfo(ctx, tokenID)
	if err != nil {
		return OpResult{}, err
	}

	payload := map[string]any{"to": p.To}
	var call func(*bind.TransactOpts, *bind.BoundContract) (*gethtypes.Transaction, error)
	to := common.HexToAddress(p.To)

	switch info.Kind {
	case types.TokenKindFungible:
		decimals, derr := g.fungibleDecimals(ctx, info.Address)
		if derr != nil {
			return OpResult{}, derr
		}
		amount, perr := parseAmount(p.Amount, decimals)
		if perr != nil {
			return OpResult{}, apierr.BadRequest("amount: %v", perr)
		}
		payload["amount"] = p.Amount
		token, berr := g.bindFungible(ctx, info.Address)
		if berr != nil {
			return OpResult{}, berr
		}
		call = func(opts *bind.TransactOpts, _ *bind.BoundContract) (*gethtypes.Transaction, error) {
			return token.Transact(opts, "transfer", to, amount)
		}

	case types.TokenKindNonFungible:
		unit, ok := new(big.Int).SetString(strings.TrimSpace(p.UnitID), 10)
		if !ok {
			return OpResult{}, apierr.BadRequest("unitId %q is not an integer", p.UnitID)
		}
		from := g.signer
		if p.From != "" {
			if !common.IsHexAddress(p.From) {
				return OpResult{}, apierr.BadRequest("from %q is not a hex address", p.From)
			}
			from = common.HexToAddress(p.From)
		}
		payload["from"] = from.Hex()
		payload["unitId"] = p.UnitID
		token, berr := g.bindNonFungible(ctx, info.Address)
		if berr != nil {
			return OpResult{}, berr
		}
		call = func(opts *bind.TransactOpts, _ *bind.BoundContract) (*gethtypes.Transaction, error) {
			return token.Transact(opts, "transferFrom", from, to, unit)
		}
	}

	opID := g.ledger.Begin(types.OpTransfer, tokenID, payload, p.ExternalID)
	_, err = g.transact(ctx, opID, call)
	op, _ := g.ledger.Get(opID)
	return OpResult{Operation: op}, err
}

// Pause suspends transfers on a pausable fungible token.
func (g *Gateway) Pause(ctx context.Context, tokenID uint64, externalID string) (OpResult, error) {
	return g.pauseState(ctx, tokenID, types.OpPause, "pause", externalID)
}

// Unpause resumes transfers on a paused fungible token.
func (g *Gateway) Unpause(ctx context.Context, tokenID uint64, externalID string) (OpResult, error) {
	return g.pauseState(ctx, tokenID, types.OpUnpause, "unpause", externalID)
}

func (g *Gateway) pauseState(ctx context.Context, tokenID uint64, kind types.OperationKind, method, externalID string) (OpResult, error) {
	info, err := g.TokenInfo(ctx, tokenID)
	if err != nil {
		return OpResult{}, err
	}
	if info.Kind != types.TokenKindFungible {
		return OpResult{}, apierr.Conflict("token %d is not fungible; %s is not supported", tokenID, method)
	}
	if !info.Pausable {
		return OpResult{}, apierr.Conflict("token %d is not pausable", tokenID)
	}

	token, err := g.bindFungible(ctx, info.Address)
	if err != nil {
		return OpResult{}, err
	}
	opID := g.ledger.Begin(kind, tokenID, nil, externalID)
	_, err = g.transact(ctx, opID, func(opts *bind.TransactOpts, _ *bind.BoundContract) (*gethtypes.Transaction, error) {
		return token.Transact(opts, method)
	})
	op, _ := g.ledger.Get(opID)
	return OpResult{Operation: op}, err
}

// UpdateMetadata points the token's metadata URI somewhere new, through
// the factory.
func (g *Gateway) UpdateMetadata(ctx context.Context, tokenID uint64, uri, externalID string) (OpResult, error) {
	if _, err := g.TokenInfo(ctx, tokenID); err != nil {
		return OpResult{}, err
	}

	opID := g.ledger.Begin(types.OpUpdateMetadata, tokenID, map[string]any{"metadataURI": uri}, externalID)
	_, err := g.transact(ctx, opID, func(opts *bind.TransactOpts, factory *bind.BoundContract) (*gethtypes.Transaction, error) {
		return factory.Transact(opts, "updateMetadataURI", new(big.Int).SetUint64(tokenID), uri)
	})
	op, _ := g.ledger.Get(opID)
	if err == nil {
		g.broker.Publish(events.EventMetadataUpdated, "metadata updated", map[string]string{
			"token_id": fmt.Sprintf("%d", tokenID),
		})
	}
	return OpResult{Operation: op}, err
}

// ListOnDex performs the post-deployment ETCSwap listing step for a
// fungible token.
func (g *Gateway) ListOnDex(ctx context.Context, tokenID uint64, externalID string) (OpResult, error) {
	info, err := g.TokenInfo(ctx, tokenID)
	if err != nil {
		return OpResult{}, err
	}
	if info.Kind != types.TokenKindFungible {
		return OpResult{}, apierr.Conflict("token %d is not fungible; DEX listing is not supported", tokenID)
	}
	if info.ListedOnDex {
		return OpResult{}, apierr.Conflict("token %d is already listed", tokenID)
	}

	opID := g.ledger.Begin(types.OpListOnDex, tokenID, nil, externalID)
	_, err = g.transact(ctx, opID, func(opts *bind.TransactOpts, factory *bind.BoundContract) (*gethtypes.Transaction, error) {
		return factory.Transact(opts, "listOnETCSwap", new(big.Int).SetUint64(tokenID))
	})
	op, _ := g.ledger.Get(opID)
	if err == nil {
		g.broker.Publish(events.EventTokenListed, "token listed on DEX", map[string]string{
			"token_id": fmt.Sprintf("%d", tokenID),
		})
	}
	return OpResult{Operation: op}, err
}

// transact runs one write against the chain: lease, nonce, sign,
// broadcast, then receipt wait outside the lease. The ledger entry is
// always driven to a terminal state before return, and once a transaction
// is broadcast its hash is never lost.
func (g *Gateway) transact(ctx context.Context, opID string, call func(*bind.TransactOpts, *bind.BoundContract) (*gethtypes.Transaction, error)) (*gethtypes.Receipt, error) {
	client, err := g.ethClient(ctx)
	if err != nil {
		_ = g.ledger.MarkFailed(opID)
		return nil, err
	}
	factory, err := g.factoryContract(ctx)
	if err != nil {
		_ = g.ledger.MarkFailed(opID)
		return nil, err
	}

	opts, err := bind.NewKeyedTransactorWithChainID(g.key, g.chainID)
	if err != nil {
		_ = g.ledger.MarkFailed(opID)
		return nil, apierr.Internal(err)
	}
	opts.Context = ctx

	// Submission lease: acquire, broadcast, release. FIFO among waiters.
	select {
	case g.lease <- struct{}{}:
	case <-ctx.Done():
		_ = g.ledger.MarkFailed(opID)
		return nil, apierr.UpstreamTimeout("").WithCause(ctx.Err())
	}

	tx, err := call(opts, factory)
	<-g.lease

	if err != nil {
		_ = g.ledger.MarkFailed(opID)
		return nil, g.classifySubmitError(err)
	}

	txHash := tx.Hash().Hex()
	if err := g.ledger.MarkSubmitted(opID, txHash); err != nil {
		g.logger.Error().Err(err).Str("operation_id", opID).Msg("ledger submit transition failed")
	}
	g.broker.Publish(events.EventOperationSubmitted, "transaction broadcast", map[string]string{
		"operation_id": opID, "tx_hash": txHash,
	})
	g.logger.Info().Str("operation_id", opID).Str("tx_hash", txHash).Msg("transaction submitted")

	// The transaction is on the wire now. Receipt waiting runs on a
	// detached context so a disconnected caller cannot orphan the ledger
	// entry; the deadline is the configured receipt timeout.
	waitCtx, cancel := context.WithTimeout(context.Background(), g.receiptTimeout)
	defer cancel()

	receipt, err := bind.WaitMined(waitCtx, client, tx)
	if err != nil {
		_ = g.ledger.MarkFailed(opID)
		g.broker.Publish(events.EventOperationFailed, "receipt wait failed", map[string]string{
			"operation_id": opID, "tx_hash": txHash,
		})
		if waitCtx.Err() != nil {
			return nil, apierr.UpstreamTimeout(txHash)
		}
		return nil, apierr.UpstreamUnavailable(err)
	}

	if receipt.Status == gethtypes.ReceiptStatusSuccessful {
		if err := g.ledger.MarkConfirmed(opID, receipt.BlockNumber.Uint64()); err != nil {
			g.logger.Error().Err(err).Str("operation_id", opID).Msg("ledger confirm transition failed")
		}
		g.broker.Publish(events.EventOperationConfirmed, "transaction mined", map[string]string{
			"operation_id": opID, "tx_hash": txHash, "block": receipt.BlockNumber.String(),
		})
	} else {
		_ = g.ledger.MarkFailed(opID)
		g.broker.Publish(events.EventOperationFailed, "transaction reverted", map[string]string{
			"operation_id": opID, "tx_hash": txHash,
		})
	}
	return receipt, nil
}

// classifySubmitError maps a pre-broadcast failure to the wire taxonomy.
func (g *Gateway) classifySubmitError(err error) error {
	msg := err.Error()
	if strings.Contains(msg, "execution reverted") {
		return apierr.Conflict("contract rejected the operation: %s", msg)
	}
	return apierr.UpstreamUnavailable(err)
}

// Child tokens are bound on demand with the minimal per-kind ABIs.

func (g *Gateway) bindFungible(ctx context.Context, address string) (*bind.BoundContract, error) {
	client, err := g.ethClient(ctx)
	if err != nil {
		return nil, err
	}
	return bind.NewBoundContract(common.HexToAddress(address), erc20ABI, client, client, client), nil
}

func (g *Gateway) bindNonFungible(ctx context.Context, address string) (*bind.BoundContract, error) {
	client, err := g.ethClient(ctx)
	if err != nil {
		return nil, err
	}
	return bind.NewBoundContract(common.HexToAddress(address), erc721ABI, client, client, client), nil
}
