package types

import (
	"time"
)

// TokenKind distinguishes the two on-chain token standards the gateway
// fronts. Downstream logic branches on this tag; there is no inheritance.
type TokenKind string

const (
	// TokenKindFungible is a divisible ERC20-style token with a decimals
	// parameter, amount-based mint/burn/transfer, and optional pause and
	// DEX-listing capabilities.
	TokenKindFungible TokenKind = "Erc20"

	// TokenKindNonFungible is an indivisible ERC721-style token with a base
	// URI and unit-identifier-based mint/burn/transfer.
	TokenKindNonFungible TokenKind = "Erc721"
)

// Valid reports whether k is one of the two known kinds.
func (k TokenKind) Valid() bool {
	return k == TokenKindFungible || k == TokenKindNonFungible
}

// Token is the identity and state of a deployed child contract as known to
// the gateway. The factory contract is the source of truth; the gateway
// never mirrors this state persistently.
type Token struct {
	ID          uint64    `json:"tokenId,string"`
	Kind        TokenKind `json:"kind"`
	Address     string    `json:"tokenAddress"`
	Owner       string    `json:"owner"`
	Name        string    `json:"name"`
	Symbol      string    `json:"symbol"`
	MetadataURI string    `json:"metadataURI"`
	CreatedAt   time.Time `json:"createdAt"`
	Burnable    bool      `json:"burnable"`
	Pausable    bool      `json:"pausable"`
	ListedOnDex bool      `json:"listedOnDex"`
}

// OperationStatus is the observable lifecycle state of an operation.
// Transitions are monotone: Pending -> Submitted -> Confirmed | Failed.
type OperationStatus string

const (
	OperationPending   OperationStatus = "Pending"
	OperationSubmitted OperationStatus = "Submitted"
	OperationConfirmed OperationStatus = "Confirmed"
	OperationFailed    OperationStatus = "Failed"
)

// Terminal reports whether the status is immutable.
func (s OperationStatus) Terminal() bool {
	return s == OperationConfirmed || s == OperationFailed
}

// OperationKind is the verb axis of an operation.
type OperationKind string

const (
	OpDeploy         OperationKind = "deploy"
	OpMint           OperationKind = "mint"
	OpBurn           OperationKind = "burn"
	OpTransfer       OperationKind = "transfer"
	OpPause          OperationKind = "pause"
	OpUnpause        OperationKind = "unpause"
	OpUpdateMetadata OperationKind = "update-metadata"
	OpListOnDex      OperationKind = "list-on-dex"
)

// Operation is the async record of one gateway-initiated on-chain action.
// The (ID, Kind) pair is immutable after creation; TxHash is set at most
// once; Confirmed implies a non-zero BlockNumber.
type Operation struct {
	ID          string          `json:"operationId"`
	Kind        OperationKind   `json:"kind"`
	Status      OperationStatus `json:"status"`
	TxHash      string          `json:"txHash,omitempty"`
	BlockNumber uint64          `json:"blockNumber,omitempty"`
	Payload     map[string]any  `json:"payload,omitempty"`
	ExternalID  string          `json:"externalId,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// FeeQuote is the ephemeral result of a fee estimation. GasLimit already
// includes the fixed +20% safety margin. Never persisted.
type FeeQuote struct {
	GasLimit              uint64 `json:"gasLimit,string"`
	GasPrice              string `json:"gasPrice"`
	GasPriceInDisplayUnit string `json:"gasPriceGwei"`
	EstimatedCost         string `json:"estimatedCost"`
}

// Balance is a per-(token, address) snapshot, returned fresh on every
// query. For fungible tokens Raw is the atomic integer amount and
// Formatted the decimal string; for non-fungible tokens Raw is the unit
// count and Decimals is zero.
type Balance struct {
	TokenID   uint64    `json:"tokenId,string"`
	Kind      TokenKind `json:"kind"`
	Address   string    `json:"address"`
	Symbol    string    `json:"symbol"`
	Decimals  uint8     `json:"decimals"`
	Raw       string    `json:"raw"`
	Formatted string    `json:"formatted,omitempty"`
}

// ChainStatus is the health probe's view of the upstream chain.
type ChainStatus struct {
	Connected      bool   `json:"connected"`
	ChainID        uint64 `json:"chainId,string"`
	BlockNumber    uint64 `json:"blockNumber"`
	SignerAddress  string `json:"signerAddress"`
	FactoryAddress string `json:"factoryAddress"`
}
