package chain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
)

// The gateway binds the factory and its child tokens with hand-written
// minimal ABIs covering exactly the surface it calls. The contracts
// themselves are external resources; only these fragments are compiled in.

const factoryABIJSON = `[
	{"type":"function","name":"tokenCount","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getTokenInfo","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[
		{"name":"id","type":"uint256"},
		{"name":"tokenType","type":"uint8"},
		{"name":"tokenAddress","type":"address"},
		{"name":"owner","type":"address"},
		{"name":"name","type":"string"},
		{"name":"symbol","type":"string"},
		{"name":"metadataURI","type":"string"},
		{"name":"createdAt","type":"uint256"},
		{"name":"burnable","type":"bool"},
		{"name":"pausable","type":"bool"},
		{"name":"listedOnDex","type":"bool"}]},
	{"type":"function","name":"getOwnerTokens","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256[]"}]},
	{"type":"function","name":"getTokenIdByAddress","stateMutability":"view","inputs":[{"name":"tokenAddress","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"createERC20","stateMutability":"nonpayable","inputs":[
		{"name":"name","type":"string"},
		{"name":"symbol","type":"string"},
		{"name":"initialSupply","type":"uint256"},
		{"name":"metadataURI","type":"string"},
		{"name":"burnable","type":"bool"},
		{"name":"pausable","type":"bool"},
		{"name":"listOnDex","type":"bool"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"createERC721","stateMutability":"nonpayable","inputs":[
		{"name":"name","type":"string"},
		{"name":"symbol","type":"string"},
		{"name":"baseURI","type":"string"},
		{"name":"burnable","type":"bool"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"updateMetadataURI","stateMutability":"nonpayable","inputs":[{"name":"tokenId","type":"uint256"},{"name":"metadataURI","type":"string"}],"outputs":[]},
	{"type":"function","name":"listOnETCSwap","stateMutability":"nonpayable","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[]},
	{"type":"event","name":"TokenCreated","inputs":[
		{"name":"tokenId","type":"uint256","indexed":true},
		{"name":"tokenType","type":"uint8","indexed":false},
		{"name":"tokenAddress","type":"address","indexed":false},
		{"name":"owner","type":"address","indexed":true},
		{"name":"name","type":"string","indexed":false},
		{"name":"symbol","type":"string","indexed":false},
		{"name":"metadataURI","type":"string","indexed":false}],"anonymous":false},
	{"type":"event","name":"TokenListedOnETCSwap","inputs":[
		{"name":"tokenId","type":"uint256","indexed":true},
		{"name":"tokenAddress","type":"address","indexed":false}],"anonymous":false},
	{"type":"event","name":"MetadataURIUpdated","inputs":[
		{"name":"tokenId","type":"uint256","indexed":true},
		{"name":"metadataURI","type":"string","indexed":false}],"anonymous":false}
]`

const erc20ABIJSON = `[
	{"type":"function","name":"name","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"transfer","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"mint","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"burn","stateMutability":"nonpayable","inputs":[{"name":"amount","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"pause","stateMutability":"nonpayable","inputs":[],"outputs":[]},
	{"type":"function","name":"unpause","stateMutability":"nonpayable","inputs":[],"outputs":[]}
]`

const erc721ABIJSON = `[
	{"type":"function","name":"name","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"mint","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"uri","type":"string"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"burn","stateMutability":"nonpayable","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"transferFrom","stateMutability":"nonpayable","inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"tokenId","type":"uint256"}],"outputs":[]},
	{"type":"event","name":"Transfer","inputs":[
		{"name":"from","type":"address","indexed":true},
		{"name":"to","type":"address","indexed":true},
		{"name":"tokenId","type":"uint256","indexed":true}],"anonymous":false}
]`

var (
	factoryABI = mustParseABI(factoryABIJSON)
	erc20ABI   = mustParseABI(erc20ABIJSON)
	erc721ABI  = mustParseABI(erc721ABIJSON)
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("chain: bad embedded ABI: %v", err))
	}
	return parsed
}

// tokenCreatedEvent is the decoded form of the factory's TokenCreated log.
type tokenCreatedEvent struct {
	TokenID      *big.Int
	TokenType    uint8
	TokenAddress common.Address
	Owner        common.Address
	Name         string
	Symbol       string
	MetadataURI  string
}

// decodeTokenCreated scans receipt logs for the factory's TokenCreated
// event. Each log is decoded in isolation: a malformed log is skipped and
// never aborts receipt processing. Returns nil when no decodable event is
// present.
func decodeTokenCreated(logs []*gethtypes.Log, factory common.Address) *tokenCreatedEvent {
	eventID := factoryABI.Events["TokenCreated"].ID

	for _, lg := range logs {
		if lg == nil || lg.Address != factory || len(lg.Topics) == 0 || lg.Topics[0] != eventID {
			continue
		}
		if ev, err := unpackTokenCreated(lg); err == nil {
			return ev
		}
		// Malformed log: drop this one and keep scanning
	}
	return nil
}

func unpackTokenCreated(lg *gethtypes.Log) (*tokenCreatedEvent, error) {
	if len(lg.Topics) < 3 {
		return nil, fmt.Errorf("TokenCreated log has %d topics, want 3", len(lg.Topics))
	}

	unpacked, err := factoryABI.Unpack("TokenCreated", lg.Data)
	if err != nil {
		return nil, fmt.Errorf("unpack TokenCreated data: %w", err)
	}
	if len(unpacked) != 5 {
		return nil, fmt.Errorf("TokenCreated data has %d fields, want 5", len(unpacked))
	}

	ev := &tokenCreatedEvent{
		TokenID: new(big.Int).SetBytes(lg.Topics[1].Bytes()),
		Owner:   common.BytesToAddress(lg.Topics[2].Bytes()),
	}

	var ok bool
	if ev.TokenType, ok = unpacked[0].(uint8); !ok {
		return nil, fmt.Errorf("TokenCreated tokenType has unexpected type %T", unpacked[0])
	}
	if ev.TokenAddress, ok = unpacked[1].(common.Address); !ok {
		return nil, fmt.Errorf("TokenCreated tokenAddress has unexpected type %T", unpacked[1])
	}
	if ev.Name, ok = unpacked[2].(string); !ok {
		return nil, fmt.Errorf("TokenCreated name has unexpected type %T", unpacked[2])
	}
	if ev.Symbol, ok = unpacked[3].(string); !ok {
		return nil, fmt.Errorf("TokenCreated symbol has unexpected type %T", unpacked[3])
	}
	if ev.MetadataURI, ok = unpacked[4].(string); !ok {
		return nil, fmt.Errorf("TokenCreated metadataURI has unexpected type %T", unpacked[4])
	}
	return ev, nil
}

// decodeMintedUnit extracts the freshly minted unit identifier from an
// ERC721 Transfer log (zero address -> recipient). Same per-log isolation
// as decodeTokenCreated. Returns nil when no mint transfer is decodable.
func decodeMintedUnit(logs []*gethtypes.Log, token common.Address) *big.Int {
	eventID := erc721ABI.Events["Transfer"].ID
	zero := common.Address{}

	for _, lg := range logs {
		if lg == nil || lg.Address != token || len(lg.Topics) != 4 || lg.Topics[0] != eventID {
			continue
		}
		from := common.BytesToAddress(lg.Topics[1].Bytes())
		if from != zero {
			continue
		}
		return new(big.Int).SetBytes(lg.Topics[3].Bytes())
	}
	return nil
}
