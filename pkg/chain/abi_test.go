package chain

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
)

var (
	testFactory = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	testToken   = common.HexToAddress("0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512")
	testOwner   = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
)

func tokenCreatedLog(t *testing.T, tokenID int64) *gethtypes.Log {
	t.Helper()

	event := factoryABI.Events["TokenCreated"]
	data, err := event.Inputs.NonIndexed().Pack(uint8(0), testToken, "My Token", "MTK", "ipfs://meta")
	if err != nil {
		t.Fatalf("pack TokenCreated data: %v", err)
	}

	return &gethtypes.Log{
		Address: testFactory,
		Topics: []common.Hash{
			event.ID,
			common.BigToHash(big.NewInt(tokenID)),
			common.BytesToHash(testOwner.Bytes()),
		},
		Data: data,
	}
}

func TestDecodeTokenCreated(t *testing.T) {
	ev := decodeTokenCreated([]*gethtypes.Log{tokenCreatedLog(t, 1)}, testFactory)
	if ev == nil {
		t.Fatal("event not decoded")
	}

	if ev.TokenID.Uint64() != 1 {
		t.Errorf("tokenID = %s, want 1", ev.TokenID)
	}
	if ev.TokenAddress != testToken {
		t.Errorf("tokenAddress = %s", ev.TokenAddress)
	}
	if ev.Owner != testOwner {
		t.Errorf("owner = %s", ev.Owner)
	}
	if ev.Name != "My Token" || ev.Symbol != "MTK" || ev.MetadataURI != "ipfs://meta" {
		t.Errorf("labels = %q %q %q", ev.Name, ev.Symbol, ev.MetadataURI)
	}
}

func TestDecodeTokenCreatedSkipsForeignAndMalformedLogs(t *testing.T) {
	event := factoryABI.Events["TokenCreated"]

	foreign := tokenCreatedLog(t, 9)
	foreign.Address = testToken // wrong emitter

	malformed := &gethtypes.Log{
		Address: testFactory,
		Topics: []common.Hash{
			event.ID,
			common.BigToHash(big.NewInt(2)),
			common.BytesToHash(testOwner.Bytes()),
		},
		Data: []byte{0x01, 0x02}, // garbage payload
	}

	good := tokenCreatedLog(t, 3)

	// One malformed log must never abort the scan.
	ev := decodeTokenCreated([]*gethtypes.Log{foreign, malformed, nil, good}, testFactory)
	if ev == nil {
		t.Fatal("decodable event was dropped")
	}
	if ev.TokenID.Uint64() != 3 {
		t.Errorf("tokenID = %s, want 3", ev.TokenID)
	}
}

func TestDecodeTokenCreatedAbsent(t *testing.T) {
	if ev := decodeTokenCreated(nil, testFactory); ev != nil {
		t.Errorf("decoded event from empty logs: %+v", ev)
	}
}

func TestDecodeMintedUnit(t *testing.T) {
	event := erc721ABI.Events["Transfer"]

	mint := &gethtypes.Log{
		Address: testToken,
		Topics: []common.Hash{
			event.ID,
			common.BytesToHash(common.Address{}.Bytes()), // from = zero address
			common.BytesToHash(testOwner.Bytes()),
			common.BigToHash(big.NewInt(41)),
		},
	}
	ordinaryTransfer := &gethtypes.Log{
		Address: testToken,
		Topics: []common.Hash{
			event.ID,
			common.BytesToHash(testOwner.Bytes()), // not a mint
			common.BytesToHash(testOwner.Bytes()),
			common.BigToHash(big.NewInt(7)),
		},
	}

	unit := decodeMintedUnit([]*gethtypes.Log{ordinaryTransfer, mint}, testToken)
	if unit == nil || unit.Uint64() != 41 {
		t.Errorf("minted unit = %v, want 41", unit)
	}

	if unit := decodeMintedUnit([]*gethtypes.Log{ordinaryTransfer}, testToken); unit != nil {
		t.Errorf("ordinary transfer decoded as mint: %v", unit)
	}
}
