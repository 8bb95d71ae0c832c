package chain

import (
	"errors"
	"testing"
	"time"

	"github.com/etcmint/mintgate/pkg/apierr"
	"github.com/etcmint/mintgate/pkg/events"
	"github.com/etcmint/mintgate/pkg/ledger"
)

// Anvil's first well-known development key; never used on a live chain.
const testKeyHex = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func testConfig() Config {
	return Config{
		RPCURL:         "http://127.0.0.1:8545",
		ChainID:        61,
		PrivateKeyHex:  testKeyHex,
		FactoryAddress: "0x5FbDB2315678afecb367f032d93F642f64180aa3",
		ReceiptTimeout: 2 * time.Minute,
	}
}

func TestNewDerivesSignerFromKey(t *testing.T) {
	g, err := New(testConfig(), ledger.New(10), events.NewBroker())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// The address for Anvil key #0 is fixed.
	if g.SignerAddress() != "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266" {
		t.Errorf("signer = %s", g.SignerAddress())
	}
	if g.FactoryAddress() != "0x5FbDB2315678afecb367f032d93F642f64180aa3" {
		t.Errorf("factory = %s", g.FactoryAddress())
	}
}

func TestNewRejectsBadKeyAndAddress(t *testing.T) {
	cfg := testConfig()
	cfg.PrivateKeyHex = "not-hex"
	if _, err := New(cfg, ledger.New(10), events.NewBroker()); err == nil {
		t.Error("malformed key accepted")
	}

	cfg = testConfig()
	cfg.FactoryAddress = "0x123"
	if _, err := New(cfg, ledger.New(10), events.NewBroker()); err == nil {
		t.Error("malformed factory address accepted")
	}
}

func TestNewDoesNotDial(t *testing.T) {
	cfg := testConfig()
	cfg.RPCURL = "http://127.0.0.1:1" // nothing listens here
	if _, err := New(cfg, ledger.New(10), events.NewBroker()); err != nil {
		t.Errorf("constructor must not require a reachable RPC: %v", err)
	}
}

func TestGasMargin(t *testing.T) {
	tests := []struct{ in, want uint64 }{
		{100_000, 120_000},
		{1, 1}, // integer math truncates
		{10, 12},
		{0, 0},
	}
	for _, tt := range tests {
		if got := gasMargin(tt.in); got != tt.want {
			t.Errorf("gasMargin(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestClassifySubmitError(t *testing.T) {
	g, err := New(testConfig(), ledger.New(10), events.NewBroker())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	reverted := g.classifySubmitError(errors.New("execution reverted: not pausable"))
	if ae := apierr.From(reverted); ae.Name != "Conflict" {
		t.Errorf("revert classified as %s, want Conflict", ae.Name)
	}

	network := g.classifySubmitError(errors.New("dial tcp 127.0.0.1:8545: connect: connection refused"))
	if ae := apierr.From(network); ae.Name != "UpstreamUnavailable" {
		t.Errorf("network error classified as %s, want UpstreamUnavailable", ae.Name)
	}
}
