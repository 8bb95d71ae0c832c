package ledger

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/etcmint/mintgate/pkg/types"
)

// Ledger is the in-memory append-only record of every operation the
// gateway has initiated, indexed by operation ID. A bounded ring keeps the
// last N entries; eviction never drops an entry that is still in flight.
//
// The ledger is the authority on status transitions. Terminal states are
// immutable, so concurrent observers of a Confirmed or Failed operation
// always see the same status.
type Ledger struct {
	mu      sync.Mutex
	byID    map[string]*types.Operation
	order   []string // insertion order, for ring eviction
	maxSize int
	seq     atomic.Uint64
}

// New creates a ledger retaining at most size entries.
func New(size int) *Ledger {
	return &Ledger{
		byID:    make(map[string]*types.Operation),
		order:   make([]string, 0, size),
		maxSize: size,
	}
}

// Begin records a new Pending operation for a verb-keyed action against an
// existing token and returns its generated ID (<verb>-<tokenId>-<seq>).
func (l *Ledger) Begin(kind types.OperationKind, tokenID uint64, payload map[string]any, externalID string) string {
	id := fmt.Sprintf("%s-%d-%d", kind, tokenID, l.seq.Add(1))
	l.insert(&types.Operation{
		ID:         id,
		Kind:       kind,
		Status:     types.OperationPending,
		Payload:    payload,
		ExternalID: externalID,
		CreatedAt:  time.Now(),
	})
	return id
}

// BeginDeploy records a new Pending deployment. The factory-assigned token
// ID is unknown until the TokenCreated event is decoded, so the ledger
// entry carries a provisional deploy-<seq> ID; the HTTP envelope reports
// the token ID once known.
func (l *Ledger) BeginDeploy(payload map[string]any, externalID string) string {
	id := fmt.Sprintf("deploy-%d", l.seq.Add(1))
	l.insert(&types.Operation{
		ID:         id,
		Kind:       types.OpDeploy,
		Status:     types.OperationPending,
		Payload:    payload,
		ExternalID: externalID,
		CreatedAt:  time.Now(),
	})
	return id
}

// MarkSubmitted transitions Pending -> Submitted and records the
// transaction hash. The hash is set exactly once.
func (l *Ledger) MarkSubmitted(id, txHash string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	op, ok := l.byID[id]
	if !ok {
		return fmt.Errorf("operation %s not found", id)
	}
	if op.Status != types.OperationPending {
		return fmt.Errorf("operation %s is %s, cannot submit", id, op.Status)
	}
	op.Status = types.OperationSubmitted
	op.TxHash = txHash
	return nil
}

// MarkConfirmed transitions Submitted -> Confirmed with the mined block.
func (l *Ledger) MarkConfirmed(id string, blockNumber uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	op, ok := l.byID[id]
	if !ok {
		return fmt.Errorf("operation %s not found", id)
	}
	if op.Status != types.OperationSubmitted {
		return fmt.Errorf("operation %s is %s, cannot confirm", id, op.Status)
	}
	if blockNumber == 0 {
		return fmt.Errorf("operation %s: confirmed block number must be non-zero", id)
	}
	op.Status = types.OperationConfirmed
	op.BlockNumber = blockNumber
	return nil
}

// MarkFailed transitions to Failed from any non-terminal state. A hash
// recorded at submission time stays attached to the entry.
func (l *Ledger) MarkFailed(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	op, ok := l.byID[id]
	if !ok {
		return fmt.Errorf("operation %s not found", id)
	}
	if op.Status.Terminal() {
		return fmt.Errorf("operation %s is already %s", id, op.Status)
	}
	op.Status = types.OperationFailed
	return nil
}

// Get returns a copy of the operation, if recorded.
func (l *Ledger) Get(id string) (types.Operation, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	op, ok := l.byID[id]
	if !ok {
		return types.Operation{}, false
	}
	return *op, true
}

// Len reports the number of retained entries.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.byID)
}

func (l *Ledger) insert(op *types.Operation) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.order) >= l.maxSize {
		l.evictLocked()
	}
	l.byID[op.ID] = op
	l.order = append(l.order, op.ID)
}

// evictLocked drops the oldest terminal entry. In-flight entries are
// skipped, so the ring can temporarily exceed its bound when everything
// retained is still non-terminal.
func (l *Ledger) evictLocked() {
	for i, id := range l.order {
		if op, ok := l.byID[id]; ok && op.Status.Terminal() {
			delete(l.byID, id)
			l.order = append(l.order[:i], l.order[i+1:]...)
			return
		}
	}
}
