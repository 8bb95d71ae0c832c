/*
Package ledger implements the gateway's in-memory operation ledger: an
append-only log of every gateway-initiated on-chain action, indexed by a
stable operation ID.

Each entry moves through a monotone state machine owned by this package:

	Pending ──MarkSubmitted──▶ Submitted ──MarkConfirmed──▶ Confirmed
	   │                          │
	   └──────MarkFailed──────────┴──────MarkFailed──────▶ Failed

Illegal transitions (confirming before submitting, mutating a terminal
entry, setting a second transaction hash) return errors instead of
silently corrupting the record.

Memory is bounded by a ring: when the configured capacity is reached the
oldest *terminal* entry is evicted. Entries still awaiting a receipt are
never dropped, so a burst of slow transactions can grow the ledger past
its nominal size until they settle.

The ledger is process-local and deliberately unpersisted; operations do
not survive a restart.
*/
package ledger
