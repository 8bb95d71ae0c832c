/*
Package chain implements the gateway's single point of contact with the
blockchain: the RPC connection, the operator signing identity, the factory
contract binding, and on-demand bindings for child token contracts.

# Connection and signer

One ethclient connection and one signing key serve the whole process. The
connection is dialed lazily on first use, so the service starts (and its
health probe answers honestly) even when the node is down.

# Submission lease

Every write goes through a single-slot lease scoped to the signer:

	acquire lease ─▶ fetch nonce ─▶ sign ─▶ broadcast ─▶ release lease
	                                                        │
	                          receipt wait (outside lease) ◀┘

Holding the lease only for the nonce/sign/broadcast critical section means
concurrent writers can never race for a nonce, while any number of
transactions may be in flight awaiting confirmation. Reads never touch the
lease.

# Receipts and events

Receipt waiting is bounded by the configured deadline and runs on a
context detached from the caller, so a dropped client connection never
orphans a broadcast transaction: the ledger entry still reaches Confirmed
or Failed. Event logs are decoded one at a time with per-log isolation; a
malformed log is skipped, never fatal.

# Amounts

Fungible amounts cross the API as decimal strings and are converted to
atomic integers using the child token's declared decimals, truncating
extraneous fractional digits. See amounts.go.
*/
package chain
