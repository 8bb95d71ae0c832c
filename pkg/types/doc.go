/*
Package types defines the shared data model for the mintgate tokenization
gateway: tokens, async operations, fee quotes, balances, and the enums that
tag them.

The two axes that drive most branching elsewhere in the codebase are both
plain string-typed tags:

  - TokenKind: Erc20 (fungible, divisible, amount-based operations) vs
    Erc721 (non-fungible, unit-identifier-based operations).
  - OperationKind: the verb of a gateway-initiated on-chain action
    (deploy, mint, burn, transfer, pause, unpause, update-metadata,
    list-on-dex).

Operation status forms a small monotone state machine:

	Pending ──submit ok──▶ Submitted ──receipt ok──▶ Confirmed
	   │                      │
	   │                      └─receipt status 0 / timeout──▶ Failed
	   └─submit error before hash──▶ Failed

Terminal states are immutable. The ledger package enforces the transitions;
this package only defines the vocabulary.

All structs here are plain data with JSON tags matching the wire contract.
They carry no behavior beyond trivial predicates so that every package can
depend on types without import cycles.
*/
package types
