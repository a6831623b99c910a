// Package ledger holds the credit-ledger data model and the in-memory cache of
// it that the client renders from.
//
// A Customer owns an ordered sequence of Transactions. Each transaction either
// records value given to the customer (GAVE) or a payment received from them
// (RECEIVED). The balance is never stored; it is derived from the transactions
// actually held:
//
//	balance = Σ amount(GAVE) − Σ amount(RECEIVED)
//
// A balance ≥ 0 means the customer owes the owner ("to receive"). A negative
// balance means the owner holds an advance ("to pay"). Every derived view uses
// this convention.
//
// # Ordering
//
// Transaction histories are kept date-descending (newest first) with ties
// broken by ID descending. Store normalises every incoming history so the
// order does not depend on the source.
//
// # Sequencing
//
// Store accepts refetch results tagged with a sequence number and drops any
// result older than what it already applied, per customer. Results can
// therefore arrive out of order without resurrecting stale balances.
package ledger
