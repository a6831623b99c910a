// Package gateway defines the boundary to the authoritative remote store.
//
// The client core never mutates its local ledger directly. Every change goes
// through a Gateway call and is followed by a refetch (see package reconcile).
//
// Implementations:
//   - Memory: in-process remote, used by the shell's memory backend and tests
//   - HTTP: REST client for a remote started with `khata serve`
//   - store.Store: the SQLite store itself (package store)
//
// Remote IDs come from an IDGenerator. Transactions are returned newest first.
package gateway

import (
	"context"
	"errors"

	"github.com/roach88/khata/internal/ledger"
)

// Gateway is the remote sync boundary.
//
// All methods block until the remote answers or ctx is done. Errors are
// returned as-is; callers decide how to surface them.
type Gateway interface {
	// ListCustomers returns every customer with its transactions attached,
	// so balances are derivable.
	ListCustomers(ctx context.Context) ([]ledger.Customer, error)

	CreateCustomer(ctx context.Context, fields ledger.CustomerFields) (ledger.Customer, error)
	UpdateCustomer(ctx context.Context, id string, fields ledger.CustomerFields) (ledger.Customer, error)

	// DeleteCustomer removes a customer and its transactions. The remote may
	// refuse with ErrDeleteRefused.
	DeleteCustomer(ctx context.Context, id string) error

	ListTransactions(ctx context.Context, customerID string) ([]ledger.Transaction, error)
	CreateTransaction(ctx context.Context, tx ledger.NewTransaction) (ledger.Transaction, error)
	DeleteTransaction(ctx context.Context, id string) error

	// Authenticate checks the PIN. A wrong PIN is (false, nil).
	Authenticate(ctx context.Context, pin string) (bool, error)
}

// ErrDeleteRefused is returned when the remote disallows a customer delete.
var ErrDeleteRefused = errors.New("delete refused: customer has an outstanding balance")

// ErrNoPIN is returned by Authenticate when no PIN was ever configured.
var ErrNoPIN = errors.New("no PIN configured")
