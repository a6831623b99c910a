// Package reconcile runs every mutating action as write-then-refetch.
//
// Each action: (1) validate locally, (2) call the gateway and wait,
// (3) on success refetch the customer list and, when a detail is open, that
// customer's history, and replace the ledger store's copies, (4) on failure
// leave the store untouched and return a typed error.
//
// Nothing is applied optimistically. The refetch is the only path by which
// remote state enters the store, and every refetch carries a sequence number
// so late arrivals cannot overwrite newer state.
package reconcile

import (
	"context"
	"log/slog"

	"github.com/roach88/khata/internal/gateway"
	"github.com/roach88/khata/internal/ledger"
	"github.com/roach88/khata/internal/nav"
)

// Controller orchestrates mutations against the remote.
//
// Thread-safety: safe for concurrent use. Mutations on the same customer are
// serialized; different customers proceed concurrently.
type Controller struct {
	remote gateway.Gateway
	store  *ledger.Store
	nav    *nav.Machine
	clock  *Clock
	locks  *keyedMutex
	format ledger.Formatter
}

// Option configures a Controller.
type Option func(*Controller)

// WithFormatter sets the currency formatter used in deletion prompts.
func WithFormatter(f ledger.Formatter) Option {
	return func(c *Controller) { c.format = f }
}

// WithClock shares a sequence clock, e.g. with a second controller over
// the same store.
func WithClock(clock *Clock) Option {
	return func(c *Controller) { c.clock = clock }
}

// New wires a controller to its collaborators.
func New(remote gateway.Gateway, store *ledger.Store, machine *nav.Machine, opts ...Option) *Controller {
	c := &Controller{
		remote: remote,
		store:  store,
		nav:    machine,
		clock:  NewClock(),
		locks:  newKeyedMutex(),
		format: ledger.NewFormatter(ledger.DefaultCurrency),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Refresh pulls the full customer list, and the open detail's history.
func (c *Controller) Refresh(ctx context.Context) error {
	return c.refetch(ctx, "refresh")
}

// OpenCustomer navigates to the customer's detail and pulls its history.
//
// A customer absent from the store is a NOT_FOUND error and navigation stays
// at Home.
func (c *Controller) OpenCustomer(ctx context.Context, id string) error {
	if err := c.nav.OpenDetail(id); err != nil {
		return err
	}
	return c.refetchHistory(ctx, "open customer", id, c.nav.Epoch())
}

// CreateCustomer validates fields, creates the customer remotely and
// refetches. The returned customer is the remote's answer.
func (c *Controller) CreateCustomer(ctx context.Context, fields ledger.CustomerFields) (ledger.Customer, error) {
	const op = "create customer"
	fields, err := fields.Validate()
	if err != nil {
		return ledger.Customer{}, err
	}

	created, err := c.remote.CreateCustomer(ctx, fields)
	if err != nil {
		return ledger.Customer{}, c.remoteFailed(op, "", err)
	}
	slog.Info("customer created", "customer_id", created.ID)

	if err := c.refetch(ctx, op); err != nil {
		return created, err
	}
	return created, nil
}

// UpdateCustomer validates fields and replaces the customer's attributes.
func (c *Controller) UpdateCustomer(ctx context.Context, id string, fields ledger.CustomerFields) (ledger.Customer, error) {
	const op = "update customer"
	fields, err := fields.Validate()
	if err != nil {
		return ledger.Customer{}, err
	}
	if err := c.requireCustomer(op, id); err != nil {
		return ledger.Customer{}, err
	}

	unlock, err := c.locks.Lock(ctx, id)
	if err != nil {
		return ledger.Customer{}, err
	}
	defer unlock()

	updated, err := c.remote.UpdateCustomer(ctx, id, fields)
	if err != nil {
		return ledger.Customer{}, c.remoteFailed(op, id, err)
	}
	slog.Info("customer updated", "customer_id", id)

	if err := c.refetch(ctx, op); err != nil {
		return updated, err
	}
	return updated, nil
}

// DeleteCustomer removes the customer and, through the remote cascade, its
// transactions. Any view showing the customer is retired to Home.
//
// Precondition: the user has confirmed the deletion. The controller does not
// ask; use ConfirmAndDeleteCustomer to route through a ConfirmFunc.
func (c *Controller) DeleteCustomer(ctx context.Context, id string) error {
	const op = "delete customer"
	if err := c.requireCustomer(op, id); err != nil {
		return err
	}

	unlock, err := c.locks.Lock(ctx, id)
	if err != nil {
		return err
	}
	defer unlock()

	if err := c.remote.DeleteCustomer(ctx, id); err != nil {
		return c.remoteFailed(op, id, err)
	}
	slog.Info("customer deleted", "customer_id", id)

	c.nav.Invalidate(id)
	return c.refetch(ctx, op)
}

// CreateTransaction parses amountText and records a transaction for the
// customer. The customer must be present locally, which also means it has a
// remote id.
func (c *Controller) CreateTransaction(ctx context.Context, customerID string, kind ledger.Kind, amountText, description string) (ledger.Transaction, error) {
	const op = "create transaction"
	amount, err := ledger.ParseAmount(amountText)
	if err != nil {
		return ledger.Transaction{}, err
	}
	nt := ledger.NewTransaction{
		CustomerID:  customerID,
		Kind:        kind,
		Amount:      amount,
		Description: description,
	}
	if err := nt.Validate(); err != nil {
		return ledger.Transaction{}, err
	}
	if err := c.requireCustomer(op, customerID); err != nil {
		return ledger.Transaction{}, err
	}

	unlock, err := c.locks.Lock(ctx, customerID)
	if err != nil {
		return ledger.Transaction{}, err
	}
	defer unlock()

	created, err := c.remote.CreateTransaction(ctx, nt)
	if err != nil {
		return ledger.Transaction{}, c.remoteFailed(op, customerID, err)
	}
	slog.Info("transaction created",
		"customer_id", customerID,
		"transaction_id", created.ID,
		"kind", string(created.Kind),
		"amount", created.Amount.String())

	if err := c.refetch(ctx, op); err != nil {
		return created, err
	}
	return created, nil
}

// DeleteTransaction hard-deletes one transaction of the customer.
//
// Precondition: the user has confirmed the deletion (see
// ConfirmAndDeleteTransaction).
func (c *Controller) DeleteTransaction(ctx context.Context, id, customerID string) error {
	const op = "delete transaction"
	if err := c.requireCustomer(op, customerID); err != nil {
		return err
	}
	if _, ok := c.findTransaction(customerID, id); !ok {
		return ledger.NotFound(op, id)
	}

	unlock, err := c.locks.Lock(ctx, customerID)
	if err != nil {
		return err
	}
	defer unlock()

	if err := c.remote.DeleteTransaction(ctx, id); err != nil {
		return c.remoteFailed(op, customerID, err)
	}
	slog.Info("transaction deleted", "customer_id", customerID, "transaction_id", id)

	return c.refetch(ctx, op)
}

// refetch replaces the customer list and, if a detail is open, that
// customer's history. Results older than what the store holds are dropped.
func (c *Controller) refetch(ctx context.Context, op string) error {
	view := c.nav.State()
	epoch := c.nav.Epoch()

	seq := c.clock.Next()
	list, err := c.remote.ListCustomers(ctx)
	if err != nil {
		return c.remoteFailed(op+": refetch customers", "", err)
	}
	if !c.store.ApplyCustomers(seq, list) {
		slog.Debug("stale customer list dropped", "op", op, "seq", seq)
	}

	if view.Screen != nav.Detail {
		return nil
	}
	if !c.store.Has(view.CustomerID) {
		c.nav.Invalidate(view.CustomerID)
		return nil
	}
	return c.refetchHistory(ctx, op, view.CustomerID, epoch)
}

// refetchHistory pulls one history and applies it only if the machine is
// still on the same detail visit.
func (c *Controller) refetchHistory(ctx context.Context, op, customerID string, epoch uint64) error {
	seq := c.clock.Next()
	history, err := c.remote.ListTransactions(ctx, customerID)
	if err != nil {
		return c.remoteFailed(op+": refetch history", customerID, err)
	}

	if cur := c.nav.State(); c.nav.Epoch() != epoch || cur.Screen != nav.Detail || cur.CustomerID != customerID {
		slog.Debug("history refetch discarded: view changed",
			"op", op,
			"customer_id", customerID,
			"seq", seq)
		return nil
	}

	applied, err := c.store.ApplyHistory(seq, customerID, history)
	if err != nil {
		// Gone from the list between the two refetches.
		c.nav.Invalidate(customerID)
		return err
	}
	if !applied {
		slog.Debug("stale history dropped", "op", op, "customer_id", customerID, "seq", seq)
	}
	return nil
}

// requireCustomer rejects operations on customers the store no longer holds
// and routes any view of them Home.
func (c *Controller) requireCustomer(op, id string) error {
	if id == "" {
		return ledger.Validation(op, "customer id is required")
	}
	if !c.store.Has(id) {
		c.nav.Invalidate(id)
		return ledger.NotFound(op, id)
	}
	return nil
}

func (c *Controller) findTransaction(customerID, id string) (ledger.Transaction, bool) {
	history, err := c.store.Transactions(customerID)
	if err != nil {
		return ledger.Transaction{}, false
	}
	for _, t := range history {
		if t.ID == id {
			return t, true
		}
	}
	return ledger.Transaction{}, false
}

// remoteFailed logs a gateway failure once and wraps it. A remote not-found
// also retires any view of the customer.
func (c *Controller) remoteFailed(op, customerID string, err error) error {
	slog.Error("remote call failed", "op", op, "customer_id", customerID, "error", err)
	if customerID != "" && ledger.IsNotFound(err) {
		c.nav.Invalidate(customerID)
	}
	return ledger.Remote(op, err)
}
