package reconcile

import (
	"context"
	"fmt"

	"github.com/roach88/khata/internal/ledger"
)

// DeletionPrompt is the yes/no question shown before a hard delete.
type DeletionPrompt struct {
	// Target is "customer" or "transaction".
	Target     string
	ID         string
	CustomerID string
	Question   string
}

// ConfirmFunc answers a DeletionPrompt. Returning false cancels the delete
// before any gateway call.
type ConfirmFunc func(DeletionPrompt) bool

// CustomerDeletionPrompt builds the question for deleting a customer.
func (c *Controller) CustomerDeletionPrompt(id string) (DeletionPrompt, error) {
	cust, err := c.store.Customer(id)
	if err != nil {
		return DeletionPrompt{}, err
	}
	q := fmt.Sprintf("Delete %s?", cust.Name)
	if n := len(cust.Transactions); n > 0 {
		q = fmt.Sprintf("Delete %s and %d transaction(s)? Balance %s.",
			cust.Name, n, c.format.Describe(cust.Balance()))
	}
	return DeletionPrompt{Target: "customer", ID: id, CustomerID: id, Question: q}, nil
}

// TransactionDeletionPrompt builds the question for deleting a transaction.
func (c *Controller) TransactionDeletionPrompt(id, customerID string) (DeletionPrompt, error) {
	t, ok := c.findTransaction(customerID, id)
	if !ok {
		return DeletionPrompt{}, ledger.NotFound("delete transaction", id)
	}
	q := fmt.Sprintf("Delete %s %s from %s?",
		t.Kind, c.format.Amount(t.Amount), t.Date.Format("02 Jan 2006"))
	return DeletionPrompt{Target: "transaction", ID: id, CustomerID: customerID, Question: q}, nil
}

// ConfirmAndDeleteCustomer asks confirm and deletes only on yes.
// Returns deleted=false with a nil error when the user declines.
func (c *Controller) ConfirmAndDeleteCustomer(ctx context.Context, id string, confirm ConfirmFunc) (deleted bool, err error) {
	p, err := c.CustomerDeletionPrompt(id)
	if err != nil {
		c.nav.Invalidate(id)
		return false, err
	}
	if !confirm(p) {
		return false, nil
	}
	if err := c.DeleteCustomer(ctx, id); err != nil {
		return false, err
	}
	return true, nil
}

// ConfirmAndDeleteTransaction asks confirm and deletes only on yes.
func (c *Controller) ConfirmAndDeleteTransaction(ctx context.Context, id, customerID string, confirm ConfirmFunc) (deleted bool, err error) {
	p, err := c.TransactionDeletionPrompt(id, customerID)
	if err != nil {
		return false, err
	}
	if !confirm(p) {
		return false, nil
	}
	if err := c.DeleteTransaction(ctx, id, customerID); err != nil {
		return false, err
	}
	return true, nil
}
