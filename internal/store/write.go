package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/khata/internal/gateway"
	"github.com/roach88/khata/internal/ledger"
)

// CreateCustomer validates fields and inserts a new customer at the end of
// the creation order.
func (s *Store) CreateCustomer(ctx context.Context, fields ledger.CustomerFields) (ledger.Customer, error) {
	fields, err := fields.Validate()
	if err != nil {
		return ledger.Customer{}, err
	}

	c := ledger.Customer{
		ID:           s.ids.Generate(),
		Name:         fields.Name,
		FatherName:   fields.FatherName,
		City:         fields.City,
		Mobile:       fields.Mobile,
		CreatedAt:    s.now().UTC(),
		Transactions: []ledger.Transaction{},
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO customers (id, name, father_name, city, mobile, created_ns, seq)
		VALUES (?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM customers))
	`,
		c.ID,
		c.Name,
		c.FatherName,
		c.City,
		c.Mobile,
		c.CreatedAt.UnixNano(),
	)
	if err != nil {
		return ledger.Customer{}, fmt.Errorf("create customer: %w", err)
	}
	return c, nil
}

// UpdateCustomer replaces the editable fields of an existing customer and
// returns it with its history.
func (s *Store) UpdateCustomer(ctx context.Context, id string, fields ledger.CustomerFields) (ledger.Customer, error) {
	fields, err := fields.Validate()
	if err != nil {
		return ledger.Customer{}, err
	}

	var out ledger.Customer
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE customers
			SET name = ?, father_name = ?, city = ?, mobile = ?
			WHERE id = ?
		`, fields.Name, fields.FatherName, fields.City, fields.Mobile, id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ledger.ErrNotFound
		}
		out, err = readCustomer(ctx, tx, id)
		return err
	})
	if err != nil {
		return ledger.Customer{}, fmt.Errorf("update customer %s: %w", id, err)
	}
	return out, nil
}

// DeleteCustomer removes a customer. Its transactions go with it through the
// foreign key cascade.
//
// With strict delete enabled, a customer with a non-zero balance is refused
// with gateway.ErrDeleteRefused.
func (s *Store) DeleteCustomer(ctx context.Context, id string) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireCustomer(ctx, tx, id); err != nil {
			return err
		}
		if s.strictDelete {
			history, err := readTransactions(ctx, tx, id)
			if err != nil {
				return err
			}
			if !ledger.Balance(history).IsZero() {
				return gateway.ErrDeleteRefused
			}
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM customers WHERE id = ?`, id)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete customer %s: %w", id, err)
	}
	return nil
}

// CreateTransaction validates nt and appends it to the customer's history.
func (s *Store) CreateTransaction(ctx context.Context, nt ledger.NewTransaction) (ledger.Transaction, error) {
	if err := nt.Validate(); err != nil {
		return ledger.Transaction{}, err
	}

	t := ledger.Transaction{
		ID:          s.ids.Generate(),
		CustomerID:  nt.CustomerID,
		Kind:        nt.Kind,
		Amount:      nt.Amount,
		Description: nt.Description,
		Date:        s.now().UTC(),
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireCustomer(ctx, tx, t.CustomerID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO transactions (id, customer_id, kind, amount, description, date_ns)
			VALUES (?, ?, ?, ?, ?, ?)
		`,
			t.ID,
			t.CustomerID,
			string(t.Kind),
			t.Amount.String(),
			t.Description,
			t.Date.UnixNano(),
		)
		return err
	})
	if err != nil {
		return ledger.Transaction{}, fmt.Errorf("create transaction for %s: %w", t.CustomerID, err)
	}
	return t, nil
}

// DeleteTransaction hard-deletes one transaction.
func (s *Store) DeleteTransaction(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("delete transaction %s: %w", id, ledger.ErrNotFound)
	}
	return nil
}
