package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/khata/internal/ledger"
)

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ListCustomers returns every customer in creation order with its history
// attached. Both reads run in one transaction so balances are consistent
// with the list.
//
// Returns an empty slice (not nil) if there are no customers.
func (s *Store) ListCustomers(ctx context.Context) ([]ledger.Customer, error) {
	var out []ledger.Customer
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		customers, err := readCustomers(ctx, tx)
		if err != nil {
			return err
		}
		histories, err := readAllTransactions(ctx, tx)
		if err != nil {
			return err
		}
		for i := range customers {
			if h, ok := histories[customers[i].ID]; ok {
				customers[i].Transactions = h
			}
		}
		out = customers
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	return out, nil
}

// ListTransactions returns one customer's history, newest first.
func (s *Store) ListTransactions(ctx context.Context, customerID string) ([]ledger.Transaction, error) {
	var out []ledger.Transaction
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireCustomer(ctx, tx, customerID); err != nil {
			return err
		}
		var err error
		out, err = readTransactions(ctx, tx, customerID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list transactions %s: %w", customerID, err)
	}
	return out, nil
}

// Ordering: creation seq, then id, so results are identical across runs.
func readCustomers(ctx context.Context, q queryer) ([]ledger.Customer, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, name, father_name, city, mobile, created_ns
		FROM customers
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query customers: %w", err)
	}
	defer rows.Close()

	customers := []ledger.Customer{}
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate customers: %w", err)
	}
	return customers, nil
}

func readCustomer(ctx context.Context, q queryer, id string) (ledger.Customer, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, name, father_name, city, mobile, created_ns
		FROM customers
		WHERE id = ?
	`, id)
	c, err := scanCustomer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Customer{}, ledger.ErrNotFound
	}
	if err != nil {
		return ledger.Customer{}, err
	}
	c.Transactions, err = readTransactions(ctx, q, id)
	if err != nil {
		return ledger.Customer{}, err
	}
	return c, nil
}

func requireCustomer(ctx context.Context, q queryer, id string) error {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM customers WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("lookup customer: %w", err)
	}
	return nil
}

func readTransactions(ctx context.Context, q queryer, customerID string) ([]ledger.Transaction, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, customer_id, kind, amount, description, date_ns
		FROM transactions
		WHERE customer_id = ?
		ORDER BY date_ns DESC, id COLLATE BINARY DESC
	`, customerID)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	txs := []ledger.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return txs, nil
}

// readAllTransactions groups every history by customer id.
func readAllTransactions(ctx context.Context, q queryer) (map[string][]ledger.Transaction, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, customer_id, kind, amount, description, date_ns
		FROM transactions
		ORDER BY customer_id COLLATE BINARY ASC, date_ns DESC, id COLLATE BINARY DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]ledger.Transaction)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out[t.CustomerID] = append(out[t.CustomerID], t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanCustomer(sc scanner) (ledger.Customer, error) {
	var (
		c         ledger.Customer
		createdNS int64
	)
	if err := sc.Scan(&c.ID, &c.Name, &c.FatherName, &c.City, &c.Mobile, &createdNS); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ledger.Customer{}, err
		}
		return ledger.Customer{}, fmt.Errorf("scan customer: %w", err)
	}
	c.CreatedAt = time.Unix(0, createdNS).UTC()
	c.Transactions = []ledger.Transaction{}
	return c, nil
}

func scanTransaction(sc scanner) (ledger.Transaction, error) {
	var (
		t      ledger.Transaction
		kind   string
		amount string
		dateNS int64
	)
	if err := sc.Scan(&t.ID, &t.CustomerID, &kind, &amount, &t.Description, &dateNS); err != nil {
		return ledger.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return ledger.Transaction{}, fmt.Errorf("scan transaction %s: amount %q: %w", t.ID, amount, err)
	}
	t.Kind = ledger.Kind(kind)
	t.Amount = d
	t.Date = time.Unix(0, dateNS).UTC()
	return t, nil
}
