package gateway

import (
	"context"
	"crypto/subtle"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/khata/internal/ledger"
)

// Op names a gateway operation, used to inject one-shot failures.
type Op string

const (
	OpListCustomers     Op = "list_customers"
	OpCreateCustomer    Op = "create_customer"
	OpUpdateCustomer    Op = "update_customer"
	OpDeleteCustomer    Op = "delete_customer"
	OpListTransactions  Op = "list_transactions"
	OpCreateTransaction Op = "create_transaction"
	OpDeleteTransaction Op = "delete_transaction"
	OpAuthenticate      Op = "authenticate"
)

// Memory is an in-process remote store.
//
// It behaves like the SQLite store: customers are listed in creation order,
// histories newest first, deletes cascade to transactions.
//
// Thread-safety: all methods are safe for concurrent use.
type Memory struct {
	mu           sync.RWMutex
	customerIDs  IDGenerator
	txIDs        IDGenerator
	now          func() time.Time
	pin          string
	strictDelete bool

	order        []string
	customers    map[string]ledger.Customer
	transactions map[string]ledger.Transaction
	failures     map[Op]error
}

// MemoryOption configures a Memory remote.
type MemoryOption func(*Memory)

// WithIDs sets the generators for customer and transaction ids.
func WithIDs(customers, transactions IDGenerator) MemoryOption {
	return func(m *Memory) {
		m.customerIDs = customers
		m.txIDs = transactions
	}
}

// WithClock sets the time source for CreatedAt and transaction dates.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) { m.now = now }
}

// WithPIN sets the PIN accepted by Authenticate.
func WithPIN(pin string) MemoryOption {
	return func(m *Memory) { m.pin = pin }
}

// WithStrictDelete makes DeleteCustomer refuse customers with a non-zero balance.
func WithStrictDelete(strict bool) MemoryOption {
	return func(m *Memory) { m.strictDelete = strict }
}

// NewMemory creates an empty in-memory remote.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		customerIDs:  UUIDv7Generator{},
		txIDs:        UUIDv7Generator{},
		now:          time.Now,
		customers:    make(map[string]ledger.Customer),
		transactions: make(map[string]ledger.Transaction),
		failures:     make(map[Op]error),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Fail makes the next call of op return err. The failure fires once.
func (m *Memory) Fail(op Op, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[op] = err
}

// takeFailureLocked pops an injected failure for op.
func (m *Memory) takeFailureLocked(op Op) error {
	err, ok := m.failures[op]
	if !ok {
		return nil
	}
	delete(m.failures, op)
	return err
}

func (m *Memory) ListCustomers(ctx context.Context) ([]ledger.Customer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailureLocked(OpListCustomers); err != nil {
		return nil, err
	}

	out := make([]ledger.Customer, 0, len(m.order))
	for _, id := range m.order {
		c := m.customers[id]
		c.Transactions = m.historyLocked(id)
		out = append(out, c)
	}
	return out, nil
}

func (m *Memory) CreateCustomer(ctx context.Context, fields ledger.CustomerFields) (ledger.Customer, error) {
	if err := ctx.Err(); err != nil {
		return ledger.Customer{}, err
	}
	fields, err := fields.Validate()
	if err != nil {
		return ledger.Customer{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailureLocked(OpCreateCustomer); err != nil {
		return ledger.Customer{}, err
	}

	c := ledger.Customer{
		ID:           m.customerIDs.Generate(),
		Name:         fields.Name,
		FatherName:   fields.FatherName,
		City:         fields.City,
		Mobile:       fields.Mobile,
		CreatedAt:    m.now().UTC(),
		Transactions: []ledger.Transaction{},
	}
	m.customers[c.ID] = c
	m.order = append(m.order, c.ID)
	return c, nil
}

func (m *Memory) UpdateCustomer(ctx context.Context, id string, fields ledger.CustomerFields) (ledger.Customer, error) {
	if err := ctx.Err(); err != nil {
		return ledger.Customer{}, err
	}
	fields, err := fields.Validate()
	if err != nil {
		return ledger.Customer{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailureLocked(OpUpdateCustomer); err != nil {
		return ledger.Customer{}, err
	}

	c, ok := m.customers[id]
	if !ok {
		return ledger.Customer{}, fmt.Errorf("update customer %s: %w", id, ledger.ErrNotFound)
	}
	c.Name = fields.Name
	c.FatherName = fields.FatherName
	c.City = fields.City
	c.Mobile = fields.Mobile
	m.customers[id] = c
	c.Transactions = m.historyLocked(id)
	return c, nil
}

func (m *Memory) DeleteCustomer(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailureLocked(OpDeleteCustomer); err != nil {
		return err
	}

	if _, ok := m.customers[id]; !ok {
		return fmt.Errorf("delete customer %s: %w", id, ledger.ErrNotFound)
	}
	history := m.historyLocked(id)
	if m.strictDelete && !ledger.Balance(history).IsZero() {
		return fmt.Errorf("delete customer %s: %w", id, ErrDeleteRefused)
	}

	for _, t := range history {
		delete(m.transactions, t.ID)
	}
	delete(m.customers, id)
	for i, cid := range m.order {
		if cid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *Memory) ListTransactions(ctx context.Context, customerID string) ([]ledger.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailureLocked(OpListTransactions); err != nil {
		return nil, err
	}
	if _, ok := m.customers[customerID]; !ok {
		return nil, fmt.Errorf("list transactions %s: %w", customerID, ledger.ErrNotFound)
	}
	return m.historyLocked(customerID), nil
}

func (m *Memory) CreateTransaction(ctx context.Context, nt ledger.NewTransaction) (ledger.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return ledger.Transaction{}, err
	}
	if err := nt.Validate(); err != nil {
		return ledger.Transaction{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailureLocked(OpCreateTransaction); err != nil {
		return ledger.Transaction{}, err
	}
	if _, ok := m.customers[nt.CustomerID]; !ok {
		return ledger.Transaction{}, fmt.Errorf("create transaction for %s: %w", nt.CustomerID, ledger.ErrNotFound)
	}

	t := ledger.Transaction{
		ID:          m.txIDs.Generate(),
		CustomerID:  nt.CustomerID,
		Kind:        nt.Kind,
		Amount:      nt.Amount,
		Description: nt.Description,
		Date:        m.now().UTC(),
	}
	m.transactions[t.ID] = t
	return t, nil
}

func (m *Memory) DeleteTransaction(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailureLocked(OpDeleteTransaction); err != nil {
		return err
	}
	if _, ok := m.transactions[id]; !ok {
		return fmt.Errorf("delete transaction %s: %w", id, ledger.ErrNotFound)
	}
	delete(m.transactions, id)
	return nil
}

func (m *Memory) Authenticate(ctx context.Context, pin string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailureLocked(OpAuthenticate); err != nil {
		return false, err
	}
	if m.pin == "" {
		return false, ErrNoPIN
	}
	return subtle.ConstantTimeCompare([]byte(m.pin), []byte(pin)) == 1, nil
}

// Balance is the remote's own view of a customer's balance.
func (m *Memory) Balance(customerID string) decimal.Decimal {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return ledger.Balance(m.historyLocked(customerID))
}

// historyLocked returns the customer's transactions newest first.
func (m *Memory) historyLocked(customerID string) []ledger.Transaction {
	out := []ledger.Transaction{}
	for _, t := range m.transactions {
		if t.CustomerID == customerID {
			out = append(out, t)
		}
	}
	ledger.SortHistory(out)
	return out
}

var _ Gateway = (*Memory)(nil)
