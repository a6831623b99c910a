package ledger

import (
	"slices"
	"sync"

	"github.com/shopspring/decimal"
)

// Store is the local cached copy of the ledger.
//
// Thread-safety: all methods are safe for concurrent use. Readers never
// observe a partially applied refetch.
//
// INVARIANTS:
//   - order holds exactly the keys of customers, in remote iteration order
//   - every cached history is date-descending
//   - listSeq and historySeq only grow
type Store struct {
	mu        sync.RWMutex
	order     []string
	customers map[string]Customer
	version   uint64

	// Sequence numbers of the newest applied refetches.
	listSeq    uint64
	historySeq map[string]uint64
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		customers:  make(map[string]Customer),
		historySeq: make(map[string]uint64),
	}
}

// UpsertCustomers replaces the whole customer collection with list.
//
// This is a total replacement, not a merge: customers absent from list
// disappear, so the view never shows stale entries next to fresh ones.
func (s *Store) UpsertCustomers(list []Customer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaceLocked(list, 0, true)
}

// ApplyCustomers is UpsertCustomers for a refetch issued at seq.
//
// Returns false (and changes nothing) if a newer or equal list was already
// applied. A customer whose history was refreshed after seq keeps that
// newer history.
func (s *Store) ApplyCustomers(seq uint64, list []Customer) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq <= s.listSeq {
		return false
	}
	s.replaceLocked(list, seq, false)
	return true
}

func (s *Store) replaceLocked(list []Customer, seq uint64, force bool) {
	order := make([]string, 0, len(list))
	customers := make(map[string]Customer, len(list))
	historySeq := make(map[string]uint64, len(list))

	for _, c := range list {
		if _, dup := customers[c.ID]; dup {
			continue
		}
		c.Transactions = cloneHistory(c.Transactions)
		if prev, ok := s.customers[c.ID]; ok && !force && s.historySeq[c.ID] >= seq {
			c.Transactions = prev.Transactions
			historySeq[c.ID] = s.historySeq[c.ID]
		} else {
			historySeq[c.ID] = seq
		}
		order = append(order, c.ID)
		customers[c.ID] = c
	}

	s.order = order
	s.customers = customers
	s.historySeq = historySeq
	if seq > s.listSeq {
		s.listSeq = seq
	}
	s.version++
}

// SetTransactionHistory replaces the cached history of one customer.
// Returns a NOT_FOUND error if the customer is not in the store.
func (s *Store) SetTransactionHistory(customerID string, list []Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.customers[customerID]
	if !ok {
		return NotFound("set transaction history", customerID)
	}
	c.Transactions = cloneHistory(list)
	s.customers[customerID] = c
	s.version++
	return nil
}

// ApplyHistory is SetTransactionHistory for a refetch issued at seq.
// Returns applied=false without error when a newer history is already held.
func (s *Store) ApplyHistory(seq uint64, customerID string, list []Transaction) (applied bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.customers[customerID]
	if !ok {
		return false, NotFound("apply transaction history", customerID)
	}
	if seq <= s.historySeq[customerID] {
		return false, nil
	}
	c.Transactions = cloneHistory(list)
	s.customers[customerID] = c
	s.historySeq[customerID] = seq
	s.version++
	return true, nil
}

// Customer returns a copy of the customer with the given id.
func (s *Store) Customer(id string) (Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.customers[id]
	if !ok {
		return Customer{}, NotFound("lookup customer", id)
	}
	c.Transactions = slices.Clone(c.Transactions)
	return c, nil
}

// Has reports whether the customer is present.
func (s *Store) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.customers[id]
	return ok
}

// Customers returns copies of all customers in store order.
// Returns an empty slice (not nil) when the store is empty.
func (s *Store) Customers() []Customer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Customer, 0, len(s.order))
	for _, id := range s.order {
		c := s.customers[id]
		c.Transactions = slices.Clone(c.Transactions)
		out = append(out, c)
	}
	return out
}

// Transactions returns a copy of the customer's cached history.
func (s *Store) Transactions(customerID string) ([]Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.customers[customerID]
	if !ok {
		return nil, NotFound("list transactions", customerID)
	}
	out := slices.Clone(c.Transactions)
	if out == nil {
		out = []Transaction{}
	}
	return out, nil
}

// Balance computes the customer's balance from the cached history.
func (s *Store) Balance(customerID string) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.customers[customerID]
	if !ok {
		return decimal.Zero, NotFound("compute balance", customerID)
	}
	return Balance(c.Transactions), nil
}

// Version increases on every applied change. Views compare it to decide
// whether to recompute.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Len returns the number of customers.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Reset empties the store. Sequence guards are kept so results of refetches
// issued before the reset are still dropped.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = nil
	s.customers = make(map[string]Customer)
	s.version++
}

func cloneHistory(txs []Transaction) []Transaction {
	out := make([]Transaction, len(txs))
	copy(out, txs)
	SortHistory(out)
	return out
}
