package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/khata/internal/gateway"
	"github.com/roach88/khata/internal/ledger"
)

// createTestStore creates a new file-backed store with deterministic ids
// and a clock that advances one minute per call.
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	base := []Option{
		WithIDs(gateway.NewSequenceGenerator("id")),
		WithClock(tickingClock()),
	}
	s, err := Open(path, append(base, opts...)...)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func tickingClock() func() time.Time {
	var mu sync.Mutex
	now := time.Date(2023, 10, 25, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Minute)
		return now
	}
}

// createTestCustomer inserts a customer or fails the test.
func createTestCustomer(t *testing.T, s *Store, name, city string) ledger.Customer {
	t.Helper()
	c, err := s.CreateCustomer(context.Background(), ledger.CustomerFields{Name: name, City: city})
	if err != nil {
		t.Fatalf("CreateCustomer(%q) failed: %v", name, err)
	}
	return c
}

// createTestTransaction inserts a transaction or fails the test.
func createTestTransaction(t *testing.T, s *Store, customerID string, kind ledger.Kind, amount string) ledger.Transaction {
	t.Helper()
	tx, err := s.CreateTransaction(context.Background(), ledger.NewTransaction{
		CustomerID: customerID,
		Kind:       kind,
		Amount:     decimal.RequireFromString(amount),
	})
	if err != nil {
		t.Fatalf("CreateTransaction(%s %s) failed: %v", kind, amount, err)
	}
	return tx
}
