package ledger

import (
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func customer(id, name, city string, txs ...Transaction) Customer {
	return Customer{ID: id, Name: name, City: city, Transactions: txs}
}

func TestStore_UpsertIsTotalReplacement(t *testing.T) {
	s := NewStore()
	s.UpsertCustomers([]Customer{customer("c1", "Rahul", ""), customer("c2", "Amit", "")})
	require.Equal(t, 2, s.Len())

	s.UpsertCustomers([]Customer{customer("c2", "Amit Verma", "")})

	assert.False(t, s.Has("c1"), "stale entry must not survive a refetch")
	got, err := s.Customer("c2")
	require.NoError(t, err)
	assert.Equal(t, "Amit Verma", got.Name)
}

func TestStore_PreservesRemoteOrder(t *testing.T) {
	s := NewStore()
	s.UpsertCustomers([]Customer{customer("b", "B", ""), customer("a", "A", ""), customer("c", "C", "")})

	var ids []string
	for _, c := range s.Customers() {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"b", "a", "c"}, ids)
}

func TestStore_HistoryIsNormalisedNewestFirst(t *testing.T) {
	s := NewStore()
	s.UpsertCustomers([]Customer{customer("c1", "Rahul", "", tx("t1", Gave, "500", 25), tx("t2", Received, "200", 26))})

	txs, err := s.Transactions("c1")
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "t2", txs[0].ID)
	assert.Equal(t, "t1", txs[1].ID)
}

func TestStore_BalanceNotFound(t *testing.T) {
	s := NewStore()
	_, err := s.Balance("ghost")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	err = s.SetTransactionHistory("ghost", nil)
	assert.True(t, IsNotFound(err))
}

func TestStore_SetTransactionHistory(t *testing.T) {
	s := NewStore()
	s.UpsertCustomers([]Customer{customer("c1", "Rahul", "")})

	require.NoError(t, s.SetTransactionHistory("c1", []Transaction{tx("t1", Gave, "500", 25)}))
	bal, err := s.Balance("c1")
	require.NoError(t, err)
	assert.True(t, bal.Equal(decimal.NewFromInt(500)))
}

func TestStore_DeleteChangesBalanceBySignedAmount(t *testing.T) {
	s := NewStore()
	gave := tx("t1", Gave, "500", 25)
	recv := tx("t2", Received, "200", 26)
	s.UpsertCustomers([]Customer{customer("c1", "Rahul", "", gave, recv)})
	before, _ := s.Balance("c1")

	require.NoError(t, s.SetTransactionHistory("c1", []Transaction{gave}))
	after, _ := s.Balance("c1")

	txs, _ := s.Transactions("c1")
	assert.Len(t, txs, 1)
	assert.True(t, before.Sub(after).Equal(recv.Signed()))
}

func TestStore_ApplyCustomersDropsStaleList(t *testing.T) {
	s := NewStore()
	assert.True(t, s.ApplyCustomers(2, []Customer{customer("c1", "Rahul", "", tx("t1", Gave, "500", 25))}))

	// A list issued earlier arrives late.
	assert.False(t, s.ApplyCustomers(1, []Customer{customer("c1", "Rahul", "")}))

	bal, err := s.Balance("c1")
	require.NoError(t, err)
	assert.True(t, bal.Equal(decimal.NewFromInt(500)))
}

func TestStore_ApplyCustomersKeepsNewerHistory(t *testing.T) {
	s := NewStore()
	require.True(t, s.ApplyCustomers(1, []Customer{customer("c1", "Rahul", "")}))

	applied, err := s.ApplyHistory(3, "c1", []Transaction{tx("t1", Gave, "500", 25)})
	require.NoError(t, err)
	require.True(t, applied)

	// List issued at 2 carries the older, empty history for c1.
	require.True(t, s.ApplyCustomers(2, []Customer{customer("c1", "Rahul S", "")}))

	got, err := s.Customer("c1")
	require.NoError(t, err)
	assert.Equal(t, "Rahul S", got.Name)
	assert.Len(t, got.Transactions, 1, "history from seq 3 must survive list from seq 2")
}

func TestStore_ApplyHistoryDropsStale(t *testing.T) {
	s := NewStore()
	require.True(t, s.ApplyCustomers(1, []Customer{customer("c1", "Rahul", "")}))

	applied, err := s.ApplyHistory(5, "c1", []Transaction{tx("t1", Gave, "500", 25), tx("t2", Received, "200", 26)})
	require.NoError(t, err)
	require.True(t, applied)

	applied, err = s.ApplyHistory(4, "c1", []Transaction{tx("t1", Gave, "500", 25)})
	require.NoError(t, err)
	assert.False(t, applied)

	bal, _ := s.Balance("c1")
	assert.True(t, bal.Equal(decimal.NewFromInt(300)))
}

func TestStore_ReturnsCopies(t *testing.T) {
	s := NewStore()
	s.UpsertCustomers([]Customer{customer("c1", "Rahul", "", tx("t1", Gave, "500", 25))})

	got, _ := s.Customer("c1")
	got.Transactions[0].Amount = decimal.NewFromInt(1)
	got.Name = "changed"

	again, _ := s.Customer("c1")
	assert.Equal(t, "Rahul", again.Name)
	assert.True(t, again.Transactions[0].Amount.Equal(decimal.NewFromInt(500)))
}

func TestStore_VersionAndReset(t *testing.T) {
	s := NewStore()
	v0 := s.Version()
	s.UpsertCustomers([]Customer{customer("c1", "Rahul", "")})
	assert.Greater(t, s.Version(), v0)

	s.Reset()
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.Customers())
}

func TestStore_ConcurrentReadersAndWriters(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 1; i <= 20; i++ {
		wg.Add(2)
		go func(seq uint64) {
			defer wg.Done()
			s.ApplyCustomers(seq, []Customer{customer("c1", "Rahul", "", tx("t1", Gave, "1", 1))})
		}(uint64(i))
		go func() {
			defer wg.Done()
			_ = s.Customers()
			_, _ = s.Balance("c1")
		}()
	}
	wg.Wait()

	bal, err := s.Balance("c1")
	require.NoError(t, err)
	assert.True(t, bal.Equal(decimal.NewFromInt(1)))
}
