package store

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/khata/internal/ledger"
)

func TestListCustomers_EmptyNotNil(t *testing.T) {
	s := createTestStore(t)

	list, err := s.ListCustomers(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestListCustomers_CreationOrderWithHistories(t *testing.T) {
	s := createTestStore(t)
	rahul := createTestCustomer(t, s, "Rahul", "Pune")
	asha := createTestCustomer(t, s, "Asha", "")
	createTestTransaction(t, s, rahul.ID, ledger.Gave, "500")
	createTestTransaction(t, s, rahul.ID, ledger.Received, "200")
	createTestTransaction(t, s, asha.ID, ledger.Received, "150")

	list, err := s.ListCustomers(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, rahul.ID, list[0].ID)
	assert.Equal(t, asha.ID, list[1].ID)
	assert.True(t, list[0].Balance().Equal(decimal.NewFromInt(300)))
	assert.True(t, list[1].Balance().Equal(decimal.NewFromInt(-150)))
	assert.NotNil(t, list[1].Transactions)
}

func TestListTransactions_NewestFirst(t *testing.T) {
	s := createTestStore(t)
	c := createTestCustomer(t, s, "Rahul", "")
	first := createTestTransaction(t, s, c.ID, ledger.Gave, "500")
	second := createTestTransaction(t, s, c.ID, ledger.Received, "200")

	history, err := s.ListTransactions(context.Background(), c.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, second.ID, history[0].ID)
	assert.Equal(t, first.ID, history[1].ID)
	assert.True(t, history[0].Date.After(history[1].Date))
	assert.True(t, first.Date.Equal(history[1].Date))
}

func TestListTransactions_UnknownCustomer(t *testing.T) {
	s := createTestStore(t)
	_, err := s.ListTransactions(context.Background(), "ghost")
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestListTransactions_EmptyNotNil(t *testing.T) {
	s := createTestStore(t)
	c := createTestCustomer(t, s, "Rahul", "")

	history, err := s.ListTransactions(context.Background(), c.ID)
	require.NoError(t, err)
	assert.NotNil(t, history)
	assert.Empty(t, history)
}
