package reconcile

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/khata/internal/gateway"
	"github.com/roach88/khata/internal/ledger"
	"github.com/roach88/khata/internal/nav"
	"github.com/roach88/khata/internal/testutil"
)

// countingRemote counts gateway calls.
type countingRemote struct {
	*gateway.Memory
	mutations atomic.Int32
}

func (r *countingRemote) CreateCustomer(ctx context.Context, f ledger.CustomerFields) (ledger.Customer, error) {
	r.mutations.Add(1)
	return r.Memory.CreateCustomer(ctx, f)
}

func (r *countingRemote) CreateTransaction(ctx context.Context, nt ledger.NewTransaction) (ledger.Transaction, error) {
	r.mutations.Add(1)
	return r.Memory.CreateTransaction(ctx, nt)
}

type fixture struct {
	remote *countingRemote
	store  *ledger.Store
	nav    *nav.Machine
	ctl    *Controller
}

func newFixture(t *testing.T, opts ...gateway.MemoryOption) *fixture {
	t.Helper()
	remote := &countingRemote{Memory: testutil.NewRemote(opts...)}
	store := ledger.NewStore()
	machine := nav.NewMachine(store)
	return &fixture{
		remote: remote,
		store:  store,
		nav:    machine,
		ctl:    New(remote, store, machine),
	}
}

func (f *fixture) balance(t *testing.T, id string) decimal.Decimal {
	t.Helper()
	b, err := f.store.Balance(id)
	require.NoError(t, err)
	return b
}

func (f *fixture) history(t *testing.T, id string) []ledger.Transaction {
	t.Helper()
	h, err := f.store.Transactions(id)
	require.NoError(t, err)
	return h
}

func TestController_RahulSharmaScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	format := ledger.NewFormatter("INR")

	rahul, err := f.ctl.CreateCustomer(ctx, ledger.CustomerFields{Name: "Rahul Sharma"})
	require.NoError(t, err)
	require.True(t, f.store.Has(rahul.ID))
	assert.Equal(t, "to receive, ₹0", format.Describe(f.balance(t, rahul.ID)).String())

	require.NoError(t, f.ctl.OpenCustomer(ctx, rahul.ID))

	_, err = f.ctl.CreateTransaction(ctx, rahul.ID, ledger.Gave, "500", "")
	require.NoError(t, err)
	assert.True(t, f.balance(t, rahul.ID).Equal(decimal.NewFromInt(500)))

	received, err := f.ctl.CreateTransaction(ctx, rahul.ID, ledger.Received, "200", "cash")
	require.NoError(t, err)
	assert.True(t, f.balance(t, rahul.ID).Equal(decimal.NewFromInt(300)))
	assert.Equal(t, received.ID, f.history(t, rahul.ID)[0].ID, "newest first")

	require.NoError(t, f.ctl.DeleteTransaction(ctx, received.ID, rahul.ID))
	assert.True(t, f.balance(t, rahul.ID).Equal(decimal.NewFromInt(500)))
	assert.Len(t, f.history(t, rahul.ID), 1)
}

func TestController_DeleteTransactionChangesBalanceBySignedAmount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c, err := f.ctl.CreateCustomer(ctx, ledger.CustomerFields{Name: "Asha"})
	require.NoError(t, err)
	_, err = f.ctl.CreateTransaction(ctx, c.ID, ledger.Gave, "120.50", "")
	require.NoError(t, err)
	gave, err := f.ctl.CreateTransaction(ctx, c.ID, ledger.Gave, "80", "")
	require.NoError(t, err)

	before := f.balance(t, c.ID)
	n := len(f.history(t, c.ID))
	require.NoError(t, f.ctl.DeleteTransaction(ctx, gave.ID, c.ID))

	assert.Len(t, f.history(t, c.ID), n-1)
	assert.True(t, before.Sub(f.balance(t, c.ID)).Equal(gave.Signed()))
}

func TestController_DeleteCustomerWhileOpen(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	rahul, err := f.ctl.CreateCustomer(ctx, ledger.CustomerFields{Name: "Rahul Sharma", City: "Pune"})
	require.NoError(t, err)
	_, err = f.ctl.CreateCustomer(ctx, ledger.CustomerFields{Name: "Asha", City: "Pune"})
	require.NoError(t, err)

	require.NoError(t, f.ctl.OpenCustomer(ctx, rahul.ID))
	require.NoError(t, f.nav.OpenOverlay(nav.AddTransaction))

	require.NoError(t, f.ctl.DeleteCustomer(ctx, rahul.ID))

	assert.Equal(t, nav.State{}, f.nav.State())
	assert.Equal(t, nav.Exit, f.nav.Back())
	assert.False(t, f.store.Has(rahul.ID))
	assert.Empty(t, ledger.FilterByName(f.store.Customers(), "rahul"))
	for _, g := range ledger.GroupByCity(f.store.Customers()) {
		for _, c := range g.Customers {
			assert.NotEqual(t, rahul.ID, c.ID)
		}
	}
}

func TestController_ValidationCallsNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c, err := f.ctl.CreateCustomer(ctx, ledger.CustomerFields{Name: "Rahul"})
	require.NoError(t, err)
	calls := f.remote.mutations.Load()
	version := f.store.Version()

	_, err = f.ctl.CreateCustomer(ctx, ledger.CustomerFields{Name: "   "})
	assert.True(t, ledger.IsValidation(err))

	for _, amount := range []string{"", "0", "-5", "abc"} {
		_, err = f.ctl.CreateTransaction(ctx, c.ID, ledger.Gave, amount, "")
		assert.True(t, ledger.IsValidation(err), "amount %q", amount)
	}
	_, err = f.ctl.CreateTransaction(ctx, c.ID, ledger.Kind("LENT"), "5", "")
	assert.True(t, ledger.IsValidation(err))

	assert.Equal(t, calls, f.remote.mutations.Load())
	assert.Equal(t, version, f.store.Version())
}

func TestController_RemoteFailureLeavesStoreUntouched(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c, err := f.ctl.CreateCustomer(ctx, ledger.CustomerFields{Name: "Rahul"})
	require.NoError(t, err)
	_, err = f.ctl.CreateTransaction(ctx, c.ID, ledger.Gave, "500", "")
	require.NoError(t, err)

	before := f.store.Customers()
	version := f.store.Version()
	boom := errors.New("connection reset")

	f.remote.Fail(gateway.OpCreateTransaction, boom)
	_, err = f.ctl.CreateTransaction(ctx, c.ID, ledger.Received, "200", "")
	require.Error(t, err)
	assert.True(t, ledger.IsRemote(err))
	assert.ErrorIs(t, err, boom)

	f.remote.Fail(gateway.OpCreateCustomer, boom)
	_, err = f.ctl.CreateCustomer(ctx, ledger.CustomerFields{Name: "Asha"})
	assert.True(t, ledger.IsRemote(err))

	assert.Equal(t, version, f.store.Version())
	assert.Equal(t, before, f.store.Customers())
}

func TestController_RefusedDeleteIsSurfaced(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, gateway.WithStrictDelete(true))
	c, err := f.ctl.CreateCustomer(ctx, ledger.CustomerFields{Name: "Rahul"})
	require.NoError(t, err)
	_, err = f.ctl.CreateTransaction(ctx, c.ID, ledger.Gave, "500", "")
	require.NoError(t, err)

	err = f.ctl.DeleteCustomer(ctx, c.ID)
	assert.True(t, ledger.IsRemote(err))
	assert.ErrorIs(t, err, gateway.ErrDeleteRefused)
	assert.True(t, f.store.Has(c.ID))
}

func TestController_UnknownCustomerRoutesHome(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.ctl.CreateTransaction(ctx, "ghost", ledger.Gave, "5", "")
	assert.True(t, ledger.IsNotFound(err))

	err = f.ctl.OpenCustomer(ctx, "ghost")
	assert.True(t, ledger.IsNotFound(err))
	assert.Equal(t, nav.State{}, f.nav.State())

	err = f.ctl.DeleteTransaction(ctx, "t-9", "ghost")
	assert.True(t, ledger.IsNotFound(err))
}

func TestController_RemoteNotFoundInvalidatesDetail(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c, err := f.ctl.CreateCustomer(ctx, ledger.CustomerFields{Name: "Rahul"})
	require.NoError(t, err)
	require.NoError(t, f.ctl.OpenCustomer(ctx, c.ID))

	// Deleted behind our back.
	require.NoError(t, f.remote.Memory.DeleteCustomer(ctx, c.ID))

	_, err = f.ctl.CreateTransaction(ctx, c.ID, ledger.Gave, "5", "")
	assert.True(t, ledger.IsRemote(err))
	assert.True(t, ledger.IsNotFound(err))
	assert.Equal(t, nav.Home, f.nav.State().Screen)

	require.NoError(t, f.ctl.Refresh(ctx))
	assert.False(t, f.store.Has(c.ID))
}

func TestController_RefreshDropsCustomerOpenElsewhere(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c, err := f.ctl.CreateCustomer(ctx, ledger.CustomerFields{Name: "Rahul"})
	require.NoError(t, err)
	require.NoError(t, f.ctl.OpenCustomer(ctx, c.ID))
	require.NoError(t, f.remote.Memory.DeleteCustomer(ctx, c.ID))

	require.NoError(t, f.ctl.Refresh(ctx))
	assert.Equal(t, nav.State{}, f.nav.State())
}

func TestController_ConfirmDeclined(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c, err := f.ctl.CreateCustomer(ctx, ledger.CustomerFields{Name: "Rahul Sharma"})
	require.NoError(t, err)
	_, err = f.ctl.CreateTransaction(ctx, c.ID, ledger.Gave, "500", "")
	require.NoError(t, err)

	var asked DeletionPrompt
	deleted, err := f.ctl.ConfirmAndDeleteCustomer(ctx, c.ID, func(p DeletionPrompt) bool {
		asked = p
		return false
	})
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.True(t, f.store.Has(c.ID))
	assert.Equal(t, "customer", asked.Target)
	assert.Equal(t, "Delete Rahul Sharma and 1 transaction(s)? Balance to receive, ₹500.", asked.Question)

	deleted, err = f.ctl.ConfirmAndDeleteCustomer(ctx, c.ID, func(DeletionPrompt) bool { return true })
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.False(t, f.store.Has(c.ID))
}

func TestController_TransactionPrompt(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c, _ := f.ctl.CreateCustomer(ctx, ledger.CustomerFields{Name: "Rahul"})
	tx, err := f.ctl.CreateTransaction(ctx, c.ID, ledger.Received, "200", "")
	require.NoError(t, err)

	p, err := f.ctl.TransactionDeletionPrompt(tx.ID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Delete RECEIVED ₹200 from 25 Oct 2023?", p.Question)

	_, err = f.ctl.TransactionDeletionPrompt("t-404", c.ID)
	assert.True(t, ledger.IsNotFound(err))
}

// gatedRemote holds the answer of the first gated call until released.
// The answer is computed before blocking, so it describes older state.
type gatedRemote struct {
	*gateway.Memory
	gateList    bool
	gateHistory bool
	entered     chan struct{}
	release     chan struct{}
	once        sync.Once
}

func newGatedRemote(m *gateway.Memory) *gatedRemote {
	return &gatedRemote{Memory: m, entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedRemote) hold() {
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.entered)
		<-g.release
	}
}

func (g *gatedRemote) ListCustomers(ctx context.Context) ([]ledger.Customer, error) {
	list, err := g.Memory.ListCustomers(ctx)
	if g.gateList {
		g.hold()
	}
	return list, err
}

func (g *gatedRemote) ListTransactions(ctx context.Context, id string) ([]ledger.Transaction, error) {
	txs, err := g.Memory.ListTransactions(ctx, id)
	if g.gateHistory {
		g.hold()
	}
	return txs, err
}

func TestController_OutOfOrderListRefetchDropped(t *testing.T) {
	ctx := context.Background()
	mem := gateway.NewMemory(gateway.WithIDs(gateway.NewSequenceGenerator("c"), gateway.NewSequenceGenerator("t")))
	a, _ := mem.CreateCustomer(ctx, ledger.CustomerFields{Name: "A"})
	b, _ := mem.CreateCustomer(ctx, ledger.CustomerFields{Name: "B"})

	remote := newGatedRemote(mem)
	store := ledger.NewStore()
	machine := nav.NewMachine(store)
	ctl := New(remote, store, machine)
	require.NoError(t, ctl.Refresh(ctx))
	remote.gateList = true

	done := make(chan error, 1)
	go func() {
		_, err := ctl.CreateTransaction(ctx, a.ID, ledger.Gave, "500", "")
		done <- err
	}()
	<-remote.entered

	// B's mutation and refetch complete while A's older list is in flight.
	_, err := ctl.CreateTransaction(ctx, b.ID, ledger.Gave, "300", "")
	require.NoError(t, err)
	close(remote.release)
	require.NoError(t, <-done)

	balA, err := store.Balance(a.ID)
	require.NoError(t, err)
	balB, err := store.Balance(b.ID)
	require.NoError(t, err)
	assert.True(t, balA.Equal(decimal.NewFromInt(500)))
	assert.True(t, balB.Equal(decimal.NewFromInt(300)), "stale list must not resurrect B's old balance")
}

func TestController_HistoryRefetchDiscardedAfterLeavingDetail(t *testing.T) {
	ctx := context.Background()
	mem := gateway.NewMemory()
	c, _ := mem.CreateCustomer(ctx, ledger.CustomerFields{Name: "Rahul"})

	remote := newGatedRemote(mem)
	store := ledger.NewStore()
	machine := nav.NewMachine(store)
	ctl := New(remote, store, machine)
	require.NoError(t, ctl.Refresh(ctx))
	remote.gateHistory = true
	version := store.Version()

	done := make(chan error, 1)
	go func() { done <- ctl.OpenCustomer(ctx, c.ID) }()
	<-remote.entered

	assert.Equal(t, nav.ReturnedHome, machine.Back())
	close(remote.release)
	require.NoError(t, <-done)

	assert.Equal(t, version, store.Version(), "history for a closed detail must be discarded")
}

func TestController_SameCustomerMutationsSerialized(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c, err := f.ctl.CreateCustomer(ctx, ledger.CustomerFields{Name: "Rahul"})
	require.NoError(t, err)
	require.NoError(t, f.ctl.OpenCustomer(ctx, c.ID))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.ctl.CreateTransaction(ctx, c.ID, ledger.Gave, "10", "")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.True(t, f.balance(t, c.ID).Equal(decimal.NewFromInt(100)))
	assert.Len(t, f.history(t, c.ID), 10)
	assert.Zero(t, f.ctl.locks.held())
}
