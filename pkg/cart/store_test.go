package cart_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"cartflow/pkg/cart"
	"cartflow/pkg/catalog"
	catalogmem "cartflow/pkg/catalog/memory"
	"cartflow/pkg/kv"
	kvmem "cartflow/pkg/kv/memory"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// recorder captures notifier messages for assertions.
type recorder struct {
	mu       sync.Mutex
	messages []string
}

func (r *recorder) Error(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
}

func (r *recorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.messages...)
}

// flakyCatalog wraps a repository and fails selected calls.
type flakyCatalog struct {
	*catalogmem.Repository
	stockErr   error
	productErr error
}

func (f *flakyCatalog) Stock(ctx context.Context, id int64) (catalog.Stock, error) {
	if f.stockErr != nil {
		return catalog.Stock{}, f.stockErr
	}
	return f.Repository.Stock(ctx, id)
}

func (f *flakyCatalog) Product(ctx context.Context, id int64) (catalog.Product, error) {
	if f.productErr != nil {
		return catalog.Product{}, f.productErr
	}
	return f.Repository.Product(ctx, id)
}

func randomProduct(id int64) catalog.Product {
	return catalog.Product{
		ID:    id,
		Title: gofakeit.ProductName(),
		Price: decimal.NewFromFloat(gofakeit.Price(1, 500)),
		Image: gofakeit.URL(),
	}
}

func newStore(t *testing.T, service catalog.Service, store kv.Store) (*cart.Store, *recorder) {
	t.Helper()
	rec := &recorder{}
	s, err := cart.New(t.Context(), cart.Config{
		Catalog:  service,
		KV:       store,
		Notifier: rec,
		Key:      "cart:" + gofakeit.Username(),
	})
	require.NoError(t, err)
	return s, rec
}

var cmpOpts = cmp.Options{
	cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) }),
}

func TestAddProduct(t *testing.T) {
	ctx := t.Context()

	repo := catalogmem.New()
	p1 := randomProduct(1)
	p2 := randomProduct(2)
	repo.Add(p1, 10)
	repo.Add(p2, 10)

	s, rec := newStore(t, repo, kvmem.New())

	require.NoError(t, s.AddProduct(ctx, 2))
	require.NoError(t, s.AddProduct(ctx, 1))
	require.NoError(t, s.AddProduct(ctx, 2))
	require.NoError(t, s.AddProduct(ctx, 2))

	want := []cart.Entry{
		{Product: p2, Amount: 3},
		{Product: p1, Amount: 1},
	}
	assert.Empty(t, cmp.Diff(want, s.Items(), cmpOpts))
	assert.Empty(t, rec.all())
}

func TestAddProduct_OutOfStock(t *testing.T) {
	ctx := t.Context()

	repo := catalogmem.New()
	repo.Add(randomProduct(1), 5)

	s, rec := newStore(t, repo, kvmem.New())

	for i := 0; i < 5; i++ {
		require.NoError(t, s.AddProduct(ctx, 1))
	}
	require.Len(t, s.Items(), 1)
	assert.Equal(t, 5, s.Items()[0].Amount)

	err := s.AddProduct(ctx, 1)
	require.ErrorIs(t, err, cart.ErrOutOfStock)
	assert.Equal(t, 5, s.Items()[0].Amount)
	assert.Equal(t, []string{cart.MsgOutOfStock}, rec.all())
}

func TestAddProduct_ZeroStock(t *testing.T) {
	repo := catalogmem.New()
	repo.Add(randomProduct(1), 0)

	s, rec := newStore(t, repo, kvmem.New())

	err := s.AddProduct(t.Context(), 1)
	require.ErrorIs(t, err, cart.ErrOutOfStock)
	assert.Empty(t, s.Items())
	assert.Equal(t, []string{cart.MsgOutOfStock}, rec.all())
}

func TestAddProduct_ServiceFailure(t *testing.T) {
	ctx := t.Context()
	boom := errors.New("connection refused")

	t.Run("stock fetch fails", func(t *testing.T) {
		repo := catalogmem.New()
		repo.Add(randomProduct(1), 10)
		s, rec := newStore(t, &flakyCatalog{Repository: repo, stockErr: boom}, kvmem.New())

		err := s.AddProduct(ctx, 1)
		require.ErrorIs(t, err, boom)
		assert.Empty(t, s.Items())
		assert.Equal(t, []string{cart.MsgAddFailed}, rec.all())
	})

	t.Run("product fetch fails", func(t *testing.T) {
		repo := catalogmem.New()
		repo.Add(randomProduct(1), 10)
		s, rec := newStore(t, &flakyCatalog{Repository: repo, productErr: boom}, kvmem.New())

		err := s.AddProduct(ctx, 1)
		require.ErrorIs(t, err, boom)
		assert.Empty(t, s.Items())
		assert.Equal(t, []string{cart.MsgAddFailed}, rec.all())
	})

	t.Run("unknown product", func(t *testing.T) {
		s, rec := newStore(t, catalogmem.New(), kvmem.New())

		err := s.AddProduct(ctx, 99)
		require.ErrorIs(t, err, catalog.ErrNotFound)
		assert.Empty(t, s.Items())
		assert.Equal(t, []string{cart.MsgAddFailed}, rec.all())
	})
}

func TestRemoveProduct(t *testing.T) {
	ctx := t.Context()

	repo := catalogmem.New()
	repo.Add(randomProduct(1), 10)
	repo.Add(randomProduct(2), 10)

	s, rec := newStore(t, repo, kvmem.New())
	require.NoError(t, s.AddProduct(ctx, 1))
	require.NoError(t, s.AddProduct(ctx, 2))

	require.NoError(t, s.RemoveProduct(ctx, 1))

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, int64(2), items[0].ID)
	assert.Empty(t, rec.all())
}

func TestRemoveProduct_Absent(t *testing.T) {
	ctx := t.Context()

	repo := catalogmem.New()
	repo.Add(randomProduct(1), 10)

	store := kvmem.New()
	s, rec := newStore(t, repo, store)
	require.NoError(t, s.AddProduct(ctx, 1))
	before := s.Items()

	err := s.RemoveProduct(ctx, 2)
	require.ErrorIs(t, err, cart.ErrNotFound)
	assert.Empty(t, cmp.Diff(before, s.Items(), cmpOpts))
	assert.Equal(t, []string{cart.MsgRemoveFailed}, rec.all())
}

func TestUpdateProductAmount(t *testing.T) {
	ctx := t.Context()

	repo := catalogmem.New()
	p1 := randomProduct(1)
	p2 := randomProduct(2)
	repo.Add(p1, 10)
	repo.Add(p2, 10)

	s, rec := newStore(t, repo, kvmem.New())
	require.NoError(t, s.AddProduct(ctx, 1))
	require.NoError(t, s.AddProduct(ctx, 1))
	require.NoError(t, s.AddProduct(ctx, 2))

	require.NoError(t, s.UpdateProductAmount(ctx, 1, 7))

	want := []cart.Entry{
		{Product: p1, Amount: 7},
		{Product: p2, Amount: 1},
	}
	assert.Empty(t, cmp.Diff(want, s.Items(), cmpOpts))
	assert.Empty(t, rec.all())
}

func TestUpdateProductAmount_ZeroIsNoOp(t *testing.T) {
	ctx := t.Context()

	// A catalog that fails every call proves the guard short-circuits
	// before any fetch.
	boom := errors.New("unreachable")
	s, rec := newStore(t, &flakyCatalog{Repository: catalogmem.New(), stockErr: boom, productErr: boom}, kvmem.New())

	require.NoError(t, s.UpdateProductAmount(ctx, 1, 0))
	require.NoError(t, s.UpdateProductAmount(ctx, 1, -3))
	assert.Empty(t, s.Items())
	assert.Empty(t, rec.all())
}

func TestUpdateProductAmount_OutOfStock(t *testing.T) {
	ctx := t.Context()

	repo := catalogmem.New()
	repo.Add(randomProduct(1), 4)

	s, rec := newStore(t, repo, kvmem.New())
	require.NoError(t, s.AddProduct(ctx, 1))
	before := s.Items()

	err := s.UpdateProductAmount(ctx, 1, 5)
	require.ErrorIs(t, err, cart.ErrOutOfStock)
	assert.Empty(t, cmp.Diff(before, s.Items(), cmpOpts))
	assert.Equal(t, []string{cart.MsgOutOfStock}, rec.all())
}

func TestUpdateProductAmount_AbsentIsSilent(t *testing.T) {
	ctx := t.Context()

	repo := catalogmem.New()
	repo.Add(randomProduct(1), 10)

	s, rec := newStore(t, repo, kvmem.New())

	require.NoError(t, s.UpdateProductAmount(ctx, 1, 3))
	assert.Empty(t, s.Items())
	assert.Empty(t, rec.all())
}

func TestUpdateProductAmount_ServiceFailure(t *testing.T) {
	ctx := t.Context()
	boom := errors.New("connection refused")

	repo := catalogmem.New()
	repo.Add(randomProduct(1), 10)
	flaky := &flakyCatalog{Repository: repo}

	s, rec := newStore(t, flaky, kvmem.New())
	require.NoError(t, s.AddProduct(ctx, 1))

	flaky.stockErr = boom
	err := s.UpdateProductAmount(ctx, 1, 3)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, s.Items()[0].Amount)
	assert.Equal(t, []string{cart.MsgUpdateFailed}, rec.all())
}

// brokenKV fails writes after an optional number of successes.
type brokenKV struct {
	kv.Store
	failAfter int
	writes    int
}

func (b *brokenKV) Set(ctx context.Context, key, value string) error {
	if b.writes >= b.failAfter {
		return errors.New("disk full")
	}
	b.writes++
	return b.Store.Set(ctx, key, value)
}

func TestPersistenceFailureLeavesSnapshotUntouched(t *testing.T) {
	ctx := t.Context()

	repo := catalogmem.New()
	repo.Add(randomProduct(1), 10)

	broken := &brokenKV{Store: kvmem.New(), failAfter: 1}
	s, rec := newStore(t, repo, broken)

	require.NoError(t, s.AddProduct(ctx, 1))
	before := s.Items()

	err := s.AddProduct(ctx, 1)
	require.Error(t, err)
	assert.NotErrorIs(t, err, cart.ErrOutOfStock)
	assert.Empty(t, cmp.Diff(before, s.Items(), cmpOpts))
	assert.Equal(t, []string{cart.MsgAddFailed}, rec.all())
}

func TestPersistenceRoundTrip(t *testing.T) {
	ctx := t.Context()

	repo := catalogmem.New()
	for id := int64(1); id <= 3; id++ {
		repo.Add(randomProduct(id), 10)
	}

	store := kvmem.New()
	rec := &recorder{}
	cfg := cart.Config{Catalog: repo, KV: store, Notifier: rec, Key: "cart:roundtrip"}

	s, err := cart.New(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, s.AddProduct(ctx, 3))
	require.NoError(t, s.AddProduct(ctx, 1))
	require.NoError(t, s.AddProduct(ctx, 3))
	require.NoError(t, s.UpdateProductAmount(ctx, 1, 4))
	require.NoError(t, s.AddProduct(ctx, 2))
	require.NoError(t, s.RemoveProduct(ctx, 2))

	reloaded, err := cart.New(ctx, cfg)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(s.Items(), reloaded.Items(), cmpOpts))
}

func TestNew_EmptyAndUnparseable(t *testing.T) {
	ctx := t.Context()
	repo := catalogmem.New()

	t.Run("absent key", func(t *testing.T) {
		s, _ := newStore(t, repo, kvmem.New())
		assert.Empty(t, s.Items())
	})

	t.Run("unparseable value", func(t *testing.T) {
		store := kvmem.New()
		require.NoError(t, store.Set(ctx, "cart:garbled", "{not json"))
		s, err := cart.New(ctx, cart.Config{Catalog: repo, KV: store, Key: "cart:garbled"})
		require.NoError(t, err)
		assert.Empty(t, s.Items())
	})
}

func TestSnapshotIsACopy(t *testing.T) {
	ctx := t.Context()

	repo := catalogmem.New()
	repo.Add(randomProduct(1), 10)

	s, _ := newStore(t, repo, kvmem.New())
	require.NoError(t, s.AddProduct(ctx, 1))

	items := s.Items()
	items[0].Amount = 99

	assert.Equal(t, 1, s.Items()[0].Amount)
}

func TestConcurrentAdds(t *testing.T) {
	ctx := t.Context()
	const workers = 16

	repo := catalogmem.New()
	repo.Add(randomProduct(1), workers)

	s, rec := newStore(t, repo, kvmem.New())

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.AddProduct(ctx, 1))
		}()
	}
	wg.Wait()

	require.Len(t, s.Items(), 1)
	assert.Equal(t, workers, s.Items()[0].Amount)
	assert.Empty(t, rec.all())
}

func TestProvider(t *testing.T) {
	ctx := t.Context()

	repo := catalogmem.New()
	repo.Add(randomProduct(1), 10)
	store := kvmem.New()

	p := cart.NewProvider(repo, store, nil, nil)

	alice, err := p.Store(ctx, "alice")
	require.NoError(t, err)
	again, err := p.Store(ctx, "alice")
	require.NoError(t, err)
	assert.Same(t, alice, again)

	bob, err := p.Store(ctx, "bob")
	require.NoError(t, err)
	require.NoError(t, alice.AddProduct(ctx, 1))
	assert.Empty(t, bob.Items(), "carts must be isolated per owner")

	_, err = p.Store(ctx, "")
	require.Error(t, err)

	// the persisted key is scoped per owner
	_, err = store.Get(ctx, "cart:alice")
	require.NoError(t, err)
	_, err = store.Get(ctx, "cart:bob")
	require.ErrorIs(t, err, kv.ErrNoKey)
}
