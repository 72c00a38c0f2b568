package cart

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rocketshoes/cart/internal/domain"
	"github.com/rocketshoes/cart/internal/notify"
	"github.com/rocketshoes/cart/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockCatalog serves products and stock from maps
type mockCatalog struct {
	mu       sync.Mutex
	products map[int64]domain.Product
	stock    map[int64]int
	err      error
	calls    int
}

func newMockCatalog() *mockCatalog {
	return &mockCatalog{
		products: map[int64]domain.Product{
			1: {ID: 1, Title: "Tênis de Caminhada Leve Confortável", Price: decimal.RequireFromString("179.9"), Image: "https://example.com/1.jpg"},
			2: {ID: 2, Title: "Tênis VR Caminhada Confortável Detalhes Couro Masculino", Price: decimal.RequireFromString("139.9"), Image: "https://example.com/2.jpg"},
		},
		stock: map[int64]int{1: 5, 2: 1},
	}
}

func (m *mockCatalog) GetProduct(_ context.Context, productID int64) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.products[productID]
	if !ok {
		return nil, errors.New("product not found")
	}
	return &p, nil
}

func (m *mockCatalog) GetStock(_ context.Context, productID int64) (*domain.Stock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	amount, ok := m.stock[productID]
	if !ok {
		return nil, errors.New("stock not found")
	}
	return &domain.Stock{ProductID: productID, Amount: amount}, nil
}

type recordingNotifier struct {
	mu  sync.Mutex
	got []domain.Notification
}

func (r *recordingNotifier) Notify(_ context.Context, n domain.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, n)
}

func (r *recordingNotifier) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.got))
	for i, n := range r.got {
		out[i] = n.Message
	}
	return out
}

func (r *recordingNotifier) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = nil
}

// failingStorage fails every Set once fail is true
type failingStorage struct {
	*storage.MemoryStorage
	fail bool
}

func (f *failingStorage) Set(ctx context.Context, key, value string) error {
	if f.fail {
		return errors.New("disk full")
	}
	return f.MemoryStorage.Set(ctx, key, value)
}

type fixture struct {
	store    *Store
	catalog  *mockCatalog
	storage  *failingStorage
	notifier *recordingNotifier
}

func setupStore(t *testing.T) *fixture {
	f := &fixture{
		catalog:  newMockCatalog(),
		storage:  &failingStorage{MemoryStorage: storage.NewMemoryStorage()},
		notifier: &recordingNotifier{},
	}
	f.store = f.open(t)
	return f
}

func (f *fixture) open(t *testing.T) *Store {
	store, err := New(context.Background(), Config{
		Catalog:  f.catalog,
		Storage:  f.storage,
		Notifier: f.notifier,
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func (f *fixture) add(t *testing.T, productID int64) domain.Cart {
	c, err := f.store.AddProduct(context.Background(), productID)
	require.NoError(t, err)
	return c
}

func (f *fixture) remove(t *testing.T, productID int64) domain.Cart {
	c, err := f.store.RemoveProduct(context.Background(), productID)
	require.NoError(t, err)
	return c
}

// persisted decodes the stored cart
func (f *fixture) persisted(t *testing.T) domain.Cart {
	raw, err := f.storage.Get(context.Background(), DefaultKey)
	require.NoError(t, err)
	c, err := decode(raw)
	require.NoError(t, err)
	return c
}

func TestNew_EmptyStorage(t *testing.T) {
	f := setupStore(t)

	assert.Empty(t, f.store.Cart())
	assert.Empty(t, f.notifier.messages())
}

func TestNew_MalformedStorageFallsBackToEmpty(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"invalid json", `[{"id":1,`},
		{"not an array", `{"id":1}`},
		{"zero amount", `[{"id":1,"amount":0}]`},
		{"missing id", `[{"title":"x","amount":1}]`},
		{"duplicate id", `[{"id":1,"amount":1},{"id":1,"amount":2}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fixture{
				catalog:  newMockCatalog(),
				storage:  &failingStorage{MemoryStorage: storage.NewMemoryStorage()},
				notifier: &recordingNotifier{},
			}
			require.NoError(t, f.storage.Set(context.Background(), DefaultKey, tt.raw))

			store := f.open(t)
			assert.Empty(t, store.Cart())
		})
	}
}

func TestNew_StorageErrorFails(t *testing.T) {
	_, err := New(context.Background(), Config{
		Catalog: newMockCatalog(),
		Storage: brokenStorage{},
	})
	assert.ErrorContains(t, err, "load cart")
}

type brokenStorage struct{}

func (brokenStorage) Get(context.Context, string) (string, error) { return "", errors.New("io error") }
func (brokenStorage) Set(context.Context, string, string) error   { return errors.New("io error") }
func (brokenStorage) Close() error                                { return nil }

func TestAddProduct_NewItem(t *testing.T) {
	f := setupStore(t)

	f.add(t, 1)

	cart := f.store.Cart()
	require.Len(t, cart, 1)
	assert.Equal(t, int64(1), cart[0].ID)
	assert.Equal(t, 1, cart[0].Amount)
	assert.Equal(t, "Tênis de Caminhada Leve Confortável", cart[0].Title)
	assert.Equal(t, []string{notify.MsgAdded}, f.notifier.messages())
	assert.Equal(t, 1, f.persisted(t)[0].Amount)
}

func TestAddProduct_IncrementsExisting(t *testing.T) {
	f := setupStore(t)

	f.add(t, 1)
	f.add(t, 2)
	cart := f.add(t, 1)

	assert.Equal(t, f.store.Cart(), cart, "returned cart is the committed one")
	require.Len(t, cart, 2)
	assert.Equal(t, int64(1), cart[0].ID, "insertion order must be kept")
	assert.Equal(t, 2, cart[0].Amount)
	assert.Equal(t, int64(2), cart[1].ID)
	assert.Equal(t, 1, cart[1].Amount)
}

func TestAddProduct_NeverExceedsStock(t *testing.T) {
	f := setupStore(t)
	ctx := context.Background()

	var succeeded int
	for i := 0; i < 8; i++ {
		if _, err := f.store.AddProduct(ctx, 1); err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrOutOfStock)
		}
	}

	assert.Equal(t, 5, succeeded)
	assert.Equal(t, 5, f.store.Cart().AmountOf(1))
	assert.Equal(t, 5, f.persisted(t).AmountOf(1))
}

func TestAddProduct_OutOfStockLeavesCartUnchanged(t *testing.T) {
	f := setupStore(t)
	ctx := context.Background()
	f.add(t, 2) // stock of 2 is 1
	before := f.store.Cart()
	f.notifier.reset()

	_, err := f.store.AddProduct(ctx, 2)

	assert.ErrorIs(t, err, ErrOutOfStock)
	assert.Equal(t, before, f.store.Cart())
	assert.Equal(t, before, f.persisted(t))
	assert.Equal(t, []string{notify.MsgOutOfStock}, f.notifier.messages())
}

func TestAddProduct_ZeroStock(t *testing.T) {
	f := setupStore(t)
	f.catalog.stock[1] = 0

	_, err := f.store.AddProduct(context.Background(), 1)

	assert.ErrorIs(t, err, ErrOutOfStock)
	assert.Empty(t, f.store.Cart())
}

func TestAddProduct_CatalogError(t *testing.T) {
	f := setupStore(t)
	f.catalog.err = errors.New("connection refused")

	_, err := f.store.AddProduct(context.Background(), 1)

	assert.ErrorIs(t, err, ErrAddFailed)
	assert.ErrorContains(t, err, "connection refused")
	assert.Empty(t, f.store.Cart())
	assert.Equal(t, []string{notify.MsgAddFailed}, f.notifier.messages())
}

func TestAddProduct_UnknownProduct(t *testing.T) {
	f := setupStore(t)

	_, err := f.store.AddProduct(context.Background(), 42)

	assert.ErrorIs(t, err, ErrAddFailed)
	assert.Equal(t, []string{notify.MsgAddFailed}, f.notifier.messages())
}

func TestAddProduct_PersistFailureKeepsMemoryInSync(t *testing.T) {
	f := setupStore(t)
	ctx := context.Background()
	f.add(t, 1)
	f.notifier.reset()
	f.storage.fail = true

	_, err := f.store.AddProduct(ctx, 1)

	assert.ErrorIs(t, err, ErrAddFailed)
	assert.Equal(t, 1, f.store.Cart().AmountOf(1))
	assert.Equal(t, 1, f.persisted(t).AmountOf(1))
	assert.Equal(t, []string{notify.MsgAddFailed}, f.notifier.messages())
}

func TestRemoveProduct_Present(t *testing.T) {
	f := setupStore(t)
	f.add(t, 1)
	f.add(t, 2)
	f.notifier.reset()

	cart := f.remove(t, 1)

	assert.Equal(t, f.store.Cart(), cart)
	require.Len(t, cart, 1)
	assert.Equal(t, -1, cart.Find(1))
	assert.Equal(t, int64(2), cart[0].ID)
	assert.Equal(t, cart, f.persisted(t))
	assert.Empty(t, f.notifier.messages(), "successful removal is silent")
}

func TestRemoveProduct_Absent(t *testing.T) {
	f := setupStore(t)
	ctx := context.Background()
	f.add(t, 1)
	before := f.store.Cart()
	f.notifier.reset()

	_, err := f.store.RemoveProduct(ctx, 2)

	assert.ErrorIs(t, err, ErrNotInCart)
	assert.Equal(t, before, f.store.Cart())
	assert.Equal(t, []string{notify.MsgRemoveFailed}, f.notifier.messages())
}

func TestRemoveProduct_PersistFailure(t *testing.T) {
	f := setupStore(t)
	ctx := context.Background()
	f.add(t, 1)
	f.notifier.reset()
	f.storage.fail = true

	_, err := f.store.RemoveProduct(ctx, 1)

	assert.ErrorIs(t, err, ErrRemoveFailed)
	assert.Len(t, f.store.Cart(), 1)
	assert.Equal(t, []string{notify.MsgRemoveFailed}, f.notifier.messages())
}

func TestUpdateProductAmount_Success(t *testing.T) {
	f := setupStore(t)
	ctx := context.Background()
	f.add(t, 1)
	f.notifier.reset()

	cart, err := f.store.UpdateProductAmount(ctx, domain.AmountUpdate{ProductID: 1, Amount: 4})
	require.NoError(t, err)
	assert.Equal(t, 4, cart.AmountOf(1))

	assert.Equal(t, 4, f.store.Cart().AmountOf(1))
	assert.Equal(t, 4, f.persisted(t).AmountOf(1))
	assert.Empty(t, f.notifier.messages())
}

func TestUpdateProductAmount_NonPositiveIsSilent(t *testing.T) {
	f := setupStore(t)
	ctx := context.Background()
	f.add(t, 1)
	before := f.store.Cart()
	f.notifier.reset()

	for _, amount := range []int{0, -1} {
		_, err := f.store.UpdateProductAmount(ctx, domain.AmountUpdate{ProductID: 1, Amount: amount})
		assert.NoError(t, err)
	}

	assert.Equal(t, before, f.store.Cart())
	assert.Empty(t, f.notifier.messages())
}

func TestUpdateProductAmount_OutOfStock(t *testing.T) {
	f := setupStore(t)
	ctx := context.Background()
	f.add(t, 1)
	before := f.store.Cart()
	f.notifier.reset()

	_, err := f.store.UpdateProductAmount(ctx, domain.AmountUpdate{ProductID: 1, Amount: 6})

	assert.ErrorIs(t, err, ErrOutOfStock)
	assert.Equal(t, before, f.store.Cart())
	assert.Equal(t, []string{notify.MsgOutOfStock}, f.notifier.messages())
}

func TestUpdateProductAmount_AbsentIsSilent(t *testing.T) {
	f := setupStore(t)

	_, err := f.store.UpdateProductAmount(context.Background(), domain.AmountUpdate{ProductID: 1, Amount: 2})

	assert.NoError(t, err)
	assert.Empty(t, f.store.Cart())
	assert.Empty(t, f.notifier.messages())
	_, err = f.storage.Get(context.Background(), DefaultKey)
	assert.ErrorIs(t, err, storage.ErrKeyNotFound, "no-op must not write")
}

func TestUpdateProductAmount_CatalogError(t *testing.T) {
	f := setupStore(t)
	f.catalog.err = errors.New("timeout")

	_, err := f.store.UpdateProductAmount(context.Background(), domain.AmountUpdate{ProductID: 1, Amount: 0})

	assert.ErrorIs(t, err, ErrUpdateFailed)
	assert.Equal(t, []string{notify.MsgUpdateFailed}, f.notifier.messages())
}

func TestStore_RoundTripThroughStorage(t *testing.T) {
	f := setupStore(t)
	f.add(t, 2)
	f.add(t, 1)
	want := f.add(t, 1)
	require.NoError(t, f.store.Close())

	reopened := f.open(t)
	got := reopened.Cart()

	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].ID, got[i].ID)
		assert.Equal(t, want[i].Title, got[i].Title)
		assert.Equal(t, want[i].Image, got[i].Image)
		assert.Equal(t, want[i].Amount, got[i].Amount)
		assert.True(t, want[i].Price.Equal(got[i].Price))
	}
}

func TestStore_Scenario(t *testing.T) {
	f := setupStore(t)
	ctx := context.Background()

	assert.Equal(t, 1, f.add(t, 1).AmountOf(1))
	assert.Equal(t, 2, f.add(t, 1).AmountOf(1))

	_, err := f.store.UpdateProductAmount(ctx, domain.AmountUpdate{ProductID: 1, Amount: 10})
	assert.ErrorIs(t, err, ErrOutOfStock)
	assert.Equal(t, 2, f.store.Cart().AmountOf(1))

	assert.Empty(t, f.remove(t, 1))
	assert.Empty(t, f.store.Cart())
	assert.Empty(t, f.persisted(t))

	assert.Equal(t, []string{notify.MsgAdded, notify.MsgAdded, notify.MsgOutOfStock}, f.notifier.messages())
}

func TestStore_ConcurrentAddsAreSerialized(t *testing.T) {
	f := setupStore(t)
	f.catalog.stock[1] = 5

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded, outOfStock := 0, 0

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.store.AddProduct(context.Background(), 1)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrOutOfStock):
				outOfStock++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, succeeded)
	assert.Equal(t, 15, outOfStock)
	assert.Equal(t, 5, f.store.Cart().AmountOf(1))
	assert.Equal(t, 5, f.persisted(t).AmountOf(1))
}

func TestStore_Closed(t *testing.T) {
	f := setupStore(t)
	require.NoError(t, f.store.Close())
	require.NoError(t, f.store.Close(), "close is idempotent")

	_, err := f.store.AddProduct(context.Background(), 1)
	assert.ErrorIs(t, err, ErrClosed)
	assert.Zero(t, f.catalog.calls)
}

func TestStore_CartIsASnapshot(t *testing.T) {
	f := setupStore(t)
	f.add(t, 1)

	snapshot := f.store.Cart()
	snapshot[0].Amount = 99

	assert.Equal(t, 1, f.store.Cart().AmountOf(1))
}

func TestStore_CancelledContextNeverRuns(t *testing.T) {
	f := setupStore(t)
	f.add(t, 2)
	before := f.store.Cart()
	f.notifier.reset()
	calls := f.catalog.calls

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for i := 0; i < 50; i++ {
		c, err := f.store.AddProduct(ctx, 1)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Nil(t, c)

		_, err = f.store.RemoveProduct(ctx, 2)
		assert.ErrorIs(t, err, context.Canceled)

		_, err = f.store.UpdateProductAmount(ctx, domain.AmountUpdate{ProductID: 2, Amount: 1})
		assert.ErrorIs(t, err, context.Canceled)
	}

	assert.Equal(t, before, f.store.Cart())
	assert.Equal(t, before, f.persisted(t))
	assert.Empty(t, f.notifier.messages())
	assert.Equal(t, calls, f.catalog.calls)
}

// blockingCatalog holds GetStock until release is closed
type blockingCatalog struct {
	*mockCatalog
	started chan struct{}
	release chan struct{}
}

func (b *blockingCatalog) GetStock(ctx context.Context, productID int64) (*domain.Stock, error) {
	b.started <- struct{}{}
	<-b.release
	return b.mockCatalog.GetStock(ctx, productID)
}

func TestStore_ExpiredWhileQueuedNeverRuns(t *testing.T) {
	catalog := &blockingCatalog{
		mockCatalog: newMockCatalog(),
		started:     make(chan struct{}, 1),
		release:     make(chan struct{}),
	}
	notifier := &recordingNotifier{}
	store, err := New(context.Background(), Config{
		Catalog:  catalog,
		Storage:  storage.NewMemoryStorage(),
		Notifier: notifier,
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	// the first update occupies the worker
	first := make(chan error, 1)
	go func() {
		_, err := store.UpdateProductAmount(context.Background(), domain.AmountUpdate{ProductID: 1, Amount: 1})
		first <- err
	}()
	<-catalog.started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	queued := make(chan error, 1)
	go func() {
		_, err := store.AddProduct(ctx, 1)
		queued <- err
	}()

	<-ctx.Done()
	close(catalog.release)

	require.NoError(t, <-first)
	assert.ErrorIs(t, <-queued, context.DeadlineExceeded)
	assert.Empty(t, store.Cart())
	assert.Empty(t, notifier.messages())
}
