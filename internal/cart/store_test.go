package cart_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/go-cmp/cmp"
	"github.com/nikolayk812/coursecart/internal/cart"
	"github.com/nikolayk812/coursecart/internal/domain"
	"github.com/nikolayk812/coursecart/internal/port"
	"github.com/nikolayk812/coursecart/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/text/currency"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestStore_Add(t *testing.T) {
	store := newReadyStore(t, repository.NewMemoryStorage())

	entry := randomEntry()

	added, err := store.Add(entry)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = store.Add(entry)
	require.NoError(t, err)
	assert.False(t, added)

	assert.Equal(t, 1, store.Len())
	assert.True(t, store.Contains(entry.Slug))
	assertEntries(t, []domain.CartEntry{entry}, store.Entries())
}

func TestStore_Add_Invalid(t *testing.T) {
	store := newReadyStore(t, repository.NewMemoryStorage())

	tests := []struct {
		name      string
		entry     domain.CartEntry
		wantError string
	}{
		{
			name:      "add entry with empty slug: error",
			entry:     domain.CartEntry{Title: "x", Price: decimal.NewFromInt(1)},
			wantError: "slug is empty",
		},
		{
			name:      "add entry with negative price: error",
			entry:     domain.CartEntry{Slug: "x", Price: decimal.NewFromInt(-5)},
			wantError: "price[-5] is negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.Add(tt.entry)
			require.EqualError(t, err, tt.wantError)
			assert.Zero(t, store.Len())
		})
	}
}

func TestStore_Add_KeepsInsertionOrder(t *testing.T) {
	store := newReadyStore(t, repository.NewMemoryStorage())

	var want []domain.CartEntry
	for range 5 {
		entry := randomEntry()
		want = append(want, entry)

		_, err := store.Add(entry)
		require.NoError(t, err)
	}

	assertEntries(t, want, store.Entries())
}

func TestStore_Remove(t *testing.T) {
	store := newReadyStore(t, repository.NewMemoryStorage())

	a, b := randomEntry(), randomEntry()
	mustAdd(t, store, a, b)

	removed, err := store.Remove(a.Slug)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.False(t, store.Contains(a.Slug))

	removed, err = store.Remove(a.Slug)
	require.NoError(t, err)
	assert.False(t, removed)

	assertEntries(t, []domain.CartEntry{b}, store.Entries())
}

func TestStore_Clear(t *testing.T) {
	store := newReadyStore(t, repository.NewMemoryStorage())

	a, b, c := randomEntry(), randomEntry(), randomEntry()
	mustAdd(t, store, a, b, c)
	_, err := store.Remove(b.Slug)
	require.NoError(t, err)

	require.NoError(t, store.Clear())

	assert.Zero(t, store.Len())
	assert.Empty(t, store.Entries())
	assert.True(t, store.Total().IsZero())

	// clearing an empty cart is fine too
	require.NoError(t, store.Clear())
}

func TestStore_Checkout(t *testing.T) {
	ctx := t.Context()
	storage := repository.NewMemoryStorage()
	store := newReadyStore(t, storage, cart.WithCurrency(currency.USD))

	a, b := randomEntry(), randomEntry()
	a.Price = decimal.NewFromInt(1500)
	b.Price = decimal.NewFromInt(2750)
	mustAdd(t, store, a, b)

	var seen []int
	unsubscribe := store.Subscribe(func(snap cart.Snapshot) {
		seen = append(seen, len(snap.Entries))
	})
	defer unsubscribe()

	taken, total, err := store.Checkout()
	require.NoError(t, err)

	assertEntries(t, []domain.CartEntry{a, b}, taken)
	assert.True(t, decimal.NewFromInt(4250).Equal(total.Amount), "total: %s", total.Amount)
	assert.Equal(t, currency.USD, total.Currency)
	assert.Zero(t, store.Len())
	assert.Equal(t, []int{0}, seen)

	require.NoError(t, store.Flush(ctx))
	data, err := storage.Load(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))

	// an empty cart yields nothing and changes nothing
	taken, total, err = store.Checkout()
	require.NoError(t, err)
	assert.Empty(t, taken)
	assert.True(t, total.IsZero())
	assert.Equal(t, []int{0}, seen)
}

func TestStore_Checkout_NotReady(t *testing.T) {
	store := newStore(t, repository.NewMemoryStorage())

	_, _, err := store.Checkout()
	require.ErrorIs(t, err, cart.ErrNotReady)
}

func TestStore_Checkout_ConcurrentAdds(t *testing.T) {
	store := newReadyStore(t, repository.NewMemoryStorage())

	const adders = 50

	var (
		wg      sync.WaitGroup
		taken   []domain.CartEntry
		added   = make([]domain.CartEntry, adders)
		checked = make(chan struct{})
	)

	for i := range adders {
		added[i] = randomEntry()
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Add(added[i])
			assert.NoError(t, err)
		}()
	}

	go func() {
		defer close(checked)
		for range 10 {
			entries, _, err := store.Checkout()
			assert.NoError(t, err)
			taken = append(taken, entries...)
		}
	}()

	wg.Wait()
	<-checked

	// every added entry was either checked out exactly once or is still in the cart
	rest, _, err := store.Checkout()
	require.NoError(t, err)
	taken = append(taken, rest...)

	slugs := make(map[string]int, len(taken))
	for _, entry := range taken {
		slugs[entry.Slug]++
	}
	require.Len(t, slugs, adders)
	for _, entry := range added {
		assert.Equal(t, 1, slugs[entry.Slug], entry.Slug)
	}
}

func TestStore_Total(t *testing.T) {
	prices := []int64{1000, 2500, 750}

	orders := [][]int{{0, 1, 2}, {2, 1, 0}, {1, 2, 0}}
	for _, order := range orders {
		store := newReadyStore(t, repository.NewMemoryStorage(), cart.WithCurrency(currency.USD))

		for _, i := range order {
			entry := randomEntry()
			entry.Price = decimal.NewFromInt(prices[i])
			mustAdd(t, store, entry)
		}

		total := store.Total()
		assert.True(t, decimal.NewFromInt(4250).Equal(total.Amount), "total: %s", total.Amount)
		assert.Equal(t, currency.USD, total.Currency)
	}
}

func TestStore_Total_NoFloatDrift(t *testing.T) {
	store := newReadyStore(t, repository.NewMemoryStorage())

	for range 10 {
		entry := randomEntry()
		entry.Price = decimal.RequireFromString("0.1")
		mustAdd(t, store, entry)
	}

	assert.Equal(t, "1", store.Total().Amount.String())
	assert.Equal(t, domain.NGN, store.Total().Currency)
}

func TestStore_Initialize(t *testing.T) {
	stored := []domain.CartEntry{randomEntry(), randomEntry()}
	data, err := json.Marshal(stored)
	require.NoError(t, err)

	tests := []struct {
		name        string
		data        []byte
		loadErr     error
		wantEntries []domain.CartEntry
		wantWarn    string
	}{
		{
			name:        "hydrate persisted cart: ok",
			data:        data,
			wantEntries: stored,
		},
		{
			name: "nothing persisted: empty",
		},
		{
			name:     "invalid JSON text: empty",
			data:     []byte(`[{"slug":`),
			wantWarn: "discarding persisted cart",
		},
		{
			name:     "non-array JSON value: empty",
			data:     []byte(`{"slug":"a","price":1}`),
			wantWarn: "discarding persisted cart",
		},
		{
			name:     "element without slug: empty",
			data:     []byte(`[{"slug":"a","price":1},{"title":"b","price":2}]`),
			wantWarn: "discarding persisted cart",
		},
		{
			name:     "element with negative price: empty",
			data:     []byte(`[{"slug":"a","price":-1}]`),
			wantWarn: "discarding persisted cart",
		},
		{
			name:     "element with null price: empty",
			data:     []byte(`[{"slug":"a","title":"A","price":null}]`),
			wantWarn: "discarding persisted cart",
		},
		{
			name:     "element is not an object: empty",
			data:     []byte(`[1,2,3]`),
			wantWarn: "discarding persisted cart",
		},
		{
			name:        "duplicate slugs: first wins",
			data:        []byte(`[{"slug":"a","title":"first","price":1},{"slug":"a","title":"second","price":2}]`),
			wantEntries: []domain.CartEntry{{Slug: "a", Title: "first", Price: decimal.NewFromInt(1)}},
		},
		{
			name:     "storage unavailable: empty",
			loadErr:  errors.New("connection refused"),
			wantWarn: "cart load failed, starting empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage := newFakeStorage()
			storage.data = tt.data
			storage.loadErr = tt.loadErr

			logger, logs := newObservedLogger()
			store := newStore(t, storage, cart.WithLogger(logger))

			assert.False(t, store.Ready())
			store.Initialize(t.Context())
			assert.True(t, store.Ready())

			assertEntries(t, tt.wantEntries, store.Entries())

			if tt.wantWarn != "" {
				assert.Equal(t, 1, logs.FilterMessage(tt.wantWarn).Len())
			} else {
				assert.Zero(t, logs.FilterLevelExact(zapcore.WarnLevel).Len())
			}
		})
	}
}

func TestStore_Initialize_OnlyOnce(t *testing.T) {
	storage := newFakeStorage()
	store := newStore(t, storage)

	store.Initialize(t.Context())
	mustAdd(t, store, randomEntry())

	storage.mu.Lock()
	storage.data = []byte(`[]`)
	storage.mu.Unlock()

	store.Initialize(t.Context())
	assert.Equal(t, 1, store.Len())
}

func TestStore_NotReady(t *testing.T) {
	store := newStore(t, repository.NewMemoryStorage())

	_, err := store.Add(randomEntry())
	require.ErrorIs(t, err, cart.ErrNotReady)

	_, err = store.Remove("x")
	require.ErrorIs(t, err, cart.ErrNotReady)

	require.ErrorIs(t, store.Clear(), cart.ErrNotReady)
	assert.False(t, store.Snapshot().Ready)
}

func TestStore_Closed(t *testing.T) {
	store := cart.New(repository.NewMemoryStorage())
	store.Initialize(t.Context())

	require.NoError(t, store.Close(t.Context()))
	require.NoError(t, store.Close(t.Context()))

	_, err := store.Add(randomEntry())
	require.ErrorIs(t, err, cart.ErrClosed)
}

func TestStore_PersistsEveryMutation(t *testing.T) {
	ctx := t.Context()
	storage := repository.NewMemoryStorage()
	store := newReadyStore(t, storage)

	a, b := randomEntry(), randomEntry()
	mustAdd(t, store, a, b)
	require.NoError(t, store.Flush(ctx))
	assertPersisted(t, storage, []domain.CartEntry{a, b})

	_, err := store.Remove(a.Slug)
	require.NoError(t, err)
	require.NoError(t, store.Flush(ctx))
	assertPersisted(t, storage, []domain.CartEntry{b})

	require.NoError(t, store.Clear())
	require.NoError(t, store.Flush(ctx))

	data, err := storage.Load(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))
}

func TestStore_SurvivesRestart(t *testing.T) {
	ctx := t.Context()
	storage := repository.NewMemoryStorage()

	first := cart.New(storage)
	first.Initialize(ctx)
	a, b := randomEntry(), randomEntry()
	mustAdd(t, first, a, b)
	require.NoError(t, first.Close(ctx))

	second := newReadyStore(t, storage)
	assertEntries(t, []domain.CartEntry{a, b}, second.Entries())
	assert.True(t, first.Total().Amount.Equal(second.Total().Amount))
}

func TestStore_NoopMutationsDoNotPersist(t *testing.T) {
	storage := newFakeStorage()
	store := newReadyStore(t, storage)

	entry := randomEntry()
	mustAdd(t, store, entry)
	require.NoError(t, store.Flush(t.Context()))
	saves := storage.saveCount()

	mustAdd(t, store, entry)
	_, err := store.Remove("missing")
	require.NoError(t, err)
	require.NoError(t, store.Flush(t.Context()))

	assert.Equal(t, saves, storage.saveCount())
}

func TestStore_PersistenceFailureIsSwallowed(t *testing.T) {
	storage := newFakeStorage()
	storage.saveErr = errors.New("quota exceeded")

	logger, logs := newObservedLogger()
	store := newReadyStore(t, storage, cart.WithLogger(logger))

	entry := randomEntry()
	added, err := store.Add(entry)
	require.NoError(t, err)
	assert.True(t, added)
	require.NoError(t, store.Flush(t.Context()))

	// in-memory state stays authoritative
	assert.True(t, store.Contains(entry.Slug))

	failures := logs.FilterMessage("cart persistence failed")
	require.Equal(t, 1, failures.Len())
	assert.Equal(t, "quota exceeded", failures.All()[0].ContextMap()["error"])
}

func TestStore_SlowStorageDoesNotBlockMutations(t *testing.T) {
	storage := newFakeStorage()
	storage.block = make(chan struct{})

	store := newReadyStore(t, storage)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for range 10 {
			_, _ = store.Add(randomEntry())
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("mutations blocked on storage")
	}

	close(storage.block)
	require.NoError(t, store.Flush(t.Context()))

	// writes coalesce to the latest snapshot
	assertPersisted(t, storage, store.Entries())
	assert.LessOrEqual(t, storage.saveCount(), 10)
}

func TestStore_Flush_ContextCanceled(t *testing.T) {
	storage := newFakeStorage()
	storage.block = make(chan struct{})
	store := newReadyStore(t, storage)
	defer close(storage.block)

	mustAdd(t, store, randomEntry())

	ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()

	require.ErrorIs(t, store.Flush(ctx), context.DeadlineExceeded)
}

func TestStore_Subscribe(t *testing.T) {
	store := newStore(t, repository.NewMemoryStorage())

	var (
		mu    sync.Mutex
		seen  []cart.Snapshot
		reads []int
	)
	unsubscribe := store.Subscribe(func(s cart.Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, s)
		// reading from a callback is allowed
		reads = append(reads, store.Len())
	})

	store.Initialize(t.Context())
	a, b := randomEntry(), randomEntry()
	mustAdd(t, store, a, b, a)
	_, err := store.Remove(a.Slug)
	require.NoError(t, err)

	unsubscribe()
	require.NoError(t, store.Clear())

	mu.Lock()
	defer mu.Unlock()

	require.Len(t, seen, 4)
	assert.True(t, seen[0].Ready)
	assert.Empty(t, seen[0].Entries)
	assertEntries(t, []domain.CartEntry{a}, seen[1].Entries)
	assertEntries(t, []domain.CartEntry{a, b}, seen[2].Entries)
	assertEntries(t, []domain.CartEntry{b}, seen[3].Entries)
	assert.True(t, b.Price.Equal(seen[3].Total.Amount))
	assert.Equal(t, []int{0, 1, 2, 1}, reads)
}

func TestStore_SubscribersSeeSameSequence(t *testing.T) {
	store := newReadyStore(t, repository.NewMemoryStorage())

	var (
		mu           sync.Mutex
		first, other []int
	)
	store.Subscribe(func(s cart.Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		first = append(first, len(s.Entries))
	})
	store.Subscribe(func(s cart.Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		other = append(other, len(s.Entries))
	})

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = store.Add(randomEntry())
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()

	require.Len(t, first, 20)
	assert.Equal(t, first, other)
	for i, n := range first {
		assert.Equal(t, i+1, n)
	}
}

func TestStore_EntriesAreCopies(t *testing.T) {
	store := newReadyStore(t, repository.NewMemoryStorage())

	entry := randomEntry()
	entry.Payload = map[string]json.RawMessage{"rating": json.RawMessage(`4.5`)}
	mustAdd(t, store, entry)

	entries := store.Entries()
	entries[0].Title = "changed"
	entries[0].Payload["rating"] = json.RawMessage(`1`)

	got := store.Entries()[0]
	assert.Equal(t, entry.Title, got.Title)
	assert.JSONEq(t, `4.5`, string(got.Payload["rating"]))
}

type fakeStorage struct {
	mu      sync.Mutex
	data    []byte
	loadErr error
	saveErr error
	saves   int
	block   chan struct{}
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{}
}

func (s *fakeStorage) Load(_ context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loadErr != nil {
		return nil, s.loadErr
	}
	if s.data == nil {
		return nil, port.ErrNotFound
	}

	return s.data, nil
}

func (s *fakeStorage) Save(_ context.Context, data []byte) error {
	if s.block != nil {
		<-s.block
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	s.data = data

	return nil
}

func (s *fakeStorage) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.saves
}

func newStore(t *testing.T, storage port.CartStorage, opts ...cart.Option) *cart.Store {
	t.Helper()

	store := cart.New(storage, opts...)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		assert.NoError(t, store.Close(ctx))
	})

	return store
}

func newReadyStore(t *testing.T, storage port.CartStorage, opts ...cart.Option) *cart.Store {
	t.Helper()

	store := newStore(t, storage, opts...)
	store.Initialize(t.Context())
	require.True(t, store.Ready())

	return store
}

func newObservedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

func mustAdd(t *testing.T, store *cart.Store, entries ...domain.CartEntry) {
	t.Helper()

	for _, entry := range entries {
		_, err := store.Add(entry)
		require.NoError(t, err)
	}
}

func randomEntry() domain.CartEntry {
	return domain.CartEntry{
		Slug:  gofakeit.UUID(),
		Title: gofakeit.Sentence(3),
		Price: decimal.NewFromFloat(gofakeit.Price(1, 100)),
	}
}

func assertEntries(t *testing.T, expected, actual []domain.CartEntry) {
	t.Helper()

	opts := cmp.Options{
		cmp.Comparer(func(x, y decimal.Decimal) bool {
			return x.Equal(y)
		}),
	}

	if len(expected) == 0 && len(actual) == 0 {
		return
	}

	diff := cmp.Diff(expected, actual, opts)
	assert.Empty(t, diff)
}

func assertPersisted(t *testing.T, storage port.CartStorage, expected []domain.CartEntry) {
	t.Helper()

	data, err := storage.Load(t.Context())
	require.NoError(t, err)

	var persisted []domain.CartEntry
	require.NoError(t, json.Unmarshal(data, &persisted))

	assertEntries(t, expected, persisted)
}
