// Package cart owns the shopping cart: the in-memory entries, their durable
// copy behind port.CartStorage, and the subscribers observing them.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/nikolayk812/coursecart/internal/domain"
	"github.com/nikolayk812/coursecart/internal/port"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/currency"
)

var (
	ErrNotReady = errors.New("cart is not ready")
	ErrClosed   = errors.New("cart is closed")
)

type Snapshot struct {
	Ready   bool
	Entries []domain.CartEntry
	Total   domain.Money
}

type Option func(*Store)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

func WithCurrency(unit currency.Unit) Option {
	return func(s *Store) {
		s.currency = unit
	}
}

func WithWriteTimeout(timeout time.Duration) Option {
	return func(s *Store) {
		s.writeTimeout = timeout
	}
}

// Store is the single mutation authority for the cart. Mutations are
// serialized; subscribers are called in mutation order with the snapshot the
// mutation produced.
type Store struct {
	storage      port.CartStorage
	logger       *zap.Logger
	currency     currency.Unit
	writeTimeout time.Duration

	// writeMu serializes a whole mutation: state change, persistence and notification.
	writeMu sync.Mutex

	mu      sync.RWMutex
	entries []domain.CartEntry
	ready   bool
	closed  bool

	subMu       sync.Mutex
	subscribers map[int]func(Snapshot)
	nextSubID   int

	initOnce  sync.Once
	persister *persister
}

func New(storage port.CartStorage, opts ...Option) *Store {
	s := &Store{
		storage:      storage,
		logger:       zap.NewNop(),
		currency:     domain.NGN,
		writeTimeout: 5 * time.Second,
		subscribers:  make(map[int]func(Snapshot)),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.persister = newPersister(storage, s.logger, s.writeTimeout)

	return s
}

// Initialize hydrates the cart from storage and marks the store ready.
// Missing, unreadable or malformed state yields an empty cart. Only the first
// call has any effect.
func (s *Store) Initialize(ctx context.Context) {
	s.initOnce.Do(func() {
		entries := s.hydrate(ctx)

		s.writeMu.Lock()
		defer s.writeMu.Unlock()

		s.mu.Lock()
		s.entries = entries
		s.ready = true
		snap := s.snapshotLocked()
		s.mu.Unlock()

		s.notify(snap)
	})
}

func (s *Store) hydrate(ctx context.Context) []domain.CartEntry {
	data, err := s.storage.Load(ctx)
	if errors.Is(err, port.ErrNotFound) {
		return nil
	}
	if err != nil {
		s.logger.Warn("cart load failed, starting empty", zap.Error(err))
		return nil
	}

	entries, err := decodeEntries(data)
	if err != nil {
		s.logger.Warn("discarding persisted cart", zap.Error(err))
		return nil
	}

	return entries
}

func decodeEntries(data []byte) ([]domain.CartEntry, error) {
	var stored []domain.CartEntry
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("json.Unmarshal: %w", err)
	}

	entries := make([]domain.CartEntry, 0, len(stored))
	for i, entry := range stored {
		if err := entry.Validate(); err != nil {
			return nil, fmt.Errorf("entry[%d]: %w", i, err)
		}
		if slices.ContainsFunc(entries, bySlug(entry.Slug)) {
			continue
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

func (s *Store) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.ready
}

// Add appends entry unless an entry with the same slug is already present.
// It reports whether the cart changed.
func (s *Store) Add(entry domain.CartEntry) (bool, error) {
	if err := entry.Validate(); err != nil {
		return false, err
	}
	entry = entry.Clone()

	return s.mutate(func(entries []domain.CartEntry) ([]domain.CartEntry, bool) {
		if slices.ContainsFunc(entries, bySlug(entry.Slug)) {
			return entries, false
		}
		return append(entries, entry), true
	})
}

// Remove deletes the entry with slug. It reports whether the cart changed.
func (s *Store) Remove(slug string) (bool, error) {
	return s.mutate(func(entries []domain.CartEntry) ([]domain.CartEntry, bool) {
		i := slices.IndexFunc(entries, bySlug(slug))
		if i < 0 {
			return entries, false
		}
		return slices.Delete(entries, i, i+1), true
	})
}

func (s *Store) Clear() error {
	_, err := s.mutate(func([]domain.CartEntry) ([]domain.CartEntry, bool) {
		return nil, true
	})

	return err
}

// Checkout empties the cart and returns the entries it held and their total,
// as one step. Nothing is persisted or notified when the cart is already empty.
func (s *Store) Checkout() ([]domain.CartEntry, domain.Money, error) {
	var taken []domain.CartEntry

	_, err := s.mutate(func(entries []domain.CartEntry) ([]domain.CartEntry, bool) {
		taken = entries
		return nil, len(entries) > 0
	})
	if err != nil {
		return nil, domain.Money{}, err
	}

	return cloneEntries(taken), s.sum(taken), nil
}

func (s *Store) mutate(fn func([]domain.CartEntry) ([]domain.CartEntry, bool)) (bool, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false, ErrClosed
	}
	if !s.ready {
		s.mu.Unlock()
		return false, ErrNotReady
	}

	entries, changed := fn(slices.Clone(s.entries))
	if !changed {
		s.mu.Unlock()
		return false, nil
	}
	s.entries = entries
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.persist(snap.Entries)
	s.notify(snap)

	return true, nil
}

func (s *Store) persist(entries []domain.CartEntry) {
	if entries == nil {
		entries = []domain.CartEntry{}
	}

	data, err := json.Marshal(entries)
	if err != nil {
		s.logger.Warn("cart serialization failed", zap.Error(err))
		return
	}

	s.persister.enqueue(data)
}

func (s *Store) Total() domain.Money {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sum(s.entries)
}

func (s *Store) sum(entries []domain.CartEntry) domain.Money {
	total := decimal.Zero
	for _, entry := range entries {
		total = total.Add(entry.Price)
	}

	return domain.NewMoney(total, s.currency)
}

func (s *Store) Contains(slug string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.ContainsFunc(s.entries, bySlug(slug))
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.entries)
}

// Entries returns a copy of the cart in insertion order.
func (s *Store) Entries() []domain.CartEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return cloneEntries(s.entries)
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		Ready:   s.ready,
		Entries: cloneEntries(s.entries),
		Total:   s.sum(s.entries),
	}
}

// Subscribe registers fn to receive a snapshot after every change.
// fn may read from the store but must not mutate it.
func (s *Store) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn

	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()

		delete(s.subscribers, id)
	}
}

func (s *Store) notify(snap Snapshot) {
	s.subMu.Lock()
	ids := make([]int, 0, len(s.subscribers))
	for id := range s.subscribers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]func(Snapshot), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.subscribers[id])
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(Snapshot{Ready: snap.Ready, Entries: cloneEntries(snap.Entries), Total: snap.Total})
	}
}

// Flush waits until every change made so far has been handed to storage.
func (s *Store) Flush(ctx context.Context) error {
	return s.persister.flush(ctx)
}

// Close flushes pending writes and stops the background writer.
// Mutations after Close return ErrClosed.
func (s *Store) Close(ctx context.Context) error {
	s.writeMu.Lock()
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.writeMu.Unlock()

	return s.persister.close(ctx)
}

func bySlug(slug string) func(domain.CartEntry) bool {
	return func(e domain.CartEntry) bool {
		return e.Slug == slug
	}
}

func cloneEntries(entries []domain.CartEntry) []domain.CartEntry {
	if entries == nil {
		return nil
	}

	out := make([]domain.CartEntry, len(entries))
	for i, e := range entries {
		out[i] = e.Clone()
	}

	return out
}
