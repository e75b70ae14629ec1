package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"cartflow/pkg/catalog"
	"cartflow/pkg/kv"
	"cartflow/pkg/logger"
	"cartflow/pkg/notify"
)

// Store owns the authoritative in-memory cart for one owner. Every mutation
// validates against the catalog's stock, writes the new cart to the
// key-value store, and only then publishes the new snapshot, so memory and
// storage never diverge. Mutations are serialized by a per-store mutex.
type Store struct {
	catalog  catalog.Service
	kv       kv.Store
	notifier notify.Notifier
	log      *logger.Logger
	key      string

	mu      sync.Mutex
	entries []Entry
}

// Config carries the collaborators a Store needs.
type Config struct {
	Catalog  catalog.Service
	KV       kv.Store
	Notifier notify.Notifier
	// Key is the fixed persistence key for this cart.
	Key string
	// Log is optional; a nop logger is used when nil.
	Log *logger.Logger
}

// New creates a Store and loads the persisted cart once. An absent key
// yields an empty cart; an unparseable value is logged and discarded.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Catalog == nil {
		return nil, errors.New("catalog service is required")
	}
	if cfg.KV == nil {
		return nil, errors.New("kv store is required")
	}
	if cfg.Key == "" {
		return nil, errors.New("persistence key is required")
	}
	if cfg.Notifier == nil {
		cfg.Notifier = notify.Nop
	}
	if cfg.Log == nil {
		cfg.Log = logger.NewNop()
	}

	s := &Store{
		catalog:  cfg.Catalog,
		kv:       cfg.KV,
		notifier: cfg.Notifier,
		log:      cfg.Log,
		key:      cfg.Key,
	}

	raw, err := s.kv.Get(ctx, s.key)
	switch {
	case errors.Is(err, kv.ErrNoKey):
		// first session, empty cart
	case err != nil:
		return nil, fmt.Errorf("loading cart %q: %w", s.key, err)
	default:
		if err := json.Unmarshal([]byte(raw), &s.entries); err != nil {
			s.log.Warn(ctx, "discarding unparseable cart", "key", s.key, "error", err)
			s.entries = nil
		}
	}
	return s, nil
}

// Items returns a read-only snapshot of the cart in insertion order.
func (s *Store) Items() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// AddProduct puts one more unit of the product in the cart, fetching its
// metadata on first add. The requested total is checked against stock.
func (s *Store) AddProduct(ctx context.Context, productID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stock, err := s.catalog.Stock(ctx, productID)
	if err != nil {
		s.notifier.Error(MsgAddFailed)
		return fmt.Errorf("fetching stock for %d: %w", productID, err)
	}

	idx := s.indexOf(productID)
	target := 1
	if idx >= 0 {
		target = s.entries[idx].Amount + 1
	}
	if target > stock.Amount {
		s.notifier.Error(MsgOutOfStock)
		return ErrOutOfStock
	}

	next := make([]Entry, len(s.entries))
	copy(next, s.entries)
	if idx >= 0 {
		next[idx].Amount = target
	} else {
		product, err := s.catalog.Product(ctx, productID)
		if err != nil {
			s.notifier.Error(MsgAddFailed)
			return fmt.Errorf("fetching product %d: %w", productID, err)
		}
		next = append(next, Entry{Product: product, Amount: 1})
	}

	if err := s.persist(ctx, next); err != nil {
		s.notifier.Error(MsgAddFailed)
		return err
	}
	s.entries = next
	return nil
}

// RemoveProduct drops the product's entry from the cart. A missing entry is
// reported as a failure and leaves storage untouched.
func (s *Store) RemoveProduct(ctx context.Context, productID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if e.ID != productID {
			next = append(next, e)
		}
	}
	if len(next) == len(s.entries) {
		s.notifier.Error(MsgRemoveFailed)
		return ErrNotFound
	}

	if err := s.persist(ctx, next); err != nil {
		s.notifier.Error(MsgRemoveFailed)
		return err
	}
	s.entries = next
	return nil
}

// UpdateProductAmount sets the product's quantity to amount exactly.
// A non-positive amount is a silent no-op, as is an amount for a product
// that is not in the cart.
func (s *Store) UpdateProductAmount(ctx context.Context, productID int64, amount int) error {
	if amount <= 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stock, err := s.catalog.Stock(ctx, productID)
	if err != nil {
		s.notifier.Error(MsgUpdateFailed)
		return fmt.Errorf("fetching stock for %d: %w", productID, err)
	}
	if stock.Amount < amount {
		s.notifier.Error(MsgOutOfStock)
		return ErrOutOfStock
	}

	idx := s.indexOf(productID)
	if idx < 0 {
		return nil
	}

	next := make([]Entry, len(s.entries))
	copy(next, s.entries)
	next[idx].Amount = amount

	if err := s.persist(ctx, next); err != nil {
		s.notifier.Error(MsgUpdateFailed)
		return err
	}
	s.entries = next
	return nil
}

// persist mirrors the candidate cart into the key-value store. The caller
// publishes the snapshot only after persist succeeds.
func (s *Store) persist(ctx context.Context, entries []Entry) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encoding cart %q: %w", s.key, err)
	}
	if err := s.kv.Set(ctx, s.key, string(raw)); err != nil {
		return fmt.Errorf("persisting cart %q: %w", s.key, err)
	}
	return nil
}

// indexOf must be called with the mutex held.
func (s *Store) indexOf(productID int64) int {
	for i, e := range s.entries {
		if e.ID == productID {
			return i
		}
	}
	return -1
}
