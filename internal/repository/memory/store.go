// Package memory is an in-process implementation of the engine's persistence ports,
// used by tests and by the server when STORE_DRIVER=memory.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/siea/ricequote/internal/domain/apperr"
	"github.com/siea/ricequote/internal/domain/models"
)

// Store keeps every collection in maps guarded by a single mutex. Counters are
// lock-free and use compare-and-swap with retry.
type Store struct {
	mu       sync.RWMutex
	counters map[string]*atomic.Int64
	quotes   map[string]models.Quote
	history  []models.AuditEntry
	products map[string]models.Product
	rates    *models.RateTable
	carts    map[string]models.Cart
	watchers map[string]map[string]func([]models.Grade)
	now      func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		counters: make(map[string]*atomic.Int64),
		quotes:   make(map[string]models.Quote),
		products: make(map[string]models.Product),
		carts:    make(map[string]models.Cart),
		watchers: make(map[string]map[string]func([]models.Grade)),
		now:      time.Now,
	}
}

func (s *Store) counter(name string) *atomic.Int64 {
	s.mu.RLock()
	c, ok := s.counters[name]
	s.mu.RUnlock()
	if ok {
		return c
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok = s.counters[name]; !ok {
		c = new(atomic.Int64)
		s.counters[name] = c
	}
	return c
}

// Increment bumps the named counter and returns the new value.
func (s *Store) Increment(ctx context.Context, name string) (int64, error) {
	c := s.counter(name)
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		cur := c.Load()
		if c.CompareAndSwap(cur, cur+1) {
			return cur + 1, nil
		}
	}
}

// InsertQuote stores a new quote.
func (s *Store) InsertQuote(_ context.Context, quote models.Quote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.quotes[quote.QuoteID]; exists {
		return fmt.Errorf("quote %s already exists", quote.QuoteID)
	}
	s.quotes[quote.QuoteID] = quote
	return nil
}

// GetQuote loads a quote by id.
func (s *Store) GetQuote(_ context.Context, quoteID string) (models.Quote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quote, ok := s.quotes[quoteID]
	if !ok {
		return models.Quote{}, fmt.Errorf("quote %s: %w", quoteID, apperr.ErrNotFound)
	}
	return quote, nil
}

// ReplaceQuote overwrites an existing quote.
func (s *Store) ReplaceQuote(_ context.Context, quote models.Quote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quotes[quote.QuoteID]; !ok {
		return fmt.Errorf("quote %s: %w", quote.QuoteID, apperr.ErrNotFound)
	}
	s.quotes[quote.QuoteID] = quote
	return nil
}

// DeleteQuote removes a quote.
func (s *Store) DeleteQuote(_ context.Context, quoteID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quotes[quoteID]; !ok {
		return fmt.Errorf("quote %s: %w", quoteID, apperr.ErrNotFound)
	}
	delete(s.quotes, quoteID)
	return nil
}

// Quotes returns every stored quote ordered by id.
func (s *Store) Quotes() []models.Quote {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Quote, 0, len(s.quotes))
	for _, q := range s.quotes {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuoteID < out[j].QuoteID })
	return out
}

// AppendHistory records an audit entry, assigning an id when missing.
func (s *Store) AppendHistory(_ context.Context, entry models.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, entry)
	return nil
}

// HistoryFor returns entries recorded for path, newest first.
func (s *Store) HistoryFor(_ context.Context, path string, limit int64) ([]models.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.AuditEntry
	for i := len(s.history) - 1; i >= 0; i-- {
		if s.history[i].Path != path {
			continue
		}
		out = append(out, s.history[i])
		if limit > 0 && int64(len(out)) == limit {
			break
		}
	}
	return out, nil
}

// History returns every entry in insertion order.
func (s *Store) History() []models.AuditEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.AuditEntry(nil), s.history...)
}

// GetRates loads the stored rate table.
func (s *Store) GetRates(_ context.Context) (models.RateTable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.rates == nil {
		return models.RateTable{}, fmt.Errorf("exchange rates: %w", apperr.ErrNotFound)
	}
	return s.rates.Clone(), nil
}

// SaveRates replaces the stored rate table.
func (s *Store) SaveRates(_ context.Context, table models.RateTable) error {
	clone := table.Clone()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rates = &clone
	return nil
}

// GetCart loads the cart of owner. A missing cart is returned empty.
func (s *Store) GetCart(_ context.Context, owner string) (models.Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cart, ok := s.carts[owner]
	if !ok {
		return models.Cart{Owner: owner}, nil
	}
	cart.Items = append([]models.CartLineItem(nil), cart.Items...)
	return cart, nil
}

// SaveCart replaces the cart of cart.Owner.
func (s *Store) SaveCart(_ context.Context, cart models.Cart) error {
	cart.Items = append([]models.CartLineItem(nil), cart.Items...)
	cart.UpdatedAt = s.now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.carts[cart.Owner] = cart
	return nil
}

// DeleteCart removes the cart of owner.
func (s *Store) DeleteCart(_ context.Context, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, owner)
	return nil
}
