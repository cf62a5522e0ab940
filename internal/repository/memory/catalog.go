package memory

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/google/uuid"

	"github.com/siea/ricequote/internal/domain/apperr"
	"github.com/siea/ricequote/internal/domain/models"
)

// GetProduct loads a catalog entry.
func (s *Store) GetProduct(_ context.Context, productID string) (models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	product, ok := s.products[productID]
	if !ok {
		return models.Product{}, fmt.Errorf("product %s: %w", productID, apperr.ErrNotFound)
	}
	return cloneProduct(product), nil
}

// ProductGrades returns the grades of a product in key order.
func (s *Store) ProductGrades(ctx context.Context, productID string) ([]models.Grade, error) {
	product, err := s.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	return models.GradeList(product.Grades), nil
}

// SaveProduct upserts a catalog entry and notifies grade watchers.
func (s *Store) SaveProduct(_ context.Context, product models.Product) error {
	product = cloneProduct(product)

	s.mu.Lock()
	s.products[product.ID] = product
	listeners := make([]func([]models.Grade), 0, len(s.watchers[product.ID]))
	for _, fn := range s.watchers[product.ID] {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	grades := models.GradeList(product.Grades)
	for _, fn := range listeners {
		fn(append([]models.Grade(nil), grades...))
	}
	return nil
}

// WatchGrades delivers the current grades and every later snapshot until cancelled.
func (s *Store) WatchGrades(ctx context.Context, productID string, fn func([]models.Grade)) (func(), error) {
	id := uuid.NewString()

	s.mu.Lock()
	if s.watchers[productID] == nil {
		s.watchers[productID] = make(map[string]func([]models.Grade))
	}
	s.watchers[productID][id] = fn
	var initial []models.Grade
	if product, ok := s.products[productID]; ok {
		initial = models.GradeList(product.Grades)
	}
	s.mu.Unlock()

	fn(initial)

	stop := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(stop)
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.watchers[productID], id)
			if len(s.watchers[productID]) == 0 {
				delete(s.watchers, productID)
			}
		})
	}
	if done := ctx.Done(); done != nil {
		go func() {
			select {
			case <-done:
				cancel()
			case <-stop:
			}
		}()
	}
	return cancel, nil
}

// WatcherCount reports how many subscriptions are open for productID.
func (s *Store) WatcherCount(productID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.watchers[productID])
}

func cloneProduct(p models.Product) models.Product {
	p.Name = maps.Clone(p.Name)
	p.Description = maps.Clone(p.Description)
	p.Grades = maps.Clone(p.Grades)
	return p
}
