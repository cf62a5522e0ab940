package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/siea/ricequote/internal/domain/apperr"
	"github.com/siea/ricequote/internal/domain/models"
	"github.com/siea/ricequote/internal/service/audit"
)

// QuoteStore is the admin view of persisted quotes.
type QuoteStore interface {
	GetQuote(ctx context.Context, quoteID string) (models.Quote, error)
	ReplaceQuote(ctx context.Context, quote models.Quote) error
	DeleteQuote(ctx context.Context, quoteID string) error
}

// CatalogStore reads and writes products.
type CatalogStore interface {
	GetProduct(ctx context.Context, productID string) (models.Product, error)
	SaveProduct(ctx context.Context, product models.Product) error
}

// RateStore persists the exchange-rate table.
type RateStore interface {
	SaveRates(ctx context.Context, table models.RateTable) error
}

// RateReader returns the effective rate table.
type RateReader interface {
	Rates(ctx context.Context) (models.RateTable, error)
}

// AuditLogger records admin mutations.
type AuditLogger interface {
	Log(ctx context.Context, rec audit.Record, actx models.ActorContext) (models.AuditEntry, error)
}

// Dependencies groups the collaborators of Service.
type Dependencies struct {
	Quotes       QuoteStore
	Catalog      CatalogStore
	Rates        RateStore
	RateReader   RateReader
	DefaultRates models.RateTable
	Audit        AuditLogger
}

// Service performs audited back-office mutations.
type Service struct {
	deps   Dependencies
	logger *zap.Logger
	now    func() time.Time
}

// NewService wires an admin service.
func NewService(deps Dependencies, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{deps: deps, logger: logger, now: time.Now}
}

// record writes the audit entry. A failed write is logged; the mutation already happened
// and stays in place.
func (s *Service) record(ctx context.Context, actx models.ActorContext, rec audit.Record) {
	if _, err := s.deps.Audit.Log(ctx, rec, actx); err != nil {
		s.logger.Error("admin change not audited", zap.String("path", rec.Path), zap.Error(err))
	}
}

// TransitionStatus moves a quote along its lifecycle.
func (s *Service) TransitionStatus(ctx context.Context, actx models.ActorContext, quoteID string, next models.QuoteStatus) (models.Quote, error) {
	if _, err := models.ParseQuoteStatus(string(next)); err != nil {
		return models.Quote{}, apperr.Invalid("status", err.Error())
	}

	before, err := s.deps.Quotes.GetQuote(ctx, quoteID)
	if err != nil {
		return models.Quote{}, err
	}
	if !before.Status.CanTransition(next) {
		return models.Quote{}, fmt.Errorf("%w: %s cannot move from %s to %s", apperr.ErrInvalidTransition, quoteID, before.Status, next)
	}

	after := before
	after.Status = next
	after.UpdatedAt = s.now().UTC()
	if err := s.deps.Quotes.ReplaceQuote(ctx, after); err != nil {
		return models.Quote{}, err
	}

	s.record(ctx, actx, audit.Record{
		Path:    after.Path(),
		Entity:  after.Entity(),
		Before:  before,
		After:   after,
		Changes: []models.FieldChange{{Field: "status", From: before.Status, To: next}},
	})
	s.logger.Info("quote status changed",
		zap.String("quote_id", quoteID),
		zap.String("from", string(before.Status)),
		zap.String("to", string(next)))
	return after, nil
}

// DeleteQuote removes a quote. Its id is never reused.
func (s *Service) DeleteQuote(ctx context.Context, actx models.ActorContext, quoteID string) error {
	before, err := s.deps.Quotes.GetQuote(ctx, quoteID)
	if err != nil {
		return err
	}
	if err := s.deps.Quotes.DeleteQuote(ctx, quoteID); err != nil {
		return err
	}
	s.record(ctx, actx, audit.Record{Path: before.Path(), Entity: before.Entity(), Before: before})
	s.logger.Info("quote deleted", zap.String("quote_id", quoteID))
	return nil
}

// UpsertProduct creates or updates a catalog entry. Grades are replaced only when the
// update carries them, and every grade label must be unique.
func (s *Service) UpsertProduct(ctx context.Context, actx models.ActorContext, product models.Product) (models.Product, error) {
	if strings.TrimSpace(product.ID) == "" {
		return models.Product{}, apperr.Invalid("id", "is required")
	}
	if len(product.Name) == 0 {
		return models.Product{}, apperr.Invalid("name", "at least one localized name is required")
	}

	var before *models.Product
	existing, err := s.deps.Catalog.GetProduct(ctx, product.ID)
	switch {
	case err == nil:
		before = &existing
	case !errors.Is(err, apperr.ErrNotFound):
		return models.Product{}, err
	}

	after := product
	after.Grades = nil
	source := product.Grades
	if source == nil && before != nil {
		source = before.Grades
	}
	for _, kg := range models.SortGrades(source) {
		if err := after.PutGrade(kg.Key, kg.Grade); err != nil {
			return models.Product{}, apperr.Invalid("grades."+kg.Key, err.Error())
		}
	}

	if err := s.deps.Catalog.SaveProduct(ctx, after); err != nil {
		return models.Product{}, err
	}
	s.record(ctx, actx, audit.Record{Path: productPath(after.ID), Entity: models.EntityProduct, Before: before, After: after})
	return after, nil
}

// PutGrade creates or replaces one grade of a product.
func (s *Service) PutGrade(ctx context.Context, actx models.ActorContext, productID, key string, grade models.Grade) (models.Product, error) {
	product, err := s.deps.Catalog.GetProduct(ctx, productID)
	if err != nil {
		return models.Product{}, err
	}

	var before *models.Grade
	if old, ok := product.Grades[key]; ok {
		before = &old
	}
	grade.Label = strings.TrimSpace(grade.Label)
	if err := product.PutGrade(key, grade); err != nil {
		return models.Product{}, apperr.Invalid("grade", err.Error())
	}

	if err := s.deps.Catalog.SaveProduct(ctx, product); err != nil {
		return models.Product{}, err
	}
	s.record(ctx, actx, audit.Record{Path: gradePath(productID, key), Entity: models.EntityGrade, Before: before, After: grade})
	return product, nil
}

// DeleteGrade removes one grade of a product.
func (s *Service) DeleteGrade(ctx context.Context, actx models.ActorContext, productID, key string) (models.Product, error) {
	product, err := s.deps.Catalog.GetProduct(ctx, productID)
	if err != nil {
		return models.Product{}, err
	}
	old, ok := product.Grades[key]
	if !ok {
		return models.Product{}, fmt.Errorf("grade %s of %s: %w", key, productID, apperr.ErrNotFound)
	}
	delete(product.Grades, key)

	if err := s.deps.Catalog.SaveProduct(ctx, product); err != nil {
		return models.Product{}, err
	}
	s.record(ctx, actx, audit.Record{Path: gradePath(productID, key), Entity: models.EntityGrade, Before: old})
	return product, nil
}

func productPath(id string) string {
	return "products/" + id
}

func gradePath(productID, key string) string {
	return fmt.Sprintf("products/%s/grades/%s", productID, key)
}
