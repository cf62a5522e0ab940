package quoting

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/siea/ricequote/internal/domain/apperr"
	"github.com/siea/ricequote/internal/domain/models"
	"github.com/siea/ricequote/internal/pricing"
)

// Catalog reads grades once or streams grade snapshots.
type Catalog interface {
	pricing.GradeSource
	WatchGrades(ctx context.Context, productID string, fn func([]models.Grade)) (func(), error)
}

// RateStore holds the admin-editable exchange-rate table.
type RateStore interface {
	GetRates(ctx context.Context) (models.RateTable, error)
}

// SingleQuoteRequest prices one product grade.
type SingleQuoteRequest struct {
	ProductID string              `json:"productId" binding:"required"`
	Grade     string              `json:"grade" binding:"required"`
	Quantity  models.QuantityUnit `json:"quantity" binding:"required"`
	Shipping  models.Shipping     `json:"shipping"`
}

// CartQuoteRequest prices a set of cart lines.
type CartQuoteRequest struct {
	Items    []models.CartLineItem `json:"items" binding:"required"`
	Shipping models.Shipping       `json:"shipping"`
}

// QuoteView is what the caller displays for a single product. When the grade has no
// price, PriceOnRequest is set and no breakdown is returned.
type QuoteView struct {
	PricePerKg     *models.Money          `json:"pricePerKg,omitempty"`
	PriceOnRequest bool                   `json:"priceOnRequest"`
	Breakdown      *models.PriceBreakdown `json:"breakdown,omitempty"`
	BaseBreakdown  *models.PriceBreakdown `json:"baseBreakdown,omitempty"`
}

// CartQuoteView is the cart summary together with its breakdown.
type CartQuoteView struct {
	Summary       pricing.CartSummary    `json:"summary"`
	Breakdown     *models.PriceBreakdown `json:"breakdown"`
	BaseBreakdown *models.PriceBreakdown `json:"baseBreakdown"`
}

// Service computes live quotes from the catalog, the tariff and the current rates.
type Service struct {
	catalog      Catalog
	rates        RateStore
	defaultRates models.RateTable
	resolver     *pricing.Resolver
	calculator   *pricing.Calculator
	aggregator   *pricing.Aggregator
	logger       *zap.Logger
}

// NewService wires a quoting service. defaultRates is used until an admin stores a table.
func NewService(catalog Catalog, rates RateStore, tariff models.Tariff, defaultRates models.RateTable, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	resolver := pricing.NewResolver(catalog, logger.Named("resolver"))
	return &Service{
		catalog:      catalog,
		rates:        rates,
		defaultRates: defaultRates.Clone(),
		resolver:     resolver,
		calculator:   pricing.NewCalculator(tariff),
		aggregator:   pricing.NewAggregator(resolver, logger.Named("aggregator")),
		logger:       logger,
	}
}

// Resolver exposes the grade price resolver.
func (s *Service) Resolver() *pricing.Resolver {
	return s.resolver
}

// Tariff returns the tariff the calculator prices from.
func (s *Service) Tariff() models.Tariff {
	return s.calculator.Tariff()
}

// Ports lists the ports with a transport route from state.
func (s *Service) Ports(state string) []string {
	return s.Tariff().PortsForState(state)
}

// Rates returns the stored rate table, or the default table when none was stored.
func (s *Service) Rates(ctx context.Context) (models.RateTable, error) {
	if s.rates == nil {
		return s.defaultRates.Clone(), nil
	}
	table, err := s.rates.GetRates(ctx)
	if errors.Is(err, apperr.ErrNotFound) {
		return s.defaultRates.Clone(), nil
	}
	if err != nil {
		return models.RateTable{}, fmt.Errorf("load exchange rates: %w", err)
	}
	return table, nil
}

// Converter builds a converter over the current rates.
func (s *Service) Converter(ctx context.Context) (*pricing.Converter, error) {
	table, err := s.Rates(ctx)
	if err != nil {
		return nil, err
	}
	return pricing.NewConverter(table), nil
}

// Price resolves the grade price and computes the breakdown.
func (s *Service) Price(ctx context.Context, req SingleQuoteRequest) (QuoteView, error) {
	if err := validateSingle(req); err != nil {
		return QuoteView{}, err
	}

	ppk, err := s.resolver.Resolve(ctx, req.ProductID, req.Grade)
	if errors.Is(err, apperr.ErrPriceUnavailable) {
		s.logger.Info("price on request",
			zap.String("product_id", req.ProductID),
			zap.String("grade", req.Grade),
			zap.Error(err))
		return QuoteView{PriceOnRequest: true}, nil
	}
	if err != nil {
		return QuoteView{}, err
	}

	conv, err := s.Converter(ctx)
	if err != nil {
		return QuoteView{}, err
	}
	return s.viewFor(ppk, req, conv)
}

// PriceCart aggregates the cart lines and computes the cart breakdown.
func (s *Service) PriceCart(ctx context.Context, req CartQuoteRequest) (CartQuoteView, error) {
	if len(req.Items) == 0 {
		return CartQuoteView{}, apperr.Invalid("items", "cart is empty")
	}

	conv, err := s.Converter(ctx)
	if err != nil {
		return CartQuoteView{}, err
	}

	summary := s.aggregator.Aggregate(ctx, req.Items)
	out, err := s.calculator.Compute(cartInput(summary.Subtotal, req.Shipping), conv)
	if err != nil {
		return CartQuoteView{}, err
	}

	s.logger.Debug("cart priced",
		zap.Int("lines", len(summary.Items)),
		zap.Int("fallback_lines", summary.FallbackCount),
		zap.String("subtotal", summary.Subtotal.String()))
	return CartQuoteView{Summary: summary, Breakdown: &out.Converted, BaseBreakdown: &out.Base}, nil
}

// Watch recomputes the quote on every grade snapshot of req.ProductID and hands the
// result to fn. fn receives an error when the request itself cannot be priced. The
// returned cancel func unsubscribes and must be called when the caller is done.
func (s *Service) Watch(ctx context.Context, req SingleQuoteRequest, fn func(QuoteView, error)) (func(), error) {
	if err := validateSingle(req); err != nil {
		return nil, err
	}

	if _, err := s.Converter(ctx); err != nil {
		return nil, err
	}

	cancel, err := s.catalog.WatchGrades(ctx, req.ProductID, func(grades []models.Grade) {
		grade, _, ok := pricing.MatchGrade(grades, req.Grade)
		if !ok {
			fn(QuoteView{PriceOnRequest: true}, nil)
			return
		}
		// Rates are re-read per snapshot so admin edits reach open streams.
		conv, err := s.Converter(ctx)
		if err != nil {
			fn(QuoteView{}, err)
			return
		}
		fn(s.viewFor(grade.PricePerKg, req, conv))
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe to product %s: %w", req.ProductID, err)
	}
	return cancel, nil
}

func (s *Service) viewFor(ppk models.Money, req SingleQuoteRequest, conv *pricing.Converter) (QuoteView, error) {
	out, err := s.calculator.Compute(singleInput(ppk, req.Quantity, req.Shipping), conv)
	if err != nil {
		return QuoteView{}, err
	}
	return QuoteView{PricePerKg: &ppk, Breakdown: &out.Converted, BaseBreakdown: &out.Base}, nil
}

func validateSingle(req SingleQuoteRequest) error {
	verr := apperr.NewValidationError()
	if strings.TrimSpace(req.ProductID) == "" {
		verr.Add("productId", "is required")
	}
	if strings.TrimSpace(req.Grade) == "" {
		verr.Add("grade", "is required")
	}
	if !req.Quantity.Valid() {
		verr.Add("quantity", fmt.Sprintf("unsupported quantity %q", req.Quantity))
	}
	return verr.OrNil()
}

func singleInput(ppk models.Money, qty models.QuantityUnit, sh models.Shipping) pricing.QuoteInput {
	return pricing.QuoteInput{
		PricePerKg:  ppk,
		Quantity:    qty,
		Packing:     sh.Packing,
		CustomLogo:  sh.CustomLogo,
		CIF:         sh.CIF,
		Port:        sh.Port,
		SourceState: sh.SourceState,
		Currency:    sh.Currency,
	}
}

func cartInput(subtotal models.Money, sh models.Shipping) pricing.QuoteInput {
	return pricing.QuoteInput{
		CartSubtotal: &subtotal,
		Packing:      sh.Packing,
		CustomLogo:   sh.CustomLogo,
		CIF:          sh.CIF,
		Port:         sh.Port,
		SourceState:  sh.SourceState,
		Currency:     sh.Currency,
	}
}
