package pricing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/siea/ricequote/internal/domain/apperr"
	"github.com/siea/ricequote/internal/domain/models"
)

// MatchTier records which rule matched a grade label.
type MatchTier int

const (
	TierNone MatchTier = iota
	// TierExact: labels are equal ignoring case.
	TierExact
	// TierContains: the catalog label contains the requested label.
	TierContains
	// TierContainedIn: the requested label contains the catalog label.
	TierContainedIn
)

func (t MatchTier) String() string {
	switch t {
	case TierExact:
		return "exact"
	case TierContains:
		return "contains"
	case TierContainedIn:
		return "contained_in"
	default:
		return "none"
	}
}

// MatchGrade finds the grade for label. Tiers are tried in order exact, contains,
// contained-in; within a tier the first grade in slice order wins. Unpriced grades are
// never matched.
func MatchGrade(grades []models.Grade, label string) (models.Grade, MatchTier, bool) {
	want := normalizeLabel(label)
	if want == "" {
		return models.Grade{}, TierNone, false
	}

	tiers := []struct {
		tier  MatchTier
		match func(have string) bool
	}{
		{TierExact, func(have string) bool { return have == want }},
		{TierContains, func(have string) bool { return strings.Contains(have, want) }},
		{TierContainedIn, func(have string) bool { return strings.Contains(want, have) }},
	}

	for _, tier := range tiers {
		for _, g := range grades {
			have := normalizeLabel(g.Label)
			if have == "" || !g.Priced() {
				continue
			}
			if tier.match(have) {
				return g, tier.tier, true
			}
		}
	}
	return models.Grade{}, TierNone, false
}

func normalizeLabel(label string) string {
	return strings.ToLower(strings.Join(strings.Fields(label), " "))
}

// GradeSource is a one-shot catalog read of a product's grades.
type GradeSource interface {
	ProductGrades(ctx context.Context, productID string) ([]models.Grade, error)
}

// Resolver looks up per-kilogram prices.
type Resolver struct {
	source GradeSource
	logger *zap.Logger
}

// NewResolver wires a resolver over source.
func NewResolver(source GradeSource, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{source: source, logger: logger}
}

// Resolve returns the price per kg for the product grade. A miss is reported as
// apperr.ErrPriceUnavailable and must never be read as a zero price.
func (r *Resolver) Resolve(ctx context.Context, productID, label string) (models.Money, error) {
	grades, err := r.source.ProductGrades(ctx, productID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return decimal.Zero, fmt.Errorf("%w: product %s not found", apperr.ErrPriceUnavailable, productID)
		}
		return decimal.Zero, fmt.Errorf("load grades for %s: %w", productID, err)
	}
	if len(grades) == 0 {
		return decimal.Zero, fmt.Errorf("%w: product %s has no grades", apperr.ErrPriceUnavailable, productID)
	}

	grade, tier, ok := MatchGrade(grades, label)
	if !ok {
		r.logger.Debug("grade not found",
			zap.String("product_id", productID),
			zap.String("grade", label),
			zap.Int("available", len(grades)))
		return decimal.Zero, fmt.Errorf("%w: grade %q not found for product %s", apperr.ErrPriceUnavailable, label, productID)
	}

	r.logger.Debug("grade price resolved",
		zap.String("product_id", productID),
		zap.String("grade", label),
		zap.String("matched", grade.Label),
		zap.Stringer("tier", tier))
	return grade.PricePerKg, nil
}
