package pricing

import (
	"context"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/siea/ricequote/internal/domain/models"
)

// PriceSource says where a cart line's price came from.
type PriceSource string

const (
	SourceFrozen      PriceSource = "frozen"
	SourceLive        PriceSource = "live"
	SourceFallback    PriceSource = "fallback"
	SourceUnavailable PriceSource = "unavailable"
)

// PriceLookup is the one-shot grade price lookup the aggregator depends on.
type PriceLookup interface {
	Resolve(ctx context.Context, productID, label string) (models.Money, error)
}

// LinePrice is a cart line enriched with its price.
type LinePrice struct {
	Item         models.CartLineItem `json:"item"`
	UnitPrice    models.Money        `json:"unitPrice"`
	Subtotal     models.Money        `json:"subtotal"`
	Source       PriceSource         `json:"priceSource"`
	PriceFetched bool                `json:"priceFetched"`
}

// CartSummary is the consolidated view of a cart.
type CartSummary struct {
	Items         []LinePrice  `json:"items"`
	Subtotal      models.Money `json:"subtotal"`
	ItemCount     int          `json:"itemCount"`
	TotalBags     int          `json:"totalBags"`
	FetchedCount  int          `json:"fetchedCount"`
	FallbackCount int          `json:"fallbackCount"`
}

const defaultLookupConcurrency = 8

var displayPricePattern = regexp.MustCompile(`\d+(?:,\d+)*(?:\.\d+)?`)

// Aggregator merges frozen and live-priced cart lines into one total.
type Aggregator struct {
	lookup      PriceLookup
	logger      *zap.Logger
	concurrency int
}

// NewAggregator wires an aggregator over lookup.
func NewAggregator(lookup PriceLookup, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{lookup: lookup, logger: logger, concurrency: defaultLookupConcurrency}
}

// Aggregate prices every line and sums them. It never fails: a line whose price cannot
// be found contributes zero and is flagged instead.
func (a *Aggregator) Aggregate(ctx context.Context, items []models.CartLineItem) CartSummary {
	lines := make([]LinePrice, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, item := range items {
		if item.FrozenTotalPrice != nil {
			lines[i] = frozenLine(item)
			continue
		}
		i, item := i, item
		g.Go(func() error {
			lines[i] = a.liveLine(gctx, item)
			return nil
		})
	}
	_ = g.Wait()

	summary := CartSummary{Items: lines, Subtotal: decimal.Zero}
	for _, line := range lines {
		summary.Subtotal = summary.Subtotal.Add(line.Subtotal)
		summary.ItemCount += line.Item.Units() * line.Item.Bags()
		summary.TotalBags += line.Item.Bags()
		if line.PriceFetched {
			summary.FetchedCount++
		} else {
			summary.FallbackCount++
		}
	}
	return summary
}

func frozenLine(item models.CartLineItem) LinePrice {
	unit := *item.FrozenTotalPrice
	return LinePrice{
		Item:         item,
		UnitPrice:    unit,
		Subtotal:     unit.Mul(decimal.NewFromInt(int64(item.Bags()))),
		Source:       SourceFrozen,
		PriceFetched: true,
	}
}

func (a *Aggregator) liveLine(ctx context.Context, item models.CartLineItem) LinePrice {
	bags := decimal.NewFromInt(int64(item.Bags()))

	if a.lookup != nil && item.QuantityUnit.Valid() {
		perKg, err := a.lookup.Resolve(ctx, item.ProductID, item.Grade)
		if err == nil {
			unit := perKg.Mul(item.QuantityUnit.Kilograms()).Mul(decimal.NewFromInt(int64(item.Units())))
			return LinePrice{
				Item:         item,
				UnitPrice:    unit,
				Subtotal:     unit.Mul(bags),
				Source:       SourceLive,
				PriceFetched: true,
			}
		}
		a.logger.Debug("live price lookup failed",
			zap.String("line_id", item.LineID),
			zap.String("product_id", item.ProductID),
			zap.Error(err))
	}

	if unit, ok := ParseDisplayPrice(item.DisplayPrice); ok {
		return LinePrice{
			Item:      item,
			UnitPrice: unit,
			Subtotal:  unit.Mul(bags),
			Source:    SourceFallback,
		}
	}

	return LinePrice{
		Item:      item,
		UnitPrice: decimal.Zero,
		Subtotal:  decimal.Zero,
		Source:    SourceUnavailable,
	}
}

// ParseDisplayPrice extracts the first number from strings like "₹9,500-14,600 per qtls".
func ParseDisplayPrice(display string) (models.Money, bool) {
	match := displayPricePattern.FindString(display)
	if match == "" {
		return decimal.Zero, false
	}
	v, err := decimal.NewFromString(strings.ReplaceAll(match, ",", ""))
	if err != nil {
		return decimal.Zero, false
	}
	return v, true
}
