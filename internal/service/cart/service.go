package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/siea/ricequote/internal/domain/apperr"
	"github.com/siea/ricequote/internal/domain/models"
	"github.com/siea/ricequote/internal/pricing"
)

// Store persists carts by owner.
type Store interface {
	GetCart(ctx context.Context, owner string) (models.Cart, error)
	SaveCart(ctx context.Context, cart models.Cart) error
	DeleteCart(ctx context.Context, owner string) error
}

// AddItemRequest is one product grade put in the cart.
type AddItemRequest struct {
	ProductID    string              `json:"productId" binding:"required"`
	ProductName  string              `json:"productName"`
	Grade        string              `json:"grade" binding:"required"`
	Packing      string              `json:"packing"`
	QuantityUnit models.QuantityUnit `json:"quantityUnit" binding:"required"`
	Quantity     int                 `json:"quantity"`
	NumberOfBags int                 `json:"numberOfBags"`
	DisplayPrice string              `json:"displayPrice"`
}

// Service mutates carts. Writes to the same cart are serialized within the process.
type Service struct {
	store      Store
	lookup     pricing.PriceLookup
	aggregator *pricing.Aggregator
	logger     *zap.Logger
	now        func() time.Time

	locks sync.Map
}

// NewService wires a cart service. lookup prices lines when they are added.
func NewService(store Store, lookup pricing.PriceLookup, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:      store,
		lookup:     lookup,
		aggregator: pricing.NewAggregator(lookup, logger.Named("aggregator")),
		logger:     logger,
		now:        time.Now,
	}
}

func (s *Service) lock(owner string) func() {
	v, _ := s.locks.LoadOrStore(owner, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Get returns the cart of owner.
func (s *Service) Get(ctx context.Context, owner string) (models.Cart, error) {
	if err := validateOwner(owner); err != nil {
		return models.Cart{}, err
	}
	return s.store.GetCart(ctx, owner)
}

// Add puts a line in the cart. The line price is frozen now and never recomputed; when
// no price can be resolved the display price string is kept instead. Adding a line
// identical to an existing one adds its bags to that line.
func (s *Service) Add(ctx context.Context, owner string, req AddItemRequest) (models.Cart, error) {
	if err := validateOwner(owner); err != nil {
		return models.Cart{}, err
	}
	item, err := s.newItem(ctx, req)
	if err != nil {
		return models.Cart{}, err
	}

	unlock := s.lock(owner)
	defer unlock()

	cart, err := s.store.GetCart(ctx, owner)
	if err != nil {
		return models.Cart{}, err
	}

	merged := false
	for i := range cart.Items {
		if cart.Items[i].SameLine(item) {
			cart.Items[i].NumberOfBags = cart.Items[i].Bags() + item.Bags()
			merged = true
			break
		}
	}
	if !merged {
		cart.Items = append(cart.Items, item)
	}

	if err := s.store.SaveCart(ctx, cart); err != nil {
		return models.Cart{}, err
	}
	s.logger.Info("cart line added",
		zap.String("owner", owner),
		zap.String("product_id", item.ProductID),
		zap.Bool("merged", merged),
		zap.Bool("frozen", item.FrozenTotalPrice != nil))
	return cart, nil
}

func (s *Service) newItem(ctx context.Context, req AddItemRequest) (models.CartLineItem, error) {
	verr := apperr.NewValidationError()
	if strings.TrimSpace(req.ProductID) == "" {
		verr.Add("productId", "is required")
	}
	if strings.TrimSpace(req.Grade) == "" {
		verr.Add("grade", "is required")
	}
	unit, err := models.ParseQuantityUnit(string(req.QuantityUnit))
	if err != nil {
		verr.Add("quantityUnit", err.Error())
	}
	if req.Quantity < 0 {
		verr.Add("quantity", "must not be negative")
	}
	if req.NumberOfBags < 0 {
		verr.Add("numberOfBags", "must not be negative")
	}
	if err := verr.OrNil(); err != nil {
		return models.CartLineItem{}, err
	}

	item := models.CartLineItem{
		LineID:       uuid.NewString(),
		ProductID:    req.ProductID,
		ProductName:  req.ProductName,
		Grade:        strings.TrimSpace(req.Grade),
		Packing:      req.Packing,
		QuantityUnit: unit,
		Quantity:     req.Quantity,
		NumberOfBags: req.NumberOfBags,
		DisplayPrice: req.DisplayPrice,
		AddedAt:      s.now().UTC(),
	}
	item.Quantity = item.Units()
	item.NumberOfBags = item.Bags()

	if s.lookup == nil {
		return item, nil
	}
	ppk, err := s.lookup.Resolve(ctx, req.ProductID, req.Grade)
	switch {
	case err == nil:
		total := ppk.Mul(item.QuantityUnit.Kilograms()).Mul(decimal.NewFromInt(int64(item.Units())))
		item.FrozenTotalPrice = &total
	case errors.Is(err, apperr.ErrPriceUnavailable):
		s.logger.Info("cart line added without live price",
			zap.String("product_id", req.ProductID),
			zap.String("grade", req.Grade))
	default:
		return models.CartLineItem{}, err
	}
	return item, nil
}

// SetBags changes the bag count of a line. A count below one removes the line.
func (s *Service) SetBags(ctx context.Context, owner, lineID string, bags int) (models.Cart, error) {
	if bags < 1 {
		return s.Remove(ctx, owner, lineID)
	}
	return s.mutate(ctx, owner, lineID, func(items []models.CartLineItem, i int) []models.CartLineItem {
		items[i].NumberOfBags = bags
		return items
	})
}

// Remove drops a line.
func (s *Service) Remove(ctx context.Context, owner, lineID string) (models.Cart, error) {
	return s.mutate(ctx, owner, lineID, func(items []models.CartLineItem, i int) []models.CartLineItem {
		return append(items[:i], items[i+1:]...)
	})
}

func (s *Service) mutate(ctx context.Context, owner, lineID string, fn func([]models.CartLineItem, int) []models.CartLineItem) (models.Cart, error) {
	if err := validateOwner(owner); err != nil {
		return models.Cart{}, err
	}

	unlock := s.lock(owner)
	defer unlock()

	cart, err := s.store.GetCart(ctx, owner)
	if err != nil {
		return models.Cart{}, err
	}
	idx := -1
	for i, item := range cart.Items {
		if item.LineID == lineID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return models.Cart{}, fmt.Errorf("cart line %s: %w", lineID, apperr.ErrNotFound)
	}

	cart.Items = fn(cart.Items, idx)
	if err := s.store.SaveCart(ctx, cart); err != nil {
		return models.Cart{}, err
	}
	return cart, nil
}

// Clear empties the cart of owner.
func (s *Service) Clear(ctx context.Context, owner string) error {
	if err := validateOwner(owner); err != nil {
		return err
	}
	unlock := s.lock(owner)
	defer unlock()
	return s.store.DeleteCart(ctx, owner)
}

// Summary prices the cart of owner.
func (s *Service) Summary(ctx context.Context, owner string) (pricing.CartSummary, error) {
	cart, err := s.Get(ctx, owner)
	if err != nil {
		return pricing.CartSummary{}, err
	}
	return s.aggregator.Aggregate(ctx, cart.Items), nil
}

func validateOwner(owner string) error {
	if strings.TrimSpace(owner) == "" {
		return apperr.Invalid("owner", "is required")
	}
	return nil
}
