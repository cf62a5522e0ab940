package submission

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/siea/ricequote/internal/domain/apperr"
	"github.com/siea/ricequote/internal/domain/models"
	"github.com/siea/ricequote/internal/pricing"
	"github.com/siea/ricequote/internal/service/allocator"
	"github.com/siea/ricequote/internal/service/audit"
	"github.com/siea/ricequote/internal/service/quoting"
)

// Pricer computes the breakdowns frozen into an order.
type Pricer interface {
	Price(ctx context.Context, req quoting.SingleQuoteRequest) (quoting.QuoteView, error)
	PriceCart(ctx context.Context, req quoting.CartQuoteRequest) (quoting.CartQuoteView, error)
	Converter(ctx context.Context) (*pricing.Converter, error)
}

// IDAllocator reserves order ids.
type IDAllocator interface {
	Allocate(ctx context.Context, kind models.QuoteKind) (allocator.Allocation, error)
}

// QuoteWriter persists new orders.
type QuoteWriter interface {
	InsertQuote(ctx context.Context, quote models.Quote) error
}

// AuditLogger records the order creation.
type AuditLogger interface {
	Log(ctx context.Context, rec audit.Record, actx models.ActorContext) (models.AuditEntry, error)
}

// Carts reads and clears the cart behind a cart order.
type Carts interface {
	Get(ctx context.Context, owner string) (models.Cart, error)
	Clear(ctx context.Context, owner string) error
}

// Hook is notified after an order completes. Hook failures never fail the submission.
type Hook interface {
	Name() string
	QuoteSubmitted(ctx context.Context, quote models.Quote) error
}

// LinkBuilder renders the chat deep link handed back to the customer.
type LinkBuilder interface {
	ChatLink(quote models.Quote) string
}

// ProductSelection is the product part of a bulk or sample-courier request.
type ProductSelection struct {
	ProductID   string              `json:"productId"`
	ProductName string              `json:"productName"`
	Grade       string              `json:"grade"`
	Quantity    models.QuantityUnit `json:"quantity"`
}

// Request is a finalized order as submitted by the customer.
type Request struct {
	Kind           models.QuoteKind  `json:"kind"`
	Customer       models.Customer   `json:"customer"`
	Shipping       models.Shipping   `json:"shipping"`
	Product        *ProductSelection `json:"product,omitempty"`
	CartOwner      string            `json:"cartOwner,omitempty"`
	AdditionalInfo string            `json:"additionalInfo,omitempty"`
}

// Result describes a completed submission. AuditFailed and CartCleared report the
// best-effort steps that do not undo the order.
type Result struct {
	QuoteID     string       `json:"quoteId"`
	Quote       models.Quote `json:"quote"`
	State       State        `json:"-"`
	Trail       []State      `json:"-"`
	AuditFailed bool         `json:"auditFailed"`
	CartCleared bool         `json:"cartCleared"`
	ChatLink    string       `json:"chatLink,omitempty"`
}

// Dependencies groups the collaborators of a Coordinator.
type Dependencies struct {
	Pricer    Pricer
	Allocator IDAllocator
	Quotes    QuoteWriter
	Audit     AuditLogger
	Carts     Carts
	Links     LinkBuilder
	Hooks     []Hook
	Validator *CustomerValidator
}

// Coordinator turns a validated request into a persisted, audited order.
type Coordinator struct {
	deps   Dependencies
	guard  *InFlightGuard
	logger *zap.Logger
	now    func() time.Time
}

// NewCoordinator wires a coordinator.
func NewCoordinator(deps Dependencies, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Validator == nil {
		deps.Validator = NewCustomerValidator(nil)
	}
	return &Coordinator{deps: deps, guard: NewInFlightGuard(), logger: logger, now: time.Now}
}

// Submit runs Draft → Validating → IdAllocated → Persisted → Audited → Complete.
// Any error moves the submission to Failed. A second call for the same submitter while
// one is running fails with apperr.ErrSubmissionInFlight.
func (c *Coordinator) Submit(ctx context.Context, actx models.ActorContext, req Request) (*Result, error) {
	key := submitterKey(actx, req)
	if key != "" {
		release, ok := c.guard.Acquire(key)
		if !ok {
			fields := []zap.Field{zap.String("submitter", key)}
			if started, held := c.guard.Since(key); held {
				fields = append(fields, zap.Duration("in_flight_for", c.now().Sub(started)))
			}
			c.logger.Info("submission rejected while another is in flight", fields...)
			return nil, apperr.ErrSubmissionInFlight
		}
		defer release()
	}

	log := c.logger.With(zap.String("kind", string(req.Kind)), zap.String("submitter", key))
	run := newTracker(log)

	run.advance(StateValidating)
	draft, err := c.prepare(ctx, req)
	if err != nil {
		run.fail(err)
		return nil, err
	}

	alloc, err := c.deps.Allocator.Allocate(ctx, req.Kind)
	if err != nil {
		run.fail(err)
		return nil, err
	}
	log = log.With(zap.String("quote_id", alloc.QuoteID))
	run.logger = log
	run.advance(StateIDAllocated)

	quote := draft
	quote.QuoteID = alloc.QuoteID
	quote.Sequence = alloc.Sequence
	now := c.now().UTC()
	quote.CreatedAt = now
	quote.UpdatedAt = now

	if err := quote.Validate(); err != nil {
		err = fmt.Errorf("%w: %s: %v", apperr.ErrPersistence, alloc.QuoteID, err)
		run.fail(err)
		return nil, err
	}

	if err := c.deps.Quotes.InsertQuote(ctx, quote); err != nil {
		log.Error("order write failed after id allocation; id is now a gap",
			zap.String("counter", alloc.Counter),
			zap.String("path", quote.Path()),
			zap.Error(err))
		err = fmt.Errorf("%w: %s: %v", apperr.ErrPersistence, alloc.QuoteID, err)
		run.fail(err)
		return nil, err
	}
	run.advance(StatePersisted, zap.String("path", quote.Path()))

	result := &Result{QuoteID: quote.QuoteID, Quote: quote}

	if _, err := c.deps.Audit.Log(ctx, audit.Record{Path: quote.Path(), Entity: quote.Entity(), After: quote}, actx); err != nil {
		log.Error("order persisted without audit entry", zap.Error(err))
		result.AuditFailed = true
	}
	run.advance(StateAudited)

	if req.Kind == models.QuoteKindCart && c.deps.Carts != nil {
		if err := c.deps.Carts.Clear(ctx, req.CartOwner); err != nil {
			log.Warn("could not clear cart after order", zap.String("owner", req.CartOwner), zap.Error(err))
		} else {
			result.CartCleared = true
		}
	}
	run.advance(StateComplete)

	if c.deps.Links != nil {
		result.ChatLink = c.deps.Links.ChatLink(quote)
	}
	c.runHooks(ctx, log, quote)

	result.State = run.state
	result.Trail = run.visited
	log.Info("order submitted",
		zap.Bool("price_on_request", quote.PriceOnRequest),
		zap.Bool("audit_failed", result.AuditFailed))
	return result, nil
}

func (c *Coordinator) runHooks(ctx context.Context, log *zap.Logger, quote models.Quote) {
	var errs error
	for _, h := range c.deps.Hooks {
		if err := h.QuoteSubmitted(ctx, quote); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", h.Name(), err))
		}
	}
	if errs != nil {
		log.Warn("post-submission hooks failed",
			zap.Int("failed", len(multierr.Errors(errs))),
			zap.Error(errs))
	}
}

// prepare validates the request and builds the order document without an id.
func (c *Coordinator) prepare(ctx context.Context, req Request) (models.Quote, error) {
	verr := apperr.NewValidationError()
	if !req.Kind.Valid() {
		verr.Add("kind", fmt.Sprintf("unknown quote kind %q", req.Kind))
	}
	if err := c.deps.Validator.Validate(req.Customer); err != nil {
		var cv *apperr.ValidationError
		if !errors.As(err, &cv) {
			return models.Quote{}, err
		}
		for field, msg := range cv.Fields {
			verr.Add(field, msg)
		}
	}

	sh := req.Shipping
	sh.Currency = strings.ToUpper(strings.TrimSpace(sh.Currency))
	if strings.TrimSpace(sh.Packing) == "" {
		verr.Add("shipping.packing", "is required")
	}
	if sh.CIF && strings.TrimSpace(sh.Port) == "" {
		verr.Add("shipping.port", "is required for CIF orders")
	}

	switch req.Kind {
	case models.QuoteKindBulk, models.QuoteKindSampleCourier:
		validateProduct(verr, req.Product)
	case models.QuoteKindCart:
		if strings.TrimSpace(req.CartOwner) == "" {
			verr.Add("cartOwner", "is required")
		}
	}

	conv, err := c.deps.Pricer.Converter(ctx)
	if err != nil {
		return models.Quote{}, err
	}
	if sh.Currency == "" {
		sh.Currency = conv.Base()
	}
	rate, err := conv.Rate(sh.Currency)
	if err != nil {
		verr.Add("shipping.currency", fmt.Sprintf("currency %s is not available", sh.Currency))
	}

	if err := verr.OrNil(); err != nil {
		return models.Quote{}, err
	}

	quote := models.Quote{
		Kind:           req.Kind,
		Bucket:         req.Kind.Bucket(),
		Status:         models.QuoteStatusPending,
		Customer:       req.Customer,
		Shipping:       sh,
		Currency:       sh.Currency,
		ExchangeRate:   rate,
		AdditionalInfo: strings.TrimSpace(req.AdditionalInfo),
	}

	if req.Kind == models.QuoteKindCart {
		return c.prepareCart(ctx, quote, req.CartOwner)
	}
	return c.prepareSingle(ctx, quote, *req.Product)
}

func (c *Coordinator) prepareSingle(ctx context.Context, quote models.Quote, p ProductSelection) (models.Quote, error) {
	view, err := c.deps.Pricer.Price(ctx, quoting.SingleQuoteRequest{
		ProductID: p.ProductID,
		Grade:     p.Grade,
		Quantity:  p.Quantity,
		Shipping:  quote.Shipping,
	})
	if err != nil {
		return models.Quote{}, err
	}

	quote.Single = &models.SingleProductDetails{
		ProductID:    p.ProductID,
		ProductName:  p.ProductName,
		Grade:        p.Grade,
		QuantityUnit: p.Quantity,
		PricePerKg:   view.PricePerKg,
	}
	quote.PriceOnRequest = view.PriceOnRequest
	quote.Breakdown = view.Breakdown
	quote.BaseBreakdown = view.BaseBreakdown
	return quote, nil
}

func (c *Coordinator) prepareCart(ctx context.Context, quote models.Quote, owner string) (models.Quote, error) {
	if c.deps.Carts == nil {
		return models.Quote{}, errors.New("cart orders are not configured")
	}
	cart, err := c.deps.Carts.Get(ctx, owner)
	if err != nil {
		return models.Quote{}, err
	}
	if len(cart.Items) == 0 {
		return models.Quote{}, apperr.Invalid("cart", "cart is empty")
	}

	view, err := c.deps.Pricer.PriceCart(ctx, quoting.CartQuoteRequest{Items: cart.Items, Shipping: quote.Shipping})
	if err != nil {
		return models.Quote{}, err
	}

	details := &models.CartOrderDetails{
		CartOwner: owner,
		Subtotal:  view.Summary.Subtotal,
		ItemCount: view.Summary.ItemCount,
		TotalBags: view.Summary.TotalBags,
	}
	products := make(map[string]struct{})
	for _, line := range view.Summary.Items {
		details.Lines = append(details.Lines, models.CartOrderLine{
			LineID:       line.Item.LineID,
			ProductID:    line.Item.ProductID,
			ProductName:  line.Item.ProductName,
			Grade:        line.Item.Grade,
			Packing:      line.Item.Packing,
			QuantityUnit: line.Item.QuantityUnit,
			Quantity:     line.Item.Units(),
			NumberOfBags: line.Item.Bags(),
			UnitPrice:    line.UnitPrice,
			Subtotal:     line.Subtotal,
			PriceSource:  string(line.Source),
			PriceFetched: line.PriceFetched,
		})
		products[line.Item.ProductID] = struct{}{}
	}
	details.ProductCount = len(products)

	quote.Cart = details
	quote.Breakdown = view.Breakdown
	quote.BaseBreakdown = view.BaseBreakdown
	return quote, nil
}

func validateProduct(verr *apperr.ValidationError, p *ProductSelection) {
	if p == nil {
		verr.Add("product", "is required")
		return
	}
	if strings.TrimSpace(p.ProductID) == "" {
		verr.Add("product.productId", "is required")
	}
	if strings.TrimSpace(p.Grade) == "" {
		verr.Add("product.grade", "is required")
	}
	if !p.Quantity.Valid() {
		verr.Add("product.quantity", fmt.Sprintf("unsupported quantity %q", p.Quantity))
	}
}

// submitterKey identifies who is submitting. Anonymous submissions are keyed by the
// customer email so distinct customers never block each other. An empty key means the
// submitter cannot be identified and the request is not guarded.
func submitterKey(actx models.ActorContext, req Request) string {
	actor := actx.Resolve()
	if actor.Role != models.RoleSystem {
		if actor.UID != "" {
			return "uid:" + actor.UID
		}
		return "email:" + actor.Email
	}
	email := strings.ToLower(strings.TrimSpace(req.Customer.Email))
	if email == "" {
		return ""
	}
	return "customer:" + email
}
