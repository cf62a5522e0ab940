package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/siea/ricequote/internal/domain/models"
	"github.com/siea/ricequote/internal/service/quoting"
	"github.com/siea/ricequote/internal/service/submission"
)

// Pricer is the quoting surface used by the HTTP layer.
type Pricer interface {
	Price(ctx context.Context, req quoting.SingleQuoteRequest) (quoting.QuoteView, error)
	PriceCart(ctx context.Context, req quoting.CartQuoteRequest) (quoting.CartQuoteView, error)
	Watch(ctx context.Context, req quoting.SingleQuoteRequest, fn func(quoting.QuoteView, error)) (func(), error)
	Rates(ctx context.Context) (models.RateTable, error)
	Ports(state string) []string
}

// Submitter finalizes orders.
type Submitter interface {
	Submit(ctx context.Context, actx models.ActorContext, req submission.Request) (*submission.Result, error)
}

// QuoteHandler serves live pricing and order submission.
type QuoteHandler struct {
	pricer    Pricer
	submitter Submitter
	logger    *zap.Logger
}

// NewQuoteHandler constructs the HTTP handler adapter.
func NewQuoteHandler(pricer Pricer, submitter Submitter, logger *zap.Logger) *QuoteHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuoteHandler{pricer: pricer, submitter: submitter, logger: logger}
}

// Price returns the breakdown of a single product quote.
func (h *QuoteHandler) Price(c *gin.Context) {
	var req quoting.SingleQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	view, err := h.pricer.Price(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// PriceCart returns the consolidated breakdown of a set of cart lines.
func (h *QuoteHandler) PriceCart(c *gin.Context) {
	var req quoting.CartQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	view, err := h.pricer.PriceCart(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Submit finalizes an order.
func (h *QuoteHandler) Submit(c *gin.Context) {
	var req submission.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	res, err := h.submitter.Submit(c.Request.Context(), ActorFrom(c), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// Rates returns the effective exchange-rate table.
func (h *QuoteHandler) Rates(c *gin.Context) {
	table, err := h.pricer.Rates(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, table)
}

// Ports lists the destination ports reachable from the state in the query, for the
// CIF port picker. An unknown state yields an empty list.
func (h *QuoteHandler) Ports(c *gin.Context) {
	state := c.Query("state")
	if state == "" {
		badRequest(c, h.logger, errors.New("state is required"))
		return
	}
	ports := h.pricer.Ports(state)
	if ports == nil {
		ports = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"state": state, "ports": ports})
}

type watchQuery struct {
	ProductID  string `form:"productId" binding:"required"`
	Grade      string `form:"grade" binding:"required"`
	Quantity   string `form:"quantity" binding:"required"`
	Packing    string `form:"packing"`
	CIF        bool   `form:"cif"`
	Port       string `form:"port"`
	State      string `form:"state"`
	CustomLogo bool   `form:"customLogo"`
	Currency   string `form:"currency"`
}

func (q watchQuery) request() (quoting.SingleQuoteRequest, error) {
	unit, err := models.ParseQuantityUnit(q.Quantity)
	if err != nil {
		return quoting.SingleQuoteRequest{}, err
	}
	return quoting.SingleQuoteRequest{
		ProductID: q.ProductID,
		Grade:     q.Grade,
		Quantity:  unit,
		Shipping: models.Shipping{
			Packing:     q.Packing,
			CIF:         q.CIF,
			Port:        q.Port,
			SourceState: q.State,
			CustomLogo:  q.CustomLogo,
			Currency:    q.Currency,
		},
	}, nil
}

type watchEvent struct {
	view quoting.QuoteView
	err  error
}

// Watch streams a recomputed quote as server-sent events whenever the product's
// grades change.
func (h *QuoteHandler) Watch(c *gin.Context) {
	var q watchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	req, err := q.request()
	if err != nil {
		badRequest(c, h.logger, err)
		return
	}

	ctx := c.Request.Context()
	events := make(chan watchEvent, 4)
	cancel, err := h.pricer.Watch(ctx, req, func(view quoting.QuoteView, err error) {
		select {
		case events <- watchEvent{view: view, err: err}:
		case <-ctx.Done():
		}
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	defer cancel()

	c.Header("Cache-Control", "no-cache")
	c.Stream(func(io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case ev := <-events:
			if ev.err != nil {
				c.SSEvent("error", gin.H{"error": ev.err.Error()})
				return true
			}
			c.SSEvent("quote", ev.view)
			return true
		}
	})
}
