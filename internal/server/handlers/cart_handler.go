package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/siea/ricequote/internal/service/cart"
)

// CartHandler exposes the persisted carts.
type CartHandler struct {
	svc    *cart.Service
	logger *zap.Logger
}

// NewCartHandler constructs the HTTP handler adapter.
func NewCartHandler(svc *cart.Service, logger *zap.Logger) *CartHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CartHandler{svc: svc, logger: logger}
}

// Get returns the cart together with its priced summary.
func (h *CartHandler) Get(c *gin.Context) {
	owner := c.Param("owner")
	ctx := c.Request.Context()

	cartDoc, err := h.svc.Get(ctx, owner)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	summary, err := h.svc.Summary(ctx, owner)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cart": cartDoc, "summary": summary})
}

// AddItem puts a product grade in the cart.
func (h *CartHandler) AddItem(c *gin.Context) {
	var req cart.AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	cartDoc, err := h.svc.Add(c.Request.Context(), c.Param("owner"), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, cartDoc)
}

type setBagsRequest struct {
	NumberOfBags int `json:"numberOfBags"`
}

// SetBags changes the bag count of a line; zero removes it.
func (h *CartHandler) SetBags(c *gin.Context) {
	var req setBagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	cartDoc, err := h.svc.SetBags(c.Request.Context(), c.Param("owner"), c.Param("line"), req.NumberOfBags)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, cartDoc)
}

// RemoveItem drops one line.
func (h *CartHandler) RemoveItem(c *gin.Context) {
	cartDoc, err := h.svc.Remove(c.Request.Context(), c.Param("owner"), c.Param("line"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, cartDoc)
}

// Clear empties the cart.
func (h *CartHandler) Clear(c *gin.Context) {
	if err := h.svc.Clear(c.Request.Context(), c.Param("owner")); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
