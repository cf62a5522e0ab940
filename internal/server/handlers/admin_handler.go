package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/siea/ricequote/internal/domain/models"
	"github.com/siea/ricequote/internal/service/admin"
)

// HistoryReader lists audit entries for a store path.
type HistoryReader interface {
	HistoryFor(ctx context.Context, path string, limit int64) ([]models.AuditEntry, error)
}

// AdminHandler serves the back-office mutations.
type AdminHandler struct {
	svc     *admin.Service
	history HistoryReader
	logger  *zap.Logger
}

// NewAdminHandler constructs the HTTP handler adapter.
func NewAdminHandler(svc *admin.Service, history HistoryReader, logger *zap.Logger) *AdminHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminHandler{svc: svc, history: history, logger: logger}
}

// RequireAdmin rejects requests without an admin identity.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if ActorFrom(c).Cached == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin identity required"})
			return
		}
		c.Next()
	}
}

type statusRequest struct {
	Status models.QuoteStatus `json:"status" binding:"required"`
}

// SetStatus moves a quote along its lifecycle.
func (h *AdminHandler) SetStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	quote, err := h.svc.TransitionStatus(c.Request.Context(), ActorFrom(c), c.Param("id"), req.Status)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

// DeleteQuote removes a quote.
func (h *AdminHandler) DeleteQuote(c *gin.Context) {
	if err := h.svc.DeleteQuote(c.Request.Context(), ActorFrom(c), c.Param("id")); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UpsertProduct creates or updates a product; the id comes from the path.
func (h *AdminHandler) UpsertProduct(c *gin.Context) {
	var product models.Product
	if err := c.ShouldBindJSON(&product); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	product.ID = c.Param("id")

	saved, err := h.svc.UpsertProduct(c.Request.Context(), ActorFrom(c), product)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

// PutGrade creates or replaces a grade.
func (h *AdminHandler) PutGrade(c *gin.Context) {
	var grade models.Grade
	if err := c.ShouldBindJSON(&grade); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	product, err := h.svc.PutGrade(c.Request.Context(), ActorFrom(c), c.Param("id"), c.Param("key"), grade)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// DeleteGrade removes a grade.
func (h *AdminHandler) DeleteGrade(c *gin.Context) {
	product, err := h.svc.DeleteGrade(c.Request.Context(), ActorFrom(c), c.Param("id"), c.Param("key"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

type rateRequest struct {
	Rate models.Money `json:"rate"`
}

// SetRate creates or changes one exchange rate.
func (h *AdminHandler) SetRate(c *gin.Context) {
	var req rateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	table, err := h.svc.SetRate(c.Request.Context(), ActorFrom(c), c.Param("code"), req.Rate)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, table)
}

// DeleteRate removes one currency.
func (h *AdminHandler) DeleteRate(c *gin.Context) {
	table, err := h.svc.DeleteRate(c.Request.Context(), ActorFrom(c), c.Param("code"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, table)
}

// ResetRates restores the configured default table.
func (h *AdminHandler) ResetRates(c *gin.Context) {
	table, err := h.svc.ResetRates(c.Request.Context(), ActorFrom(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, table)
}

// History lists the audit trail of one path, newest first.
func (h *AdminHandler) History(c *gin.Context) {
	path := c.Query("path")
	if path == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "path is required"})
		return
	}
	limit, err := strconv.ParseInt(c.DefaultQuery("limit", "50"), 10, 64)
	if err != nil || limit < 1 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return
	}

	entries, err := h.history.HistoryFor(c.Request.Context(), path, limit)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}
