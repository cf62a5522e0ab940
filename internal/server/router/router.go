package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/siea/ricequote/internal/server/handlers"
)

// Handlers groups the HTTP adapters mounted by New.
type Handlers struct {
	Quotes *handlers.QuoteHandler
	Carts  *handlers.CartHandler
	Admin  *handlers.AdminHandler
}

// New wires the Gin engine with required routes and middlewares.
func New(h Handlers, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.POST("/quotes/price", h.Quotes.Price)
	api.GET("/quotes/watch", h.Quotes.Watch)
	api.POST("/quotes", h.Quotes.Submit)
	api.POST("/cart/price", h.Quotes.PriceCart)
	api.GET("/exchange-rates", h.Quotes.Rates)
	api.GET("/ports", h.Quotes.Ports)

	carts := api.Group("/carts/:owner")
	carts.GET("", h.Carts.Get)
	carts.DELETE("", h.Carts.Clear)
	carts.POST("/items", h.Carts.AddItem)
	carts.PATCH("/items/:line", h.Carts.SetBags)
	carts.DELETE("/items/:line", h.Carts.RemoveItem)

	adm := api.Group("/admin", handlers.RequireAdmin())
	adm.PATCH("/quotes/:id/status", h.Admin.SetStatus)
	adm.DELETE("/quotes/:id", h.Admin.DeleteQuote)
	adm.PUT("/products/:id", h.Admin.UpsertProduct)
	adm.PUT("/products/:id/grades/:key", h.Admin.PutGrade)
	adm.DELETE("/products/:id/grades/:key", h.Admin.DeleteGrade)
	adm.PUT("/exchange-rates/:code", h.Admin.SetRate)
	adm.DELETE("/exchange-rates/:code", h.Admin.DeleteRate)
	adm.POST("/exchange-rates/reset", h.Admin.ResetRates)
	adm.GET("/history", h.Admin.History)

	if logger != nil {
		logger.Info("router initialized")
	}

	return r
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Warn("request completed", fields...)
			return
		}
		logger.Info("request completed", fields...)
	}
}
