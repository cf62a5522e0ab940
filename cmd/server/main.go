package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/siea/ricequote/internal/config"
	"github.com/siea/ricequote/internal/repository/memory"
	"github.com/siea/ricequote/internal/repository/mongodb"
	"github.com/siea/ricequote/internal/repository/sheets"
	"github.com/siea/ricequote/internal/scheduler"
	"github.com/siea/ricequote/internal/server/handlers"
	"github.com/siea/ricequote/internal/server/router"
	adminsvc "github.com/siea/ricequote/internal/service/admin"
	"github.com/siea/ricequote/internal/service/allocator"
	"github.com/siea/ricequote/internal/service/audit"
	cartsvc "github.com/siea/ricequote/internal/service/cart"
	"github.com/siea/ricequote/internal/service/notify"
	"github.com/siea/ricequote/internal/service/quoting"
	"github.com/siea/ricequote/internal/service/ratesync"
	"github.com/siea/ricequote/internal/service/submission"
	ratesclient "github.com/siea/ricequote/pkg/clients/rates"
	whatsappclient "github.com/siea/ricequote/pkg/clients/whatsapp"
	"github.com/siea/ricequote/pkg/logger"
)

// documentStore is every persistence port the engine needs; both backends satisfy it.
type documentStore interface {
	quoting.Catalog
	quoting.RateStore
	cartsvc.Store
	allocator.Counter
	submission.QuoteWriter
	adminsvc.QuoteStore
	adminsvc.CatalogStore
	adminsvc.RateStore
	audit.Sink
	handlers.HistoryReader
}

func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (documentStore, func(), error) {
	if cfg.Store.Driver == "memory" {
		log.Warn("using in-memory store, data is lost on restart")
		return memory.NewStore(), func() {}, nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	store, err := mongodb.NewStore(connectCtx, cfg.MongoDB.URI, cfg.MongoDB.DBName, log.Named("repo.mongodb"))
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := store.Close(context.Background()); err != nil {
			log.Error("failed to close mongodb connection", zap.Error(err))
		}
	}
	return store, closeFn, nil
}

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Log.Level, cfg.Log.Format))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	tariff, err := config.LoadTariff(cfg.Pricing.TariffFile)
	if err != nil {
		baseLogger.Fatal("failed to load tariff", zap.Error(err))
	}
	defaultRates := config.DefaultRateTable(tariff)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, baseLogger)
	if err != nil {
		baseLogger.Fatal("failed to init document store", zap.Error(err))
	}
	defer closeStore()

	auditLog := audit.NewLogger(store, baseLogger.Named("svc.audit"))
	pricer := quoting.NewService(store, store, tariff, defaultRates, baseLogger.Named("svc.quoting"))
	carts := cartsvc.NewService(store, pricer.Resolver(), baseLogger.Named("svc.cart"))

	var hooks []submission.Hook
	var alerts *notify.OperatorAlerts
	if cfg.WhatsApp.Enabled() {
		whatsClient := whatsappclient.NewClient(cfg.WhatsApp, whatsappclient.WithRetries(2, time.Second))
		alerts = notify.NewOperatorAlerts(whatsClient, cfg.WhatsApp.OperatorID, baseLogger.Named("svc.notify"))
		hooks = append(hooks, alerts)
		baseLogger.Info("whatsapp operator alerts enabled")
	} else {
		baseLogger.Warn("whatsapp credentials missing, operator alerts disabled")
	}

	if cfg.Sheets.Enabled() {
		sheetsClient, err := sheets.NewClient(ctx, cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets client", zap.Error(err))
		}
		hooks = append(hooks, sheets.NewQuoteLedger(sheetsClient, baseLogger.Named("repo.sheets")))
		baseLogger.Info("google sheets quote ledger enabled")
	}

	coordinator := submission.NewCoordinator(submission.Dependencies{
		Pricer:    pricer,
		Allocator: allocator.New(store, baseLogger.Named("svc.allocator")),
		Quotes:    store,
		Audit:     auditLog,
		Carts:     carts,
		Links:     notify.NewLinks(cfg.WhatsApp.ChatNumber),
		Hooks:     hooks,
		Validator: submission.NewCustomerValidator(tariff.PhoneDigits),
	}, baseLogger.Named("svc.submission"))

	adminService := adminsvc.NewService(adminsvc.Dependencies{
		Quotes:       store,
		Catalog:      store,
		Rates:        store,
		RateReader:   pricer,
		DefaultRates: defaultRates,
		Audit:        auditLog,
	}, baseLogger.Named("svc.admin"))

	engine := router.New(router.Handlers{
		Quotes: handlers.NewQuoteHandler(pricer, coordinator, baseLogger.Named("handlers.quotes")),
		Carts:  handlers.NewCartHandler(carts, baseLogger.Named("handlers.carts")),
		Admin:  handlers.NewAdminHandler(adminService, store, baseLogger.Named("handlers.admin")),
	}, baseLogger.Named("router"))

	var syncer scheduler.RateSyncer
	if cfg.Rates.SourceURL != "" {
		syncer = ratesync.NewService(ratesclient.NewClient(cfg.Rates.SourceURL), pricer, store, auditLog, baseLogger.Named("svc.ratesync"))
	}
	var alerter scheduler.Alerter
	if alerts != nil {
		alerter = alerts
	}

	sched := scheduler.NewScheduler(*cfg, syncer, auditLog, alerter, baseLogger.Named("scheduler"))
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// No write timeout: /api/quotes/watch holds its response open.
		IdleTimeout: 60 * time.Second,
		// Open watch streams end when the shutdown signal cancels ctx.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port), zap.String("store", cfg.Store.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
