package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/siea/ricequote/internal/config"
	"github.com/siea/ricequote/internal/domain/models"
)

const jobTimeout = 2 * time.Minute

// RateSyncer refreshes exchange rates.
type RateSyncer interface {
	Sync(ctx context.Context) (models.RateTable, error)
}

// AuditMonitor exposes the audit logger's failure counters.
type AuditMonitor interface {
	ConsecutiveFailures() int64
	TotalFailures() int64
}

// Alerter notifies an operator about audit trouble.
type Alerter interface {
	AuditFailures(ctx context.Context, consecutive, total int64) error
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron    *cron.Cron
	cfg     config.Config
	rates   RateSyncer
	monitor AuditMonitor
	alerter Alerter
	logger  *zap.Logger

	mu          sync.Mutex
	alertedAt   int64
	lastAlertOK bool
}

// NewScheduler creates a new scheduler instance. rates and alerter may be nil when
// the corresponding integration is not configured.
func NewScheduler(cfg config.Config, rates RateSyncer, monitor AuditMonitor, alerter Alerter, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}

	// Standard 5-field cron expressions; a panicking job must not take the process down.
	c := cron.New(cron.WithChain(cron.Recover(cron.DiscardLogger)))

	return &Scheduler{
		cron:    c,
		cfg:     cfg,
		rates:   rates,
		monitor: monitor,
		alerter: alerter,
		logger:  logger,
	}
}

// Start registers the jobs and starts the scheduler.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler")

	if s.rates != nil {
		if _, err := s.cron.AddFunc(s.cfg.Rates.CronSchedule, s.refreshRates); err != nil {
			return fmt.Errorf("schedule rate refresh %q: %w", s.cfg.Rates.CronSchedule, err)
		}
	}
	if s.monitor != nil && s.alerter != nil {
		if _, err := s.cron.AddFunc(s.cfg.Audit.AlertSchedule, s.checkAudit); err != nil {
			return fmt.Errorf("schedule audit check %q: %w", s.cfg.Audit.AlertSchedule, err)
		}
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) refreshRates() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	table, err := s.rates.Sync(ctx)
	if err != nil {
		s.logger.Error("failed to refresh exchange rates", zap.Error(err))
		return
	}
	s.logger.Info("exchange rate refresh finished", zap.Int("currencies", len(table.Rates)))
}

// checkAudit alerts once per failure streak that reaches the threshold.
func (s *Scheduler) checkAudit() {
	streak := s.monitor.ConsecutiveFailures()

	s.mu.Lock()
	defer s.mu.Unlock()

	if streak < int64(s.cfg.Audit.AlertThreshold) {
		s.alertedAt = 0
		return
	}
	if s.alertedAt != 0 && streak >= s.alertedAt && s.lastAlertOK {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	s.alertedAt = streak
	s.lastAlertOK = true
	if err := s.alerter.AuditFailures(ctx, streak, s.monitor.TotalFailures()); err != nil {
		s.lastAlertOK = false
		s.logger.Error("failed to send audit alert", zap.Error(err))
		return
	}
	s.logger.Warn("audit failure alert sent", zap.Int64("consecutive_failures", streak))
}
