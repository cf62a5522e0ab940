package ratesync

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/siea/ricequote/internal/domain/models"
	"github.com/siea/ricequote/internal/service/audit"
	"github.com/siea/ricequote/pkg/clients/rates"
)

// rebasePrecision is the number of decimal places kept when a feed is rebased.
const rebasePrecision = 16

// RateReader returns the effective rate table.
type RateReader interface {
	Rates(ctx context.Context) (models.RateTable, error)
}

// RateStore persists the rate table.
type RateStore interface {
	SaveRates(ctx context.Context, table models.RateTable) error
}

// AuditLogger records the refresh.
type AuditLogger interface {
	Log(ctx context.Context, rec audit.Record, actx models.ActorContext) (models.AuditEntry, error)
}

// Service refreshes the stored rate table from a remote feed. Only currencies already in
// the table are updated; admins decide which currencies are offered.
type Service struct {
	source rates.Source
	reader RateReader
	store  RateStore
	audit  AuditLogger
	logger *zap.Logger
}

// NewService wires a refresher.
func NewService(source rates.Source, reader RateReader, store RateStore, auditLogger AuditLogger, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{source: source, reader: reader, store: store, audit: auditLogger, logger: logger}
}

// Sync fetches the feed and saves the refreshed table. Currencies missing from the feed
// keep their previous rate.
func (s *Service) Sync(ctx context.Context) (models.RateTable, error) {
	current, err := s.reader.Rates(ctx)
	if err != nil {
		return models.RateTable{}, err
	}

	feed, err := s.source.Latest(ctx)
	if err != nil {
		return models.RateTable{}, err
	}

	quoted, err := rebase(feed, current.Base)
	if err != nil {
		return models.RateTable{}, err
	}

	next := current.Clone()
	var changes []models.FieldChange
	var missing []string
	for _, code := range sortedCodes(current.Rates) {
		if code == current.Base {
			continue
		}
		rate, ok := quoted[code]
		if !ok || !rate.IsPositive() {
			missing = append(missing, code)
			continue
		}
		if !rate.Equal(current.Rates[code]) {
			changes = append(changes, models.FieldChange{Field: "rates." + code, From: current.Rates[code], To: rate})
			next.Rates[code] = rate
		}
	}
	next.Rates[next.Base] = decimal.NewFromInt(1)

	if len(missing) > 0 {
		s.logger.Warn("currencies missing from rate feed", zap.Strings("codes", missing))
	}
	if len(changes) == 0 {
		s.logger.Info("exchange rates unchanged")
		return next, nil
	}

	if err := next.Validate(); err != nil {
		return models.RateTable{}, fmt.Errorf("refreshed rate table: %w", err)
	}
	if err := s.store.SaveRates(ctx, next); err != nil {
		return models.RateTable{}, err
	}

	// No identity: the entry is attributed to System.
	if _, err := s.audit.Log(ctx, audit.Record{
		Path:    "exchangeRates/rates",
		Entity:  models.EntityExchangeRate,
		Before:  current,
		After:   next,
		Changes: changes,
	}, models.ActorContext{}); err != nil {
		s.logger.Error("rate refresh not audited", zap.Error(err))
	}

	s.logger.Info("exchange rates refreshed", zap.Int("changed", len(changes)))
	return next, nil
}

// rebase expresses the feed relative to base.
func rebase(feed *rates.LatestResponse, base string) (map[string]models.Money, error) {
	if feed.BaseCode == base {
		return feed.Rates, nil
	}
	pivot, ok := feed.Rates[base]
	if !ok || !pivot.IsPositive() {
		return nil, fmt.Errorf("rate feed based on %s does not quote %s", feed.BaseCode, base)
	}
	out := make(map[string]models.Money, len(feed.Rates))
	for code, rate := range feed.Rates {
		out[code] = rate.DivRound(pivot, rebasePrecision)
	}
	return out, nil
}

func sortedCodes(m map[string]models.Money) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
