package admin

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/siea/ricequote/internal/domain/apperr"
	"github.com/siea/ricequote/internal/domain/models"
	"github.com/siea/ricequote/internal/service/audit"
)

const ratesPath = "exchangeRates/rates"

// SetRate creates or changes the rate of code. The base currency is fixed at 1.
func (s *Service) SetRate(ctx context.Context, actx models.ActorContext, code string, rate models.Money) (models.RateTable, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return models.RateTable{}, apperr.Invalid("code", "is required")
	}
	if !rate.IsPositive() {
		return models.RateTable{}, apperr.Invalid("rate", "must be positive")
	}

	before, err := s.deps.RateReader.Rates(ctx)
	if err != nil {
		return models.RateTable{}, err
	}
	if code == before.Base {
		return models.RateTable{}, apperr.Invalid("code", fmt.Sprintf("the %s base rate cannot be edited", code))
	}

	after := before.Clone()
	after.Rates[code] = rate
	var from any
	if old, ok := before.Rates[code]; ok {
		from = old
	}
	return s.saveRates(ctx, actx, before, after, []models.FieldChange{{Field: "rates." + code, From: from, To: rate}})
}

// DeleteRate removes a currency. The base currency cannot be removed.
func (s *Service) DeleteRate(ctx context.Context, actx models.ActorContext, code string) (models.RateTable, error) {
	code = strings.ToUpper(strings.TrimSpace(code))

	before, err := s.deps.RateReader.Rates(ctx)
	if err != nil {
		return models.RateTable{}, err
	}
	if code == before.Base {
		return models.RateTable{}, apperr.Invalid("code", fmt.Sprintf("the %s base rate cannot be deleted", code))
	}
	old, ok := before.Rates[code]
	if !ok {
		return models.RateTable{}, fmt.Errorf("rate %s: %w", code, apperr.ErrNotFound)
	}

	after := before.Clone()
	delete(after.Rates, code)
	return s.saveRates(ctx, actx, before, after, []models.FieldChange{{Field: "rates." + code, From: old}})
}

// ResetRates restores the configured default table.
func (s *Service) ResetRates(ctx context.Context, actx models.ActorContext) (models.RateTable, error) {
	before, err := s.deps.RateReader.Rates(ctx)
	if err != nil {
		return models.RateTable{}, err
	}
	return s.saveRates(ctx, actx, before, s.deps.DefaultRates.Clone(), nil)
}

func (s *Service) saveRates(ctx context.Context, actx models.ActorContext, before, after models.RateTable, changes []models.FieldChange) (models.RateTable, error) {
	if err := after.Validate(); err != nil {
		return models.RateTable{}, apperr.Invalid("rates", err.Error())
	}
	if err := s.deps.Rates.SaveRates(ctx, after); err != nil {
		return models.RateTable{}, err
	}

	s.record(ctx, actx, audit.Record{
		Path:    ratesPath,
		Entity:  models.EntityExchangeRate,
		Before:  before,
		After:   after,
		Changes: changes,
	})
	s.logger.Info("exchange rates updated", zap.Int("currencies", len(after.Rates)))
	return after, nil
}
