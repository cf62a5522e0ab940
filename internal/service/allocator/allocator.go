package allocator

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/siea/ricequote/internal/domain/apperr"
	"github.com/siea/ricequote/internal/domain/models"
)

// Counter is the store's atomic increment-and-read primitive. Implementations retry
// concurrent writers themselves; callers never lock.
type Counter interface {
	Increment(ctx context.Context, name string) (int64, error)
}

// Allocation is a freshly reserved order identifier.
type Allocation struct {
	QuoteID  string
	Sequence int64
	Counter  string
}

// Allocator hands out human-readable sequential order ids.
type Allocator struct {
	counter Counter
	logger  *zap.Logger
}

// New builds an Allocator over counter.
func New(counter Counter, logger *zap.Logger) *Allocator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Allocator{counter: counter, logger: logger}
}

// Allocate reserves the next id for kind. Cart orders share the bulk counter.
// A failed increment is reported as apperr.ErrAllocation and is safe to retry.
func (a *Allocator) Allocate(ctx context.Context, kind models.QuoteKind) (Allocation, error) {
	if !kind.Valid() {
		return Allocation{}, apperr.Invalid("kind", fmt.Sprintf("unknown quote kind %q", kind))
	}

	name := kind.Counter()
	seq, err := a.counter.Increment(ctx, name)
	if err != nil {
		a.logger.Error("order id allocation failed", zap.String("counter", name), zap.Error(err))
		return Allocation{}, fmt.Errorf("%w: counter %s: %v", apperr.ErrAllocation, name, err)
	}
	if seq < 1 {
		a.logger.Error("counter returned non-positive value", zap.String("counter", name), zap.Int64("value", seq))
		return Allocation{}, fmt.Errorf("%w: counter %s returned %d", apperr.ErrAllocation, name, seq)
	}

	id := Format(kind.Prefix(), seq)
	a.logger.Debug("order id allocated", zap.String("quote_id", id), zap.String("counter", name))
	return Allocation{QuoteID: id, Sequence: seq, Counter: name}, nil
}

// Format renders <prefix>-<seq>.
func Format(prefix string, seq int64) string {
	return fmt.Sprintf("%s-%d", prefix, seq)
}
