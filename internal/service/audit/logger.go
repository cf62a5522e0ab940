package audit

import (
	"context"
	"fmt"
	"reflect"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/siea/ricequote/internal/domain/apperr"
	"github.com/siea/ricequote/internal/domain/models"
)

// Sink is the append-only history store.
type Sink interface {
	AppendHistory(ctx context.Context, entry models.AuditEntry) error
}

// Record describes one mutation. Before is nil for creates and After is nil for deletes.
// When Changes is empty it is computed from Before and After.
type Record struct {
	Path    string
	Entity  string
	Before  any
	After   any
	Changes []models.FieldChange
}

// Logger writes audit entries and tracks consecutive write failures so operators can
// be alerted when history is systematically failing.
type Logger struct {
	sink     Sink
	logger   *zap.Logger
	now      func() time.Time
	failures atomic.Int64
	total    atomic.Int64
}

// NewLogger builds a Logger over sink.
func NewLogger(sink Sink, logger *zap.Logger) *Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Logger{sink: sink, logger: logger, now: time.Now}
}

// Log records rec on behalf of the resolved actor. Errors wrap apperr.ErrAudit.
func (l *Logger) Log(ctx context.Context, rec Record, actx models.ActorContext) (models.AuditEntry, error) {
	action, err := DeriveAction(rec.Before, rec.After)
	if err != nil {
		return models.AuditEntry{}, err
	}

	changes := rec.Changes
	if len(changes) == 0 {
		changes, err = Diff(rec.Before, rec.After)
		if err != nil {
			l.logger.Warn("could not diff audit snapshots", zap.String("path", rec.Path), zap.Error(err))
		}
	}

	actor := actx.Resolve()
	entry := models.AuditEntry{
		ID:        uuid.NewString(),
		Path:      rec.Path,
		Entity:    rec.Entity,
		Action:    action,
		Before:    normalize(rec.Before),
		After:     normalize(rec.After),
		Changes:   changes,
		Actor:     actor.Email,
		ActorUID:  actor.UID,
		ActorRole: actor.Role,
		Timestamp: l.now().UTC(),
	}

	if err := l.sink.AppendHistory(ctx, entry); err != nil {
		streak := l.failures.Add(1)
		l.total.Add(1)
		l.logger.Error("audit write failed",
			zap.String("path", rec.Path),
			zap.String("entity", rec.Entity),
			zap.String("action", string(action)),
			zap.String("actor", actor.Email),
			zap.Int64("consecutive_failures", streak),
			zap.Error(err))
		return entry, fmt.Errorf("%w: %s %s: %v", apperr.ErrAudit, action, rec.Path, err)
	}

	l.failures.Store(0)
	l.logger.Debug("audit entry written",
		zap.String("path", rec.Path),
		zap.String("action", string(action)),
		zap.String("actor", actor.Email))
	return entry, nil
}

// ConsecutiveFailures is the number of failed writes since the last success.
func (l *Logger) ConsecutiveFailures() int64 {
	return l.failures.Load()
}

// TotalFailures counts every failed write since start.
func (l *Logger) TotalFailures() int64 {
	return l.total.Load()
}

// DeriveAction maps the before/after pair to CREATE, UPDATE or DELETE.
func DeriveAction(before, after any) (models.AuditAction, error) {
	switch b, a := isNil(before), isNil(after); {
	case b && a:
		return "", apperr.Invalid("snapshot", "before and after cannot both be empty")
	case b:
		return models.ActionCreate, nil
	case a:
		return models.ActionDelete, nil
	default:
		return models.ActionUpdate, nil
	}
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// normalize turns typed nils into untyped nil so stores persist an explicit null.
func normalize(v any) any {
	if isNil(v) {
		return nil
	}
	return v
}
