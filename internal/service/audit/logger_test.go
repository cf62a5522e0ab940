package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siea/ricequote/internal/domain/apperr"
	"github.com/siea/ricequote/internal/domain/models"
	"github.com/siea/ricequote/internal/repository/memory"
)

type flakySink struct {
	fail bool
}

func (f *flakySink) AppendHistory(context.Context, models.AuditEntry) error {
	if f.fail {
		return errors.New("history unavailable")
	}
	return nil
}

type doc struct {
	Name  string `json:"name"`
	Price int    `json:"price"`
}

func TestDeriveAction(t *testing.T) {
	var nilDoc *doc
	tests := []struct {
		name   string
		before any
		after  any
		want   models.AuditAction
		err    bool
	}{
		{"create", nil, doc{Name: "x"}, models.ActionCreate, false},
		{"typed nil before", nilDoc, &doc{Name: "x"}, models.ActionCreate, false},
		{"delete", doc{Name: "x"}, nil, models.ActionDelete, false},
		{"update", doc{Name: "x"}, doc{Name: "y"}, models.ActionUpdate, false},
		{"neither", nil, nilDoc, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DeriveAction(tt.before, tt.after)
			if tt.err {
				assert.ErrorIs(t, err, apperr.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDiff(t *testing.T) {
	changes, err := Diff(doc{Name: "Steam A", Price: 95}, doc{Name: "Steam A", Price: 97})
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, "price", changes[0].Field)
	assert.EqualValues(t, 95, changes[0].From)
	assert.EqualValues(t, 97, changes[0].To)

	changes, err = Diff(nil, doc{Name: "Sella", Price: 88})
	require.NoError(t, err)
	assert.Len(t, changes, 2)

	changes, err = Diff("0.0113", "0.0114")
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, "value", changes[0].Field)
}

func TestLogResolvesActorAndWritesEntry(t *testing.T) {
	store := memory.NewStore()
	l := NewLogger(store, nil)
	ctx := context.Background()

	actx := models.ActorContext{
		Cached:  &models.Identity{Email: "ops@siea.in", UID: "a1"},
		Session: &models.Identity{Email: "buyer@example.com"},
	}
	entry, err := l.Log(ctx, Record{Path: "quotes/bulk/BulkQuote-1", Entity: models.EntityOrder, After: doc{Name: "x"}}, actx)
	require.NoError(t, err)
	assert.Equal(t, models.ActionCreate, entry.Action)
	assert.Equal(t, "ops@siea.in", entry.Actor)
	assert.Equal(t, models.RoleAdmin, entry.ActorRole)
	assert.Nil(t, entry.Before)
	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.Timestamp.IsZero())

	_, err = l.Log(ctx, Record{Path: "quotes/bulk/BulkQuote-1", Entity: models.EntityOrder, Before: doc{Name: "x"}}, models.ActorContext{})
	require.NoError(t, err)

	history := store.History()
	require.Len(t, history, 2)
	assert.Equal(t, models.ActionDelete, history[1].Action)
	assert.Equal(t, models.SystemActor, history[1].Actor)
	assert.Equal(t, models.RoleSystem, history[1].ActorRole)
}

func TestLogCountsConsecutiveFailures(t *testing.T) {
	sink := &flakySink{fail: true}
	l := NewLogger(sink, nil)
	ctx := context.Background()
	rec := Record{Path: "products/p1", Entity: models.EntityProduct, After: doc{Name: "x"}}

	for i := 0; i < 3; i++ {
		_, err := l.Log(ctx, rec, models.ActorContext{})
		assert.ErrorIs(t, err, apperr.ErrAudit)
	}
	assert.EqualValues(t, 3, l.ConsecutiveFailures())

	sink.fail = false
	_, err := l.Log(ctx, rec, models.ActorContext{})
	require.NoError(t, err)
	assert.EqualValues(t, 0, l.ConsecutiveFailures())
	assert.EqualValues(t, 3, l.TotalFailures())
}
