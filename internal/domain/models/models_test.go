package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuantityUnit(t *testing.T) {
	tests := []struct {
		in   string
		want QuantityUnit
		err  bool
	}{
		{in: "10kg", want: Quantity10Kg},
		{in: " 25 KG ", want: Quantity25Kg},
		{in: "1ton", want: Quantity1Ton},
		{in: "1 Ton", want: Quantity1Ton},
		{in: "7kg", err: true},
		{in: "", err: true},
	}
	for _, tt := range tests {
		got, err := ParseQuantityUnit(tt.in)
		if tt.err {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	assert.Equal(t, "10", Quantity1Ton.Quintals().String())
	assert.True(t, QuantityUnit("bogus").Kilograms().IsZero())
}

func TestCartLineItemDefaults(t *testing.T) {
	item := CartLineItem{ProductID: "p1", Grade: "Steam A", QuantityUnit: Quantity10Kg}
	assert.Equal(t, 1, item.Units())
	assert.Equal(t, 1, item.Bags())

	same := item
	same.Grade = "steam a"
	same.Quantity = 1
	same.NumberOfBags = 9
	assert.True(t, item.SameLine(same))

	other := item
	other.Packing = "Jute Bags"
	assert.False(t, item.SameLine(other))
}

func TestQuoteStatusTransitions(t *testing.T) {
	allowed := map[QuoteStatus][]QuoteStatus{
		QuoteStatusPending: {QuoteStatusQuoted, QuoteStatusCancelled},
		QuoteStatusQuoted:  {QuoteStatusCompleted, QuoteStatusCancelled},
	}
	all := []QuoteStatus{QuoteStatusPending, QuoteStatusQuoted, QuoteStatusCompleted, QuoteStatusCancelled}

	for _, from := range all {
		for _, to := range all {
			want := false
			for _, a := range allowed[from] {
				if a == to {
					want = true
				}
			}
			assert.Equal(t, want, from.CanTransition(to), "%s -> %s", from, to)
		}
	}

	_, err := ParseQuoteStatus("pending")
	assert.Error(t, err)
	s, err := ParseQuoteStatus("Quoted")
	require.NoError(t, err)
	assert.Equal(t, QuoteStatusQuoted, s)
}

func TestQuoteKindNumbering(t *testing.T) {
	assert.Equal(t, CounterBulkQuote, QuoteKindCart.Counter())
	assert.Equal(t, PrefixBulkQuote, QuoteKindCart.Prefix())
	assert.Equal(t, CounterSampleCourier, QuoteKindSampleCourier.Counter())
	assert.Equal(t, "quotes/bulk/BulkQuote-7", QuotePath(QuoteKindCart, "BulkQuote-7"))
	assert.Equal(t, "quotes/sample_courier/SampleCourier-1", QuotePath(QuoteKindSampleCourier, "SampleCourier-1"))
}

func TestQuoteValidate(t *testing.T) {
	breakdown := &PriceBreakdown{}
	tests := []struct {
		name  string
		quote Quote
		ok    bool
	}{
		{"bulk with breakdown", Quote{Kind: QuoteKindBulk, Single: &SingleProductDetails{}, Breakdown: breakdown}, true},
		{"bulk price on request", Quote{Kind: QuoteKindBulk, Single: &SingleProductDetails{}, PriceOnRequest: true}, true},
		{"bulk missing breakdown", Quote{Kind: QuoteKindBulk, Single: &SingleProductDetails{}}, false},
		{"bulk with cart payload", Quote{Kind: QuoteKindBulk, Single: &SingleProductDetails{}, Cart: &CartOrderDetails{}, Breakdown: breakdown}, false},
		{"cart ok", Quote{Kind: QuoteKindCart, Cart: &CartOrderDetails{Lines: []CartOrderLine{{}}}, Breakdown: breakdown}, true},
		{"cart without lines", Quote{Kind: QuoteKindCart, Cart: &CartOrderDetails{}, Breakdown: breakdown}, false},
		{"unknown kind", Quote{Kind: "barter"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.quote.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}

	assert.Equal(t, EntityCartQuote, Quote{Kind: QuoteKindCart}.Entity())
	assert.Equal(t, EntityOrder, Quote{Kind: QuoteKindSampleCourier}.Entity())
}

func TestActorContextResolve(t *testing.T) {
	admin := &Identity{Email: "ops@siea.in", UID: "a1"}
	user := &Identity{Email: "buyer@example.com", UID: "u1"}

	assert.Equal(t, Actor{Email: "ops@siea.in", UID: "a1", Role: RoleAdmin}, ActorContext{Cached: admin, Session: user}.Resolve())
	assert.Equal(t, Actor{Email: "buyer@example.com", UID: "u1", Role: RoleUser}, ActorContext{Session: user}.Resolve())
	assert.Equal(t, Actor{Email: "buyer@example.com", UID: "u1", Role: RoleUser}, ActorContext{Cached: &Identity{}, Session: user}.Resolve())
	assert.Equal(t, Actor{Email: SystemActor, Role: RoleSystem}, ActorContext{}.Resolve())
}

func TestProductPutGrade(t *testing.T) {
	p := Product{ID: "basmati-1121", Name: map[string]string{"en": "1121 Basmati"}}

	require.NoError(t, p.PutGrade("g1", Grade{Label: "Steam A", PricePerKg: decimal.NewFromInt(95)}))
	require.NoError(t, p.PutGrade("g2", Grade{Label: "Sella", PricePerKg: decimal.NewFromInt(88)}))
	require.NoError(t, p.PutGrade("g1", Grade{Label: "steam a", PricePerKg: decimal.NewFromInt(97)}))

	assert.Error(t, p.PutGrade("g3", Grade{Label: " STEAM A ", PricePerKg: decimal.NewFromInt(1)}))
	assert.Error(t, p.PutGrade("", Grade{Label: "Raw"}))
	assert.Error(t, p.PutGrade("g4", Grade{Label: "Raw", PricePerKg: decimal.NewFromInt(-1)}))
	assert.Error(t, p.PutGrade("g5", Grade{Label: "Raw", MOQ: -5}))

	grades := GradeList(p.Grades)
	require.Len(t, grades, 2)
	assert.Equal(t, "steam a", grades[0].Label)
	assert.Equal(t, "Sella", grades[1].Label)
}
