package mongodb

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/siea/ricequote/internal/domain/models"
)

func TestDecimalCodecStoresDecimal128(t *testing.T) {
	reg := NewRegistry()
	grade := models.Grade{Label: "Steam A", PricePerKg: decimal.RequireFromString("95.125"), MOQ: 25}

	raw, err := bson.MarshalWithRegistry(reg, grade)
	require.NoError(t, err)

	value := bson.Raw(raw).Lookup("price_inr")
	d128, ok := value.Decimal128OK()
	require.True(t, ok, "price stored as %s", value.Type)
	assert.Equal(t, "95.125", d128.String())

	var back models.Grade
	require.NoError(t, bson.UnmarshalWithRegistry(reg, raw, &back))
	assert.True(t, grade.PricePerKg.Equal(back.PricePerKg))
	assert.Equal(t, grade.Label, back.Label)
}

func TestDecimalCodecReadsLegacyNumbers(t *testing.T) {
	reg := NewRegistry()

	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"double", 87.98, "87.98"},
		{"int32", int32(95), "95"},
		{"int64", int64(4399), "4399"},
		{"string", "1037.98", "1037.98"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := bson.Marshal(bson.M{"grade": "A", "price_inr": tt.value})
			require.NoError(t, err)

			var g models.Grade
			require.NoError(t, bson.UnmarshalWithRegistry(reg, raw, &g))
			assert.Equal(t, tt.want, g.PricePerKg.String())
		})
	}
}

func TestDecimalCodecRoundsOverlongValues(t *testing.T) {
	reg := NewRegistry()
	long := decimal.NewFromInt(107249).Mul(decimal.NewFromInt(1).DivRound(decimal.RequireFromString("87.98"), 40))
	_, err := primitive.ParseDecimal128(long.String())
	require.Error(t, err, "%s must not fit in decimal128", long)

	raw, err := bson.MarshalWithRegistry(reg, models.PriceBreakdown{GrandTotal: long})
	require.NoError(t, err)

	d128, ok := bson.Raw(raw).Lookup("grand_total").Decimal128OK()
	require.True(t, ok)
	stored, err := decimal.NewFromString(d128.String())
	require.NoError(t, err)
	assert.True(t, long.Round(decimal128Scale).Equal(stored), "stored %s", stored)
}
