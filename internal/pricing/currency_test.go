package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siea/ricequote/internal/domain/apperr"
	"github.com/siea/ricequote/internal/domain/models"
)

func TestConverterRates(t *testing.T) {
	conv := testConverter()

	rate, err := conv.Rate("")
	require.NoError(t, err)
	assert.Equal(t, "1", rate.String())

	rate, err = conv.Rate(" usd ")
	require.NoError(t, err)
	assert.InDelta(t, 1/87.98, rate.InexactFloat64(), 1e-12)

	_, err = conv.Rate("JPY")
	assert.ErrorIs(t, err, apperr.ErrPriceUnavailable)
	assert.Contains(t, err.Error(), "known: EUR, INR, USD")

	amount, err := conv.Convert(dec("87.98"), "USD")
	require.NoError(t, err)
	assert.Equal(t, "1.00", amount.StringFixed(2))

	assert.Equal(t, []string{"EUR", "INR", "USD"}, conv.Currencies())
}

func TestConverterCopiesTable(t *testing.T) {
	table := models.RateTable{Base: "INR", Rates: map[string]models.Money{"INR": dec("1"), "USD": dec("0.0114")}}
	conv := NewConverter(table)

	table.Rates["USD"] = dec("99")
	delete(table.Rates, "INR")

	rate, err := conv.Rate("USD")
	require.NoError(t, err)
	assert.Equal(t, "0.0114", rate.String())
}
