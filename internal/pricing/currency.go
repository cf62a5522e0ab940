package pricing

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/siea/ricequote/internal/domain/apperr"
	"github.com/siea/ricequote/internal/domain/models"
)

var one = decimal.NewFromInt(1)

// Converter maps base-currency amounts to other currencies using a rate table.
// The base currency always converts at exactly 1.
type Converter struct {
	table models.RateTable
}

// NewConverter copies table so later edits to the caller's map do not leak in.
func NewConverter(table models.RateTable) *Converter {
	return &Converter{table: table.Clone()}
}

// Base returns the base currency code.
func (c *Converter) Base() string {
	return c.table.Base
}

// Rate returns the multiplier for code.
func (c *Converter) Rate(code string) (models.Money, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" || code == c.table.Base {
		return one, nil
	}
	rate, ok := c.table.Rates[code]
	if !ok || !rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: no exchange rate for %s (known: %s)",
			apperr.ErrPriceUnavailable, code, strings.Join(c.Currencies(), ", "))
	}
	return rate, nil
}

// Convert expresses a base-currency amount in code.
func (c *Converter) Convert(amount models.Money, code string) (models.Money, error) {
	rate, err := c.Rate(code)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Mul(rate), nil
}

// Currencies lists the codes the converter knows about, sorted.
func (c *Converter) Currencies() []string {
	out := make([]string, 0, len(c.table.Rates))
	for code := range c.table.Rates {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}
