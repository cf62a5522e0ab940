package pricing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/siea/ricequote/internal/domain/apperr"
	"github.com/siea/ricequote/internal/domain/models"
)

var (
	hundred  = decimal.NewFromInt(100)
	thousand = decimal.NewFromInt(1000)
)

// QuoteInput carries every input of a breakdown. Set CartSubtotal for multi-item
// orders; otherwise PricePerKg and Quantity describe a single product.
type QuoteInput struct {
	PricePerKg   models.Money
	Quantity     models.QuantityUnit
	CartSubtotal *models.Money
	Packing      string
	CustomLogo   bool
	CIF          bool
	Port         string
	SourceState  string
	Currency     string
}

// IsCart reports whether the input prices a cart.
func (in QuoteInput) IsCart() bool {
	return in.CartSubtotal != nil
}

// Breakdowns pairs the base-currency breakdown with its converted twin.
type Breakdowns struct {
	Base      models.PriceBreakdown
	Converted models.PriceBreakdown
}

// Calculator turns quote inputs into itemized breakdowns. It holds no mutable state:
// Compute is pure and may be called on every input change.
type Calculator struct {
	tariff models.Tariff
}

// NewCalculator builds a calculator over tariff.
func NewCalculator(tariff models.Tariff) *Calculator {
	return &Calculator{tariff: tariff}
}

// Tariff exposes the tables the calculator prices from.
func (c *Calculator) Tariff() models.Tariff {
	return c.tariff
}

// Compute produces the breakdown in the base currency and in in.Currency.
func (c *Calculator) Compute(in QuoteInput, conv *Converter) (Breakdowns, error) {
	base, err := c.ComputeBase(in)
	if err != nil {
		return Breakdowns{}, err
	}

	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = conv.Base()
	}
	rate, err := conv.Rate(currency)
	if err != nil {
		return Breakdowns{}, err
	}

	return Breakdowns{Base: base, Converted: convert(base, currency, rate)}, nil
}

// ComputeBase produces the breakdown in the base currency only.
func (c *Calculator) ComputeBase(in QuoteInput) (models.PriceBreakdown, error) {
	verr := apperr.NewValidationError()

	packing := decimal.Zero
	if in.Packing != "" {
		p, ok := lookupFold(c.tariff.Packing, in.Packing)
		if !ok {
			verr.Add("packing", fmt.Sprintf("unknown packing %q", in.Packing))
		}
		packing = p
	}

	freightRate := decimal.Zero
	if in.CIF && in.Port != "" {
		f, ok := lookupFold(c.tariff.Freight, in.Port)
		if !ok {
			verr.Add("port", fmt.Sprintf("unknown port %q", in.Port))
		}
		freightRate = f
	}

	if !in.IsCart() {
		if !in.Quantity.Valid() {
			verr.Add("quantity", fmt.Sprintf("unsupported quantity %q", in.Quantity))
		}
		if in.PricePerKg.IsNegative() {
			verr.Add("pricePerKg", "must not be negative")
		}
	} else if in.CartSubtotal.IsNegative() {
		verr.Add("cartSubtotal", "must not be negative")
	}

	if err := verr.OrNil(); err != nil {
		return models.PriceBreakdown{}, err
	}

	b := models.PriceBreakdown{
		Currency:              c.tariff.BaseCurrency,
		ExchangeRate:          one,
		BasePrice:             decimal.Zero,
		PackingPrice:          packing,
		BrandingPrice:         decimal.Zero,
		InsurancePrice:        decimal.Zero,
		FreightPrice:          decimal.Zero,
		TransportPricePerUnit: decimal.Zero,
		TransportTotal:        decimal.Zero,
		TransportStatus:       models.TransportNotApplicable,
		TransportAvailable:    true,
	}
	if in.CustomLogo {
		b.BrandingPrice = c.tariff.BrandingSurcharge
	}

	// freightUnits is tonnes for single products; transportUnits is quintals.
	var freightUnits, transportUnits decimal.Decimal
	if in.IsCart() {
		b.QuantityPrice = *in.CartSubtotal
		est := c.estimateQuintals(*in.CartSubtotal)
		b.Estimated = true
		b.EstimatedQuintals = est.IntPart()
		freightUnits = est
		transportUnits = est
	} else {
		kg := in.Quantity.Kilograms()
		b.BasePrice = in.PricePerKg.Mul(hundred)
		b.QuantityPrice = in.PricePerKg.Mul(kg)
		freightUnits = kg.Div(thousand)
		transportUnits = in.Quantity.Quintals()
	}

	if in.CIF {
		b.InsurancePrice = b.QuantityPrice.Mul(c.tariff.InsuranceRate)
		if in.Port != "" {
			b.FreightPrice = freightRate.Mul(freightUnits)
		}
		if in.Port != "" && in.SourceState != "" {
			rate, ok := c.tariff.RouteRate(in.SourceState, in.Port)
			if ok {
				b.TransportStatus = models.TransportAvailable
				b.TransportPricePerUnit = rate
				b.TransportTotal = rate.Mul(transportUnits)
			} else {
				b.TransportStatus = models.TransportUnavailable
				b.TransportAvailable = false
			}
		}
	}

	b.GrandTotal = b.QuantityPrice.
		Add(b.PackingPrice).
		Add(b.BrandingPrice).
		Add(b.InsurancePrice).
		Add(b.FreightPrice).
		Add(b.TransportTotal)

	return b, nil
}

// estimateQuintals sizes freight and transport for cart orders as ceil(subtotal / divisor),
// with a floor of one quintal. This is a placeholder business rule awaiting confirmation
// from the product owner; breakdowns built with it are marked Estimated.
func (c *Calculator) estimateQuintals(subtotal models.Money) decimal.Decimal {
	if !subtotal.IsPositive() {
		return one
	}
	return subtotal.Div(c.tariff.CartQuintalDivisor).Ceil()
}

func convert(b models.PriceBreakdown, currency string, rate models.Money) models.PriceBreakdown {
	out := b
	out.Currency = currency
	out.ExchangeRate = rate
	out.BasePrice = b.BasePrice.Mul(rate)
	out.QuantityPrice = b.QuantityPrice.Mul(rate)
	out.PackingPrice = b.PackingPrice.Mul(rate)
	out.BrandingPrice = b.BrandingPrice.Mul(rate)
	out.InsurancePrice = b.InsurancePrice.Mul(rate)
	out.FreightPrice = b.FreightPrice.Mul(rate)
	out.TransportPricePerUnit = b.TransportPricePerUnit.Mul(rate)
	out.TransportTotal = b.TransportTotal.Mul(rate)
	out.GrandTotal = b.GrandTotal.Mul(rate)
	return out
}

func lookupFold(table map[string]models.Money, key string) (models.Money, bool) {
	key = strings.TrimSpace(key)
	if v, ok := table[key]; ok {
		return v, true
	}
	for k, v := range table {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return decimal.Zero, false
}
