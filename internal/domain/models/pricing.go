package models

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Tariff is the fixed price table the calculator works from. All amounts are in the base currency.
type Tariff struct {
	BaseCurrency      string
	BrandingSurcharge Money
	InsuranceRate     Money
	// CartQuintalDivisor sizes freight and transport for cart orders: ceil(subtotal / divisor) quintals.
	CartQuintalDivisor Money
	Packing            map[string]Money
	// Freight is a flat rate per tonne-equivalent, keyed by destination port.
	Freight map[string]Money
	// Routes maps state -> port -> transport rate per quintal.
	Routes map[string]map[string]Money
	// PhoneDigits maps a dialing code to the exact number of national digits.
	PhoneDigits   map[string]int
	ExchangeRates map[string]Money
}

// RouteRate returns the transport rate for a state and port, matched case-insensitively.
func (t Tariff) RouteRate(state, port string) (Money, bool) {
	for s, ports := range t.Routes {
		if !strings.EqualFold(s, strings.TrimSpace(state)) {
			continue
		}
		for p, rate := range ports {
			if strings.EqualFold(p, strings.TrimSpace(port)) {
				return rate, true
			}
		}
	}
	return decimal.Zero, false
}

// PortsForState lists the ports with a route from state, sorted.
func (t Tariff) PortsForState(state string) []string {
	var out []string
	for s, ports := range t.Routes {
		if !strings.EqualFold(s, strings.TrimSpace(state)) {
			continue
		}
		for p := range ports {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

// RateTable maps currency codes to their rate relative to the base currency.
type RateTable struct {
	Base  string           `bson:"base" json:"base"`
	Rates map[string]Money `bson:"rates" json:"rates"`
}

// Validate checks that the base currency is present at rate 1 and every rate is positive.
func (r RateTable) Validate() error {
	if r.Base == "" {
		return fmt.Errorf("base currency must be set")
	}
	base, ok := r.Rates[r.Base]
	if !ok {
		return fmt.Errorf("base currency %s missing from rate table", r.Base)
	}
	if !base.Equal(decimal.NewFromInt(1)) {
		return fmt.Errorf("base currency %s must have rate 1, got %s", r.Base, base)
	}
	for code, rate := range r.Rates {
		if !rate.IsPositive() {
			return fmt.Errorf("rate for %s must be positive", code)
		}
	}
	return nil
}

// Clone returns a deep copy.
func (r RateTable) Clone() RateTable {
	out := RateTable{Base: r.Base, Rates: make(map[string]Money, len(r.Rates))}
	for k, v := range r.Rates {
		out.Rates[k] = v
	}
	return out
}

// TransportStatus tells a legitimately free route apart from a missing one.
type TransportStatus string

const (
	TransportNotApplicable TransportStatus = "not_applicable"
	TransportAvailable     TransportStatus = "available"
	TransportUnavailable   TransportStatus = "unavailable"
)

// PriceBreakdown is a derived, never persisted-by-reference itemization of a quote.
// Every amount is expressed in Currency.
type PriceBreakdown struct {
	Currency              string          `bson:"currency" json:"currency"`
	ExchangeRate          Money           `bson:"exchange_rate" json:"exchangeRate"`
	BasePrice             Money           `bson:"base_price" json:"basePrice"`
	QuantityPrice         Money           `bson:"quantity_price" json:"quantityPrice"`
	PackingPrice          Money           `bson:"packing_price" json:"packingPrice"`
	BrandingPrice         Money           `bson:"branding_price" json:"brandingPrice"`
	InsurancePrice        Money           `bson:"insurance_price" json:"insurancePrice"`
	FreightPrice          Money           `bson:"freight_price" json:"freightPrice"`
	TransportPricePerUnit Money           `bson:"transport_price_per_unit" json:"transportPricePerUnit"`
	TransportTotal        Money           `bson:"transport_total" json:"transportTotal"`
	GrandTotal            Money           `bson:"grand_total" json:"grandTotal"`
	TransportStatus       TransportStatus `bson:"transport_status" json:"transportStatus"`
	// TransportAvailable is false only when a route was requested but has no rate.
	TransportAvailable bool `bson:"transport_available" json:"transportAvailable"`
	// Estimated marks cart breakdowns whose freight and transport were sized from the
	// subtotal heuristic rather than a real weight.
	Estimated         bool  `bson:"estimated,omitempty" json:"estimated,omitempty"`
	EstimatedQuintals int64 `bson:"estimated_quintals,omitempty" json:"estimatedQuintals,omitempty"`
}
