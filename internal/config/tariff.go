package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/siea/ricequote/internal/domain/models"
)

//go:embed tariff.yaml
var defaultTariff []byte

// rateDivisionPrecision is the number of decimal places kept when a rate is written as a fraction.
const rateDivisionPrecision = 16

type tariffFile struct {
	BaseCurrency       string                       `yaml:"base_currency"`
	BrandingSurcharge  string                       `yaml:"branding_surcharge"`
	InsuranceRate      string                       `yaml:"insurance_rate"`
	CartQuintalDivisor string                       `yaml:"cart_quintal_divisor"`
	Packing            map[string]string            `yaml:"packing"`
	Freight            map[string]string            `yaml:"freight"`
	Routes             map[string]map[string]string `yaml:"routes"`
	PhoneDigits        map[string]int               `yaml:"phone_digits"`
	ExchangeRates      map[string]string            `yaml:"exchange_rates"`
}

// LoadTariff reads the tariff from path, or the embedded default when path is empty.
func LoadTariff(path string) (models.Tariff, error) {
	data := defaultTariff
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return models.Tariff{}, fmt.Errorf("failed to read tariff file %s: %w", path, err)
		}
		data = raw
	}
	return ParseTariff(data)
}

// ParseTariff parses a YAML tariff document.
func ParseTariff(data []byte) (models.Tariff, error) {
	var tf tariffFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return models.Tariff{}, fmt.Errorf("failed to parse tariff YAML: %w", err)
	}
	applyTariffDefaults(&tf)

	t := models.Tariff{
		BaseCurrency:  strings.ToUpper(tf.BaseCurrency),
		Packing:       make(map[string]models.Money, len(tf.Packing)),
		Freight:       make(map[string]models.Money, len(tf.Freight)),
		Routes:        make(map[string]map[string]models.Money, len(tf.Routes)),
		PhoneDigits:   tf.PhoneDigits,
		ExchangeRates: make(map[string]models.Money, len(tf.ExchangeRates)),
	}

	var err error
	if t.BrandingSurcharge, err = parseAmount("branding_surcharge", tf.BrandingSurcharge); err != nil {
		return models.Tariff{}, err
	}
	if t.InsuranceRate, err = parseAmount("insurance_rate", tf.InsuranceRate); err != nil {
		return models.Tariff{}, err
	}
	if t.CartQuintalDivisor, err = parseAmount("cart_quintal_divisor", tf.CartQuintalDivisor); err != nil {
		return models.Tariff{}, err
	}
	if !t.CartQuintalDivisor.IsPositive() {
		return models.Tariff{}, fmt.Errorf("cart_quintal_divisor must be positive")
	}

	for name, raw := range tf.Packing {
		if t.Packing[name], err = parseAmount("packing."+name, raw); err != nil {
			return models.Tariff{}, err
		}
	}
	for port, raw := range tf.Freight {
		if t.Freight[port], err = parseAmount("freight."+port, raw); err != nil {
			return models.Tariff{}, err
		}
	}
	for state, ports := range tf.Routes {
		t.Routes[state] = make(map[string]models.Money, len(ports))
		for port, raw := range ports {
			if t.Routes[state][port], err = parseAmount("routes."+state+"."+port, raw); err != nil {
				return models.Tariff{}, err
			}
		}
	}
	for code, raw := range tf.ExchangeRates {
		if t.ExchangeRates[strings.ToUpper(code)], err = parseAmount("exchange_rates."+code, raw); err != nil {
			return models.Tariff{}, err
		}
	}

	table := models.RateTable{Base: t.BaseCurrency, Rates: t.ExchangeRates}
	if err := table.Validate(); err != nil {
		return models.Tariff{}, fmt.Errorf("invalid tariff exchange rates: %w", err)
	}

	return t, nil
}

// DefaultRateTable returns the tariff's exchange rates as a RateTable.
func DefaultRateTable(t models.Tariff) models.RateTable {
	return models.RateTable{Base: t.BaseCurrency, Rates: t.ExchangeRates}.Clone()
}

func applyTariffDefaults(tf *tariffFile) {
	if tf.BaseCurrency == "" {
		tf.BaseCurrency = "INR"
	}
	if tf.InsuranceRate == "" {
		tf.InsuranceRate = "0.01"
	}
	if tf.CartQuintalDivisor == "" {
		tf.CartQuintalDivisor = "10000"
	}
	if tf.BrandingSurcharge == "" {
		tf.BrandingSurcharge = "0"
	}
	if len(tf.ExchangeRates) == 0 {
		tf.ExchangeRates = map[string]string{tf.BaseCurrency: "1"}
	}
}

// parseAmount accepts plain decimals ("87.98") and fractions ("1/87.98").
func parseAmount(field, raw string) (models.Money, error) {
	raw = strings.TrimSpace(raw)
	if num, den, ok := strings.Cut(raw, "/"); ok {
		n, err := decimal.NewFromString(strings.TrimSpace(num))
		if err != nil {
			return decimal.Zero, fmt.Errorf("%s: invalid numerator %q: %w", field, num, err)
		}
		d, err := decimal.NewFromString(strings.TrimSpace(den))
		if err != nil {
			return decimal.Zero, fmt.Errorf("%s: invalid denominator %q: %w", field, den, err)
		}
		if d.IsZero() {
			return decimal.Zero, fmt.Errorf("%s: division by zero", field)
		}
		return n.DivRound(d, rateDivisionPrecision), nil
	}

	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: invalid amount %q: %w", field, raw, err)
	}
	if v.IsNegative() {
		return decimal.Zero, fmt.Errorf("%s: amount must not be negative", field)
	}
	return v, nil
}
