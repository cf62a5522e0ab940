package config

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTariffDefault(t *testing.T) {
	tariff, err := LoadTariff("")
	require.NoError(t, err)

	assert.Equal(t, "INR", tariff.BaseCurrency)
	assert.True(t, tariff.Packing["Jute Bags"].Equal(decimal.RequireFromString("87.98")))
	assert.True(t, tariff.Freight["Mundra"].Equal(decimal.NewFromInt(4399)))
	assert.True(t, tariff.BrandingSurcharge.Equal(decimal.RequireFromString("879.80")))
	assert.True(t, tariff.InsuranceRate.Equal(decimal.RequireFromString("0.01")))
	assert.Equal(t, 10, tariff.PhoneDigits["+91"])
	assert.Equal(t, 9, tariff.PhoneDigits["+971"])

	usd := tariff.ExchangeRates["USD"]
	assert.InDelta(t, 1/87.98, usd.InexactFloat64(), 1e-12)
	assert.True(t, tariff.ExchangeRates["INR"].Equal(decimal.NewFromInt(1)))

	rate, ok := tariff.RouteRate("punjab", "mundra")
	require.True(t, ok)
	assert.True(t, rate.Equal(decimal.NewFromInt(185)))

	_, ok = tariff.RouteRate("West Bengal", "Mundra")
	assert.False(t, ok)
}

func TestParseTariffRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"negative packing", "packing:\n  Jute: \"-1\"\n"},
		{"zero denominator", "exchange_rates:\n  INR: \"1\"\n  USD: \"1/0\"\n"},
		{"base not one", "base_currency: INR\nexchange_rates:\n  INR: \"2\"\n"},
		{"base missing", "base_currency: INR\nexchange_rates:\n  USD: \"0.01\"\n"},
		{"garbage amount", "freight:\n  Mundra: abc\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTariff([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Server:   ServerConfig{Port: "8080"},
			Store:    StoreConfig{Driver: "memory"},
			WhatsApp: WhatsAppConfig{BaseURL: "https://graph.facebook.com", APIVersion: "v20.0"},
			Audit:    AuditConfig{AlertSchedule: "*/15 * * * *", AlertThreshold: 3},
			Log:      LogConfig{Level: "info", Format: "json"},
		}
	}

	require.NoError(t, base().Validate())

	cfg := base()
	cfg.Store.Driver = "postgres"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Store.Driver = "mongodb"
	assert.EqualError(t, cfg.Validate(), "MONGODB_URI must be provided")

	cfg = base()
	cfg.Audit.AlertThreshold = 0
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Log.Format = "xml"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Rates.SourceURL = "https://rates.example"
	assert.Error(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("AUDIT_ALERT_THRESHOLD", "5")
	t.Setenv("WHATSAPP_TOKEN", "token")
	t.Setenv("WHATSAPP_PHONE_NUMBER_ID", "123")
	t.Setenv("WHATSAPP_OPERATOR_ID", "919999999999")

	cfg, err := Load("does-not-exist.env")
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 5, cfg.Audit.AlertThreshold)
	assert.True(t, cfg.WhatsApp.Enabled())
	assert.False(t, cfg.Sheets.Enabled())
	assert.Equal(t, "json", cfg.Log.Format)
}
