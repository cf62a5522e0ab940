package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config represents the full application configuration surface.
type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	MongoDB  MongoDBConfig
	Pricing  PricingConfig
	Rates    RatesConfig
	WhatsApp WhatsAppConfig
	Sheets   SheetsConfig
	Audit    AuditConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port string
}

// StoreConfig selects the document store backend.
type StoreConfig struct {
	// Driver is "mongodb" or "memory".
	Driver string
}

// MongoDBConfig holds settings for MongoDB.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// PricingConfig points at the tariff document.
type PricingConfig struct {
	// TariffFile overrides the embedded tariff when set.
	TariffFile string
}

// RatesConfig controls the remote exchange-rate refresh.
type RatesConfig struct {
	SourceURL    string
	CronSchedule string
}

// WhatsAppConfig contains credentials and options for the Meta WhatsApp Cloud API
// and the public chat number used in customer deep links.
type WhatsAppConfig struct {
	AccessToken   string
	PhoneNumberID string
	BaseURL       string
	APIVersion    string
	OperatorID    string
	ChatNumber    string
}

// Enabled reports whether operator alerts can be sent.
func (c WhatsAppConfig) Enabled() bool {
	return c.AccessToken != "" && c.PhoneNumberID != "" && c.OperatorID != ""
}

// SheetsConfig contains configuration required to append quotes to Google Sheets.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
}

// Enabled reports whether the quote ledger is configured.
func (c SheetsConfig) Enabled() bool {
	return c.CredentialsPath != "" && c.SpreadsheetID != ""
}

// AuditConfig controls alerting on systematic history write failures.
type AuditConfig struct {
	AlertSchedule  string
	AlertThreshold int
}

// LogConfig selects the zap level and encoding.
type LogConfig struct {
	Level string
	// Format is "json" or "console".
	Format string
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Ignore the returned error here; missing .env files are acceptable when
		// configuration comes from the environment directly.
		_ = godotenv.Load()
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getenvWithDefault("APP_PORT", "8080"),
		},
		Store: StoreConfig{
			Driver: getenvWithDefault("STORE_DRIVER", "mongodb"),
		},
		MongoDB: MongoDBConfig{
			URI:    getenvWithDefault("MONGODB_URI", "mongodb://localhost:27017/?replicaSet=rs0"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "ricequote"),
		},
		Pricing: PricingConfig{
			TariffFile: os.Getenv("TARIFF_FILE"),
		},
		Rates: RatesConfig{
			SourceURL:    os.Getenv("RATES_SOURCE_URL"),
			CronSchedule: getenvWithDefault("RATES_CRON_SCHEDULE", "0 6 * * *"),
		},
		WhatsApp: WhatsAppConfig{
			AccessToken:   os.Getenv("WHATSAPP_TOKEN"),
			PhoneNumberID: os.Getenv("WHATSAPP_PHONE_NUMBER_ID"),
			BaseURL:       getenvWithDefault("WHATSAPP_BASE_URL", "https://graph.facebook.com"),
			APIVersion:    getenvWithDefault("WHATSAPP_API_VERSION", "v20.0"),
			OperatorID:    os.Getenv("WHATSAPP_OPERATOR_ID"),
			ChatNumber:    os.Getenv("WHATSAPP_CHAT_NUMBER"),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_LEDGER_ID"),
		},
		Audit: AuditConfig{
			AlertSchedule:  getenvWithDefault("AUDIT_ALERT_SCHEDULE", "*/15 * * * *"),
			AlertThreshold: getenvIntWithDefault("AUDIT_ALERT_THRESHOLD", 3),
		},
		Log: LogConfig{
			Level:  getenvWithDefault("LOG_LEVEL", "info"),
			Format: getenvWithDefault("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	switch c.Store.Driver {
	case "mongodb":
		if c.MongoDB.URI == "" {
			return errors.New("MONGODB_URI must be provided")
		}
		if c.MongoDB.DBName == "" {
			return errors.New("MONGODB_DB_NAME must be provided")
		}
	case "memory":
	default:
		return fmt.Errorf("STORE_DRIVER must be mongodb or memory, got %q", c.Store.Driver)
	}

	if c.Rates.SourceURL != "" && c.Rates.CronSchedule == "" {
		return errors.New("RATES_CRON_SCHEDULE must be provided when RATES_SOURCE_URL is set")
	}

	if c.WhatsApp.BaseURL == "" {
		return errors.New("WHATSAPP_BASE_URL must not be empty")
	}

	if c.WhatsApp.APIVersion == "" {
		return errors.New("WHATSAPP_API_VERSION must not be empty")
	}

	if c.Audit.AlertSchedule == "" {
		return errors.New("AUDIT_ALERT_SCHEDULE must be provided")
	}

	if c.Audit.AlertThreshold < 1 {
		return errors.New("AUDIT_ALERT_THRESHOLD must be at least 1")
	}

	if c.Log.Format != "json" && c.Log.Format != "console" {
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Log.Format)
	}

	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getenvIntWithDefault(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}
