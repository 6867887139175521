// Package config provides application configuration loading from environment.
package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gitlab.com/yelinaung/split-bot/internal/models"
)

// Tracing exporters.
const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
)

// Config holds all configuration for the application.
type Config struct {
	TelegramBotToken      string
	DatabaseURL           string
	GeminiAPIKey          string
	GeminiModel           string
	LogLevel              string
	LogFormat             string
	AllowedChatIDs        []int64
	Currency              string
	MetricsAddr           string
	SettleReminderEnabled bool
	ReminderHour          int
	ReminderTimezone      string
	OTelExporter          string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		GeminiModel:      strings.TrimSpace(os.Getenv("GEMINI_MODEL")),
		LogLevel:         os.Getenv("LOG_LEVEL"),
		LogFormat:        os.Getenv("LOG_FORMAT"),
		MetricsAddr:      strings.TrimSpace(os.Getenv("METRICS_ADDR")),
	}

	cfg.Currency = strings.ToUpper(strings.TrimSpace(os.Getenv("CURRENCY")))
	if cfg.Currency == "" {
		cfg.Currency = models.DefaultCurrency
	}

	cfg.SettleReminderEnabled = os.Getenv("SETTLE_REMINDER_ENABLED") == "true"
	cfg.ReminderHour = 20
	if hourStr := os.Getenv("REMINDER_HOUR"); hourStr != "" {
		if h, err := strconv.Atoi(hourStr); err == nil && h >= 0 && h <= 23 {
			cfg.ReminderHour = h
		}
	}
	cfg.ReminderTimezone = "Asia/Singapore"
	if tz := os.Getenv("REMINDER_TIMEZONE"); tz != "" {
		if _, err := time.LoadLocation(tz); err == nil {
			cfg.ReminderTimezone = tz
		}
	}

	cfg.OTelExporter = strings.ToLower(strings.TrimSpace(os.Getenv("OTEL_EXPORTER")))
	if cfg.OTelExporter == "" {
		cfg.OTelExporter = ExporterNone
	}

	for idStr := range strings.SplitSeq(os.Getenv("ALLOWED_CHAT_IDS"), ",") {
		idStr = strings.TrimSpace(idStr)
		if idStr == "" {
			continue
		}
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			continue
		}
		cfg.AllowedChatIDs = append(cfg.AllowedChatIDs, id)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate checks that all required configuration is present.
func (c *Config) validate() error {
	var errs []string

	if c.TelegramBotToken == "" {
		errs = append(errs, "TELEGRAM_BOT_TOKEN is required")
	}

	if c.DatabaseURL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}

	if len(c.AllowedChatIDs) == 0 {
		errs = append(errs, "at least one group chat in ALLOWED_CHAT_IDS is required")
	}

	if _, ok := models.SupportedCurrencies[c.Currency]; !ok {
		errs = append(errs, fmt.Sprintf("CURRENCY %q is not supported", c.Currency))
	}

	switch c.OTelExporter {
	case ExporterNone, ExporterStdout, ExporterOTLP:
	default:
		errs = append(errs, fmt.Sprintf("OTEL_EXPORTER must be one of none, stdout, otlp (got %q)", c.OTelExporter))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// IsChatAllowed reports whether the bot serves the given chat.
func (c *Config) IsChatAllowed(chatID int64) bool {
	return slices.Contains(c.AllowedChatIDs, chatID)
}

// CurrencySymbol returns the display symbol of the configured currency.
func (c *Config) CurrencySymbol() string {
	if sym, ok := models.SupportedCurrencies[c.Currency]; ok {
		return sym
	}
	return c.Currency
}

// ReminderLocation returns the reminder timezone, falling back to UTC.
func (c *Config) ReminderLocation() *time.Location {
	loc, err := time.LoadLocation(c.ReminderTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
