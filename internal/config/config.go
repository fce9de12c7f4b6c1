// Package config provides configuration loading and validation for the application.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Known exchange identifiers accepted in Exchanges.
const (
	ExchangeAster       = "aster"
	ExchangeHyperliquid = "hyperliquid"
	ExchangeBinance     = "binance"
)

// Known publisher identifiers.
const (
	PublisherTelegram = "telegram"
	PublisherWebhook  = "webhook"
	PublisherLog      = "log"
)

// Config holds all application configuration
type Config struct {
	// How often a cycle runs
	PollInterval time.Duration `yaml:"poll_interval"`

	// Number of entries in each side of the report
	TopN int `yaml:"top_n"`

	// Horizon the ranker sorts by: 1h, 2h, 4h or 8h
	RankHorizon string `yaml:"rank_horizon"`

	// Overall budget for one adapter fetch
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// Retries per HTTP call for transient failures
	HTTPRetryMax int `yaml:"http_retry_max"`

	// Overall budget for one publish
	PublishTimeout time.Duration `yaml:"publish_timeout"`

	// Publish a report even when every adapter came back empty
	PublishEmpty bool `yaml:"publish_empty"`

	// Enabled adapters, in report order
	Exchanges []string `yaml:"exchanges"`

	Aster       ExchangeConfig `yaml:"aster"`
	Hyperliquid ExchangeConfig `yaml:"hyperliquid"`
	Binance     ExchangeConfig `yaml:"binance"`

	// Which sink receives the report
	Publisher string         `yaml:"publisher"`
	Telegram  TelegramConfig `yaml:"telegram"`
	Webhook   WebhookConfig  `yaml:"webhook"`

	// Listen address for /health, /metrics and /status; empty disables
	HTTPAddr string `yaml:"http_addr"`

	// OpenTelemetry endpoint for observability
	OtelEndpoint string `yaml:"otel_endpoint"`

	Log LogConfig `yaml:"log"`
}

// ExchangeConfig holds endpoint and optional credentials for one exchange.
type ExchangeConfig struct {
	URL       string `yaml:"url"`
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
}

// TelegramConfig configures the Telegram bot sink.
type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
	URL      string `yaml:"url"`

	// Messages per second when a report spans several messages
	RatePerSec float64 `yaml:"rate_per_sec"`
}

// WebhookConfig configures the generic JSON webhook sink.
type WebhookConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
}

// LogConfig configures logrus output.
type LogConfig struct {
	Format string `yaml:"format"`
	Level  string `yaml:"level"`
	File   string `yaml:"file"`
}

// Error is a typed configuration error naming the offending field.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		PollInterval:   5 * time.Minute,
		TopN:           15,
		RankHorizon:    "8h",
		RequestTimeout: 10 * time.Second,
		HTTPRetryMax:   1,
		PublishTimeout: 15 * time.Second,
		Exchanges:      []string{ExchangeAster, ExchangeHyperliquid},
		Aster:          ExchangeConfig{URL: "https://fapi.asterdex.com"},
		Hyperliquid:    ExchangeConfig{URL: "https://api.hyperliquid.xyz"},
		Binance:        ExchangeConfig{URL: "https://fapi.binance.com"},
		Publisher:      PublisherTelegram,
		Telegram: TelegramConfig{
			URL:        "https://api.telegram.org",
			RatePerSec: 1,
		},
		HTTPAddr: ":8080",
		Log:      LogConfig{Format: "text", Level: "info"},
	}
}

// Load builds the configuration from defaults, an optional YAML file named by
// CONFIG_FILE, and the environment (including a .env file), in that order of
// precedence from lowest to highest. Call Validate on the result.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file loaded, using process environment")
	}

	cfg := Default()
	if path, ok := GetEnv("CONFIG_FILE"); ok && path != "" {
		if err := LoadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	ApplyEnv(&cfg)
	return cfg, nil
}

// ApplyEnv overrides cfg with any environment variables that are set.
func ApplyEnv(cfg *Config) {
	cfg.PollInterval = GetEnvAsDuration("POLL_INTERVAL", cfg.PollInterval)
	cfg.TopN = GetEnvAsInt("TOP_N", cfg.TopN)
	cfg.RankHorizon = GetEnvOrDefault("RANK_HORIZON", cfg.RankHorizon)
	cfg.RequestTimeout = GetEnvAsDuration("REQUEST_TIMEOUT", cfg.RequestTimeout)
	cfg.HTTPRetryMax = GetEnvAsInt("HTTP_RETRY_MAX", cfg.HTTPRetryMax)
	cfg.PublishTimeout = GetEnvAsDuration("PUBLISH_TIMEOUT", cfg.PublishTimeout)
	cfg.PublishEmpty = GetEnvAsBool("PUBLISH_EMPTY", cfg.PublishEmpty)
	if raw, ok := GetEnv("EXCHANGES"); ok {
		cfg.Exchanges = splitList(raw)
	}

	cfg.Aster.URL = GetEnvOrDefault("ASTER_URL", cfg.Aster.URL)
	cfg.Aster.APIKey = GetEnvOrDefault("ASTER_API_KEY", cfg.Aster.APIKey)
	cfg.Aster.APISecret = GetEnvOrDefault("ASTER_API_SECRET", cfg.Aster.APISecret)
	cfg.Hyperliquid.URL = GetEnvOrDefault("HYPERLIQUID_URL", cfg.Hyperliquid.URL)
	cfg.Binance.URL = GetEnvOrDefault("BINANCE_URL", cfg.Binance.URL)
	cfg.Binance.APIKey = GetEnvOrDefault("BINANCE_API_KEY", cfg.Binance.APIKey)
	cfg.Binance.APISecret = GetEnvOrDefault("BINANCE_API_SECRET", cfg.Binance.APISecret)

	cfg.Publisher = strings.ToLower(GetEnvOrDefault("PUBLISHER", cfg.Publisher))
	cfg.Telegram.BotToken = GetEnvOrDefault("TELEGRAM_BOT_TOKEN", cfg.Telegram.BotToken)
	cfg.Telegram.ChatID = GetEnvOrDefault("TELEGRAM_CHAT_ID", cfg.Telegram.ChatID)
	cfg.Telegram.URL = GetEnvOrDefault("TELEGRAM_URL", cfg.Telegram.URL)
	cfg.Telegram.RatePerSec = GetEnvAsFloat("TELEGRAM_RATE_PER_SEC", cfg.Telegram.RatePerSec)
	cfg.Webhook.URL = GetEnvOrDefault("WEBHOOK_URL", cfg.Webhook.URL)
	cfg.Webhook.APIKey = GetEnvOrDefault("WEBHOOK_API_KEY", cfg.Webhook.APIKey)

	cfg.HTTPAddr = GetEnvOrDefault("HTTP_ADDR", cfg.HTTPAddr)
	cfg.OtelEndpoint = GetEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OtelEndpoint)

	cfg.Log.Format = GetEnvOrDefault("LOG_FORMAT", cfg.Log.Format)
	cfg.Log.Level = GetEnvOrDefault("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.File = GetEnvOrDefault("LOG_FILE", cfg.Log.File)
}

// Validate checks the configuration once at startup. Every problem found is
// reported as an *Error, joined together.
func (c Config) Validate() error {
	var errs []error
	fail := func(field, reason string) {
		errs = append(errs, &Error{Field: field, Reason: reason})
	}

	if c.PollInterval <= 0 {
		fail("poll_interval", "must be positive")
	}
	if c.TopN <= 0 {
		fail("top_n", "must be positive")
	}
	switch strings.ToLower(strings.TrimSpace(c.RankHorizon)) {
	case "1h", "2h", "4h", "8h":
	default:
		fail("rank_horizon", fmt.Sprintf("unsupported value %q", c.RankHorizon))
	}
	if c.RequestTimeout <= 0 {
		fail("request_timeout", "must be positive")
	}
	if c.HTTPRetryMax < 0 {
		fail("http_retry_max", "must not be negative")
	}
	if c.PublishTimeout <= 0 {
		fail("publish_timeout", "must be positive")
	}

	if len(c.Exchanges) == 0 {
		fail("exchanges", "at least one exchange is required")
	}
	seen := map[string]bool{}
	for _, name := range c.Exchanges {
		switch name {
		case ExchangeAster, ExchangeHyperliquid, ExchangeBinance:
		default:
			fail("exchanges", fmt.Sprintf("unknown exchange %q", name))
		}
		if seen[name] {
			fail("exchanges", fmt.Sprintf("duplicate exchange %q", name))
		}
		seen[name] = true
	}

	switch c.Publisher {
	case PublisherTelegram:
		if c.Telegram.BotToken == "" {
			fail("telegram.bot_token", "required when publisher is telegram")
		}
		if c.Telegram.ChatID == "" {
			fail("telegram.chat_id", "required when publisher is telegram")
		}
		if c.Telegram.RatePerSec <= 0 {
			fail("telegram.rate_per_sec", "must be positive")
		}
	case PublisherWebhook:
		if c.Webhook.URL == "" {
			fail("webhook.url", "required when publisher is webhook")
		}
	case PublisherLog:
	default:
		fail("publisher", fmt.Sprintf("unknown publisher %q", c.Publisher))
	}

	return errors.Join(errs...)
}

// Exchange returns the endpoint settings for a known exchange name.
func (c Config) Exchange(name string) ExchangeConfig {
	switch name {
	case ExchangeAster:
		return c.Aster
	case ExchangeHyperliquid:
		return c.Hyperliquid
	case ExchangeBinance:
		return c.Binance
	}
	return ExchangeConfig{}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// GetEnv retrieves an environment variable and whether it exists
func GetEnv(key string) (string, bool) {
	value, exists := os.LookupEnv(key)
	return value, exists
}

// GetEnvOrDefault retrieves an environment variable or returns the default value if not set
func GetEnvOrDefault(key, defaultValue string) string {
	if value, exists := GetEnv(key); exists {
		return value
	}
	return defaultValue
}

// GetEnvAsInt retrieves an environment variable as an integer with a default value
func GetEnvAsInt(key string, defaultValue int) int {
	if value, exists := GetEnv(key); exists {
		if intValue, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return intValue
		}
		logrus.Warnf("Invalid integer in %s: %q, using default: %d", key, value, defaultValue)
	}
	return defaultValue
}

// GetEnvAsFloat retrieves an environment variable as a float with a default value
func GetEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := GetEnv(key); exists {
		if floatValue, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return floatValue
		}
		logrus.Warnf("Invalid float in %s: %q, using default: %v", key, value, defaultValue)
	}
	return defaultValue
}

// GetEnvAsDuration retrieves an environment variable as a duration with a default value
func GetEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := GetEnv(key); exists {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil {
			return duration
		}
		logrus.Warnf("Invalid duration in %s: %q, using default: %v", key, value, defaultValue)
	}
	return defaultValue
}

// GetEnvAsBool retrieves an environment variable as a boolean with a default value
func GetEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := GetEnv(key); exists {
		if parsed, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return parsed
		}
		logrus.Warnf("Invalid boolean in %s: %q, using default: %v", key, value, defaultValue)
	}
	return defaultValue
}
