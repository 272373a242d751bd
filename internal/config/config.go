package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/shopspring/decimal"
)

// Config carries all runtime configuration for the payment service.
type Config struct {
	AppEnv string
	Port   int

	DatabaseURL string
	RedisURL    string

	// PublicBaseURL is the externally reachable base URL used to build
	// gateway redirect and callback addresses.
	PublicBaseURL string

	AdminJWTSecret     string
	CORSAllowedOrigins []string
	CurrencyCode       string

	// Base gateway settings. Per-store overrides layer on top of these.
	GatewayMerchantID       string
	GatewayUseSandbox       bool
	GatewayContactEmail     string
	GatewayContactPhone     string
	PassCartDetails         bool
	ValidateTotalOnConfirm  bool
	RedirectOnDecline       bool
	AdditionalFee           decimal.Decimal
	AdditionalFeePercentage bool

	GatewayTimeout          time.Duration
	IdempotencyTTL          time.Duration
	CallbackRateLimitPerMin int
	LockTTL                 time.Duration
	PendingSweepInterval    time.Duration
	PendingMaxAge           time.Duration

	LogLevel  string
	LogFormat string

	MetricsNamespace string
	MetricsBuckets   []float64

	TracingEnabled       bool
	TracingExporter      string
	TracingEndpoint      string
	TracingSamplingRatio float64
}

// Load reads configuration from environment variables and optional .env files.
func Load() (Config, error) {
	_ = godotenv.Load()
	return loadFromEnv()
}

// MustLoad loads configuration or panics. Intended for main().
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return cfg
}

// LoadForTests returns a config with safe defaults for unit tests.
func LoadForTests() Config {
	return Config{
		AppEnv:                  "test",
		Port:                    0,
		DatabaseURL:             "postgres://localhost:5432/pay_test",
		RedisURL:                "redis://localhost:6379/1",
		PublicBaseURL:           "http://localhost:8080",
		AdminJWTSecret:          "test-secret",
		CurrencyCode:            "USD",
		GatewayMerchantID:       "test-merchant",
		GatewayUseSandbox:       true,
		PassCartDetails:         true,
		ValidateTotalOnConfirm:  true,
		AdditionalFee:           decimal.Zero,
		GatewayTimeout:          30 * time.Second,
		IdempotencyTTL:          24 * time.Hour,
		CallbackRateLimitPerMin: 60,
		LockTTL:                 10 * time.Second,
		PendingSweepInterval:    time.Hour,
		PendingMaxAge:           72 * time.Hour,
		LogLevel:                "debug",
		LogFormat:               "text",
		MetricsNamespace:        "pay",
		TracingSamplingRatio:    1,
	}
}

func loadFromEnv() (Config, error) {
	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return Config{}, fmt.Errorf("load env: %w", err)
	}

	cfg := Config{
		AppEnv:                  valueOrDefault(k.String("APP_ENV"), "development"),
		Port:                    parseInt(k.String("PORT"), 8080),
		DatabaseURL:             k.String("DATABASE_URL"),
		RedisURL:                k.String("REDIS_URL"),
		PublicBaseURL:           strings.TrimRight(strings.TrimSpace(k.String("PUBLIC_BASE_URL")), "/"),
		AdminJWTSecret:          k.String("ADMIN_JWT_SECRET"),
		CORSAllowedOrigins:      splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		CurrencyCode:            valueOrDefault(k.String("CURRENCY_CODE"), "USD"),
		GatewayMerchantID:       k.String("GATEWAY_MERCHANT_ID"),
		GatewayUseSandbox:       parseBool(k.String("GATEWAY_USE_SANDBOX"), false),
		GatewayContactEmail:     k.String("GATEWAY_CONTACT_EMAIL"),
		GatewayContactPhone:     k.String("GATEWAY_CONTACT_PHONE"),
		PassCartDetails:         parseBool(k.String("GATEWAY_PASS_CART_DETAILS"), true),
		ValidateTotalOnConfirm:  parseBool(k.String("GATEWAY_VALIDATE_TOTAL"), true),
		RedirectOnDecline:       parseBool(k.String("GATEWAY_REDIRECT_ON_DECLINE"), false),
		AdditionalFeePercentage: parseBool(k.String("GATEWAY_ADDITIONAL_FEE_PERCENTAGE"), false),
		GatewayTimeout:          parseDuration(k.String("GATEWAY_TIMEOUT"), 30*time.Second),
		IdempotencyTTL:          parseDuration(k.String("IDEMPOTENCY_TTL"), 24*time.Hour),
		CallbackRateLimitPerMin: parseInt(k.String("CALLBACK_RATE_LIMIT_PER_MIN"), 60),
		LockTTL:                 parseDuration(k.String("LOCK_TTL"), 10*time.Second),
		PendingSweepInterval:    parseDuration(k.String("PENDING_SWEEP_INTERVAL"), time.Hour),
		PendingMaxAge:           parseDuration(k.String("PENDING_MAX_AGE"), 72*time.Hour),
		LogLevel:                valueOrDefault(k.String("LOG_LEVEL"), "info"),
		LogFormat:               valueOrDefault(k.String("LOG_FORMAT"), "json"),
		MetricsNamespace:        valueOrDefault(k.String("METRICS_NAMESPACE"), "pay"),
		MetricsBuckets:          parseBucketsCSV(k.String("METRICS_BUCKETS")),
		TracingEnabled:          parseBool(k.String("TRACING_ENABLED"), false),
		TracingExporter:         valueOrDefault(k.String("TRACING_EXPORTER"), "otlp"),
		TracingEndpoint:         k.String("TRACING_ENDPOINT"),
		TracingSamplingRatio:    parseFloat(k.String("TRACING_SAMPLING_RATIO"), 1),
	}

	if fee := strings.TrimSpace(k.String("GATEWAY_ADDITIONAL_FEE")); fee != "" {
		d, err := decimal.NewFromString(fee)
		if err != nil {
			return Config{}, fmt.Errorf("parse GATEWAY_ADDITIONAL_FEE: %w", err)
		}
		cfg.AdditionalFee = d
	}

	var missing []string
	for _, req := range []struct{ key, val string }{
		{"DATABASE_URL", cfg.DatabaseURL},
		{"REDIS_URL", cfg.RedisURL},
		{"PUBLIC_BASE_URL", cfg.PublicBaseURL},
		{"GATEWAY_MERCHANT_ID", cfg.GatewayMerchantID},
	} {
		if strings.TrimSpace(req.val) == "" {
			missing = append(missing, req.key)
		}
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}
	return cfg, nil
}

// HTTPAddr returns the listen address for the HTTP server.
func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// IsProduction reports whether the service runs with the production profile.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

func valueOrDefault(v, def string) string {
	if strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func parseInt(raw string, def int) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func parseBool(raw string, def bool) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return b
}

func parseFloat(raw string, def float64) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return f
}

func parseDuration(raw string, def time.Duration) time.Duration {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}

func splitAndTrim(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseBucketsCSV(raw string) []float64 {
	var out []float64
	for _, p := range splitAndTrim(raw) {
		if f, err := strconv.ParseFloat(p, 64); err == nil {
			out = append(out, f)
		}
	}
	return out
}
