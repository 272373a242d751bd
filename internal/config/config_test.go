package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnvDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/pay")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("PUBLIC_BASE_URL", "https://shop.example.com/")
	t.Setenv("GATEWAY_MERCHANT_ID", "merchant-1")

	cfg, err := loadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, ":8080", cfg.HTTPAddr())
	assert.Equal(t, "https://shop.example.com", cfg.PublicBaseURL, "trailing slash is trimmed")
	assert.True(t, cfg.PassCartDetails, "cart details default on")
	assert.True(t, cfg.ValidateTotalOnConfirm)
	assert.False(t, cfg.RedirectOnDecline)
	assert.Equal(t, 30*time.Second, cfg.GatewayTimeout)
	assert.Equal(t, 72*time.Hour, cfg.PendingMaxAge)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.True(t, cfg.AdditionalFee.IsZero())
}

func TestLoadFromEnvMissingRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("PUBLIC_BASE_URL", "")
	t.Setenv("GATEWAY_MERCHANT_ID", "merchant-1")

	_, err := loadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
	assert.Contains(t, err.Error(), "PUBLIC_BASE_URL")
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/pay")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("PUBLIC_BASE_URL", "https://shop.example.com")
	t.Setenv("GATEWAY_MERCHANT_ID", "merchant-1")
	t.Setenv("PORT", "9090")
	t.Setenv("GATEWAY_PASS_CART_DETAILS", "false")
	t.Setenv("GATEWAY_ADDITIONAL_FEE", "1.50")
	t.Setenv("GATEWAY_ADDITIONAL_FEE_PERCENTAGE", "true")
	t.Setenv("GATEWAY_TIMEOUT", "5s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg, err := loadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.False(t, cfg.PassCartDetails)
	assert.Equal(t, "1.5", cfg.AdditionalFee.String())
	assert.True(t, cfg.AdditionalFeePercentage)
	assert.Equal(t, 5*time.Second, cfg.GatewayTimeout)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSAllowedOrigins)
}

func TestLoadFromEnvBadFee(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/pay")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("PUBLIC_BASE_URL", "https://shop.example.com")
	t.Setenv("GATEWAY_MERCHANT_ID", "merchant-1")
	t.Setenv("GATEWAY_ADDITIONAL_FEE", "abc")

	_, err := loadFromEnv()
	require.Error(t, err)
}
