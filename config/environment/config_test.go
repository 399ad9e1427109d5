package environment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "ENVIRONMENT", "PAYMENT_EXPIRY", "VERIFICATION_TTL", "DEFAULT_TAX_RATE", "UPSELL_ENABLED",
		"MAX_ERRORS", "ETA_MINUTES", "AI_PROVIDER", "OPENAI_API_KEY", "STATIC_EXCHANGE_RATE",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("PAYMENT_SECRET", "s3cret")
	t.Setenv("FIREBASE_CREDENTIALS_BASE64", "e30=")
	t.Setenv("FIREBASE_PROJECT_ID", "dineline-test")
	t.Setenv("DB_SOURCE", "postgres://localhost/dineline")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 30*time.Minute, cfg.PaymentExpiry)
	assert.Equal(t, 10*time.Minute, cfg.VerificationTTL)
	assert.Equal(t, 0.08875, cfg.DefaultTaxRate)
	assert.True(t, cfg.UpsellEnabled)
	assert.Equal(t, 3, cfg.MaxErrors)
	assert.Equal(t, 20, cfg.ETAMinutes)
	assert.Equal(t, "keyword", cfg.AIProvider)
	assert.False(t, cfg.IsProduction())
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("PAYMENT_EXPIRY", "45m")
	t.Setenv("UPSELL_ENABLED", "false")
	t.Setenv("MAX_ERRORS", "5")
	t.Setenv("ENVIRONMENT", "production")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 45*time.Minute, cfg.PaymentExpiry)
	assert.False(t, cfg.UpsellEnabled)
	assert.Equal(t, 5, cfg.MaxErrors)
	assert.True(t, cfg.IsProduction())
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := map[string][2]string{
		"missing secret":      {"PAYMENT_SECRET", ""},
		"missing database":    {"DB_SOURCE", ""},
		"bad expiry":          {"PAYMENT_EXPIRY", "half an hour"},
		"bad tax rate":        {"DEFAULT_TAX_RATE", "eight percent"},
		"bad upsell flag":     {"UPSELL_ENABLED", "maybe"},
		"openai without key":  {"AI_PROVIDER", "openai"},
		"non-integer retries": {"MAX_ERRORS", "three"},
	}
	for name, kv := range tests {
		t.Run(name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(kv[0], kv[1])
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
