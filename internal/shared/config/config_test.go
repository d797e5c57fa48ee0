package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("JWT_EXPIRES_IN", "")
	t.Setenv("BFL_API_KEY", "")
	t.Setenv("PUBLIC_URL", "")
	t.Setenv("NGROK_URL", "https://abc.ngrok.io/")
	t.Setenv("RECOVER_JOBS_CRON", "")
	t.Setenv("JOB_STALL_TIMEOUT", "")

	cfg := LoadConfig()

	assert.Equal(t, "3007", cfg.Port)
	assert.Equal(t, 30*24*time.Hour, cfg.JWTExpiresIn)
	assert.Equal(t, "https://api.bfl.ai/v1/flux-kontext-pro", cfg.BFLAPIURL)
	assert.Equal(t, "UAH", cfg.Currency)
	assert.Equal(t, "https://abc.ngrok.io", cfg.PublicURL)
	assert.True(t, cfg.FluxDemoMode())
	assert.Equal(t, "*/10 * * * *", cfg.RecoverJobsCron)
	assert.Equal(t, 15*time.Minute, cfg.JobStallTimeout)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("JWT_EXPIRES_IN", "1h")
	t.Setenv("BFL_API_KEY", "real-key")
	t.Setenv("TRANSFORM_BURST", "not-a-number")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("ADMIN_EMAILS", "Boss@Example.com")
	t.Setenv("JOB_STALL_TIMEOUT", "30m")

	cfg := LoadConfig()

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, time.Hour, cfg.JWTExpiresIn)
	assert.False(t, cfg.FluxDemoMode())
	assert.Equal(t, 3, cfg.TransformBurst)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, []string{"boss@example.com"}, cfg.AdminEmails)
	assert.Equal(t, 30*time.Minute, cfg.JobStallTimeout)
}

func TestFluxDemoModePlaceholder(t *testing.T) {
	cfg := &Config{BFLAPIKey: DemoAPIKey}
	assert.True(t, cfg.FluxDemoMode())
}
