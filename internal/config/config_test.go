package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8080, cfg.HTTP.Port)

	assert.Equal(t, 15*time.Minute, cfg.Security.JWTAccessTTL)
	assert.Equal(t, 720*time.Hour, cfg.Security.JWTRefreshTTL)
	assert.Equal(t, 12, cfg.Security.BcryptCost)
	assert.Equal(t, 24*time.Hour, cfg.Security.VerificationTTL)
	assert.Equal(t, 30*time.Minute, cfg.Security.ResetTTL)
	assert.Equal(t, 5, cfg.Security.LockoutThreshold)
	assert.Equal(t, time.Hour, cfg.Security.LockoutDuration)

	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, "https://api.unsplash.com", cfg.Unsplash.BaseURL)
}

func TestValidateRejectsSharedSecret(t *testing.T) {
	cfg := AppConfig{}
	cfg.Security.JWTAccessSecret = "same-secret"
	cfg.Security.JWTRefreshSecret = "same-secret"

	assert.Error(t, cfg.validate())

	cfg.Security.JWTRefreshSecret = "different-secret"
	assert.NoError(t, cfg.validate())
}
