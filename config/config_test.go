package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HANDOFF_DELAY", "")
	t.Setenv("PORT", "")

	cfg := load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 1500*time.Millisecond, cfg.HandoffDelay)
	assert.Equal(t, 10*time.Minute, cfg.LookupTTL)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("APP_ENV", EnvProduction)
	t.Setenv("HANDOFF_DELAY", "2s")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("JWT_SECRET", "rahasia")

	cfg := load()
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, EnvProduction, cfg.AppEnv)
	assert.Equal(t, 2*time.Second, cfg.HandoffDelay)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, "rahasia", cfg.JWTSecret)
}

func TestParseDurationFallback(t *testing.T) {
	assert.Equal(t, time.Second, parseDuration("bukan-durasi", time.Second))
	assert.Equal(t, time.Second, parseDuration("-5s", time.Second))
	assert.Equal(t, 3*time.Second, parseDuration("3s", time.Second))
}
