package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_RequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	for _, k := range []string{"DATABASE_URL", "TOKEN_TTL", "HTTP_PORT", "GRPC_PORT", "REDIS_URL",
		"USER_CACHE_TTL", "LOG_LEVEL", "OTEL_ENABLED", "OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_SAMPLING_RATIO"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite://scheduling.db", cfg.DatabaseURL)
	assert.Equal(t, 60*time.Minute, cfg.TokenTTL)
	assert.Equal(t, "5000", cfg.HTTPPort)
	assert.Equal(t, "50051", cfg.GRPCPort)
	assert.Empty(t, cfg.RedisURL)
	assert.Equal(t, 10*time.Minute, cfg.UserCacheTTL)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.False(t, cfg.OTelEnabled)
	assert.Equal(t, "localhost:4317", cfg.OTelEndpoint)
	assert.Equal(t, 1.0, cfg.OTelSamplingRatio)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DATABASE_URL", "postgres://app:pw@db:5432/clinic")
	t.Setenv("TOKEN_TTL", "15m")
	t.Setenv("HTTP_PORT", "8080")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("OTEL_SAMPLING_RATIO", "0.25")
	t.Setenv("USER_CACHE_TTL", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://app:pw@db:5432/clinic", cfg.DatabaseURL)
	assert.Equal(t, 15*time.Minute, cfg.TokenTTL)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.True(t, cfg.OTelEnabled)
	assert.Equal(t, 0.25, cfg.OTelSamplingRatio)
	// invalid values fall back to the default
	assert.Equal(t, 10*time.Minute, cfg.UserCacheTTL)
}

func TestConfig_StringMasksSecrets(t *testing.T) {
	cfg := &Config{
		DatabaseURL: "postgres://app:hunter2@db:5432/clinic",
		JWTSecret:   "top-secret",
		RedisURL:    "redis://:redispw@cache:6379/0",
	}

	s := cfg.String()
	assert.NotContains(t, s, "hunter2")
	assert.NotContains(t, s, "top-secret")
	assert.NotContains(t, s, "redispw")
	assert.True(t, strings.Contains(s, "postgres://app:****@db:5432/clinic"))
}
