package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv(envOf(map[string]string{"JWT_SECRET": "s3cret"}))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.True(t, filepath.IsAbs(cfg.DBDSN))
	assert.Equal(t, "library.db", filepath.Base(cfg.DBDSN))
	assert.Equal(t, 10*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 256, cfg.MaxConns)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.TelegramToken)
}

func TestFromEnvOverrides(t *testing.T) {
	cfg, err := FromEnv(envOf(map[string]string{
		"JWT_SECRET":     "s3cret",
		"HTTP_ADDR":      "127.0.0.1:9000",
		"DB_DRIVER":      "PGX",
		"DB_DSN":         "postgres://u:p@localhost/library",
		"SESSION_TTL":    "30m",
		"MAX_CONNS":      "8",
		"CORS_ORIGINS":   "https://a.example, https://b.example",
		"LOG_LEVEL":      "DEBUG",
		"TELEGRAM_TOKEN": " 123:abc ",
	}))
	require.NoError(t, err)

	assert.Equal(t, "pgx", cfg.DBDriver)
	assert.Equal(t, "postgres://u:p@localhost/library", cfg.DBDSN)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 8, cfg.MaxConns)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "123:abc", cfg.TelegramToken)
}

func TestFromEnvErrors(t *testing.T) {
	cases := map[string]map[string]string{
		"missing secret":   {},
		"unknown driver":   {"JWT_SECRET": "x", "DB_DRIVER": "mysql"},
		"postgres w/o dsn": {"JWT_SECRET": "x", "DB_DRIVER": "postgres"},
		"bad ttl":          {"JWT_SECRET": "x", "SESSION_TTL": "forever"},
		"negative ttl":     {"JWT_SECRET": "x", "SESSION_TTL": "-1h"},
		"bad max conns":    {"JWT_SECRET": "x", "MAX_CONNS": "many"},
		"zero max conns":   {"JWT_SECRET": "x", "MAX_CONNS": "0"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := FromEnv(envOf(env))
			assert.Error(t, err)
		})
	}
}
