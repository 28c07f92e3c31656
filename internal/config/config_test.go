package config

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSQLiteDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "SQLite")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("SQLITE_PATH", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, cfg.StoreDriver)
	assert.Equal(t, "newsroom.db", cfg.SQLitePath)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, 3, cfg.AddItemMaxRetries)
	assert.False(t, cfg.EventsEnabled)
}

func TestLoadReportsEveryProblem(t *testing.T) {
	t.Setenv("STORE_DRIVER", "mysql")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DB_USER", "")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "3306")
	t.Setenv("DB_NAME", "newsroom")
	t.Setenv("BCRYPT_COST", "twelve")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
	assert.Contains(t, err.Error(), "DB_USER")
	assert.Contains(t, err.Error(), "BCRYPT_COST")
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("JWT_SECRET", "x")

	_, err := Load()
	assert.ErrorContains(t, err, "STORE_DRIVER")
}

func TestRateLimitConfigClamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_TOKENS", "-3")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "500ms")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	cfg := LoadRateLimitConfig()
	assert.Equal(t, 1, cfg.Capacity)
	assert.Equal(t, 1, cfg.RefillTokens)
	assert.Equal(t, 2500*time.Millisecond, cfg.TTL)
	assert.InDelta(t, 2.0, cfg.PerSecond(), 1e-9)
}

func TestCacheConfig(t *testing.T) {
	t.Setenv("CACHE_ENABLED", "off")
	t.Setenv("CACHE_METHODS", "get, head")

	cfg := LoadCacheConfig()
	assert.False(t, cfg.Enabled)
	assert.Equal(t, map[string]bool{"GET": true, "HEAD": true}, cfg.Methods)
	assert.Equal(t, 15*time.Second, cfg.TTL)
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)

	t.Setenv("REDIS_HOST", mr.Host())
	t.Setenv("REDIS_PORT", mr.Port())
	client := NewRedisClient(context.Background(), LoadRedisConfig())
	require.NotNil(t, client)
	defer client.Close()

	mr.Close()
	assert.Nil(t, NewRedisClient(context.Background(), LoadRedisConfig()))
}
