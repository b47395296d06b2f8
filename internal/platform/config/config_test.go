package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("KAFKA_BROKERS", "")

	cfg := FromEnv()

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Empty(t, cfg.Database.URL)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 5*time.Second, cfg.Database.TxTimeout)
	assert.Nil(t, cfg.Kafka.Brokers)
	assert.False(t, cfg.IsProduction())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("AGENCYHUB_ADDR", ":9090")
	t.Setenv("DATABASE_DRIVER", "pgx")
	t.Setenv("DATABASE_TX_MAX_RETRIES", "7")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("STATS_CACHE_TTL", "90s")
	t.Setenv("DATABASE_AUTO_MIGRATE", "false")
	t.Setenv("ENVIRONMENT", "production")

	cfg := FromEnv()

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "pgx", cfg.Database.Driver)
	assert.Equal(t, uint64(7), cfg.Database.TxMaxRetries)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 90*time.Second, cfg.Stats.CacheTTL)
	assert.False(t, cfg.Database.AutoMigrate)
	assert.True(t, cfg.IsProduction())
}

func TestMalformedValuesFallBack(t *testing.T) {
	t.Setenv("DATABASE_MAX_OPEN_CONNS", "lots")
	t.Setenv("REQUEST_TIMEOUT", "soon")

	cfg := FromEnv()

	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, 15*time.Second, cfg.RequestTimeout)
}
