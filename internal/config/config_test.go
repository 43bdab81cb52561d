package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, BackendMemory, cfg.StateBackend)
	assert.Equal(t, "storefront:", cfg.RedisPrefix)
	assert.Equal(t, 4, cfg.WorkerCount)
	assert.Equal(t, 2*time.Second, cfg.PersistenceTimeout)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.False(t, cfg.ArchiveEnabled())
	assert.False(t, cfg.EventsEnabled())
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("STATE_BACKEND", "redis")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("MYSQL_DSN", "root:root@tcp(localhost:3306)/storefront")
	t.Setenv("WORKER_COUNT", "8")
	t.Setenv("BREAKER_OPEN_TIMEOUT", "30s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendRedis, cfg.StateBackend)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.ArchiveEnabled())
	assert.True(t, cfg.EventsEnabled())
	assert.Equal(t, 8, cfg.WorkerCount)
	assert.Equal(t, 30*time.Second, cfg.BreakerOpenTimeout)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"unknown backend", "STATE_BACKEND", "etcd"},
		{"zero workers", "WORKER_COUNT", "0"},
		{"negative queue", "ORDER_QUEUE_SIZE", "-1"},
		{"bad duration", "PERSISTENCE_TIMEOUT", "soon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
