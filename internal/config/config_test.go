package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("EVENTS_BACKENDS", "")
	t.Setenv("FILES_BACKEND", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Tickets.ReplyMaxFiles)
	assert.Equal(t, 10, cfg.Tickets.CreateMaxFiles)
	assert.Equal(t, 5, cfg.Tickets.ConflictRetries)
	assert.Equal(t, "postgres", cfg.Storage.Backend)
	assert.Equal(t, []string{"log"}, cfg.Events.Backends)
	assert.Equal(t, 30*time.Second, cfg.App.RequestTimeout())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("EVENTS_BACKENDS", "log, kafka ,redis")
	t.Setenv("EVENTS_KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("TICKET_REPLY_MAX_FILES", "5")
	t.Setenv("HTTP_REQUEST_TIMEOUT_SECONDS", "0")
	t.Setenv("APP_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"log", "kafka", "redis"}, cfg.Events.Backends)
	assert.True(t, cfg.Events.HasBackend("kafka"))
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Events.KafkaBrokers)
	assert.Equal(t, 5, cfg.Tickets.ReplyMaxFiles)
	assert.Equal(t, time.Duration(0), cfg.App.RequestTimeout())
	assert.Equal(t, "0.0.0.0:9090", cfg.App.Addr())
}

func TestLoadRejectsUnknownBackends(t *testing.T) {
	t.Setenv("FILES_BACKEND", "ftp")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("FILES_BACKEND", "object")
	t.Setenv("EVENTS_BACKENDS", "carrier-pigeon")
	_, err = Load()
	assert.Error(t, err)
}

func TestBadRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "zero")
	_, err := Load()
	assert.Error(t, err)
}
