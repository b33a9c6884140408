package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chardev/chardevd/internal/queue"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, queue.MaxQueueSize, cfg.Device.QueueCapacity)
	assert.Equal(t, queue.MaxMessageSize, cfg.Device.MaxMessageSize)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 2000, cfg.RateLimit.GlobalRequestsPerSecond)
	assert.Equal(t, 4000, cfg.RateLimit.GlobalBurst)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("QUEUE_CAPACITY", "10")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9999", cfg.Server.Port)
	assert.Equal(t, 10, cfg.Device.QueueCapacity)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_RejectsBadDeviceLimits(t *testing.T) {
	t.Setenv("QUEUE_CAPACITY", "-1")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("QUEUE_CAPACITY", "1000")
	t.Setenv("MAX_MESSAGE_SIZE", "5000")
	_, err = Load()
	assert.Error(t, err)
}

func TestLoadOrDefault_FallsBack(t *testing.T) {
	t.Setenv("QUEUE_CAPACITY", "not a number")
	cfg := LoadOrDefault()
	assert.Equal(t, queue.MaxQueueSize, cfg.Device.QueueCapacity)
}
