package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"

	"github.com/chardev/chardevd/internal/queue"
)

// Config holds all service configuration.
type Config struct {
	Server    ServerConfig
	Device    DeviceConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8090"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// DeviceConfig holds message device configuration. Defaults are the device
// contract values; they are configurable for tests only, the wire contract
// does not change.
type DeviceConfig struct {
	QueueCapacity  int `envconfig:"QUEUE_CAPACITY" default:"1000"`
	MaxMessageSize int `envconfig:"MAX_MESSAGE_SIZE" default:"4096"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration. The per-IP bucket guards
// against a single noisy client, the global bucket caps aggregate load.
type RateLimitConfig struct {
	RequestsPerSecond       int  `envconfig:"RATE_LIMIT_RPS" default:"500"`
	Burst                   int  `envconfig:"RATE_LIMIT_BURST" default:"1000"`
	GlobalRequestsPerSecond int  `envconfig:"RATE_LIMIT_GLOBAL_RPS" default:"2000"`
	GlobalBurst             int  `envconfig:"RATE_LIMIT_GLOBAL_BURST" default:"4000"`
	Enabled                 bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Device.QueueCapacity <= 0 {
		return nil, fmt.Errorf("queue capacity must be positive, got %d", cfg.Device.QueueCapacity)
	}
	if cfg.Device.MaxMessageSize <= 0 || cfg.Device.MaxMessageSize > queue.MaxMessageSize {
		return nil, fmt.Errorf("max message size must be in (0, %d], got %d",
			queue.MaxMessageSize, cfg.Device.MaxMessageSize)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8090",
			Host: "0.0.0.0",
		},
		Device: DeviceConfig{
			QueueCapacity:  queue.MaxQueueSize,
			MaxMessageSize: queue.MaxMessageSize,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond:       500,
			Burst:                   1000,
			GlobalRequestsPerSecond: 2000,
			GlobalBurst:             4000,
			Enabled:                 true,
		},
	}
}
