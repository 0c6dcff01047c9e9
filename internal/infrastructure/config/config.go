package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
	Session   SessionConfig
}

// ServerConfig holds HTTP server configuration. The tool is local-only, so
// the default host binds loopback.
type ServerConfig struct {
	Host string `envconfig:"SWIFTLABEL_HOST" default:"127.0.0.1"`
	Port string `envconfig:"SWIFTLABEL_PORT" default:"8765"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"SWIFTLABEL_LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"SWIFTLABEL_LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"SWIFTLABEL_RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"SWIFTLABEL_RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"SWIFTLABEL_RATE_LIMIT_ENABLED" default:"true"`
}

// SessionConfig holds session defaults used when no flag overrides them.
type SessionConfig struct {
	Classes []string `envconfig:"SWIFTLABEL_CLASSES"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
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
			Host: "127.0.0.1",
			Port: "8765",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}
