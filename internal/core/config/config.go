package config

import (
	"time"

	redisclient "github.com/vietddude/healer/internal/infra/redis"
	"github.com/vietddude/healer/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server     ServerConfig       `yaml:"server"`
	Queue      QueueConfig        `yaml:"queue"`
	Retry      RetryConfig        `yaml:"retry"`
	Breaker    BreakerConfig      `yaml:"breaker"`
	Escalation EscalationConfig   `yaml:"escalation"`
	Notifiers  NotifiersConfig    `yaml:"notifiers"`
	Redis      redisclient.Config `yaml:"redis"`
	Database   postgres.Config    `yaml:"database"`
	Logging    LoggingConfig      `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// QueueConfig holds queue cycle settings.
type QueueConfig struct {
	CycleInterval      time.Duration `yaml:"cycle_interval"`
	DefaultMaxAttempts int           `yaml:"default_max_attempts"`
}

// RetryConfig holds per-strategy retry settings.
type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts"`
	BaseDelay    time.Duration `yaml:"base_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
	JitterFactor float64       `yaml:"jitter_factor"`
}

// BreakerConfig holds circuit breaker settings.
type BreakerConfig struct {
	Threshold int           `yaml:"threshold"`
	CoolDown  time.Duration `yaml:"cool_down"`
}

// EscalationConfig holds severity ladder and health sweep settings.
type EscalationConfig struct {
	BaseThreshold   int           `yaml:"base_threshold"`
	HealthWindow    time.Duration `yaml:"health_window"`
	HealthThreshold int           `yaml:"health_threshold"`
	HealthInterval  time.Duration `yaml:"health_interval"`
}

// NotifiersConfig holds external notification endpoints. Empty values fall
// back to log-only delivery.
type NotifiersConfig struct {
	OpsChannel string `yaml:"ops_channel"`
	PagerURL   string `yaml:"pager_url"`
	TicketURL  string `yaml:"ticket_url"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}
