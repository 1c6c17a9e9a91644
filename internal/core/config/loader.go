package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Queue.CycleInterval == 0 {
		cfg.Queue.CycleInterval = 5 * time.Second
	}
	if cfg.Queue.DefaultMaxAttempts == 0 {
		cfg.Queue.DefaultMaxAttempts = 3
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry.MaxAttempts = 3
	}
	if cfg.Retry.BaseDelay == 0 {
		cfg.Retry.BaseDelay = 1 * time.Second
	}
	if cfg.Retry.MaxDelay == 0 {
		cfg.Retry.MaxDelay = 60 * time.Second
	}
	if cfg.Retry.JitterFactor == 0 {
		cfg.Retry.JitterFactor = 0.2
	}
	if cfg.Breaker.Threshold == 0 {
		cfg.Breaker.Threshold = 5
	}
	if cfg.Breaker.CoolDown == 0 {
		cfg.Breaker.CoolDown = 60 * time.Second
	}
	if cfg.Escalation.BaseThreshold == 0 {
		cfg.Escalation.BaseThreshold = 5
	}
	if cfg.Escalation.HealthWindow == 0 {
		cfg.Escalation.HealthWindow = 15 * time.Minute
	}
	if cfg.Escalation.HealthThreshold == 0 {
		cfg.Escalation.HealthThreshold = 10
	}
	if cfg.Escalation.HealthInterval == 0 {
		cfg.Escalation.HealthInterval = 60 * time.Second
	}
}
