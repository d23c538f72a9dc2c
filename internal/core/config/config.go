package config

import (
	"fmt"
	"time"

	sessionredis "github.com/hotelops/stockpilot/internal/infra/sessionstore/redis"
	"github.com/hotelops/stockpilot/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server   ServerConfig        `yaml:"server"`
	API      APIConfig           `yaml:"api"`
	Redis    sessionredis.Config `yaml:"redis"`
	Database postgres.Config     `yaml:"database"`
	Session  SessionConfig       `yaml:"session"`
	Retry    RetryConfig         `yaml:"retry"`
	Sync     SyncConfig          `yaml:"sync"`
	Logging  LoggingConfig       `yaml:"logging"`
}

// ServerConfig holds health/metrics HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// APIConfig holds remote inventory service settings.
type APIConfig struct {
	BaseURL string   `yaml:"base_url"`
	Timeout Duration `yaml:"timeout"`
}

// SessionConfig holds session lifecycle settings.
type SessionConfig struct {
	RenewalThreshold Duration `yaml:"renewal_threshold"`
}

// RetryConfig holds retry coordinator settings.
type RetryConfig struct {
	MaxRetries int      `yaml:"max_retries"`
	BaseDelay  Duration `yaml:"base_delay"`
	MaxDelay   Duration `yaml:"max_delay"`
}

// SyncConfig holds background sync worker settings.
type SyncConfig struct {
	Interval Duration `yaml:"interval"`
	Disabled bool     `yaml:"disabled"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// Duration is a time.Duration that unmarshals from YAML strings like
// "5m" or "500ms".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) String() string { return time.Duration(d).String() }
