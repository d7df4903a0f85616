// Package config loads draconic's configuration via Viper, merging TOML
// files with environment variable overrides the same way the teacher's
// am package does for its own configuration surface.
package config

import "github.com/cheapskatecoder/draconic/errors"

// Config is draconic's top-level configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Server   ServerConfig   `mapstructure:"server"`
	Capacity CapacityConfig `mapstructure:"capacity"`
	Executor ExecutorConfig `mapstructure:"executor"`
	Retry    RetryConfig    `mapstructure:"retry"`
	Defaults DefaultsConfig `mapstructure:"defaults"`
}

// DatabaseConfig configures the SQLite-backed job state store.
type DatabaseConfig struct {
	Path string `mapstructure:"path"` // path to the sqlite database file
}

// ServerConfig configures the HTTP/WebSocket front end.
type ServerConfig struct {
	ListenAddr     string   `mapstructure:"listen_addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// CapacityConfig configures the Resource Ledger's total capacity.
type CapacityConfig struct {
	CPUUnits  int `mapstructure:"cpu_units"`
	MemoryMB  int `mapstructure:"memory_mb"`
}

// ExecutorConfig configures the bounded-concurrency executor pool.
type ExecutorConfig struct {
	MaxConcurrent int `mapstructure:"max_concurrent"`
}

// RetryConfig configures exponential backoff for retryable failures.
type RetryConfig struct {
	BaseDelaySeconds int `mapstructure:"base_delay_seconds"`
	MinDelaySeconds  int `mapstructure:"min_delay_seconds"`
	MaxDelaySeconds  int `mapstructure:"max_delay_seconds"`
}

// DefaultsConfig configures per-job defaults applied at submission time
// when a job spec leaves these fields unset.
type DefaultsConfig struct {
	MaxAttempts        int     `mapstructure:"max_attempts"`
	BackoffMultiplier  float64 `mapstructure:"backoff_multiplier"`
	TimeoutSeconds     int     `mapstructure:"timeout_seconds"`
}

// Validate checks that the configuration values are sane before the
// scheduler is constructed from them.
func (c *Config) Validate() error {
	if c.Capacity.CPUUnits <= 0 {
		return errors.Newf("capacity.cpu_units must be > 0, got %d", c.Capacity.CPUUnits)
	}
	if c.Capacity.MemoryMB <= 0 {
		return errors.Newf("capacity.memory_mb must be > 0, got %d", c.Capacity.MemoryMB)
	}
	if c.Executor.MaxConcurrent <= 0 {
		return errors.Newf("executor.max_concurrent must be > 0, got %d", c.Executor.MaxConcurrent)
	}
	if c.Retry.BaseDelaySeconds <= 0 {
		return errors.Newf("retry.base_delay_seconds must be > 0, got %d", c.Retry.BaseDelaySeconds)
	}
	if c.Retry.MinDelaySeconds <= 0 || c.Retry.MinDelaySeconds > c.Retry.MaxDelaySeconds {
		return errors.Newf("retry.min_delay_seconds must be > 0 and <= max_delay_seconds")
	}
	if c.Defaults.MaxAttempts <= 0 {
		return errors.Newf("defaults.max_attempts must be > 0, got %d", c.Defaults.MaxAttempts)
	}
	if c.Defaults.BackoffMultiplier < 1 {
		return errors.Newf("defaults.backoff_multiplier must be >= 1, got %f", c.Defaults.BackoffMultiplier)
	}
	if c.Defaults.TimeoutSeconds <= 0 {
		return errors.Newf("defaults.timeout_seconds must be > 0, got %d", c.Defaults.TimeoutSeconds)
	}
	return nil
}
