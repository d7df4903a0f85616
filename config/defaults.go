package config

import (
	"strings"

	"github.com/spf13/viper"
)

// SetDefaults configures default values for every configuration option,
// matching spec.md §6's documented defaults.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "draconic.db")
	v.SetDefault("server.listen_addr", ":8770")
	v.SetDefault("server.allowed_origins", []string{"http://localhost"})

	v.SetDefault("capacity.cpu_units", 8)
	v.SetDefault("capacity.memory_mb", 4096)

	v.SetDefault("executor.max_concurrent", 10)

	v.SetDefault("retry.base_delay_seconds", 1)
	v.SetDefault("retry.min_delay_seconds", 1)
	v.SetDefault("retry.max_delay_seconds", 300)

	v.SetDefault("defaults.max_attempts", 3)
	v.SetDefault("defaults.backoff_multiplier", 2.0)
	v.SetDefault("defaults.timeout_seconds", 3600)
}

// BindSensitiveEnvVars explicitly binds configuration that operators
// commonly override via the environment rather than a checked-in file.
func BindSensitiveEnvVars(v *viper.Viper) {
	v.BindEnv("database.path", "DRACONIC_DATABASE_PATH")
	v.BindEnv("server.listen_addr", "DRACONIC_LISTEN_ADDR")
}

// envReplacer turns dotted viper keys into the underscore form used by
// DRACONIC_-prefixed environment variables (e.g. capacity.cpu_units ->
// DRACONIC_CAPACITY_CPU_UNITS).
var envReplacer = strings.NewReplacer(".", "_")
