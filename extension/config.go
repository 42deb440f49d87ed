package extension

import "time"

// Config holds the Hold extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.hold" or "hold" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// HoldDuration is how long a claim stays pending before it is released
	// back to stock (default: 120s).
	HoldDuration time.Duration `json:"hold_duration" mapstructure:"hold_duration" yaml:"hold_duration"`

	// SweepInterval is the period of the reconciliation sweep
	// (default: 10s).
	SweepInterval time.Duration `json:"sweep_interval" mapstructure:"sweep_interval" yaml:"sweep_interval"`

	// GroveDatabase is the name of a grove.DB registered in the DI container.
	// Reserved for DI-based store resolution; a store provided via WithStore
	// always takes precedence.
	GroveDatabase string `json:"grove_database" mapstructure:"grove_database" yaml:"grove_database"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		HoldDuration:  120 * time.Second,
		SweepInterval: 10 * time.Second,
	}
}
