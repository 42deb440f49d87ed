package extension

import (
	"time"

	hold "github.com/xraph/hold"
	"github.com/xraph/hold/plugin"
	"github.com/xraph/hold/store"
)

// Option configures the Hold Forge extension.
type Option func(*Extension)

// WithStore sets the store for the hold engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithHoldOption passes a hold.Option through to the underlying engine.
func WithHoldOption(opt hold.Option) Option {
	return func(e *Extension) {
		e.holdOpts = append(e.holdOpts, opt)
	}
}

// WithPlugin registers a hold plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.holdOpts = append(e.holdOpts, hold.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithHoldDuration sets the pending-claim hold window.
func WithHoldDuration(d time.Duration) Option {
	return func(e *Extension) { e.config.HoldDuration = d }
}

// WithSweepInterval sets the reconciliation sweep period.
func WithSweepInterval(d time.Duration) Option {
	return func(e *Extension) { e.config.SweepInterval = d }
}

// WithGroveDatabase sets the name of the grove.DB to resolve from the DI container.
// Pass an empty string to use the default (unnamed) grove.DB.
func WithGroveDatabase(name string) Option {
	return func(e *Extension) {
		e.config.GroveDatabase = name
		e.useGrove = true
	}
}
