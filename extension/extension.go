// Package extension provides the Forge extension adapter for Hold.
//
// It implements the forge.Extension interface to integrate Hold
// into a Forge application with automatic dependency discovery,
// DI registration, and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.hold" or "hold" keys.
package extension

import (
	"context"
	"errors"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	hold "github.com/xraph/hold"
	"github.com/xraph/hold/store"
	"github.com/xraph/hold/store/memory"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "hold"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Time-bounded resource reservation engine"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts Hold as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config   Config
	engine   *hold.Engine
	store    store.Store
	holdOpts []hold.Option
	useGrove bool
}

// New creates a new Hold Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying Hold instance.
// This is nil until Register is called.
func (e *Extension) Engine() *hold.Engine { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// initializes the hold engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	// Use memory store if no store was provided programmatically.
	if e.store == nil {
		e.store = memory.New()
	}

	// Build hold options from resolved config.
	opts := e.buildHoldOpts()

	eng := hold.New(e.store, opts...)
	e.engine = eng

	return vessel.Provide(fapp.Container(), func() (*hold.Engine, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("hold: extension not initialized")
	}

	if err := e.engine.Start(ctx); err != nil {
		return err
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("hold: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildHoldOpts constructs hold.Option values from the resolved config.
func (e *Extension) buildHoldOpts() []hold.Option {
	opts := make([]hold.Option, 0, len(e.holdOpts)+3)

	if e.config.HoldDuration > 0 {
		opts = append(opts, hold.WithHoldDuration(e.config.HoldDuration))
	}
	if e.config.SweepInterval > 0 {
		opts = append(opts, hold.WithSweepInterval(e.config.SweepInterval))
	}
	if e.config.DisableMigrate {
		opts = append(opts, hold.WithoutMigrate())
	}

	// Append any pass-through hold options.
	opts = append(opts, e.holdOpts...)

	return opts
}

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("hold: configuration is required but not found in config files; " +
				"ensure 'extensions.hold' or 'hold' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = e.mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = e.mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("hold: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("hold_duration", e.config.HoldDuration),
		forge.F("sweep_interval", e.config.SweepInterval),
		forge.F("grove_database", e.config.GroveDatabase),
		forge.F("use_grove", e.useGrove),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	// Try "extensions.hold" first (namespaced pattern).
	if cm.IsSet("extensions.hold") {
		if err := cm.Bind("extensions.hold", &cfg); err == nil {
			e.Logger().Debug("hold: loaded config from file",
				forge.F("key", "extensions.hold"),
			)
			return cfg, true
		}
		e.Logger().Warn("hold: failed to bind extensions.hold config",
			forge.F("error", "bind failed"),
		)
	}

	// Try legacy "hold" key.
	if cm.IsSet("hold") {
		if err := cm.Bind("hold", &cfg); err == nil {
			e.Logger().Debug("hold: loaded config from file",
				forge.F("key", "hold"),
			)
			return cfg, true
		}
		e.Logger().Warn("hold: failed to bind hold config",
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func (e *Extension) mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.HoldDuration == 0 {
		cfg.HoldDuration = defaults.HoldDuration
	}
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = defaults.SweepInterval
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic bool flags fill gaps.
func (e *Extension) mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}

	// String fields: YAML takes precedence.
	if yamlConfig.GroveDatabase == "" && programmaticConfig.GroveDatabase != "" {
		yamlConfig.GroveDatabase = programmaticConfig.GroveDatabase
	}

	// Duration fields: YAML takes precedence, programmatic fills gaps.
	if yamlConfig.HoldDuration == 0 && programmaticConfig.HoldDuration != 0 {
		yamlConfig.HoldDuration = programmaticConfig.HoldDuration
	}
	if yamlConfig.SweepInterval == 0 && programmaticConfig.SweepInterval != 0 {
		yamlConfig.SweepInterval = programmaticConfig.SweepInterval
	}

	// Fill remaining zeros with defaults.
	return e.mergeWithDefaults(yamlConfig)
}
