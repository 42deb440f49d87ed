package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"
)

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger

	// Type-cached plugin lists for efficient dispatch
	onInit           []OnInit
	onShutdown       []OnShutdown
	onClaimCreated   []OnClaimCreated
	onClaimConfirmed []OnClaimConfirmed
	onClaimReleased  []OnClaimReleased
	onStockRejected  []OnStockRejected
	onSweepCompleted []OnSweepCompleted
	onScheduleFailed []OnScheduleFailed
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger: slog.Default(),
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnClaimCreated); ok {
		r.onClaimCreated = append(r.onClaimCreated, v)
	}
	if v, ok := p.(OnClaimConfirmed); ok {
		r.onClaimConfirmed = append(r.onClaimConfirmed, v)
	}
	if v, ok := p.(OnClaimReleased); ok {
		r.onClaimReleased = append(r.onClaimReleased, v)
	}
	if v, ok := p.(OnStockRejected); ok {
		r.onStockRejected = append(r.onStockRejected, v)
	}
	if v, ok := p.(OnSweepCompleted); ok {
		r.onSweepCompleted = append(r.onSweepCompleted, v)
	}
	if v, ok := p.(OnScheduleFailed); ok {
		r.onScheduleFailed = append(r.onScheduleFailed, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", r.getImplementedInterfaces(p),
	)

	return nil
}

// getImplementedInterfaces returns a list of interfaces implemented by the plugin.
func (r *Registry) getImplementedInterfaces(p Plugin) []string {
	var interfaces []string
	v := reflect.TypeOf(p)

	// Check each interface
	checkInterface := func(iface reflect.Type, name string) {
		if v.Implements(iface) {
			interfaces = append(interfaces, name)
		}
	}

	// List all interfaces to check
	checkInterface(reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit")
	checkInterface(reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown")
	checkInterface(reflect.TypeOf((*OnClaimCreated)(nil)).Elem(), "OnClaimCreated")
	checkInterface(reflect.TypeOf((*OnClaimConfirmed)(nil)).Elem(), "OnClaimConfirmed")
	checkInterface(reflect.TypeOf((*OnClaimReleased)(nil)).Elem(), "OnClaimReleased")
	checkInterface(reflect.TypeOf((*OnStockRejected)(nil)).Elem(), "OnStockRejected")
	checkInterface(reflect.TypeOf((*OnSweepCompleted)(nil)).Elem(), "OnSweepCompleted")
	checkInterface(reflect.TypeOf((*OnScheduleFailed)(nil)).Elem(), "OnScheduleFailed")

	return interfaces
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInit(ctx, engine)
		}); err != nil {
			r.logger.Warn("plugin OnInit failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnShutdown(ctx)
		}); err != nil {
			r.logger.Warn("plugin OnShutdown failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitClaimCreated emits a claim created event.
func (r *Registry) EmitClaimCreated(ctx context.Context, c interface{}) {
	r.mu.RLock()
	plugins := r.onClaimCreated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnClaimCreated(ctx, c)
		}); err != nil {
			r.logger.Warn("plugin OnClaimCreated failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitClaimConfirmed emits a claim confirmed event.
func (r *Registry) EmitClaimConfirmed(ctx context.Context, c interface{}) {
	r.mu.RLock()
	plugins := r.onClaimConfirmed
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnClaimConfirmed(ctx, c)
		}); err != nil {
			r.logger.Warn("plugin OnClaimConfirmed failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitClaimReleased emits a claim released event.
func (r *Registry) EmitClaimReleased(ctx context.Context, c interface{}) {
	r.mu.RLock()
	plugins := r.onClaimReleased
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnClaimReleased(ctx, c)
		}); err != nil {
			r.logger.Warn("plugin OnClaimReleased failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitStockRejected emits a stock rejected event.
func (r *Registry) EmitStockRejected(ctx context.Context, resourceID string, qty int64) {
	r.mu.RLock()
	plugins := r.onStockRejected
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnStockRejected(ctx, resourceID, qty)
		}); err != nil {
			r.logger.Warn("plugin OnStockRejected failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitSweepCompleted emits a sweep completed event.
func (r *Registry) EmitSweepCompleted(ctx context.Context, resolved int, elapsed time.Duration) {
	r.mu.RLock()
	plugins := r.onSweepCompleted
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnSweepCompleted(ctx, resolved, elapsed)
		}); err != nil {
			r.logger.Warn("plugin OnSweepCompleted failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitScheduleFailed emits a schedule failed event.
func (r *Registry) EmitScheduleFailed(ctx context.Context, claimID string, cause error) {
	r.mu.RLock()
	plugins := r.onScheduleFailed
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnScheduleFailed(ctx, claimID, cause)
		}); err != nil {
			r.logger.Warn("plugin OnScheduleFailed failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the reservation pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
