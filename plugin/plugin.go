// Package plugin provides an extensible plugin system for Hold.
// Plugins can hook into various lifecycle events to extend functionality.
package plugin

import (
	"context"
	"time"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the plugin is initialized.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine interface{}) error
}

// OnShutdown is called when the plugin is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Claim lifecycle hooks
// ──────────────────────────────────────────────────

// OnClaimCreated is called when a reservation produces a new pending claim.
type OnClaimCreated interface {
	Plugin
	OnClaimCreated(ctx context.Context, c interface{}) error
}

// OnClaimConfirmed is called when a pending claim is confirmed.
type OnClaimConfirmed interface {
	Plugin
	OnClaimConfirmed(ctx context.Context, c interface{}) error
}

// OnClaimReleased is called when a claim is released and its quantity
// credited back to stock.
type OnClaimReleased interface {
	Plugin
	OnClaimReleased(ctx context.Context, c interface{}) error
}

// ──────────────────────────────────────────────────
// Stock hooks
// ──────────────────────────────────────────────────

// OnStockRejected is called when a reservation is refused for lack of
// available quantity.
type OnStockRejected interface {
	Plugin
	OnStockRejected(ctx context.Context, resourceID string, qty int64) error
}

// ──────────────────────────────────────────────────
// Background worker hooks
// ──────────────────────────────────────────────────

// OnSweepCompleted is called after each reconciliation pass that resolved
// at least one claim.
type OnSweepCompleted interface {
	Plugin
	OnSweepCompleted(ctx context.Context, resolved int, elapsed time.Duration) error
}

// OnScheduleFailed is called when a claim's expiry trigger could not be
// enqueued and the sweeper becomes its only resolver.
type OnScheduleFailed interface {
	Plugin
	OnScheduleFailed(ctx context.Context, claimID string, err error) error
}
