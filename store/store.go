package store

import (
	"context"
	"time"

	"github.com/xraph/hold/claim"
	"github.com/xraph/hold/id"
	"github.com/xraph/hold/resource"
)

// Store is the unified storage interface for all Hold entities.
// Instead of embedding the sub-interfaces, we explicitly declare all methods
// to avoid naming conflicts.
type Store interface {
	// Resource methods. TryClaimStock and ReleaseStock are the only
	// mutators of a resource's available quantity and must be atomic with
	// respect to each other for the same resource.
	CreateResource(ctx context.Context, r *resource.Resource) error
	GetResource(ctx context.Context, resourceID id.ResourceID) (*resource.Resource, error)
	ListResources(ctx context.Context, opts resource.ListOpts) ([]*resource.Resource, error)
	TryClaimStock(ctx context.Context, resourceID id.ResourceID, qty int64) error
	ReleaseStock(ctx context.Context, resourceID id.ResourceID, qty int64) error

	// Claim methods. TransitionClaim is the conditioned single-fire update
	// that resolves the scheduler/sweeper race.
	CreateClaim(ctx context.Context, c *claim.Claim) error
	GetClaim(ctx context.Context, claimID id.ClaimID) (*claim.Claim, error)
	ListClaims(ctx context.Context, opts claim.ListOpts) ([]*claim.Claim, error)
	CountClaims(ctx context.Context) (claim.Stats, error)
	TransitionClaim(ctx context.Context, claimID id.ClaimID, from, to claim.Status, resolvedAt time.Time) (*claim.Claim, error)
	FindExpiredPending(ctx context.Context, now time.Time) ([]*claim.Claim, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
