package resource

import (
	"context"

	"github.com/xraph/hold/id"
)

// Store is the stock-ledger side of the storage layer.
//
// TryClaim and Release are the only mutators of AvailableQuantity. TryClaim
// must serialize the check-then-decrement per resource: two concurrent calls
// against the same resource observe a strictly ordered view of the available
// count. Claims against different resources must not block each other.
type Store interface {
	Create(ctx context.Context, r *Resource) error
	Get(ctx context.Context, resourceID id.ResourceID) (*Resource, error)
	List(ctx context.Context, opts ListOpts) ([]*Resource, error)

	// TryClaim atomically decrements the available quantity by qty.
	// Returns hold.ErrResourceNotFound if the resource does not exist and
	// hold.ErrInsufficientStock (without mutating) if fewer than qty units
	// are available.
	TryClaim(ctx context.Context, resourceID id.ResourceID, qty int64) error

	// Release atomically credits qty units back to the available quantity.
	// Single-fire per claim is enforced by the claim store's conditioned
	// transition, not here.
	Release(ctx context.Context, resourceID id.ResourceID, qty int64) error
}
