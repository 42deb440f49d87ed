package claim

import (
	"context"
	"time"

	"github.com/xraph/hold/id"
)

// Store is the claim-record side of the storage layer.
//
// Transition is the single concurrency-safety mechanism for claim
// resolution: it applies only when the current status matches from, so of
// all racing resolvers (confirm call, expiry trigger, sweeper) exactly one
// observes the applied transition and the rest get hold.ErrAlreadyResolved.
type Store interface {
	Create(ctx context.Context, c *Claim) error
	Get(ctx context.Context, claimID id.ClaimID) (*Claim, error)
	List(ctx context.Context, opts ListOpts) ([]*Claim, error)
	Count(ctx context.Context) (Stats, error)

	// Transition conditionally moves the claim from one status to another
	// and stamps ResolvedAt. It returns the updated claim when the update
	// applied, hold.ErrAlreadyResolved when the claim is no longer in the
	// from status, and hold.ErrClaimNotFound when it does not exist.
	Transition(ctx context.Context, claimID id.ClaimID, from, to Status, resolvedAt time.Time) (*Claim, error)

	// FindExpiredPending returns pending claims whose deadline is at or
	// before now. The read tolerates racing resolvers: a claim resolved
	// after the scan simply no-ops on Transition.
	FindExpiredPending(ctx context.Context, now time.Time) ([]*Claim, error)
}
