package claim

import (
	"time"

	"github.com/xraph/hold/id"
	"github.com/xraph/hold/types"
)

// Status is the lifecycle state of a claim.
type Status string

const (
	// StatusPending marks a live hold that still counts against stock.
	StatusPending Status = "pending"
	// StatusConfirmed marks a resolved claim whose units were consumed.
	StatusConfirmed Status = "confirmed"
	// StatusReleased marks a resolved claim whose units were credited back.
	StatusReleased Status = "released"
)

// Terminal reports whether s is a final state. Confirmed and released
// claims never change again.
func (s Status) Terminal() bool {
	return s == StatusConfirmed || s == StatusReleased
}

// Claim is a time-bounded hold of a quantity of one resource.
//
// A claim is created pending, atomically with the matching stock decrement,
// and transitions exactly once to confirmed or released. Deadline is
// CreatedAt plus the engine's hold duration.
type Claim struct {
	types.Entity
	ID         id.ClaimID    `json:"id"`
	ResourceID id.ResourceID `json:"resource_id"`
	Quantity   int64         `json:"quantity"`
	Status     Status        `json:"status"`
	Deadline   time.Time     `json:"deadline"`
	ResolvedAt *time.Time    `json:"resolved_at,omitempty"`
}

// Expired reports whether the claim's deadline has passed at the given
// instant. Only meaningful for pending claims.
func (c *Claim) Expired(now time.Time) bool {
	return !c.Deadline.After(now)
}

// ListOpts filters claim listings.
type ListOpts struct {
	ResourceID id.ResourceID
	Status     Status
	Limit      int
	Offset     int
}

// Stats aggregates claim counts by status.
type Stats struct {
	Pending   int64 `json:"pending"`
	Confirmed int64 `json:"confirmed"`
	Released  int64 `json:"released"`
}

// Total returns the total number of claims across all statuses.
func (s Stats) Total() int64 {
	return s.Pending + s.Confirmed + s.Released
}
