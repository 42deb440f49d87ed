// Package scheduler provides one-shot expiry triggers for pending claims.
//
// A scheduler is an optimization, not a correctness mechanism: the engine's
// reconciliation sweep resolves every overdue claim whether or not its
// trigger ever fires, and the conditioned status transition makes duplicate
// deliveries harmless. Implementations are therefore free to drop tasks on
// restart (TimerScheduler) or deliver them late.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/xraph/hold/id"
)

// Sentinel errors shared by scheduler implementations.
var (
	// ErrStopped reports scheduling against a scheduler that has shut down.
	ErrStopped = errors.New("scheduler: stopped")

	// ErrRejected reports that the backing queue refused the expiry task
	// after retries were exhausted.
	ErrRejected = errors.New("scheduler: expiry task rejected by backing queue")
)

// ResolveFunc is invoked when a claim's expiry trigger fires. It must be
// idempotent; schedulers may deliver a trigger more than once.
type ResolveFunc func(ctx context.Context, claimID id.ClaimID) error

// Scheduler arranges delayed expiry triggers for claims.
type Scheduler interface {
	// Start begins delivery. resolve is called once per due trigger.
	Start(ctx context.Context, resolve ResolveFunc) error

	// ScheduleExpiry enqueues a one-shot trigger that fires after delay.
	ScheduleExpiry(ctx context.Context, claimID id.ClaimID, delay time.Duration) error

	// Stop shuts the scheduler down. Undelivered triggers may be lost.
	Stop() error
}
