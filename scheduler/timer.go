package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/xraph/hold/id"
)

// TimerScheduler delivers expiry triggers from in-process timers. Pending
// triggers do not survive a restart; the sweep picks up anything lost.
type TimerScheduler struct {
	mu      sync.Mutex
	resolve ResolveFunc
	timers  map[string]*time.Timer
	stopped bool

	logger      *slog.Logger
	maxAttempts uint
}

// TimerOption configures a TimerScheduler.
type TimerOption func(*TimerScheduler)

// WithTimerLogger sets the logger.
func WithTimerLogger(logger *slog.Logger) TimerOption {
	return func(t *TimerScheduler) { t.logger = logger }
}

// WithTimerMaxAttempts sets how many times a fired trigger retries its
// resolve call before giving up.
func WithTimerMaxAttempts(n uint) TimerOption {
	return func(t *TimerScheduler) { t.maxAttempts = n }
}

// NewTimer creates an in-process timer scheduler.
func NewTimer(opts ...TimerOption) *TimerScheduler {
	t := &TimerScheduler{
		timers:      make(map[string]*time.Timer),
		logger:      slog.Default(),
		maxAttempts: 3,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start binds the resolve callback.
func (t *TimerScheduler) Start(_ context.Context, resolve ResolveFunc) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped {
		return ErrStopped
	}
	t.resolve = resolve
	return nil
}

// ScheduleExpiry arms a one-shot timer for the claim.
func (t *TimerScheduler) ScheduleExpiry(_ context.Context, claimID id.ClaimID, delay time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped {
		return ErrStopped
	}
	if delay < 0 {
		delay = 0
	}

	key := claimID.String()
	if existing, ok := t.timers[key]; ok {
		existing.Stop()
	}
	t.timers[key] = time.AfterFunc(delay, func() {
		t.fire(claimID)
	})

	return nil
}

// fire runs in the timer's own goroutine. The resolve call is retried with
// exponential backoff; a claim that still cannot be resolved is left to the
// sweep.
func (t *TimerScheduler) fire(claimID id.ClaimID) {
	t.mu.Lock()
	delete(t.timers, claimID.String())
	resolve := t.resolve
	stopped := t.stopped
	t.mu.Unlock()

	if stopped || resolve == nil {
		return
	}

	ctx := context.Background()
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, resolve(ctx, claimID)
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(t.maxAttempts),
	)
	if err != nil {
		t.logger.Warn("expiry trigger exhausted retries, sweep will resolve the claim",
			"claim_id", claimID.String(),
			"attempts", t.maxAttempts,
			"error", err,
		)
	}
}

// Stop cancels all armed timers.
func (t *TimerScheduler) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped {
		return nil
	}
	t.stopped = true

	for key, timer := range t.timers {
		timer.Stop()
		delete(t.timers, key)
	}
	return nil
}

// Pending returns the number of armed timers.
func (t *TimerScheduler) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.timers)
}

var _ Scheduler = (*TimerScheduler)(nil)
