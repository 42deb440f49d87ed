package hold

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/hold/claim"
	"github.com/xraph/hold/id"
	"github.com/xraph/hold/plugin"
	"github.com/xraph/hold/resource"
	"github.com/xraph/hold/scheduler"
	"github.com/xraph/hold/store"
	"github.com/xraph/hold/types"
)

// Default engine configuration.
const (
	// DefaultHoldDuration is how long a claim stays pending before it is
	// automatically released back to stock.
	DefaultHoldDuration = 120 * time.Second

	// DefaultSweepInterval is the period of the reconciliation sweep.
	DefaultSweepInterval = 10 * time.Second
)

// Engine is the reservation engine. It owns the claim lifecycle: the
// atomic stock-decrement-plus-claim-insert on Reserve, the conditioned
// confirm/release transitions, the one-shot expiry scheduling, and the
// periodic reconciliation sweep that guarantees every pending claim is
// eventually resolved exactly once.
type Engine struct {
	store     store.Store
	scheduler scheduler.Scheduler
	plugins   *plugin.Registry
	logger    *slog.Logger
	clock     Clock

	// Background sweeper
	stopChan chan struct{}
	wg       sync.WaitGroup

	// Configuration
	holdDuration  time.Duration
	sweepInterval time.Duration
	migrate       bool
}

// New creates a new Engine instance.
func New(s store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:         s,
		scheduler:     scheduler.NewTimer(),
		plugins:       plugin.NewRegistry(),
		logger:        slog.Default(),
		clock:         SystemClock(),
		stopChan:      make(chan struct{}),
		holdDuration:  DefaultHoldDuration,
		sweepInterval: DefaultSweepInterval,
		migrate:       true,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Option configures an Engine instance.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) {
		_ = e.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithScheduler replaces the default in-memory timer scheduler. Pass nil to
// disable expiry scheduling entirely and rely on the sweeper alone.
func WithScheduler(s scheduler.Scheduler) Option {
	return func(e *Engine) {
		e.scheduler = s
	}
}

// WithClock sets the time source used for deadlines and expiry checks.
func WithClock(c Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithHoldDuration sets the system-wide hold window for new claims.
func WithHoldDuration(d time.Duration) Option {
	return func(e *Engine) {
		e.holdDuration = d
	}
}

// WithSweepInterval sets the reconciliation sweep period.
func WithSweepInterval(d time.Duration) Option {
	return func(e *Engine) {
		e.sweepInterval = d
	}
}

// WithoutMigrate skips store migration on Start. Use when migrations run
// out of band.
func WithoutMigrate() Option {
	return func(e *Engine) {
		e.migrate = false
	}
}

// Start migrates the store and begins the background workers.
func (e *Engine) Start(ctx context.Context) error {
	if e.migrate {
		if err := e.store.Migrate(ctx); err != nil {
			return err
		}
	}

	e.plugins.EmitInit(ctx, e)

	// Scheduler start is advisory: if the backing queue is unavailable the
	// sweeper still resolves every expired claim.
	if e.scheduler != nil {
		if err := e.scheduler.Start(ctx, e.resolveExpiry); err != nil {
			e.logger.Warn("expiry scheduler failed to start, sweeper is the only resolver",
				"error", err,
			)
		}
	}

	e.wg.Add(1)
	go e.sweepWorker(ctx)

	e.logger.Info("hold engine started",
		"hold_duration", e.holdDuration,
		"sweep_interval", e.sweepInterval,
	)

	return nil
}

// Stop shuts down the Engine.
func (e *Engine) Stop() error {
	close(e.stopChan)
	e.wg.Wait()

	if e.scheduler != nil {
		if err := e.scheduler.Stop(); err != nil {
			e.logger.Warn("scheduler stop failed", "error", err)
		}
	}

	ctx := context.Background()
	e.plugins.EmitShutdown(ctx)

	return e.store.Close()
}

// ──────────────────────────────────────────────────
// Reservation
// ──────────────────────────────────────────────────

// Reserve claims qty units of a resource for the hold duration. The stock
// decrement and the pending claim record are committed together; on any
// failure neither persists. After the claim exists, expiry scheduling is
// best-effort and never fails the call.
func (e *Engine) Reserve(ctx context.Context, resourceID id.ResourceID, qty int64) (*claim.Claim, error) {
	if qty < 1 {
		return nil, ErrInvalidQuantity
	}

	if err := e.store.TryClaimStock(ctx, resourceID, qty); err != nil {
		if errors.Is(err, ErrInsufficientStock) {
			e.plugins.EmitStockRejected(ctx, resourceID.String(), qty)
		}
		return nil, err
	}

	now := e.clock.Now()
	c := &claim.Claim{
		Entity:     types.NewEntityAt(now),
		ID:         id.NewClaimID(),
		ResourceID: resourceID,
		Quantity:   qty,
		Status:     claim.StatusPending,
		Deadline:   now.Add(e.holdDuration),
	}

	if err := e.store.CreateClaim(ctx, c); err != nil {
		// Compensate the decrement so no stock stays withheld without a
		// claim record.
		if rbErr := e.store.ReleaseStock(ctx, resourceID, qty); rbErr != nil {
			e.logger.Error("failed to return stock after claim insert failure",
				"resource_id", resourceID.String(),
				"quantity", qty,
				"error", rbErr,
			)
		}
		return nil, err
	}

	e.plugins.EmitClaimCreated(ctx, c)
	e.scheduleExpiry(ctx, c)

	e.logger.Debug("claim created",
		"claim_id", c.ID.String(),
		"resource_id", resourceID.String(),
		"quantity", qty,
		"deadline", c.Deadline,
	)

	return c, nil
}

// scheduleExpiry arranges the one-shot expiry trigger for a fresh claim.
// Failures are logged and reported to plugins, never to the caller; the
// sweeper converges on the same effect.
func (e *Engine) scheduleExpiry(ctx context.Context, c *claim.Claim) {
	if e.scheduler == nil {
		return
	}

	delay := c.Deadline.Sub(e.clock.Now())
	if err := e.scheduler.ScheduleExpiry(ctx, c.ID, delay); err != nil {
		e.logger.Warn("expiry scheduling failed, sweeper will resolve the claim",
			"claim_id", c.ID.String(),
			"error", err,
		)
		e.plugins.EmitScheduleFailed(ctx, c.ID.String(), err)
	}
}

// Confirm resolves a pending claim as consumed. Confirming an overdue claim
// runs the normal expiry resolution (single stock credit) and reports
// ErrClaimExpired; confirming an already-resolved claim reports
// ErrAlreadyResolved.
func (e *Engine) Confirm(ctx context.Context, claimID id.ClaimID) (*claim.Claim, error) {
	c, err := e.store.GetClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if c.Status.Terminal() {
		return nil, ErrAlreadyResolved
	}

	now := e.clock.Now()
	if c.Expired(now) {
		// This confirm call discovered the expiry before any background
		// trigger did. Resolve through the same conditioned path; a racing
		// resolver makes this a no-op.
		if err := e.resolveExpiry(ctx, claimID); err != nil {
			e.logger.Warn("expiry resolution during confirm failed",
				"claim_id", claimID.String(),
				"error", err,
			)
		}
		return nil, ErrClaimExpired
	}

	updated, err := e.store.TransitionClaim(ctx, claimID, claim.StatusPending, claim.StatusConfirmed, now)
	if err != nil {
		return nil, err
	}

	e.plugins.EmitClaimConfirmed(ctx, updated)

	e.logger.Debug("claim confirmed",
		"claim_id", claimID.String(),
		"resource_id", updated.ResourceID.String(),
	)

	return updated, nil
}

// ResolveExpiry releases an overdue claim and credits its quantity back to
// stock. It is idempotent: of all concurrent invocations for one claim,
// exactly one applies the transition and the credit, the rest no-op. Hosts
// running their own delay queue can call this directly; the built-in
// scheduler and sweeper use the same path.
func (e *Engine) ResolveExpiry(ctx context.Context, claimID id.ClaimID) error {
	return e.resolveExpiry(ctx, claimID)
}

func (e *Engine) resolveExpiry(ctx context.Context, claimID id.ClaimID) error {
	updated, err := e.store.TransitionClaim(ctx, claimID, claim.StatusPending, claim.StatusReleased, e.clock.Now())
	if errors.Is(err, ErrAlreadyResolved) {
		// Another resolver won the conditioned update. Nothing to credit.
		return nil
	}
	if err != nil {
		return err
	}

	if err := e.store.ReleaseStock(ctx, updated.ResourceID, updated.Quantity); err != nil {
		e.logger.Error("stock credit failed for released claim",
			"claim_id", claimID.String(),
			"resource_id", updated.ResourceID.String(),
			"quantity", updated.Quantity,
			"error", err,
		)
		return err
	}

	e.plugins.EmitClaimReleased(ctx, updated)

	e.logger.Debug("claim released",
		"claim_id", claimID.String(),
		"resource_id", updated.ResourceID.String(),
		"quantity", updated.Quantity,
	)

	return nil
}

// ──────────────────────────────────────────────────
// Reconciliation sweep
// ──────────────────────────────────────────────────

// sweepWorker resolves overdue claims on a fixed period. It is the
// correctness backstop: it converges on the same effect as the scheduler
// whether or not any one-shot trigger ever fires.
func (e *Engine) sweepWorker(ctx context.Context) {
	defer e.wg.Done()

	ticker := time.NewTicker(e.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopChan:
			return
		case <-ticker.C:
			e.sweepOnce(ctx)
		}
	}
}

// SweepNow runs a single reconciliation pass immediately, outside the
// periodic cadence.
func (e *Engine) SweepNow(ctx context.Context) {
	e.sweepOnce(ctx)
}

func (e *Engine) sweepOnce(ctx context.Context) {
	start := time.Now()

	expired, err := e.store.FindExpiredPending(ctx, e.clock.Now())
	if err != nil {
		e.logger.Error("sweep query failed", "error", err)
		return
	}
	if len(expired) == 0 {
		return
	}

	resolved := 0
	for _, c := range expired {
		// One bad record must not halt the batch.
		if err := e.resolveExpiry(ctx, c.ID); err != nil {
			e.logger.Warn("sweep could not resolve claim",
				"claim_id", c.ID.String(),
				"error", err,
			)
			continue
		}
		resolved++
	}

	elapsed := time.Since(start)
	e.plugins.EmitSweepCompleted(ctx, resolved, elapsed)

	e.logger.Debug("sweep completed",
		"overdue", len(expired),
		"resolved", resolved,
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

// ──────────────────────────────────────────────────
// Resources
// ──────────────────────────────────────────────────

// CreateResource seeds a stock record. The reservation path never creates
// resources; this exists for provisioning and tests.
func (e *Engine) CreateResource(ctx context.Context, r *resource.Resource) error {
	if r.TotalQuantity < 0 || r.AvailableQuantity < 0 || r.AvailableQuantity > r.TotalQuantity {
		return ValidationError{Field: "available_quantity", Message: "must satisfy 0 <= available <= total"}
	}
	if r.ID.IsNil() {
		r.ID = id.NewResourceID()
	}
	r.Entity = types.NewEntityAt(e.clock.Now())

	return e.store.CreateResource(ctx, r)
}

// GetResource retrieves a resource by ID.
func (e *Engine) GetResource(ctx context.Context, resourceID id.ResourceID) (*resource.Resource, error) {
	return e.store.GetResource(ctx, resourceID)
}

// ListResources lists stock records.
func (e *Engine) ListResources(ctx context.Context, opts resource.ListOpts) ([]*resource.Resource, error) {
	return e.store.ListResources(ctx, opts)
}

// ──────────────────────────────────────────────────
// Read projections
// ──────────────────────────────────────────────────

// GetClaim retrieves a claim by ID.
func (e *Engine) GetClaim(ctx context.Context, claimID id.ClaimID) (*claim.Claim, error) {
	return e.store.GetClaim(ctx, claimID)
}

// ListClaims lists claims matching the given filters.
func (e *Engine) ListClaims(ctx context.Context, opts claim.ListOpts) ([]*claim.Claim, error) {
	return e.store.ListClaims(ctx, opts)
}

// Stats returns claim counts by status.
func (e *Engine) Stats(ctx context.Context) (claim.Stats, error) {
	return e.store.CountClaims(ctx)
}
