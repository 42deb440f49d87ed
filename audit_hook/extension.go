// Package audithook bridges Hold lifecycle events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not depend on
// any particular audit system. Callers inject a RecorderFunc adapter that
// bridges to their backend at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/hold/claim"
	"github.com/xraph/hold/plugin"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin           = (*Extension)(nil)
	_ plugin.OnClaimCreated   = (*Extension)(nil)
	_ plugin.OnClaimConfirmed = (*Extension)(nil)
	_ plugin.OnClaimReleased  = (*Extension)(nil)
	_ plugin.OnStockRejected  = (*Extension)(nil)
	_ plugin.OnScheduleFailed = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
// It is defined locally so that the audit_hook package does not import any
// audit system directly — callers inject the concrete backend at wiring time.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges Hold lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Claim lifecycle hooks
// ──────────────────────────────────────────────────

// OnClaimCreated implements plugin.OnClaimCreated.
func (e *Extension) OnClaimCreated(ctx context.Context, c interface{}) error {
	id, resID, qty := claimDetails(c)
	return e.record(ctx, ActionClaimCreated, SeverityInfo, OutcomeSuccess,
		ResourceClaim, id, CategoryReservation, nil,
		"event", "claim_created",
		"resource_id", resID,
		"quantity", qty,
	)
}

// OnClaimConfirmed implements plugin.OnClaimConfirmed.
func (e *Extension) OnClaimConfirmed(ctx context.Context, c interface{}) error {
	id, resID, qty := claimDetails(c)
	return e.record(ctx, ActionClaimConfirmed, SeverityInfo, OutcomeSuccess,
		ResourceClaim, id, CategoryReservation, nil,
		"event", "claim_confirmed",
		"resource_id", resID,
		"quantity", qty,
	)
}

// OnClaimReleased implements plugin.OnClaimReleased.
func (e *Extension) OnClaimReleased(ctx context.Context, c interface{}) error {
	id, resID, qty := claimDetails(c)
	return e.record(ctx, ActionClaimReleased, SeverityInfo, OutcomeSuccess,
		ResourceClaim, id, CategoryReservation, nil,
		"event", "claim_released",
		"resource_id", resID,
		"quantity", qty,
	)
}

// ──────────────────────────────────────────────────
// Stock hooks
// ──────────────────────────────────────────────────

// OnStockRejected implements plugin.OnStockRejected.
func (e *Extension) OnStockRejected(ctx context.Context, resourceID string, qty int64) error {
	return e.record(ctx, ActionStockRejected, SeverityWarning, OutcomeFailure,
		ResourceStock, resourceID, CategoryInventory, nil,
		"event", "stock_rejected",
		"quantity", qty,
	)
}

// ──────────────────────────────────────────────────
// Scheduler hooks
// ──────────────────────────────────────────────────

// OnScheduleFailed implements plugin.OnScheduleFailed.
func (e *Extension) OnScheduleFailed(ctx context.Context, claimID string, err error) error {
	return e.record(ctx, ActionScheduleFailed, SeverityWarning, OutcomeFailure,
		ResourceClaim, claimID, CategoryScheduling, err,
		"event", "schedule_failed",
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// claimDetails pulls identifying fields out of a claim hook payload.
func claimDetails(v interface{}) (claimID, resourceID string, qty int64) {
	c, ok := v.(*claim.Claim)
	if !ok {
		return "", "", 0
	}
	return c.ID.String(), c.ResourceID.String(), c.Quantity
}

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
