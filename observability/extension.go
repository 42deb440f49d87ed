// Package observability provides a metrics extension for Hold that records
// lifecycle event counts via a MetricFactory.
package observability

import (
	"context"
	"time"

	"github.com/xraph/hold/plugin"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin           = (*MetricsExtension)(nil)
	_ plugin.OnInit           = (*MetricsExtension)(nil)
	_ plugin.OnClaimCreated   = (*MetricsExtension)(nil)
	_ plugin.OnClaimConfirmed = (*MetricsExtension)(nil)
	_ plugin.OnClaimReleased  = (*MetricsExtension)(nil)
	_ plugin.OnStockRejected  = (*MetricsExtension)(nil)
	_ plugin.OnSweepCompleted = (*MetricsExtension)(nil)
	_ plugin.OnScheduleFailed = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as a Hold plugin to automatically track reservation metrics.
type MetricsExtension struct {
	factory MetricFactory

	// Claim metrics
	ClaimsCreated   Counter
	ClaimsConfirmed Counter
	ClaimsReleased  Counter

	// Stock metrics
	StockRejections   Counter
	QuantityRequested Histogram

	// Sweep metrics
	SweepsCompleted Counter
	SweepResolved   Counter
	SweepLatency    Histogram

	// Scheduler metrics
	ScheduleFailures Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Claim metrics
		ClaimsCreated:   factory.Counter("hold.claim.created"),
		ClaimsConfirmed: factory.Counter("hold.claim.confirmed"),
		ClaimsReleased:  factory.Counter("hold.claim.released"),

		// Stock metrics
		StockRejections:   factory.Counter("hold.stock.rejected"),
		QuantityRequested: factory.Histogram("hold.stock.rejected.quantity"),

		// Sweep metrics
		SweepsCompleted: factory.Counter("hold.sweep.completed"),
		SweepResolved:   factory.Counter("hold.sweep.resolved"),
		SweepLatency:    factory.Histogram("hold.sweep.latency_ms"),

		// Scheduler metrics
		ScheduleFailures: factory.Counter("hold.schedule.failures"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	// No initialization needed
	return nil
}

// ──────────────────────────────────────────────────
// Claim lifecycle hooks
// ──────────────────────────────────────────────────

// OnClaimCreated implements plugin.OnClaimCreated.
func (m *MetricsExtension) OnClaimCreated(_ context.Context, _ interface{}) error {
	m.ClaimsCreated.Inc()
	return nil
}

// OnClaimConfirmed implements plugin.OnClaimConfirmed.
func (m *MetricsExtension) OnClaimConfirmed(_ context.Context, _ interface{}) error {
	m.ClaimsConfirmed.Inc()
	return nil
}

// OnClaimReleased implements plugin.OnClaimReleased.
func (m *MetricsExtension) OnClaimReleased(_ context.Context, _ interface{}) error {
	m.ClaimsReleased.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Stock hooks
// ──────────────────────────────────────────────────

// OnStockRejected implements plugin.OnStockRejected.
func (m *MetricsExtension) OnStockRejected(_ context.Context, _ string, qty int64) error {
	m.StockRejections.Inc()
	m.QuantityRequested.Observe(float64(qty))
	return nil
}

// ──────────────────────────────────────────────────
// Background worker hooks
// ──────────────────────────────────────────────────

// OnSweepCompleted implements plugin.OnSweepCompleted.
func (m *MetricsExtension) OnSweepCompleted(_ context.Context, resolved int, elapsed time.Duration) error {
	m.SweepsCompleted.Inc()
	m.SweepResolved.Add(float64(resolved))
	m.SweepLatency.Observe(float64(elapsed.Milliseconds()))
	return nil
}

// OnScheduleFailed implements plugin.OnScheduleFailed.
func (m *MetricsExtension) OnScheduleFailed(_ context.Context, _ string, _ error) error {
	m.ScheduleFailures.Inc()
	return nil
}
