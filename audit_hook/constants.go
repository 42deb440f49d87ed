package audithook

// Action constants for audit events.
const (
	// Claim actions
	ActionClaimCreated   = "claim.created"
	ActionClaimConfirmed = "claim.confirmed"
	ActionClaimReleased  = "claim.released"

	// Stock actions
	ActionStockRejected = "stock.rejected"

	// Scheduler actions
	ActionScheduleFailed = "schedule.failed"
)

// Resource constants for audit events.
const (
	ResourceClaim = "claim"
	ResourceStock = "stock"
)

// Category constants for audit events.
const (
	CategoryReservation = "reservation"
	CategoryInventory   = "inventory"
	CategoryScheduling  = "scheduling"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)
