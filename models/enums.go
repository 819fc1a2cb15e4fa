package models

// Ticketing platforms this backend reconciles against.
const (
	PlatformHumanitix  = "humanitix"
	PlatformEventbrite = "eventbrite"
)

// ReconciliationReport lifecycle. A report is opened as Running and receives
// exactly one terminal update; EndTime is set iff the status is terminal.
const (
	ReportStatusRunning   = "running"
	ReportStatusCompleted = "completed"
	ReportStatusFailed    = "failed"
)

// Sync health verdict for one (event, platform) reconciliation.
const (
	SyncHealthHealthy  = "healthy"
	SyncHealthWarning  = "warning"
	SyncHealthCritical = "critical"
)

const (
	DiscrepancyTypeDataInconsistency = "data_inconsistency"
	DiscrepancyTypeAmountMismatch    = "amount_mismatch"
)

const (
	DiscrepancySeverityLow    = "low"
	DiscrepancySeverityMedium = "medium"
	DiscrepancySeverityHigh   = "high"
)

// How a reconciliation run was triggered.
const (
	TriggerModeManual    = "manual"
	TriggerModeScheduled = "scheduled"
)

// Locally recorded sale states. Only confirmed sales count toward the
// local snapshot.
const (
	TicketSaleStatusConfirmed = "confirmed"
	TicketSaleStatusRefunded  = "refunded"
	TicketSaleStatusPending   = "pending"
)
