package reconcile

import (
	"strings"

	"bitbucket.org/showbooker/booking_backend/models"
)

// RunRequest is the single RPC-style entry point payload. All fields are
// optional; mode defaults to manual. Async queues the run on the
// reconciliation topic instead of executing it in-request.
type RunRequest struct {
	EventID  string `json:"eventId"`
	Platform string `json:"platform"`
	Mode     string `json:"mode"`
	Async    bool   `json:"async"`
}

func (r *RunRequest) Normalize() {
	r.EventID = strings.TrimSpace(r.EventID)
	r.Platform = strings.ToLower(strings.TrimSpace(r.Platform))
	mode := strings.ToLower(strings.TrimSpace(r.Mode))
	if mode != models.TriggerModeScheduled {
		mode = models.TriggerModeManual
	}
	r.Mode = mode
}

// JobResult is the per-(event, platform) outcome reported back to the caller.
type JobResult struct {
	EventID       string `json:"eventId"`
	Platform      string `json:"platform,omitempty"`
	Status        string `json:"status"`
	Discrepancies *int   `json:"discrepancies,omitempty"`
	SyncHealth    string `json:"syncHealth,omitempty"`
	Reason        string `json:"reason,omitempty"`
	Error         string `json:"error,omitempty"`
}

type RunResponse struct {
	Success         bool        `json:"success"`
	Mode            string      `json:"mode,omitempty"`
	ProcessedEvents int         `json:"processedEvents"`
	Results         []JobResult `json:"results,omitempty"`
	Error           string      `json:"error,omitempty"`
}

// Job outcome statuses. completed/failed mirror the report's terminal state;
// skipped jobs never open a report; error marks jobs that could not even
// reach the report-open step.
const (
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
	JobStatusSkipped   = "skipped"
	JobStatusError     = "error"
)

const (
	SkipReasonRecentlyReconciled    = "Recently reconciled"
	SkipReasonNoPlatforms           = "No ticket platforms configured"
	SkipReasonPlatformNotConfigured = "Platform not configured for event"
)

// Finding is one detected disagreement, before persistence.
type Finding struct {
	Type          string
	Severity      string
	Field         string
	LocalValue    string
	PlatformValue string
	LocalData     []byte
	PlatformData  []byte
}

// Comparison fields a Finding can point at.
const (
	FieldTicketCount  = "ticket_count"
	FieldTotalRevenue = "total_revenue"
)
