package reconcile

import (
	"testing"
	"time"

	"bitbucket.org/showbooker/booking_backend/models"
)

func reportStartedAgo(status string, ago time.Duration, now time.Time) *models.ReconciliationReport {
	return &models.ReconciliationReport{
		ID:        "r1",
		EventID:   "evt-1",
		Status:    status,
		StartTime: now.Add(-ago),
	}
}

func TestShouldSkipRecent(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name   string
		mode   string
		report *models.ReconciliationReport
		want   bool
	}{
		{"manual run never skips", models.TriggerModeManual, reportStartedAgo(models.ReportStatusCompleted, 5*time.Minute, now), false},
		{"no previous report", models.TriggerModeScheduled, nil, false},
		{"completed 5 minutes ago blocks scheduled", models.TriggerModeScheduled, reportStartedAgo(models.ReportStatusCompleted, 5*time.Minute, now), true},
		{"still running blocks scheduled", models.TriggerModeScheduled, reportStartedAgo(models.ReportStatusRunning, 5*time.Minute, now), true},
		{"failed report allows immediate retry", models.TriggerModeScheduled, reportStartedAgo(models.ReportStatusFailed, 5*time.Minute, now), false},
		{"completed 59 minutes ago still blocks", models.TriggerModeScheduled, reportStartedAgo(models.ReportStatusCompleted, 59*time.Minute, now), true},
		{"completed exactly an hour ago does not block", models.TriggerModeScheduled, reportStartedAgo(models.ReportStatusCompleted, time.Hour, now), false},
		{"completed yesterday does not block", models.TriggerModeScheduled, reportStartedAgo(models.ReportStatusCompleted, 24*time.Hour, now), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ShouldSkipRecent(tc.mode, tc.report, now); got != tc.want {
				t.Fatalf("ShouldSkipRecent(%s, ...) = %v, want %v", tc.mode, got, tc.want)
			}
		})
	}
}
