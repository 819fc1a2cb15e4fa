package reconcile

import (
	"time"

	"bitbucket.org/showbooker/booking_backend/models"
)

// redundancyWindow is how long a recent report suppresses a scheduled re-run
// for the same event.
const redundancyWindow = time.Hour

// ShouldSkipRecent implements the redundancy guard. Only scheduled runs are
// guarded; manual runs always proceed. A completed or still-running report
// started inside the window triggers the skip. Failed reports never block,
// so a retry can run immediately.
func ShouldSkipRecent(mode string, lastReport *models.ReconciliationReport, now time.Time) bool {
	if mode != models.TriggerModeScheduled {
		return false
	}
	if lastReport == nil {
		return false
	}
	if lastReport.Status == models.ReportStatusFailed {
		return false
	}
	return now.Sub(lastReport.StartTime) < redundancyWindow
}
