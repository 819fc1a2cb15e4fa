package reconcile

import (
	"bitbucket.org/showbooker/booking_backend/models"
	"github.com/shopspring/decimal"
)

var (
	healthCriticalRevenue = decimal.NewFromInt(100)
	healthWarningRevenue  = decimal.NewFromInt(50)
)

// ComputeSyncHealth turns a job's discrepancy count and revenue difference
// into the three-level verdict. The discrepancy rate is relative to local
// tickets sold, floored at 1 so an event with zero local sales still gets a
// meaningful rate.
func ComputeSyncHealth(discrepanciesFound int, localTicketsSold int, revenueDiff decimal.Decimal) string {
	denom := localTicketsSold
	if denom < 1 {
		denom = 1
	}
	rate := float64(discrepanciesFound) / float64(denom)

	switch {
	case rate > 0.1 || revenueDiff.GreaterThan(healthCriticalRevenue):
		return models.SyncHealthCritical
	case rate > 0.05 || revenueDiff.GreaterThan(healthWarningRevenue):
		return models.SyncHealthWarning
	default:
		return models.SyncHealthHealthy
	}
}
