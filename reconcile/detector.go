package reconcile

import (
	"strconv"

	"bitbucket.org/showbooker/booking_backend/models"
	"bitbucket.org/showbooker/booking_backend/platforms"
	"github.com/shopspring/decimal"
)

// revenueEpsilon absorbs floating-point and rounding noise between the two
// sides; revenue differences at or below one cent are not discrepancies.
var revenueEpsilon = decimal.NewFromFloat(0.01)

var (
	revenueHighThreshold   = decimal.NewFromInt(100)
	revenueMediumThreshold = decimal.NewFromInt(10)
)

// Detect compares a local snapshot against a platform snapshot and returns
// zero or more findings. Each comparison is independent and the result does
// not depend on evaluation order. Fields the local side cannot derive
// (availability, fees, net revenue, url) are never compared.
func Detect(local, platform platforms.Snapshot) []Finding {
	var findings []Finding

	if local.TicketsSold != platform.TicketsSold {
		diff := local.TicketsSold - platform.TicketsSold
		if diff < 0 {
			diff = -diff
		}
		severity := models.DiscrepancySeverityMedium
		if diff > 10 {
			severity = models.DiscrepancySeverityHigh
		}
		findings = append(findings, Finding{
			Type:          models.DiscrepancyTypeDataInconsistency,
			Severity:      severity,
			Field:         FieldTicketCount,
			LocalValue:    strconv.Itoa(local.TicketsSold),
			PlatformValue: strconv.Itoa(platform.TicketsSold),
			LocalData:     local.MarshalData(),
			PlatformData:  platform.MarshalData(),
		})
	}

	revenueDiff := local.GrossRevenue.Sub(platform.GrossRevenue).Abs()
	if revenueDiff.GreaterThan(revenueEpsilon) {
		severity := models.DiscrepancySeverityLow
		if revenueDiff.GreaterThan(revenueHighThreshold) {
			severity = models.DiscrepancySeverityHigh
		} else if revenueDiff.GreaterThan(revenueMediumThreshold) {
			severity = models.DiscrepancySeverityMedium
		}
		findings = append(findings, Finding{
			Type:          models.DiscrepancyTypeAmountMismatch,
			Severity:      severity,
			Field:         FieldTotalRevenue,
			LocalValue:    local.GrossRevenue.String(),
			PlatformValue: platform.GrossRevenue.String(),
			LocalData:     local.MarshalData(),
			PlatformData:  platform.MarshalData(),
		})
	}

	return findings
}

// RevenueDiff is the absolute gross-revenue difference between the two
// sides, reused by the sync-health verdict.
func RevenueDiff(local, platform platforms.Snapshot) decimal.Decimal {
	return local.GrossRevenue.Sub(platform.GrossRevenue).Abs()
}
