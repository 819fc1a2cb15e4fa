package reconcile

import (
	"testing"

	"bitbucket.org/showbooker/booking_backend/models"
	"github.com/shopspring/decimal"
)

func TestComputeSyncHealth(t *testing.T) {
	cases := []struct {
		name        string
		found       int
		localSold   int
		revenueDiff string
		want        string
	}{
		{"no findings, no revenue gap", 0, 100, "0", models.SyncHealthHealthy},
		{"rate exactly 5% stays healthy", 5, 100, "0", models.SyncHealthHealthy},
		{"rate just over 5% is warning", 6, 100, "0", models.SyncHealthWarning},
		{"rate exactly 10% stays warning", 10, 100, "0", models.SyncHealthWarning},
		{"rate over 10% is critical", 11, 100, "0", models.SyncHealthCritical},
		{"revenue gap exactly 50 stays healthy", 0, 100, "50", models.SyncHealthHealthy},
		{"revenue gap just over 50 is warning", 0, 100, "50.01", models.SyncHealthWarning},
		{"revenue gap exactly 100 stays warning", 0, 100, "100", models.SyncHealthWarning},
		{"revenue gap over 100 is critical", 0, 100, "100.01", models.SyncHealthCritical},
		{"worst signal wins", 6, 100, "150", models.SyncHealthCritical},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ComputeSyncHealth(tc.found, tc.localSold, decimal.RequireFromString(tc.revenueDiff))
			if got != tc.want {
				t.Fatalf("ComputeSyncHealth(%d, %d, %s) = %s, want %s",
					tc.found, tc.localSold, tc.revenueDiff, got, tc.want)
			}
		})
	}
}

func TestComputeSyncHealth_ZeroLocalSales(t *testing.T) {
	// A single finding against zero local sales is a 100% rate, not a
	// division by zero.
	if got := ComputeSyncHealth(1, 0, decimal.Zero); got != models.SyncHealthCritical {
		t.Fatalf("expected critical for finding with zero local sales, got %s", got)
	}
	if got := ComputeSyncHealth(0, 0, decimal.Zero); got != models.SyncHealthHealthy {
		t.Fatalf("expected healthy for clean event with zero local sales, got %s", got)
	}
}
