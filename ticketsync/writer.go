package ticketsync

import (
	"context"
	"time"

	"bitbucket.org/showbooker/booking_backend/models"
	"bitbucket.org/showbooker/booking_backend/platforms"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UpsertColumns is the full set of columns the writer owns on conflict.
// Exported for the idempotence test; everything not listed here is never
// touched by a sync.
var UpsertColumns = []string{
	"external_event_id",
	"tickets_sold",
	"tickets_available",
	"gross_sales",
	"url",
	"extra_json",
	"last_sync_at",
	"updated_at",
}

// BuildSummary assembles the PlatformConfig row a snapshot maps to. Pure, so
// idempotence is checkable without a database: identical inputs produce
// identical rows.
func BuildSummary(eventID string, platform string, externalEventID string, snapshot platforms.Snapshot, extra []byte, syncedAt time.Time) models.PlatformConfig {
	return models.PlatformConfig{
		EventID:          eventID,
		Platform:         platform,
		ExternalEventID:  externalEventID,
		TicketsSold:      snapshot.TicketsSold,
		TicketsAvailable: snapshot.TicketsAvailable,
		GrossSales:       snapshot.GrossRevenue,
		URL:              snapshot.URL,
		ExtraJSON:        extra,
		LastSyncAt:       &syncedAt,
		UpdatedAt:        syncedAt,
	}
}

// UpsertPlatformSummary applies reconciled totals to the canonical
// per-(event, platform) summary. Keyed on the (event_id, platform) unique
// index, so calling it twice with identical inputs leaves one unchanged row.
// This is the only code path allowed to mutate PlatformConfig.
func UpsertPlatformSummary(ctx context.Context, db *gorm.DB, summary models.PlatformConfig) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}, {Name: "platform"}},
		DoUpdates: clause.AssignmentColumns(UpsertColumns),
	}).Create(&summary).Error
}
