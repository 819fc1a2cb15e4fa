package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PlatformConfig is the canonical, currently-believed-true ticket summary for
// one (event, platform) pair. Created when an event is first linked to a
// platform; mutated only by the ticketsync writer. Reconciliation reads the
// platform fresh instead of trusting these figures, so a stale row here is a
// display problem, not an audit problem.
type PlatformConfig struct {
	ID               uint            `gorm:"primary_key" json:"id"`
	EventID          string          `gorm:"uniqueIndex:idx_platform_configs_event_platform,priority:1;size:36;not null" json:"event_id"`
	Platform         string          `gorm:"uniqueIndex:idx_platform_configs_event_platform,priority:2;size:50;not null" json:"platform"`
	ExternalEventID  string          `gorm:"size:128;not null" json:"external_event_id"`
	TicketsSold      int             `json:"tickets_sold"`
	TicketsAvailable int             `json:"tickets_available"`
	GrossSales       decimal.Decimal `gorm:"type:decimal(20,4)" json:"gross_sales"`
	URL              string          `gorm:"size:512" json:"url"`
	ExtraJSON        []byte          `gorm:"type:json" json:"extra"`
	LastSyncAt       *time.Time      `json:"last_sync_at"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}
