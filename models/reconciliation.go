package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReconciliationReport records one reconciliation attempt for one
// (event, platform) pair. Opened with status=running and closed by exactly
// one terminal update. Immutable once closed.
type ReconciliationReport struct {
	ID       string `gorm:"primary_key;size:36" json:"id"`
	EventID  string `gorm:"index:idx_recon_reports_event,priority:1;size:36;not null" json:"event_id"`
	Platform string `gorm:"index:idx_recon_reports_event,priority:2;size:50;not null" json:"platform"`
	Status   string `gorm:"size:20;not null" json:"status"`

	StartTime time.Time  `gorm:"index;not null" json:"start_time"`
	EndTime   *time.Time `json:"end_time"`

	TotalLocalSales      int             `json:"total_local_sales"`
	TotalPlatformSales   int             `json:"total_platform_sales"`
	TotalLocalRevenue    decimal.Decimal `gorm:"type:decimal(20,4)" json:"total_local_revenue"`
	TotalPlatformRevenue decimal.Decimal `gorm:"type:decimal(20,4)" json:"total_platform_revenue"`

	DiscrepanciesFound    int    `json:"discrepancies_found"`
	DiscrepanciesResolved int    `json:"discrepancies_resolved"`
	SyncHealth            string `gorm:"size:20" json:"sync_health"`
	ErrorMessage          string `gorm:"type:text" json:"error_message"`

	CorrelationId string    `gorm:"size:36" json:"correlation_id"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Discrepancy is one detected disagreement between local and platform data,
// always attached to the report that found it. ResolvedAt is written by the
// (separate) resolution workflow, never by this service.
type Discrepancy struct {
	ID       string `gorm:"primary_key;size:36" json:"id"`
	ReportID string `gorm:"index;size:36;not null" json:"report_id"`
	EventID  string `gorm:"index;size:36;not null" json:"event_id"`
	Platform string `gorm:"size:50;not null" json:"platform"`

	Type     string `gorm:"size:30;not null" json:"type"`
	Severity string `gorm:"size:10;not null" json:"severity"`

	// Raw snapshots on both sides plus the specific differing field, kept
	// for auditability.
	LocalDataJSON    []byte `gorm:"type:json" json:"local_data"`
	PlatformDataJSON []byte `gorm:"type:json" json:"platform_data"`
	Field            string `gorm:"size:50;not null" json:"field"`
	LocalValue       string `gorm:"size:64" json:"local_value"`
	PlatformValue    string `gorm:"size:64" json:"platform_value"`

	DetectedAt time.Time  `gorm:"not null" json:"detected_at"`
	ResolvedAt *time.Time `json:"resolved_at"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
}
