package models

import "time"

// AuditLogEntry is an append-only trail row. The orchestrator writes one per
// event per invocation, summarizing all platform results in MetadataJSON.
type AuditLogEntry struct {
	ID           uint      `gorm:"primary_key" json:"id"`
	EventID      string    `gorm:"index;size:36;not null" json:"event_id"`
	Action       string    `gorm:"size:64;not null" json:"action"`
	Description  string    `gorm:"type:text" json:"description"`
	MetadataJSON []byte    `gorm:"type:json" json:"metadata"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}
