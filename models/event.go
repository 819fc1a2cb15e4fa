package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event is a show on the booking platform. This service only reads events;
// the two denormalized sync fields are the one exception, written by the
// reconciliation orchestrator after a successful run so dashboards can show
// health without joining report rows.
type Event struct {
	ID        string    `gorm:"primary_key;size:36" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Venue     string    `gorm:"size:255" json:"venue"`
	EventDate time.Time `gorm:"index;not null" json:"event_date"`

	SyncHealth           string     `gorm:"size:20" json:"sync_health"`
	LastReconciliationAt *time.Time `json:"last_reconciliation_at"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TicketSale is one locally recorded sale for an event on one platform.
// The local snapshot is derived from these rows: tickets sold = row count,
// gross revenue = sum(total_amount).
type TicketSale struct {
	ID          uint            `gorm:"primary_key" json:"id"`
	EventID     string          `gorm:"index:idx_ticket_sales_event_platform,priority:1;size:36;not null" json:"event_id"`
	Platform    string          `gorm:"index:idx_ticket_sales_event_platform,priority:2;size:50;not null" json:"platform"`
	OrderRef    string          `gorm:"size:128" json:"order_ref"`
	BuyerEmail  string          `gorm:"size:255" json:"buyer_email"`
	Quantity    int             `gorm:"not null;default:1" json:"quantity"`
	TotalAmount decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"total_amount"`
	Status      string          `gorm:"size:20;not null;default:'confirmed'" json:"status"`
	SoldAt      time.Time       `json:"sold_at"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
}
