package platforms

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Snapshot is a point-in-time aggregate of ticket and revenue figures from
// one source: either the local sales table or one external platform. Built
// fresh on every run and never mutated afterwards; comparisons always read
// two independent snapshots.
//
// The local side cannot derive TicketsAvailable, Fees, NetRevenue or URL, so
// those stay at their zero values and are not compared.
type Snapshot struct {
	TicketsSold      int             `json:"tickets_sold"`
	TicketsAvailable int             `json:"tickets_available"`
	GrossRevenue     decimal.Decimal `json:"gross_revenue"`
	NetRevenue       decimal.Decimal `json:"net_revenue"`
	Fees             decimal.Decimal `json:"fees"`
	OrdersCount      int             `json:"orders_count"`
	URL              string          `json:"url,omitempty"`
}

// MarshalData serializes a snapshot for discrepancy audit rows.
func (s Snapshot) MarshalData() []byte {
	b, _ := json.Marshal(s)
	return b
}
