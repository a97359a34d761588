// Package insights computes warehouse dashboard metrics. Results are cached
// in Redis so every dashboard load does not re-scan the operational tables;
// the cache is refreshed on a schedule and can be reset on demand.
package insights

import "time"

// Snapshot is one computed set of dashboard metrics.
type Snapshot struct {
	InboundByStatus    map[string]int `json:"inbound_by_status"`
	OutboundByStatus   map[string]int `json:"outbound_by_status"`
	OrdersByStatus     map[string]int `json:"orders_by_status"`
	PendingFeeReviews  int            `json:"pending_fee_reviews"`
	OpenDiscrepancies  int            `json:"open_discrepancies"`
	LowStockItems      int            `json:"low_stock_items"`
	AgedItems          int            `json:"aged_items"`
	TotalItems         int            `json:"total_items"`
	TotalStockUnits    int            `json:"total_stock_units"`
	MovementsLast7Days int            `json:"movements_last_7_days"`
	GeneratedAt        time.Time      `json:"generated_at"`
}
