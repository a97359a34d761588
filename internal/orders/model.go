// Package orders manages warehouse fulfilment orders from acknowledgement
// through picking, packing and pickup. Picking and cancellation move stock
// through the inventory engine inside the order's own transaction.
package orders

import (
	"bytes"
	"encoding/json"
	"time"
)

// Status represents the fulfilment stage of a warehouse order.
type Status string

const (
	StatusPending        Status = "Pending"
	StatusAcknowledged   Status = "Acknowledged"
	StatusPicking        Status = "Picking"
	StatusPacked         Status = "Packed"
	StatusReadyForPickup Status = "Ready for Pickup"
	StatusPickedUp       Status = "Picked Up"
	StatusCompleted      Status = "Completed"
	StatusCancelled      Status = "Cancelled"
)

// IsValid checks if the status is known.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusAcknowledged, StatusPicking, StatusPacked,
		StatusReadyForPickup, StatusPickedUp, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal reports whether the order lifecycle is finished.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Next returns the single forward transition from this status, or empty when
// the order advances through a dedicated operation instead.
func (s Status) Next() Status {
	switch s {
	case StatusPending:
		return StatusAcknowledged
	case StatusAcknowledged:
		return StatusPicking
	case StatusPacked:
		return StatusReadyForPickup
	case StatusReadyForPickup:
		return StatusPickedUp
	case StatusPickedUp:
		return StatusCompleted
	default:
		return ""
	}
}

// Order is one warehouse fulfilment order.
type Order struct {
	ID        int64          `json:"id"`
	RefNumber string         `json:"ref_number"`
	Customer  string         `json:"customer"`
	Status    Status         `json:"status"`
	History   []HistoryEntry `json:"status_history"`
	Notes     *string        `json:"notes,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Lines     []OrderLine    `json:"lines,omitempty"`
}

// OrderLine is one item to fulfil.
type OrderLine struct {
	ID            int64    `json:"id"`
	OrderID       int64    `json:"order_id"`
	ItemID        int64    `json:"item_id"`
	SKU           string   `json:"sku"`
	Quantity      int      `json:"quantity"`
	PickedQty     int      `json:"picked_qty"`
	PickedSerials []string `json:"picked_serials,omitempty"`
}

// HistoryEntry records one order status transition. It mirrors the fee
// history shape so both audit trails read the same.
type HistoryEntry struct {
	Status  Status    `json:"status"`
	From    Status    `json:"from_status"`
	ActorID int64     `json:"actor_id"`
	At      time.Time `json:"at"`
}

// ParseHistory decodes the status_history column, tolerating null and
// malformed documents.
func ParseHistory(raw []byte) []HistoryEntry {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	var entries []HistoryEntry
	if err := json.Unmarshal(trimmed, &entries); err != nil {
		return nil
	}
	return entries
}

// EncodeHistory serializes history for storage, never as null.
func EncodeHistory(entries []HistoryEntry) []byte {
	if len(entries) == 0 {
		return []byte("[]")
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return []byte("[]")
	}
	return data
}
