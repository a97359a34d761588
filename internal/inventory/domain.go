// Package inventory provides warehouse item records and the transactional
// stock adjustment engine used by shipment receiving and order fulfillment.
package inventory

import (
	"time"

	"github.com/google/uuid"
)

// agedAfter is the shelf age beyond which an item is flagged as aged stock.
const agedAfter = 365 * 24 * time.Hour

// Item is a stocked product. For serialized items the quantity is always
// derived from the serial set.
type Item struct {
	ID            int64     `json:"id"`
	SKU           string    `json:"sku"`
	Name          string    `json:"name"`
	Quantity      int       `json:"quantity"`
	SerialNumbers []string  `json:"serial_numbers,omitempty"`
	IsSerialized  bool      `json:"is_serialized"`
	ReorderPoint  int       `json:"reorder_point"`
	SafetyStock   int       `json:"safety_stock"`
	EntryDate     time.Time `json:"entry_date"`
	IsAged        bool      `json:"is_aged"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Aged reports whether the item entered the warehouse more than a year ago.
func (i Item) Aged(now time.Time) bool {
	return !i.EntryDate.IsZero() && now.Sub(i.EntryDate) > agedAfter
}

// LowStock reports whether the quantity fell to the reorder point.
func (i Item) LowStock() bool {
	return i.Quantity <= i.ReorderPoint
}

// Movement is one audit row per stock mutation, capturing before/after
// quantity and a reference to the triggering workflow action.
type Movement struct {
	ID        uuid.UUID `json:"id"`
	ItemID    int64     `json:"item_id"`
	Delta     int       `json:"delta"`
	BeforeQty int       `json:"before_qty"`
	AfterQty  int       `json:"after_qty"`
	Reason    string    `json:"reason"`
	RefModule string    `json:"ref_module"`
	RefID     string    `json:"ref_id"`
	ActorID   int64     `json:"actor_id"`
	CreatedAt time.Time `json:"created_at"`
}

// MovementRef identifies the workflow action behind a stock mutation.
type MovementRef struct {
	Module  string
	RefID   string
	ActorID int64
	Reason  string
}
