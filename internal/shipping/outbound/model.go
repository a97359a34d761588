// Package outbound provides customer dispatches and their delivery tracking.
// Dispatches share the fee approval workflow with inbound notices; confirming
// payment is what puts a dispatch on the road.
package outbound

import (
	"time"

	"github.com/meridian-wms/meridian/internal/shipping/workflow"
)

// Status represents the lifecycle of an outbound dispatch.
type Status string

const (
	StatusPreparing Status = "Preparing"
	StatusInTransit Status = "In Transit"
	StatusDelivered Status = "Delivered"
	StatusDelayed   Status = "Delayed"
	StatusReturned  Status = "Returned"
)

// IsValid checks if the status is known.
func (s Status) IsValid() bool {
	switch s {
	case StatusPreparing, StatusInTransit, StatusDelivered, StatusDelayed, StatusReturned:
		return true
	default:
		return false
	}
}

// Terminal reports whether the dispatch reached its end state.
func (s Status) Terminal() bool {
	return s == StatusDelivered
}

// CanDeliver checks if the dispatch can be marked delivered.
func (s Status) CanDeliver() bool {
	return s == StatusInTransit
}

// CanDelay checks if the dispatch can be flagged delayed.
func (s Status) CanDelay() bool {
	return s == StatusInTransit
}

// CanReturn checks if the dispatch can be marked returned.
func (s Status) CanReturn() bool {
	return s == StatusInTransit || s == StatusDelayed
}

// Dispatch represents an outbound shipment to a customer.
type Dispatch struct {
	ID               int64                   `json:"id"`
	RefNumber        string                  `json:"ref_number"`
	Customer         string                  `json:"customer"`
	Destination      string                  `json:"destination"`
	Carrier          string                  `json:"carrier"`
	TrackingNumber   *string                 `json:"tracking_number,omitempty"`
	OrderID          *int64                  `json:"order_id,omitempty"`
	ExpectedDelivery time.Time               `json:"expected_delivery"`
	ActualDelivery   *time.Time              `json:"actual_delivery,omitempty"`
	Status           Status                  `json:"status"`
	FeeStatus        workflow.FeeStatus      `json:"fee_status"`
	Fees             workflow.Fees           `json:"fees"`
	FeeHistory       []workflow.HistoryEntry `json:"fee_status_history"`
	BrokerID         *int64                  `json:"broker_id,omitempty"`
	BrokerName       *string                 `json:"broker_name,omitempty"`
	ReceiptName      *string                 `json:"receipt_name,omitempty"`
	CreatedAt        time.Time               `json:"created_at"`
	UpdatedAt        time.Time               `json:"updated_at"`
}
