// Package inbound provides advance shipping notices (ASNs) and the receiving
// flow that moves their goods into inventory.
package inbound

import (
	"time"

	"github.com/meridian-wms/meridian/internal/shipping/workflow"
)

// Status represents the lifecycle of an inbound shipment.
type Status string

const (
	StatusOnTime      Status = "On Time"
	StatusDelayed     Status = "Delayed"
	StatusArrived     Status = "Arrived"
	StatusAtWarehouse Status = "At the Warehouse" // Received, quantities matched
	StatusProcessing  Status = "Processing"       // Received with discrepancies
	StatusComplete    Status = "Complete"
)

// IsValid checks if the status is known.
func (s Status) IsValid() bool {
	switch s {
	case StatusOnTime, StatusDelayed, StatusArrived, StatusAtWarehouse, StatusProcessing, StatusComplete:
		return true
	default:
		return false
	}
}

// Terminal reports whether the shipment lifecycle is finished. Terminal
// shipments cannot be deleted or fee-edited.
func (s Status) Terminal() bool {
	return s == StatusComplete
}

// CanReceive checks if goods may be received in this status. Processing is
// included so discrepancy follow-up deliveries can be booked in.
func (s Status) CanReceive() bool {
	switch s {
	case StatusOnTime, StatusDelayed, StatusArrived, StatusProcessing:
		return true
	default:
		return false
	}
}

// CanComplete checks if the shipment can be closed out.
func (s Status) CanComplete() bool {
	return s == StatusAtWarehouse || s == StatusProcessing
}

// ASN represents an advance shipping notice from a supplier.
type ASN struct {
	ID               int64                   `json:"id"`
	RefNumber        string                  `json:"ref_number"`
	Supplier         string                  `json:"supplier"`
	Carrier          string                  `json:"carrier"`
	ExpectedArrival  time.Time               `json:"expected_arrival"`
	ActualArrival    *time.Time              `json:"actual_arrival,omitempty"`
	Status           Status                  `json:"status"`
	FeeStatus        workflow.FeeStatus      `json:"fee_status"`
	Fees             workflow.Fees           `json:"fees"`
	FeeHistory       []workflow.HistoryEntry `json:"fee_status_history"`
	BrokerID         *int64                  `json:"broker_id,omitempty"`
	BrokerName       *string                 `json:"broker_name,omitempty"`
	ReceiptName      *string                 `json:"receipt_name,omitempty"`
	DiscrepancyNotes []string                `json:"discrepancy_notes,omitempty"`
	CompletedAt      *time.Time              `json:"completed_at,omitempty"`
	CreatedAt        time.Time               `json:"created_at"`
	UpdatedAt        time.Time               `json:"updated_at"`
	Lines            []Line                  `json:"lines,omitempty"`
}

// Line is one expected item on an ASN.
type Line struct {
	ID          int64  `json:"id"`
	ASNID       int64  `json:"asn_id"`
	ItemID      int64  `json:"item_id"`
	SKU         string `json:"sku"`
	ExpectedQty int    `json:"expected_qty"`
	ReceivedQty int    `json:"received_qty"`
}

// ReceivedItem is one physical delivery line booked in during receiving.
type ReceivedItem struct {
	ItemID        int64    `json:"item_id"`
	Quantity      int      `json:"quantity"`
	SerialNumbers []string `json:"serial_numbers,omitempty"`
}

// ReceivedQuantity returns the effective quantity: for serialized deliveries
// the serial count wins.
func (r ReceivedItem) ReceivedQuantity() int {
	if len(r.SerialNumbers) > 0 {
		return len(r.SerialNumbers)
	}
	return r.Quantity
}
