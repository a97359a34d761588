package inbound

import (
	"time"

	"github.com/meridian-wms/meridian/internal/shipping/workflow"
)

// CreateRequest registers a new ASN.
type CreateRequest struct {
	Supplier        string          `json:"supplier" validate:"required,max=200"`
	Carrier         string          `json:"carrier" validate:"required,max=200"`
	ExpectedArrival time.Time       `json:"expected_arrival" validate:"required"`
	BrokerID        *int64          `json:"broker_id,omitempty" validate:"omitempty,gt=0"`
	Lines           []CreateLineReq `json:"lines" validate:"required,min=1,dive"`
}

// CreateLineReq is one expected line in a create request.
type CreateLineReq struct {
	ItemID      int64 `json:"item_id" validate:"required,gt=0"`
	ExpectedQty int   `json:"expected_qty" validate:"required,gt=0"`
}

// UpdateRequest applies partial edits to a non-terminal ASN.
type UpdateRequest struct {
	Supplier        *string    `json:"supplier,omitempty" validate:"omitempty,max=200"`
	Carrier         *string    `json:"carrier,omitempty" validate:"omitempty,max=200"`
	ExpectedArrival *time.Time `json:"expected_arrival,omitempty"`
	Status          *Status    `json:"status,omitempty"`
	BrokerID        *int64     `json:"broker_id,omitempty" validate:"omitempty,gt=0"`
}

// SubmitFeesRequest carries a broker fee submission.
type SubmitFeesRequest struct {
	Fees    workflow.Fees `json:"fees"`
	ActorID int64         `json:"actor_id" validate:"required,gt=0"`
}

// DecisionRequest records an approval decision.
type DecisionRequest struct {
	Decision workflow.FeeStatus `json:"decision" validate:"required"`
	ActorID  int64              `json:"actor_id" validate:"required,gt=0"`
}

// ConfirmPaymentRequest attaches payment evidence.
type ConfirmPaymentRequest struct {
	ReceiptName string `json:"receipt_name" validate:"required,max=255"`
	ReceiptData []byte `json:"receipt_data,omitempty"`
	ActorID     int64  `json:"actor_id" validate:"required,gt=0"`
}

// ReceiveRequest books physical goods into the warehouse.
type ReceiveRequest struct {
	Items   []ReceivedItem `json:"items" validate:"required,min=1,dive"`
	ActorID int64          `json:"actor_id" validate:"required,gt=0"`
}

// CompleteRequest closes out a received shipment.
type CompleteRequest struct {
	ActorID int64 `json:"actor_id" validate:"required,gt=0"`
}

// ListRequest filters ASN listings.
type ListRequest struct {
	Status    *Status
	FeeStatus *workflow.FeeStatus
	Search    string
	Limit     int
	Offset    int
}

// ListResponse wraps a paginated listing.
type ListResponse struct {
	Shipments []ASN `json:"shipments"`
	Total     int   `json:"total"`
}
