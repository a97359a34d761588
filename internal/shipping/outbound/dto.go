package outbound

import (
	"time"

	"github.com/meridian-wms/meridian/internal/shipping/workflow"
)

// CreateRequest registers a new dispatch.
type CreateRequest struct {
	Customer         string    `json:"customer" validate:"required,max=200"`
	Destination      string    `json:"destination" validate:"required,max=500"`
	Carrier          string    `json:"carrier" validate:"required,max=200"`
	TrackingNumber   *string   `json:"tracking_number,omitempty" validate:"omitempty,max=100"`
	OrderID          *int64    `json:"order_id,omitempty" validate:"omitempty,gt=0"`
	ExpectedDelivery time.Time `json:"expected_delivery" validate:"required"`
	BrokerID         *int64    `json:"broker_id,omitempty" validate:"omitempty,gt=0"`
}

// UpdateRequest applies partial edits to a non-terminal dispatch.
type UpdateRequest struct {
	Customer         *string    `json:"customer,omitempty" validate:"omitempty,max=200"`
	Destination      *string    `json:"destination,omitempty" validate:"omitempty,max=500"`
	Carrier          *string    `json:"carrier,omitempty" validate:"omitempty,max=200"`
	TrackingNumber   *string    `json:"tracking_number,omitempty" validate:"omitempty,max=100"`
	ExpectedDelivery *time.Time `json:"expected_delivery,omitempty"`
	BrokerID         *int64     `json:"broker_id,omitempty" validate:"omitempty,gt=0"`
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

// ConfirmPaymentRequest attaches payment evidence and puts the dispatch in
// transit.
type ConfirmPaymentRequest struct {
	ReceiptName string `json:"receipt_name" validate:"required,max=255"`
	ReceiptData []byte `json:"receipt_data,omitempty"`
	ActorID     int64  `json:"actor_id" validate:"required,gt=0"`
}

// TransitionRequest drives a delivery status change.
type TransitionRequest struct {
	ActorID int64 `json:"actor_id" validate:"required,gt=0"`
}

// ListRequest filters dispatch listings.
type ListRequest struct {
	Status    *Status
	FeeStatus *workflow.FeeStatus
	Search    string
	Limit     int
	Offset    int
}

// ListResponse wraps a paginated listing.
type ListResponse struct {
	Dispatches []Dispatch `json:"dispatches"`
	Total      int        `json:"total"`
}
