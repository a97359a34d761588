package workflow

import "errors"

// Domain errors for the fee workflow.
var (
	// ErrNotFound indicates the shipment does not exist.
	ErrNotFound = errors.New("shipment not found")

	// ErrCannotSubmit indicates fees cannot be submitted in the current fee status.
	ErrCannotSubmit = errors.New("fees cannot be submitted in current status")
	// ErrEmptyFees indicates a submission with no charge at all.
	ErrEmptyFees = errors.New("at least one fee amount is required")
	// ErrInvalidDecision indicates the decision target is not Approved/Rejected.
	ErrInvalidDecision = errors.New("decision must be Approved or Rejected")
	// ErrNotAwaitingDecision indicates no submission is pending approval.
	ErrNotAwaitingDecision = errors.New("fees are not awaiting approval")
	// ErrPaymentNotApproved indicates payment confirmation before approval.
	ErrPaymentNotApproved = errors.New("payment requires approved fees")

	// ErrShipmentFinalized indicates the shipment lifecycle is terminal and
	// fee edits are no longer permitted.
	ErrShipmentFinalized = errors.New("shipment is finalized")
)
