// Package workflow implements the fee-approval lifecycle shared by inbound
// and outbound shipments. The state machine is written once and instantiated
// per shipment kind through the EntityStore capability.
package workflow

// FeeStatus represents the fee-approval lifecycle of a shipment.
type FeeStatus string

const (
	FeePendingSubmission FeeStatus = "Pending Submission" // No fees submitted yet
	FeePendingApproval   FeeStatus = "Pending Approval"   // Broker submitted, awaiting decision
	FeeApproved          FeeStatus = "Approved"           // Fees accepted, payment outstanding
	FeeRejected          FeeStatus = "Rejected"           // Fees declined, broker may resubmit
	FeePaymentConfirmed  FeeStatus = "Payment Confirmed"  // Paid, shipment may progress
)

// IsValid checks if the status is a known fee status.
func (s FeeStatus) IsValid() bool {
	switch s {
	case FeePendingSubmission, FeePendingApproval, FeeApproved, FeeRejected, FeePaymentConfirmed:
		return true
	default:
		return false
	}
}

// IsDecision checks if the status is a valid approval decision.
func (s FeeStatus) IsDecision() bool {
	return s == FeeApproved || s == FeeRejected
}

// CanSubmit checks if fees may be (re)submitted from this status. Rejection
// returns control to the broker; a new submission restarts the cycle.
func (s FeeStatus) CanSubmit() bool {
	return s == FeePendingSubmission || s == FeeRejected
}

// CanDecide checks if an approval decision may be recorded.
func (s FeeStatus) CanDecide() bool {
	return s == FeePendingApproval
}

// CanConfirmPayment checks if payment confirmation is permitted.
func (s FeeStatus) CanConfirmPayment() bool {
	return s == FeeApproved
}

// CanTransition reports whether the edge s -> next exists in the lifecycle.
func (s FeeStatus) CanTransition(next FeeStatus) bool {
	switch s {
	case FeePendingSubmission:
		return next == FeePendingApproval
	case FeePendingApproval:
		return next == FeeApproved || next == FeeRejected
	case FeeRejected:
		return next == FeePendingApproval
	case FeeApproved:
		return next == FeePaymentConfirmed
	default:
		return false
	}
}
