package inbound

import "errors"

// Domain errors for inbound shipments.
var (
	// ErrNotFound indicates the ASN does not exist.
	ErrNotFound = errors.New("inbound shipment not found")

	// Status transition errors.
	ErrCannotReceive  = errors.New("cannot receive shipment in current status")
	ErrCannotComplete = errors.New("cannot complete shipment in current status")
	ErrTerminal       = errors.New("shipment is complete and can no longer be modified")

	// ErrPaymentRequired indicates receiving before payment confirmation.
	ErrPaymentRequired = errors.New("payment must be confirmed before receiving")

	// Validation errors.
	ErrEmptyLines      = errors.New("at least one line is required")
	ErrInvalidQuantity = errors.New("quantity must be greater than zero")
	ErrNothingReceived = errors.New("at least one received item is required")
)
