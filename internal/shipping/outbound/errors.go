package outbound

import "errors"

// Domain errors for outbound dispatches.
var (
	ErrNotFound      = errors.New("outbound dispatch not found")
	ErrNotInTransit  = errors.New("dispatch is not in transit")
	ErrCannotReturn  = errors.New("dispatch cannot be returned in current status")
	ErrAlreadyFinal  = errors.New("dispatch is delivered and can no longer be modified")
	ErrOrderRequired = errors.New("linked order not found")
)
