package orders

import "errors"

// Domain errors for warehouse orders.
var (
	ErrNotFound          = errors.New("order not found")
	ErrInvalidTransition = errors.New("order cannot advance from current status")
	ErrNotPicking        = errors.New("order is not in picking")
	ErrTerminal          = errors.New("order is finished and can no longer be modified")
	ErrEmptyLines        = errors.New("at least one line is required")
	ErrLineMismatch      = errors.New("pick does not match order lines")
)
