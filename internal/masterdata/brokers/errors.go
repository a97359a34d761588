package brokers

import "errors"

var (
	ErrNotFound  = errors.New("broker not found")
	ErrDuplicate = errors.New("broker name already exists")
	ErrInactive  = errors.New("broker is inactive")
)
