package notify

import "errors"

// ErrNotFound indicates the alert does not exist.
var ErrNotFound = errors.New("notification not found")
