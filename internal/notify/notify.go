// Package notify persists internal alerts and fans them out as live events.
// Publishing is fire-and-forget: failures are logged, never propagated, so a
// dropped alert can never roll back a committed workflow transition.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Severity grades an alert.
type Severity string

const (
	SeverityInfo     Severity = "Info"
	SeverityWarning  Severity = "Warning"
	SeverityCritical Severity = "Critical"
)

// Alert is an internal notification row.
type Alert struct {
	ID           uuid.UUID `json:"id"`
	Severity     Severity  `json:"severity"`
	Message      string    `json:"message"`
	Type         string    `json:"type"`
	Link         string    `json:"link,omitempty"`
	TargetUserID *int64    `json:"target_user_id,omitempty"`
	Read         bool      `json:"read"`
	CreatedAt    time.Time `json:"created_at"`
}

// Publisher is the side-channel contract consumed by workflow services.
type Publisher interface {
	Publish(ctx context.Context, alert Alert)
}
