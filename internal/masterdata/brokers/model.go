// Package brokers maintains the customs broker directory referenced by
// shipment fee submissions.
package brokers

import "time"

// Broker is one customs broker on file.
type Broker struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	ContactEmail string    `json:"contact_email"`
	Phone        *string   `json:"phone,omitempty"`
	LicenseNo    *string   `json:"license_no,omitempty"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CreateRequest registers a new broker.
type CreateRequest struct {
	Name         string  `json:"name" validate:"required,max=200"`
	ContactEmail string  `json:"contact_email" validate:"required,email,max=255"`
	Phone        *string `json:"phone,omitempty" validate:"omitempty,max=50"`
	LicenseNo    *string `json:"license_no,omitempty" validate:"omitempty,max=100"`
}

// UpdateRequest applies partial edits to a broker.
type UpdateRequest struct {
	Name         *string `json:"name,omitempty" validate:"omitempty,max=200"`
	ContactEmail *string `json:"contact_email,omitempty" validate:"omitempty,email,max=255"`
	Phone        *string `json:"phone,omitempty" validate:"omitempty,max=50"`
	LicenseNo    *string `json:"license_no,omitempty" validate:"omitempty,max=100"`
	Active       *bool   `json:"active,omitempty"`
}

// ListResponse wraps a broker listing.
type ListResponse struct {
	Brokers []Broker `json:"brokers"`
	Total   int      `json:"total"`
}
