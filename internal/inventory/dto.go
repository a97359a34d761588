package inventory

import "time"

// CreateItemRequest registers a new stocked item.
type CreateItemRequest struct {
	SKU           string     `json:"sku" validate:"required,max=64"`
	Name          string     `json:"name" validate:"required,max=200"`
	Quantity      int        `json:"quantity" validate:"gte=0"`
	SerialNumbers []string   `json:"serial_numbers,omitempty"`
	IsSerialized  bool       `json:"is_serialized"`
	ReorderPoint  int        `json:"reorder_point" validate:"gte=0"`
	SafetyStock   int        `json:"safety_stock" validate:"gte=0"`
	EntryDate     *time.Time `json:"entry_date,omitempty"`
}

// UpdateItemRequest applies partial edits to an item. Quantity and serials
// are excluded: those belong to the adjustment engine.
type UpdateItemRequest struct {
	SKU          *string    `json:"sku,omitempty" validate:"omitempty,max=64"`
	Name         *string    `json:"name,omitempty" validate:"omitempty,max=200"`
	ReorderPoint *int       `json:"reorder_point,omitempty" validate:"omitempty,gte=0"`
	SafetyStock  *int       `json:"safety_stock,omitempty" validate:"omitempty,gte=0"`
	EntryDate    *time.Time `json:"entry_date,omitempty"`
}

// AdjustRequest applies a manual stock delta.
type AdjustRequest struct {
	Delta   int    `json:"delta" validate:"required"`
	Reason  string `json:"reason" validate:"required,max=500"`
	ActorID int64  `json:"actor_id" validate:"required,gt=0"`
}

// SerialsRequest adds or removes serial numbers.
type SerialsRequest struct {
	Serials []string `json:"serials" validate:"required,min=1,dive,required"`
	Reason  string   `json:"reason" validate:"required,max=500"`
	ActorID int64    `json:"actor_id" validate:"required,gt=0"`
}

// ListResponse wraps a paginated item listing.
type ListResponse struct {
	Items []Item `json:"items"`
	Total int    `json:"total"`
}
