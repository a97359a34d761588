package orders

// CreateRequest registers a new warehouse order.
type CreateRequest struct {
	Customer string          `json:"customer" validate:"required,max=200"`
	Notes    *string         `json:"notes,omitempty" validate:"omitempty,max=1000"`
	Lines    []CreateLineReq `json:"lines" validate:"required,min=1,dive"`
}

// CreateLineReq is one requested line.
type CreateLineReq struct {
	ItemID   int64 `json:"item_id" validate:"required,gt=0"`
	Quantity int   `json:"quantity" validate:"required,gt=0"`
}

// AdvanceRequest moves the order one step forward in its lifecycle.
type AdvanceRequest struct {
	ActorID int64 `json:"actor_id" validate:"required,gt=0"`
}

// LinePick selects the serials picked for one serialized line.
type LinePick struct {
	LineID        int64    `json:"line_id" validate:"required,gt=0"`
	SerialNumbers []string `json:"serial_numbers" validate:"required,min=1,dive,required"`
}

// PickRequest fulfils all lines of a picking order. Non-serialized lines are
// picked at full quantity automatically; serialized lines need their serials
// named here.
type PickRequest struct {
	Picks   []LinePick `json:"picks,omitempty" validate:"omitempty,dive"`
	ActorID int64      `json:"actor_id" validate:"required,gt=0"`
}

// CancelRequest cancels the order, restocking anything already picked.
type CancelRequest struct {
	ActorID int64   `json:"actor_id" validate:"required,gt=0"`
	Reason  *string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

// ListRequest filters order listings.
type ListRequest struct {
	Status *Status
	Search string
	Limit  int
	Offset int
}

// ListResponse wraps a paginated listing.
type ListResponse struct {
	Orders []Order `json:"orders"`
	Total  int     `json:"total"`
}
