package inventory

import "errors"

// Domain errors for inventory.
var (
	// ErrItemNotFound indicates the requested item does not exist.
	ErrItemNotFound = errors.New("inventory item not found")
	// ErrDuplicateSKU indicates a SKU collision on create/update.
	ErrDuplicateSKU = errors.New("sku already exists")

	// ErrInsufficientStock indicates a decrement below zero.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrSerialNotFound indicates a pick referenced an unknown serial.
	ErrSerialNotFound = errors.New("serial number not found")
	// ErrInvalidQuantity indicates a non-positive quantity.
	ErrInvalidQuantity = errors.New("quantity must be greater than zero")
	// ErrNotSerialized indicates a serial operation on a non-serialized item.
	ErrNotSerialized = errors.New("item is not serialized")
	// ErrSerialized indicates a quantity operation on a serialized item.
	ErrSerialized = errors.New("serialized items are adjusted by serial number")
)
