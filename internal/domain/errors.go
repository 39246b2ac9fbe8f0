package domain

import "errors"

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a unique constraint would be violated.
	ErrAlreadyExists = errors.New("already exists")
	// ErrForbidden indicates the caller's role may not perform the operation.
	ErrForbidden = errors.New("forbidden")
	// ErrEmptyCart is returned when checking out a cart without items.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrInvalidInput wraps validation failures of caller supplied values.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidTransition is returned when an order status cannot move to the requested value.
	ErrInvalidTransition = errors.New("invalid status transition")
)
