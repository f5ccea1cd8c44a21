package service

import "errors"

// Validation errors surfaced to the HTTP layer. Not-found conditions are
// reported through store.ErrNotFound so callers can distinguish 404 from
// 422 with errors.Is.
var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrUnknownStatus     = errors.New("unknown order status")
	ErrNoItems           = errors.New("order must have at least one item")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
	ErrVariationMismatch = errors.New("variation does not belong to product")
)
