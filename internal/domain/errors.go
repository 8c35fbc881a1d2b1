package domain

import "errors"

// Sentinel errors shared by the use cases and mapped to transport codes by the adapters.
var (
	// ErrPriceUnavailable is returned by a PriceLookup when an identifier has no quote.
	// It degrades a valuation to a partial result and is never fatal to a request.
	ErrPriceUnavailable = errors.New("price unavailable")

	ErrInvalidHolding       = errors.New("invalid holding")
	ErrInvalidTransaction   = errors.New("invalid transaction")
	ErrInvalidGoal          = errors.New("invalid goal")
	ErrInvalidRange         = errors.New("invalid date range")
	ErrInvalidGranularity   = errors.New("invalid granularity")
	ErrInsufficientQuantity = errors.New("insufficient quantity")
	ErrAlreadyReversed      = errors.New("transaction already reversed")
	ErrNotFound             = errors.New("not found")
)
