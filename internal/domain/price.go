package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PriceQuote represents a recorded market price or NAV for an instrument.
// The latest quote per identifier is what the stored price lookup serves.
type PriceQuote struct {
	ID         uuid.UUID       `json:"id"`
	Identifier string          `json:"identifier"`
	Date       time.Time       `json:"date"`
	Price      decimal.Decimal `json:"price"`
}

// Validate ensures the quote can be served as a price
func (q *PriceQuote) Validate() error {
	if q.Identifier == "" {
		return fmt.Errorf("%w: quote identifier is required", ErrPriceUnavailable)
	}
	if q.Price.IsNegative() {
		return fmt.Errorf("%w: quote price cannot be negative", ErrPriceUnavailable)
	}
	return nil
}

// PriceLookup supplies the current market price or NAV for an instrument identifier.
// Implementations fail with an error wrapping ErrPriceUnavailable when there is no quote.
type PriceLookup interface {
	Lookup(ctx context.Context, identifier string) (decimal.Decimal, error)
}

// PriceLookupFunc adapts a plain function to PriceLookup
type PriceLookupFunc func(ctx context.Context, identifier string) (decimal.Decimal, error)

// Lookup calls f(ctx, identifier)
func (f PriceLookupFunc) Lookup(ctx context.Context, identifier string) (decimal.Decimal, error) {
	return f(ctx, identifier)
}
