package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UserID identifies the account that owns holdings, transactions and goals.
// It is passed explicitly into every call; there is no process-wide session.
type UserID string

// InstrumentType represents the kind of instrument a holding is a position in
type InstrumentType string

const (
	InstrumentTypeMutualFund InstrumentType = "mutual_fund"
	InstrumentTypeStock      InstrumentType = "stock"
)

// UncategorizedCategory is used for holdings and expenses recorded without a category.
const UncategorizedCategory = "Uncategorized"

// Valid reports whether t is a known instrument type
func (t InstrumentType) Valid() bool {
	return t == InstrumentTypeMutualFund || t == InstrumentTypeStock
}

// Holding represents a user's position in a single financial instrument.
// Quantity and CostBasisPerUnit are decimals so that valuations never go through float64.
type Holding struct {
	ID               uuid.UUID       `json:"id"`
	UserID           UserID          `json:"user_id"`
	InstrumentType   InstrumentType  `json:"instrument_type"`
	Identifier       string          `json:"identifier"`          // scheme code / ISIN for funds, ticker for stocks
	Name             string          `json:"name"`
	Category         string          `json:"category"`            // fund category (Equity, Debt, ...) or stock sector
	Quantity         decimal.Decimal `json:"quantity"`
	CostBasisPerUnit decimal.Decimal `json:"cost_basis_per_unit"`
	AcquisitionDate  time.Time       `json:"acquisition_date"`
	ClosedAt         *time.Time      `json:"closed_at,omitempty"` // set when the position is fully disposed of
}

// Validate ensures the holding adheres to domain rules.
// Every returned error wraps ErrInvalidHolding.
func (h *Holding) Validate() error {
	if h.UserID == "" {
		return fmt.Errorf("%w: user is required", ErrInvalidHolding)
	}
	if h.Identifier == "" {
		return fmt.Errorf("%w: identifier is required", ErrInvalidHolding)
	}
	if !h.InstrumentType.Valid() {
		return fmt.Errorf("%w: unknown instrument type %q", ErrInvalidHolding, h.InstrumentType)
	}
	if h.Quantity.IsNegative() {
		return fmt.Errorf("%w: quantity cannot be negative", ErrInvalidHolding)
	}
	if h.CostBasisPerUnit.IsNegative() {
		return fmt.Errorf("%w: cost basis per unit cannot be negative", ErrInvalidHolding)
	}
	if h.AcquisitionDate.IsZero() {
		return fmt.Errorf("%w: acquisition date is required", ErrInvalidHolding)
	}
	return nil
}

// IsClosed reports whether the holding was fully disposed of
func (h *Holding) IsClosed() bool {
	return h.ClosedAt != nil
}

// CategoryOrDefault returns the category used for aggregation
func (h *Holding) CategoryOrDefault() string {
	if h.Category == "" {
		return UncategorizedCategory
	}
	return h.Category
}

// CostBasis returns quantity × cost basis per unit
func (h *Holding) CostBasis() decimal.Decimal {
	return h.Quantity.Mul(h.CostBasisPerUnit)
}
