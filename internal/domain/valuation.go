package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SnapshotStatus tells whether a snapshot carries a market price
type SnapshotStatus string

const (
	SnapshotStatusPriced      SnapshotStatus = "priced"
	SnapshotStatusUnavailable SnapshotStatus = "unavailable"
)

// ValuationSnapshot is the point-in-time valuation of one holding.
// Snapshots are regenerated on demand and never mutated.
type ValuationSnapshot struct {
	HoldingID      uuid.UUID       `json:"holding_id"`
	Identifier     string          `json:"identifier"`
	InstrumentType InstrumentType  `json:"instrument_type"`
	Category       string          `json:"category"`
	AsOf           time.Time       `json:"as_of"`
	Status         SnapshotStatus  `json:"status"`
	Quantity       decimal.Decimal `json:"quantity"`
	MarketPrice    decimal.Decimal `json:"market_price"`
	MarketValue    decimal.Decimal `json:"market_value"`
	CostBasis      decimal.Decimal `json:"cost_basis"`
	UnrealizedGain decimal.Decimal `json:"unrealized_gain"`
	ReturnPercent  decimal.Decimal `json:"return_percent"`
	Reason         string          `json:"reason,omitempty"` // why the holding is unavailable
}

// IsPriced reports whether the snapshot counts towards totals
func (s *ValuationSnapshot) IsPriced() bool {
	return s.Status == SnapshotStatusPriced
}

// Exclusion identifies a holding left out of the totals and why
type Exclusion struct {
	HoldingID  uuid.UUID `json:"holding_id"`
	Identifier string    `json:"identifier"`
	Reason     string    `json:"reason"`
}

// PortfolioValuation aggregates the snapshots of one user's holdings.
// TotalMarketValue is always the sum of the priced snapshots' MarketValue;
// Partial is set whenever at least one holding was excluded.
type PortfolioValuation struct {
	UserID              UserID              `json:"user_id"`
	AsOf                time.Time           `json:"as_of"`
	Snapshots           []ValuationSnapshot `json:"snapshots"`
	TotalMarketValue    decimal.Decimal     `json:"total_market_value"`
	TotalCostBasis      decimal.Decimal     `json:"total_cost_basis"`
	TotalUnrealizedGain decimal.Decimal     `json:"total_unrealized_gain"`
	TotalReturnPercent  decimal.Decimal     `json:"total_return_percent"`
	Partial             bool                `json:"partial"`
	Excluded            []Exclusion         `json:"excluded"`
}

// PriceOf returns the market price of a priced holding
func (v *PortfolioValuation) PriceOf(holdingID uuid.UUID) (decimal.Decimal, bool) {
	for i := range v.Snapshots {
		if v.Snapshots[i].HoldingID == holdingID && v.Snapshots[i].IsPriced() {
			return v.Snapshots[i].MarketPrice, true
		}
	}
	return decimal.Zero, false
}

// ReturnPercent is gain / cost × 100 rounded to 2 places, or zero without a positive cost
func ReturnPercent(gain, cost decimal.Decimal) decimal.Decimal {
	if !cost.IsPositive() {
		return decimal.Zero
	}
	return gain.Div(cost).Mul(decimal.NewFromInt(100)).Round(2)
}

// ExcludedIDs returns the IDs of the holdings left out of the totals
func (v *PortfolioValuation) ExcludedIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(v.Excluded))
	for _, e := range v.Excluded {
		ids = append(ids, e.HoldingID)
	}
	return ids
}
