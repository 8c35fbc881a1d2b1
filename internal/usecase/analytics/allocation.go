package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/simaogato/wealthflow-portfolio/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// Allocate breaks the priced part of a valuation down by instrument type and by category.
// Logic:
//  1. Sum the market value of every priced snapshot per key
//  2. Percent = value / priced total × 100, rounded to places
//  3. Give the rounding residue to the largest slice so the shares sum to exactly 100
//  4. Each slice also carries its cost basis, gain and return percent
//
// Unavailable holdings never enter the percentages; their cost basis is reported as
// UnpricedCostBasis so callers can see how much of the portfolio is missing.
func Allocate(valuation *domain.PortfolioValuation, places int32) domain.Allocation {
	allocation := domain.Allocation{
		Total:             decimal.Zero,
		ByInstrumentType:  []domain.AllocationSlice{},
		ByCategory:        []domain.AllocationSlice{},
		Excluded:          valuation.ExcludedIDs(),
		Partial:           valuation.Partial,
		UnpricedCostBasis: decimal.Zero,
	}

	byType := make(map[string]*domain.AllocationSlice)
	byCategory := make(map[string]*domain.AllocationSlice)
	for i := range valuation.Snapshots {
		s := &valuation.Snapshots[i]
		if !s.IsPriced() {
			if s.CostBasis.IsPositive() {
				allocation.UnpricedCostBasis = allocation.UnpricedCostBasis.Add(s.CostBasis)
			}
			continue
		}
		accumulate(byType, string(s.InstrumentType), s)
		accumulate(byCategory, s.Category, s)
		allocation.Total = allocation.Total.Add(s.MarketValue)
	}

	if !allocation.Total.IsPositive() {
		return allocation
	}

	allocation.ByInstrumentType = shares(byType, allocation.Total, places)
	allocation.ByCategory = shares(byCategory, allocation.Total, places)
	return allocation
}

func accumulate(slices map[string]*domain.AllocationSlice, key string, s *domain.ValuationSnapshot) {
	slice, ok := slices[key]
	if !ok {
		slice = &domain.AllocationSlice{Key: key, Value: decimal.Zero, CostBasis: decimal.Zero}
		slices[key] = slice
	}
	slice.Value = slice.Value.Add(s.MarketValue)
	slice.CostBasis = slice.CostBasis.Add(s.CostBasis)
}

// shares turns per-key totals into sorted, rounded percentage shares of total
func shares(slices map[string]*domain.AllocationSlice, total decimal.Decimal, places int32) []domain.AllocationSlice {
	out := make([]domain.AllocationSlice, 0, len(slices))
	for _, slice := range slices {
		slice.Gain = slice.Value.Sub(slice.CostBasis)
		slice.ReturnPercent = domain.ReturnPercent(slice.Gain, slice.CostBasis)
		out = append(out, *slice)
	}

	// Largest first, ties by key so the output is stable
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Value.Cmp(out[j].Value); c != 0 {
			return c > 0
		}
		return out[i].Key < out[j].Key
	})

	sum := decimal.Zero
	for i := range out {
		out[i].Percent = out[i].Value.Div(total).Mul(hundred).Round(places)
		sum = sum.Add(out[i].Percent)
	}

	// No share lost to rounding
	if residue := hundred.Sub(sum); !residue.IsZero() && len(out) > 0 {
		out[0].Percent = out[0].Percent.Add(residue)
	}

	return out
}
