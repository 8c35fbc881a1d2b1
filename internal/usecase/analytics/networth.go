package analytics

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simaogato/wealthflow-portfolio/internal/domain"
)

// NetWorth builds one point per bucket, taken at the bucket's end boundary
// (clamped to r.To for the last, possibly open, bucket).
// Logic:
//   - Cash: cumulative CashEffect of every transaction dated before the boundary,
//     including those before the range starts
//   - Assets: Σ priced holdings of quantity_at(boundary) × current price, where
//     quantity_at rolls the current quantity back through the trades dated at or after
//     the boundary (0 when the holding was acquired at or after it, never negative)
//   - Total: Cash + Assets
//
// holdings includes closed ones: a holding sold during the range still counts at the
// boundaries where it was held. Open holdings are priced from current, closed ones
// from closed (nil when there are none). An unpriced open holding makes the series
// Partial, as does an unpriced closed holding that was held at one of the boundaries.
func NetWorth(
	holdings []*domain.Holding,
	current *domain.PortfolioValuation,
	closed *domain.PortfolioValuation,
	transactions []*domain.Transaction,
	r domain.DateRange,
	g domain.Granularity,
	buckets []domain.Bucket,
) domain.NetWorthSeries {
	series := domain.NetWorthSeries{
		Granularity: g,
		Points:      make([]domain.NetWorthPoint, 0, len(buckets)),
		Partial:     current.Partial,
	}

	trades := make(map[uuid.UUID][]*domain.Transaction)
	for _, tx := range transactions {
		if tx.HoldingID != nil && tx.Type.TradesQuantity() {
			trades[*tx.HoldingID] = append(trades[*tx.HoldingID], tx)
		}
	}

	for _, b := range buckets {
		at := b.End
		if !r.To.IsZero() && at.After(r.To) {
			at = r.To
		}

		point := domain.NetWorthPoint{
			At:         at,
			Cash:       cashBefore(transactions, at),
			Assets:     decimal.Zero,
			ByCategory: make(map[string]decimal.Decimal),
		}

		for _, h := range holdings {
			quantity := quantityAt(h, trades[h.ID], at)
			price, ok := priceOf(h, current, closed)
			if !ok {
				if h.IsClosed() && quantity.IsPositive() {
					series.Partial = true
				}
				continue
			}
			value := quantity.Mul(price)
			point.Assets = point.Assets.Add(value)
			category := h.CategoryOrDefault()
			point.ByCategory[category] = point.ByCategory[category].Add(value)
		}

		point.Total = point.Cash.Add(point.Assets)
		series.Points = append(series.Points, point)
	}

	return series
}

// priceOf finds the holding's price in the valuation it belongs to
func priceOf(h *domain.Holding, current, closed *domain.PortfolioValuation) (decimal.Decimal, bool) {
	if !h.IsClosed() {
		return current.PriceOf(h.ID)
	}
	if closed == nil {
		return decimal.Zero, false
	}
	return closed.PriceOf(h.ID)
}

// cashBefore sums the cash effect of the transactions dated strictly before at
func cashBefore(transactions []*domain.Transaction, at time.Time) decimal.Decimal {
	cash := decimal.Zero
	for _, tx := range transactions {
		if tx.Date.Before(at) {
			cash = cash.Add(tx.CashEffect())
		}
	}
	return cash
}

// quantityAt rolls the holding's current quantity back to the instant at
func quantityAt(h *domain.Holding, trades []*domain.Transaction, at time.Time) decimal.Decimal {
	if !h.AcquisitionDate.Before(at) {
		return decimal.Zero
	}
	quantity := h.Quantity
	for _, tx := range trades {
		if !tx.Date.Before(at) {
			quantity = quantity.Sub(tx.QuantityEffect())
		}
	}
	if quantity.IsNegative() {
		return decimal.Zero
	}
	return quantity
}
