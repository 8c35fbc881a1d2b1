package valuation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simaogato/wealthflow-portfolio/internal/domain"
)

// DefaultLookupTimeout bounds a single price lookup
const DefaultLookupTimeout = 2 * time.Second

// Options tunes a valuation run
type Options struct {
	// LookupTimeout bounds each identifier's price lookup. A lookup that does not
	// answer in time marks the identifier unavailable; the valuation carries on.
	LookupTimeout time.Duration
}

func (o Options) lookupTimeout() time.Duration {
	if o.LookupTimeout <= 0 {
		return DefaultLookupTimeout
	}
	return o.LookupTimeout
}

// Valuate computes a snapshot per holding and the portfolio totals.
// Logic:
//   - market_value = quantity × price, cost_basis = quantity × cost_basis_per_unit
//   - unrealized_gain = market_value − cost_basis, return_percent = gain / cost_basis × 100
//   - holdings whose price cannot be obtained (error, timeout, negative quote) or that fail
//     validation are flagged unavailable, excluded from the totals and listed in Excluded;
//     the result is then Partial
//
// asOf is stamped on every snapshot; identical inputs yield identical output.
func Valuate(
	ctx context.Context,
	user domain.UserID,
	holdings []*domain.Holding,
	lookup domain.PriceLookup,
	asOf time.Time,
	opts Options,
) *domain.PortfolioValuation {
	result := &domain.PortfolioValuation{
		UserID:              user,
		AsOf:                asOf,
		Snapshots:           make([]domain.ValuationSnapshot, 0, len(holdings)),
		TotalMarketValue:    decimal.Zero,
		TotalCostBasis:      decimal.Zero,
		TotalUnrealizedGain: decimal.Zero,
		TotalReturnPercent:  decimal.Zero,
		Excluded:            make([]domain.Exclusion, 0),
	}

	// One lookup per distinct identifier among the valid holdings
	identifiers := make([]string, 0, len(holdings))
	seen := make(map[string]bool)
	for _, h := range holdings {
		if h.Validate() != nil || seen[h.Identifier] {
			continue
		}
		seen[h.Identifier] = true
		identifiers = append(identifiers, h.Identifier)
	}
	quotes := fetchQuotes(ctx, lookup, identifiers, opts.lookupTimeout())

	for _, h := range holdings {
		snapshot := domain.ValuationSnapshot{
			HoldingID:      h.ID,
			Identifier:     h.Identifier,
			InstrumentType: h.InstrumentType,
			Category:       h.CategoryOrDefault(),
			AsOf:           asOf,
			Quantity:       h.Quantity,
			CostBasis:      h.CostBasis(),
		}

		if err := h.Validate(); err != nil {
			exclude(result, &snapshot, "invalid holding: "+err.Error())
			continue
		}

		q := quotes[h.Identifier]
		if q.err != nil {
			exclude(result, &snapshot, q.err.Error())
			continue
		}

		snapshot.Status = domain.SnapshotStatusPriced
		snapshot.MarketPrice = q.price
		snapshot.MarketValue = h.Quantity.Mul(q.price)
		snapshot.UnrealizedGain = snapshot.MarketValue.Sub(snapshot.CostBasis)
		snapshot.ReturnPercent = domain.ReturnPercent(snapshot.UnrealizedGain, snapshot.CostBasis)
		result.Snapshots = append(result.Snapshots, snapshot)

		result.TotalMarketValue = result.TotalMarketValue.Add(snapshot.MarketValue)
		result.TotalCostBasis = result.TotalCostBasis.Add(snapshot.CostBasis)
	}

	result.TotalUnrealizedGain = result.TotalMarketValue.Sub(result.TotalCostBasis)
	result.TotalReturnPercent = domain.ReturnPercent(result.TotalUnrealizedGain, result.TotalCostBasis)
	result.Partial = len(result.Excluded) > 0

	return result
}

// exclude flags the snapshot unavailable and records the exclusion
func exclude(result *domain.PortfolioValuation, snapshot *domain.ValuationSnapshot, reason string) {
	snapshot.Status = domain.SnapshotStatusUnavailable
	snapshot.MarketPrice = decimal.Zero
	snapshot.MarketValue = decimal.Zero
	snapshot.UnrealizedGain = decimal.Zero
	snapshot.ReturnPercent = decimal.Zero
	snapshot.Reason = reason
	result.Snapshots = append(result.Snapshots, *snapshot)
	result.Excluded = append(result.Excluded, domain.Exclusion{
		HoldingID:  snapshot.HoldingID,
		Identifier: snapshot.Identifier,
		Reason:     reason,
	})
}

type quote struct {
	price decimal.Decimal
	err   error
}

// fetchQuotes looks every identifier up concurrently, each under its own timeout
func fetchQuotes(ctx context.Context, lookup domain.PriceLookup, identifiers []string, timeout time.Duration) map[string]quote {
	quotes := make(map[string]quote, len(identifiers))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, identifier := range identifiers {
		wg.Add(1)
		go func(identifier string) {
			defer wg.Done()
			q := lookupWithTimeout(ctx, lookup, identifier, timeout)
			mu.Lock()
			quotes[identifier] = q
			mu.Unlock()
		}(identifier)
	}
	wg.Wait()

	return quotes
}

// lookupWithTimeout stops waiting once the timeout fires, even if the lookup ignores its context
func lookupWithTimeout(ctx context.Context, lookup domain.PriceLookup, identifier string, timeout time.Duration) quote {
	if lookup == nil {
		return quote{err: fmt.Errorf("%w: no price source configured", domain.ErrPriceUnavailable)}
	}

	lookupCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan quote, 1)
	go func() {
		price, err := lookup.Lookup(lookupCtx, identifier)
		done <- quote{price: price, err: err}
	}()

	select {
	case q := <-done:
		if q.err != nil {
			if errors.Is(q.err, domain.ErrPriceUnavailable) {
				return q
			}
			return quote{err: fmt.Errorf("%w: %v", domain.ErrPriceUnavailable, q.err)}
		}
		if q.price.IsNegative() {
			return quote{err: fmt.Errorf("%w: negative quote %s for %s", domain.ErrPriceUnavailable, q.price, identifier)}
		}
		return q
	case <-lookupCtx.Done():
		return quote{err: fmt.Errorf("%w: lookup for %s timed out after %s", domain.ErrPriceUnavailable, identifier, timeout)}
	}
}
