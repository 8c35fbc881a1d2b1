package valuation

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/wealthflow-portfolio/internal/domain"
)

var asOf = time.Date(2024, 6, 30, 18, 0, 0, 0, time.UTC)

func holding(identifier string, quantity, costBasis int64) *domain.Holding {
	return &domain.Holding{
		ID:               uuid.New(),
		UserID:           "u1",
		InstrumentType:   domain.InstrumentTypeStock,
		Identifier:       identifier,
		Quantity:         decimal.NewFromInt(quantity),
		CostBasisPerUnit: decimal.NewFromInt(costBasis),
		AcquisitionDate:  time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC),
	}
}

// priceBook answers from a fixed map and fails for anything else
func priceBook(prices map[string]int64) domain.PriceLookup {
	return domain.PriceLookupFunc(func(ctx context.Context, identifier string) (decimal.Decimal, error) {
		p, ok := prices[identifier]
		if !ok {
			return decimal.Zero, fmt.Errorf("%w: no quote for %s", domain.ErrPriceUnavailable, identifier)
		}
		return decimal.NewFromInt(p), nil
	})
}

func TestValuate_SingleHoldingScenario(t *testing.T) {
	// Holding{quantity=10, cost_basis=100}, price=120 -> market_value=1200, unrealized_gain=200
	h := holding("INFY", 10, 100)

	result := Valuate(context.Background(), "u1", []*domain.Holding{h}, priceBook(map[string]int64{"INFY": 120}), asOf, Options{})

	require.Len(t, result.Snapshots, 1)
	s := result.Snapshots[0]
	assert.Equal(t, domain.SnapshotStatusPriced, s.Status)
	assert.True(t, s.MarketPrice.Equal(decimal.NewFromInt(120)))
	assert.True(t, s.MarketValue.Equal(decimal.NewFromInt(1200)), "market value should be 1200")
	assert.True(t, s.UnrealizedGain.Equal(decimal.NewFromInt(200)), "unrealized gain should be 200")
	assert.Equal(t, asOf, s.AsOf)

	assert.True(t, result.TotalMarketValue.Equal(decimal.NewFromInt(1200)))
	assert.True(t, result.TotalCostBasis.Equal(decimal.NewFromInt(1000)))
	assert.True(t, result.TotalUnrealizedGain.Equal(decimal.NewFromInt(200)))
	assert.True(t, result.TotalReturnPercent.Equal(decimal.NewFromInt(20)))
	assert.False(t, result.Partial)
	assert.Empty(t, result.Excluded)
}

func TestValuate_OneOfThreeLookupsFails(t *testing.T) {
	a := holding("AAA", 10, 100)
	b := holding("BBB", 5, 20)
	c := holding("CCC", 2, 50)
	prices := priceBook(map[string]int64{"AAA": 110, "CCC": 60})

	result := Valuate(context.Background(), "u1", []*domain.Holding{a, b, c}, prices, asOf, Options{})

	assert.True(t, result.Partial, "total must be tagged partial")
	require.Len(t, result.Excluded, 1)
	assert.Equal(t, b.ID, result.Excluded[0].HoldingID)
	assert.Equal(t, "BBB", result.Excluded[0].Identifier)
	assert.Contains(t, result.Excluded[0].Reason, "price unavailable")

	// 10*110 + 2*60
	assert.True(t, result.TotalMarketValue.Equal(decimal.NewFromInt(1220)))
	// 10*100 + 2*50
	assert.True(t, result.TotalCostBasis.Equal(decimal.NewFromInt(1100)))

	require.Len(t, result.Snapshots, 3)
	assert.Equal(t, a.ID, result.Snapshots[0].HoldingID)
	assert.Equal(t, domain.SnapshotStatusUnavailable, result.Snapshots[1].Status)
	assert.True(t, result.Snapshots[1].MarketValue.IsZero())
	assert.Equal(t, c.ID, result.Snapshots[2].HoldingID)
}

func TestValuate_PerHoldingReturn(t *testing.T) {
	tests := []struct {
		name       string
		quantity   int64
		cost       int64
		price      int64
		wantReturn string
	}{
		{"gain", 10, 100, 125, "25"},
		{"loss", 3, 300, 200, "-33.33"},
		{"free units", 4, 0, 10, "0"},
		{"closed holding", 0, 100, 120, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := holding("AAA", tt.quantity, tt.cost)

			result := Valuate(context.Background(), "u1", []*domain.Holding{h}, priceBook(map[string]int64{"AAA": tt.price}), asOf, Options{})

			require.Len(t, result.Snapshots, 1)
			s := result.Snapshots[0]
			assert.True(t, s.ReturnPercent.Equal(decimal.RequireFromString(tt.wantReturn)), "got %s", s.ReturnPercent)
		})
	}

	missing := Valuate(context.Background(), "u1", []*domain.Holding{holding("BBB", 1, 1)}, priceBook(nil), asOf, Options{})
	assert.True(t, missing.Snapshots[0].ReturnPercent.IsZero())
}

func TestValuate_TotalEqualsSumOfPricedSnapshots(t *testing.T) {
	holdings := []*domain.Holding{
		holding("AAA", 3, 10),
		holding("BBB", 7, 10),
		holding("MISSING", 1, 10),
		holding("CCC", 11, 10),
	}
	prices := priceBook(map[string]int64{"AAA": 13, "BBB": 17, "CCC": 19})

	result := Valuate(context.Background(), "u1", holdings, prices, asOf, Options{})

	sum := decimal.Zero
	for _, s := range result.Snapshots {
		if s.IsPriced() {
			sum = sum.Add(s.MarketValue)
		}
	}
	assert.True(t, sum.Equal(result.TotalMarketValue))
}

func TestValuate_EmptyHoldings(t *testing.T) {
	result := Valuate(context.Background(), "u1", nil, priceBook(nil), asOf, Options{})

	require.NotNil(t, result)
	assert.True(t, result.TotalMarketValue.IsZero())
	assert.True(t, result.TotalReturnPercent.IsZero())
	assert.Empty(t, result.Snapshots)
	assert.Empty(t, result.Excluded)
	assert.False(t, result.Partial)
}

func TestValuate_Idempotent(t *testing.T) {
	holdings := []*domain.Holding{holding("AAA", 10, 100), holding("BBB", 4, 25), holding("ZZZ", 1, 1)}
	prices := priceBook(map[string]int64{"AAA": 101, "BBB": 30})

	first := Valuate(context.Background(), "u1", holdings, prices, asOf, Options{})
	second := Valuate(context.Background(), "u1", holdings, prices, asOf, Options{})

	assert.Equal(t, first, second)
}

func TestValuate_MarketValueNeverNegative(t *testing.T) {
	for _, quantity := range []int64{0, 1, 7, 1000} {
		for _, price := range []int64{0, 1, 99} {
			h := holding("X", quantity, 5)
			result := Valuate(context.Background(), "u1", []*domain.Holding{h}, priceBook(map[string]int64{"X": price}), asOf, Options{})
			require.Len(t, result.Snapshots, 1)
			assert.False(t, result.Snapshots[0].MarketValue.IsNegative(), "q=%d p=%d", quantity, price)
		}
	}
}

func TestValuate_LookupTimeoutOnlyAffectsThatIdentifier(t *testing.T) {
	slow := holding("SLOW", 1, 10)
	fast := holding("FAST", 2, 10)

	lookup := domain.PriceLookupFunc(func(ctx context.Context, identifier string) (decimal.Decimal, error) {
		if identifier == "SLOW" {
			// ignores ctx on purpose
			time.Sleep(200 * time.Millisecond)
			return decimal.NewFromInt(1), nil
		}
		return decimal.NewFromInt(15), nil
	})

	result := Valuate(context.Background(), "u1", []*domain.Holding{slow, fast}, lookup, asOf, Options{LookupTimeout: 20 * time.Millisecond})

	assert.True(t, result.Partial)
	require.Len(t, result.Excluded, 1)
	assert.Equal(t, slow.ID, result.Excluded[0].HoldingID)
	assert.Contains(t, result.Excluded[0].Reason, "timed out")
	assert.True(t, result.TotalMarketValue.Equal(decimal.NewFromInt(30)))
}

func TestValuate_NegativeQuoteIsUnavailable(t *testing.T) {
	h := holding("NEG", 1, 10)

	result := Valuate(context.Background(), "u1", []*domain.Holding{h}, priceBook(map[string]int64{"NEG": -4}), asOf, Options{})

	assert.True(t, result.Partial)
	assert.Contains(t, result.Excluded[0].Reason, "negative quote")
}

func TestValuate_PlainLookupErrorIsWrapped(t *testing.T) {
	h := holding("ERR", 1, 10)
	lookup := domain.PriceLookupFunc(func(ctx context.Context, identifier string) (decimal.Decimal, error) {
		return decimal.Zero, fmt.Errorf("connection refused")
	})

	result := Valuate(context.Background(), "u1", []*domain.Holding{h}, lookup, asOf, Options{})

	require.Len(t, result.Excluded, 1)
	assert.Contains(t, result.Excluded[0].Reason, "price unavailable: connection refused")
}

func TestValuate_InvalidHoldingIsExcludedWithoutLookup(t *testing.T) {
	bad := holding("BAD", 1, 10)
	bad.Quantity = decimal.NewFromInt(-1)
	good := holding("GOOD", 1, 10)

	var calls int32
	lookup := domain.PriceLookupFunc(func(ctx context.Context, identifier string) (decimal.Decimal, error) {
		atomic.AddInt32(&calls, 1)
		return decimal.NewFromInt(12), nil
	})

	result := Valuate(context.Background(), "u1", []*domain.Holding{bad, good}, lookup, asOf, Options{})

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	require.Len(t, result.Excluded, 1)
	assert.Equal(t, bad.ID, result.Excluded[0].HoldingID)
	assert.Contains(t, result.Excluded[0].Reason, "invalid holding")
	assert.True(t, result.TotalMarketValue.Equal(decimal.NewFromInt(12)))
}

func TestValuate_SharedIdentifierIsLookedUpOnce(t *testing.T) {
	lot1 := holding("INFY", 10, 100)
	lot2 := holding("INFY", 5, 140)

	var calls int32
	lookup := domain.PriceLookupFunc(func(ctx context.Context, identifier string) (decimal.Decimal, error) {
		atomic.AddInt32(&calls, 1)
		return decimal.NewFromInt(120), nil
	})

	result := Valuate(context.Background(), "u1", []*domain.Holding{lot1, lot2}, lookup, asOf, Options{})

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.True(t, result.TotalMarketValue.Equal(decimal.NewFromInt(1800)))
	// 1200-1000 + 600-700
	assert.True(t, result.TotalUnrealizedGain.Equal(decimal.NewFromInt(100)))
}

func TestValuate_NilLookupMarksEverythingUnavailable(t *testing.T) {
	result := Valuate(context.Background(), "u1", []*domain.Holding{holding("A", 1, 1)}, nil, asOf, Options{})

	assert.True(t, result.Partial)
	assert.True(t, result.TotalMarketValue.IsZero())
}
