package analytics

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/simaogato/wealthflow-portfolio/internal/domain"
)

// Defaults applied when Options leaves a field unset
const (
	DefaultPercentPlaces = 2
	DefaultTopExpenses   = 10
)

// Options tunes the aggregation
type Options struct {
	// PercentPlaces is the number of decimal places of allocation percentages.
	// 0 gives whole percents; a negative value selects DefaultPercentPlaces.
	PercentPlaces int32
	TopExpenses   int // number of largest expenses listed, DefaultTopExpenses when <= 0
}

func (o Options) withDefaults() Options {
	if o.PercentPlaces < 0 {
		o.PercentPlaces = DefaultPercentPlaces
	}
	if o.TopExpenses <= 0 {
		o.TopExpenses = DefaultTopExpenses
	}
	return o
}

// Summarize aggregates a valuation and transaction history over r.
//
// holdings are the user's open and closed holdings. current values the open ones and
// drives the allocation; closed prices the closed ones for the net worth series and
// may be nil when there are none.
//
// transactions should hold the user's full history (at least everything dated before
// r.To, plus later trades so past quantities can be rolled back); only those dated in
// r feed the cash flow and the top expenses.
//
// An empty range yields a summary with Empty set and empty collections. Both bounds are
// required; an unknown granularity is rejected.
func Summarize(
	user domain.UserID,
	holdings []*domain.Holding,
	current *domain.PortfolioValuation,
	closed *domain.PortfolioValuation,
	transactions []*domain.Transaction,
	r domain.DateRange,
	g domain.Granularity,
	opts Options,
) (*domain.AnalyticsSummary, error) {
	if err := checkInput(r, g); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	r = domain.DateRange{From: r.From.UTC(), To: r.To.UTC()}
	summary := &domain.AnalyticsSummary{
		UserID:      user,
		Range:       r,
		Granularity: g,
		CashFlow:    []domain.CashFlowBucket{},
		NetWorth:    domain.NetWorthSeries{Granularity: g, Points: []domain.NetWorthPoint{}},
		TopExpenses: []domain.ExpenseEntry{},
		Allocation: domain.Allocation{
			ByInstrumentType: []domain.AllocationSlice{},
			ByCategory:       []domain.AllocationSlice{},
			Excluded:         []uuid.UUID{},
		},
	}
	if r.IsEmpty() {
		summary.Empty = true
		return summary, nil
	}

	buckets := r.Buckets(g)
	summary.Allocation = Allocate(current, opts.PercentPlaces)
	summary.CashFlow = CashFlow(transactions, r, buckets)
	summary.NetWorth = NetWorth(holdings, current, closed, transactions, r, g, buckets)
	summary.TopExpenses = TopExpenses(transactions, r, opts.TopExpenses)

	return summary, nil
}

// checkInput rejects an unknown granularity, an unbounded range or one split into
// more than domain.MaxBuckets buckets
func checkInput(r domain.DateRange, g domain.Granularity) error {
	if !g.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidGranularity, g)
	}
	if r.From.IsZero() || r.To.IsZero() {
		return fmt.Errorf("%w: both from and to are required", domain.ErrInvalidRange)
	}
	if n := r.BucketCount(g); n > domain.MaxBuckets {
		return fmt.Errorf("%w: %d %s buckets, at most %d allowed", domain.ErrInvalidRange, n, g, domain.MaxBuckets)
	}
	return nil
}

// TopExpenses lists the n largest expenses dated inside r, largest first.
// Ties are ordered by date, then by transaction ID. Reversed expenses and the
// reversals themselves are left out.
func TopExpenses(transactions []*domain.Transaction, r domain.DateRange, n int) []domain.ExpenseEntry {
	reversed := make(map[uuid.UUID]bool)
	for _, tx := range transactions {
		if tx.IsReversal() {
			reversed[*tx.ReversesID] = true
		}
	}

	entries := make([]domain.ExpenseEntry, 0)
	for _, tx := range transactions {
		if tx.Type != domain.TransactionTypeExpense || tx.IsReversal() || reversed[tx.ID] || !r.Contains(tx.Date) {
			continue
		}
		entries = append(entries, domain.ExpenseEntry{
			TransactionID: tx.ID,
			Date:          tx.Date,
			Category:      tx.CategoryOrDefault(),
			Description:   tx.Description,
			Amount:        tx.Amount,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if c := entries[i].Amount.Cmp(entries[j].Amount); c != 0 {
			return c > 0
		}
		if !entries[i].Date.Equal(entries[j].Date) {
			return entries[i].Date.Before(entries[j].Date)
		}
		return entries[i].TransactionID.String() < entries[j].TransactionID.String()
	})

	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}
