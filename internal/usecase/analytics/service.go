package analytics

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/simaogato/wealthflow-portfolio/internal/domain"
	"github.com/simaogato/wealthflow-portfolio/internal/usecase/valuation"
)

// AnalyticsService handles analytics-related operations
type AnalyticsService struct {
	HoldingRepo      domain.HoldingRepository
	TransactionRepo  domain.TransactionRepository
	Prices           domain.PriceLookup
	ValuationOptions valuation.Options
	Options          Options
	Logger           *zap.Logger
	Now              func() time.Time
}

// NewAnalyticsService creates a new AnalyticsService instance
func NewAnalyticsService(
	holdingRepo domain.HoldingRepository,
	transactionRepo domain.TransactionRepository,
	prices domain.PriceLookup,
	valuationOpts valuation.Options,
	opts Options,
	logger *zap.Logger,
) *AnalyticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsService{
		HoldingRepo:      holdingRepo,
		TransactionRepo:  transactionRepo,
		Prices:           prices,
		ValuationOptions: valuationOpts,
		Options:          opts,
		Logger:           logger,
		Now:              time.Now,
	}
}

// Summarize values the user's portfolio now and aggregates it over r
func (s *AnalyticsService) Summarize(
	ctx context.Context,
	user domain.UserID,
	r domain.DateRange,
	g domain.Granularity,
) (*domain.AnalyticsSummary, error) {
	if err := checkInput(r, g); err != nil {
		return nil, err
	}
	if r.IsEmpty() {
		return Summarize(user, nil, &domain.PortfolioValuation{}, nil, nil, r, g, s.Options)
	}

	in, err := s.load(ctx, user)
	if err != nil {
		return nil, err
	}

	summary, err := Summarize(user, in.holdings, in.current, in.closed, in.transactions, r, g, s.Options)
	if err != nil {
		return nil, err
	}

	s.Logger.Debug("analytics summarized",
		zap.String("user", string(user)),
		zap.String("granularity", string(g)),
		zap.Int("buckets", len(summary.CashFlow)),
		zap.Bool("partial", summary.Allocation.Partial),
	)

	return summary, nil
}

// NetWorth returns only the net worth series of the user over r
func (s *AnalyticsService) NetWorth(
	ctx context.Context,
	user domain.UserID,
	r domain.DateRange,
	g domain.Granularity,
) (*domain.NetWorthSeries, error) {
	summary, err := s.Summarize(ctx, user, r, g)
	if err != nil {
		return nil, err
	}
	return &summary.NetWorth, nil
}

// inputs is what a summary is computed from
type inputs struct {
	holdings     []*domain.Holding // open and closed
	current      *domain.PortfolioValuation
	closed       *domain.PortfolioValuation // nil without closed holdings
	transactions []*domain.Transaction
}

// load fetches every holding, values the open and the closed ones separately and
// reads the full transaction history
func (s *AnalyticsService) load(ctx context.Context, user domain.UserID) (*inputs, error) {
	holdings, err := s.HoldingRepo.ListAllHoldings(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to list holdings: %w", err)
	}

	open := make([]*domain.Holding, 0, len(holdings))
	closed := make([]*domain.Holding, 0)
	for _, h := range holdings {
		if h.IsClosed() {
			closed = append(closed, h)
		} else {
			open = append(open, h)
		}
	}

	now := s.Now().UTC()
	in := &inputs{
		holdings: holdings,
		current:  valuation.Valuate(ctx, user, open, s.Prices, now, s.ValuationOptions),
	}
	if in.current.Partial {
		s.Logger.Warn("analytics over partial valuation",
			zap.String("user", string(user)),
			zap.Int("excluded", len(in.current.Excluded)),
		)
	}
	if len(closed) > 0 {
		in.closed = valuation.Valuate(ctx, user, closed, s.Prices, now, s.ValuationOptions)
	}

	in.transactions, err = s.TransactionRepo.ListTransactions(ctx, user, domain.DateRange{})
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	return in, nil
}
