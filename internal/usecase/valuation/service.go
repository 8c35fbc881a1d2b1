package valuation

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/simaogato/wealthflow-portfolio/internal/domain"
)

// ValuationService values a user's open holdings against the configured price source
type ValuationService struct {
	HoldingRepo domain.HoldingRepository
	Prices      domain.PriceLookup
	Options     Options
	Logger      *zap.Logger
	Now         func() time.Time
}

// NewValuationService creates a new ValuationService instance
func NewValuationService(
	holdingRepo domain.HoldingRepository,
	prices domain.PriceLookup,
	opts Options,
	logger *zap.Logger,
) *ValuationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ValuationService{
		HoldingRepo: holdingRepo,
		Prices:      prices,
		Options:     opts,
		Logger:      logger,
		Now:         time.Now,
	}
}

// Valuate loads the user's open holdings and values them as of now.
// Only a repository failure is returned as an error; missing prices produce a
// partial valuation.
func (s *ValuationService) Valuate(ctx context.Context, user domain.UserID) (*domain.PortfolioValuation, error) {
	holdings, err := s.HoldingRepo.ListHoldings(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to list holdings: %w", err)
	}

	result := Valuate(ctx, user, holdings, s.Prices, s.Now().UTC(), s.Options)

	if result.Partial {
		s.Logger.Warn("partial valuation",
			zap.String("user", string(user)),
			zap.Int("holdings", len(holdings)),
			zap.Int("excluded", len(result.Excluded)),
		)
		for _, e := range result.Excluded {
			s.Logger.Debug("holding excluded from valuation",
				zap.String("holding_id", e.HoldingID.String()),
				zap.String("identifier", e.Identifier),
				zap.String("reason", e.Reason),
			)
		}
	}

	return result, nil
}
