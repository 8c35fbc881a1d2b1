// Package cli implements the portfolioctl commands, which evaluate a portfolio file offline
// or query a running server.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/simaogato/wealthflow-portfolio/internal/adapter/events"
	"github.com/simaogato/wealthflow-portfolio/internal/adapter/repository/memory"
	"github.com/simaogato/wealthflow-portfolio/internal/domain"
	"github.com/simaogato/wealthflow-portfolio/internal/usecase/analytics"
	"github.com/simaogato/wealthflow-portfolio/internal/usecase/goal"
	"github.com/simaogato/wealthflow-portfolio/internal/usecase/valuation"
)

// PortfolioFile is the JSON document the offline commands read.
// Holdings carry their current quantity; transactions are history and are not replayed.
// Prices are served as the latest quote per identifier.
type PortfolioFile struct {
	Holdings     []domain.Holding     `json:"holdings"`
	Transactions []domain.Transaction `json:"transactions"`
	Goals        []domain.Goal        `json:"goals"`
	Prices       []domain.PriceQuote  `json:"prices"`
}

// LoadPortfolio decodes a portfolio file into a fresh in-memory store
func LoadPortfolio(ctx context.Context, path string) (*memory.Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open portfolio file: %w", err)
	}
	defer f.Close()

	return DecodePortfolio(ctx, f)
}

// DecodePortfolio reads a portfolio document and stores every record it holds
func DecodePortfolio(ctx context.Context, r io.Reader) (*memory.Store, error) {
	var doc PortfolioFile
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode portfolio file: %w", err)
	}

	store := memory.NewStore()
	for i := range doc.Holdings {
		h := &doc.Holdings[i]
		if err := h.Validate(); err != nil {
			return nil, fmt.Errorf("holding %d (%s): %w", i, h.Identifier, err)
		}
		if err := store.CreateHolding(ctx, h); err != nil {
			return nil, err
		}
	}
	for i := range doc.Transactions {
		tx := &doc.Transactions[i]
		if err := tx.Validate(); err != nil {
			return nil, fmt.Errorf("transaction %d (%s): %w", i, tx.ID, err)
		}
		if err := store.ApplyTransaction(ctx, tx, nil); err != nil {
			return nil, err
		}
	}
	for i := range doc.Goals {
		g := &doc.Goals[i]
		if g.Status == "" {
			g.Status = domain.GoalStatusActive
		}
		if g.Scope == "" {
			g.Scope = domain.GoalScopeNetWorth
		}
		if err := g.Validate(g.CreatedAt); err != nil {
			return nil, fmt.Errorf("goal %d (%s): %w", i, g.Name, err)
		}
		if err := store.CreateGoal(ctx, g); err != nil {
			return nil, err
		}
	}
	for i := range doc.Prices {
		if err := store.AddQuote(ctx, &doc.Prices[i]); err != nil {
			return nil, fmt.Errorf("price %d (%s): %w", i, doc.Prices[i].Identifier, err)
		}
	}
	return store, nil
}

// engine bundles the read services over a loaded store
type engine struct {
	valuation *valuation.ValuationService
	analytics *analytics.AnalyticsService
	goals     *goal.GoalService
}

func newEngine(store *memory.Store, now func() time.Time, places int32, timeout time.Duration) *engine {
	logger := zap.NewNop()
	valuationOpts := valuation.Options{LookupTimeout: timeout}

	v := valuation.NewValuationService(store, store, valuationOpts, logger)
	a := analytics.NewAnalyticsService(store, store, store, valuationOpts, analytics.Options{PercentPlaces: places}, logger)
	g := goal.NewGoalService(store, a, events.NopPublisher{}, goal.Options{}, logger)
	v.Now, a.Now, g.Now = now, now, now

	return &engine{valuation: v, analytics: a, goals: g}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func amount(d decimal.Decimal, currency string) string {
	return domain.FormatAmount(d, currency)
}
