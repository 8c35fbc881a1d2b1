package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/simaogato/wealthflow-portfolio/internal/domain"
)

// PriceRepository implements domain.PriceRepository.
// It also serves the latest stored quote as a domain.PriceLookup.
type PriceRepository struct {
	db *DB
}

// NewPriceRepository creates a new price repository
func NewPriceRepository(db *DB) *PriceRepository {
	return &PriceRepository{db: db}
}

// AddQuote creates a new price quote entry
func (r *PriceRepository) AddQuote(ctx context.Context, quote *domain.PriceQuote) error {
	if err := quote.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO price_quotes (id, identifier, date, price)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.db.ExecContext(ctx, query,
		quote.ID,
		quote.Identifier,
		quote.Date.UTC(),
		quote.Price.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert price quote: %w", err)
	}

	return nil
}

// LatestQuote retrieves the most recent quote for an identifier.
// Of two quotes with the same date the one inserted last wins.
func (r *PriceRepository) LatestQuote(ctx context.Context, identifier string) (*domain.PriceQuote, error) {
	query := `
		SELECT id, identifier, date, price
		FROM price_quotes
		WHERE identifier = $1
		ORDER BY date DESC, seq DESC
		LIMIT 1
	`

	var quote domain.PriceQuote
	var priceStr string

	err := r.db.QueryRowContext(ctx, query, identifier).Scan(
		&quote.ID,
		&quote.Identifier,
		&quote.Date,
		&priceStr,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: no quote for %s", domain.ErrNotFound, identifier)
		}
		return nil, fmt.Errorf("failed to get latest quote: %w", err)
	}
	quote.Date = quote.Date.UTC()

	// Parse price (NUMERIC)
	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse price: %w", err)
	}
	quote.Price = price

	return &quote, nil
}

// Lookup serves the latest stored quote as the current price
func (r *PriceRepository) Lookup(ctx context.Context, identifier string) (decimal.Decimal, error) {
	q, err := r.LatestQuote(ctx, identifier)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", domain.ErrPriceUnavailable, err)
	}
	return q.Price, nil
}

var (
	_ domain.PriceRepository = (*PriceRepository)(nil)
	_ domain.PriceLookup     = (*PriceRepository)(nil)
)
