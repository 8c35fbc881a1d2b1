package position

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/simaogato/wealthflow-portfolio/internal/domain"
)

// costBasisPlaces bounds the precision of a weighted-average cost basis per unit
const costBasisPlaces = 6

// AddHoldingInput represents the input for opening a position
type AddHoldingInput struct {
	UserID           domain.UserID
	InstrumentType   domain.InstrumentType
	Identifier       string
	Name             string
	Category         string
	Quantity         decimal.Decimal
	CostBasisPerUnit decimal.Decimal
	AcquisitionDate  time.Time // defaults to now
}

// RecordTransactionInput represents the input for recording a transaction
type RecordTransactionInput struct {
	UserID      domain.UserID
	HoldingID   *uuid.UUID // required for buy, sell and dividend
	Type        domain.TransactionType
	Amount      decimal.Decimal
	Quantity    decimal.Decimal
	Category    string
	Description string
	Date        time.Time // defaults to now
}

// PriceCache drops a cached price once a newer quote is stored
type PriceCache interface {
	Invalidate(identifier string)
}

// PositionService handles the write side of holdings and transactions
type PositionService struct {
	HoldingRepo     domain.HoldingRepository
	TransactionRepo domain.TransactionRepository
	PriceRepo       domain.PriceRepository
	Publisher       domain.EventPublisher
	PriceCache      PriceCache // optional
	Logger          *zap.Logger
	Now             func() time.Time
}

// NewPositionService creates a new PositionService instance
func NewPositionService(
	holdingRepo domain.HoldingRepository,
	transactionRepo domain.TransactionRepository,
	priceRepo domain.PriceRepository,
	publisher domain.EventPublisher,
	logger *zap.Logger,
) *PositionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PositionService{
		HoldingRepo:     holdingRepo,
		TransactionRepo: transactionRepo,
		PriceRepo:       priceRepo,
		Publisher:       publisher,
		Logger:          logger,
		Now:             time.Now,
	}
}

// AddHolding validates and stores a new open holding
func (s *PositionService) AddHolding(ctx context.Context, input AddHoldingInput) (*domain.Holding, error) {
	acquired := input.AcquisitionDate
	if acquired.IsZero() {
		acquired = s.Now()
	}

	h := &domain.Holding{
		ID:               uuid.New(),
		UserID:           input.UserID,
		InstrumentType:   input.InstrumentType,
		Identifier:       input.Identifier,
		Name:             input.Name,
		Category:         input.Category,
		Quantity:         input.Quantity,
		CostBasisPerUnit: input.CostBasisPerUnit,
		AcquisitionDate:  acquired.UTC(),
	}

	if err := h.Validate(); err != nil {
		return nil, err
	}

	if err := s.HoldingRepo.CreateHolding(ctx, h); err != nil {
		return nil, fmt.Errorf("failed to create holding: %w", err)
	}

	return h, nil
}

// RecordTransaction appends a transaction and applies its effect on the holding.
// Logic:
//   - buy: quantity += q, cost basis per unit becomes the weighted average
//     (q0 × c0 + amount) / (q0 + q); a closed holding is reopened
//   - sell: q must not exceed the held quantity; the holding closes at zero
//   - dividend, expense, income: appended only
//
// The quantity check, the holding update and the transaction insert are one repository
// call, so concurrent trades on a holding cannot oversell it.
func (s *PositionService) RecordTransaction(ctx context.Context, input RecordTransactionInput) (*domain.Transaction, error) {
	date := input.Date
	if date.IsZero() {
		date = s.Now()
	}

	tx := &domain.Transaction{
		ID:          uuid.New(),
		UserID:      input.UserID,
		HoldingID:   input.HoldingID,
		Type:        input.Type,
		Amount:      input.Amount,
		Quantity:    input.Quantity,
		Category:    input.Category,
		Description: input.Description,
		Date:        date.UTC(),
	}

	if err := tx.Validate(); err != nil {
		return nil, err
	}

	// Dividends go through the update too so the holding's existence is checked under the lock
	var update domain.HoldingUpdate
	if tx.HoldingID != nil {
		update = func(h *domain.Holding) error { return trade(h, tx) }
	}

	if err := s.HoldingRepo.ApplyTransaction(ctx, tx, update); err != nil {
		return nil, fmt.Errorf("failed to record transaction: %w", err)
	}

	s.publish(ctx, tx)
	return tx, nil
}

// ReverseTransaction appends the offsetting transaction for txID, dated on (now when zero).
// Quantity effects are undone; the weighted-average cost basis is kept as is.
func (s *PositionService) ReverseTransaction(ctx context.Context, user domain.UserID, txID uuid.UUID, on time.Time) (*domain.Transaction, error) {
	original, err := s.TransactionRepo.GetTransaction(ctx, user, txID)
	if err != nil {
		return nil, err
	}

	reversed, err := s.TransactionRepo.IsReversed(ctx, user, txID)
	if err != nil {
		return nil, fmt.Errorf("failed to check reversal: %w", err)
	}
	if reversed {
		return nil, fmt.Errorf("%w: %s", domain.ErrAlreadyReversed, txID)
	}

	if on.IsZero() {
		on = s.Now()
	}
	reversal, err := original.Reverse(uuid.New(), on.UTC())
	if err != nil {
		return nil, err
	}

	var update domain.HoldingUpdate
	if reversal.Type.TradesQuantity() {
		update = func(h *domain.Holding) error {
			quantity := h.Quantity.Add(reversal.QuantityEffect())
			if quantity.IsNegative() {
				return fmt.Errorf("%w: holding %s has %s units, reversal needs %s",
					domain.ErrInsufficientQuantity, h.ID, h.Quantity, reversal.QuantityEffect().Neg())
			}
			setQuantity(h, quantity, reversal.Date)
			return nil
		}
	}

	// The store rejects a second reversal even when two calls pass the check above together
	if err := s.HoldingRepo.ApplyTransaction(ctx, reversal, update); err != nil {
		return nil, fmt.Errorf("failed to record reversal: %w", err)
	}

	s.publish(ctx, reversal)
	return reversal, nil
}

// RecordQuote stores a new price for an identifier.
// Quotes feed the stored price lookup; they never create a transaction.
// A configured PriceCache forgets the identifier so the next valuation sees the new price.
func (s *PositionService) RecordQuote(ctx context.Context, identifier string, price decimal.Decimal, on time.Time) (*domain.PriceQuote, error) {
	if on.IsZero() {
		on = s.Now()
	}
	quote := &domain.PriceQuote{
		ID:         uuid.New(),
		Identifier: identifier,
		Date:       on.UTC(),
		Price:      price,
	}
	if err := quote.Validate(); err != nil {
		return nil, err
	}
	if err := s.PriceRepo.AddQuote(ctx, quote); err != nil {
		return nil, fmt.Errorf("failed to record quote: %w", err)
	}
	if s.PriceCache != nil {
		s.PriceCache.Invalidate(identifier)
	}
	return quote, nil
}

// ListHoldings returns the user's open holdings
func (s *PositionService) ListHoldings(ctx context.Context, user domain.UserID) ([]*domain.Holding, error) {
	return s.HoldingRepo.ListHoldings(ctx, user)
}

// ListTransactions returns the user's transactions dated inside r, oldest first
func (s *PositionService) ListTransactions(ctx context.Context, user domain.UserID, r domain.DateRange) ([]*domain.Transaction, error) {
	return s.TransactionRepo.ListTransactions(ctx, user, r)
}

// trade applies a buy or a sell to the holding
func trade(h *domain.Holding, tx *domain.Transaction) error {
	switch tx.Type {
	case domain.TransactionTypeBuy:
		quantity := h.Quantity.Add(tx.Quantity)
		h.CostBasisPerUnit = h.CostBasis().Add(tx.Amount).Div(quantity).Round(costBasisPlaces)
		setQuantity(h, quantity, tx.Date)
	case domain.TransactionTypeSell:
		if tx.Quantity.GreaterThan(h.Quantity) || h.IsClosed() {
			return fmt.Errorf("%w: holding %s has %s units, sell needs %s",
				domain.ErrInsufficientQuantity, h.ID, h.Quantity, tx.Quantity)
		}
		setQuantity(h, h.Quantity.Sub(tx.Quantity), tx.Date)
	}
	return nil
}

// setQuantity updates the quantity and opens or closes the holding accordingly
func setQuantity(h *domain.Holding, quantity decimal.Decimal, on time.Time) {
	h.Quantity = quantity
	if quantity.IsZero() {
		closed := on
		h.ClosedAt = &closed
		return
	}
	h.ClosedAt = nil
}

func (s *PositionService) publish(ctx context.Context, tx *domain.Transaction) {
	if s.Publisher == nil {
		return
	}
	event := domain.TransactionRecorded{
		TransactionID: tx.ID,
		UserID:        tx.UserID,
		HoldingID:     tx.HoldingID,
		Type:          tx.Type,
		Amount:        tx.Amount,
		Reversal:      tx.IsReversal(),
		OccurredAt:    s.Now().UTC(),
	}
	if err := s.Publisher.Publish(ctx, domain.TopicTransactionRecorded, event); err != nil {
		s.Logger.Warn("failed to publish transaction",
			zap.String("transaction_id", tx.ID.String()),
			zap.Error(err),
		)
	}
}
