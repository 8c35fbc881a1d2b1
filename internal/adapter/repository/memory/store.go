package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simaogato/wealthflow-portfolio/internal/domain"
)

// Store is an in-memory implementation of every repository and of the price lookup.
// It is safe for concurrent use; values go in and come out as copies so callers can
// never mutate stored state.
type Store struct {
	mu           sync.RWMutex
	holdings     map[uuid.UUID]domain.Holding
	transactions []domain.Transaction // insertion order
	goals        map[uuid.UUID]domain.Goal
	quotes       map[string][]domain.PriceQuote
}

// NewStore creates and returns an empty Store
func NewStore() *Store {
	return &Store{
		holdings:     make(map[uuid.UUID]domain.Holding),
		transactions: make([]domain.Transaction, 0),
		goals:        make(map[uuid.UUID]domain.Goal),
		quotes:       make(map[string][]domain.PriceQuote),
	}
}

// ListHoldings returns the user's open holdings ordered by acquisition date
func (s *Store) ListHoldings(ctx context.Context, user domain.UserID) ([]*domain.Holding, error) {
	return s.listHoldings(user, false), nil
}

// ListAllHoldings returns the user's open and closed holdings ordered by acquisition date
func (s *Store) ListAllHoldings(ctx context.Context, user domain.UserID) ([]*domain.Holding, error) {
	return s.listHoldings(user, true), nil
}

func (s *Store) listHoldings(user domain.UserID, includeClosed bool) []*domain.Holding {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Holding, 0)
	for _, h := range s.holdings {
		if h.UserID == user && (includeClosed || !h.IsClosed()) {
			result = append(result, copyHolding(h))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].AcquisitionDate.Equal(result[j].AcquisitionDate) {
			return result[i].AcquisitionDate.Before(result[j].AcquisitionDate)
		}
		return result[i].ID.String() < result[j].ID.String()
	})
	return result
}

// GetHolding returns one of the user's holdings, open or closed
func (s *Store) GetHolding(ctx context.Context, user domain.UserID, id uuid.UUID) (*domain.Holding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.holdings[id]
	if !ok || h.UserID != user {
		return nil, fmt.Errorf("%w: holding %s", domain.ErrNotFound, id)
	}
	return copyHolding(h), nil
}

// CreateHolding stores a new holding
func (s *Store) CreateHolding(ctx context.Context, holding *domain.Holding) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.holdings[holding.ID]; exists {
		return fmt.Errorf("%w: holding %s already exists", domain.ErrInvalidHolding, holding.ID)
	}
	s.holdings[holding.ID] = *copyHolding(*holding)
	return nil
}

// ApplyTransaction appends tx and applies update to the referenced holding under one lock
func (s *Store) ApplyTransaction(ctx context.Context, tx *domain.Transaction, update domain.HoldingUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.transactions {
		existing := &s.transactions[i]
		if existing.ID == tx.ID {
			return fmt.Errorf("%w: transaction %s already exists", domain.ErrInvalidTransaction, tx.ID)
		}
		if tx.ReversesID != nil && existing.ReversesID != nil && *existing.ReversesID == *tx.ReversesID {
			return fmt.Errorf("%w: %s", domain.ErrAlreadyReversed, *tx.ReversesID)
		}
	}

	var updated *domain.Holding
	if update != nil && tx.HoldingID != nil {
		current, ok := s.holdings[*tx.HoldingID]
		if !ok || current.UserID != tx.UserID {
			return fmt.Errorf("%w: holding %s", domain.ErrNotFound, *tx.HoldingID)
		}
		updated = copyHolding(current)
		if err := update(updated); err != nil {
			return err
		}
	}

	if updated != nil {
		s.holdings[updated.ID] = *copyHolding(*updated)
	}
	s.transactions = append(s.transactions, *copyTransaction(*tx))
	return nil
}

// ListTransactions returns the user's transactions dated inside r, oldest first
func (s *Store) ListTransactions(ctx context.Context, user domain.UserID, r domain.DateRange) ([]*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Transaction, 0)
	for _, tx := range s.transactions {
		if tx.UserID == user && r.Contains(tx.Date) {
			result = append(result, copyTransaction(tx))
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})
	return result, nil
}

// GetTransaction returns one of the user's transactions
func (s *Store) GetTransaction(ctx context.Context, user domain.UserID, id uuid.UUID) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, tx := range s.transactions {
		if tx.ID == id && tx.UserID == user {
			return copyTransaction(tx), nil
		}
	}
	return nil, fmt.Errorf("%w: transaction %s", domain.ErrNotFound, id)
}

// IsReversed reports whether a reversal of id was recorded
func (s *Store) IsReversed(ctx context.Context, user domain.UserID, id uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, tx := range s.transactions {
		if tx.UserID == user && tx.ReversesID != nil && *tx.ReversesID == id {
			return true, nil
		}
	}
	return false, nil
}

// ListGoals returns the user's goals ordered by target date
func (s *Store) ListGoals(ctx context.Context, user domain.UserID) ([]*domain.Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Goal, 0)
	for _, g := range s.goals {
		if g.UserID == user {
			goal := g
			result = append(result, &goal)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].TargetDate.Equal(result[j].TargetDate) {
			return result[i].TargetDate.Before(result[j].TargetDate)
		}
		return result[i].ID.String() < result[j].ID.String()
	})
	return result, nil
}

// CreateGoal stores a new goal
func (s *Store) CreateGoal(ctx context.Context, goal *domain.Goal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.goals[goal.ID]; exists {
		return fmt.Errorf("%w: goal %s already exists", domain.ErrInvalidGoal, goal.ID)
	}
	s.goals[goal.ID] = *goal
	return nil
}

// UpdateStatus persists a goal state transition
func (s *Store) UpdateStatus(ctx context.Context, user domain.UserID, id uuid.UUID, status domain.GoalStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.goals[id]
	if !ok || g.UserID != user {
		return fmt.Errorf("%w: goal %s", domain.ErrNotFound, id)
	}
	g.Status = status
	s.goals[id] = g
	return nil
}

// AddQuote records a new price quote
func (s *Store) AddQuote(ctx context.Context, quote *domain.PriceQuote) error {
	if err := quote.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.quotes[quote.Identifier] = append(s.quotes[quote.Identifier], *quote)
	return nil
}

// LatestQuote returns the most recent quote for identifier.
// Of two quotes with the same date the one added last wins.
func (s *Store) LatestQuote(ctx context.Context, identifier string) (*domain.PriceQuote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	quotes := s.quotes[identifier]
	if len(quotes) == 0 {
		return nil, fmt.Errorf("%w: no quote for %s", domain.ErrNotFound, identifier)
	}
	latest := quotes[0]
	for _, q := range quotes[1:] {
		if !q.Date.Before(latest.Date) {
			latest = q
		}
	}
	return &latest, nil
}

// Lookup serves the latest stored quote as the current price
func (s *Store) Lookup(ctx context.Context, identifier string) (decimal.Decimal, error) {
	q, err := s.LatestQuote(ctx, identifier)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", domain.ErrPriceUnavailable, err)
	}
	return q.Price, nil
}

func copyHolding(h domain.Holding) *domain.Holding {
	if h.ClosedAt != nil {
		closed := *h.ClosedAt
		h.ClosedAt = &closed
	}
	return &h
}

func copyTransaction(tx domain.Transaction) *domain.Transaction {
	if tx.HoldingID != nil {
		id := *tx.HoldingID
		tx.HoldingID = &id
	}
	if tx.ReversesID != nil {
		id := *tx.ReversesID
		tx.ReversesID = &id
	}
	return &tx
}

// Compile-time checks: ensure Store implements the repository interfaces
var (
	_ domain.HoldingRepository     = (*Store)(nil)
	_ domain.TransactionRepository = (*Store)(nil)
	_ domain.GoalRepository        = (*Store)(nil)
	_ domain.PriceRepository       = (*Store)(nil)
	_ domain.PriceLookup           = (*Store)(nil)
)
