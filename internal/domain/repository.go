package domain

import (
	"context"

	"github.com/google/uuid"
)

// HoldingRepository defines the interface for holding persistence operations
type HoldingRepository interface {
	// ListHoldings retrieves the open holdings of a user.
	// Closed (fully disposed) holdings are not returned.
	ListHoldings(ctx context.Context, user UserID) ([]*Holding, error)

	// ListAllHoldings retrieves every holding of a user, open and closed
	ListAllHoldings(ctx context.Context, user UserID) ([]*Holding, error)

	// GetHolding retrieves a holding by its ID, open or closed
	GetHolding(ctx context.Context, user UserID, id uuid.UUID) (*Holding, error)

	// CreateHolding creates a new holding
	CreateHolding(ctx context.Context, holding *Holding) error

	// ApplyTransaction appends tx and, when update is not nil, applies update to the
	// holding tx references. update runs against the stored holding while it is locked
	// (store mutex or row lock), so concurrent trades see each other; an error from
	// update aborts the whole write. A second reversal of the same transaction fails
	// with ErrAlreadyReversed.
	ApplyTransaction(ctx context.Context, tx *Transaction, update HoldingUpdate) error
}

// HoldingUpdate mutates a holding inside the same atomic write as a transaction insert
type HoldingUpdate func(h *Holding) error

// TransactionRepository defines the interface for transaction persistence operations
type TransactionRepository interface {
	// ListTransactions retrieves a user's transactions dated inside r, oldest first
	ListTransactions(ctx context.Context, user UserID, r DateRange) ([]*Transaction, error)

	// GetTransaction retrieves a transaction by its ID
	GetTransaction(ctx context.Context, user UserID, id uuid.UUID) (*Transaction, error)

	// IsReversed reports whether a reversal referencing id exists
	IsReversed(ctx context.Context, user UserID, id uuid.UUID) (bool, error)
}

// GoalRepository defines the interface for goal persistence operations
type GoalRepository interface {
	// ListGoals retrieves all goals of a user ordered by target date
	ListGoals(ctx context.Context, user UserID) ([]*Goal, error)

	// CreateGoal creates a new goal
	CreateGoal(ctx context.Context, goal *Goal) error

	// UpdateStatus persists a goal state transition
	UpdateStatus(ctx context.Context, user UserID, id uuid.UUID, status GoalStatus) error
}

// PriceRepository defines the interface for price quote persistence operations
type PriceRepository interface {
	// AddQuote records a new quote
	AddQuote(ctx context.Context, quote *PriceQuote) error

	// LatestQuote retrieves the most recent quote for an identifier
	LatestQuote(ctx context.Context, identifier string) (*PriceQuote, error)
}

// EventPublisher publishes domain events to interested consumers
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event any) error
}
