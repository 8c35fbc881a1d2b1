package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event topics
const (
	TopicGoalStatusChanged   = "goal.status_changed"
	TopicTransactionRecorded = "transaction.recorded"
)

// GoalStatusChanged is published when an evaluation moves a goal to a terminal state
type GoalStatusChanged struct {
	GoalID        uuid.UUID       `json:"goal_id"`
	UserID        UserID          `json:"user_id"`
	From          GoalStatus      `json:"from"`
	To            GoalStatus      `json:"to"`
	ProgressRatio decimal.Decimal `json:"progress_ratio"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// TransactionRecorded is published after a transaction (or reversal) is stored
type TransactionRecorded struct {
	TransactionID uuid.UUID       `json:"transaction_id"`
	UserID        UserID          `json:"user_id"`
	HoldingID     *uuid.UUID      `json:"holding_id,omitempty"`
	Type          TransactionType `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	Reversal      bool            `json:"reversal"`
	OccurredAt    time.Time       `json:"occurred_at"`
}
