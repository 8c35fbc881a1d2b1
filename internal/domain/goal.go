package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GoalStatus represents the lifecycle state of a goal.
//
//	active -> achieved (progress ratio >= 1)
//	active -> missed   (target date passed, progress ratio < 1)
//
// achieved and missed are terminal.
type GoalStatus string

const (
	GoalStatusActive   GoalStatus = "active"
	GoalStatusAchieved GoalStatus = "achieved"
	GoalStatusMissed   GoalStatus = "missed"
)

// IsTerminal reports whether no further transition is possible
func (s GoalStatus) IsTerminal() bool {
	return s == GoalStatusAchieved || s == GoalStatusMissed
}

// GoalPriority mirrors the low/medium/high priority users pick when creating a goal
type GoalPriority string

const (
	GoalPriorityLow    GoalPriority = "low"
	GoalPriorityMedium GoalPriority = "medium"
	GoalPriorityHigh   GoalPriority = "high"
)

// GoalScopeNetWorth tracks a goal against total net worth.
// Any other scope names a holding category.
const GoalScopeNetWorth = "net_worth"

// Goal represents a user-defined savings target
type Goal struct {
	ID                  uuid.UUID       `json:"id"`
	UserID              UserID          `json:"user_id"`
	Name                string          `json:"name"`
	TargetAmount        decimal.Decimal `json:"target_amount"`
	TargetDate          time.Time       `json:"target_date"`
	Category            string          `json:"category"` // Emergency Fund, Retirement, House Purchase, ...
	Scope               string          `json:"scope"`
	Priority            GoalPriority    `json:"priority"`
	MonthlyContribution decimal.Decimal `json:"monthly_contribution"`
	Status              GoalStatus      `json:"status"`
	CreatedAt           time.Time       `json:"created_at"`
}

// Validate ensures the goal adheres to domain rules at creation time.
// The target date must lie strictly after now.
func (g *Goal) Validate(now time.Time) error {
	if g.UserID == "" {
		return fmt.Errorf("%w: user is required", ErrInvalidGoal)
	}
	if g.Name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidGoal)
	}
	if !g.TargetAmount.IsPositive() {
		return fmt.Errorf("%w: target amount must be positive", ErrInvalidGoal)
	}
	if !g.TargetDate.After(now) {
		return fmt.Errorf("%w: target date must be in the future", ErrInvalidGoal)
	}
	if g.MonthlyContribution.IsNegative() {
		return fmt.Errorf("%w: monthly contribution cannot be negative", ErrInvalidGoal)
	}
	switch g.Priority {
	case "", GoalPriorityLow, GoalPriorityMedium, GoalPriorityHigh:
	default:
		return fmt.Errorf("%w: unknown priority %q", ErrInvalidGoal, g.Priority)
	}
	return nil
}

// TracksNetWorth reports whether the goal is measured against total net worth
func (g *Goal) TracksNetWorth() bool {
	return g.Scope == "" || g.Scope == GoalScopeNetWorth
}
