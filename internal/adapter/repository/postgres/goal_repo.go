package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simaogato/wealthflow-portfolio/internal/domain"
)

// goalRepository implements domain.GoalRepository
type goalRepository struct {
	db *DB
}

// NewGoalRepository creates a new goal repository
func NewGoalRepository(db *DB) domain.GoalRepository {
	return &goalRepository{db: db}
}

// ListGoals retrieves all goals of a user ordered by target date
func (r *goalRepository) ListGoals(ctx context.Context, user domain.UserID) ([]*domain.Goal, error) {
	query := `
		SELECT id, user_id, name, target_amount, target_date, category, scope,
		       priority, monthly_contribution, status, created_at
		FROM goals
		WHERE user_id = $1
		ORDER BY target_date, id
	`

	rows, err := r.db.QueryContext(ctx, query, string(user))
	if err != nil {
		return nil, fmt.Errorf("failed to list goals: %w", err)
	}
	defer rows.Close()

	goals := make([]*domain.Goal, 0)
	for rows.Next() {
		var g domain.Goal
		var userID, priority, status, targetStr, contributionStr string

		err := rows.Scan(
			&g.ID,
			&userID,
			&g.Name,
			&targetStr,
			&g.TargetDate,
			&g.Category,
			&g.Scope,
			&priority,
			&contributionStr,
			&status,
			&g.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan goal: %w", err)
		}
		g.UserID = domain.UserID(userID)
		g.Priority = domain.GoalPriority(priority)
		g.Status = domain.GoalStatus(status)
		g.TargetDate = g.TargetDate.UTC()
		g.CreatedAt = g.CreatedAt.UTC()

		if g.TargetAmount, err = decimal.NewFromString(targetStr); err != nil {
			return nil, fmt.Errorf("failed to parse target_amount: %w", err)
		}
		if g.MonthlyContribution, err = decimal.NewFromString(contributionStr); err != nil {
			return nil, fmt.Errorf("failed to parse monthly_contribution: %w", err)
		}

		goals = append(goals, &g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate goals: %w", err)
	}

	return goals, nil
}

// CreateGoal creates a new goal
func (r *goalRepository) CreateGoal(ctx context.Context, g *domain.Goal) error {
	query := `
		INSERT INTO goals (id, user_id, name, target_amount, target_date, category, scope,
		                   priority, monthly_contribution, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.ExecContext(ctx, query,
		g.ID,
		string(g.UserID),
		g.Name,
		g.TargetAmount.String(),
		g.TargetDate.UTC(),
		g.Category,
		g.Scope,
		string(g.Priority),
		g.MonthlyContribution.String(),
		string(g.Status),
		g.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to create goal: %w", err)
	}

	return nil
}

// UpdateStatus persists a goal state transition
func (r *goalRepository) UpdateStatus(ctx context.Context, user domain.UserID, id uuid.UUID, status domain.GoalStatus) error {
	query := `UPDATE goals SET status = $1 WHERE id = $2 AND user_id = $3`

	res, err := r.db.ExecContext(ctx, query, string(status), id, string(user))
	if err != nil {
		return fmt.Errorf("failed to update goal status: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: goal %s", domain.ErrNotFound, id)
	}

	return nil
}
