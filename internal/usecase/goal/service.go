package goal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/simaogato/wealthflow-portfolio/internal/domain"
)

// SeriesSource supplies the net worth series goals are measured against
type SeriesSource interface {
	NetWorth(ctx context.Context, user domain.UserID, r domain.DateRange, g domain.Granularity) (*domain.NetWorthSeries, error)
}

// CreateGoalInput represents the input for creating a goal
type CreateGoalInput struct {
	UserID              domain.UserID
	Name                string
	TargetAmount        decimal.Decimal
	TargetDate          time.Time
	Category            string
	Scope               string // net_worth (default) or a holding category
	Priority            domain.GoalPriority
	MonthlyContribution decimal.Decimal
}

// GoalService handles goal creation and progress tracking
type GoalService struct {
	GoalRepo  domain.GoalRepository
	Series    SeriesSource
	Publisher domain.EventPublisher
	Options   Options
	Logger    *zap.Logger
	Now       func() time.Time
}

// NewGoalService creates a new GoalService instance
func NewGoalService(
	goalRepo domain.GoalRepository,
	series SeriesSource,
	publisher domain.EventPublisher,
	opts Options,
	logger *zap.Logger,
) *GoalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GoalService{
		GoalRepo:  goalRepo,
		Series:    series,
		Publisher: publisher,
		Options:   opts,
		Logger:    logger,
		Now:       time.Now,
	}
}

// CreateGoal validates and stores a new active goal
func (s *GoalService) CreateGoal(ctx context.Context, input CreateGoalInput) (*domain.Goal, error) {
	now := s.Now().UTC()

	priority := input.Priority
	if priority == "" {
		priority = domain.GoalPriorityMedium
	}
	scope := input.Scope
	if scope == "" {
		scope = domain.GoalScopeNetWorth
	}

	g := &domain.Goal{
		ID:                  uuid.New(),
		UserID:              input.UserID,
		Name:                input.Name,
		TargetAmount:        input.TargetAmount,
		TargetDate:          input.TargetDate.UTC(),
		Category:            input.Category,
		Scope:               scope,
		Priority:            priority,
		MonthlyContribution: input.MonthlyContribution,
		Status:              domain.GoalStatusActive,
		CreatedAt:           now,
	}

	if err := g.Validate(now); err != nil {
		return nil, err
	}

	if err := s.GoalRepo.CreateGoal(ctx, g); err != nil {
		return nil, fmt.Errorf("failed to create goal: %w", err)
	}

	return g, nil
}

// ListGoals returns the user's goals ordered by target date
func (s *GoalService) ListGoals(ctx context.Context, user domain.UserID) ([]*domain.Goal, error) {
	goals, err := s.GoalRepo.ListGoals(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to list goals: %w", err)
	}
	return goals, nil
}

// Progress evaluates every goal of the user against the trailing net worth series.
// Logic:
//  1. Build the series over the last TrailingBuckets buckets up to now
//  2. Evaluate each goal
//  3. Persist every state transition, then publish a goal.status_changed event
//
// Every caller, including read endpoints, records transitions: evaluating is what moves a
// goal to achieved or missed. Terminal states never change, so repeated calls publish once.
// A failed publish is logged and does not fail the call; the stored state is authoritative.
func (s *GoalService) Progress(ctx context.Context, user domain.UserID, g domain.Granularity) ([]domain.GoalProgress, error) {
	if !g.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidGranularity, g)
	}

	goals, err := s.ListGoals(ctx, user)
	if err != nil {
		return nil, err
	}
	if len(goals) == 0 {
		return []domain.GoalProgress{}, nil
	}

	now := s.Now().UTC()
	window := domain.DateRange{
		From: g.Advance(g.Truncate(now), -s.Options.trailingBuckets()),
		To:   now,
	}
	series, err := s.Series.NetWorth(ctx, user, window, g)
	if err != nil {
		return nil, fmt.Errorf("failed to build net worth series: %w", err)
	}

	results := make([]domain.GoalProgress, 0, len(goals))
	for _, goal := range goals {
		p := Evaluate(goal, series, now, s.Options)

		if p.Transitioned() {
			if err := s.GoalRepo.UpdateStatus(ctx, user, goal.ID, p.Status); err != nil {
				return nil, fmt.Errorf("failed to update goal status: %w", err)
			}
			s.Logger.Info("goal status changed",
				zap.String("goal_id", goal.ID.String()),
				zap.String("from", string(p.PreviousStatus)),
				zap.String("to", string(p.Status)),
			)
			s.publish(ctx, user, p, now)
		}

		results = append(results, p)
	}

	return results, nil
}

func (s *GoalService) publish(ctx context.Context, user domain.UserID, p domain.GoalProgress, now time.Time) {
	if s.Publisher == nil {
		return
	}
	event := domain.GoalStatusChanged{
		GoalID:        p.GoalID,
		UserID:        user,
		From:          p.PreviousStatus,
		To:            p.Status,
		ProgressRatio: p.ProgressRatio,
		OccurredAt:    now,
	}
	if err := s.Publisher.Publish(ctx, domain.TopicGoalStatusChanged, event); err != nil {
		s.Logger.Warn("failed to publish goal status change",
			zap.String("goal_id", p.GoalID.String()),
			zap.Error(err),
		)
	}
}
