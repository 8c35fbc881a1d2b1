package grpc

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/wealthflow-portfolio/internal/domain"
	"github.com/simaogato/wealthflow-portfolio/internal/usecase/analytics"
	"github.com/simaogato/wealthflow-portfolio/internal/usecase/goal"
	"github.com/simaogato/wealthflow-portfolio/internal/usecase/position"
	"github.com/simaogato/wealthflow-portfolio/internal/usecase/valuation"
)

// DefaultCurrency is used for display strings when none is configured
const DefaultCurrency = "INR"

// Server implements the PortfolioService gRPC server
type Server struct {
	ValuationService *valuation.ValuationService
	AnalyticsService *analytics.AnalyticsService
	GoalService      *goal.GoalService
	PositionService  *position.PositionService
	Currency         string
}

// NewServer creates a new gRPC server instance
func NewServer(
	valuationService *valuation.ValuationService,
	analyticsService *analytics.AnalyticsService,
	goalService *goal.GoalService,
	positionService *position.PositionService,
	currency string,
) *Server {
	if currency == "" {
		currency = DefaultCurrency
	}
	return &Server{
		ValuationService: valuationService,
		AnalyticsService: analyticsService,
		GoalService:      goalService,
		PositionService:  positionService,
		Currency:         currency,
	}
}

// GetValuation handles the GetValuation RPC
func (s *Server) GetValuation(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r := newRequest(req)
	user, err := r.user()
	if err != nil {
		return nil, err
	}

	result, err := s.ValuationService.Valuate(ctx, user)
	if err != nil {
		return nil, mapError(err)
	}

	resp, err := toStruct(result)
	if err != nil {
		return nil, err
	}
	withDisplay(resp, s.Currency, map[string]decimal.Decimal{
		"total_market_value":    result.TotalMarketValue,
		"total_cost_basis":      result.TotalCostBasis,
		"total_unrealized_gain": result.TotalUnrealizedGain,
	})
	return resp, nil
}

// GetAnalytics handles the GetAnalytics RPC
func (s *Server) GetAnalytics(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r := newRequest(req)
	user, err := r.user()
	if err != nil {
		return nil, err
	}
	from, err := r.time("from")
	if err != nil {
		return nil, err
	}
	to, err := r.time("to")
	if err != nil {
		return nil, err
	}
	g, err := r.granularity()
	if err != nil {
		return nil, err
	}

	summary, err := s.AnalyticsService.Summarize(ctx, user, domain.DateRange{From: from, To: to}, g)
	if err != nil {
		return nil, mapError(err)
	}

	resp, err := toStruct(summary)
	if err != nil {
		return nil, err
	}
	withDisplay(resp, s.Currency, map[string]decimal.Decimal{
		"allocation_total": summary.Allocation.Total,
	})
	return resp, nil
}

// GetGoalProgress handles the GetGoalProgress RPC. Status transitions found while
// evaluating are stored and published, as with the HTTP goals endpoint.
func (s *Server) GetGoalProgress(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r := newRequest(req)
	user, err := r.user()
	if err != nil {
		return nil, err
	}
	g, err := r.granularity()
	if err != nil {
		return nil, err
	}

	progress, err := s.GoalService.Progress(ctx, user, g)
	if err != nil {
		return nil, mapError(err)
	}

	return listStruct("goals", progress)
}

// AddHolding handles the AddHolding RPC
func (s *Server) AddHolding(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r := newRequest(req)
	user, err := r.user()
	if err != nil {
		return nil, err
	}
	quantity, err := r.decimal("quantity")
	if err != nil {
		return nil, err
	}
	costBasis, err := r.decimal("cost_basis_per_unit")
	if err != nil {
		return nil, err
	}
	acquired, err := r.time("acquisition_date")
	if err != nil {
		return nil, err
	}

	input := position.AddHoldingInput{
		UserID:           user,
		InstrumentType:   domain.InstrumentType(r.str("instrument_type")),
		Identifier:       r.str("identifier"),
		Name:             r.str("name"),
		Category:         r.str("category"),
		Quantity:         quantity,
		CostBasisPerUnit: costBasis,
		AcquisitionDate:  acquired,
	}

	h, err := s.PositionService.AddHolding(ctx, input)
	if err != nil {
		return nil, mapError(err)
	}
	return toStruct(h)
}

// RecordTransaction handles the RecordTransaction RPC
func (s *Server) RecordTransaction(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r := newRequest(req)
	user, err := r.user()
	if err != nil {
		return nil, err
	}
	holdingID, err := r.uuid("holding_id")
	if err != nil {
		return nil, err
	}
	amount, err := r.decimal("amount")
	if err != nil {
		return nil, err
	}
	quantity, err := r.decimal("quantity")
	if err != nil {
		return nil, err
	}
	date, err := r.time("date")
	if err != nil {
		return nil, err
	}

	input := position.RecordTransactionInput{
		UserID:      user,
		HoldingID:   holdingID,
		Type:        domain.TransactionType(r.str("type")),
		Amount:      amount,
		Quantity:    quantity,
		Category:    r.str("category"),
		Description: r.str("description"),
		Date:        date,
	}

	tx, err := s.PositionService.RecordTransaction(ctx, input)
	if err != nil {
		return nil, mapError(err)
	}
	return toStruct(tx)
}

// ReverseTransaction handles the ReverseTransaction RPC
func (s *Server) ReverseTransaction(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r := newRequest(req)
	user, err := r.user()
	if err != nil {
		return nil, err
	}
	txID, err := r.uuid("transaction_id")
	if err != nil {
		return nil, err
	}
	if txID == nil {
		return nil, status.Error(codes.InvalidArgument, "transaction_id is required")
	}
	date, err := r.time("date")
	if err != nil {
		return nil, err
	}

	reversal, err := s.PositionService.ReverseTransaction(ctx, user, *txID, date)
	if err != nil {
		return nil, mapError(err)
	}
	return toStruct(reversal)
}

// CreateGoal handles the CreateGoal RPC
func (s *Server) CreateGoal(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r := newRequest(req)
	user, err := r.user()
	if err != nil {
		return nil, err
	}
	target, err := r.decimal("target_amount")
	if err != nil {
		return nil, err
	}
	targetDate, err := r.time("target_date")
	if err != nil {
		return nil, err
	}
	contribution, err := r.decimal("monthly_contribution")
	if err != nil {
		return nil, err
	}

	input := goal.CreateGoalInput{
		UserID:              user,
		Name:                r.str("name"),
		TargetAmount:        target,
		TargetDate:          targetDate,
		Category:            r.str("category"),
		Scope:               r.str("scope"),
		Priority:            domain.GoalPriority(r.str("priority")),
		MonthlyContribution: contribution,
	}

	g, err := s.GoalService.CreateGoal(ctx, input)
	if err != nil {
		return nil, mapError(err)
	}
	return toStruct(g)
}

// RecordQuote handles the RecordQuote RPC
func (s *Server) RecordQuote(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r := newRequest(req)
	price, err := r.decimal("price")
	if err != nil {
		return nil, err
	}
	date, err := r.time("date")
	if err != nil {
		return nil, err
	}

	quote, err := s.PositionService.RecordQuote(ctx, r.str("identifier"), price, date)
	if err != nil {
		return nil, mapError(err)
	}
	return toStruct(quote)
}

// mapError converts domain errors to gRPC status errors
func mapError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, domain.ErrInvalidHolding),
		errors.Is(err, domain.ErrInvalidTransaction),
		errors.Is(err, domain.ErrInvalidGoal),
		errors.Is(err, domain.ErrInvalidRange),
		errors.Is(err, domain.ErrInvalidGranularity),
		errors.Is(err, domain.ErrPriceUnavailable):
		return status.Errorf(codes.InvalidArgument, "%s", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return status.Errorf(codes.NotFound, "%s", err.Error())
	case errors.Is(err, domain.ErrInsufficientQuantity),
		errors.Is(err, domain.ErrAlreadyReversed):
		return status.Errorf(codes.FailedPrecondition, "%s", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Errorf(codes.DeadlineExceeded, "%s", err.Error())
	case errors.Is(err, context.Canceled):
		return status.Errorf(codes.Canceled, "%s", err.Error())
	}

	// Default to Internal error for unknown errors
	return status.Errorf(codes.Internal, "%s", err.Error())
}

var _ PortfolioServer = (*Server)(nil)
