package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AllocationSlice is one share of the priced portfolio with the return earned on it
type AllocationSlice struct {
	Key           string          `json:"key"`
	Value         decimal.Decimal `json:"value"`
	Percent       decimal.Decimal `json:"percent"`
	CostBasis     decimal.Decimal `json:"cost_basis"`
	Gain          decimal.Decimal `json:"gain"` // value - cost basis
	ReturnPercent decimal.Decimal `json:"return_percent"`
}

// Allocation breaks the priced portfolio down by instrument type and by category.
// When pricing was incomplete the percentages are shares of the priced total only,
// and the shortfall is reported through Excluded and UnpricedCostBasis.
type Allocation struct {
	Total             decimal.Decimal   `json:"total"`
	ByInstrumentType  []AllocationSlice `json:"by_instrument_type"`
	ByCategory        []AllocationSlice `json:"by_category"`
	Partial           bool              `json:"partial"`
	Excluded          []uuid.UUID       `json:"excluded"`
	UnpricedCostBasis decimal.Decimal   `json:"unpriced_cost_basis"`
}

// CashFlowBucket totals the transactions dated inside [Start, End)
type CashFlowBucket struct {
	Start             time.Time                  `json:"start"`
	End               time.Time                  `json:"end"`
	Income            decimal.Decimal            `json:"income"`
	Expense           decimal.Decimal            `json:"expense"`
	Dividends         decimal.Decimal            `json:"dividends"`
	Buys              decimal.Decimal            `json:"buys"`
	Sells             decimal.Decimal            `json:"sells"`
	Net               decimal.Decimal            `json:"net"` // income + dividends - expense
	ExpenseByCategory map[string]decimal.Decimal `json:"expense_by_category"`
}

// NetWorthPoint is the net worth at a bucket boundary
type NetWorthPoint struct {
	At         time.Time                  `json:"at"`
	Cash       decimal.Decimal            `json:"cash"`
	Assets     decimal.Decimal            `json:"assets"`
	Total      decimal.Decimal            `json:"total"`
	ByCategory map[string]decimal.Decimal `json:"by_category"`
}

// NetWorthSeries is the rolling net worth over a bucketed range
type NetWorthSeries struct {
	Granularity Granularity     `json:"granularity"`
	Points      []NetWorthPoint `json:"points"`
	Partial     bool            `json:"partial"`
}

// ExpenseEntry is a single expense listed in the top expenses
type ExpenseEntry struct {
	TransactionID uuid.UUID       `json:"transaction_id"`
	Date          time.Time       `json:"date"`
	Category      string          `json:"category"`
	Description   string          `json:"description"`
	Amount        decimal.Decimal `json:"amount"`
}

// AnalyticsSummary is the aggregate analytics of one user over a date range.
// An empty range yields Empty=true with empty collections rather than an error.
type AnalyticsSummary struct {
	UserID      UserID           `json:"user_id"`
	Range       DateRange        `json:"range"`
	Granularity Granularity      `json:"granularity"`
	Empty       bool             `json:"empty"`
	Allocation  Allocation       `json:"allocation"`
	CashFlow    []CashFlowBucket `json:"cash_flow"`
	NetWorth    NetWorthSeries   `json:"net_worth"`
	TopExpenses []ExpenseEntry   `json:"top_expenses"`
}

// GoalProgress is the evaluation of one goal against a net worth series
type GoalProgress struct {
	GoalID                      uuid.UUID        `json:"goal_id"`
	Name                        string           `json:"name"`
	Status                      GoalStatus       `json:"status"`
	PreviousStatus              GoalStatus       `json:"previous_status"`
	TargetAmount                decimal.Decimal  `json:"target_amount"`
	CurrentValue                decimal.Decimal  `json:"current_value"`
	ProgressRatio               decimal.Decimal  `json:"progress_ratio"`
	Remaining                   decimal.Decimal  `json:"remaining"`
	GrowthPerBucket             decimal.Decimal  `json:"growth_per_bucket"`
	ProjectedDate               *time.Time       `json:"projected_date,omitempty"`
	Unreachable                 bool             `json:"unreachable"`
	DaysLeft                    int              `json:"days_left"`
	RequiredMonthlyContribution *decimal.Decimal `json:"required_monthly_contribution,omitempty"`
	MonthsAtContribution        *decimal.Decimal `json:"months_at_contribution,omitempty"`
	Partial                     bool             `json:"partial"`
}

// Transitioned reports whether the evaluation moved the goal to a new state
func (p *GoalProgress) Transitioned() bool {
	return p.Status != p.PreviousStatus
}
