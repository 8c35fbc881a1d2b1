package seeder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simaogato/wealthflow-portfolio/internal/domain"
)

// DemoUser owns the seeded demo portfolio
const DemoUser domain.UserID = "demo"

// Fixed UUIDs for the demo holdings so reseeding is idempotent
var (
	DEMO_EQUITY_FUND = uuid.MustParse("00000000-0000-0000-0000-000000000101")
	DEMO_DEBT_FUND   = uuid.MustParse("00000000-0000-0000-0000-000000000102")
	DEMO_STOCK       = uuid.MustParse("00000000-0000-0000-0000-000000000103")
	DEMO_GOAL        = uuid.MustParse("00000000-0000-0000-0000-000000000201")
)

// demoNamespace derives stable transaction and quote IDs from their names
var demoNamespace = uuid.MustParse("6f1c2b7e-3f4a-4c1d-9a51-7d2f3c9e0b11")

// DemoHolding defines a holding to be seeded together with its latest quote
type DemoHolding struct {
	ID               uuid.UUID
	InstrumentType   domain.InstrumentType
	Identifier       string
	Name             string
	Category         string
	Quantity         decimal.Decimal
	CostBasisPerUnit decimal.Decimal
	Price            decimal.Decimal
	MonthsAgo        int
}

// DemoSeeder fills the stores with a small demo portfolio
type DemoSeeder struct {
	holdings     domain.HoldingRepository
	transactions domain.TransactionRepository
	goals        domain.GoalRepository
	prices       domain.PriceRepository
	now          func() time.Time
}

// NewDemoSeeder creates a new DemoSeeder instance
func NewDemoSeeder(
	holdings domain.HoldingRepository,
	transactions domain.TransactionRepository,
	goals domain.GoalRepository,
	prices domain.PriceRepository,
	now func() time.Time,
) *DemoSeeder {
	if now == nil {
		now = time.Now
	}
	return &DemoSeeder{
		holdings:     holdings,
		transactions: transactions,
		goals:        goals,
		prices:       prices,
		now:          now,
	}
}

// DemoHoldings returns the holdings the seeder creates
func DemoHoldings() []DemoHolding {
	return []DemoHolding{
		{
			ID:               DEMO_EQUITY_FUND,
			InstrumentType:   domain.InstrumentTypeMutualFund,
			Identifier:       "120503",
			Name:             "Axis Bluechip Fund - Direct Growth",
			Category:         "Equity",
			Quantity:         decimal.RequireFromString("812.345"),
			CostBasisPerUnit: decimal.RequireFromString("45.10"),
			Price:            decimal.RequireFromString("58.72"),
			MonthsAgo:        14,
		},
		{
			ID:               DEMO_DEBT_FUND,
			InstrumentType:   domain.InstrumentTypeMutualFund,
			Identifier:       "119551",
			Name:             "HDFC Short Term Debt Fund - Direct Growth",
			Category:         "Debt",
			Quantity:         decimal.RequireFromString("1500"),
			CostBasisPerUnit: decimal.RequireFromString("27.40"),
			Price:            decimal.RequireFromString("29.05"),
			MonthsAgo:        9,
		},
		{
			ID:               DEMO_STOCK,
			InstrumentType:   domain.InstrumentTypeStock,
			Identifier:       "INFY.NS",
			Name:             "Infosys",
			Category:         "Information Technology",
			Quantity:         decimal.NewFromInt(40),
			CostBasisPerUnit: decimal.RequireFromString("1420.50"),
			Price:            decimal.RequireFromString("1510.00"),
			MonthsAgo:        5,
		},
	}
}

// Seed ensures the demo portfolio exists.
// Every record has a stable ID; records already present are left untouched.
func (s *DemoSeeder) Seed(ctx context.Context) error {
	now := s.now().UTC()
	month := domain.GranularityMonthly.Truncate(now)

	for _, dh := range DemoHoldings() {
		if err := s.seedHolding(ctx, dh, month); err != nil {
			return err
		}
		if err := s.seedQuote(ctx, dh, now); err != nil {
			return err
		}
	}

	for _, tx := range demoTransactions(month) {
		if err := s.seedTransaction(ctx, tx); err != nil {
			return err
		}
	}

	return s.seedGoal(ctx, now)
}

func (s *DemoSeeder) seedHolding(ctx context.Context, dh DemoHolding, month time.Time) error {
	_, err := s.holdings.GetHolding(ctx, DemoUser, dh.ID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("failed to look up demo holding: %w", err)
	}

	h := &domain.Holding{
		ID:               dh.ID,
		UserID:           DemoUser,
		InstrumentType:   dh.InstrumentType,
		Identifier:       dh.Identifier,
		Name:             dh.Name,
		Category:         dh.Category,
		Quantity:         dh.Quantity,
		CostBasisPerUnit: dh.CostBasisPerUnit,
		AcquisitionDate:  month.AddDate(0, -dh.MonthsAgo, 0),
	}
	if err := h.Validate(); err != nil {
		return err
	}
	return s.holdings.CreateHolding(ctx, h)
}

func (s *DemoSeeder) seedQuote(ctx context.Context, dh DemoHolding, now time.Time) error {
	_, err := s.prices.LatestQuote(ctx, dh.Identifier)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("failed to look up demo quote: %w", err)
	}

	quote := &domain.PriceQuote{
		ID:         uuid.NewSHA1(demoNamespace, []byte("quote/"+dh.Identifier)),
		Identifier: dh.Identifier,
		Date:       now,
		Price:      dh.Price,
	}
	return s.prices.AddQuote(ctx, quote)
}

func (s *DemoSeeder) seedTransaction(ctx context.Context, tx *domain.Transaction) error {
	_, err := s.transactions.GetTransaction(ctx, DemoUser, tx.ID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("failed to look up demo transaction: %w", err)
	}
	if err := tx.Validate(); err != nil {
		return err
	}
	return s.holdings.ApplyTransaction(ctx, tx, nil)
}

func (s *DemoSeeder) seedGoal(ctx context.Context, now time.Time) error {
	goals, err := s.goals.ListGoals(ctx, DemoUser)
	if err != nil {
		return fmt.Errorf("failed to list demo goals: %w", err)
	}
	for _, g := range goals {
		if g.ID == DEMO_GOAL {
			return nil
		}
	}

	g := &domain.Goal{
		ID:                  DEMO_GOAL,
		UserID:              DemoUser,
		Name:                "Emergency Fund",
		TargetAmount:        decimal.NewFromInt(600000),
		TargetDate:          domain.GranularityMonthly.Truncate(now).AddDate(2, 0, 0),
		Category:            "Emergency Fund",
		Scope:               domain.GoalScopeNetWorth,
		Priority:            domain.GoalPriorityHigh,
		MonthlyContribution: decimal.NewFromInt(15000),
		Status:              domain.GoalStatusActive,
		CreatedAt:           now,
	}
	if err := g.Validate(now); err != nil {
		return err
	}
	return s.goals.CreateGoal(ctx, g)
}

// demoTransactions is six months of salary, rent and groceries ending with the current month
func demoTransactions(month time.Time) []*domain.Transaction {
	txs := make([]*domain.Transaction, 0, 18)
	for i := 5; i >= 0; i-- {
		start := month.AddDate(0, -i, 0)
		key := start.Format("2006-01")
		txs = append(txs,
			demoTx("salary/"+key, domain.TransactionTypeIncome, 85000, "Salary", "Monthly salary", start),
			demoTx("rent/"+key, domain.TransactionTypeExpense, 25000, "Housing", "Rent", start.AddDate(0, 0, 2)),
			demoTx("groceries/"+key, domain.TransactionTypeExpense, 8000+int64(i)*350, "Food", "Groceries", start.AddDate(0, 0, 9)),
		)
	}
	return txs
}

func demoTx(name string, typ domain.TransactionType, amount int64, category, description string, date time.Time) *domain.Transaction {
	return &domain.Transaction{
		ID:          uuid.NewSHA1(demoNamespace, []byte(name)),
		UserID:      DemoUser,
		Type:        typ,
		Amount:      decimal.NewFromInt(amount),
		Category:    category,
		Description: description,
		Date:        date,
	}
}
