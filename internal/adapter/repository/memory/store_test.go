package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/wealthflow-portfolio/internal/domain"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newHolding(user domain.UserID, acquired time.Time) *domain.Holding {
	return &domain.Holding{
		ID:               uuid.New(),
		UserID:           user,
		InstrumentType:   domain.InstrumentTypeStock,
		Identifier:       "TCS",
		Quantity:         decimal.NewFromInt(3),
		CostBasisPerUnit: decimal.NewFromInt(3000),
		AcquisitionDate:  acquired,
	}
}

func TestStore_HoldingsAreScopedAndCopied(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	mine := newHolding("u1", day(2024, 2, 1))
	older := newHolding("u1", day(2023, 2, 1))
	theirs := newHolding("u2", day(2024, 1, 1))
	for _, h := range []*domain.Holding{mine, older, theirs} {
		require.NoError(t, s.CreateHolding(ctx, h))
	}

	list, err := s.ListHoldings(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, older.ID, list[0].ID)
	assert.Equal(t, mine.ID, list[1].ID)

	// mutating a returned value never leaks into the store
	list[0].Quantity = decimal.NewFromInt(999)
	again, err := s.GetHolding(ctx, "u1", older.ID)
	require.NoError(t, err)
	assert.True(t, again.Quantity.Equal(decimal.NewFromInt(3)))

	_, err = s.GetHolding(ctx, "u1", theirs.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, s.CreateHolding(ctx, mine), domain.ErrInvalidHolding)
}

func TestStore_ApplyTransactionClosesAndHidesHolding(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	h := newHolding("u1", day(2024, 1, 1))
	require.NoError(t, s.CreateHolding(ctx, h))

	closed := day(2024, 3, 1)
	sell := &domain.Transaction{
		ID: uuid.New(), UserID: "u1", HoldingID: &h.ID, Type: domain.TransactionTypeSell,
		Amount: decimal.NewFromInt(9500), Quantity: decimal.NewFromInt(3), Date: closed,
	}
	require.NoError(t, s.ApplyTransaction(ctx, sell, func(stored *domain.Holding) error {
		assert.True(t, stored.Quantity.Equal(decimal.NewFromInt(3)))
		stored.Quantity = decimal.Zero
		stored.ClosedAt = &closed
		return nil
	}))

	list, err := s.ListHoldings(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, list)

	all, err := s.ListAllHoldings(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].IsClosed())

	kept, err := s.GetHolding(ctx, "u1", h.ID)
	require.NoError(t, err)
	assert.True(t, kept.IsClosed())

	assert.ErrorIs(t, s.ApplyTransaction(ctx, sell, nil), domain.ErrInvalidTransaction)
}

func TestStore_ApplyTransactionUpdateFailures(t *testing.T) {
	ctx := context.Background()
	h := newHolding("u1", day(2024, 1, 1))
	noop := func(*domain.Holding) error { return nil }

	tests := []struct {
		name      string
		holdingID uuid.UUID
		user      domain.UserID
		update    domain.HoldingUpdate
		wantErr   error
	}{
		{
			name:      "unknown holding",
			holdingID: uuid.New(),
			user:      "u1",
			update:    noop,
			wantErr:   domain.ErrNotFound,
		},
		{
			name:      "holding of another user",
			holdingID: h.ID,
			user:      "u2",
			update:    noop,
			wantErr:   domain.ErrNotFound,
		},
		{
			name:      "update rejects",
			holdingID: h.ID,
			user:      "u1",
			update:    func(*domain.Holding) error { return domain.ErrInsufficientQuantity },
			wantErr:   domain.ErrInsufficientQuantity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore()
			require.NoError(t, s.CreateHolding(ctx, h))
			id := tt.holdingID
			tx := &domain.Transaction{
				ID: uuid.New(), UserID: tt.user, HoldingID: &id, Type: domain.TransactionTypeSell,
				Amount: decimal.NewFromInt(1), Quantity: decimal.NewFromInt(1), Date: day(2024, 2, 1),
			}

			assert.ErrorIs(t, s.ApplyTransaction(ctx, tx, tt.update), tt.wantErr)

			// nothing is written when the call fails
			txs, err := s.ListTransactions(ctx, tt.user, domain.DateRange{})
			require.NoError(t, err)
			assert.Empty(t, txs)
			stored, err := s.GetHolding(ctx, "u1", h.ID)
			require.NoError(t, err)
			assert.True(t, stored.Quantity.Equal(h.Quantity))
		})
	}
}

func TestStore_ListTransactionsFiltersAndOrders(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	income := func(date time.Time, user domain.UserID) *domain.Transaction {
		return &domain.Transaction{ID: uuid.New(), UserID: user, Type: domain.TransactionTypeIncome, Amount: decimal.NewFromInt(1), Date: date}
	}
	late := income(day(2024, 3, 1), "u1")
	early := income(day(2024, 1, 1), "u1")
	boundary := income(day(2024, 4, 1), "u1")
	foreign := income(day(2024, 2, 1), "u2")
	for _, tx := range []*domain.Transaction{late, early, boundary, foreign} {
		require.NoError(t, s.ApplyTransaction(ctx, tx, nil))
	}

	list, err := s.ListTransactions(ctx, "u1", domain.DateRange{From: day(2024, 1, 1), To: day(2024, 4, 1)})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, early.ID, list[0].ID)
	assert.Equal(t, late.ID, list[1].ID)

	all, err := s.ListTransactions(ctx, "u1", domain.DateRange{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestStore_Reversals(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	tx := &domain.Transaction{ID: uuid.New(), UserID: "u1", Type: domain.TransactionTypeExpense, Amount: decimal.NewFromInt(10), Date: day(2024, 1, 5)}
	require.NoError(t, s.ApplyTransaction(ctx, tx, nil))

	reversed, err := s.IsReversed(ctx, "u1", tx.ID)
	require.NoError(t, err)
	assert.False(t, reversed)

	reversal, err := tx.Reverse(uuid.New(), day(2024, 1, 6))
	require.NoError(t, err)
	require.NoError(t, s.ApplyTransaction(ctx, reversal, nil))

	reversed, err = s.IsReversed(ctx, "u1", tx.ID)
	require.NoError(t, err)
	assert.True(t, reversed)

	again, err := tx.Reverse(uuid.New(), day(2024, 1, 7))
	require.NoError(t, err)
	assert.ErrorIs(t, s.ApplyTransaction(ctx, again, nil), domain.ErrAlreadyReversed)

	got, err := s.GetTransaction(ctx, "u1", reversal.ID)
	require.NoError(t, err)
	assert.Equal(t, tx.ID, *got.ReversesID)

	_, err = s.GetTransaction(ctx, "u2", tx.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_Goals(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	later := &domain.Goal{ID: uuid.New(), UserID: "u1", Name: "House", TargetDate: day(2030, 1, 1), Status: domain.GoalStatusActive}
	sooner := &domain.Goal{ID: uuid.New(), UserID: "u1", Name: "Car", TargetDate: day(2026, 1, 1), Status: domain.GoalStatusActive}
	require.NoError(t, s.CreateGoal(ctx, later))
	require.NoError(t, s.CreateGoal(ctx, sooner))

	require.NoError(t, s.UpdateStatus(ctx, "u1", sooner.ID, domain.GoalStatusAchieved))

	goals, err := s.ListGoals(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, goals, 2)
	assert.Equal(t, sooner.ID, goals[0].ID)
	assert.Equal(t, domain.GoalStatusAchieved, goals[0].Status)

	assert.ErrorIs(t, s.UpdateStatus(ctx, "u2", later.ID, domain.GoalStatusMissed), domain.ErrNotFound)
	assert.ErrorIs(t, s.CreateGoal(ctx, later), domain.ErrInvalidGoal)
}

func TestStore_QuotesAndLookup(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	_, err := s.Lookup(ctx, "INFY")
	assert.ErrorIs(t, err, domain.ErrPriceUnavailable)
	_, err = s.LatestQuote(ctx, "INFY")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, s.AddQuote(ctx, &domain.PriceQuote{ID: uuid.New(), Identifier: "INFY", Date: day(2024, 5, 2), Price: decimal.NewFromInt(1500)}))
	require.NoError(t, s.AddQuote(ctx, &domain.PriceQuote{ID: uuid.New(), Identifier: "INFY", Date: day(2024, 5, 1), Price: decimal.NewFromInt(1400)}))
	require.NoError(t, s.AddQuote(ctx, &domain.PriceQuote{ID: uuid.New(), Identifier: "INFY", Date: day(2024, 5, 2), Price: decimal.NewFromInt(1510)}))

	price, err := s.Lookup(ctx, "INFY")
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.NewFromInt(1510)))

	assert.Error(t, s.AddQuote(ctx, &domain.PriceQuote{Identifier: "INFY", Price: decimal.NewFromInt(-1)}))
}

func TestStore_ConcurrentWrites(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tx := &domain.Transaction{ID: uuid.New(), UserID: "u1", Type: domain.TransactionTypeIncome, Amount: decimal.NewFromInt(1), Date: day(2024, 1, 1)}
			_ = s.ApplyTransaction(ctx, tx, nil)
			_, _ = s.ListTransactions(ctx, "u1", domain.DateRange{})
		}()
	}
	wg.Wait()

	all, err := s.ListTransactions(ctx, "u1", domain.DateRange{})
	require.NoError(t, err)
	assert.Len(t, all, 50)
}

func TestStore_ConcurrentReversalsOfOneTransaction(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	tx := &domain.Transaction{ID: uuid.New(), UserID: "u1", Type: domain.TransactionTypeExpense, Amount: decimal.NewFromInt(10), Date: day(2024, 1, 5)}
	require.NoError(t, s.ApplyTransaction(ctx, tx, nil))

	const attempts = 20
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reversal, err := tx.Reverse(uuid.New(), day(2024, 1, 6))
			if err != nil {
				errs <- err
				return
			}
			errs <- s.ApplyTransaction(ctx, reversal, nil)
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrAlreadyReversed)
	}
	assert.Equal(t, 1, succeeded)

	all, err := s.ListTransactions(ctx, "u1", domain.DateRange{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
