package position

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/wealthflow-portfolio/internal/adapter/repository/memory"
	"github.com/simaogato/wealthflow-portfolio/internal/domain"
)

// MockHoldingRepository is a mock implementation of HoldingRepository for testing
type MockHoldingRepository struct {
	mock.Mock
}

func (m *MockHoldingRepository) ListHoldings(ctx context.Context, user domain.UserID) ([]*domain.Holding, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Holding), args.Error(1)
}

func (m *MockHoldingRepository) GetHolding(ctx context.Context, user domain.UserID, id uuid.UUID) (*domain.Holding, error) {
	args := m.Called(ctx, user, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Holding), args.Error(1)
}

func (m *MockHoldingRepository) CreateHolding(ctx context.Context, holding *domain.Holding) error {
	args := m.Called(ctx, holding)
	return args.Error(0)
}

func (m *MockHoldingRepository) ListAllHoldings(ctx context.Context, user domain.UserID) ([]*domain.Holding, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Holding), args.Error(1)
}

// ApplyTransaction matches on whether an update was passed and runs it against the
// holding given to Return, the way a store does under its lock
func (m *MockHoldingRepository) ApplyTransaction(ctx context.Context, tx *domain.Transaction, update domain.HoldingUpdate) error {
	args := m.Called(ctx, tx, update != nil)
	if h, ok := args.Get(0).(*domain.Holding); ok && h != nil && update != nil {
		if err := update(h); err != nil {
			return err
		}
	}
	return args.Error(1)
}

// MockTransactionRepository is a mock implementation of TransactionRepository for testing
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) ListTransactions(ctx context.Context, user domain.UserID, r domain.DateRange) ([]*domain.Transaction, error) {
	args := m.Called(ctx, user, r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) GetTransaction(ctx context.Context, user domain.UserID, id uuid.UUID) (*domain.Transaction, error) {
	args := m.Called(ctx, user, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) IsReversed(ctx context.Context, user domain.UserID, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, user, id)
	return args.Bool(0), args.Error(1)
}

// MockPriceRepository is a mock implementation of PriceRepository for testing
type MockPriceRepository struct {
	mock.Mock
}

func (m *MockPriceRepository) AddQuote(ctx context.Context, quote *domain.PriceQuote) error {
	args := m.Called(ctx, quote)
	return args.Error(0)
}

func (m *MockPriceRepository) LatestQuote(ctx context.Context, identifier string) (*domain.PriceQuote, error) {
	args := m.Called(ctx, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PriceQuote), args.Error(1)
}

// MockPriceCache is a mock implementation of PriceCache for testing
type MockPriceCache struct {
	mock.Mock
}

func (m *MockPriceCache) Invalidate(identifier string) {
	m.Called(identifier)
}

// MockPublisher is a mock implementation of EventPublisher for testing
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, event any) error {
	args := m.Called(ctx, topic, event)
	return args.Error(0)
}

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	holdings     *MockHoldingRepository
	transactions *MockTransactionRepository
	prices       *MockPriceRepository
	publisher    *MockPublisher
	service      *PositionService
}

func newFixture() *fixture {
	f := &fixture{
		holdings:     new(MockHoldingRepository),
		transactions: new(MockTransactionRepository),
		prices:       new(MockPriceRepository),
		publisher:    new(MockPublisher),
	}
	f.service = NewPositionService(f.holdings, f.transactions, f.prices, f.publisher, nil)
	f.service.Now = func() time.Time { return now }
	return f
}

func openHolding(quantity, cost int64) *domain.Holding {
	return &domain.Holding{
		ID:               uuid.New(),
		UserID:           "u1",
		InstrumentType:   domain.InstrumentTypeStock,
		Identifier:       "INFY",
		Quantity:         decimal.NewFromInt(quantity),
		CostBasisPerUnit: decimal.NewFromInt(cost),
		AcquisitionDate:  time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC),
	}
}

func TestAddHolding_Success(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.holdings.On("CreateHolding", ctx, mock.AnythingOfType("*domain.Holding")).Return(nil)

	h, err := f.service.AddHolding(ctx, AddHoldingInput{
		UserID:           "u1",
		InstrumentType:   domain.InstrumentTypeMutualFund,
		Identifier:       "120503",
		Name:             "Axis Bluechip",
		Category:         "Equity",
		Quantity:         decimal.NewFromInt(10),
		CostBasisPerUnit: decimal.NewFromInt(45),
	})

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, h.ID)
	assert.Equal(t, now, h.AcquisitionDate)
	f.holdings.AssertExpectations(t)
}

func TestAddHolding_Invalid(t *testing.T) {
	f := newFixture()

	h, err := f.service.AddHolding(context.Background(), AddHoldingInput{
		UserID:         "u1",
		InstrumentType: "bond",
		Identifier:     "X",
	})

	assert.Nil(t, h)
	assert.ErrorIs(t, err, domain.ErrInvalidHolding)
	f.holdings.AssertNotCalled(t, "CreateHolding", mock.Anything, mock.Anything)
}

func TestRecordTransaction_BuyUpdatesWeightedAverageCost(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	h := openHolding(10, 100)
	f.holdings.On("ApplyTransaction", ctx, mock.AnythingOfType("*domain.Transaction"), true).Return(h, nil)
	f.publisher.On("Publish", ctx, domain.TopicTransactionRecorded, mock.Anything).Return(nil)

	tx, err := f.service.RecordTransaction(ctx, RecordTransactionInput{
		UserID:    "u1",
		HoldingID: &h.ID,
		Type:      domain.TransactionTypeBuy,
		Amount:    decimal.NewFromInt(1400),
		Quantity:  decimal.NewFromInt(10),
	})

	require.NoError(t, err)
	assert.Equal(t, now, tx.Date)
	assert.True(t, h.Quantity.Equal(decimal.NewFromInt(20)))
	// (10 × 100 + 1400) / 20
	assert.True(t, h.CostBasisPerUnit.Equal(decimal.NewFromInt(120)), "got %s", h.CostBasisPerUnit)
	f.holdings.AssertExpectations(t)
	f.publisher.AssertExpectations(t)
}

func TestRecordTransaction_SellBeyondQuantity(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	h := openHolding(5, 100)
	f.holdings.On("ApplyTransaction", ctx, mock.AnythingOfType("*domain.Transaction"), true).Return(h, nil)

	tx, err := f.service.RecordTransaction(ctx, RecordTransactionInput{
		UserID:    "u1",
		HoldingID: &h.ID,
		Type:      domain.TransactionTypeSell,
		Amount:    decimal.NewFromInt(600),
		Quantity:  decimal.NewFromInt(6),
	})

	assert.Nil(t, tx)
	assert.ErrorIs(t, err, domain.ErrInsufficientQuantity)
	assert.True(t, h.Quantity.Equal(decimal.NewFromInt(5)))
	f.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestRecordTransaction_SellEverythingClosesHolding(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	h := openHolding(5, 100)
	f.holdings.On("ApplyTransaction", ctx, mock.AnythingOfType("*domain.Transaction"), true).Return(h, nil)
	f.publisher.On("Publish", ctx, domain.TopicTransactionRecorded, mock.Anything).Return(nil)

	sellDate := time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC)
	_, err := f.service.RecordTransaction(ctx, RecordTransactionInput{
		UserID:    "u1",
		HoldingID: &h.ID,
		Type:      domain.TransactionTypeSell,
		Amount:    decimal.NewFromInt(650),
		Quantity:  decimal.NewFromInt(5),
		Date:      sellDate,
	})

	require.NoError(t, err)
	assert.True(t, h.Quantity.IsZero())
	require.True(t, h.IsClosed())
	assert.Equal(t, sellDate, *h.ClosedAt)
	// cost basis per unit is untouched by sells
	assert.True(t, h.CostBasisPerUnit.Equal(decimal.NewFromInt(100)))
}

func TestRecordTransaction_CashMovementDoesNotTouchHoldings(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.holdings.On("ApplyTransaction", ctx, mock.AnythingOfType("*domain.Transaction"), false).Return(nil, nil)
	f.publisher.On("Publish", ctx, domain.TopicTransactionRecorded, mock.MatchedBy(func(e domain.TransactionRecorded) bool {
		return e.Type == domain.TransactionTypeExpense && !e.Reversal
	})).Return(nil)

	tx, err := f.service.RecordTransaction(ctx, RecordTransactionInput{
		UserID:   "u1",
		Type:     domain.TransactionTypeExpense,
		Amount:   decimal.NewFromInt(250),
		Category: "Food",
	})

	require.NoError(t, err)
	assert.Equal(t, "Food", tx.Category)
	f.holdings.AssertNotCalled(t, "GetHolding", mock.Anything, mock.Anything, mock.Anything)
	f.publisher.AssertExpectations(t)
}

func TestRecordTransaction_DividendKeepsHoldingAsIs(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	h := openHolding(5, 100)
	f.holdings.On("ApplyTransaction", ctx, mock.AnythingOfType("*domain.Transaction"), true).Return(h, nil)
	f.publisher.On("Publish", ctx, domain.TopicTransactionRecorded, mock.Anything).Return(nil)

	_, err := f.service.RecordTransaction(ctx, RecordTransactionInput{
		UserID:    "u1",
		HoldingID: &h.ID,
		Type:      domain.TransactionTypeDividend,
		Amount:    decimal.NewFromInt(12),
	})

	require.NoError(t, err)
	assert.True(t, h.Quantity.Equal(decimal.NewFromInt(5)))
}

func TestRecordTransaction_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid transaction", func(t *testing.T) {
		f := newFixture()
		_, err := f.service.RecordTransaction(ctx, RecordTransactionInput{UserID: "u1", Type: domain.TransactionTypeIncome, Amount: decimal.NewFromInt(-5)})
		assert.ErrorIs(t, err, domain.ErrInvalidTransaction)
	})

	t.Run("unknown holding", func(t *testing.T) {
		f := newFixture()
		id := uuid.New()
		f.holdings.On("ApplyTransaction", ctx, mock.Anything, true).Return(nil, domain.ErrNotFound)
		_, err := f.service.RecordTransaction(ctx, RecordTransactionInput{
			UserID: "u1", HoldingID: &id, Type: domain.TransactionTypeBuy,
			Amount: decimal.NewFromInt(1), Quantity: decimal.NewFromInt(1),
		})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("storage failure", func(t *testing.T) {
		f := newFixture()
		f.holdings.On("ApplyTransaction", ctx, mock.Anything, mock.Anything).Return(nil, errors.New("db down"))
		_, err := f.service.RecordTransaction(ctx, RecordTransactionInput{UserID: "u1", Type: domain.TransactionTypeIncome, Amount: decimal.NewFromInt(5)})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to record transaction")
		f.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestReverseTransaction_UndoesBuy(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	h := openHolding(15, 100)
	buy := &domain.Transaction{
		ID: uuid.New(), UserID: "u1", HoldingID: &h.ID, Type: domain.TransactionTypeBuy,
		Amount: decimal.NewFromInt(500), Quantity: decimal.NewFromInt(5), Date: now.AddDate(0, 0, -3),
	}
	f.transactions.On("GetTransaction", ctx, domain.UserID("u1"), buy.ID).Return(buy, nil)
	f.transactions.On("IsReversed", ctx, domain.UserID("u1"), buy.ID).Return(false, nil)
	f.holdings.On("ApplyTransaction", ctx, mock.AnythingOfType("*domain.Transaction"), true).Return(h, nil)
	f.publisher.On("Publish", ctx, domain.TopicTransactionRecorded, mock.MatchedBy(func(e domain.TransactionRecorded) bool {
		return e.Reversal
	})).Return(nil)

	reversal, err := f.service.ReverseTransaction(ctx, "u1", buy.ID, time.Time{})

	require.NoError(t, err)
	require.NotNil(t, reversal.ReversesID)
	assert.Equal(t, buy.ID, *reversal.ReversesID)
	assert.Equal(t, now, reversal.Date)
	assert.True(t, h.Quantity.Equal(decimal.NewFromInt(10)))
	assert.True(t, h.CostBasisPerUnit.Equal(decimal.NewFromInt(100)))
	f.publisher.AssertExpectations(t)
}

func TestReverseTransaction_ReopensClosedHolding(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	h := openHolding(0, 100)
	closed := now.AddDate(0, 0, -1)
	h.ClosedAt = &closed
	sell := &domain.Transaction{
		ID: uuid.New(), UserID: "u1", HoldingID: &h.ID, Type: domain.TransactionTypeSell,
		Amount: decimal.NewFromInt(500), Quantity: decimal.NewFromInt(4), Date: closed,
	}
	f.transactions.On("GetTransaction", ctx, domain.UserID("u1"), sell.ID).Return(sell, nil)
	f.transactions.On("IsReversed", ctx, domain.UserID("u1"), sell.ID).Return(false, nil)
	f.holdings.On("ApplyTransaction", ctx, mock.Anything, true).Return(h, nil)
	f.publisher.On("Publish", ctx, mock.Anything, mock.Anything).Return(nil)

	_, err := f.service.ReverseTransaction(ctx, "u1", sell.ID, now)

	require.NoError(t, err)
	assert.True(t, h.Quantity.Equal(decimal.NewFromInt(4)))
	assert.False(t, h.IsClosed())
}

func TestReverseTransaction_AlreadyReversed(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	income := &domain.Transaction{ID: uuid.New(), UserID: "u1", Type: domain.TransactionTypeIncome, Amount: decimal.NewFromInt(1), Date: now}
	f.transactions.On("GetTransaction", ctx, domain.UserID("u1"), income.ID).Return(income, nil)
	f.transactions.On("IsReversed", ctx, domain.UserID("u1"), income.ID).Return(true, nil)

	_, err := f.service.ReverseTransaction(ctx, "u1", income.ID, now)

	assert.ErrorIs(t, err, domain.ErrAlreadyReversed)
	f.holdings.AssertNotCalled(t, "ApplyTransaction", mock.Anything, mock.Anything, mock.Anything)
}

func TestReverseTransaction_ReversalCannotBeReversed(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	originalID := uuid.New()
	reversal := &domain.Transaction{
		ID: uuid.New(), UserID: "u1", Type: domain.TransactionTypeIncome,
		Amount: decimal.NewFromInt(1), Date: now, ReversesID: &originalID,
	}
	f.transactions.On("GetTransaction", ctx, domain.UserID("u1"), reversal.ID).Return(reversal, nil)
	f.transactions.On("IsReversed", ctx, domain.UserID("u1"), reversal.ID).Return(false, nil)

	_, err := f.service.ReverseTransaction(ctx, "u1", reversal.ID, now)

	assert.ErrorIs(t, err, domain.ErrInvalidTransaction)
}

func TestReverseTransaction_BuyAlreadySold(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	h := openHolding(2, 100)
	buy := &domain.Transaction{
		ID: uuid.New(), UserID: "u1", HoldingID: &h.ID, Type: domain.TransactionTypeBuy,
		Amount: decimal.NewFromInt(500), Quantity: decimal.NewFromInt(5), Date: now,
	}
	f.transactions.On("GetTransaction", ctx, domain.UserID("u1"), buy.ID).Return(buy, nil)
	f.transactions.On("IsReversed", ctx, domain.UserID("u1"), buy.ID).Return(false, nil)
	f.holdings.On("ApplyTransaction", ctx, mock.Anything, true).Return(h, nil)

	_, err := f.service.ReverseTransaction(ctx, "u1", buy.ID, now)

	assert.ErrorIs(t, err, domain.ErrInsufficientQuantity)
	assert.True(t, h.Quantity.Equal(decimal.NewFromInt(2)))
}

func TestRecordQuote(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.prices.On("AddQuote", ctx, mock.MatchedBy(func(q *domain.PriceQuote) bool {
		return q.Identifier == "INFY" && q.Price.Equal(decimal.NewFromInt(1500))
	})).Return(nil)

	q, err := f.service.RecordQuote(ctx, "INFY", decimal.NewFromInt(1500), time.Time{})

	require.NoError(t, err)
	assert.Equal(t, now, q.Date)
	f.prices.AssertExpectations(t)

	_, err = f.service.RecordQuote(ctx, "INFY", decimal.NewFromInt(-1), now)
	assert.ErrorIs(t, err, domain.ErrPriceUnavailable)
}

func TestRecordQuote_InvalidatesCachedPrice(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name           string
		price          int64
		addErr         error
		wantInvalidate bool
	}{
		{name: "stored quote", price: 1500, wantInvalidate: true},
		{name: "rejected quote", price: -1},
		{name: "storage failure", price: 1500, addErr: errors.New("db down")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			cache := new(MockPriceCache)
			f.service.PriceCache = cache
			f.prices.On("AddQuote", ctx, mock.Anything).Return(tt.addErr)
			cache.On("Invalidate", "INFY").Return()

			_, err := f.service.RecordQuote(ctx, "INFY", decimal.NewFromInt(tt.price), now)

			if tt.wantInvalidate {
				require.NoError(t, err)
				cache.AssertCalled(t, "Invalidate", "INFY")
				return
			}
			require.Error(t, err)
			cache.AssertNotCalled(t, "Invalidate", mock.Anything)
		})
	}
}

func newStoreService(t *testing.T, quantity int64) (*PositionService, *memory.Store, *domain.Holding) {
	t.Helper()
	store := memory.NewStore()
	h := openHolding(quantity, 100)
	require.NoError(t, store.CreateHolding(context.Background(), h))
	service := NewPositionService(store, store, store, nil, nil)
	service.Now = func() time.Time { return now }
	return service, store, h
}

func TestRecordTransaction_ConcurrentSellsNeverOversell(t *testing.T) {
	ctx := context.Background()
	service, store, h := newStoreService(t, 15)

	const sellers = 8
	errs := make(chan error, sellers)
	var wg sync.WaitGroup
	for i := 0; i < sellers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.RecordTransaction(ctx, RecordTransactionInput{
				UserID:    "u1",
				HoldingID: &h.ID,
				Type:      domain.TransactionTypeSell,
				Amount:    decimal.NewFromInt(1000),
				Quantity:  decimal.NewFromInt(10),
			})
			errs <- err
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
		assert.ErrorIs(t, err, domain.ErrInsufficientQuantity)
	}
	assert.Equal(t, 1, succeeded)

	stored, err := store.GetHolding(ctx, "u1", h.ID)
	require.NoError(t, err)
	assert.True(t, stored.Quantity.Equal(decimal.NewFromInt(5)), "got %s", stored.Quantity)

	txs, err := store.ListTransactions(ctx, "u1", domain.DateRange{})
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

func TestReverseTransaction_ConcurrentCallsReverseOnce(t *testing.T) {
	ctx := context.Background()
	service, store, h := newStoreService(t, 10)

	buy, err := service.RecordTransaction(ctx, RecordTransactionInput{
		UserID:    "u1",
		HoldingID: &h.ID,
		Type:      domain.TransactionTypeBuy,
		Amount:    decimal.NewFromInt(500),
		Quantity:  decimal.NewFromInt(5),
	})
	require.NoError(t, err)

	const callers = 8
	errs := make(chan error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.ReverseTransaction(ctx, "u1", buy.ID, now)
			errs <- err
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

	stored, err := store.GetHolding(ctx, "u1", h.ID)
	require.NoError(t, err)
	assert.True(t, stored.Quantity.Equal(decimal.NewFromInt(10)), "got %s", stored.Quantity)

	txs, err := store.ListTransactions(ctx, "u1", domain.DateRange{})
	require.NoError(t, err)
	assert.Len(t, txs, 2)
}
