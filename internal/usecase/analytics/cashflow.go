package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/simaogato/wealthflow-portfolio/internal/domain"
)

// CashFlow totals the transactions dated inside r per bucket.
// Every bucket is emitted, including those without transactions.
// A transaction dated exactly on a boundary belongs to the bucket that boundary opens.
// Reversals subtract from the total of the type they reverse.
func CashFlow(transactions []*domain.Transaction, r domain.DateRange, buckets []domain.Bucket) []domain.CashFlowBucket {
	out := make([]domain.CashFlowBucket, len(buckets))
	for i, b := range buckets {
		out[i] = domain.CashFlowBucket{
			Start:             b.Start,
			End:               b.End,
			Income:            decimal.Zero,
			Expense:           decimal.Zero,
			Dividends:         decimal.Zero,
			Buys:              decimal.Zero,
			Sells:             decimal.Zero,
			Net:               decimal.Zero,
			ExpenseByCategory: make(map[string]decimal.Decimal),
		}
	}

	for _, tx := range transactions {
		if !r.Contains(tx.Date) {
			continue
		}
		i := bucketIndex(buckets, tx)
		if i < 0 {
			continue
		}
		b := &out[i]
		amount := tx.SignedAmount()
		switch tx.Type {
		case domain.TransactionTypeIncome:
			b.Income = b.Income.Add(amount)
		case domain.TransactionTypeExpense:
			b.Expense = b.Expense.Add(amount)
			category := tx.CategoryOrDefault()
			b.ExpenseByCategory[category] = b.ExpenseByCategory[category].Add(amount)
		case domain.TransactionTypeDividend:
			b.Dividends = b.Dividends.Add(amount)
		case domain.TransactionTypeBuy:
			b.Buys = b.Buys.Add(amount)
		case domain.TransactionTypeSell:
			b.Sells = b.Sells.Add(amount)
		}
	}

	for i := range out {
		out[i].Net = out[i].Income.Add(out[i].Dividends).Sub(out[i].Expense)
	}

	return out
}

// bucketIndex finds the bucket whose [Start, End) holds the transaction date, or -1
func bucketIndex(buckets []domain.Bucket, tx *domain.Transaction) int {
	i := sort.Search(len(buckets), func(i int) bool {
		return buckets[i].End.After(tx.Date)
	})
	if i == len(buckets) || tx.Date.Before(buckets[i].Start) {
		return -1
	}
	return i
}
