package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType represents the kind of money movement a transaction records
type TransactionType string

const (
	TransactionTypeBuy      TransactionType = "buy"
	TransactionTypeSell     TransactionType = "sell"
	TransactionTypeDividend TransactionType = "dividend"
	TransactionTypeExpense  TransactionType = "expense"
	TransactionTypeIncome   TransactionType = "income"
)

// Valid reports whether t is a known transaction type
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeBuy, TransactionTypeSell, TransactionTypeDividend,
		TransactionTypeExpense, TransactionTypeIncome:
		return true
	}
	return false
}

// IsCashMovement reports whether the type is a pure cash movement (no holding)
func (t TransactionType) IsCashMovement() bool {
	return t == TransactionTypeExpense || t == TransactionTypeIncome
}

// TradesQuantity reports whether the type changes a holding's quantity
func (t TransactionType) TradesQuantity() bool {
	return t == TransactionTypeBuy || t == TransactionTypeSell
}

// Transaction represents an immutable money movement.
//
// Transactions are append-only: a correction is a new transaction whose ReversesID
// points at the original. The reversal negates the original's effects at its own date,
// so aggregates over past buckets never drift.
type Transaction struct {
	ID          uuid.UUID       `json:"id"`
	UserID      UserID          `json:"user_id"`
	HoldingID   *uuid.UUID      `json:"holding_id,omitempty"` // NULL for expense/income
	Type        TransactionType `json:"type"`
	Amount      decimal.Decimal `json:"amount"`               // ABSOLUTE VALUE (Always Positive)
	Quantity    decimal.Decimal `json:"quantity"`             // units traded; buy/sell only
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Date        time.Time       `json:"date"`
	ReversesID  *uuid.UUID      `json:"reverses_id,omitempty"`
}

// Validate ensures the transaction adheres to domain rules.
// Every returned error wraps ErrInvalidTransaction.
func (t *Transaction) Validate() error {
	if t.UserID == "" {
		return fmt.Errorf("%w: user is required", ErrInvalidTransaction)
	}
	if !t.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidTransaction, t.Type)
	}
	if !t.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive (absolute value)", ErrInvalidTransaction)
	}
	if t.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidTransaction)
	}

	if t.Type.IsCashMovement() {
		if t.HoldingID != nil {
			return fmt.Errorf("%w: %s must not reference a holding", ErrInvalidTransaction, t.Type)
		}
	} else if t.HoldingID == nil {
		return fmt.Errorf("%w: %s must reference a holding", ErrInvalidTransaction, t.Type)
	}

	if t.Type.TradesQuantity() {
		if !t.Quantity.IsPositive() {
			return fmt.Errorf("%w: %s quantity must be positive", ErrInvalidTransaction, t.Type)
		}
	} else if !t.Quantity.IsZero() {
		return fmt.Errorf("%w: %s must not carry a quantity", ErrInvalidTransaction, t.Type)
	}

	return nil
}

// IsReversal reports whether the transaction offsets an earlier one
func (t *Transaction) IsReversal() bool {
	return t.ReversesID != nil
}

// sign is +1 for regular transactions and -1 for reversals
func (t *Transaction) sign() decimal.Decimal {
	if t.IsReversal() {
		return decimal.NewFromInt(-1)
	}
	return decimal.NewFromInt(1)
}

// CashEffect returns the signed change to the cash balance.
// Income, dividends and sells bring cash in; expenses and buys take it out.
func (t *Transaction) CashEffect() decimal.Decimal {
	var effect decimal.Decimal
	switch t.Type {
	case TransactionTypeIncome, TransactionTypeDividend, TransactionTypeSell:
		effect = t.Amount
	case TransactionTypeExpense, TransactionTypeBuy:
		effect = t.Amount.Neg()
	}
	return effect.Mul(t.sign())
}

// QuantityEffect returns the signed change to the referenced holding's quantity
func (t *Transaction) QuantityEffect() decimal.Decimal {
	var effect decimal.Decimal
	switch t.Type {
	case TransactionTypeBuy:
		effect = t.Quantity
	case TransactionTypeSell:
		effect = t.Quantity.Neg()
	}
	return effect.Mul(t.sign())
}

// SignedAmount returns the amount, negated for reversals.
// Used when totalling transactions of a single type.
func (t *Transaction) SignedAmount() decimal.Decimal {
	return t.Amount.Mul(t.sign())
}

// CategoryOrDefault returns the category used for aggregation
func (t *Transaction) CategoryOrDefault() string {
	if t.Category == "" {
		return UncategorizedCategory
	}
	return t.Category
}

// Reverse builds the offsetting transaction for t, dated on
func (t *Transaction) Reverse(id uuid.UUID, on time.Time) (*Transaction, error) {
	if t.IsReversal() {
		return nil, fmt.Errorf("%w: a reversal cannot be reversed", ErrInvalidTransaction)
	}
	original := t.ID
	return &Transaction{
		ID:          id,
		UserID:      t.UserID,
		HoldingID:   t.HoldingID,
		Type:        t.Type,
		Amount:      t.Amount,
		Quantity:    t.Quantity,
		Category:    t.Category,
		Description: "reversal of " + t.ID.String(),
		Date:        on,
		ReversesID:  &original,
	}, nil
}
