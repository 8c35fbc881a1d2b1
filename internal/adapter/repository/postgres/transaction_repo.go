package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simaogato/wealthflow-portfolio/internal/domain"
)

// transactionRepository implements domain.TransactionRepository.
// Inserts go through holdingRepository.ApplyTransaction so the holding update
// and the ledger row always land together.
type transactionRepository struct {
	db *DB
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *DB) domain.TransactionRepository {
	return &transactionRepository{db: db}
}

const transactionColumns = `id, user_id, holding_id, type, amount, quantity, category, description, date, reverses_id`

// ListTransactions retrieves a user's transactions dated inside r, oldest first
func (r *transactionRepository) ListTransactions(ctx context.Context, user domain.UserID, dr domain.DateRange) ([]*domain.Transaction, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + transactionColumns + ` FROM transactions WHERE user_id = $1`)
	args := []any{string(user)}

	// Half-open range [From, To); a zero bound is unbounded on that side
	if !dr.From.IsZero() {
		args = append(args, dr.From.UTC())
		fmt.Fprintf(&sb, " AND date >= $%d", len(args))
	}
	if !dr.To.IsZero() {
		args = append(args, dr.To.UTC())
		fmt.Fprintf(&sb, " AND date < $%d", len(args))
	}
	sb.WriteString(" ORDER BY date, seq")

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	txs := make([]*domain.Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}

	return txs, nil
}

// GetTransaction retrieves a transaction by its ID
func (r *transactionRepository) GetTransaction(ctx context.Context, user domain.UserID, id uuid.UUID) (*domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE id = $1 AND user_id = $2
	`

	tx, err := scanTransaction(r.db.QueryRowContext(ctx, query, id, string(user)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: transaction %s", domain.ErrNotFound, id)
		}
		return nil, err
	}
	return tx, nil
}

// IsReversed reports whether a reversal referencing id exists
func (r *transactionRepository) IsReversed(ctx context.Context, user domain.UserID, id uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM transactions WHERE reverses_id = $1 AND user_id = $2)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, id, string(user)).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check reversal: %w", err)
	}
	return exists, nil
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var tx domain.Transaction
	var user, txType, amountStr, quantityStr string
	var holdingID, reversesID sql.NullString

	err := row.Scan(
		&tx.ID,
		&user,
		&holdingID,
		&txType,
		&amountStr,
		&quantityStr,
		&tx.Category,
		&tx.Description,
		&tx.Date,
		&reversesID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}
	tx.UserID = domain.UserID(user)
	tx.Type = domain.TransactionType(txType)
	tx.Date = tx.Date.UTC()

	if tx.Amount, err = decimal.NewFromString(amountStr); err != nil {
		return nil, fmt.Errorf("failed to parse amount: %w", err)
	}
	if tx.Quantity, err = decimal.NewFromString(quantityStr); err != nil {
		return nil, fmt.Errorf("failed to parse quantity: %w", err)
	}

	// Handle nullable holding_id and reverses_id
	if tx.HoldingID, err = parseNullUUID(holdingID); err != nil {
		return nil, fmt.Errorf("failed to parse holding_id: %w", err)
	}
	if tx.ReversesID, err = parseNullUUID(reversesID); err != nil {
		return nil, fmt.Errorf("failed to parse reverses_id: %w", err)
	}

	return &tx, nil
}

func parseNullUUID(s sql.NullString) (*uuid.UUID, error) {
	if !s.Valid {
		return nil, nil
	}
	id, err := uuid.Parse(s.String)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
