package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/simaogato/wealthflow-portfolio/internal/domain"
)

// holdingRepository implements domain.HoldingRepository
type holdingRepository struct {
	db *DB
}

// NewHoldingRepository creates a new holding repository
func NewHoldingRepository(db *DB) domain.HoldingRepository {
	return &holdingRepository{db: db}
}

const holdingColumns = `id, user_id, instrument_type, identifier, name, category,
	quantity, cost_basis_per_unit, acquisition_date, closed_at`

// ListHoldings retrieves the open holdings of a user ordered by acquisition date
func (r *holdingRepository) ListHoldings(ctx context.Context, user domain.UserID) ([]*domain.Holding, error) {
	return r.list(ctx, user, `WHERE user_id = $1 AND closed_at IS NULL`)
}

// ListAllHoldings retrieves the open and closed holdings of a user ordered by acquisition date
func (r *holdingRepository) ListAllHoldings(ctx context.Context, user domain.UserID) ([]*domain.Holding, error) {
	return r.list(ctx, user, `WHERE user_id = $1`)
}

func (r *holdingRepository) list(ctx context.Context, user domain.UserID, where string) ([]*domain.Holding, error) {
	query := `
		SELECT ` + holdingColumns + `
		FROM holdings
		` + where + `
		ORDER BY acquisition_date, id
	`

	rows, err := r.db.QueryContext(ctx, query, string(user))
	if err != nil {
		return nil, fmt.Errorf("failed to list holdings: %w", err)
	}
	defer rows.Close()

	holdings := make([]*domain.Holding, 0)
	for rows.Next() {
		h, err := scanHolding(rows)
		if err != nil {
			return nil, err
		}
		holdings = append(holdings, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate holdings: %w", err)
	}

	return holdings, nil
}

// GetHolding retrieves a holding by its ID, open or closed
func (r *holdingRepository) GetHolding(ctx context.Context, user domain.UserID, id uuid.UUID) (*domain.Holding, error) {
	query := `
		SELECT ` + holdingColumns + `
		FROM holdings
		WHERE id = $1 AND user_id = $2
	`

	h, err := scanHolding(r.db.QueryRowContext(ctx, query, id, string(user)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: holding %s", domain.ErrNotFound, id)
		}
		return nil, err
	}
	return h, nil
}

// CreateHolding creates a new holding
func (r *holdingRepository) CreateHolding(ctx context.Context, h *domain.Holding) error {
	query := `
		INSERT INTO holdings (` + holdingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		h.ID,
		string(h.UserID),
		string(h.InstrumentType),
		h.Identifier,
		h.Name,
		h.Category,
		h.Quantity.String(),
		h.CostBasisPerUnit.String(),
		h.AcquisitionDate,
		nullTime(h.ClosedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create holding: %w", err)
	}

	return nil
}

// ApplyTransaction inserts tx and applies update to the referenced holding in one database
// transaction. The holding row is read with SELECT ... FOR UPDATE so concurrent trades on
// it are serialized and update always sees the committed quantity.
func (r *holdingRepository) ApplyTransaction(ctx context.Context, tx *domain.Transaction, update domain.HoldingUpdate) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	if update != nil && tx.HoldingID != nil {
		lockQuery := `
			SELECT ` + holdingColumns + `
			FROM holdings
			WHERE id = $1 AND user_id = $2
			FOR UPDATE
		`
		h, err := scanHolding(dbTx.QueryRowContext(ctx, lockQuery, *tx.HoldingID, string(tx.UserID)))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: holding %s", domain.ErrNotFound, *tx.HoldingID)
			}
			return err
		}
		if err := update(h); err != nil {
			return err
		}

		updateQuery := `
			UPDATE holdings
			SET quantity = $1, cost_basis_per_unit = $2, closed_at = $3
			WHERE id = $4 AND user_id = $5
		`
		if _, err := dbTx.ExecContext(ctx, updateQuery,
			h.Quantity.String(),
			h.CostBasisPerUnit.String(),
			nullTime(h.ClosedAt),
			h.ID,
			string(h.UserID),
		); err != nil {
			return fmt.Errorf("failed to update holding: %w", err)
		}
	}

	insertQuery := `
		INSERT INTO transactions (id, user_id, holding_id, type, amount, quantity, category, description, date, reverses_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = dbTx.ExecContext(ctx, insertQuery,
		tx.ID,
		string(tx.UserID),
		nullUUID(tx.HoldingID),
		string(tx.Type),
		tx.Amount.String(),
		tx.Quantity.String(),
		tx.Category,
		tx.Description,
		tx.Date,
		nullUUID(tx.ReversesID),
	)
	if err != nil {
		if isUniqueViolation(err, reversalConstraint) {
			return fmt.Errorf("%w: %s", domain.ErrAlreadyReversed, *tx.ReversesID)
		}
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// reversalConstraint is the unique index keeping a transaction reversed at most once
const reversalConstraint = "transactions_reverses_id_key"

func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505" && pqErr.Constraint == constraint
}

func scanHolding(row rowScanner) (*domain.Holding, error) {
	var h domain.Holding
	var user, instrumentType, quantityStr, costStr string
	var closedAt sql.NullTime

	err := row.Scan(
		&h.ID,
		&user,
		&instrumentType,
		&h.Identifier,
		&h.Name,
		&h.Category,
		&quantityStr,
		&costStr,
		&h.AcquisitionDate,
		&closedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan holding: %w", err)
	}
	h.UserID = domain.UserID(user)
	h.InstrumentType = domain.InstrumentType(instrumentType)
	h.AcquisitionDate = h.AcquisitionDate.UTC()

	// Parse quantity and cost_basis_per_unit (NUMERIC)
	if h.Quantity, err = decimal.NewFromString(quantityStr); err != nil {
		return nil, fmt.Errorf("failed to parse quantity: %w", err)
	}
	if h.CostBasisPerUnit, err = decimal.NewFromString(costStr); err != nil {
		return nil, fmt.Errorf("failed to parse cost_basis_per_unit: %w", err)
	}

	if closedAt.Valid {
		closed := closedAt.Time.UTC()
		h.ClosedAt = &closed
	}

	return &h, nil
}

// nullUUID maps an optional UUID to a nullable column value
func nullUUID(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return *id
}

// nullTime maps an optional time to a nullable column value
func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
