package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"gymcore_backend/internal/models"
)

// CashRegisterRepository defines database operations on cash drawer shifts.
type CashRegisterRepository interface {
	OpenRegister(ctx context.Context, reg *models.CashRegister) (int64, error)
	GetRegisterByID(ctx context.Context, id int64) (*models.CashRegister, error)
	// CloseRegister writes the closing fields of reg. A register that is
	// already closed yields ErrNotFound.
	CloseRegister(ctx context.Context, reg *models.CashRegister) error
}

type cashRegisterRepository struct {
	db *sql.DB
}

// NewCashRegisterRepository creates a new instance of CashRegisterRepository.
func NewCashRegisterRepository(db *sql.DB) CashRegisterRepository {
	return &cashRegisterRepository{db: db}
}

func (r *cashRegisterRepository) OpenRegister(ctx context.Context, reg *models.CashRegister) (int64, error) {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO cash_registers (opened_by, opened_at, opening_amount) VALUES ($1, $2, $3) RETURNING id`,
		reg.OpenedBy, reg.OpenedAt, reg.OpeningAmount,
	).Scan(&reg.ID)
	if err != nil {
		return 0, mapError(err, "opening cash register")
	}
	return reg.ID, nil
}

func (r *cashRegisterRepository) GetRegisterByID(ctx context.Context, id int64) (*models.CashRegister, error) {
	reg := &models.CashRegister{}
	var closedBy sql.NullInt64
	var closedAt sql.NullTime
	var closing, expected sql.NullFloat64
	var notes sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT id, opened_by, opened_at, opening_amount, closed_by, closed_at, closing_amount, expected_amount, notes
		 FROM cash_registers WHERE id = $1`, id,
	).Scan(&reg.ID, &reg.OpenedBy, &reg.OpenedAt, &reg.OpeningAmount, &closedBy, &closedAt, &closing, &expected, &notes)
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("getting cash register %d", id))
	}
	reg.ClosedBy = nullInt64Ptr(closedBy)
	reg.ClosedAt = nullTimePtr(closedAt)
	reg.ClosingAmount = nullFloat64Ptr(closing)
	reg.ExpectedAmount = nullFloat64Ptr(expected)
	reg.Notes = nullStringPtr(notes)
	return reg, nil
}

func (r *cashRegisterRepository) CloseRegister(ctx context.Context, reg *models.CashRegister) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE cash_registers SET closed_by = $1, closed_at = $2, closing_amount = $3, expected_amount = $4, notes = $5
		 WHERE id = $6 AND closed_at IS NULL`,
		reg.ClosedBy, reg.ClosedAt, reg.ClosingAmount, reg.ExpectedAmount, reg.Notes, reg.ID)
	if err != nil {
		return mapError(err, "closing cash register")
	}
	return rowsAffectedOrNotFound(res, "closing cash register")
}
