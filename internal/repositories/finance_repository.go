package repositories

import (
	"context"
	"database/sql"
	"time"

	"gymcore_backend/internal/models"
)

// FinanceRepository exposes the read-only aggregates behind the dashboard and reports.
type FinanceRepository interface {
	GetSaleAmounts(ctx context.Context, from, to time.Time) ([]models.SaleAmount, error)
	GetCheckInTimes(ctx context.Context, from, to time.Time) ([]time.Time, error)
	CountActiveMemberships(ctx context.Context) (int, error)
	CountExpiringMemberships(ctx context.Context, now, until time.Time) (int, error)
	CountLowStockProducts(ctx context.Context, threshold int) (int, error)
	// CountClients counts clients created at or after since; nil counts all.
	CountClients(ctx context.Context, since *time.Time) (int, error)
}

type financeRepository struct {
	db *sql.DB
}

// NewFinanceRepository creates a new instance of FinanceRepository.
func NewFinanceRepository(db *sql.DB) FinanceRepository {
	return &financeRepository{db: db}
}

// GetSaleAmounts returns every sale in [from, to) oldest first.
func (r *financeRepository) GetSaleAmounts(ctx context.Context, from, to time.Time) ([]models.SaleAmount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT created_at, total, payment_method FROM sales
		 WHERE created_at >= $1 AND created_at < $2 ORDER BY created_at ASC`, from, to)
	if err != nil {
		return nil, mapError(err, "querying sale amounts")
	}
	defer rows.Close()

	amounts := []models.SaleAmount{}
	for rows.Next() {
		var a models.SaleAmount
		if err := rows.Scan(&a.CreatedAt, &a.Total, &a.PaymentMethod); err != nil {
			return nil, mapError(err, "scanning sale amount")
		}
		amounts = append(amounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "iterating sale amount rows")
	}
	return amounts, nil
}

// GetCheckInTimes returns the check-in instant of every visit in [from, to).
func (r *financeRepository) GetCheckInTimes(ctx context.Context, from, to time.Time) ([]time.Time, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT check_in FROM attendances WHERE check_in >= $1 AND check_in < $2 ORDER BY check_in ASC`, from, to)
	if err != nil {
		return nil, mapError(err, "querying check-in times")
	}
	defer rows.Close()

	times := []time.Time{}
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, mapError(err, "scanning check-in time")
		}
		times = append(times, t)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "iterating check-in rows")
	}
	return times, nil
}

func (r *financeRepository) count(ctx context.Context, op, query string, args ...interface{}) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, mapError(err, op)
	}
	return n, nil
}

func (r *financeRepository) CountActiveMemberships(ctx context.Context) (int, error) {
	return r.count(ctx, "counting active memberships", `SELECT COUNT(*) FROM memberships WHERE status = 'ACTIVE'`)
}

func (r *financeRepository) CountExpiringMemberships(ctx context.Context, now, until time.Time) (int, error) {
	return r.count(ctx, "counting expiring memberships",
		`SELECT COUNT(*) FROM memberships WHERE status = 'ACTIVE' AND end_date >= $1 AND end_date <= $2`, now, until)
}

func (r *financeRepository) CountLowStockProducts(ctx context.Context, threshold int) (int, error) {
	return r.count(ctx, "counting low stock products",
		`SELECT COUNT(*) FROM products WHERE is_active = TRUE AND stock <= $1`, threshold)
}

func (r *financeRepository) CountClients(ctx context.Context, since *time.Time) (int, error) {
	if since == nil {
		return r.count(ctx, "counting clients", `SELECT COUNT(*) FROM clients`)
	}
	return r.count(ctx, "counting new clients", `SELECT COUNT(*) FROM clients WHERE created_at >= $1`, *since)
}
