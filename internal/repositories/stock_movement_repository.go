package repositories

import (
	"context"
	"database/sql"
	"time"

	"gymcore_backend/internal/models"
)

// StockMovementRepository records every change to a product's stock level.
type StockMovementRepository interface {
	CreateMovement(ctx context.Context, exec SQLExecutor, movement *models.StockMovement) (int64, error)
	GetMovements(ctx context.Context, productID int64, page, limit int) ([]models.StockMovement, int, error)
}

type stockMovementRepository struct {
	db *sql.DB
}

// NewStockMovementRepository creates a new instance of StockMovementRepository.
func NewStockMovementRepository(db *sql.DB) StockMovementRepository {
	return &stockMovementRepository{db: db}
}

func (r *stockMovementRepository) CreateMovement(ctx context.Context, exec SQLExecutor, movement *models.StockMovement) (int64, error) {
	query := `INSERT INTO stock_movements (product_id, user_id, sale_id, movement_type, quantity_changed, stock_after, reason, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	          RETURNING id`
	if movement.CreatedAt.IsZero() {
		movement.CreatedAt = time.Now()
	}
	err := executorOr(r.db, exec).QueryRowContext(ctx, query,
		movement.ProductID, movement.UserID, movement.SaleID, movement.MovementType,
		movement.QuantityChanged, movement.StockAfter, movement.Reason, movement.CreatedAt,
	).Scan(&movement.ID)
	if err != nil {
		return 0, mapError(err, "creating stock movement")
	}
	return movement.ID, nil
}

// GetMovements pages through a product's stock history, newest first.
func (r *stockMovementRepository) GetMovements(ctx context.Context, productID int64, page, limit int) ([]models.StockMovement, int, error) {
	var where whereBuilder
	where.add("sm.product_id = $%d", productID)
	query := `SELECT sm.id, sm.product_id, sm.user_id, sm.sale_id, sm.movement_type, sm.quantity_changed,
	                 sm.stock_after, sm.reason, sm.created_at, u.name, COUNT(*) OVER() AS total_count
	          FROM stock_movements sm
	          LEFT JOIN users u ON u.id = sm.user_id` +
		where.String() + ` ORDER BY sm.created_at DESC, sm.id DESC` + where.paginate(page, limit)

	rows, err := r.db.QueryContext(ctx, query, where.args...)
	if err != nil {
		return nil, 0, mapError(err, "querying stock movements")
	}
	defer rows.Close()

	movements := []models.StockMovement{}
	total := 0
	for rows.Next() {
		var m models.StockMovement
		var userID, saleID sql.NullInt64
		var reason, userName sql.NullString
		if err := rows.Scan(&m.ID, &m.ProductID, &userID, &saleID, &m.MovementType, &m.QuantityChanged,
			&m.StockAfter, &reason, &m.CreatedAt, &userName, &total); err != nil {
			return nil, 0, mapError(err, "scanning stock movement")
		}
		m.UserID = nullInt64Ptr(userID)
		m.SaleID = nullInt64Ptr(saleID)
		m.Reason = nullStringPtr(reason)
		m.UserName = nullStringPtr(userName)
		movements = append(movements, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, mapError(err, "iterating stock movement rows")
	}
	return movements, total, nil
}
