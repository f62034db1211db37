package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gymcore_backend/internal/models"

	"github.com/lib/pq"
)

// SaleRepository defines database operations on point-of-sale tickets.
type SaleRepository interface {
	CreateSale(ctx context.Context, exec SQLExecutor, sale *models.Sale) (int64, error)
	CreateSaleItem(ctx context.Context, exec SQLExecutor, item *models.SaleItem) (int64, error)
	GetSaleByID(ctx context.Context, id int64) (*models.Sale, error)
	GetSales(ctx context.Context, filters models.SaleFilters) ([]models.Sale, int, error)
}

type saleRepository struct {
	db *sql.DB
}

// NewSaleRepository creates a new instance of SaleRepository.
func NewSaleRepository(db *sql.DB) SaleRepository {
	return &saleRepository{db: db}
}

const saleSelect = `SELECT s.id, s.cashier_id, s.client_id, s.total, s.discount, s.payment_method, s.created_at,
	       u.name, c.name`

const saleFrom = ` FROM sales s
	JOIN users u ON u.id = s.cashier_id
	LEFT JOIN clients c ON c.id = s.client_id`

func scanSale(row scanner, extra ...interface{}) (*models.Sale, error) {
	s := &models.Sale{Items: []models.SaleItem{}}
	var clientID sql.NullInt64
	var clientName sql.NullString
	dest := []interface{}{&s.ID, &s.CashierID, &clientID, &s.Total, &s.Discount, &s.PaymentMethod, &s.CreatedAt, &s.CashierName, &clientName}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	s.ClientID = nullInt64Ptr(clientID)
	s.ClientName = nullStringPtr(clientName)
	return s, nil
}

func (r *saleRepository) CreateSale(ctx context.Context, exec SQLExecutor, sale *models.Sale) (int64, error) {
	query := `INSERT INTO sales (cashier_id, client_id, total, discount, payment_method, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          RETURNING id`
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now()
	}
	err := executorOr(r.db, exec).QueryRowContext(ctx, query,
		sale.CashierID, sale.ClientID, sale.Total, sale.Discount, sale.PaymentMethod, sale.CreatedAt,
	).Scan(&sale.ID)
	if err != nil {
		return 0, mapError(err, "creating sale")
	}
	return sale.ID, nil
}

func (r *saleRepository) CreateSaleItem(ctx context.Context, exec SQLExecutor, item *models.SaleItem) (int64, error) {
	query := `INSERT INTO sale_items (sale_id, product_id, quantity, unit_price, subtotal)
	          VALUES ($1, $2, $3, $4, $5)
	          RETURNING id`
	err := executorOr(r.db, exec).QueryRowContext(ctx, query,
		item.SaleID, item.ProductID, item.Quantity, item.UnitPrice, item.Subtotal,
	).Scan(&item.ID)
	if err != nil {
		return 0, mapError(err, "creating sale item")
	}
	return item.ID, nil
}

func (r *saleRepository) GetSaleByID(ctx context.Context, id int64) (*models.Sale, error) {
	s, err := scanSale(r.db.QueryRowContext(ctx, saleSelect+saleFrom+` WHERE s.id = $1`, id))
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("getting sale %d", id))
	}
	sales := []models.Sale{*s}
	if err := r.attachItems(ctx, sales); err != nil {
		return nil, err
	}
	return &sales[0], nil
}

// GetSales lists sales in [From, To] newest first, items included.
func (r *saleRepository) GetSales(ctx context.Context, filters models.SaleFilters) ([]models.Sale, int, error) {
	var where whereBuilder
	if filters.From != nil {
		where.add("s.created_at >= $%d", *filters.From)
	}
	if filters.To != nil {
		where.add("s.created_at <= $%d", *filters.To)
	}
	query := saleSelect + `, COUNT(*) OVER() AS total_count` + saleFrom +
		where.String() + ` ORDER BY s.created_at DESC, s.id DESC` + where.paginate(filters.Page, filters.Limit)

	rows, err := r.db.QueryContext(ctx, query, where.args...)
	if err != nil {
		return nil, 0, mapError(err, "querying sales")
	}
	defer rows.Close()

	sales := []models.Sale{}
	total := 0
	for rows.Next() {
		s, err := scanSale(rows, &total)
		if err != nil {
			return nil, 0, mapError(err, "scanning sale")
		}
		sales = append(sales, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, mapError(err, "iterating sale rows")
	}
	if err := r.attachItems(ctx, sales); err != nil {
		return nil, 0, err
	}
	return sales, total, nil
}

func (r *saleRepository) attachItems(ctx context.Context, sales []models.Sale) error {
	if len(sales) == 0 {
		return nil
	}
	ids := make([]int64, len(sales))
	index := make(map[int64]int, len(sales))
	for i, s := range sales {
		ids[i] = s.ID
		index[s.ID] = i
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT si.id, si.sale_id, si.product_id, si.quantity, si.unit_price, si.subtotal, p.name
		 FROM sale_items si JOIN products p ON p.id = si.product_id
		 WHERE si.sale_id = ANY($1) ORDER BY si.id`, pq.Array(ids))
	if err != nil {
		return mapError(err, "querying sale items")
	}
	defer rows.Close()

	for rows.Next() {
		var it models.SaleItem
		if err := rows.Scan(&it.ID, &it.SaleID, &it.ProductID, &it.Quantity, &it.UnitPrice, &it.Subtotal, &it.ProductName); err != nil {
			return mapError(err, "scanning sale item")
		}
		i := index[it.SaleID]
		sales[i].Items = append(sales[i].Items, it)
	}
	if err := rows.Err(); err != nil {
		return mapError(err, "iterating sale item rows")
	}
	return nil
}
