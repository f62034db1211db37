package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"gymcore_backend/internal/models"
)

// ProductRepository defines database operations on retail products.
type ProductRepository interface {
	CreateProduct(ctx context.Context, p *models.Product) (int64, error)
	GetProductByID(ctx context.Context, exec SQLExecutor, id int64) (*models.Product, error)
	// GetProductForUpdate locks the product row for the rest of the transaction.
	GetProductForUpdate(ctx context.Context, exec SQLExecutor, id int64) (*models.Product, error)
	GetProductByBarcode(ctx context.Context, barcode string) (*models.Product, error)
	GetProducts(ctx context.Context, filters models.ProductFilters) ([]models.Product, int, error)
	GetLowStock(ctx context.Context, threshold int) ([]models.Product, error)
	UpdateProduct(ctx context.Context, p *models.Product) error
	// UpdateStock adds delta to the stock and returns the new level. It
	// returns ErrNotFound when the product is unknown or the result would go negative.
	UpdateStock(ctx context.Context, exec SQLExecutor, id int64, delta int) (int, error)
	DeactivateProduct(ctx context.Context, id int64) error
}

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new instance of ProductRepository.
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db}
}

const productColumns = `id, name, barcode, price, stock, category, is_active, created_at, updated_at`

func scanProduct(row scanner, extra ...interface{}) (*models.Product, error) {
	p := &models.Product{}
	var barcode, category sql.NullString
	dest := []interface{}{&p.ID, &p.Name, &barcode, &p.Price, &p.Stock, &category, &p.IsActive, &p.CreatedAt, &p.UpdatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	p.Barcode = nullStringPtr(barcode)
	p.Category = nullStringPtr(category)
	return p, nil
}

func (r *productRepository) CreateProduct(ctx context.Context, p *models.Product) (int64, error) {
	query := `INSERT INTO products (name, barcode, price, stock, category, is_active, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	          RETURNING id`
	now := time.Now()
	p.CreatedAt, p.UpdatedAt = now, now
	err := r.db.QueryRowContext(ctx, query, p.Name, p.Barcode, p.Price, p.Stock, p.Category, p.IsActive, now, now).Scan(&p.ID)
	if err != nil {
		return 0, mapError(err, "creating product")
	}
	return p.ID, nil
}

func (r *productRepository) GetProductByID(ctx context.Context, exec SQLExecutor, id int64) (*models.Product, error) {
	p, err := scanProduct(executorOr(r.db, exec).QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("getting product %d", id))
	}
	return p, nil
}

func (r *productRepository) GetProductForUpdate(ctx context.Context, exec SQLExecutor, id int64) (*models.Product, error) {
	p, err := scanProduct(executorOr(r.db, exec).QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("locking product %d", id))
	}
	return p, nil
}

func (r *productRepository) GetProductByBarcode(ctx context.Context, barcode string) (*models.Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE barcode = $1 AND is_active = TRUE`, strings.TrimSpace(barcode)))
	if err != nil {
		return nil, mapError(err, "getting product by barcode")
	}
	return p, nil
}

func (r *productRepository) GetProducts(ctx context.Context, filters models.ProductFilters) ([]models.Product, int, error) {
	var where whereBuilder
	where.addRaw("is_active = TRUE")
	if s := strings.TrimSpace(filters.Search); s != "" {
		where.add("(name ILIKE $%[1]d OR barcode ILIKE $%[1]d)", "%"+s+"%")
	}
	if c := strings.TrimSpace(filters.Category); c != "" {
		where.add("category = $%d", c)
	}
	query := `SELECT ` + productColumns + `, COUNT(*) OVER() AS total_count FROM products` +
		where.String() + ` ORDER BY name ASC` + where.paginate(filters.Page, filters.Limit)

	rows, err := r.db.QueryContext(ctx, query, where.args...)
	if err != nil {
		return nil, 0, mapError(err, "querying products")
	}
	defer rows.Close()

	products := []models.Product{}
	total := 0
	for rows.Next() {
		p, err := scanProduct(rows, &total)
		if err != nil {
			return nil, 0, mapError(err, "scanning product")
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, mapError(err, "iterating product rows")
	}
	return products, total, nil
}

func (r *productRepository) GetLowStock(ctx context.Context, threshold int) ([]models.Product, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE is_active = TRUE AND stock <= $1 ORDER BY stock ASC, name ASC`, threshold)
	if err != nil {
		return nil, mapError(err, "querying low stock products")
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, mapError(err, "scanning product")
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "iterating product rows")
	}
	return products, nil
}

func (r *productRepository) UpdateProduct(ctx context.Context, p *models.Product) error {
	query := `UPDATE products SET name = $1, barcode = $2, price = $3, category = $4, is_active = $5, updated_at = $6
	          WHERE id = $7`
	p.UpdatedAt = time.Now()
	res, err := r.db.ExecContext(ctx, query, p.Name, p.Barcode, p.Price, p.Category, p.IsActive, p.UpdatedAt, p.ID)
	if err != nil {
		return mapError(err, "updating product")
	}
	return rowsAffectedOrNotFound(res, "updating product")
}

func (r *productRepository) UpdateStock(ctx context.Context, exec SQLExecutor, id int64, delta int) (int, error) {
	var stock int
	err := executorOr(r.db, exec).QueryRowContext(ctx,
		`UPDATE products SET stock = stock + $1, updated_at = NOW()
		 WHERE id = $2 AND stock + $1 >= 0
		 RETURNING stock`, delta, id).Scan(&stock)
	if err != nil {
		return 0, mapError(err, "updating product stock")
	}
	return stock, nil
}

// DeactivateProduct is the soft delete for products; sale history keeps its rows.
func (r *productRepository) DeactivateProduct(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE products SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return mapError(err, "deactivating product")
	}
	return rowsAffectedOrNotFound(res, "deactivating product")
}
