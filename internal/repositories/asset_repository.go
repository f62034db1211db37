package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gymcore_backend/internal/models"
)

// AssetRepository defines database operations on gym equipment.
type AssetRepository interface {
	CreateAsset(ctx context.Context, a *models.Asset) (int64, error)
	GetAssetByID(ctx context.Context, id int64) (*models.Asset, error)
	GetAssets(ctx context.Context, status string) ([]models.Asset, error)
	UpdateAsset(ctx context.Context, a *models.Asset) error
}

type assetRepository struct {
	db *sql.DB
}

// NewAssetRepository creates a new instance of AssetRepository.
func NewAssetRepository(db *sql.DB) AssetRepository {
	return &assetRepository{db: db}
}

const assetColumns = `id, name, serial_number, purchase_date, purchase_price, status, notes, created_at, updated_at`

func scanAsset(row scanner) (*models.Asset, error) {
	a := &models.Asset{}
	var serial, notes sql.NullString
	var purchased sql.NullTime
	var price sql.NullFloat64
	if err := row.Scan(&a.ID, &a.Name, &serial, &purchased, &price, &a.Status, &notes, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.SerialNumber = nullStringPtr(serial)
	a.PurchaseDate = nullTimePtr(purchased)
	a.PurchasePrice = nullFloat64Ptr(price)
	a.Notes = nullStringPtr(notes)
	return a, nil
}

func (r *assetRepository) CreateAsset(ctx context.Context, a *models.Asset) (int64, error) {
	now := time.Now()
	a.CreatedAt, a.UpdatedAt = now, now
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO assets (name, serial_number, purchase_date, purchase_price, status, notes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		a.Name, a.SerialNumber, a.PurchaseDate, a.PurchasePrice, a.Status, a.Notes, now, now,
	).Scan(&a.ID)
	if err != nil {
		return 0, mapError(err, "creating asset")
	}
	return a.ID, nil
}

func (r *assetRepository) GetAssetByID(ctx context.Context, id int64) (*models.Asset, error) {
	a, err := scanAsset(r.db.QueryRowContext(ctx, `SELECT `+assetColumns+` FROM assets WHERE id = $1`, id))
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("getting asset %d", id))
	}
	return a, nil
}

// GetAssets lists assets by name; an empty status lists all of them.
func (r *assetRepository) GetAssets(ctx context.Context, status string) ([]models.Asset, error) {
	var where whereBuilder
	if status != "" {
		where.add("status = $%d", status)
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+assetColumns+` FROM assets`+where.String()+` ORDER BY name ASC`, where.args...)
	if err != nil {
		return nil, mapError(err, "querying assets")
	}
	defer rows.Close()

	assets := []models.Asset{}
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, mapError(err, "scanning asset")
		}
		assets = append(assets, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "iterating asset rows")
	}
	return assets, nil
}

func (r *assetRepository) UpdateAsset(ctx context.Context, a *models.Asset) error {
	a.UpdatedAt = time.Now()
	res, err := r.db.ExecContext(ctx,
		`UPDATE assets SET name = $1, serial_number = $2, purchase_date = $3, purchase_price = $4,
		   status = $5, notes = $6, updated_at = $7
		 WHERE id = $8`,
		a.Name, a.SerialNumber, a.PurchaseDate, a.PurchasePrice, a.Status, a.Notes, a.UpdatedAt, a.ID)
	if err != nil {
		return mapError(err, "updating asset")
	}
	return rowsAffectedOrNotFound(res, "updating asset")
}
