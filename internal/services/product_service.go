package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gymcore_backend/internal/models"
	"gymcore_backend/internal/repositories"
	"gymcore_backend/pkg/utils"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrBarcodeExists     = errors.New("barcode already exists")
	ErrInsufficientStock = errors.New("insufficient stock for product")
)

// DefaultLowStockThreshold is the stock level at or below which a product is flagged.
const DefaultLowStockThreshold = 5

// CreateProductRequest DTO
type CreateProductRequest struct {
	Name     string  `json:"name" binding:"required"`
	Barcode  *string `json:"barcode"`
	Price    float64 `json:"price" binding:"gte=0"`
	Stock    int     `json:"stock" binding:"gte=0"`
	Category *string `json:"category"`
}

// UpdateProductRequest DTO. Stock changes go through AdjustStock.
type UpdateProductRequest struct {
	Name     *string  `json:"name"`
	Barcode  *string  `json:"barcode"`
	Price    *float64 `json:"price"`
	Category *string  `json:"category"`
	IsActive *bool    `json:"isActive"`
}

// AdjustStockRequest DTO. Delta may be negative.
type AdjustStockRequest struct {
	Delta  int     `json:"delta" binding:"required"`
	Reason *string `json:"reason"`
}

// ProductService manages the retail catalog and its stock ledger.
type ProductService interface {
	CreateProduct(ctx context.Context, req CreateProductRequest, userID int64) (*models.Product, error)
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	GetProductByBarcode(ctx context.Context, barcode string) (*models.Product, error)
	GetProducts(ctx context.Context, filters models.ProductFilters) ([]models.Product, int, error)
	GetLowStock(ctx context.Context, threshold int) ([]models.Product, error)
	UpdateProduct(ctx context.Context, id int64, req UpdateProductRequest) (*models.Product, error)
	AdjustStock(ctx context.Context, id int64, req AdjustStockRequest, userID int64) (*models.Product, error)
	GetStockMovements(ctx context.Context, id int64, page, limit int) ([]models.StockMovement, int, error)
	DeleteProduct(ctx context.Context, id int64) error
}

type productService struct {
	productRepo  repositories.ProductRepository
	movementRepo repositories.StockMovementRepository
	tx           TxRunner
}

// NewProductService creates a new instance of ProductService.
func NewProductService(pr repositories.ProductRepository, mr repositories.StockMovementRepository, tx TxRunner) ProductService {
	return &productService{productRepo: pr, movementRepo: mr, tx: tx}
}

func mapProductErr(err error, op string) error {
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return ErrProductNotFound
	case errors.Is(err, repositories.ErrDuplicateKey):
		return ErrBarcodeExists
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

func (s *productService) CreateProduct(ctx context.Context, req CreateProductRequest, userID int64) (*models.Product, error) {
	if utils.IsEmpty(req.Name) {
		return nil, fmt.Errorf("%w: product name cannot be empty", ErrValidation)
	}
	if req.Price < 0 || req.Stock < 0 {
		return nil, fmt.Errorf("%w: price and stock cannot be negative", ErrValidation)
	}
	p := &models.Product{
		Name:     strings.TrimSpace(req.Name),
		Barcode:  trimmedOrNil(req.Barcode),
		Price:    req.Price,
		Stock:    req.Stock,
		Category: trimmedOrNil(req.Category),
		IsActive: true,
	}
	if _, err := s.productRepo.CreateProduct(ctx, p); err != nil {
		return nil, mapProductErr(err, "create product")
	}
	if p.Stock > 0 {
		m := &models.StockMovement{
			ProductID:       p.ID,
			MovementType:    models.MovementInitial,
			QuantityChanged: p.Stock,
			StockAfter:      p.Stock,
		}
		if userID > 0 {
			m.UserID = int64Ptr(userID)
		}
		if _, err := s.movementRepo.CreateMovement(ctx, nil, m); err != nil {
			utils.LogWarn(err, "Failed to record initial stock movement", map[string]interface{}{"product_id": p.ID})
		}
	}
	return p, nil
}

func (s *productService) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	p, err := s.productRepo.GetProductByID(ctx, nil, id)
	if err != nil {
		return nil, mapProductErr(err, "get product")
	}
	return p, nil
}

func (s *productService) GetProductByBarcode(ctx context.Context, barcode string) (*models.Product, error) {
	p, err := s.productRepo.GetProductByBarcode(ctx, barcode)
	if err != nil {
		return nil, mapProductErr(err, "get product by barcode")
	}
	return p, nil
}

func (s *productService) GetProducts(ctx context.Context, filters models.ProductFilters) ([]models.Product, int, error) {
	list, total, err := s.productRepo.GetProducts(ctx, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	return list, total, nil
}

func (s *productService) GetLowStock(ctx context.Context, threshold int) ([]models.Product, error) {
	if threshold <= 0 {
		threshold = DefaultLowStockThreshold
	}
	list, err := s.productRepo.GetLowStock(ctx, threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to list low stock products: %w", err)
	}
	return list, nil
}

func (s *productService) UpdateProduct(ctx context.Context, id int64, req UpdateProductRequest) (*models.Product, error) {
	p, err := s.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		if utils.IsEmpty(*req.Name) {
			return nil, fmt.Errorf("%w: product name cannot be empty", ErrValidation)
		}
		p.Name = strings.TrimSpace(*req.Name)
	}
	if req.Barcode != nil {
		p.Barcode = trimmedOrNil(req.Barcode)
	}
	if req.Price != nil {
		if *req.Price < 0 {
			return nil, fmt.Errorf("%w: price cannot be negative", ErrValidation)
		}
		p.Price = *req.Price
	}
	if req.Category != nil {
		p.Category = trimmedOrNil(req.Category)
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
	if err := s.productRepo.UpdateProduct(ctx, p); err != nil {
		return nil, mapProductErr(err, "update product")
	}
	return p, nil
}

// AdjustStock applies a manual correction and records it in the stock ledger.
func (s *productService) AdjustStock(ctx context.Context, id int64, req AdjustStockRequest, userID int64) (*models.Product, error) {
	if req.Delta == 0 {
		return nil, fmt.Errorf("%w: delta cannot be zero", ErrValidation)
	}
	var product *models.Product
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		p, err := s.productRepo.GetProductForUpdate(ctx, exec, id)
		if err != nil {
			return mapProductErr(err, "lock product")
		}
		if p.Stock+req.Delta < 0 {
			return fmt.Errorf("%w: %s has %d, adjustment is %d", ErrInsufficientStock, p.Name, p.Stock, req.Delta)
		}
		if p.Stock, err = s.productRepo.UpdateStock(ctx, exec, id, req.Delta); err != nil {
			return mapProductErr(err, "update stock")
		}
		m := &models.StockMovement{
			ProductID:       id,
			MovementType:    models.MovementAdjustment,
			QuantityChanged: req.Delta,
			StockAfter:      p.Stock,
			Reason:          trimmedOrNil(req.Reason),
		}
		if userID > 0 {
			m.UserID = int64Ptr(userID)
		}
		if _, err := s.movementRepo.CreateMovement(ctx, exec, m); err != nil {
			return fmt.Errorf("failed to record stock movement: %w", err)
		}
		product = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

func (s *productService) GetStockMovements(ctx context.Context, id int64, page, limit int) ([]models.StockMovement, int, error) {
	if _, err := s.GetProductByID(ctx, id); err != nil {
		return nil, 0, err
	}
	list, total, err := s.movementRepo.GetMovements(ctx, id, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list stock movements: %w", err)
	}
	return list, total, nil
}

// DeleteProduct hides the product from the catalog; sales keep referencing it.
func (s *productService) DeleteProduct(ctx context.Context, id int64) error {
	if err := s.productRepo.DeactivateProduct(ctx, id); err != nil {
		return mapProductErr(err, "deactivate product")
	}
	return nil
}
