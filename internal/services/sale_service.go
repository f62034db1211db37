package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"gymcore_backend/internal/models"
	"gymcore_backend/internal/repositories"
	"gymcore_backend/pkg/utils"

	"go.opentelemetry.io/otel/attribute"
)

var (
	ErrSaleNotFound         = errors.New("sale not found")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
)

// CreateSaleItemRequest is used for creating individual sale lines.
type CreateSaleItemRequest struct {
	ProductID int64 `json:"productId" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required,gt=0"`
}

// CreateSaleRequest is used for ringing up a sale.
type CreateSaleRequest struct {
	ClientID      *int64                  `json:"clientId"`
	PaymentMethod string                  `json:"paymentMethod" binding:"required"`
	Discount      float64                 `json:"discount" binding:"gte=0"`
	Items         []CreateSaleItemRequest `json:"items" binding:"required,min=1,dive"`
}

// SaleService records point-of-sale tickets.
type SaleService interface {
	CreateSale(ctx context.Context, req CreateSaleRequest, cashierID int64) (*models.Sale, error)
	GetSales(ctx context.Context, filters models.SaleFilters) ([]models.Sale, int, error)
	GetSaleByID(ctx context.Context, id int64) (*models.Sale, error)
}

type saleService struct {
	saleRepo     repositories.SaleRepository
	productRepo  repositories.ProductRepository
	movementRepo repositories.StockMovementRepository
	tx           TxRunner
	cal          Calendar
}

// NewSaleService creates a new instance of SaleService.
func NewSaleService(
	sr repositories.SaleRepository,
	pr repositories.ProductRepository,
	mr repositories.StockMovementRepository,
	tx TxRunner,
	cal Calendar,
) SaleService {
	return &saleService{saleRepo: sr, productRepo: pr, movementRepo: mr, tx: tx, cal: cal}
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

func normalizePaymentMethod(method string) (string, error) {
	method = strings.ToUpper(strings.TrimSpace(method))
	for _, m := range models.ValidPaymentMethods {
		if m == method {
			return method, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, method)
}

// CreateSale decrements stock, writes the sale and its lines in one
// transaction. Any failing line rolls the whole sale back.
func (s *saleService) CreateSale(ctx context.Context, req CreateSaleRequest, cashierID int64) (*models.Sale, error) {
	ctx, span := tracer.Start(ctx, "SaleService.CreateSale")
	defer span.End()
	span.SetAttributes(attribute.Int("sale.items", len(req.Items)))

	method, err := normalizePaymentMethod(req.PaymentMethod)
	if err != nil {
		return nil, err
	}
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: a sale needs at least one item", ErrValidation)
	}
	if req.Discount < 0 {
		return nil, fmt.Errorf("%w: discount cannot be negative", ErrValidation)
	}

	sale := &models.Sale{
		CashierID:     cashierID,
		ClientID:      req.ClientID,
		Discount:      roundCents(req.Discount),
		PaymentMethod: method,
		CreatedAt:     s.cal.Now(),
	}

	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		var gross float64
		items := make([]models.SaleItem, 0, len(req.Items))
		stockAfter := make([]int, 0, len(req.Items))
		for _, line := range req.Items {
			if line.Quantity <= 0 {
				return fmt.Errorf("%w: quantity for product %d must be positive", ErrValidation, line.ProductID)
			}
			p, err := s.productRepo.GetProductForUpdate(ctx, exec, line.ProductID)
			if err != nil {
				if errors.Is(err, repositories.ErrNotFound) {
					return fmt.Errorf("%w: product %d", ErrProductNotFound, line.ProductID)
				}
				return fmt.Errorf("failed to load product %d: %w", line.ProductID, err)
			}
			if !p.IsActive {
				return fmt.Errorf("%w: product %d is inactive", ErrProductNotFound, line.ProductID)
			}
			if p.Stock < line.Quantity {
				return fmt.Errorf("%w: %s has %d, requested %d", ErrInsufficientStock, p.Name, p.Stock, line.Quantity)
			}
			remaining, err := s.productRepo.UpdateStock(ctx, exec, p.ID, -line.Quantity)
			if err != nil {
				if errors.Is(err, repositories.ErrNotFound) {
					return fmt.Errorf("%w: %s", ErrInsufficientStock, p.Name)
				}
				return fmt.Errorf("failed to update stock for product %d: %w", p.ID, err)
			}
			subtotal := roundCents(p.Price * float64(line.Quantity))
			gross += subtotal
			items = append(items, models.SaleItem{
				ProductID:   p.ID,
				ProductName: p.Name,
				Quantity:    line.Quantity,
				UnitPrice:   p.Price,
				Subtotal:    subtotal,
			})
			stockAfter = append(stockAfter, remaining)
		}

		gross = roundCents(gross)
		if sale.Discount > gross {
			return fmt.Errorf("%w: discount %.2f exceeds total %.2f", ErrValidation, sale.Discount, gross)
		}
		sale.Total = roundCents(gross - sale.Discount)

		if _, err := s.saleRepo.CreateSale(ctx, exec, sale); err != nil {
			if errors.Is(err, repositories.ErrForeignKey) {
				return fmt.Errorf("%w: unknown client or cashier", ErrValidation)
			}
			return fmt.Errorf("failed to create sale: %w", err)
		}
		for i := range items {
			items[i].SaleID = sale.ID
			if _, err := s.saleRepo.CreateSaleItem(ctx, exec, &items[i]); err != nil {
				return fmt.Errorf("failed to create sale item: %w", err)
			}
			m := &models.StockMovement{
				ProductID:       items[i].ProductID,
				UserID:          int64Ptr(cashierID),
				SaleID:          int64Ptr(sale.ID),
				MovementType:    models.MovementSale,
				QuantityChanged: -items[i].Quantity,
				StockAfter:      stockAfter[i],
			}
			if _, err := s.movementRepo.CreateMovement(ctx, exec, m); err != nil {
				return fmt.Errorf("failed to record stock movement: %w", err)
			}
		}
		sale.Items = items
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	utils.LogInfo("Sale recorded", map[string]interface{}{"sale_id": sale.ID, "total": sale.Total, "method": sale.PaymentMethod})
	return sale, nil
}

func (s *saleService) GetSales(ctx context.Context, filters models.SaleFilters) ([]models.Sale, int, error) {
	list, total, err := s.saleRepo.GetSales(ctx, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list sales: %w", err)
	}
	return list, total, nil
}

func (s *saleService) GetSaleByID(ctx context.Context, id int64) (*models.Sale, error) {
	sale, err := s.saleRepo.GetSaleByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrSaleNotFound
		}
		return nil, fmt.Errorf("failed to get sale: %w", err)
	}
	return sale, nil
}
