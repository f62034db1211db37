package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"gymcore_backend/internal/models"
	"gymcore_backend/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// shopDB is an in-memory product catalog, sales book and stock ledger.
type shopDB struct {
	mu        sync.Mutex
	nextID    int64
	products  map[int64]*models.Product
	sales     []*models.Sale
	items     []*models.SaleItem
	movements []*models.StockMovement

	failSaleItem error
}

func newShopDB() *shopDB { return &shopDB{products: map[int64]*models.Product{}} }

func (s *shopDB) addProduct(name string, price float64, stock int) *models.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	p := &models.Product{ID: s.nextID, Name: name, Price: price, Stock: stock, IsActive: true}
	s.products[p.ID] = p
	return p
}

func (s *shopDB) stockOf(id int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[id].Stock
}

func (s *shopDB) WithinTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	s.mu.Lock()
	products := map[int64]models.Product{}
	for id, p := range s.products {
		products[id] = *p
	}
	sales, items, movements := len(s.sales), len(s.items), len(s.movements)
	s.mu.Unlock()

	if err := fn(nil); err != nil {
		s.mu.Lock()
		for id, p := range products {
			cp := p
			s.products[id] = &cp
		}
		s.sales, s.items, s.movements = s.sales[:sales], s.items[:items], s.movements[:movements]
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *shopDB) CreateProduct(ctx context.Context, p *models.Product) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.Barcode != nil {
		for _, x := range s.products {
			if x.Barcode != nil && *x.Barcode == *p.Barcode {
				return 0, repositories.ErrDuplicateKey
			}
		}
	}
	s.nextID++
	p.ID = s.nextID
	cp := *p
	s.products[p.ID] = &cp
	return p.ID, nil
}

func (s *shopDB) GetProductByID(ctx context.Context, exec repositories.SQLExecutor, id int64) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *shopDB) GetProductForUpdate(ctx context.Context, exec repositories.SQLExecutor, id int64) (*models.Product, error) {
	return s.GetProductByID(ctx, exec, id)
}

func (s *shopDB) GetProductByBarcode(ctx context.Context, barcode string) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.products {
		if p.IsActive && p.Barcode != nil && *p.Barcode == barcode {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (s *shopDB) GetProducts(ctx context.Context, f models.ProductFilters) ([]models.Product, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Product{}
	for _, p := range s.products {
		if p.IsActive {
			out = append(out, *p)
		}
	}
	return out, len(out), nil
}

func (s *shopDB) GetLowStock(ctx context.Context, threshold int) ([]models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Product{}
	for _, p := range s.products {
		if p.IsActive && p.Stock <= threshold {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *shopDB) UpdateProduct(ctx context.Context, p *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[p.ID]; !ok {
		return repositories.ErrNotFound
	}
	cp := *p
	s.products[p.ID] = &cp
	return nil
}

func (s *shopDB) UpdateStock(ctx context.Context, exec repositories.SQLExecutor, id int64, delta int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok || p.Stock+delta < 0 {
		return 0, repositories.ErrNotFound
	}
	p.Stock += delta
	return p.Stock, nil
}

func (s *shopDB) DeactivateProduct(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return repositories.ErrNotFound
	}
	p.IsActive = false
	return nil
}

func (s *shopDB) CreateSale(ctx context.Context, exec repositories.SQLExecutor, sale *models.Sale) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	sale.ID = s.nextID
	cp := *sale
	s.sales = append(s.sales, &cp)
	return sale.ID, nil
}

func (s *shopDB) CreateSaleItem(ctx context.Context, exec repositories.SQLExecutor, item *models.SaleItem) (int64, error) {
	if s.failSaleItem != nil {
		return 0, s.failSaleItem
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	item.ID = s.nextID
	cp := *item
	s.items = append(s.items, &cp)
	return item.ID, nil
}

func (s *shopDB) GetSaleByID(ctx context.Context, id int64) (*models.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, x := range s.sales {
		if x.ID == id {
			cp := *x
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (s *shopDB) GetSales(ctx context.Context, f models.SaleFilters) ([]models.Sale, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Sale{}
	for _, x := range s.sales {
		out = append(out, *x)
	}
	return out, len(out), nil
}

func (s *shopDB) CreateMovement(ctx context.Context, exec repositories.SQLExecutor, m *models.StockMovement) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	m.ID = s.nextID
	cp := *m
	s.movements = append(s.movements, &cp)
	return m.ID, nil
}

func (s *shopDB) GetMovements(ctx context.Context, productID int64, page, limit int) ([]models.StockMovement, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.StockMovement{}
	for i := len(s.movements) - 1; i >= 0; i-- {
		if s.movements[i].ProductID == productID {
			out = append(out, *s.movements[i])
		}
	}
	return out, len(out), nil
}

func newSaleFixture() (*shopDB, SaleService) {
	shop := newShopDB()
	cal := NewCalendar(nil, newTestClock(date(2024, 3, 1, 10, 0)).Now)
	return shop, NewSaleService(shop, shop, shop, shop, cal)
}

func TestCreateSale(t *testing.T) {
	shop, svc := newSaleFixture()
	water := shop.addProduct("Water", 1.5, 10)
	bar := shop.addProduct("Protein bar", 2.35, 4)

	sale, err := svc.CreateSale(context.Background(), CreateSaleRequest{
		PaymentMethod: "cash",
		Discount:      0.5,
		Items: []CreateSaleItemRequest{
			{ProductID: water.ID, Quantity: 3},
			{ProductID: bar.ID, Quantity: 2},
		},
	}, 9)
	require.NoError(t, err)

	assert.Equal(t, models.PaymentCash, sale.PaymentMethod)
	assert.InDelta(t, 8.7, sale.Total, 0.001)
	require.Len(t, sale.Items, 2)
	assert.InDelta(t, 4.5, sale.Items[0].Subtotal, 0.001)
	assert.InDelta(t, 4.7, sale.Items[1].Subtotal, 0.001)
	assert.Equal(t, sale.ID, sale.Items[1].SaleID)

	assert.Equal(t, 7, shop.stockOf(water.ID))
	assert.Equal(t, 2, shop.stockOf(bar.ID))

	require.Len(t, shop.movements, 2)
	assert.Equal(t, models.MovementSale, shop.movements[0].MovementType)
	assert.Equal(t, -3, shop.movements[0].QuantityChanged)
	assert.Equal(t, 7, shop.movements[0].StockAfter)
	assert.Equal(t, 2, shop.movements[1].StockAfter)
	require.NotNil(t, shop.movements[1].SaleID)
	assert.Equal(t, sale.ID, *shop.movements[1].SaleID)
}

func TestCreateSale_RollsBack(t *testing.T) {
	ctx := context.Background()

	t.Run("insufficient stock on a later line", func(t *testing.T) {
		shop, svc := newSaleFixture()
		water := shop.addProduct("Water", 1.5, 10)
		bar := shop.addProduct("Protein bar", 2.35, 1)

		_, err := svc.CreateSale(ctx, CreateSaleRequest{
			PaymentMethod: "CARD",
			Items: []CreateSaleItemRequest{
				{ProductID: water.ID, Quantity: 3},
				{ProductID: bar.ID, Quantity: 2},
			},
		}, 1)
		assert.ErrorIs(t, err, ErrInsufficientStock)
		assert.Equal(t, 10, shop.stockOf(water.ID))
		assert.Empty(t, shop.sales)
		assert.Empty(t, shop.movements)
	})

	t.Run("item insert fails", func(t *testing.T) {
		shop, svc := newSaleFixture()
		water := shop.addProduct("Water", 1.5, 10)
		shop.failSaleItem = errors.New("disk full")

		_, err := svc.CreateSale(ctx, CreateSaleRequest{
			PaymentMethod: "TRANSFER",
			Items:         []CreateSaleItemRequest{{ProductID: water.ID, Quantity: 1}},
		}, 1)
		require.Error(t, err)
		assert.Equal(t, 10, shop.stockOf(water.ID))
		assert.Empty(t, shop.sales)
	})

	t.Run("discount above total", func(t *testing.T) {
		shop, svc := newSaleFixture()
		water := shop.addProduct("Water", 1.5, 10)
		_, err := svc.CreateSale(ctx, CreateSaleRequest{
			PaymentMethod: "CASH",
			Discount:      5,
			Items:         []CreateSaleItemRequest{{ProductID: water.ID, Quantity: 1}},
		}, 1)
		assert.ErrorIs(t, err, ErrValidation)
		assert.Equal(t, 10, shop.stockOf(water.ID))
	})

	t.Run("inactive product", func(t *testing.T) {
		shop, svc := newSaleFixture()
		water := shop.addProduct("Water", 1.5, 10)
		require.NoError(t, shop.DeactivateProduct(ctx, water.ID))
		_, err := svc.CreateSale(ctx, CreateSaleRequest{
			PaymentMethod: "CASH",
			Items:         []CreateSaleItemRequest{{ProductID: water.ID, Quantity: 1}},
		}, 1)
		assert.ErrorIs(t, err, ErrProductNotFound)
	})
}

func TestCreateSale_Validation(t *testing.T) {
	_, svc := newSaleFixture()
	ctx := context.Background()

	_, err := svc.CreateSale(ctx, CreateSaleRequest{PaymentMethod: "BITCOIN", Items: []CreateSaleItemRequest{{ProductID: 1, Quantity: 1}}}, 1)
	assert.ErrorIs(t, err, ErrInvalidPaymentMethod)

	_, err = svc.CreateSale(ctx, CreateSaleRequest{PaymentMethod: "CASH"}, 1)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateSale(ctx, CreateSaleRequest{PaymentMethod: "CASH", Items: []CreateSaleItemRequest{{ProductID: 1, Quantity: 0}}}, 1)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestGetSaleByID_NotFound(t *testing.T) {
	_, svc := newSaleFixture()
	_, err := svc.GetSaleByID(context.Background(), 42)
	assert.ErrorIs(t, err, ErrSaleNotFound)
}

func TestProductStockLedger(t *testing.T) {
	ctx := context.Background()
	shop := newShopDB()
	svc := NewProductService(shop, shop, shop)

	p, err := svc.CreateProduct(ctx, CreateProductRequest{Name: " Towel ", Price: 12, Stock: 6, Barcode: strPtr("77001")}, 2)
	require.NoError(t, err)
	assert.Equal(t, "Towel", p.Name)

	_, err = svc.CreateProduct(ctx, CreateProductRequest{Name: "Other", Barcode: strPtr("77001")}, 2)
	assert.ErrorIs(t, err, ErrBarcodeExists)

	adjusted, err := svc.AdjustStock(ctx, p.ID, AdjustStockRequest{Delta: -2, Reason: strPtr("damaged")}, 2)
	require.NoError(t, err)
	assert.Equal(t, 4, adjusted.Stock)

	_, err = svc.AdjustStock(ctx, p.ID, AdjustStockRequest{Delta: -5}, 2)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	_, err = svc.AdjustStock(ctx, p.ID, AdjustStockRequest{Delta: 0}, 2)
	assert.ErrorIs(t, err, ErrValidation)

	moves, total, err := svc.GetStockMovements(ctx, p.ID, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, models.MovementAdjustment, moves[0].MovementType)
	assert.Equal(t, 4, moves[0].StockAfter)
	assert.Equal(t, models.MovementInitial, moves[1].MovementType)
	assert.Equal(t, 6, moves[1].QuantityChanged)

	low, err := svc.GetLowStock(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, low, 1)

	require.NoError(t, svc.DeleteProduct(ctx, p.ID))
	_, err = svc.GetProductByBarcode(ctx, "77001")
	assert.ErrorIs(t, err, ErrProductNotFound)
}
