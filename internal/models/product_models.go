package models

import "time"

// Product is a retail item sold at the front desk.
type Product struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Barcode   *string   `json:"barcode,omitempty" db:"barcode"`
	Price     float64   `json:"price" db:"price"`
	Stock     int       `json:"stock" db:"stock"`
	Category  *string   `json:"category,omitempty" db:"category"`
	IsActive  bool      `json:"isActive" db:"is_active"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// ProductFilters narrows the product listing. Only active products are listed.
type ProductFilters struct {
	Search   string
	Category string
	Page     int
	Limit    int
}

// Asset statuses.
const (
	AssetActive      = "ACTIVE"
	AssetMaintenance = "MAINTENANCE"
	AssetRetired     = "RETIRED"
)

// Asset is a piece of gym equipment.
type Asset struct {
	ID            int64      `json:"id" db:"id"`
	Name          string     `json:"name" db:"name"`
	SerialNumber  *string    `json:"serialNumber,omitempty" db:"serial_number"`
	PurchaseDate  *time.Time `json:"purchaseDate,omitempty" db:"purchase_date"`
	PurchasePrice *float64   `json:"purchasePrice,omitempty" db:"purchase_price"`
	Status        string     `json:"status" db:"status"`
	Notes         *string    `json:"notes,omitempty" db:"notes"`
	CreatedAt     time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time  `json:"updatedAt" db:"updated_at"`
}

// Stock movement types.
const (
	MovementSale       = "SALE"
	MovementAdjustment = "ADJUSTMENT"
	MovementInitial    = "INITIAL"
)

// StockMovement is one entry of a product's stock ledger.
type StockMovement struct {
	ID              int64     `json:"id" db:"id"`
	ProductID       int64     `json:"productId" db:"product_id"`
	UserID          *int64    `json:"userId,omitempty" db:"user_id"`
	SaleID          *int64    `json:"saleId,omitempty" db:"sale_id"`
	MovementType    string    `json:"movementType" db:"movement_type"`
	QuantityChanged int       `json:"quantityChanged" db:"quantity_changed"`
	StockAfter      int       `json:"stockAfter" db:"stock_after"`
	Reason          *string   `json:"reason,omitempty" db:"reason"`
	CreatedAt       time.Time `json:"createdAt" db:"created_at"`

	UserName *string `json:"userName,omitempty"`
}
