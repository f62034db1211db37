package models

import "time"

// Payment methods.
const (
	PaymentCash     = "CASH"
	PaymentCard     = "CARD"
	PaymentTransfer = "TRANSFER"
)

// ValidPaymentMethods lists the accepted payment methods.
var ValidPaymentMethods = []string{PaymentCash, PaymentCard, PaymentTransfer}

// Sale is a point-of-sale ticket. Total is after discount.
type Sale struct {
	ID            int64      `json:"id" db:"id"`
	CashierID     int64      `json:"cashierId" db:"cashier_id"`
	ClientID      *int64     `json:"clientId,omitempty" db:"client_id"`
	Total         float64    `json:"total" db:"total"`
	Discount      float64    `json:"discount" db:"discount"`
	PaymentMethod string     `json:"paymentMethod" db:"payment_method"`
	CreatedAt     time.Time  `json:"createdAt" db:"created_at"`
	Items         []SaleItem `json:"items"`

	CashierName string  `json:"cashierName,omitempty"`
	ClientName  *string `json:"clientName,omitempty"`
}

// SaleItem is one line of a sale.
type SaleItem struct {
	ID          int64   `json:"id" db:"id"`
	SaleID      int64   `json:"saleId" db:"sale_id"`
	ProductID   int64   `json:"productId" db:"product_id"`
	Quantity    int     `json:"quantity" db:"quantity"`
	UnitPrice   float64 `json:"unitPrice" db:"unit_price"`
	Subtotal    float64 `json:"subtotal" db:"subtotal"`
	ProductName string  `json:"productName,omitempty"`
}

// SaleFilters defines the available filters for querying sales.
type SaleFilters struct {
	From  *time.Time
	To    *time.Time
	Page  int
	Limit int
}
