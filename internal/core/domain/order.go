package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order is the read model of an order opting into installment payment.
// Catalog and cart management live outside this service; settlement only
// reads order data and marks the order paid once its plan completes.
type Order struct {
	ID            uuid.UUID       `json:"id"`
	CustomerID    uuid.UUID       `json:"customer_id"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	DeliveryFee   decimal.Decimal `json:"delivery_fee"`
	Discount      decimal.Decimal `json:"discount"`
	PaymentStatus string          `json:"payment_status"` // UNPAID, PAID
	CreatedAt     time.Time       `json:"created_at"`
}

// OrderItem is one line of an order. Commission is applied per item
// subtotal at settlement, never to the order total, so delivery fees and
// discounts are not split with vendors.
type OrderItem struct {
	ID              uuid.UUID       `json:"id"`
	OrderID         uuid.UUID       `json:"order_id"`
	VendorID        uuid.UUID       `json:"vendor_id"`
	ProductName     string          `json:"product_name"`
	Quantity        int64           `json:"quantity"`
	PriceAtPurchase decimal.Decimal `json:"price_at_purchase"`
}

// Subtotal returns price_at_purchase * quantity.
func (i *OrderItem) Subtotal() decimal.Decimal {
	return i.PriceAtPurchase.Mul(decimal.NewFromInt(i.Quantity))
}
