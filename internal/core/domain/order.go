package domain

import (
	"time"
)

// PurchaseOrder represents an order placed with a supplier.
type PurchaseOrder struct {
	ID         string      `json:"id" db:"id"`
	SupplierID string      `json:"supplier_id" db:"supplier_id"`
	Status     OrderStatus `json:"status" db:"status"`
	Total      float64     `json:"total" db:"total"`
	OrderedAt  time.Time   `json:"ordered_at" db:"ordered_at"`
	ReceivedAt *time.Time  `json:"received_at,omitempty" db:"received_at"`
	Lines      []OrderLine `json:"lines,omitempty"`
}

// OrderLine is a single item line on a purchase order.
type OrderLine struct {
	ID        string  `json:"id" db:"id"`
	OrderID   string  `json:"order_id" db:"order_id"`
	ItemID    string  `json:"item_id" db:"item_id"`
	Quantity  int     `json:"quantity" db:"quantity"`
	UnitPrice float64 `json:"unit_price" db:"unit_price"`
}

type OrderStatus string

const (
	OrderStatusDraft     OrderStatus = "draft"
	OrderStatusPlaced    OrderStatus = "placed"
	OrderStatusReceived  OrderStatus = "received"
	OrderStatusCancelled OrderStatus = "cancelled"
)
