package domain

import (
	"time"
)

// Item represents a stocked inventory item.
type Item struct {
	ID         string    `json:"id" db:"id"`
	SKU        string    `json:"sku" db:"sku"`
	Name       string    `json:"name" db:"name"`
	Category   Category  `json:"category" db:"category"`
	Stock      int       `json:"stock" db:"stock"`
	MinStock   int       `json:"min_stock" db:"min_stock"`
	UnitPrice  float64   `json:"unit_price" db:"unit_price"`
	SupplierID string    `json:"supplier_id" db:"supplier_id"`
	Version    int64     `json:"version" db:"version"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

type Category string

const (
	CategoryLinen       Category = "linen"
	CategoryToiletries  Category = "toiletries"
	CategoryMinibar     Category = "minibar"
	CategoryCleaning    Category = "cleaning"
	CategoryMaintenance Category = "maintenance"
	CategoryOther       Category = "other"
)

// LowStock reports whether the item is at or below its minimum level.
func (i *Item) LowStock() bool {
	return i.Stock <= i.MinStock
}
