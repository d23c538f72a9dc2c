package domain

import (
	"time"
)

// StockUpdate is a journal record of one applied stock mutation.
// The journal is what lets a conflicting writer see which concurrent
// modifications it lost against.
type StockUpdate struct {
	ID        string    `json:"id" db:"id"`
	ItemID    string    `json:"item_id" db:"item_id"`
	Quantity  int       `json:"quantity" db:"quantity"` // stock level after the update
	Delta     int       `json:"delta" db:"delta"`
	Version   int64     `json:"version" db:"version"` // item version produced by the update
	Origin    string    `json:"origin" db:"origin"`   // execution context that wrote it
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
