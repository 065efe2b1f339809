// internal/domain/inventory/entity.go
package inventory

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// MovementType represents the type of stock movement
type MovementType string

const (
	MovementTypeReservation MovementType = "reservation" // Order placement
	MovementTypeRelease     MovementType = "release"     // Cancel or return
	MovementTypeRestock     MovementType = "restock"     // Admin top-up
)

var (
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidQuantity   = errors.New("quantity must be at least 1")
	ErrUnknownSKU        = errors.New("unknown sku")
	ErrQuantityTooLarge  = errors.New("quantity exceeds the per-sku limit")
)

// MaxLineQuantity caps the units of one SKU in a single stock change
const MaxLineQuantity = 10000

// OutOfStockError reports the SKU that could not be reserved
type OutOfStockError struct {
	SKU       string
	Requested int
	Available int
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("out of stock: %s (requested %d, available %d)", e.SKU, e.Requested, e.Available)
}

func (e *OutOfStockError) Unwrap() error {
	return ErrInsufficientStock
}

// Line is one SKU quantity inside a reservation
type Line struct {
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
}

// StockMovement is an append-only audit row for every ledger mutation
type StockMovement struct {
	ID           uint         `gorm:"primaryKey" json:"id"`
	SKU          string       `gorm:"not null;size:100;index" json:"sku"`
	MovementType MovementType `gorm:"not null;size:20" json:"movement_type"`
	Quantity     int          `gorm:"not null" json:"quantity"`
	StockAfter   int          `gorm:"not null" json:"stock_after"`
	Reference    string       `gorm:"size:100;index" json:"reference"` // order id or admin tag
	CreatedAt    time.Time    `json:"created_at"`
}

// TableName specifies the table name for StockMovement
func (StockMovement) TableName() string {
	return "stock_movements"
}

// StockLevel is the current stock of a SKU
type StockLevel struct {
	SKU               string `json:"sku"`
	Stock             int    `json:"stock"`
	LowStockThreshold int    `json:"low_stock_threshold"`
	IsLowStock        bool   `json:"is_low_stock"`
}

// NormalizeLines validates quantities, merges repeated SKUs and sorts by SKU.
// Sorted order keeps concurrent multi-line reservations from deadlocking.
func NormalizeLines(lines []Line) ([]Line, error) {
	merged := make(map[string]int, len(lines))
	for _, l := range lines {
		if l.SKU == "" {
			return nil, fmt.Errorf("%w: empty sku", ErrUnknownSKU)
		}
		if l.Quantity < 1 {
			return nil, fmt.Errorf("%w: %s", ErrInvalidQuantity, l.SKU)
		}
		if l.Quantity > MaxLineQuantity || merged[l.SKU] > MaxLineQuantity-l.Quantity {
			return nil, fmt.Errorf("%w: %s (max %d)", ErrQuantityTooLarge, l.SKU, MaxLineQuantity)
		}
		merged[l.SKU] += l.Quantity
	}

	out := make([]Line, 0, len(merged))
	for sku, qty := range merged {
		out = append(out, Line{SKU: sku, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out, nil
}
