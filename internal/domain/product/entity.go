// internal/domain/product/entity.go
package product

import (
	"context"
	"errors"
	"time"
)

var ErrProductNotFound = errors.New("product not found")

// Product is the catalog row the order core reads prices and stock from.
// Stock is only changed through the inventory ledger.
type Product struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	SKU               string    `gorm:"uniqueIndex;not null;size:100" json:"sku"`
	Name              string    `gorm:"not null;size:255" json:"name"`
	Image             string    `gorm:"size:500" json:"image"`
	Price             int64     `gorm:"not null" json:"price"` // Price in cents
	Stock             int       `gorm:"not null;default:0;check:stock >= 0" json:"stock"`
	LowStockThreshold int       `gorm:"not null;default:5" json:"low_stock_threshold"`
	IsActive          bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// TableName specifies the table name for Product
func (Product) TableName() string {
	return "products"
}

// IsLowStock reports whether stock is at or below the threshold
func (p *Product) IsLowStock() bool {
	return p.Stock <= p.LowStockThreshold
}

// IsPurchasable reports whether the product can be put on an order
func (p *Product) IsPurchasable() bool {
	return p.IsActive && p.Price >= 0
}

// Catalog reads current product data by SKU
type Catalog interface {
	// GetBySKUs returns the products found, keyed by SKU. Missing SKUs are absent.
	GetBySKUs(ctx context.Context, skus []string) (map[string]*Product, error)
	GetBySKU(ctx context.Context, sku string) (*Product, error)
}
