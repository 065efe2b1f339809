package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/your-org/storefront-orders/internal/domain/inventory"
	"github.com/your-org/storefront-orders/internal/domain/product"
)

// ProductRepository is the catalog and the stock ledger backend
type ProductRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// GetBySKU fetches one product
func (r *ProductRepository) GetBySKU(ctx context.Context, sku string) (*product.Product, error) {
	var p product.Product
	if err := r.db.WithContext(ctx).Where("sku = ?", sku).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, product.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &p, nil
}

// GetBySKUs fetches the products found among skus
func (r *ProductRepository) GetBySKUs(ctx context.Context, skus []string) (map[string]*product.Product, error) {
	var products []product.Product
	if err := r.db.WithContext(ctx).Where("sku IN ?", skus).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to get products: %w", err)
	}
	out := make(map[string]*product.Product, len(products))
	for i := range products {
		out[products[i].SKU] = &products[i]
	}
	return out, nil
}

// Decrement reserves every line in one transaction. Each line is a conditional
// update, so concurrent reservations can never drive stock below zero.
func (r *ProductRepository) Decrement(ctx context.Context, reference string, lines []inventory.Line) ([]inventory.StockLevel, error) {
	levels := make([]inventory.StockLevel, 0, len(lines))
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, l := range lines {
			var p product.Product
			res := tx.Model(&p).
				Clauses(clause.Returning{}).
				Where("sku = ? AND stock >= ?", l.SKU, l.Quantity).
				UpdateColumns(map[string]interface{}{
					"stock":      gorm.Expr("stock - ?", l.Quantity),
					"updated_at": time.Now().UTC(),
				})
			if res.Error != nil {
				return fmt.Errorf("failed to decrement %s: %w", l.SKU, res.Error)
			}
			if res.RowsAffected == 0 {
				return r.refusal(tx, l)
			}

			if err := recordMovement(tx, l.SKU, inventory.MovementTypeReservation, l.Quantity, p.Stock, reference); err != nil {
				return err
			}
			levels = append(levels, levelOf(&p))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return levels, nil
}

// Increment adds every line in one transaction
func (r *ProductRepository) Increment(ctx context.Context, reference string, movement inventory.MovementType, lines []inventory.Line) ([]inventory.StockLevel, error) {
	levels := make([]inventory.StockLevel, 0, len(lines))
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, l := range lines {
			var p product.Product
			res := tx.Model(&p).
				Clauses(clause.Returning{}).
				Where("sku = ?", l.SKU).
				UpdateColumns(map[string]interface{}{
					"stock":      gorm.Expr("stock + ?", l.Quantity),
					"updated_at": time.Now().UTC(),
				})
			if res.Error != nil {
				return fmt.Errorf("failed to increment %s: %w", l.SKU, res.Error)
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("%w: %s", inventory.ErrUnknownSKU, l.SKU)
			}

			if err := recordMovement(tx, l.SKU, movement, l.Quantity, p.Stock, reference); err != nil {
				return err
			}
			levels = append(levels, levelOf(&p))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return levels, nil
}

// Level returns the current stock of sku
func (r *ProductRepository) Level(ctx context.Context, sku string) (*inventory.StockLevel, error) {
	p, err := r.GetBySKU(ctx, sku)
	if errors.Is(err, product.ErrProductNotFound) {
		return nil, fmt.Errorf("%w: %s", inventory.ErrUnknownSKU, sku)
	}
	if err != nil {
		return nil, err
	}
	lv := levelOf(p)
	return &lv, nil
}

// Movements returns the latest stock movements of sku, newest first
func (r *ProductRepository) Movements(ctx context.Context, sku string, limit int) ([]inventory.StockMovement, error) {
	var moves []inventory.StockMovement
	err := r.db.WithContext(ctx).
		Where("sku = ?", sku).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&moves).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list stock movements: %w", err)
	}
	return moves, nil
}

// refusal explains why a conditional decrement matched no row
func (r *ProductRepository) refusal(tx *gorm.DB, l inventory.Line) error {
	var p product.Product
	if err := tx.Select("stock").Where("sku = ?", l.SKU).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s", inventory.ErrUnknownSKU, l.SKU)
		}
		return fmt.Errorf("failed to read stock of %s: %w", l.SKU, err)
	}
	return &inventory.OutOfStockError{SKU: l.SKU, Requested: l.Quantity, Available: p.Stock}
}

func recordMovement(tx *gorm.DB, sku string, t inventory.MovementType, qty, after int, reference string) error {
	m := inventory.StockMovement{
		SKU:          sku,
		MovementType: t,
		Quantity:     qty,
		StockAfter:   after,
		Reference:    reference,
	}
	if err := tx.Create(&m).Error; err != nil {
		return fmt.Errorf("failed to record stock movement: %w", err)
	}
	return nil
}

func levelOf(p *product.Product) inventory.StockLevel {
	return inventory.StockLevel{
		SKU:               p.SKU,
		Stock:             p.Stock,
		LowStockThreshold: p.LowStockThreshold,
		IsLowStock:        p.IsLowStock(),
	}
}
