package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/your-org/storefront-orders/internal/domain/product"
)

// Create inserts a new product. Zero values of columns with a database
// default are written explicitly so the default does not replace them.
func (r *ProductRepository) Create(ctx context.Context, p *product.Product) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(p).Error; err != nil {
			return err
		}
		return tx.Model(p).UpdateColumns(map[string]interface{}{
			"is_active":           p.IsActive,
			"low_stock_threshold": p.LowStockThreshold,
		}).Error
	})
	if err != nil {
		if uniqueViolationOn(err, "sku") {
			return product.ErrProductExists
		}
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// Update applies catalog changes to sku. Stock is never part of the update.
func (r *ProductRepository) Update(ctx context.Context, sku string, changes product.Changes) (*product.Product, error) {
	updates := map[string]interface{}{}
	if changes.Name != nil {
		updates["name"] = *changes.Name
	}
	if changes.Image != nil {
		updates["image"] = *changes.Image
	}
	if changes.Price != nil {
		updates["price"] = *changes.Price
	}
	if changes.LowStockThreshold != nil {
		updates["low_stock_threshold"] = *changes.LowStockThreshold
	}
	if changes.IsActive != nil {
		updates["is_active"] = *changes.IsActive
	}

	result := r.db.WithContext(ctx).Model(&product.Product{}).Where("sku = ?", sku).Updates(updates)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update product: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, product.ErrProductNotFound
	}
	return r.GetBySKU(ctx, sku)
}

// List returns a page of products. SortBy and SortOrder are whitelisted by the caller.
func (r *ProductRepository) List(ctx context.Context, q product.ListQuery) ([]product.Product, int64, error) {
	query := r.db.WithContext(ctx).Model(&product.Product{})
	if q.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}
	if q.Search != "" {
		search := "%" + q.Search + "%"
		query = query.Where("name ILIKE ? OR sku ILIKE ?", search, search)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	var products []product.Product
	err := query.Order(fmt.Sprintf("%s %s, id", q.SortBy, q.SortOrder)).
		Offset(q.Offset).
		Limit(q.Limit).
		Find(&products).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	return products, total, nil
}
