package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/your-org/storefront-orders/internal/domain/order"
)

// OrderRepository stores orders with their items and status history
type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create inserts the order, its items and its first history rows
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	if o.Version == 0 {
		o.Version = 1
	}
	if err := r.db.WithContext(ctx).Create(o).Error; err != nil {
		switch {
		case uniqueViolationOn(err, "order_number"):
			return order.ErrDuplicateOrderNumber
		case uniqueViolationOn(err, "cart_key"):
			return order.ErrDuplicateCart
		}
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *OrderRepository) GetByNumber(ctx context.Context, number string) (*order.Order, error) {
	return r.first(ctx, "order_number = ?", number)
}

func (r *OrderRepository) GetByPaymentID(ctx context.Context, paymentID string) (*order.Order, error) {
	if paymentID == "" {
		return nil, order.ErrOrderNotFound
	}
	return r.first(ctx, "payment_id = ?", paymentID)
}

// ListByCustomer returns a page of orders, newest first, with items loaded
func (r *OrderRepository) ListByCustomer(ctx context.Context, customerID uint, limit, offset int) ([]order.Order, int64, error) {
	var total int64
	q := r.db.WithContext(ctx).Model(&order.Order{}).Where("customer_id = ?", customerID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	var orders []order.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&orders).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, total, nil
}

// Update writes every column of o when the stored version still matches and
// appends history rows that have no id yet
func (r *OrderRepository) Update(ctx context.Context, o *order.Order) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		expected := o.Version
		next := *o
		next.Version = expected + 1

		res := tx.Model(&order.Order{}).
			Where("id = ? AND version = ?", o.ID, expected).
			Select("*").
			Omit("ID", "OrderNumber", "CartKey", "CreatedAt", "Items", "StatusHistory").
			Updates(&next)
		if res.Error != nil {
			return fmt.Errorf("failed to update order: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&order.Order{}).Where("id = ?", o.ID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return order.ErrOrderNotFound
			}
			return order.ErrVersionConflict
		}

		for i := range o.StatusHistory {
			h := &o.StatusHistory[i]
			if h.ID != 0 {
				continue
			}
			h.OrderID = o.ID
			if err := tx.Create(h).Error; err != nil {
				return fmt.Errorf("failed to record status history: %w", err)
			}
		}

		o.Version = next.Version
		return nil
	})
}

// CountCouponUsage counts the customer's orders that used code
func (r *OrderRepository) CountCouponUsage(ctx context.Context, customerID uint, code string) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&order.Order{}).
		Where("customer_id = ? AND coupon_code = ?", customerID, code).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count coupon usage: %w", err)
	}
	return int(count), nil
}

func (r *OrderRepository) first(ctx context.Context, query string, arg interface{}) (*order.Order, error) {
	var o order.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		Where(query, arg).
		First(&o).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, order.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &o, nil
}
