package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/your-org/storefront-orders/internal/domain/coupon"
)

// CouponRepository stores coupons
type CouponRepository struct {
	db *gorm.DB
}

func NewCouponRepository(db *gorm.DB) *CouponRepository {
	return &CouponRepository{db: db}
}

func (r *CouponRepository) Create(ctx context.Context, c *coupon.Coupon) error {
	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		if uniqueViolationOn(err, "code") {
			return coupon.ErrCouponExists
		}
		return err
	}
	return nil
}

func (r *CouponRepository) GetByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	var c coupon.Coupon
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, coupon.ErrCouponNotFound
		}
		return nil, err
	}
	return &c, nil
}

// IncrementUsage bumps usage_count in the database so concurrent redemptions
// add up, and returns the row as it stands after the update.
func (r *CouponRepository) IncrementUsage(ctx context.Context, code string) (*coupon.Coupon, error) {
	var c coupon.Coupon
	res := r.db.WithContext(ctx).Raw(
		`UPDATE coupons SET usage_count = usage_count + 1, updated_at = NOW() WHERE code = ? RETURNING *`,
		code,
	).Scan(&c)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, coupon.ErrCouponNotFound
	}
	return &c, nil
}

func (r *CouponRepository) SetActive(ctx context.Context, code string, active bool) error {
	res := r.db.WithContext(ctx).Model(&coupon.Coupon{}).
		Where("code = ?", code).
		Update("is_active", active)
	if res.Error != nil {
		return fmt.Errorf("failed to update coupon: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return coupon.ErrCouponNotFound
	}
	return nil
}
