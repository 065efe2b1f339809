// internal/domain/coupon/entity.go
package coupon

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DiscountType represents how a coupon value is applied
type DiscountType string

const (
	DiscountTypePercentage DiscountType = "percentage"
	DiscountTypeFixed      DiscountType = "fixed"
)

// ParseDiscountType validates a raw discount type
func ParseDiscountType(s string) (DiscountType, error) {
	t := DiscountType(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", fmt.Errorf("%w: unknown discount type %q", ErrInvalidCoupon, s)
	}
	return t, nil
}

// IsValid reports whether t is a known discount type
func (t DiscountType) IsValid() bool {
	return t == DiscountTypePercentage || t == DiscountTypeFixed
}

// Rejection reasons shown to the customer
const (
	ReasonInactive      = "coupon is not active"
	ReasonNotYetValid   = "coupon is not valid yet"
	ReasonExpired       = "coupon has expired"
	ReasonUsageLimit    = "coupon usage limit reached"
	ReasonCustomerLimit = "coupon usage limit reached for this customer"
	ReasonBelowMinimum  = "order subtotal is below the coupon minimum"
)

var hundred = decimal.NewFromInt(100)

// Coupon is an admin-managed discount policy.
//
// DiscountValue is a percentage for percentage coupons and an amount in minor
// units for fixed coupons. MinOrderValue and MaxDiscountAmount are minor units.
type Coupon struct {
	ID                uint            `json:"id" gorm:"primaryKey"`
	Code              string          `json:"code" gorm:"uniqueIndex;size:50;not null"`
	Description       string          `json:"description" gorm:"type:text"`
	DiscountType      DiscountType    `json:"discount_type" gorm:"size:20;not null"`
	DiscountValue     decimal.Decimal `json:"discount_value" gorm:"type:numeric(12,2);not null"`
	MinOrderValue     *int64          `json:"min_order_value,omitempty"`
	MaxDiscountAmount *int64          `json:"max_discount_amount,omitempty"`
	UsageLimit        *int            `json:"usage_limit,omitempty"`
	UsagePerCustomer  *int            `json:"usage_per_customer,omitempty"`
	UsageCount        int             `json:"usage_count" gorm:"not null;default:0"`
	ValidFrom         time.Time       `json:"valid_from" gorm:"not null"`
	ValidUntil        time.Time       `json:"valid_until" gorm:"not null"`
	IsActive          bool            `json:"is_active" gorm:"not null;default:true"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// TableName specifies the table name for Coupon
func (Coupon) TableName() string {
	return "coupons"
}

// NormalizeCode returns the canonical upper-case form of a coupon code
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsValid reports whether the coupon can be redeemed by anyone at now
func (c *Coupon) IsValid(now time.Time) bool {
	return c.validityReason(now) == ""
}

// CanBeUsedBy reports whether a customer with priorUsage redemptions may use the coupon
func (c *Coupon) CanBeUsedBy(now time.Time, priorUsage int) bool {
	return c.customerReason(now, priorUsage) == ""
}

// CalculateDiscount prices the coupon against subtotal. The result never
// exceeds subtotal and is rounded half-up to the minor unit.
func (c *Coupon) CalculateDiscount(now time.Time, subtotal int64) int64 {
	if subtotal <= 0 || !c.IsValid(now) {
		return 0
	}
	if c.MinOrderValue != nil && subtotal < *c.MinOrderValue {
		return 0
	}

	amount := decimal.NewFromInt(subtotal)
	var discount decimal.Decimal

	switch c.DiscountType {
	case DiscountTypePercentage:
		discount = amount.Mul(c.DiscountValue).Div(hundred)
		if c.MaxDiscountAmount != nil {
			discount = decimal.Min(discount, decimal.NewFromInt(*c.MaxDiscountAmount))
		}
	case DiscountTypeFixed:
		discount = decimal.Min(c.DiscountValue, amount)
	default:
		return 0
	}

	discount = decimal.Min(discount.Round(0), amount)
	if discount.IsNegative() {
		return 0
	}
	return discount.IntPart()
}

// Check returns the first reason the coupon cannot be applied, or "" when it can
func (c *Coupon) Check(now time.Time, subtotal int64, priorUsage int) string {
	if reason := c.customerReason(now, priorUsage); reason != "" {
		return reason
	}
	if c.MinOrderValue != nil && subtotal < *c.MinOrderValue {
		return ReasonBelowMinimum
	}
	return ""
}

func (c *Coupon) validityReason(now time.Time) string {
	switch {
	case !c.IsActive:
		return ReasonInactive
	case now.Before(c.ValidFrom):
		return ReasonNotYetValid
	case !now.Before(c.ValidUntil):
		return ReasonExpired
	case c.UsageLimit != nil && c.UsageCount >= *c.UsageLimit:
		return ReasonUsageLimit
	}
	return ""
}

func (c *Coupon) customerReason(now time.Time, priorUsage int) string {
	if reason := c.validityReason(now); reason != "" {
		return reason
	}
	if c.UsagePerCustomer != nil && priorUsage >= *c.UsagePerCustomer {
		return ReasonCustomerLimit
	}
	return ""
}

// Evaluation is the priced outcome of applying a code to a subtotal
type Evaluation struct {
	Code           string `json:"code"`
	Accepted       bool   `json:"accepted"`
	DiscountAmount int64  `json:"discount_amount"`
	Reason         string `json:"reason,omitempty"`
}

// CreateRequest holds the admin input for a new coupon
type CreateRequest struct {
	Code              string          `json:"code" binding:"required"`
	Description       string          `json:"description"`
	DiscountType      string          `json:"discount_type" binding:"required"`
	DiscountValue     decimal.Decimal `json:"discount_value"`
	MinOrderValue     *int64          `json:"min_order_value"`
	MaxDiscountAmount *int64          `json:"max_discount_amount"`
	UsageLimit        *int            `json:"usage_limit"`
	UsagePerCustomer  *int            `json:"usage_per_customer"`
	ValidFrom         time.Time       `json:"valid_from"`
	ValidUntil        time.Time       `json:"valid_until" binding:"required"`
	IsActive          *bool           `json:"is_active"`
}

// NewCoupon validates req and builds a coupon. A zero ValidFrom starts at now.
func NewCoupon(req CreateRequest, now time.Time) (*Coupon, error) {
	code := NormalizeCode(req.Code)
	if len(code) < 3 || len(code) > 50 {
		return nil, fmt.Errorf("%w: code must be between 3 and 50 characters", ErrInvalidCoupon)
	}
	for _, r := range code {
		if !(r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_') {
			return nil, fmt.Errorf("%w: code may only contain letters, digits, '-' and '_'", ErrInvalidCoupon)
		}
	}

	discountType, err := ParseDiscountType(req.DiscountType)
	if err != nil {
		return nil, err
	}

	if req.DiscountValue.IsNegative() {
		return nil, fmt.Errorf("%w: discount value must not be negative", ErrInvalidCoupon)
	}
	if discountType == DiscountTypePercentage && req.DiscountValue.GreaterThan(hundred) {
		return nil, fmt.Errorf("%w: percentage discount must not exceed 100", ErrInvalidCoupon)
	}
	if discountType == DiscountTypeFixed && !req.DiscountValue.Equal(req.DiscountValue.Truncate(0)) {
		return nil, fmt.Errorf("%w: fixed discount must be a whole amount in minor units", ErrInvalidCoupon)
	}

	if req.MinOrderValue != nil && *req.MinOrderValue < 0 {
		return nil, fmt.Errorf("%w: minimum order value must not be negative", ErrInvalidCoupon)
	}
	if req.MaxDiscountAmount != nil && *req.MaxDiscountAmount < 0 {
		return nil, fmt.Errorf("%w: maximum discount must not be negative", ErrInvalidCoupon)
	}
	if req.UsageLimit != nil && *req.UsageLimit < 0 {
		return nil, fmt.Errorf("%w: usage limit must not be negative", ErrInvalidCoupon)
	}
	if req.UsagePerCustomer != nil && *req.UsagePerCustomer < 0 {
		return nil, fmt.Errorf("%w: per-customer usage must not be negative", ErrInvalidCoupon)
	}

	validFrom := req.ValidFrom
	if validFrom.IsZero() {
		validFrom = now
	}
	if !validFrom.Before(req.ValidUntil) {
		return nil, fmt.Errorf("%w: valid_from must be before valid_until", ErrInvalidCoupon)
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	return &Coupon{
		Code:              code,
		Description:       req.Description,
		DiscountType:      discountType,
		DiscountValue:     req.DiscountValue,
		MinOrderValue:     req.MinOrderValue,
		MaxDiscountAmount: req.MaxDiscountAmount,
		UsageLimit:        req.UsageLimit,
		UsagePerCustomer:  req.UsagePerCustomer,
		ValidFrom:         validFrom,
		ValidUntil:        req.ValidUntil,
		IsActive:          active,
	}, nil
}
