package coupon

import (
	"errors"
	"fmt"
)

var (
	ErrCouponNotFound      = errors.New("coupon not found")
	ErrCouponNotApplicable = errors.New("coupon not applicable")
	ErrCouponExists        = errors.New("coupon code already exists")
	ErrInvalidCoupon       = errors.New("invalid coupon")
)

// NotApplicableError carries the customer-facing reason a known coupon was refused
type NotApplicableError struct {
	Code   string
	Reason string
}

func (e *NotApplicableError) Error() string {
	return fmt.Sprintf("coupon %s: %s", e.Code, e.Reason)
}

func (e *NotApplicableError) Unwrap() error {
	return ErrCouponNotApplicable
}
