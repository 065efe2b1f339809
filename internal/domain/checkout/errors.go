package checkout

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyCart             = errors.New("cart is empty")
	ErrInvalidQuantity       = errors.New("quantity must be at least 1")
	ErrProductUnavailable    = errors.New("product unavailable")
	ErrCouponRejected        = errors.New("coupon rejected")
	ErrInvalidShippingMethod = errors.New("invalid shipping method")
	ErrCartAlreadyCheckedOut = errors.New("cart already checked out")
	ErrCheckoutInProgress    = errors.New("checkout already in progress for this cart")
	ErrMissingCustomer       = errors.New("customer is required")
	ErrOrderTooLarge         = errors.New("order amount exceeds the allowed maximum")
	ErrInconsistentTotals    = errors.New("order totals do not add up")
)

// UnavailableProductError names a cart SKU that cannot be sold
type UnavailableProductError struct {
	SKU string
}

func (e *UnavailableProductError) Error() string {
	return fmt.Sprintf("product %s is not available", e.SKU)
}

func (e *UnavailableProductError) Unwrap() error {
	return ErrProductUnavailable
}

// CouponRejectedError carries the reason shown to the customer
type CouponRejectedError struct {
	Code   string
	Reason string
}

func (e *CouponRejectedError) Error() string {
	return fmt.Sprintf("coupon %s rejected: %s", e.Code, e.Reason)
}

func (e *CouponRejectedError) Unwrap() error {
	return ErrCouponRejected
}

// CheckedOutError is returned when a cart already produced an order
type CheckedOutError struct {
	OrderNumber string
}

func (e *CheckedOutError) Error() string {
	if e.OrderNumber == "" {
		return ErrCartAlreadyCheckedOut.Error()
	}
	return fmt.Sprintf("cart already checked out as order %s", e.OrderNumber)
}

func (e *CheckedOutError) Unwrap() error {
	return ErrCartAlreadyCheckedOut
}
