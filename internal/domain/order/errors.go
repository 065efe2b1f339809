package order

import (
	"errors"
	"fmt"
)

var (
	ErrOrderNotFound        = errors.New("order not found")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrRefundExceedsTotal   = errors.New("refund exceeds order total")
	ErrInvalidRefundAmount  = errors.New("refund amount must be positive")
	ErrInvalidAddress       = errors.New("invalid address")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrTrackingRequired     = errors.New("tracking number is required")
	ErrVersionConflict      = errors.New("order was modified concurrently")
	ErrDuplicateOrderNumber = errors.New("order number already exists")
	ErrDuplicateCart        = errors.New("cart already has an order")
)

// TransitionError describes a refused state change
type TransitionError struct {
	From   string
	To     string
	Reason string
}

func (e *TransitionError) Error() string {
	msg := fmt.Sprintf("cannot change order from %s to %s", e.From, e.To)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// InvalidAddressError names the first missing address field
type InvalidAddressError struct {
	Address string
	Field   string
}

func (e *InvalidAddressError) Error() string {
	return fmt.Sprintf("invalid %s address: %s is required", e.Address, e.Field)
}

func (e *InvalidAddressError) Unwrap() error {
	return ErrInvalidAddress
}
