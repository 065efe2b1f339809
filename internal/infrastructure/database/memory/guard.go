package memory

import (
	"context"
	"sync"

	"github.com/your-org/storefront-orders/internal/domain/checkout"
)

// CheckoutGuard is an in-process cart double-submit guard
type CheckoutGuard struct {
	mu    sync.Mutex
	carts map[string]string // cart key -> order number, "" while in progress
}

// NewCheckoutGuard constructs an empty guard
func NewCheckoutGuard() *CheckoutGuard {
	return &CheckoutGuard{carts: make(map[string]string)}
}

// Begin claims the cart for one build
func (g *CheckoutGuard) Begin(_ context.Context, cartKey string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if number, ok := g.carts[cartKey]; ok {
		if number != "" {
			return &checkout.CheckedOutError{OrderNumber: number}
		}
		return checkout.ErrCheckoutInProgress
	}
	g.carts[cartKey] = ""
	return nil
}

// Complete marks the cart as checked out
func (g *CheckoutGuard) Complete(_ context.Context, cartKey, orderNumber string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.carts[cartKey] = orderNumber
	return nil
}

// Abort frees the cart after a failed build
func (g *CheckoutGuard) Abort(_ context.Context, cartKey string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.carts[cartKey] == "" {
		delete(g.carts, cartKey)
	}
	return nil
}
