package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/your-org/storefront-orders/internal/domain/checkout"
)

const checkoutKeyPrefix = "checkout:cart:"

// CheckoutGuard keeps one build per cart across instances. The key holds ""
// while a build runs and the order number once it completes.
type CheckoutGuard struct {
	rdb          *redis.Client
	lockTTL      time.Duration
	completedTTL time.Duration
}

func NewCheckoutGuard(rdb *redis.Client, lockTTL, completedTTL time.Duration) *CheckoutGuard {
	return &CheckoutGuard{rdb: rdb, lockTTL: lockTTL, completedTTL: completedTTL}
}

// Begin claims the cart
func (g *CheckoutGuard) Begin(ctx context.Context, cartKey string) error {
	key := checkoutKeyPrefix + cartKey
	ok, err := g.rdb.SetNX(ctx, key, "", g.lockTTL).Result()
	if err != nil {
		return fmt.Errorf("failed to claim cart: %w", err)
	}
	if ok {
		return nil
	}

	number, err := g.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		// expired between the two calls; report as busy so the client retries
		return checkout.ErrCheckoutInProgress
	}
	if err != nil {
		return fmt.Errorf("failed to read cart claim: %w", err)
	}
	if number != "" {
		return &checkout.CheckedOutError{OrderNumber: number}
	}
	return checkout.ErrCheckoutInProgress
}

// Complete records the order number for the cart
func (g *CheckoutGuard) Complete(ctx context.Context, cartKey, orderNumber string) error {
	return g.rdb.Set(ctx, checkoutKeyPrefix+cartKey, orderNumber, g.completedTTL).Err()
}

// abortScript deletes the claim only while it is still in progress
var abortScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == "" then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// Abort frees the cart after a failed build
func (g *CheckoutGuard) Abort(ctx context.Context, cartKey string) error {
	return abortScript.Run(ctx, g.rdb, []string{checkoutKeyPrefix + cartKey}).Err()
}
