package checkout

import "context"

// Guard stops one cart from being submitted twice. Begin fails with
// *CheckedOutError when the cart already produced an order and with
// ErrCheckoutInProgress while another build for the same cart runs.
type Guard interface {
	Begin(ctx context.Context, cartKey string) error
	Complete(ctx context.Context, cartKey, orderNumber string) error
	Abort(ctx context.Context, cartKey string) error
}
