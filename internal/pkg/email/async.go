package email

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/your-org/storefront-orders/internal/domain/order"
)

// AsyncNotifier sends notifications in the background so a slow mail path
// never holds up a checkout or webhook. Errors are logged, never returned.
type AsyncNotifier struct {
	next    order.Notifier
	timeout time.Duration
	logger  logrus.FieldLogger
	wg      sync.WaitGroup
}

// NewAsyncNotifier wraps next. Each send gets its own timeout.
func NewAsyncNotifier(next order.Notifier, timeout time.Duration, logger logrus.FieldLogger) *AsyncNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &AsyncNotifier{next: next, timeout: timeout, logger: logger}
}

func (n *AsyncNotifier) SendOrderConfirmation(ctx context.Context, o *order.Order) error {
	snapshot := o.Clone()
	n.dispatch(ctx, EmailTypeOrderConfirmation, snapshot.OrderNumber, func(ctx context.Context) error {
		return n.next.SendOrderConfirmation(ctx, &snapshot)
	})
	return nil
}

func (n *AsyncNotifier) SendOrderStatusUpdate(ctx context.Context, o *order.Order, status order.OrderStatus, tracking *order.Tracking) error {
	snapshot := o.Clone()
	var t *order.Tracking
	if tracking != nil {
		copied := *tracking
		t = &copied
	}
	n.dispatch(ctx, EmailTypeOrderStatusUpdate, snapshot.OrderNumber, func(ctx context.Context) error {
		return n.next.SendOrderStatusUpdate(ctx, &snapshot, status, t)
	})
	return nil
}

// Wait blocks until in-flight sends finish or ctx is done
func (n *AsyncNotifier) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (n *AsyncNotifier) dispatch(ctx context.Context, kind EmailType, orderNumber string, send func(context.Context) error) {
	// Detach from the request so the send outlives the handler.
	base := context.WithoutCancel(ctx)

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()

		sendCtx, cancel := context.WithTimeout(base, n.timeout)
		defer cancel()

		if err := send(sendCtx); err != nil {
			n.logger.WithFields(logrus.Fields{
				"order_number": orderNumber,
				"type":         kind,
				"error":        err.Error(),
			}).Error("failed to send notification")
		}
	}()
}
