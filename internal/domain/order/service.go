// internal/domain/order/service.go
package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/your-org/storefront-orders/internal/domain/inventory"
)

const maxUpdateAttempts = 3

// Repository persists orders. Orders are never deleted.
type Repository interface {
	// Create stores the order with its items and history.
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	GetByNumber(ctx context.Context, number string) (*Order, error)
	GetByPaymentID(ctx context.Context, paymentID string) (*Order, error)
	ListByCustomer(ctx context.Context, customerID uint, limit, offset int) ([]Order, int64, error)
	// Update saves o when the stored version still equals o.Version and
	// increments o.Version. Otherwise it returns ErrVersionConflict.
	Update(ctx context.Context, o *Order) error
	CountCouponUsage(ctx context.Context, customerID uint, code string) (int, error)
}

// StockReleaser returns reserved stock to the shelf
type StockReleaser interface {
	ReleaseAll(ctx context.Context, reference string, lines []inventory.Line) error
}

// Notifier delivers customer notifications. Failures are logged by the caller.
type Notifier interface {
	SendOrderConfirmation(ctx context.Context, o *Order) error
	SendOrderStatusUpdate(ctx context.Context, o *Order, status OrderStatus, tracking *Tracking) error
}

var errUnchanged = errors.New("order unchanged")

// Service drives orders through their lifecycle
type Service struct {
	repo     Repository
	stock    StockReleaser
	notifier Notifier
	logger   logrus.FieldLogger
	now      func() time.Time
}

// NewService creates a new order lifecycle service
func NewService(repo Repository, stock StockReleaser, notifier Notifier, logger logrus.FieldLogger) *Service {
	return &Service{
		repo:     repo,
		stock:    stock,
		notifier: notifier,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Get returns an order by number
func (s *Service) Get(ctx context.Context, number string) (*Order, error) {
	return s.repo.GetByNumber(ctx, number)
}

// GetForCustomer returns an order only if customerID owns it
func (s *Service) GetForCustomer(ctx context.Context, number string, customerID uint) (*Order, error) {
	o, err := s.repo.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if !o.IsOwnedBy(customerID) {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

// ListForCustomer returns a page of the customer's orders, newest first
func (s *Service) ListForCustomer(ctx context.Context, customerID uint, page, limit int) ([]Order, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.repo.ListByCustomer(ctx, customerID, limit, (page-1)*limit)
}

// UpdateStatus is the admin entry point for status changes
func (s *Service) UpdateStatus(ctx context.Context, number string, to OrderStatus, actor Actor, note string) (*Order, error) {
	updated, before, err := s.mutate(ctx, s.byNumber(number), func(o Order) (Order, error) {
		next, err := UpdateStatus(o, to, actor, note, s.now())
		if err != nil {
			return o, err
		}
		return claimStockRelease(next), nil
	})
	if err != nil {
		return nil, err
	}

	s.afterStatusChange(ctx, before, updated, nil)
	return updated, nil
}

// AddTracking records carrier details and ships the order
func (s *Service) AddTracking(ctx context.Context, number string, t Tracking, actor Actor) (*Order, error) {
	updated, before, err := s.mutate(ctx, s.byNumber(number), func(o Order) (Order, error) {
		return AddTracking(o, t, actor, s.now())
	})
	if err != nil {
		return nil, err
	}

	s.afterStatusChange(ctx, before, updated, &t)
	return updated, nil
}

// MarkDelivered moves a shipped order to delivered
func (s *Service) MarkDelivered(ctx context.Context, number string, actor Actor) (*Order, error) {
	return s.UpdateStatus(ctx, number, OrderStatusDelivered, actor, "delivered")
}

// Cancel cancels an order and puts its stock back once
func (s *Service) Cancel(ctx context.Context, number string, actor Actor, reason string) (*Order, error) {
	load := s.byNumber(number)
	if !actor.Admin && actor.System == "" {
		load = func(ctx context.Context) (*Order, error) {
			o, err := s.repo.GetByNumber(ctx, number)
			if err != nil {
				return nil, err
			}
			if !o.IsOwnedBy(actor.UserID) {
				return nil, ErrOrderNotFound
			}
			return o, nil
		}
	}

	updated, before, err := s.mutate(ctx, load, func(o Order) (Order, error) {
		next, err := Cancel(o, actor, reason, s.now())
		if err != nil {
			return o, err
		}
		return claimStockRelease(next), nil
	})
	if err != nil {
		return nil, err
	}

	if updated.PaymentStatus == PaymentStatusPaid {
		s.logger.WithField("order_number", updated.OrderNumber).Warn("paid order cancelled; refund must be issued")
	}

	s.afterStatusChange(ctx, before, updated, nil)
	return updated, nil
}

// ReleaseStock retries the stock release of a cancelled or returned order whose
// earlier release failed. It is a no-op when the stock was already released.
func (s *Service) ReleaseStock(ctx context.Context, number string) (*Order, error) {
	updated, before, err := s.mutate(ctx, s.byNumber(number), func(o Order) (Order, error) {
		if !ReleasesStock(o.Status) {
			return o, &TransitionError{
				From:   string(o.Status),
				To:     string(o.Status),
				Reason: "stock is only released for cancelled or returned orders",
			}
		}
		if o.StockReleased {
			return o, errUnchanged
		}
		return claimStockRelease(o.Clone()), nil
	})
	if errors.Is(err, errUnchanged) {
		return updated, nil
	}
	if err != nil {
		return nil, err
	}

	s.afterStatusChange(ctx, before, updated, nil)
	return updated, nil
}

// ProcessRefund records a refund against an order
func (s *Service) ProcessRefund(ctx context.Context, number string, amount int64, reason string, actor Actor) (*Order, error) {
	return s.refund(ctx, s.byNumber(number), amount, reason, actor)
}

// RefundByPaymentID records a refund reported by the payment provider
func (s *Service) RefundByPaymentID(ctx context.Context, paymentID string, amount int64, reason string) (*Order, error) {
	load := func(ctx context.Context) (*Order, error) {
		return s.repo.GetByPaymentID(ctx, paymentID)
	}
	return s.refund(ctx, load, amount, reason, SystemActor("payments"))
}

// SyncRefundByPaymentID brings the refunded amount up to the running total the
// provider reports. Repeated or out-of-order totals change nothing.
func (s *Service) SyncRefundByPaymentID(ctx context.Context, paymentID string, refundedTotal int64, reason string) (*Order, bool, error) {
	load := func(ctx context.Context) (*Order, error) {
		return s.repo.GetByPaymentID(ctx, paymentID)
	}
	var previous int64
	updated, _, err := s.mutate(ctx, load, func(o Order) (Order, error) {
		previous = o.RefundAmount
		next, changed, err := RefundUpTo(o, refundedTotal, reason, s.now())
		if err != nil {
			return o, err
		}
		if !changed {
			return o, errUnchanged
		}
		return next, nil
	})
	if errors.Is(err, errUnchanged) {
		return updated, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	s.logger.WithFields(logrus.Fields{
		"order_number":   updated.OrderNumber,
		"amount":         updated.RefundAmount - previous,
		"refunded_total": updated.RefundAmount,
		"payment_status": updated.PaymentStatus,
		"actor":          SystemActor("payments").String(),
	}).Info("refund recorded")
	return updated, true, nil
}

func (s *Service) refund(ctx context.Context, load func(context.Context) (*Order, error), amount int64, reason string, actor Actor) (*Order, error) {
	updated, _, err := s.mutate(ctx, load, func(o Order) (Order, error) {
		return ProcessRefund(o, amount, reason, s.now())
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"order_number":   updated.OrderNumber,
		"amount":         amount,
		"refunded_total": updated.RefundAmount,
		"payment_status": updated.PaymentStatus,
		"actor":          actor.String(),
	}).Info("refund recorded")
	return updated, nil
}

// ConfirmPayment applies a successful payment. changed is false for repeats.
func (s *Service) ConfirmPayment(ctx context.Context, orderID, paymentID string) (*Order, bool, error) {
	updated, before, err := s.mutate(ctx, s.byID(orderID), func(o Order) (Order, error) {
		next, changed := ConfirmPayment(o, paymentID, s.now())
		if !changed {
			if paymentID != "" && o.PaymentID != "" && o.PaymentID != paymentID {
				s.logger.WithFields(logrus.Fields{
					"order_number":     o.OrderNumber,
					"payment_id":       o.PaymentID,
					"other_payment_id": paymentID,
				}).Warn("second payment reported for an already paid order")
			}
			return o, errUnchanged
		}
		return next, nil
	})
	if errors.Is(err, errUnchanged) {
		return updated, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	entry := s.logger.WithFields(logrus.Fields{
		"order_number": updated.OrderNumber,
		"payment_id":   updated.PaymentID,
		"status":       updated.Status,
	})
	if updated.Status == OrderStatusCancelled {
		entry.Warn("payment received for a cancelled order; refund must be issued")
		return updated, true, nil
	}
	entry.Info("payment confirmed")

	if before.Status != updated.Status || before.PaymentStatus != updated.PaymentStatus {
		s.notify(ctx, "order confirmation", updated, func(ctx context.Context) error {
			return s.notifier.SendOrderConfirmation(ctx, updated)
		})
	}
	return updated, true, nil
}

// FailPayment records a failed payment attempt. Stock stays reserved.
func (s *Service) FailPayment(ctx context.Context, orderID, message string) (*Order, bool, error) {
	updated, _, err := s.mutate(ctx, s.byID(orderID), func(o Order) (Order, error) {
		next, changed := FailPayment(o, message, s.now())
		if !changed {
			return o, errUnchanged
		}
		return next, nil
	})
	if errors.Is(err, errUnchanged) {
		return updated, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	s.logger.WithFields(logrus.Fields{
		"order_number": updated.OrderNumber,
		"reason":       message,
	}).Warn("payment failed")
	return updated, true, nil
}

// UpdateAdminNotes replaces the internal notes of an order
func (s *Service) UpdateAdminNotes(ctx context.Context, number, notes string) (*Order, error) {
	updated, _, err := s.mutate(ctx, s.byNumber(number), func(o Order) (Order, error) {
		next := o.Clone()
		next.AdminNotes = notes
		next.UpdatedAt = s.now()
		return next, nil
	})
	return updated, err
}

func (s *Service) byNumber(number string) func(context.Context) (*Order, error) {
	return func(ctx context.Context) (*Order, error) {
		return s.repo.GetByNumber(ctx, number)
	}
}

func (s *Service) byID(id string) func(context.Context) (*Order, error) {
	return func(ctx context.Context) (*Order, error) {
		return s.repo.GetByID(ctx, id)
	}
}

// mutate loads the order, applies a pure transition and saves it with an
// optimistic version check, retrying when another writer got there first.
// When apply returns errUnchanged the loaded order is returned with that error.
func (s *Service) mutate(ctx context.Context, load func(context.Context) (*Order, error), apply func(Order) (Order, error)) (updated *Order, before *Order, err error) {
	for attempt := 1; attempt <= maxUpdateAttempts; attempt++ {
		current, err := load(ctx)
		if err != nil {
			return nil, nil, err
		}

		next, err := apply(*current)
		if err != nil {
			if errors.Is(err, errUnchanged) {
				return current, current, err
			}
			return nil, nil, err
		}

		if err := s.repo.Update(ctx, &next); err != nil {
			if errors.Is(err, ErrVersionConflict) {
				s.logger.WithFields(logrus.Fields{
					"order_number": current.OrderNumber,
					"attempt":      attempt,
				}).Debug("order version conflict, retrying")
				continue
			}
			return nil, nil, fmt.Errorf("failed to save order: %w", err)
		}
		return &next, current, nil
	}
	return nil, nil, ErrVersionConflict
}

// claimStockRelease sets StockReleased when o enters a releasing status.
// The flag is written in the same update as the status so a release happens once.
func claimStockRelease(o Order) Order {
	if ReleasesStock(o.Status) && !o.StockReleased {
		o.StockReleased = true
	}
	return o
}

func (s *Service) afterStatusChange(ctx context.Context, before, after *Order, tracking *Tracking) {
	if !before.StockReleased && after.StockReleased {
		s.releaseStock(ctx, after)
	}
	if before.Status != after.Status {
		s.notify(ctx, "status update", after, func(ctx context.Context) error {
			return s.notifier.SendOrderStatusUpdate(ctx, after, after.Status, tracking)
		})
	}
}

func (s *Service) releaseStock(ctx context.Context, o *Order) {
	if s.stock == nil {
		return
	}
	err := s.stock.ReleaseAll(ctx, o.ID, o.ReservationLines())
	if err == nil {
		return
	}

	s.logger.WithFields(logrus.Fields{
		"order_number": o.OrderNumber,
		"error":        err.Error(),
	}).Error("failed to release stock; clearing release flag for retry")

	// Undo the claim so a later retry can release.
	_, _, uerr := s.mutate(ctx, s.byID(o.ID), func(cur Order) (Order, error) {
		next := cur.Clone()
		next.StockReleased = false
		return next, nil
	})
	if uerr != nil {
		s.logger.WithFields(logrus.Fields{
			"order_number": o.OrderNumber,
			"error":        uerr.Error(),
		}).Error("failed to clear stock release flag; manual stock correction required")
	}
}

func (s *Service) notify(ctx context.Context, kind string, o *Order, send func(context.Context) error) {
	if s.notifier == nil {
		return
	}
	if err := send(ctx); err != nil {
		s.logger.WithFields(logrus.Fields{
			"order_number": o.OrderNumber,
			"notification": kind,
			"error":        err.Error(),
		}).Error("failed to send notification")
	}
}
