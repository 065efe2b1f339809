// internal/domain/payment/reconciler.go
package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/your-org/storefront-orders/internal/domain/order"
	"github.com/your-org/storefront-orders/internal/telemetry"
)

// Outcome says what a webhook event did to our state
type Outcome string

const (
	OutcomeApplied      Outcome = "applied"
	OutcomeNoop         Outcome = "noop"
	OutcomeDuplicate    Outcome = "duplicate"
	OutcomeUnknownOrder Outcome = "unknown_order"
	OutcomeRejected     Outcome = "rejected"
	OutcomeError        Outcome = "error"
)

// Orders is the part of the order service reconciliation drives
type Orders interface {
	ConfirmPayment(ctx context.Context, orderID, paymentID string) (*order.Order, bool, error)
	FailPayment(ctx context.Context, orderID, message string) (*order.Order, bool, error)
	RefundByPaymentID(ctx context.Context, paymentID string, amount int64, reason string) (*order.Order, error)
	SyncRefundByPaymentID(ctx context.Context, paymentID string, refundedTotal int64, reason string) (*order.Order, bool, error)
}

// EventDeduper claims provider event ids so redeliveries are skipped.
// Claim returns false when key was already claimed.
type EventDeduper interface {
	Claim(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// AuditEntry is one processed webhook, kept for support and disputes
type AuditEntry struct {
	EventID     string    `json:"event_id" bson:"event_id"`
	Provider    string    `json:"provider" bson:"provider"`
	Type        string    `json:"type" bson:"type"`
	OrderID     string    `json:"order_id,omitempty" bson:"order_id,omitempty"`
	OrderNumber string    `json:"order_number,omitempty" bson:"order_number,omitempty"`
	PaymentID   string    `json:"payment_id,omitempty" bson:"payment_id,omitempty"`
	Amount      int64     `json:"amount,omitempty" bson:"amount,omitempty"`
	Outcome     string    `json:"outcome" bson:"outcome"`
	Error       string    `json:"error,omitempty" bson:"error,omitempty"`
	ReceivedAt  time.Time `json:"received_at" bson:"received_at"`
	ProcessedAt time.Time `json:"processed_at" bson:"processed_at"`
}

// EventLog stores audit entries
type EventLog interface {
	Append(ctx context.Context, entry AuditEntry) error
}

// Reconciler applies verified provider events to orders. Every handler is
// safe to call repeatedly with the same event.
type Reconciler struct {
	orders  Orders
	dedup   EventDeduper
	audit   EventLog
	metrics *telemetry.Metrics
	logger  logrus.FieldLogger
	now     func() time.Time
}

// NewReconciler creates a reconciler. dedup, audit and metrics may be nil.
func NewReconciler(orders Orders, dedup EventDeduper, audit EventLog, metrics *telemetry.Metrics, logger logrus.FieldLogger) *Reconciler {
	return &Reconciler{
		orders:  orders,
		dedup:   dedup,
		audit:   audit,
		metrics: metrics,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Handle processes ev once. The returned error is set only for failures a
// provider retry could fix; business refusals are logged and reported as an outcome.
func (r *Reconciler) Handle(ctx context.Context, ev *Event) (outcome Outcome, err error) {
	ctx, span := telemetry.StartSpan(ctx, "payment.reconcile",
		attribute.String("payment.provider", string(ev.Provider)),
		attribute.String("payment.event_type", string(ev.Type)),
		attribute.String("payment.event_id", ev.ID),
	)
	defer func() {
		span.SetAttributes(attribute.String("payment.outcome", string(outcome)))
		telemetry.EndSpan(span, err)
		r.metrics.RecordPaymentEvent(ctx, string(ev.Provider), string(ev.Type), string(outcome))
	}()

	log := r.logger.WithFields(logrus.Fields{
		"provider":   ev.Provider,
		"event_id":   ev.ID,
		"event_type": ev.Type,
		"order_id":   ev.OrderID,
		"payment_id": ev.PaymentID,
	})

	claimed := false
	if r.dedup != nil {
		ok, cerr := r.dedup.Claim(ctx, ev.DedupKey())
		switch {
		case cerr != nil:
			// handlers are idempotent on order state, so carry on without the claim
			log.WithError(cerr).Warn("event dedup unavailable")
		case !ok:
			log.Info("duplicate payment event ignored")
			return OutcomeDuplicate, nil
		default:
			claimed = true
		}
	}

	var o *order.Order
	switch ev.Type {
	case EventPaymentSucceeded:
		o, outcome, err = r.OnPaymentSucceeded(ctx, ev.OrderID, ev.PaymentID)
	case EventPaymentFailed:
		o, outcome, err = r.OnPaymentFailed(ctx, ev.OrderID, ev.ErrorMessage)
	case EventChargeRefunded:
		reason := fmt.Sprintf("refunded via %s", ev.Provider)
		if ev.RefundedTotal > 0 {
			o, outcome, err = r.OnRefundTotal(ctx, ev.PaymentID, ev.RefundedTotal, reason)
		} else {
			o, outcome, err = r.OnChargeRefunded(ctx, ev.PaymentID, ev.Amount, reason)
		}
	default:
		outcome, err = OutcomeRejected, nil
		log.Warn("unsupported payment event type")
	}

	if err != nil {
		outcome = OutcomeError
		log.WithError(err).Error("failed to apply payment event")
		if claimed {
			if rerr := r.dedup.Release(context.WithoutCancel(ctx), ev.DedupKey()); rerr != nil {
				log.WithError(rerr).Warn("failed to release event claim")
			}
		}
	}

	r.record(ctx, ev, o, outcome, err, log)
	return outcome, err
}

// OnPaymentSucceeded marks the order paid and confirms it when pending
func (r *Reconciler) OnPaymentSucceeded(ctx context.Context, orderID, paymentID string) (*order.Order, Outcome, error) {
	if orderID == "" {
		r.logger.WithField("payment_id", paymentID).Warn("payment succeeded without an order reference")
		return nil, OutcomeUnknownOrder, nil
	}
	o, changed, err := r.orders.ConfirmPayment(ctx, orderID, paymentID)
	return r.classify(o, changed, err, orderID)
}

// OnPaymentFailed records the failure. Paid orders are left alone.
func (r *Reconciler) OnPaymentFailed(ctx context.Context, orderID, message string) (*order.Order, Outcome, error) {
	if orderID == "" {
		r.logger.Warn("payment failure without an order reference")
		return nil, OutcomeUnknownOrder, nil
	}
	if message == "" {
		message = "payment failed"
	}
	o, changed, err := r.orders.FailPayment(ctx, orderID, message)
	return r.classify(o, changed, err, orderID)
}

// OnChargeRefunded applies a provider refund to the order that holds paymentID
func (r *Reconciler) OnChargeRefunded(ctx context.Context, paymentID string, amount int64, reason string) (*order.Order, Outcome, error) {
	if paymentID == "" {
		r.logger.Warn("refund without a payment reference")
		return nil, OutcomeUnknownOrder, nil
	}
	o, err := r.orders.RefundByPaymentID(ctx, paymentID, amount, reason)
	switch {
	case errors.Is(err, order.ErrRefundExceedsTotal),
		errors.Is(err, order.ErrInvalidRefundAmount),
		errors.Is(err, order.ErrInvalidTransition):
		r.logger.WithError(err).WithFields(logrus.Fields{
			"payment_id": paymentID,
			"amount":     amount,
		}).Error("provider refund could not be applied")
		return nil, OutcomeRejected, nil
	}
	return r.classify(o, true, err, paymentID)
}

// OnRefundTotal applies a provider's cumulative refunded amount. Only the part
// not yet recorded on the order is refunded.
func (r *Reconciler) OnRefundTotal(ctx context.Context, paymentID string, refundedTotal int64, reason string) (*order.Order, Outcome, error) {
	if paymentID == "" {
		r.logger.Warn("refund without a payment reference")
		return nil, OutcomeUnknownOrder, nil
	}
	o, changed, err := r.orders.SyncRefundByPaymentID(ctx, paymentID, refundedTotal, reason)
	switch {
	case errors.Is(err, order.ErrRefundExceedsTotal),
		errors.Is(err, order.ErrInvalidRefundAmount),
		errors.Is(err, order.ErrInvalidTransition):
		r.logger.WithError(err).WithFields(logrus.Fields{
			"payment_id":     paymentID,
			"refunded_total": refundedTotal,
		}).Error("provider refund could not be applied")
		return nil, OutcomeRejected, nil
	}
	return r.classify(o, changed, err, paymentID)
}

func (r *Reconciler) classify(o *order.Order, changed bool, err error, ref string) (*order.Order, Outcome, error) {
	if errors.Is(err, order.ErrOrderNotFound) {
		r.logger.WithField("reference", ref).Warn("payment event for unknown order dropped")
		return nil, OutcomeUnknownOrder, nil
	}
	if err != nil {
		return nil, OutcomeError, err
	}
	if !changed {
		return o, OutcomeNoop, nil
	}
	return o, OutcomeApplied, nil
}

func (r *Reconciler) record(ctx context.Context, ev *Event, o *order.Order, outcome Outcome, err error, log logrus.FieldLogger) {
	if r.audit == nil {
		return
	}
	entry := AuditEntry{
		EventID:     ev.ID,
		Provider:    string(ev.Provider),
		Type:        string(ev.Type),
		OrderID:     ev.OrderID,
		PaymentID:   ev.PaymentID,
		Amount:      ev.Amount,
		Outcome:     string(outcome),
		ReceivedAt:  ev.ReceivedAt,
		ProcessedAt: r.now(),
	}
	if o != nil {
		entry.OrderID = o.ID
		entry.OrderNumber = o.OrderNumber
	}
	if err != nil {
		entry.Error = err.Error()
	}
	if aerr := r.audit.Append(context.WithoutCancel(ctx), entry); aerr != nil {
		log.WithError(aerr).Warn("failed to write payment audit entry")
	}
}
