package order

import (
	"fmt"
	"strings"
	"time"
)

// Allowed status edges. Anything not listed is rejected.
var allowedTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:  {OrderStatusProcessing, OrderStatusShipped, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered},
	OrderStatusDelivered:  {OrderStatusReturned},
	OrderStatusCancelled:  {},
	OrderStatusReturned:   {},
}

// CanTransition reports whether from -> to is an allowed edge
func CanTransition(from, to OrderStatus) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ReleasesStock reports whether entering status puts the order's stock back
func ReleasesStock(status OrderStatus) bool {
	return status == OrderStatusCancelled || status == OrderStatusReturned
}

// UpdateStatus moves o to status `to` and returns the new value. o is not modified.
func UpdateStatus(o Order, to OrderStatus, actor Actor, note string, now time.Time) (Order, error) {
	if !to.IsValid() {
		return o, &TransitionError{From: string(o.Status), To: string(to), Reason: "unknown status"}
	}
	if !CanTransition(o.Status, to) {
		return o, &TransitionError{From: string(o.Status), To: string(to)}
	}

	next := o.Clone()
	next.Status = to

	switch to {
	case OrderStatusShipped:
		if next.ShippedAt == nil {
			next.ShippedAt = &now
		}
	case OrderStatusDelivered:
		next.DeliveredAt = &now
	case OrderStatusCancelled:
		next.CancelledAt = &now
		next.CancelReason = note
	}

	next.appendHistory(o.Status, to, actor, note, now)
	next.UpdatedAt = now
	return next, nil
}

// Cancel applies a cancellation. Customers may only cancel pending orders;
// admins may cancel anything not yet shipped.
func Cancel(o Order, actor Actor, reason string, now time.Time) (Order, error) {
	if !actor.Admin && actor.System == "" && o.Status != OrderStatusPending {
		return o, &TransitionError{
			From:   string(o.Status),
			To:     string(OrderStatusCancelled),
			Reason: "orders can only be cancelled while pending",
		}
	}
	if reason == "" {
		reason = "cancelled by " + actor.String()
	}
	return UpdateStatus(o, OrderStatusCancelled, actor, reason, now)
}

// AddTracking records carrier details. From confirmed or processing it also
// moves the order to shipped; on an already shipped order it replaces the details.
func AddTracking(o Order, t Tracking, actor Actor, now time.Time) (Order, error) {
	if strings.TrimSpace(t.TrackingNumber) == "" {
		return o, ErrTrackingRequired
	}

	var next Order
	switch o.Status {
	case OrderStatusConfirmed, OrderStatusProcessing:
		var err error
		next, err = UpdateStatus(o, OrderStatusShipped, actor, "tracking "+t.TrackingNumber, now)
		if err != nil {
			return o, err
		}
	case OrderStatusShipped:
		next = o.Clone()
		next.UpdatedAt = now
	default:
		return o, &TransitionError{
			From:   string(o.Status),
			To:     string(OrderStatusShipped),
			Reason: "tracking can only be added to confirmed, processing or shipped orders",
		}
	}

	next.TrackingNumber = strings.TrimSpace(t.TrackingNumber)
	next.TrackingURL = t.TrackingURL
	next.CourierName = t.CourierName
	next.EstimatedDelivery = t.EstimatedDelivery
	return next, nil
}

// ProcessRefund adds amount to the cumulative refund of a paid order
func ProcessRefund(o Order, amount int64, reason string, now time.Time) (Order, error) {
	if amount <= 0 {
		return o, ErrInvalidRefundAmount
	}
	if o.PaymentStatus != PaymentStatusPaid && o.PaymentStatus != PaymentStatusPartiallyRefunded {
		return o, &TransitionError{
			From:   string(o.PaymentStatus),
			To:     string(PaymentStatusRefunded),
			Reason: "only paid orders can be refunded",
		}
	}

	remaining := o.Total - o.RefundAmount
	if amount > remaining {
		return o, fmt.Errorf("%w: refunding %d exceeds the %d left of %d",
			ErrRefundExceedsTotal, amount, remaining, o.Total)
	}
	after := o.RefundAmount + amount

	next := o.Clone()
	next.RefundAmount = after
	next.RefundReason = reason
	next.RefundedAt = &now
	if after >= o.Total {
		next.PaymentStatus = PaymentStatusRefunded
	} else {
		next.PaymentStatus = PaymentStatusPartiallyRefunded
	}
	next.UpdatedAt = now
	return next, nil
}

// RefundUpTo raises the cumulative refund of o to refundedTotal. Totals at
// or below what is already recorded leave o unchanged.
func RefundUpTo(o Order, refundedTotal int64, reason string, now time.Time) (next Order, changed bool, err error) {
	if refundedTotal <= o.RefundAmount {
		return o, false, nil
	}
	next, err = ProcessRefund(o, refundedTotal-o.RefundAmount, reason, now)
	if err != nil {
		return o, false, err
	}
	return next, true, nil
}

// ConfirmPayment marks o paid and advances pending orders to confirmed.
// changed is false when the payment was already recorded.
func ConfirmPayment(o Order, paymentID string, now time.Time) (next Order, changed bool) {
	if o.PaymentStatus.IsPaid() {
		return o, false
	}

	next = o.Clone()
	next.PaymentStatus = PaymentStatusPaid
	if paymentID != "" {
		next.PaymentID = paymentID
	}
	if o.Status == OrderStatusPending {
		next.Status = OrderStatusConfirmed
		next.appendHistory(o.Status, OrderStatusConfirmed, SystemActor("payments"), "payment received", now)
	}
	next.UpdatedAt = now
	return next, true
}

// FailPayment records a failed attempt. The order stays where it is so the
// customer can retry. A failure never overrides a recorded success.
func FailPayment(o Order, message string, now time.Time) (next Order, changed bool) {
	if o.PaymentStatus.IsPaid() {
		return o, false
	}

	next = o.Clone()
	next.PaymentStatus = PaymentStatusFailed
	line := fmt.Sprintf("[%s] Payment failed: %s", now.UTC().Format(time.RFC3339), message)
	if next.Notes == "" {
		next.Notes = line
	} else {
		next.Notes += "\n" + line
	}
	next.UpdatedAt = now
	return next, true
}

func (o *Order) appendHistory(from, to OrderStatus, actor Actor, note string, now time.Time) {
	o.StatusHistory = append(o.StatusHistory, StatusHistory{
		OrderID:    o.ID,
		FromStatus: from,
		ToStatus:   to,
		Note:       note,
		ChangedBy:  actor.String(),
		CreatedAt:  now,
	})
}
