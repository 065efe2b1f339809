package payment

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/your-org/storefront-orders/internal/domain/order"
)

const stripeSignatureHeader = "Stripe-Signature"

// StripeDecoder checks Stripe-Signature with the stripe-go webhook package
// and maps payment intent and charge events.
type StripeDecoder struct {
	secret    string
	tolerance time.Duration
	now       func() time.Time
}

func NewStripeDecoder(secret string, tolerance time.Duration, now func() time.Time) *StripeDecoder {
	if now == nil {
		now = time.Now
	}
	if tolerance <= 0 {
		tolerance = webhook.DefaultTolerance
	}
	return &StripeDecoder{secret: secret, tolerance: tolerance, now: now}
}

func (d *StripeDecoder) Provider() order.PaymentMethod { return order.PaymentMethodStripe }

func (d *StripeDecoder) Decode(header http.Header, body []byte) (*Event, error) {
	sig := header.Get(stripeSignatureHeader)
	if sig == "" {
		return nil, fmt.Errorf("%w: missing %s header", ErrInvalidSignature, stripeSignatureHeader)
	}
	if err := webhook.ValidatePayloadWithTolerance(body, sig, d.secret, d.tolerance); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	var raw stripe.Event
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if raw.ID == "" || raw.Data == nil {
		return nil, fmt.Errorf("%w: missing event id or data", ErrMalformedEvent)
	}

	ev := &Event{
		ID:         raw.ID,
		Provider:   order.PaymentMethodStripe,
		ReceivedAt: d.now(),
	}

	switch raw.Type {
	case stripe.EventTypePaymentIntentSucceeded, stripe.EventTypePaymentIntentPaymentFailed:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(raw.Data.Raw, &pi); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
		}
		ev.OrderID = pi.Metadata["order_id"]
		ev.PaymentID = pi.ID
		if raw.Type == stripe.EventTypePaymentIntentSucceeded {
			ev.Type = EventPaymentSucceeded
			ev.Amount = pi.Amount
			break
		}
		ev.Type = EventPaymentFailed
		ev.ErrorMessage = "payment failed"
		if pi.LastPaymentError != nil && pi.LastPaymentError.Msg != "" {
			ev.ErrorMessage = pi.LastPaymentError.Msg
		}
	case stripe.EventTypeChargeRefunded:
		var ch stripe.Charge
		if err := json.Unmarshal(raw.Data.Raw, &ch); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
		}
		// the order stores the payment intent id, not the charge id
		ev.Type = EventChargeRefunded
		ev.OrderID = ch.Metadata["order_id"]
		ev.PaymentID = ch.ID
		if ch.PaymentIntent != nil && ch.PaymentIntent.ID != "" {
			ev.PaymentID = ch.PaymentIntent.ID
		}
		// amount_refunded is the running total across all refunds of the charge
		ev.RefundedTotal = ch.AmountRefunded
		ev.Amount = ch.AmountRefunded
		if ch.Refunds != nil && len(ch.Refunds.Data) > 0 && ch.Refunds.Data[0] != nil {
			ev.Amount = ch.Refunds.Data[0].Amount
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEvent, raw.Type)
	}
	return ev, nil
}

// SignStripe builds a Stripe-Signature header value for body
func SignStripe(secret string, body []byte, at time.Time) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   body,
		Secret:    secret,
		Timestamp: at,
	}).Header
}
