package payment

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/your-org/storefront-orders/internal/domain/order"
)

const (
	razorpaySignatureHeader = "X-Razorpay-Signature"
	razorpayEventIDHeader   = "X-Razorpay-Event-Id"
)

// RazorpayDecoder verifies the hex HMAC-SHA256 of the raw body
type RazorpayDecoder struct {
	secret string
	now    func() time.Time
}

func NewRazorpayDecoder(secret string, now func() time.Time) *RazorpayDecoder {
	if now == nil {
		now = time.Now
	}
	return &RazorpayDecoder{secret: secret, now: now}
}

func (d *RazorpayDecoder) Provider() order.PaymentMethod { return order.PaymentMethodRazorpay }

type razorpayEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment *struct {
			Entity struct {
				ID               string            `json:"id"`
				Amount           int64             `json:"amount"`
				Notes            map[string]string `json:"notes"`
				ErrorDescription string            `json:"error_description"`
			} `json:"entity"`
		} `json:"payment"`
		Refund *struct {
			Entity struct {
				ID        string `json:"id"`
				PaymentID string `json:"payment_id"`
				Amount    int64  `json:"amount"`
			} `json:"entity"`
		} `json:"refund"`
	} `json:"payload"`
}

func (d *RazorpayDecoder) Decode(header http.Header, body []byte) (*Event, error) {
	signature := header.Get(razorpaySignatureHeader)
	if signature == "" {
		return nil, fmt.Errorf("%w: missing %s header", ErrInvalidSignature, razorpaySignatureHeader)
	}
	if !validHexSignature(d.secret, body, signature) {
		return nil, ErrInvalidSignature
	}

	var raw razorpayEvent
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	id := header.Get(razorpayEventIDHeader)
	if id == "" {
		id = fallbackEventID(body)
	}
	ev := &Event{ID: id, Provider: order.PaymentMethodRazorpay, ReceivedAt: d.now()}

	switch raw.Event {
	case "payment.captured", "payment.failed":
		if raw.Payload.Payment == nil {
			return nil, fmt.Errorf("%w: missing payment entity", ErrMalformedEvent)
		}
		p := raw.Payload.Payment.Entity
		ev.PaymentID = p.ID
		ev.OrderID = p.Notes["order_id"]
		ev.Amount = p.Amount
		if raw.Event == "payment.captured" {
			ev.Type = EventPaymentSucceeded
		} else {
			ev.Type = EventPaymentFailed
			ev.ErrorMessage = p.ErrorDescription
			if ev.ErrorMessage == "" {
				ev.ErrorMessage = "payment failed"
			}
		}
	case "refund.processed":
		if raw.Payload.Refund == nil {
			return nil, fmt.Errorf("%w: missing refund entity", ErrMalformedEvent)
		}
		r := raw.Payload.Refund.Entity
		ev.Type = EventChargeRefunded
		ev.PaymentID = r.PaymentID
		ev.Amount = r.Amount
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEvent, raw.Event)
	}
	return ev, nil
}
