// internal/domain/payment/event.go
package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/your-org/storefront-orders/internal/domain/order"
)

// EventType is the normalized kind of a provider event
type EventType string

const (
	EventPaymentSucceeded EventType = "payment_succeeded"
	EventPaymentFailed    EventType = "payment_failed"
	EventChargeRefunded   EventType = "charge_refunded"
)

// IsValid reports whether t is one of the handled event types
func (t EventType) IsValid() bool {
	return t == EventPaymentSucceeded || t == EventPaymentFailed || t == EventChargeRefunded
}

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrUnsupportedEvent = errors.New("unsupported webhook event")
	ErrMalformedEvent   = errors.New("malformed webhook payload")
	ErrUnknownProvider  = errors.New("unknown or unconfigured payment provider")
)

// Event is a verified provider event reduced to what reconciliation needs.
// OrderID is our internal order id taken from provider metadata.
type Event struct {
	ID           string              `json:"id"`
	Provider     order.PaymentMethod `json:"provider"`
	Type         EventType           `json:"type"`
	OrderID      string              `json:"order_id,omitempty"`
	PaymentID    string              `json:"payment_id,omitempty"`
	Amount       int64               `json:"amount,omitempty"`
	ErrorMessage string              `json:"error_message,omitempty"`
	ReceivedAt   time.Time           `json:"received_at"`

	// RefundedTotal is the cumulative refunded amount when the provider
	// reports one. The refund is then applied as the difference to the order.
	RefundedTotal int64 `json:"refunded_total,omitempty"`
}

// DedupKey identifies the event across redeliveries
func (e *Event) DedupKey() string {
	return string(e.Provider) + ":" + e.ID
}

func signHex(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func validHexSignature(secret string, payload []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	expected := signHex(secret, payload)
	return hmac.Equal([]byte(signature), []byte(expected))
}

// fallbackEventID derives a stable id from the body when the provider sends none
func fallbackEventID(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:16])
}
