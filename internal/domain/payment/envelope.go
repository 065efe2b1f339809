package payment

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/your-org/storefront-orders/internal/domain/order"
)

const envelopeSignatureHeader = "X-Webhook-Signature"

// EnvelopeDecoder handles providers whose callbacks are normalized by an
// upstream relay into a signed JSON envelope. Used for PayPal and SSLCommerz.
type EnvelopeDecoder struct {
	provider order.PaymentMethod
	secret   string
	now      func() time.Time
}

func NewEnvelopeDecoder(provider order.PaymentMethod, secret string, now func() time.Time) *EnvelopeDecoder {
	if now == nil {
		now = time.Now
	}
	return &EnvelopeDecoder{provider: provider, secret: secret, now: now}
}

func (d *EnvelopeDecoder) Provider() order.PaymentMethod { return d.provider }

type envelope struct {
	ID           string    `json:"id"`
	Type         EventType `json:"type"`
	OrderID      string    `json:"order_id"`
	PaymentID    string    `json:"payment_id"`
	Amount       int64     `json:"amount"`
	ErrorMessage string    `json:"error_message"`
}

func (d *EnvelopeDecoder) Decode(header http.Header, body []byte) (*Event, error) {
	signature := header.Get(envelopeSignatureHeader)
	if signature == "" {
		return nil, fmt.Errorf("%w: missing %s header", ErrInvalidSignature, envelopeSignatureHeader)
	}
	if !validHexSignature(d.secret, body, signature) {
		return nil, ErrInvalidSignature
	}

	var raw envelope
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if !raw.Type.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEvent, raw.Type)
	}
	if raw.ID == "" {
		raw.ID = fallbackEventID(body)
	}

	return &Event{
		ID:           raw.ID,
		Provider:     d.provider,
		Type:         raw.Type,
		OrderID:      raw.OrderID,
		PaymentID:    raw.PaymentID,
		Amount:       raw.Amount,
		ErrorMessage: raw.ErrorMessage,
		ReceivedAt:   d.now(),
	}, nil
}

// SignBody returns the hex HMAC-SHA256 signature used by the Razorpay and
// envelope decoders
func SignBody(secret string, body []byte) string {
	return signHex(secret, body)
}
