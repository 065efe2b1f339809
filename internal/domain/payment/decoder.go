package payment

import (
	"fmt"
	"net/http"
	"time"

	"github.com/your-org/storefront-orders/internal/config"
	"github.com/your-org/storefront-orders/internal/domain/order"
)

// Decoder verifies and parses the webhook of one provider.
// Decode must check authenticity before reading anything from body.
type Decoder interface {
	Provider() order.PaymentMethod
	Decode(header http.Header, body []byte) (*Event, error)
}

// Registry maps providers to their decoders
type Registry map[order.PaymentMethod]Decoder

// NewRegistry registers a decoder for every provider with a configured secret.
// Providers without a secret cannot deliver events.
func NewRegistry(cfg config.PaymentConfig, now func() time.Time) Registry {
	r := Registry{}
	if cfg.StripeWebhookSecret != "" {
		r.Register(NewStripeDecoder(cfg.StripeWebhookSecret, cfg.StripeTolerance, now))
	}
	if cfg.RazorpayWebhookSecret != "" {
		r.Register(NewRazorpayDecoder(cfg.RazorpayWebhookSecret, now))
	}
	if cfg.PaypalWebhookSecret != "" {
		r.Register(NewEnvelopeDecoder(order.PaymentMethodPaypal, cfg.PaypalWebhookSecret, now))
	}
	if cfg.SSLCommerzWebhookSecret != "" {
		r.Register(NewEnvelopeDecoder(order.PaymentMethodSSLCommerz, cfg.SSLCommerzWebhookSecret, now))
	}
	return r
}

// Register adds or replaces a decoder
func (r Registry) Register(d Decoder) {
	r[d.Provider()] = d
}

// Decode routes a webhook to the decoder of provider
func (r Registry) Decode(provider string, header http.Header, body []byte) (*Event, error) {
	method, err := order.ParsePaymentMethod(provider)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
	}
	d, ok := r[method]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
	}
	return d.Decode(header, body)
}
