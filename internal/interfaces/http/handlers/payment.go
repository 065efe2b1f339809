// internal/interfaces/http/handlers/payment.go
package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/your-org/storefront-orders/internal/domain/payment"
)

// WebhookDecoder verifies and decodes provider webhooks
type WebhookDecoder interface {
	Decode(provider string, header http.Header, body []byte) (*payment.Event, error)
}

// EventHandler applies a decoded payment event
type EventHandler interface {
	Handle(ctx context.Context, ev *payment.Event) (payment.Outcome, error)
}

// AuditReader lists recorded payment events
type AuditReader interface {
	ForOrder(ctx context.Context, orderID string, limit int64) ([]payment.AuditEntry, error)
}

// PaymentHandler handles payment webhooks and the payment audit trail
type PaymentHandler struct {
	decoder WebhookDecoder
	events  EventHandler
	audit   AuditReader
	logger  logrus.FieldLogger
}

// NewPaymentHandler creates a new payment handler. audit may be nil.
func NewPaymentHandler(decoder WebhookDecoder, events EventHandler, audit AuditReader, logger logrus.FieldLogger) *PaymentHandler {
	return &PaymentHandler{decoder: decoder, events: events, audit: audit, logger: logger}
}

// Webhook handles POST /webhooks/:provider.
//
// A bad signature is a 400 and nothing is applied. Events we do not act on
// and business refusals are acknowledged with 200 so the provider stops
// retrying; only transient failures answer 500.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	provider := c.Param("provider")
	log := h.logger.WithFields(logrus.Fields{
		"provider":   provider,
		"request_id": c.GetString("request_id"),
	})

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Failed to read request body",
		})
		return
	}

	ev, err := h.decoder.Decode(provider, c.Request.Header, body)
	switch {
	case err == nil:
	case errors.Is(err, payment.ErrUnknownProvider):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	case errors.Is(err, payment.ErrInvalidSignature):
		log.Warn("webhook signature verification failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid signature"})
		return
	case errors.Is(err, payment.ErrUnsupportedEvent):
		log.WithField("reason", err.Error()).Debug("webhook event ignored")
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	default:
		log.WithField("error", err.Error()).Warn("malformed webhook payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Malformed payload"})
		return
	}

	outcome, err := h.events.Handle(c.Request.Context(), ev)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":    "Failed to process event",
			"event_id": ev.ID,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   outcome,
		"event_id": ev.ID,
	})
}

// AdminPaymentEvents handles GET /admin/payments/events?order_id=
func (h *PaymentHandler) AdminPaymentEvents(c *gin.Context) {
	if h.audit == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Payment audit log is not configured",
		})
		return
	}

	orderID := c.Query("order_id")
	if orderID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "order_id is required",
		})
		return
	}

	entries, err := h.audit.ForOrder(c.Request.Context(), orderID, int64(queryInt(c, "limit", 50)))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Payment events retrieved successfully",
		"data":    entries,
	})
}
