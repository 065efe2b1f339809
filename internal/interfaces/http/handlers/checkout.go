// internal/interfaces/http/handlers/checkout.go
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/your-org/storefront-orders/internal/domain/checkout"
	"github.com/your-org/storefront-orders/internal/domain/order"
	"github.com/your-org/storefront-orders/internal/interfaces/http/middleware"
)

// OrderBuilder places and prices orders
type OrderBuilder interface {
	Quote(ctx context.Context, req checkout.QuoteRequest) (*checkout.Quote, error)
	Build(ctx context.Context, req checkout.BuildRequest) (*order.Order, error)
}

// CustomerOrders looks up an order on behalf of its owner
type CustomerOrders interface {
	GetForCustomer(ctx context.Context, number string, customerID uint) (*order.Order, error)
}

// CheckoutHandler handles checkout endpoints
type CheckoutHandler struct {
	builder OrderBuilder
	orders  CustomerOrders
	logger  logrus.FieldLogger
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(builder OrderBuilder, orders CustomerOrders, logger logrus.FieldLogger) *CheckoutHandler {
	return &CheckoutHandler{builder: builder, orders: orders, logger: logger}
}

// QuoteRequest is the body of POST /checkout/quote
type QuoteRequest struct {
	Items          []checkout.CartLine `json:"items" binding:"required,min=1,dive"`
	ShippingMethod string              `json:"shipping_method"`
	CouponCode     string              `json:"coupon_code"`
}

// PlaceOrderRequest is the body of POST /checkout
type PlaceOrderRequest struct {
	Items           []checkout.CartLine `json:"items" binding:"required,min=1,dive"`
	ShippingAddress order.Address       `json:"shipping_address" binding:"required"`
	BillingAddress  *order.Address      `json:"billing_address"`
	PaymentMethod   string              `json:"payment_method" binding:"required"`
	ShippingMethod  string              `json:"shipping_method"`
	CouponCode      string              `json:"coupon_code"`
	Notes           string              `json:"notes" binding:"max=1000"`
	CartKey         string              `json:"cart_key" binding:"max=100"`
}

// Quote handles POST /checkout/quote
func (h *CheckoutHandler) Quote(c *gin.Context) {
	userID, ok := currentCustomer(c)
	if !ok {
		return
	}

	var req QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	quote, err := h.builder.Quote(c.Request.Context(), checkout.QuoteRequest{
		CustomerID:     userID,
		Lines:          req.Items,
		ShippingMethod: req.ShippingMethod,
		CouponCode:     req.CouponCode,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Quote calculated successfully",
		"data":    quote,
	})
}

// PlaceOrder handles POST /checkout. The Idempotency-Key header, or cart_key
// in the body, identifies the cart; resubmitting it returns the placed order.
func (h *CheckoutHandler) PlaceOrder(c *gin.Context) {
	userID, ok := currentCustomer(c)
	if !ok {
		return
	}

	var req PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	billing := req.ShippingAddress
	if req.BillingAddress != nil {
		billing = *req.BillingAddress
	}
	cartKey := c.GetHeader("Idempotency-Key")
	if cartKey == "" {
		cartKey = req.CartKey
	}
	email, _ := middleware.GetUserEmailFromContext(c)

	placed, err := h.builder.Build(c.Request.Context(), checkout.BuildRequest{
		CustomerID:      userID,
		CustomerEmail:   email,
		CartKey:         cartKey,
		Lines:           req.Items,
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  billing,
		PaymentMethod:   req.PaymentMethod,
		ShippingMethod:  req.ShippingMethod,
		CouponCode:      req.CouponCode,
		Notes:           req.Notes,
	})
	if err != nil {
		var done *checkout.CheckedOutError
		if errors.As(err, &done) && done.OrderNumber != "" {
			h.replay(c, userID, done)
			return
		}
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Order created successfully",
		"data":    placed,
	})
}

// replay answers a resubmitted cart with the order it already produced
func (h *CheckoutHandler) replay(c *gin.Context, userID uint, done *checkout.CheckedOutError) {
	existing, err := h.orders.GetForCustomer(c.Request.Context(), done.OrderNumber, userID)
	if err != nil {
		// The cart key belongs to someone else's order; do not leak it.
		if errors.Is(err, order.ErrOrderNotFound) {
			c.JSON(http.StatusConflict, gin.H{"error": checkout.ErrCartAlreadyCheckedOut.Error()})
			return
		}
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order already placed for this cart",
		"data":    existing,
	})
}
