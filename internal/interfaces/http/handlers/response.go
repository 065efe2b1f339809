package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/your-org/storefront-orders/internal/domain/checkout"
	"github.com/your-org/storefront-orders/internal/domain/coupon"
	"github.com/your-org/storefront-orders/internal/domain/inventory"
	"github.com/your-org/storefront-orders/internal/domain/order"
	"github.com/your-org/storefront-orders/internal/domain/product"
	"github.com/your-org/storefront-orders/internal/interfaces/http/middleware"
	"github.com/your-org/storefront-orders/internal/pkg/pdf"
)

// statusFor maps domain errors to HTTP status codes. User-correctable errors
// keep their message; everything else is a 500 without detail.
func statusFor(err error) (int, bool) {
	var (
		oos        *inventory.OutOfStockError
		transition *order.TransitionError
		address    *order.InvalidAddressError
		rejected   *checkout.CouponRejectedError
		notApplies *coupon.NotApplicableError
		checkedOut *checkout.CheckedOutError
	)

	switch {
	case errors.As(err, &oos), errors.Is(err, inventory.ErrInsufficientStock):
		return http.StatusConflict, true
	case errors.As(err, &transition), errors.Is(err, order.ErrInvalidTransition):
		return http.StatusConflict, true
	case errors.As(err, &checkedOut), errors.Is(err, checkout.ErrCheckoutInProgress):
		return http.StatusConflict, true
	case errors.Is(err, order.ErrVersionConflict), errors.Is(err, coupon.ErrCouponExists),
		errors.Is(err, product.ErrProductExists):
		return http.StatusConflict, true
	case errors.Is(err, pdf.ErrNotInvoiceable):
		return http.StatusConflict, true

	case errors.As(err, &rejected), errors.As(err, &notApplies):
		return http.StatusUnprocessableEntity, true
	case errors.As(err, &address):
		return http.StatusUnprocessableEntity, true
	case errors.Is(err, order.ErrRefundExceedsTotal), errors.Is(err, order.ErrInvalidRefundAmount):
		return http.StatusUnprocessableEntity, true

	case errors.Is(err, order.ErrOrderNotFound), errors.Is(err, coupon.ErrCouponNotFound),
		errors.Is(err, product.ErrProductNotFound), errors.Is(err, inventory.ErrUnknownSKU):
		return http.StatusNotFound, true

	case errors.Is(err, checkout.ErrEmptyCart), errors.Is(err, checkout.ErrInvalidQuantity),
		errors.Is(err, checkout.ErrProductUnavailable), errors.Is(err, checkout.ErrInvalidShippingMethod),
		errors.Is(err, checkout.ErrMissingCustomer), errors.Is(err, order.ErrInvalidPaymentMethod),
		errors.Is(err, order.ErrTrackingRequired), errors.Is(err, inventory.ErrInvalidQuantity),
		errors.Is(err, inventory.ErrQuantityTooLarge), errors.Is(err, checkout.ErrOrderTooLarge),
		errors.Is(err, coupon.ErrInvalidCoupon), errors.Is(err, product.ErrInvalidProduct):
		return http.StatusBadRequest, true

	default:
		return http.StatusInternalServerError, false
	}
}

// respondError writes err as JSON. Unexpected errors are logged and hidden.
func respondError(c *gin.Context, logger logrus.FieldLogger, err error) {
	status, public := statusFor(err)
	if !public {
		logger.WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"path":       c.FullPath(),
			"error":      err.Error(),
		}).Error("request failed")
		c.JSON(status, gin.H{
			"error": "Internal server error",
		})
		return
	}

	body := gin.H{"error": err.Error()}
	var oos *inventory.OutOfStockError
	if errors.As(err, &oos) {
		body["sku"] = oos.SKU
		body["available"] = oos.Available
	}
	c.JSON(status, body)
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "Invalid request data",
		"details": err.Error(),
	})
}

// currentCustomer returns the authenticated user or writes a 401
func currentCustomer(c *gin.Context) (uint, bool) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authenticated",
		})
		return 0, false
	}
	return userID, true
}

// currentActor describes the caller for status history
func currentActor(c *gin.Context) order.Actor {
	userID, _ := middleware.GetUserIDFromContext(c)
	return order.Actor{UserID: userID, Admin: middleware.IsAdminFromContext(c)}
}

func queryInt(c *gin.Context, name string, fallback int) int {
	if v := c.Query(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
