// internal/interfaces/http/handlers/order.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/your-org/storefront-orders/internal/domain/order"
)

// OrderHandler handles order endpoints
type OrderHandler struct {
	orders *order.Service
	logger logrus.FieldLogger
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orders *order.Service, logger logrus.FieldLogger) *OrderHandler {
	return &OrderHandler{orders: orders, logger: logger}
}

// GetOrders handles GET /orders (user's own orders)
func (h *OrderHandler) GetOrders(c *gin.Context) {
	userID, ok := currentCustomer(c)
	if !ok {
		return
	}

	page := queryInt(c, "page", 1)
	limit := queryInt(c, "limit", 20)
	if limit > 100 {
		limit = 100
	}

	orders, total, err := h.orders.ListForCustomer(c.Request.Context(), userID, page, limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	totalPages := (total + int64(limit) - 1) / int64(limit)
	c.JSON(http.StatusOK, gin.H{
		"message": "Orders retrieved successfully",
		"data": gin.H{
			"orders":      orders,
			"total":       total,
			"page":        page,
			"limit":       limit,
			"total_pages": totalPages,
		},
	})
}

// GetOrder handles GET /orders/:number
func (h *OrderHandler) GetOrder(c *gin.Context) {
	userID, ok := currentCustomer(c)
	if !ok {
		return
	}

	o, err := h.orders.GetForCustomer(c.Request.Context(), c.Param("number"), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order retrieved successfully",
		"data":    o,
	})
}

type cancelRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// CancelOrder handles POST /orders/:number/cancel. Customers may only cancel pending orders.
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	userID, ok := currentCustomer(c)
	if !ok {
		return
	}

	var req cancelRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}

	o, err := h.orders.Cancel(c.Request.Context(), c.Param("number"), order.Actor{UserID: userID}, req.Reason)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order cancelled successfully",
		"data":    o,
	})
}

// AdminGetOrder handles GET /admin/orders/:number
func (h *OrderHandler) AdminGetOrder(c *gin.Context) {
	o, err := h.orders.Get(c.Request.Context(), c.Param("number"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order retrieved successfully",
		"data":    o,
	})
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Note   string `json:"note" binding:"max=500"`
}

// AdminUpdateStatus handles PUT /admin/orders/:number/status
func (h *OrderHandler) AdminUpdateStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	status, err := order.ParseOrderStatus(req.Status)
	if err != nil {
		badRequest(c, err)
		return
	}

	o, err := h.orders.UpdateStatus(c.Request.Context(), c.Param("number"), status, currentActor(c), req.Note)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order status updated successfully",
		"data":    o,
	})
}

// AdminAddTracking handles POST /admin/orders/:number/tracking
func (h *OrderHandler) AdminAddTracking(c *gin.Context) {
	var req order.Tracking
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	o, err := h.orders.AddTracking(c.Request.Context(), c.Param("number"), req, currentActor(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Tracking added successfully",
		"data":    o,
	})
}

// AdminMarkDelivered handles POST /admin/orders/:number/deliver
func (h *OrderHandler) AdminMarkDelivered(c *gin.Context) {
	o, err := h.orders.MarkDelivered(c.Request.Context(), c.Param("number"), currentActor(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order marked as delivered",
		"data":    o,
	})
}

// AdminCancelOrder handles POST /admin/orders/:number/cancel
func (h *OrderHandler) AdminCancelOrder(c *gin.Context) {
	var req cancelRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}

	o, err := h.orders.Cancel(c.Request.Context(), c.Param("number"), currentActor(c), req.Reason)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order cancelled successfully",
		"data":    o,
	})
}

type refundRequest struct {
	Amount int64  `json:"amount" binding:"required"`
	Reason string `json:"reason" binding:"required,max=500"`
}

// AdminRefund handles POST /admin/orders/:number/refund. Amount is in cents.
func (h *OrderHandler) AdminRefund(c *gin.Context) {
	var req refundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	o, err := h.orders.ProcessRefund(c.Request.Context(), c.Param("number"), req.Amount, req.Reason, currentActor(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Refund recorded successfully",
		"data":    o,
	})
}

// AdminReleaseStock handles POST /admin/orders/:number/release-stock
func (h *OrderHandler) AdminReleaseStock(c *gin.Context) {
	o, err := h.orders.ReleaseStock(c.Request.Context(), c.Param("number"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Stock released",
		"data":    o,
	})
}

type notesRequest struct {
	Notes string `json:"notes" binding:"max=5000"`
}

// AdminUpdateNotes handles PUT /admin/orders/:number/notes
func (h *OrderHandler) AdminUpdateNotes(c *gin.Context) {
	var req notesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	o, err := h.orders.UpdateAdminNotes(c.Request.Context(), c.Param("number"), req.Notes)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Notes updated successfully",
		"data":    o,
	})
}
