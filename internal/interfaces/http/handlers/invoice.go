// internal/interfaces/http/handlers/invoice.go
package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/your-org/storefront-orders/internal/domain/order"
)

// InvoiceRenderer turns an order into a PDF
type InvoiceRenderer interface {
	GenerateInvoice(o *order.Order) ([]byte, error)
}

// InvoiceHandler handles invoice endpoints
type InvoiceHandler struct {
	orders   CustomerOrders
	invoices InvoiceRenderer
	logger   logrus.FieldLogger
}

// NewInvoiceHandler creates a new invoice handler
func NewInvoiceHandler(orders CustomerOrders, invoices InvoiceRenderer, logger logrus.FieldLogger) *InvoiceHandler {
	return &InvoiceHandler{orders: orders, invoices: invoices, logger: logger}
}

// GenerateInvoice handles GET /orders/:number/invoice
func (h *InvoiceHandler) GenerateInvoice(c *gin.Context) {
	userID, ok := currentCustomer(c)
	if !ok {
		return
	}

	o, err := h.orders.GetForCustomer(c.Request.Context(), c.Param("number"), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	pdfBytes, err := h.invoices.GenerateInvoice(o)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=invoice-%s.pdf", o.OrderNumber))
	c.Header("Content-Length", strconv.Itoa(len(pdfBytes)))
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}
