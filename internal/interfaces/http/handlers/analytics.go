// internal/interfaces/http/handlers/analytics.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/your-org/storefront-orders/internal/domain/analytics"
)

// AnalyticsHandler handles admin reporting endpoints
type AnalyticsHandler struct {
	analytics *analytics.Service
	logger    logrus.FieldLogger
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(reports *analytics.Service, logger logrus.FieldLogger) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: reports, logger: logger}
}

// GetSalesReport handles GET /admin/reports/sales?days=30
func (h *AnalyticsHandler) GetSalesReport(c *gin.Context) {
	report, err := h.analytics.GetSalesReport(c.Request.Context(), queryInt(c, "days", 30))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Sales report retrieved successfully",
		"data":    report,
	})
}
