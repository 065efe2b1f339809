// internal/interfaces/http/handlers/inventory.go
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/your-org/storefront-orders/internal/domain/inventory"
)

// StockLedger is the admin view of the inventory ledger
type StockLedger interface {
	Level(ctx context.Context, sku string) (*inventory.StockLevel, error)
	Restock(ctx context.Context, sku string, quantity int, reference string) (*inventory.StockLevel, error)
}

// MovementReader lists stock movements
type MovementReader interface {
	Movements(ctx context.Context, sku string, limit int) ([]inventory.StockMovement, error)
}

// InventoryHandler handles inventory endpoints
type InventoryHandler struct {
	ledger    StockLedger
	movements MovementReader
	logger    logrus.FieldLogger
}

// NewInventoryHandler creates a new inventory handler
func NewInventoryHandler(ledger StockLedger, movements MovementReader, logger logrus.FieldLogger) *InventoryHandler {
	return &InventoryHandler{ledger: ledger, movements: movements, logger: logger}
}

// GetStockLevel handles GET /admin/inventory/:sku
func (h *InventoryHandler) GetStockLevel(c *gin.Context) {
	level, err := h.ledger.Level(c.Request.Context(), c.Param("sku"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Stock level retrieved successfully",
		"data":    level,
	})
}

type restockRequest struct {
	Quantity  int    `json:"quantity" binding:"required,min=1,max=10000"`
	Reference string `json:"reference" binding:"max=100"`
}

// Restock handles POST /admin/inventory/:sku/restock
func (h *InventoryHandler) Restock(c *gin.Context) {
	var req restockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	reference := req.Reference
	if reference == "" {
		reference = currentActor(c).String()
	}

	level, err := h.ledger.Restock(c.Request.Context(), c.Param("sku"), req.Quantity, reference)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Stock updated successfully",
		"data":    level,
	})
}

// GetMovements handles GET /admin/inventory/:sku/movements
func (h *InventoryHandler) GetMovements(c *gin.Context) {
	limit := queryInt(c, "limit", 50)
	if limit > 500 {
		limit = 500
	}

	moves, err := h.movements.Movements(c.Request.Context(), c.Param("sku"), limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Stock movements retrieved successfully",
		"data":    moves,
	})
}
