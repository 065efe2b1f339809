package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/your-org/storefront-orders/internal/domain/coupon"
)

// CouponHandler handles coupon endpoints
type CouponHandler struct {
	coupons *coupon.Service
	logger  logrus.FieldLogger
}

func NewCouponHandler(coupons *coupon.Service, logger logrus.FieldLogger) *CouponHandler {
	return &CouponHandler{coupons: coupons, logger: logger}
}

type validateCouponRequest struct {
	Code     string `json:"code" binding:"required"`
	Subtotal int64  `json:"subtotal" binding:"min=0"`
}

// Validate handles POST /coupons/validate. A refused coupon is still a 200
// with accepted=false and the reason.
func (h *CouponHandler) Validate(c *gin.Context) {
	userID, ok := currentCustomer(c)
	if !ok {
		return
	}

	var req validateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	eval, err := h.coupons.EvaluateForCustomer(c.Request.Context(), req.Code, req.Subtotal, userID)
	if err != nil && !errors.Is(err, coupon.ErrCouponNotApplicable) {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Coupon evaluated",
		"data":    eval,
	})
}

// AdminCreate handles POST /admin/coupons
func (h *CouponHandler) AdminCreate(c *gin.Context) {
	var req coupon.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	created, err := h.coupons.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Coupon created successfully",
		"data":    created,
	})
}

// AdminGet handles GET /admin/coupons/:code
func (h *CouponHandler) AdminGet(c *gin.Context) {
	found, err := h.coupons.Get(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Coupon retrieved successfully",
		"data":    found,
	})
}

// AdminDeactivate handles DELETE /admin/coupons/:code
func (h *CouponHandler) AdminDeactivate(c *gin.Context) {
	if err := h.coupons.Deactivate(c.Request.Context(), c.Param("code")); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Coupon deactivated successfully",
	})
}
