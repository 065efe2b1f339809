// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/your-org/storefront-orders/internal/interfaces/http/handlers"
	"github.com/your-org/storefront-orders/internal/interfaces/http/middleware"
)

// Handlers bundles everything the API routes dispatch to
type Handlers struct {
	Products  *handlers.ProductHandler
	Checkout  *handlers.CheckoutHandler
	Orders    *handlers.OrderHandler
	Invoices  *handlers.InvoiceHandler
	Coupons   *handlers.CouponHandler
	Inventory *handlers.InventoryHandler
	Payments  *handlers.PaymentHandler
	Analytics *handlers.AnalyticsHandler
	Tokens    middleware.TokenValidator
}

// SetupRoutes registers every API route under rg
func SetupRoutes(rg *gin.RouterGroup, h Handlers) {
	SetupPublicRoutes(rg, h)
	SetupWebhookRoutes(rg, h)
	SetupCustomerRoutes(rg, h)
	SetupAdminRoutes(rg, h)
}

// SetupPublicRoutes sets up the catalog routes that need no authentication
func SetupPublicRoutes(rg *gin.RouterGroup, h Handlers) {
	products := rg.Group("/products")
	{
		products.GET("", h.Products.GetProducts)
		products.GET("/:sku", h.Products.GetProduct)
	}
}

// SetupWebhookRoutes sets up payment provider callbacks. They authenticate by signature.
func SetupWebhookRoutes(rg *gin.RouterGroup, h Handlers) {
	rg.POST("/webhooks/:provider", h.Payments.Webhook)
}

// SetupCustomerRoutes sets up checkout and order routes for signed-in customers
func SetupCustomerRoutes(rg *gin.RouterGroup, h Handlers) {
	authed := rg.Group("")
	authed.Use(middleware.AuthMiddleware(h.Tokens))

	checkout := authed.Group("/checkout")
	{
		checkout.POST("", h.Checkout.PlaceOrder)
		checkout.POST("/quote", h.Checkout.Quote)
	}

	orders := authed.Group("/orders")
	{
		orders.GET("", h.Orders.GetOrders)
		orders.GET("/:number", h.Orders.GetOrder)
		orders.POST("/:number/cancel", h.Orders.CancelOrder)
		orders.GET("/:number/invoice", h.Invoices.GenerateInvoice)
	}

	authed.POST("/coupons/validate", h.Coupons.Validate)
}

// SetupAdminRoutes sets up admin related routes
func SetupAdminRoutes(rg *gin.RouterGroup, h Handlers) {
	admin := rg.Group("/admin")
	admin.Use(middleware.AuthMiddleware(h.Tokens))
	admin.Use(middleware.AdminMiddleware())

	products := admin.Group("/products")
	{
		products.GET("", h.Products.AdminGetProducts)
		products.POST("", h.Products.AdminCreateProduct)
		products.PATCH("/:sku", h.Products.AdminUpdateProduct)
	}

	orders := admin.Group("/orders")
	{
		orders.GET("/:number", h.Orders.AdminGetOrder)
		orders.PUT("/:number/status", h.Orders.AdminUpdateStatus)
		orders.POST("/:number/tracking", h.Orders.AdminAddTracking)
		orders.POST("/:number/deliver", h.Orders.AdminMarkDelivered)
		orders.POST("/:number/cancel", h.Orders.AdminCancelOrder)
		orders.POST("/:number/refund", h.Orders.AdminRefund)
		orders.POST("/:number/release-stock", h.Orders.AdminReleaseStock)
		orders.PUT("/:number/notes", h.Orders.AdminUpdateNotes)
	}

	coupons := admin.Group("/coupons")
	{
		coupons.POST("", h.Coupons.AdminCreate)
		coupons.GET("/:code", h.Coupons.AdminGet)
		coupons.DELETE("/:code", h.Coupons.AdminDeactivate)
	}

	inventory := admin.Group("/inventory")
	{
		inventory.GET("/:sku", h.Inventory.GetStockLevel)
		inventory.POST("/:sku/restock", h.Inventory.Restock)
		inventory.GET("/:sku/movements", h.Inventory.GetMovements)
	}

	admin.GET("/payments/events", h.Payments.AdminPaymentEvents)
	admin.GET("/reports/sales", h.Analytics.GetSalesReport)
}
