package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/your-org/storefront-orders/internal/config"
	"github.com/your-org/storefront-orders/internal/domain/analytics"
	"github.com/your-org/storefront-orders/internal/domain/checkout"
	"github.com/your-org/storefront-orders/internal/domain/coupon"
	"github.com/your-org/storefront-orders/internal/domain/inventory"
	"github.com/your-org/storefront-orders/internal/domain/order"
	"github.com/your-org/storefront-orders/internal/domain/payment"
	"github.com/your-org/storefront-orders/internal/domain/product"
	"github.com/your-org/storefront-orders/internal/infrastructure/database/memory"
	"github.com/your-org/storefront-orders/internal/interfaces/http/handlers"
	"github.com/your-org/storefront-orders/internal/interfaces/http/routes"
	"github.com/your-org/storefront-orders/internal/pkg/auth"
)

const stripeSecret = "whsec_test"

type api struct {
	t        *testing.T
	router   *gin.Engine
	tokens   *auth.JWTManager
	products *memory.ProductStore
	orders   *memory.OrderStore
	coupons  *memory.CouponStore
}

type envelope struct {
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	Error     string          `json:"error"`
	SKU       string          `json:"sku"`
	Status    string          `json:"status"`
	Available int             `json:"available"`
}

type placedOrder struct {
	ID            string `json:"id"`
	OrderNumber   string `json:"order_number"`
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
	Subtotal      int64  `json:"subtotal"`
	Discount      int64  `json:"discount"`
	Total         int64  `json:"total"`
}

func newAPI(t *testing.T) *api {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	now := time.Now()
	products := memory.NewProductStore(
		product.Product{SKU: "A", Name: "Widget", Price: 2500, Stock: 5, LowStockThreshold: 1, IsActive: true},
	)
	orders := memory.NewOrderStore()
	coupons := memory.NewCouponStore(coupon.Coupon{
		Code:          "SAVE10",
		DiscountType:  coupon.DiscountTypePercentage,
		DiscountValue: decimal.NewFromInt(10),
		ValidFrom:     now.AddDate(0, -1, 0),
		ValidUntil:    now.AddDate(0, 1, 0),
		IsActive:      true,
	})

	ledger := inventory.NewLedger(products, logger)
	couponSvc := coupon.NewService(coupons, orders, logger)
	orderSvc := order.NewService(orders, ledger, nil, logger)
	rules := checkout.PricingRules{Currency: "USD", TaxRatePercent: decimal.Zero}
	builder := checkout.NewBuilder(products, couponSvc, ledger, orders, memory.NewSequence(), memory.NewCheckoutGuard(), rules, nil, logger)

	registry := payment.NewRegistry(config.PaymentConfig{
		StripeWebhookSecret: stripeSecret,
		StripeTolerance:     5 * time.Minute,
	}, time.Now)
	audit := memory.NewEventLog()
	reconciler := payment.NewReconciler(orderSvc, memory.NewEventDeduper(), audit, nil, logger)

	tokens := auth.NewJWTManager(config.JWTConfig{
		Secret:            "handler-test-secret",
		Issuer:            "storefront",
		AccessTokenExpiry: time.Hour,
	})

	router := gin.New()
	routes.SetupRoutes(router.Group("/api/v1"), routes.Handlers{
		Products:  handlers.NewProductHandler(product.NewService(products, logger), logger),
		Checkout:  handlers.NewCheckoutHandler(builder, orderSvc, logger),
		Orders:    handlers.NewOrderHandler(orderSvc, logger),
		Invoices:  handlers.NewInvoiceHandler(orderSvc, fakeInvoices{}, logger),
		Coupons:   handlers.NewCouponHandler(couponSvc, logger),
		Inventory: handlers.NewInventoryHandler(ledger, products, logger),
		Payments:  handlers.NewPaymentHandler(registry, reconciler, audit, logger),
		Analytics: handlers.NewAnalyticsHandler(analytics.NewService(orders, logger), logger),
		Tokens:    tokens,
	})

	return &api{t: t, router: router, tokens: tokens, products: products, orders: orders, coupons: coupons}
}

type fakeInvoices struct{}

func (fakeInvoices) GenerateInvoice(o *order.Order) ([]byte, error) {
	return []byte("%PDF-" + o.OrderNumber), nil
}

func (a *api) token(userID uint, admin bool) string {
	a.t.Helper()
	tok, err := a.tokens.GenerateAccessToken(userID, fmt.Sprintf("user%d@example.com", userID), admin)
	if err != nil {
		a.t.Fatalf("GenerateAccessToken: %v", err)
	}
	return tok
}

func (a *api) do(method, path, token string, body interface{}, header map[string]string) (*httptest.ResponseRecorder, envelope) {
	a.t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case []byte:
		reader = bytes.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			a.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") != "application/pdf" {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			a.t.Fatalf("%s %s: decode response %q: %v", method, path, w.Body.String(), err)
		}
	}
	return w, env
}

func (a *api) stock(sku string) int {
	a.t.Helper()
	level, err := a.products.Level(context.Background(), sku)
	if err != nil {
		a.t.Fatalf("Level(%s): %v", sku, err)
	}
	return level.Stock
}

func checkoutBody(qty int, couponCode, method string) gin.H {
	return gin.H{
		"items": []gin.H{{"sku": "A", "quantity": qty}},
		"shipping_address": gin.H{
			"name": "Ada", "phone": "555-0100", "street": "1 Main St",
			"city": "Springfield", "state": "IL", "zip": "62701", "country": "US",
		},
		"payment_method": method,
		"coupon_code":    couponCode,
	}
}

func decodeOrder(t *testing.T, env envelope) placedOrder {
	t.Helper()
	var o placedOrder
	if err := json.Unmarshal(env.Data, &o); err != nil {
		t.Fatalf("decode order: %v", err)
	}
	return o
}

func (a *api) placeOrder(userID uint, cartKey string) placedOrder {
	a.t.Helper()
	w, env := a.do(http.MethodPost, "/api/v1/checkout", a.token(userID, false), checkoutBody(2, "SAVE10", "stripe"),
		map[string]string{"Idempotency-Key": cartKey})
	if w.Code != http.StatusCreated {
		a.t.Fatalf("place order: status %d body %s", w.Code, w.Body.String())
	}
	return decodeOrder(a.t, env)
}

func stripeEvent(id, typ, orderID, paymentID string, amount int64) []byte {
	body, _ := json.Marshal(gin.H{
		"id":   id,
		"type": typ,
		"data": gin.H{"object": gin.H{
			"id":       paymentID,
			"amount":   amount,
			"metadata": gin.H{"order_id": orderID},
		}},
	})
	return body
}

func (a *api) deliverStripe(body []byte) (*httptest.ResponseRecorder, envelope) {
	a.t.Helper()
	return a.do(http.MethodPost, "/api/v1/webhooks/stripe", "", body, map[string]string{
		"Stripe-Signature": payment.SignStripe(stripeSecret, body, time.Now()),
	})
}

func TestAuthentication(t *testing.T) {
	a := newAPI(t)

	w, _ := a.do(http.MethodPost, "/api/v1/checkout", "", checkoutBody(1, "", "stripe"), nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("checkout without token: status %d, want 401", w.Code)
	}

	w, _ = a.do(http.MethodGet, "/api/v1/admin/orders/ORD-2026-00001", a.token(7, false), nil, nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("admin route as customer: status %d, want 403", w.Code)
	}

	w, _ = a.do(http.MethodGet, "/api/v1/orders", "not-a-token", nil, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("garbage token: status %d, want 401", w.Code)
	}
}

func TestPlaceOrderAppliesCouponAndReservesStock(t *testing.T) {
	a := newAPI(t)

	placed := a.placeOrder(7, "cart-1")
	if placed.Subtotal != 5000 || placed.Discount != 500 || placed.Total != 4500 {
		t.Errorf("totals = %d/%d/%d, want 5000/500/4500", placed.Subtotal, placed.Discount, placed.Total)
	}
	if placed.Status != string(order.OrderStatusPending) || placed.PaymentStatus != string(order.PaymentStatusPending) {
		t.Errorf("status = %s/%s, want pending/pending", placed.Status, placed.PaymentStatus)
	}
	if got := a.stock("A"); got != 3 {
		t.Errorf("stock = %d, want 3", got)
	}
	c, err := a.coupons.GetByCode(context.Background(), "SAVE10")
	if err != nil {
		t.Fatalf("GetByCode: %v", err)
	}
	if c.UsageCount != 1 {
		t.Errorf("coupon used count = %d, want 1", c.UsageCount)
	}
}

func TestPlaceOrderReplaysSameCart(t *testing.T) {
	a := newAPI(t)
	first := a.placeOrder(7, "cart-1")

	w, env := a.do(http.MethodPost, "/api/v1/checkout", a.token(7, false), checkoutBody(2, "SAVE10", "stripe"),
		map[string]string{"Idempotency-Key": "cart-1"})
	if w.Code != http.StatusOK {
		t.Fatalf("replay: status %d, want 200 (%s)", w.Code, w.Body.String())
	}
	if got := decodeOrder(t, env).OrderNumber; got != first.OrderNumber {
		t.Errorf("replayed order %s, want %s", got, first.OrderNumber)
	}
	if a.orders.Count() != 1 {
		t.Errorf("orders = %d, want 1", a.orders.Count())
	}
	if got := a.stock("A"); got != 3 {
		t.Errorf("stock = %d after replay, want 3", got)
	}

	// another customer reusing the key must not see the order
	w, _ = a.do(http.MethodPost, "/api/v1/checkout", a.token(8, false), checkoutBody(1, "", "stripe"),
		map[string]string{"Idempotency-Key": "cart-1"})
	if w.Code != http.StatusConflict {
		t.Errorf("foreign replay: status %d, want 409", w.Code)
	}
}

func TestPlaceOrderOutOfStock(t *testing.T) {
	a := newAPI(t)

	w, env := a.do(http.MethodPost, "/api/v1/checkout", a.token(7, false), checkoutBody(6, "SAVE10", "cod"), nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("status %d, want 409 (%s)", w.Code, w.Body.String())
	}
	if env.SKU != "A" || env.Available != 5 {
		t.Errorf("body sku=%q available=%d, want A/5", env.SKU, env.Available)
	}
	if got := a.stock("A"); got != 5 {
		t.Errorf("stock = %d, want 5", got)
	}
	if a.orders.Count() != 0 {
		t.Errorf("orders = %d, want 0", a.orders.Count())
	}
	c, _ := a.coupons.GetByCode(context.Background(), "SAVE10")
	if c.UsageCount != 0 {
		t.Errorf("coupon used count = %d, want 0", c.UsageCount)
	}
}

func TestPlaceOrderRejectsUnknownCoupon(t *testing.T) {
	a := newAPI(t)

	w, _ := a.do(http.MethodPost, "/api/v1/checkout", a.token(7, false), checkoutBody(1, "NOPE", "stripe"), nil)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status %d, want 422 (%s)", w.Code, w.Body.String())
	}
	if got := a.stock("A"); got != 5 {
		t.Errorf("stock = %d, want 5", got)
	}
}

func TestPlaceOrderValidation(t *testing.T) {
	a := newAPI(t)

	w, env := a.do(http.MethodPost, "/api/v1/checkout", a.token(7, false), gin.H{"items": []gin.H{}}, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty cart: status %d, want 400", w.Code)
	}
	if env.Error == "" {
		t.Error("empty cart: missing error message")
	}

	w, _ = a.do(http.MethodPost, "/api/v1/checkout", a.token(7, false), checkoutBody(1, "", "bitcoin"), nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown payment method: status %d, want 400", w.Code)
	}
}

func TestCustomerCannotReadOthersOrder(t *testing.T) {
	a := newAPI(t)
	placed := a.placeOrder(7, "cart-1")

	w, _ := a.do(http.MethodGet, "/api/v1/orders/"+placed.OrderNumber, a.token(8, false), nil, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status %d, want 404", w.Code)
	}

	w, _ = a.do(http.MethodGet, "/api/v1/orders/"+placed.OrderNumber, a.token(7, false), nil, nil)
	if w.Code != http.StatusOK {
		t.Errorf("owner: status %d, want 200", w.Code)
	}
}

func TestCustomerCancelReleasesStock(t *testing.T) {
	a := newAPI(t)
	placed := a.placeOrder(7, "cart-1")

	w, env := a.do(http.MethodPost, "/api/v1/orders/"+placed.OrderNumber+"/cancel", a.token(7, false), gin.H{"reason": "changed my mind"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("cancel: status %d (%s)", w.Code, w.Body.String())
	}
	if got := decodeOrder(t, env).Status; got != string(order.OrderStatusCancelled) {
		t.Errorf("status = %s, want cancelled", got)
	}
	if got := a.stock("A"); got != 5 {
		t.Errorf("stock = %d, want 5", got)
	}

	w, _ = a.do(http.MethodPost, "/api/v1/orders/"+placed.OrderNumber+"/cancel", a.token(7, false), nil, nil)
	if w.Code != http.StatusConflict {
		t.Errorf("second cancel: status %d, want 409", w.Code)
	}
	if got := a.stock("A"); got != 5 {
		t.Errorf("stock = %d after second cancel, want 5", got)
	}
}

func TestStripeWebhook(t *testing.T) {
	a := newAPI(t)
	placed := a.placeOrder(7, "cart-1")
	body := stripeEvent("evt_1", "payment_intent.succeeded", placed.ID, "pi_1", placed.Total)

	w, env := a.deliverStripe(body)
	if w.Code != http.StatusOK || env.Status != string(payment.OutcomeApplied) {
		t.Fatalf("first delivery: status %d outcome %q (%s)", w.Code, env.Status, w.Body.String())
	}

	w, env = a.deliverStripe(body)
	if w.Code != http.StatusOK || env.Status != string(payment.OutcomeDuplicate) {
		t.Errorf("redelivery: status %d outcome %q, want 200 duplicate", w.Code, env.Status)
	}

	// same payment under a new event id is a no-op
	w, env = a.deliverStripe(stripeEvent("evt_2", "payment_intent.succeeded", placed.ID, "pi_1", placed.Total))
	if w.Code != http.StatusOK || env.Status != string(payment.OutcomeNoop) {
		t.Errorf("second event: status %d outcome %q, want 200 noop", w.Code, env.Status)
	}

	w, env = a.do(http.MethodGet, "/api/v1/admin/orders/"+placed.OrderNumber, a.token(1, true), nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("admin get: status %d", w.Code)
	}
	got := decodeOrder(t, env)
	if got.Status != string(order.OrderStatusConfirmed) || got.PaymentStatus != string(order.PaymentStatusPaid) {
		t.Errorf("order = %s/%s, want confirmed/paid", got.Status, got.PaymentStatus)
	}

	w, env = a.do(http.MethodGet, "/api/v1/admin/payments/events?order_id="+placed.ID, a.token(1, true), nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("audit: status %d", w.Code)
	}
	var entries []payment.AuditEntry
	if err := json.Unmarshal(env.Data, &entries); err != nil {
		t.Fatalf("decode audit: %v", err)
	}
	if len(entries) < 2 {
		t.Errorf("audit entries = %d, want at least 2", len(entries))
	}
}

func TestStripeWebhookRejectsBadSignature(t *testing.T) {
	a := newAPI(t)
	placed := a.placeOrder(7, "cart-1")
	body := stripeEvent("evt_1", "payment_intent.succeeded", placed.ID, "pi_1", placed.Total)

	w, _ := a.do(http.MethodPost, "/api/v1/webhooks/stripe", "", body, map[string]string{
		"Stripe-Signature": payment.SignStripe("whsec_wrong", body, time.Now()),
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status %d, want 400", w.Code)
	}

	o, err := a.orders.GetByNumber(context.Background(), placed.OrderNumber)
	if err != nil {
		t.Fatalf("GetByNumber: %v", err)
	}
	if o.PaymentStatus != order.PaymentStatusPending {
		t.Errorf("payment status = %s, want pending", o.PaymentStatus)
	}
}

func TestWebhookRoutingEdgeCases(t *testing.T) {
	a := newAPI(t)

	w, _ := a.do(http.MethodPost, "/api/v1/webhooks/paypal", "", []byte(`{}`), nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("unconfigured provider: status %d, want 404", w.Code)
	}

	w, env := a.deliverStripe([]byte(`{"id":"evt_x","type":"customer.created","data":{"object":{}}}`))
	if w.Code != http.StatusOK || env.Status != "ignored" {
		t.Errorf("unsupported event: status %d outcome %q, want 200 ignored", w.Code, env.Status)
	}

	w, env = a.deliverStripe(stripeEvent("evt_y", "payment_intent.succeeded", "missing-order", "pi_9", 100))
	if w.Code != http.StatusOK || env.Status != string(payment.OutcomeUnknownOrder) {
		t.Errorf("unknown order: status %d outcome %q, want 200 unknown_order", w.Code, env.Status)
	}
}

func TestAdminLifecycle(t *testing.T) {
	a := newAPI(t)
	admin := a.token(1, true)
	placed := a.placeOrder(7, "cart-1")
	base := "/api/v1/admin/orders/" + placed.OrderNumber

	// refunds need a paid order
	w, _ := a.do(http.MethodPost, base+"/refund", admin, gin.H{"amount": 100, "reason": "early"}, nil)
	if w.Code != http.StatusConflict {
		t.Errorf("refund unpaid: status %d, want 409", w.Code)
	}

	if w, _ := a.deliverStripe(stripeEvent("evt_1", "payment_intent.succeeded", placed.ID, "pi_1", placed.Total)); w.Code != http.StatusOK {
		t.Fatalf("webhook: status %d", w.Code)
	}

	w, env := a.do(http.MethodPost, base+"/tracking", admin, gin.H{"tracking_number": "1Z999", "courier_name": "UPS"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("tracking: status %d (%s)", w.Code, w.Body.String())
	}
	if got := decodeOrder(t, env).Status; got != string(order.OrderStatusShipped) {
		t.Errorf("status after tracking = %s, want shipped", got)
	}

	w, _ = a.do(http.MethodPut, base+"/status", admin, gin.H{"status": "pending"}, nil)
	if w.Code != http.StatusConflict {
		t.Errorf("shipped -> pending: status %d, want 409", w.Code)
	}
	w, env = a.do(http.MethodGet, base, admin, nil, nil)
	if got := decodeOrder(t, env).Status; w.Code != http.StatusOK || got != string(order.OrderStatusShipped) {
		t.Errorf("order after rejected transition = %s, want shipped", got)
	}

	w, _ = a.do(http.MethodPut, base+"/status", admin, gin.H{"status": "teleported"}, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown status: status %d, want 400", w.Code)
	}

	w, _ = a.do(http.MethodPost, base+"/refund", admin, gin.H{"amount": placed.Total + 1, "reason": "too much"}, nil)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("refund over total: status %d, want 422", w.Code)
	}

	w, env = a.do(http.MethodPost, base+"/refund", admin, gin.H{"amount": placed.Total, "reason": "damaged"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("full refund: status %d (%s)", w.Code, w.Body.String())
	}
	if got := decodeOrder(t, env).PaymentStatus; got != string(order.PaymentStatusRefunded) {
		t.Errorf("payment status = %s, want refunded", got)
	}

	w, env = a.do(http.MethodPost, base+"/deliver", admin, nil, nil)
	if w.Code != http.StatusOK || decodeOrder(t, env).Status != string(order.OrderStatusDelivered) {
		t.Errorf("deliver: status %d (%s)", w.Code, w.Body.String())
	}
}

func TestInvoiceRequiresOwner(t *testing.T) {
	a := newAPI(t)
	placed := a.placeOrder(7, "cart-1")

	w, _ := a.do(http.MethodGet, "/api/v1/orders/"+placed.OrderNumber+"/invoice", a.token(8, false), nil, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("foreign invoice: status %d, want 404", w.Code)
	}

	w, _ = a.do(http.MethodGet, "/api/v1/orders/"+placed.OrderNumber+"/invoice", a.token(7, false), nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("invoice: status %d (%s)", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("content type = %q, want application/pdf", ct)
	}
}

func TestCouponValidateAndAdmin(t *testing.T) {
	a := newAPI(t)
	customer := a.token(7, false)
	admin := a.token(1, true)

	w, env := a.do(http.MethodPost, "/api/v1/coupons/validate", customer, gin.H{"code": "save10", "subtotal": 10000}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("validate: status %d (%s)", w.Code, w.Body.String())
	}
	var eval coupon.Evaluation
	if err := json.Unmarshal(env.Data, &eval); err != nil {
		t.Fatalf("decode evaluation: %v", err)
	}
	if eval.DiscountAmount != 1000 {
		t.Errorf("discount = %d, want 1000", eval.DiscountAmount)
	}

	w, _ = a.do(http.MethodPost, "/api/v1/coupons/validate", customer, gin.H{"code": "MISSING", "subtotal": 100}, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing coupon: status %d, want 404", w.Code)
	}

	create := gin.H{
		"code":           "flat5",
		"discount_type":  "fixed",
		"discount_value": "500",
		"valid_until":    time.Now().AddDate(0, 1, 0).Format(time.RFC3339),
	}
	if w, _ := a.do(http.MethodPost, "/api/v1/admin/coupons", admin, create, nil); w.Code != http.StatusCreated {
		t.Fatalf("create: status %d (%s)", w.Code, w.Body.String())
	}
	if w, _ := a.do(http.MethodPost, "/api/v1/admin/coupons", admin, create, nil); w.Code != http.StatusConflict {
		t.Errorf("duplicate create: status %d, want 409", w.Code)
	}
	if w, _ := a.do(http.MethodDelete, "/api/v1/admin/coupons/FLAT5", admin, nil, nil); w.Code != http.StatusOK {
		t.Errorf("deactivate: status %d", w.Code)
	}
}

func TestInventoryAdmin(t *testing.T) {
	a := newAPI(t)
	admin := a.token(1, true)
	a.placeOrder(7, "cart-1")

	w, env := a.do(http.MethodPost, "/api/v1/admin/inventory/A/restock", admin, gin.H{"quantity": 10, "reference": "PO-1"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("restock: status %d (%s)", w.Code, w.Body.String())
	}
	var level inventory.StockLevel
	if err := json.Unmarshal(env.Data, &level); err != nil {
		t.Fatalf("decode level: %v", err)
	}
	if level.Stock != 13 {
		t.Errorf("stock = %d, want 13", level.Stock)
	}

	w, _ = a.do(http.MethodPost, "/api/v1/admin/inventory/A/restock", admin, gin.H{"quantity": 0}, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("zero restock: status %d, want 400", w.Code)
	}

	w, _ = a.do(http.MethodGet, "/api/v1/admin/inventory/NOPE", admin, nil, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown sku: status %d, want 404", w.Code)
	}

	w, env = a.do(http.MethodGet, "/api/v1/admin/inventory/A/movements", admin, nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("movements: status %d", w.Code)
	}
	var moves []inventory.StockMovement
	if err := json.Unmarshal(env.Data, &moves); err != nil {
		t.Fatalf("decode movements: %v", err)
	}
	if len(moves) != 2 {
		t.Errorf("movements = %d, want 2 (reservation and restock)", len(moves))
	}
}

func TestSalesReport(t *testing.T) {
	a := newAPI(t)
	placed := a.placeOrder(7, "cart-1")
	if w, _ := a.deliverStripe(stripeEvent("evt_1", "payment_intent.succeeded", placed.ID, "pi_1", placed.Total)); w.Code != http.StatusOK {
		t.Fatalf("webhook: status %d", w.Code)
	}
	a.placeOrder(8, "cart-2")

	w, env := a.do(http.MethodGet, "/api/v1/admin/reports/sales?days=7", a.token(1, true), nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("report: status %d (%s)", w.Code, w.Body.String())
	}
	var report analytics.SalesReport
	if err := json.Unmarshal(env.Data, &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Days != 7 || report.TotalOrders != 2 || report.TotalSales != 1 || report.TotalRevenue != placed.Total {
		t.Errorf("report = %+v", report)
	}

	if w, _ := a.do(http.MethodGet, "/api/v1/admin/reports/sales", a.token(7, false), nil, nil); w.Code != http.StatusForbidden {
		t.Errorf("customer: status %d, want 403", w.Code)
	}
}

func TestCatalog(t *testing.T) {
	a := newAPI(t)
	admin := a.token(1, true)

	w, env := a.do(http.MethodPost, "/api/v1/admin/products", admin, gin.H{"sku": " b-1 ", "name": "Bolt", "price": 150}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: status %d (%s)", w.Code, w.Body.String())
	}
	var created product.Product
	if err := json.Unmarshal(env.Data, &created); err != nil {
		t.Fatalf("decode product: %v", err)
	}
	if created.SKU != "B-1" || created.Stock != 0 || !created.IsActive {
		t.Errorf("created = %+v", created)
	}

	w, _ = a.do(http.MethodPost, "/api/v1/admin/products", admin, gin.H{"sku": "B-1", "name": "Again", "price": 1}, nil)
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate sku: status %d, want 409", w.Code)
	}
	w, _ = a.do(http.MethodPost, "/api/v1/admin/products", a.token(7, false), gin.H{"sku": "C", "name": "C", "price": 1}, nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("customer create: status %d, want 403", w.Code)
	}

	w, _ = a.do(http.MethodPatch, "/api/v1/admin/products/b-1", admin, gin.H{"is_active": false}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("deactivate: status %d (%s)", w.Code, w.Body.String())
	}
	w, _ = a.do(http.MethodPatch, "/api/v1/admin/products/b-1", admin, gin.H{}, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty update: status %d, want 400", w.Code)
	}

	w, _ = a.do(http.MethodGet, "/api/v1/products/B-1", "", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("inactive product: status %d, want 404", w.Code)
	}

	w, env = a.do(http.MethodGet, "/api/v1/products?sort_by=name&sort_order=asc", "", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: status %d", w.Code)
	}
	var page product.ProductResponse
	if err := json.Unmarshal(env.Data, &page); err != nil {
		t.Fatalf("decode page: %v", err)
	}
	if page.Total != 1 || page.Products[0].SKU != "A" {
		t.Errorf("public list = %+v", page)
	}

	_, env = a.do(http.MethodGet, "/api/v1/admin/products", admin, nil, nil)
	if err := json.Unmarshal(env.Data, &page); err != nil {
		t.Fatalf("decode admin page: %v", err)
	}
	if page.Total != 2 {
		t.Errorf("admin list total = %d, want 2", page.Total)
	}
}
