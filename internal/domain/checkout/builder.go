// internal/domain/checkout/builder.go
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/your-org/storefront-orders/internal/domain/coupon"
	"github.com/your-org/storefront-orders/internal/domain/inventory"
	"github.com/your-org/storefront-orders/internal/domain/order"
	"github.com/your-org/storefront-orders/internal/domain/product"
	"github.com/your-org/storefront-orders/internal/telemetry"
)

const maxOrderNumberAttempts = 3

// CouponEngine prices and redeems coupon codes
type CouponEngine interface {
	EvaluateForCustomer(ctx context.Context, code string, subtotal int64, customerID uint) (*coupon.Evaluation, error)
	IncrementUsage(ctx context.Context, code string) error
}

// StockLedger reserves and releases stock for a whole order
type StockLedger interface {
	ReserveAll(ctx context.Context, reference string, lines []inventory.Line) error
	ReleaseAll(ctx context.Context, reference string, lines []inventory.Line) error
}

// OrderStore persists new orders
type OrderStore interface {
	Create(ctx context.Context, o *order.Order) error
}

// CartLine is one line of the submitted cart. Price is what the client showed
// and is only compared against the catalog, never charged.
type CartLine struct {
	SKU      string `json:"sku" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,min=1,max=10000"`
	Variant  string `json:"variant"`
	Price    *int64 `json:"price,omitempty"`
}

// BuildRequest is everything needed to place an order
type BuildRequest struct {
	CustomerID      uint
	CustomerEmail   string
	CartKey         string
	Lines           []CartLine
	ShippingAddress order.Address
	BillingAddress  order.Address
	PaymentMethod   string
	ShippingMethod  string
	CouponCode      string
	Notes           string
}

// QuoteRequest prices a cart without reserving anything
type QuoteRequest struct {
	CustomerID     uint
	Lines          []CartLine
	ShippingMethod string
	CouponCode     string
}

// Quote is a priced cart
type Quote struct {
	Items  []order.OrderItem  `json:"items"`
	Totals Totals             `json:"totals"`
	Coupon *coupon.Evaluation `json:"coupon,omitempty"`
}

// Builder turns a cart into a pending order
type Builder struct {
	catalog  product.Catalog
	coupons  CouponEngine
	ledger   StockLedger
	orders   OrderStore
	sequence order.Sequencer
	guard    Guard
	rules    PricingRules
	metrics  *telemetry.Metrics
	logger   logrus.FieldLogger
	now      func() time.Time
	newID    func() string
}

// NewBuilder creates a new order builder
func NewBuilder(
	catalog product.Catalog,
	coupons CouponEngine,
	ledger StockLedger,
	orders OrderStore,
	sequence order.Sequencer,
	guard Guard,
	rules PricingRules,
	metrics *telemetry.Metrics,
	logger logrus.FieldLogger,
) *Builder {
	return &Builder{
		catalog:  catalog,
		coupons:  coupons,
		ledger:   ledger,
		orders:   orders,
		sequence: sequence,
		guard:    guard,
		rules:    rules,
		metrics:  metrics,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
}

// WithClock replaces the time source
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Quote prices a cart with the current catalog, coupon and store rules
func (b *Builder) Quote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	lines, err := validateLines(req.Lines)
	if err != nil {
		return nil, err
	}
	method, err := ParseShippingMethod(req.ShippingMethod)
	if err != nil {
		return nil, err
	}
	return b.price(ctx, req.CustomerID, lines, method, req.CouponCode)
}

// Build places an order. Each step may abort the build; when it does nothing
// stays reserved and no order exists.
func (b *Builder) Build(ctx context.Context, req BuildRequest) (*order.Order, error) {
	start := time.Now()
	ctx, span := telemetry.StartSpan(ctx, "checkout.build",
		attribute.Int("customer_id", int(req.CustomerID)),
		attribute.Int("lines", len(req.Lines)),
	)

	o, err := b.build(ctx, req)

	telemetry.EndSpan(span, err)
	b.metrics.RecordCheckout(ctx, outcome(err), time.Since(start))
	return o, err
}

func (b *Builder) build(ctx context.Context, req BuildRequest) (*order.Order, error) {
	if req.CustomerID == 0 {
		return nil, ErrMissingCustomer
	}
	lines, err := validateLines(req.Lines)
	if err != nil {
		return nil, err
	}
	if err := req.ShippingAddress.Validate("shipping"); err != nil {
		return nil, err
	}
	if err := req.BillingAddress.Validate("billing"); err != nil {
		return nil, err
	}
	paymentMethod, err := order.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		return nil, err
	}
	shippingMethod, err := ParseShippingMethod(req.ShippingMethod)
	if err != nil {
		return nil, err
	}

	cartKey := strings.TrimSpace(req.CartKey)
	if cartKey == "" {
		cartKey = b.newID()
	}
	if err := b.guard.Begin(ctx, cartKey); err != nil {
		return nil, err
	}
	placed := false
	defer func() {
		if placed {
			return
		}
		if err := b.guard.Abort(context.WithoutCancel(ctx), cartKey); err != nil {
			b.logger.WithField("cart_key", cartKey).WithError(err).Error("failed to release checkout guard")
		}
	}()

	// Steps 1-3: reprice, coupon, tax and shipping.
	quote, err := b.price(ctx, req.CustomerID, lines, shippingMethod, req.CouponCode)
	if err != nil {
		return nil, err
	}

	now := b.now()
	o := &order.Order{
		ID:              b.newID(),
		CustomerID:      req.CustomerID,
		CustomerEmail:   req.CustomerEmail,
		CartKey:         cartKey,
		Status:          order.OrderStatusPending,
		PaymentStatus:   order.PaymentStatusPending,
		PaymentMethod:   paymentMethod,
		ShippingMethod:  string(shippingMethod),
		Subtotal:        quote.Totals.Subtotal,
		Discount:        quote.Totals.Discount,
		Tax:             quote.Totals.Tax,
		Shipping:        quote.Totals.Shipping,
		Total:           quote.Totals.Total,
		Currency:        b.rules.Currency,
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  req.BillingAddress,
		Notes:           strings.TrimSpace(req.Notes),
		Items:           quote.Items,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if quote.Coupon != nil {
		o.CouponCode = quote.Coupon.Code
	}
	o.StatusHistory = []order.StatusHistory{{
		OrderID:   o.ID,
		ToStatus:  order.OrderStatusPending,
		Note:      "order placed",
		ChangedBy: order.Actor{UserID: req.CustomerID}.String(),
		CreatedAt: now,
	}}

	if !o.TotalsConsistent() {
		b.logger.WithFields(logrus.Fields{
			"subtotal": o.Subtotal,
			"discount": o.Discount,
			"tax":      o.Tax,
			"shipping": o.Shipping,
			"total":    o.Total,
		}).Error("refusing to place order with inconsistent totals")
		return nil, ErrInconsistentTotals
	}

	// Step 4: reserve every line as one unit.
	reservation := o.ReservationLines()
	if err := b.ledger.ReserveAll(ctx, o.ID, reservation); err != nil {
		return nil, err
	}

	// Steps 5-6: number and persist; give the stock back if that fails.
	if err := b.persist(ctx, o); err != nil {
		if rerr := b.ledger.ReleaseAll(context.WithoutCancel(ctx), o.ID, reservation); rerr != nil {
			b.logger.WithFields(logrus.Fields{
				"order_id": o.ID,
				"error":    rerr.Error(),
			}).Error("failed to release stock after order persistence failed; manual stock correction required")
		}
		if errors.Is(err, order.ErrDuplicateCart) {
			return nil, &CheckedOutError{}
		}
		return nil, err
	}
	placed = true

	// Step 7: the order exists, so the redemption counts.
	if o.CouponCode != "" {
		if err := b.coupons.IncrementUsage(context.WithoutCancel(ctx), o.CouponCode); err != nil {
			b.logger.WithFields(logrus.Fields{
				"order_number": o.OrderNumber,
				"coupon":       o.CouponCode,
				"error":        err.Error(),
			}).Error("failed to record coupon usage")
		}
	}

	if err := b.guard.Complete(context.WithoutCancel(ctx), cartKey, o.OrderNumber); err != nil {
		b.logger.WithField("order_number", o.OrderNumber).WithError(err).Error("failed to mark cart as checked out")
	}

	b.logger.WithFields(logrus.Fields{
		"order_number":   o.OrderNumber,
		"customer_id":    o.CustomerID,
		"total":          o.Total,
		"payment_method": o.PaymentMethod,
		"coupon":         o.CouponCode,
	}).Info("order placed")
	return o, nil
}

// persist assigns the next order number and stores the order, drawing a new
// number when the previous one is already taken.
func (b *Builder) persist(ctx context.Context, o *order.Order) error {
	var err error
	for attempt := 1; attempt <= maxOrderNumberAttempts; attempt++ {
		o.OrderNumber, err = order.NextOrderNumber(ctx, b.sequence, o.CreatedAt.Year())
		if err != nil {
			return err
		}
		err = b.orders.Create(ctx, o)
		if err == nil {
			return nil
		}
		if !errors.Is(err, order.ErrDuplicateOrderNumber) {
			break
		}
		b.logger.WithField("order_number", o.OrderNumber).Warn("order number collision, drawing another")
	}
	if errors.Is(err, order.ErrDuplicateCart) {
		return err
	}
	return fmt.Errorf("failed to persist order: %w", err)
}

// price reprices lines from the catalog and applies coupon, tax and shipping
func (b *Builder) price(ctx context.Context, customerID uint, lines []CartLine, method ShippingMethod, couponCode string) (*Quote, error) {
	skus := make([]string, 0, len(lines))
	for _, l := range lines {
		skus = append(skus, l.SKU)
	}
	products, err := b.catalog.GetBySKUs(ctx, skus)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}

	items := make([]order.OrderItem, 0, len(lines))
	var subtotal int64
	for _, l := range lines {
		p, ok := products[l.SKU]
		if !ok || !p.IsPurchasable() {
			return nil, &UnavailableProductError{SKU: l.SKU}
		}
		if l.Price != nil && *l.Price != p.Price {
			b.logger.WithFields(logrus.Fields{
				"sku":           l.SKU,
				"cart_price":    *l.Price,
				"catalog_price": p.Price,
			}).Debug("cart price differs from catalog, using catalog price")
		}

		if p.Price > (order.MaxOrderAmount-subtotal)/int64(l.Quantity) {
			return nil, fmt.Errorf("%w: %d", ErrOrderTooLarge, order.MaxOrderAmount)
		}
		lineTotal := p.Price * int64(l.Quantity)
		items = append(items, order.OrderItem{
			ProductID: p.ID,
			SKU:       p.SKU,
			Name:      p.Name,
			Image:     p.Image,
			Variant:   l.Variant,
			Quantity:  l.Quantity,
			Price:     p.Price,
			Total:     lineTotal,
		})
		subtotal += lineTotal
	}

	var discount int64
	var evaluation *coupon.Evaluation
	if code := coupon.NormalizeCode(couponCode); code != "" {
		evaluation, err = b.coupons.EvaluateForCustomer(ctx, code, subtotal, customerID)
		if err != nil {
			var na *coupon.NotApplicableError
			switch {
			case errors.Is(err, coupon.ErrCouponNotFound):
				return nil, &CouponRejectedError{Code: code, Reason: "coupon not found"}
			case errors.As(err, &na):
				return nil, &CouponRejectedError{Code: code, Reason: na.Reason}
			default:
				return nil, fmt.Errorf("failed to evaluate coupon: %w", err)
			}
		}
		discount = evaluation.DiscountAmount
	}

	return &Quote{
		Items:  items,
		Totals: b.rules.Price(subtotal, discount, method),
		Coupon: evaluation,
	}, nil
}

func validateLines(lines []CartLine) ([]CartLine, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}
	out := make([]CartLine, 0, len(lines))
	for _, l := range lines {
		l.SKU = strings.TrimSpace(l.SKU)
		if l.SKU == "" {
			return nil, &UnavailableProductError{SKU: l.SKU}
		}
		if l.Quantity < 1 {
			return nil, fmt.Errorf("%w: %s", ErrInvalidQuantity, l.SKU)
		}
		if l.Quantity > inventory.MaxLineQuantity {
			return nil, fmt.Errorf("%w: %s (max %d)", inventory.ErrQuantityTooLarge, l.SKU, inventory.MaxLineQuantity)
		}
		out = append(out, l)
	}
	return out, nil
}

func outcome(err error) string {
	var (
		oos  *inventory.OutOfStockError
		addr *order.InvalidAddressError
	)
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &oos):
		return "out_of_stock"
	case errors.Is(err, ErrCouponRejected):
		return "coupon_rejected"
	case errors.As(err, &addr):
		return "invalid_address"
	case errors.Is(err, ErrCartAlreadyCheckedOut), errors.Is(err, ErrCheckoutInProgress):
		return "duplicate"
	case errors.Is(err, ErrEmptyCart), errors.Is(err, ErrInvalidQuantity),
		errors.Is(err, ErrProductUnavailable), errors.Is(err, ErrInvalidShippingMethod),
		errors.Is(err, order.ErrInvalidPaymentMethod), errors.Is(err, ErrMissingCustomer):
		return "invalid_request"
	default:
		return "error"
	}
}
