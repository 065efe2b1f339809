// internal/domain/order/entity.go
package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/your-org/storefront-orders/internal/domain/inventory"
)

// OrderStatus represents the fulfilment status of an order
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusReturned   OrderStatus = "returned"
)

// PaymentStatus represents the payment status
type PaymentStatus string

const (
	PaymentStatusPending           PaymentStatus = "pending"
	PaymentStatusPaid              PaymentStatus = "paid"
	PaymentStatusFailed            PaymentStatus = "failed"
	PaymentStatusRefunded          PaymentStatus = "refunded"
	PaymentStatusPartiallyRefunded PaymentStatus = "partially_refunded"
)

// PaymentMethod is the provider chosen at checkout. It never changes afterwards.
type PaymentMethod string

const (
	PaymentMethodStripe     PaymentMethod = "stripe"
	PaymentMethodPaypal     PaymentMethod = "paypal"
	PaymentMethodSSLCommerz PaymentMethod = "sslcommerz"
	PaymentMethodRazorpay   PaymentMethod = "razorpay"
	PaymentMethodCOD        PaymentMethod = "cod"
)

var (
	orderStatuses = []OrderStatus{
		OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled, OrderStatusReturned,
	}
	paymentStatuses = []PaymentStatus{
		PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed,
		PaymentStatusRefunded, PaymentStatusPartiallyRefunded,
	}
	paymentMethods = []PaymentMethod{
		PaymentMethodStripe, PaymentMethodPaypal, PaymentMethodSSLCommerz,
		PaymentMethodRazorpay, PaymentMethodCOD,
	}
)

// ParseOrderStatus validates a raw order status
func ParseOrderStatus(s string) (OrderStatus, error) {
	st := OrderStatus(strings.ToLower(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("unknown order status %q", s)
	}
	return st, nil
}

// IsValid reports whether s is a known order status
func (s OrderStatus) IsValid() bool {
	for _, v := range orderStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// ParsePaymentStatus validates a raw payment status
func ParsePaymentStatus(s string) (PaymentStatus, error) {
	st := PaymentStatus(strings.ToLower(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("unknown payment status %q", s)
	}
	return st, nil
}

// IsValid reports whether s is a known payment status
func (s PaymentStatus) IsValid() bool {
	for _, v := range paymentStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// IsPaid reports whether money was captured for the order at some point
func (s PaymentStatus) IsPaid() bool {
	return s == PaymentStatusPaid || s == PaymentStatusPartiallyRefunded || s == PaymentStatusRefunded
}

// ParsePaymentMethod validates a raw payment method
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	m := PaymentMethod(strings.ToLower(strings.TrimSpace(s)))
	if !m.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, s)
	}
	return m, nil
}

// IsValid reports whether m is a supported payment method
func (m PaymentMethod) IsValid() bool {
	for _, v := range paymentMethods {
		if m == v {
			return true
		}
	}
	return false
}

// Address is a postal address copied onto the order
type Address struct {
	Name    string `json:"name" gorm:"size:100"`
	Phone   string `json:"phone" gorm:"size:30"`
	Street  string `json:"street" gorm:"size:255"`
	City    string `json:"city" gorm:"size:100"`
	State   string `json:"state" gorm:"size:100"`
	Zip     string `json:"zip" gorm:"size:20"`
	Country string `json:"country" gorm:"size:100"`
}

// Validate checks that every field is present. kind names the address in the error.
func (a Address) Validate(kind string) error {
	fields := []struct {
		name  string
		value string
	}{
		{"name", a.Name},
		{"phone", a.Phone},
		{"street", a.Street},
		{"city", a.City},
		{"state", a.State},
		{"zip", a.Zip},
		{"country", a.Country},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return &InvalidAddressError{Address: kind, Field: f.name}
		}
	}
	return nil
}

// Order represents a placed order
type Order struct {
	ID             string        `json:"id" gorm:"primaryKey;type:uuid"`
	OrderNumber    string        `json:"order_number" gorm:"uniqueIndex;size:32;not null"`
	CustomerID     uint          `json:"customer_id" gorm:"index;not null"`
	CustomerEmail  string        `json:"customer_email" gorm:"size:255"`
	CartKey        string        `json:"-" gorm:"uniqueIndex;size:100;not null"`
	Status         OrderStatus   `json:"status" gorm:"size:20;not null;index"`
	PaymentStatus  PaymentStatus `json:"payment_status" gorm:"size:30;not null;index"`
	PaymentMethod  PaymentMethod `json:"payment_method" gorm:"size:20;not null"`
	PaymentID      string        `json:"payment_id,omitempty" gorm:"size:255;index"`
	ShippingMethod string        `json:"shipping_method" gorm:"size:20"`

	// Amounts in cents
	Subtotal int64  `json:"subtotal" gorm:"not null"`
	Tax      int64  `json:"tax" gorm:"not null"`
	Shipping int64  `json:"shipping" gorm:"not null"`
	Discount int64  `json:"discount" gorm:"not null"`
	Total    int64  `json:"total" gorm:"not null"`
	Currency string `json:"currency" gorm:"size:3"`

	CouponCode string `json:"coupon_code,omitempty" gorm:"size:50;index"`

	ShippingAddress Address `json:"shipping_address" gorm:"embedded;embeddedPrefix:shipping_"`
	BillingAddress  Address `json:"billing_address" gorm:"embedded;embeddedPrefix:billing_"`

	TrackingNumber    string     `json:"tracking_number,omitempty" gorm:"size:100"`
	TrackingURL       string     `json:"tracking_url,omitempty" gorm:"size:500"`
	CourierName       string     `json:"courier_name,omitempty" gorm:"size:100"`
	EstimatedDelivery *time.Time `json:"estimated_delivery,omitempty"`
	ShippedAt         *time.Time `json:"shipped_at,omitempty"`
	DeliveredAt       *time.Time `json:"delivered_at,omitempty"`

	RefundAmount int64      `json:"refund_amount" gorm:"not null;default:0"`
	RefundReason string     `json:"refund_reason,omitempty" gorm:"type:text"`
	RefundedAt   *time.Time `json:"refunded_at,omitempty"`

	CancelReason string     `json:"cancel_reason,omitempty" gorm:"type:text"`
	CancelledAt  *time.Time `json:"cancelled_at,omitempty"`

	Notes      string `json:"notes,omitempty" gorm:"type:text"`
	AdminNotes string `json:"admin_notes,omitempty" gorm:"type:text"`

	StockReleased bool `json:"-" gorm:"not null;default:false"`
	Version       int  `json:"-" gorm:"not null;default:1"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Items         []OrderItem     `json:"items" gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;"`
	StatusHistory []StatusHistory `json:"status_history,omitempty" gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;"`
}

// OrderItem is the snapshot of a product taken when the order was built
type OrderItem struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	OrderID   string `json:"order_id" gorm:"type:uuid;not null;index"`
	ProductID uint   `json:"product_id" gorm:"not null"`
	SKU       string `json:"sku" gorm:"size:100;not null"`
	Name      string `json:"name" gorm:"size:255;not null"`
	Image     string `json:"image,omitempty" gorm:"size:500"`
	Variant   string `json:"variant,omitempty" gorm:"size:100"`
	Quantity  int    `json:"quantity" gorm:"not null;check:quantity >= 1"`
	Price     int64  `json:"price" gorm:"not null;check:price >= 0"` // Unit price in cents
	Total     int64  `json:"total" gorm:"not null"`
}

// StatusHistory records every order status change
type StatusHistory struct {
	ID         uint        `json:"id" gorm:"primaryKey"`
	OrderID    string      `json:"order_id" gorm:"type:uuid;not null;index"`
	FromStatus OrderStatus `json:"from_status" gorm:"size:20"`
	ToStatus   OrderStatus `json:"to_status" gorm:"size:20;not null"`
	Note       string      `json:"note,omitempty" gorm:"type:text"`
	ChangedBy  string      `json:"changed_by" gorm:"size:100"`
	CreatedAt  time.Time   `json:"created_at"`
}

// TableName specifies the table name for Order
func (Order) TableName() string {
	return "orders"
}

// TableName specifies the table name for OrderItem
func (OrderItem) TableName() string {
	return "order_items"
}

// TableName specifies the table name for StatusHistory
func (StatusHistory) TableName() string {
	return "order_status_history"
}

// Tracking holds the carrier details added when an order ships
type Tracking struct {
	TrackingNumber    string     `json:"tracking_number" binding:"required"`
	TrackingURL       string     `json:"tracking_url"`
	CourierName       string     `json:"courier_name"`
	EstimatedDelivery *time.Time `json:"estimated_delivery"`
}

// Actor identifies who triggered a change
type Actor struct {
	UserID uint
	Admin  bool
	System string
}

// SystemActor returns an actor for automated changes such as payment webhooks
func SystemActor(name string) Actor {
	return Actor{System: name}
}

func (a Actor) String() string {
	switch {
	case a.System != "":
		return "system:" + a.System
	case a.Admin:
		return fmt.Sprintf("admin:%d", a.UserID)
	default:
		return fmt.Sprintf("customer:%d", a.UserID)
	}
}

// MaxOrderAmount bounds the subtotal of a single order in cents. Keeping
// amounts well below the int64 range means totals and refunds cannot wrap.
const MaxOrderAmount int64 = 1_000_000_000_000

// CalculateTotal applies total = subtotal + tax + shipping - discount
func CalculateTotal(subtotal, tax, shipping, discount int64) int64 {
	return subtotal + tax + shipping - discount
}

// TotalsConsistent reports whether the stored total matches its parts
func (o *Order) TotalsConsistent() bool {
	return o.Total == CalculateTotal(o.Subtotal, o.Tax, o.Shipping, o.Discount) &&
		o.Subtotal >= 0 && o.Tax >= 0 && o.Shipping >= 0 && o.Discount >= 0 && o.Total >= 0
}

// ReservationLines returns the stock lines held by this order
func (o *Order) ReservationLines() []inventory.Line {
	lines := make([]inventory.Line, 0, len(o.Items))
	for _, item := range o.Items {
		lines = append(lines, inventory.Line{SKU: item.SKU, Quantity: item.Quantity})
	}
	return lines
}

// IsOwnedBy reports whether customerID placed the order
func (o *Order) IsOwnedBy(customerID uint) bool {
	return o.CustomerID == customerID
}

// Clone returns a deep copy so transitions never share slices with their input
func (o Order) Clone() Order {
	c := o
	if o.Items != nil {
		c.Items = append([]OrderItem(nil), o.Items...)
	}
	if o.StatusHistory != nil {
		c.StatusHistory = append([]StatusHistory(nil), o.StatusHistory...)
	}
	if o.EstimatedDelivery != nil {
		t := *o.EstimatedDelivery
		c.EstimatedDelivery = &t
	}
	c.ShippedAt = copyTime(o.ShippedAt)
	c.DeliveredAt = copyTime(o.DeliveredAt)
	c.RefundedAt = copyTime(o.RefundedAt)
	c.CancelledAt = copyTime(o.CancelledAt)
	return c
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
