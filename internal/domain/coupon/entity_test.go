package coupon

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func activeCoupon(t DiscountType, value string) *Coupon {
	return &Coupon{
		Code:          "TEST",
		DiscountType:  t,
		DiscountValue: decimal.RequireFromString(value),
		ValidFrom:     now.Add(-24 * time.Hour),
		ValidUntil:    now.Add(24 * time.Hour),
		IsActive:      true,
	}
}

func TestCalculateDiscount(t *testing.T) {
	tests := []struct {
		name     string
		coupon   *Coupon
		subtotal int64
		want     int64
	}{
		{
			name: "percentage capped by max discount",
			coupon: func() *Coupon {
				c := activeCoupon(DiscountTypePercentage, "50")
				c.MaxDiscountAmount = ptr(int64(2000))
				return c
			}(),
			subtotal: 10000,
			want:     2000,
		},
		{
			name:     "percentage without cap",
			coupon:   activeCoupon(DiscountTypePercentage, "50"),
			subtotal: 10000,
			want:     5000,
		},
		{
			name:     "fixed clamped to subtotal",
			coupon:   activeCoupon(DiscountTypeFixed, "3000"),
			subtotal: 1000,
			want:     1000,
		},
		{
			name:     "fixed below subtotal",
			coupon:   activeCoupon(DiscountTypeFixed, "500"),
			subtotal: 2000,
			want:     500,
		},
		{
			name:     "percentage rounds half up",
			coupon:   activeCoupon(DiscountTypePercentage, "12.5"),
			subtotal: 1004,
			want:     126,
		},
		{
			name:     "percentage rounds down below half",
			coupon:   activeCoupon(DiscountTypePercentage, "10"),
			subtotal: 1004,
			want:     100,
		},
		{
			name: "below minimum order value",
			coupon: func() *Coupon {
				c := activeCoupon(DiscountTypeFixed, "500")
				c.MinOrderValue = ptr(int64(5000))
				return c
			}(),
			subtotal: 4999,
			want:     0,
		},
		{
			name: "inactive coupon",
			coupon: func() *Coupon {
				c := activeCoupon(DiscountTypeFixed, "500")
				c.IsActive = false
				return c
			}(),
			subtotal: 2000,
			want:     0,
		},
		{
			name: "expired coupon",
			coupon: func() *Coupon {
				c := activeCoupon(DiscountTypeFixed, "500")
				c.ValidUntil = now
				return c
			}(),
			subtotal: 2000,
			want:     0,
		},
		{
			name:     "zero subtotal",
			coupon:   activeCoupon(DiscountTypePercentage, "10"),
			subtotal: 0,
			want:     0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.coupon.CalculateDiscount(now, tt.subtotal)
			if got != tt.want {
				t.Errorf("CalculateDiscount(%d) = %d, want %d", tt.subtotal, got, tt.want)
			}
		})
	}
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Coupon)
		want   bool
	}{
		{name: "active inside window", mutate: func(c *Coupon) {}, want: true},
		{name: "inactive", mutate: func(c *Coupon) { c.IsActive = false }},
		{name: "starts exactly now", mutate: func(c *Coupon) { c.ValidFrom = now }, want: true},
		{name: "not started", mutate: func(c *Coupon) { c.ValidFrom = now.Add(time.Second) }},
		{name: "ends exactly now", mutate: func(c *Coupon) { c.ValidUntil = now }},
		{name: "usage below limit", mutate: func(c *Coupon) {
			c.UsageLimit = ptr(3)
			c.UsageCount = 2
		}, want: true},
		{name: "usage at limit", mutate: func(c *Coupon) {
			c.UsageLimit = ptr(3)
			c.UsageCount = 3
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := activeCoupon(DiscountTypeFixed, "100")
			tt.mutate(c)
			if got := c.IsValid(now); got != tt.want {
				t.Errorf("IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCanBeUsedBy(t *testing.T) {
	c := activeCoupon(DiscountTypeFixed, "100")
	c.UsagePerCustomer = ptr(1)

	if !c.CanBeUsedBy(now, 0) {
		t.Error("expected first use to be allowed")
	}
	if c.CanBeUsedBy(now, 1) {
		t.Error("expected second use to be refused")
	}
}

func TestCheckReasons(t *testing.T) {
	c := activeCoupon(DiscountTypeFixed, "100")
	c.MinOrderValue = ptr(int64(1000))
	c.UsagePerCustomer = ptr(2)

	if reason := c.Check(now, 999, 0); reason != ReasonBelowMinimum {
		t.Errorf("expected %q, got %q", ReasonBelowMinimum, reason)
	}
	if reason := c.Check(now, 1000, 2); reason != ReasonCustomerLimit {
		t.Errorf("expected %q, got %q", ReasonCustomerLimit, reason)
	}
	if reason := c.Check(now.Add(48*time.Hour), 1000, 0); reason != ReasonExpired {
		t.Errorf("expected %q, got %q", ReasonExpired, reason)
	}
	if reason := c.Check(now, 1000, 1); reason != "" {
		t.Errorf("expected coupon to apply, got %q", reason)
	}
}

func TestNewCoupon(t *testing.T) {
	base := func() CreateRequest {
		return CreateRequest{
			Code:          " save10 ",
			DiscountType:  "fixed",
			DiscountValue: decimal.NewFromInt(500),
			ValidUntil:    now.Add(24 * time.Hour),
		}
	}

	t.Run("normalizes code and defaults", func(t *testing.T) {
		c, err := NewCoupon(base(), now)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c.Code != "SAVE10" {
			t.Errorf("expected SAVE10, got %s", c.Code)
		}
		if !c.ValidFrom.Equal(now) {
			t.Errorf("expected valid_from to default to now, got %s", c.ValidFrom)
		}
		if !c.IsActive {
			t.Error("expected coupon to be active by default")
		}
	})

	invalid := []struct {
		name   string
		mutate func(r *CreateRequest)
	}{
		{name: "short code", mutate: func(r *CreateRequest) { r.Code = "AB" }},
		{name: "bad characters", mutate: func(r *CreateRequest) { r.Code = "SAVE 10" }},
		{name: "unknown type", mutate: func(r *CreateRequest) { r.DiscountType = "bogo" }},
		{name: "negative value", mutate: func(r *CreateRequest) { r.DiscountValue = decimal.NewFromInt(-1) }},
		{name: "percentage over 100", mutate: func(r *CreateRequest) {
			r.DiscountType = "percentage"
			r.DiscountValue = decimal.NewFromInt(101)
		}},
		{name: "fractional fixed", mutate: func(r *CreateRequest) { r.DiscountValue = decimal.RequireFromString("10.5") }},
		{name: "window reversed", mutate: func(r *CreateRequest) { r.ValidFrom = now.Add(48 * time.Hour) }},
		{name: "window empty", mutate: func(r *CreateRequest) {
			r.ValidFrom = now
			r.ValidUntil = now
		}},
		{name: "negative usage limit", mutate: func(r *CreateRequest) { r.UsageLimit = ptr(-1) }},
	}

	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			req := base()
			tt.mutate(&req)
			_, err := NewCoupon(req, now)
			if !errors.Is(err, ErrInvalidCoupon) {
				t.Fatalf("expected ErrInvalidCoupon, got %v", err)
			}
		})
	}
}

func TestParseDiscountType(t *testing.T) {
	if got, err := ParseDiscountType("Percentage"); err != nil || got != DiscountTypePercentage {
		t.Errorf("expected percentage, got %q (%v)", got, err)
	}
	if _, err := ParseDiscountType("fixed_amount"); err == nil {
		t.Error("expected error for unknown type")
	}
}
