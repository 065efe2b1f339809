package checkout

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func rules(tax string) PricingRules {
	return PricingRules{
		Currency:              "USD",
		TaxRatePercent:        decimal.RequireFromString(tax),
		StandardShipping:      599,
		ExpressShipping:       1499,
		FreeShippingThreshold: 5000,
	}
}

func TestPrice(t *testing.T) {
	tests := []struct {
		name     string
		rules    PricingRules
		subtotal int64
		discount int64
		method   ShippingMethod
		want     Totals
	}{
		{
			name:     "standard below threshold",
			rules:    rules("8.25"),
			subtotal: 2000,
			method:   ShippingStandard,
			want:     Totals{Subtotal: 2000, Tax: 165, Shipping: 599, Total: 2764},
		},
		{
			name:     "free standard at threshold",
			rules:    rules("0"),
			subtotal: 5000,
			discount: 500,
			method:   ShippingStandard,
			want:     Totals{Subtotal: 5000, Discount: 500, Shipping: 0, Total: 4500},
		},
		{
			name:     "express always charged",
			rules:    rules("0"),
			subtotal: 9000,
			method:   ShippingExpress,
			want:     Totals{Subtotal: 9000, Shipping: 1499, Total: 10499},
		},
		{
			name:     "tax on discounted subtotal rounds half up",
			rules:    rules("10"),
			subtotal: 1010,
			discount: 5,
			method:   ShippingExpress,
			want:     Totals{Subtotal: 1010, Discount: 5, Tax: 101, Shipping: 1499, Total: 2605},
		},
		{
			name:     "discount clamped to subtotal",
			rules:    rules("10"),
			subtotal: 1000,
			discount: 3000,
			method:   ShippingStandard,
			want:     Totals{Subtotal: 1000, Discount: 1000, Tax: 0, Shipping: 599, Total: 599},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.rules.Price(tt.subtotal, tt.discount, tt.method)
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
			if got.Total != got.Subtotal+got.Tax+got.Shipping-got.Discount {
				t.Errorf("totals do not add up: %+v", got)
			}
		})
	}
}

func TestTaxRounding(t *testing.T) {
	r := rules("7.5")
	// 1234 * 7.5% = 92.55
	if got := r.Tax(1234); got != 93 {
		t.Errorf("Tax(1234) = %d, want 93", got)
	}
	// 1230 * 7.5% = 92.25
	if got := r.Tax(1230); got != 92 {
		t.Errorf("Tax(1230) = %d, want 92", got)
	}
}

func TestParseShippingMethod(t *testing.T) {
	for in, want := range map[string]ShippingMethod{"": ShippingStandard, "Express": ShippingExpress, " standard ": ShippingStandard} {
		got, err := ParseShippingMethod(in)
		if err != nil || got != want {
			t.Errorf("ParseShippingMethod(%q) = %s, %v", in, got, err)
		}
	}
	if _, err := ParseShippingMethod("drone"); !errors.Is(err, ErrInvalidShippingMethod) {
		t.Errorf("expected ErrInvalidShippingMethod, got %v", err)
	}
}
