package checkout

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/your-org/storefront-orders/internal/config"
)

// ShippingMethod is a delivery option priced by the store rules
type ShippingMethod string

const (
	ShippingStandard ShippingMethod = "standard"
	ShippingExpress  ShippingMethod = "express"
)

// ParseShippingMethod validates a raw shipping method. Empty means standard.
func ParseShippingMethod(s string) (ShippingMethod, error) {
	switch m := ShippingMethod(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ShippingStandard, nil
	case ShippingStandard, ShippingExpress:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidShippingMethod, s)
	}
}

// PricingRules holds the store tax and shipping configuration. Amounts are cents.
type PricingRules struct {
	Currency              string
	TaxRatePercent        decimal.Decimal
	StandardShipping      int64
	ExpressShipping       int64
	FreeShippingThreshold int64 // 0 disables free shipping
}

// RulesFromConfig builds pricing rules from the store section
func RulesFromConfig(cfg *config.Config) PricingRules {
	return PricingRules{
		Currency:              cfg.Store.Currency,
		TaxRatePercent:        cfg.TaxRate(),
		StandardShipping:      cfg.Store.StandardShipping,
		ExpressShipping:       cfg.Store.ExpressShipping,
		FreeShippingThreshold: cfg.Store.FreeShippingThreshold,
	}
}

// Totals is the priced breakdown of an order
type Totals struct {
	Subtotal int64 `json:"subtotal"`
	Discount int64 `json:"discount"`
	Tax      int64 `json:"tax"`
	Shipping int64 `json:"shipping"`
	Total    int64 `json:"total"`
}

// Tax applies the flat rate to taxable, rounded half-up to the cent
func (r PricingRules) Tax(taxable int64) int64 {
	if taxable <= 0 || r.TaxRatePercent.IsZero() {
		return 0
	}
	return decimal.NewFromInt(taxable).
		Mul(r.TaxRatePercent).
		Div(decimal.NewFromInt(100)).
		Round(0).
		IntPart()
}

// Shipping prices method. Standard shipping is waived when subtotal reaches the threshold.
func (r PricingRules) Shipping(method ShippingMethod, subtotal int64) int64 {
	switch method {
	case ShippingExpress:
		return r.ExpressShipping
	default:
		if r.FreeShippingThreshold > 0 && subtotal >= r.FreeShippingThreshold {
			return 0
		}
		return r.StandardShipping
	}
}

// Price computes the order totals. Tax is charged on the discounted subtotal.
func (r PricingRules) Price(subtotal, discount int64, method ShippingMethod) Totals {
	if discount > subtotal {
		discount = subtotal
	}
	t := Totals{
		Subtotal: subtotal,
		Discount: discount,
		Tax:      r.Tax(subtotal - discount),
		Shipping: r.Shipping(method, subtotal),
	}
	t.Total = t.Subtotal + t.Tax + t.Shipping - t.Discount
	return t
}
