package entity

import (
	"github.com/shopspring/decimal"
)

// PricingRules is the single rule set used to derive cart totals.
type PricingRules struct {
	TaxRate               decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	FlatShippingFee       decimal.Decimal
}

// DefaultPricingRules returns 8% tax and free shipping from 50.00, else 9.99.
func DefaultPricingRules() PricingRules {
	return PricingRules{
		TaxRate:               decimal.RequireFromString("0.08"),
		FreeShippingThreshold: decimal.NewFromInt(50),
		FlatShippingFee:       decimal.RequireFromString("9.99"),
	}
}

// NewPricingRules builds rules from configuration values.
func NewPricingRules(taxRate, freeShippingThreshold, flatShippingFee float64) PricingRules {
	return PricingRules{
		TaxRate:               decimal.NewFromFloat(taxRate),
		FreeShippingThreshold: decimal.NewFromFloat(freeShippingThreshold),
		FlatShippingFee:       decimal.NewFromFloat(flatShippingFee),
	}
}

// Totals are the derived money fields of a cart.
type Totals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Shipping decimal.Decimal
	Total    decimal.Decimal
}

// Round2 rounds half-up to cents. Amounts in a cart are never negative,
// so half-away-from-zero and half-up agree.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Compute derives subtotal, tax, shipping and total from scratch.
// Only the derived totals are rounded, never the running sum.
func (r PricingRules) Compute(items []CartLineItem) Totals {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(decimal.NewFromFloat(item.UnitPrice).Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	subtotal := Round2(sum)
	tax := Round2(subtotal.Mul(r.TaxRate))
	shipping := r.Shipping(subtotal)

	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Total:    Round2(subtotal.Add(tax).Add(shipping)),
	}
}

// Shipping is zero at or above the free-shipping threshold, else the flat fee.
func (r PricingRules) Shipping(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThanOrEqual(r.FreeShippingThreshold) {
		return decimal.Zero
	}
	return Round2(r.FlatShippingFee)
}

// Recalculate returns the cart with every derived field recomputed.
func (r PricingRules) Recalculate(c Cart) Cart {
	t := r.Compute(c.Items)
	c.Subtotal = t.Subtotal.InexactFloat64()
	c.Tax = t.Tax.InexactFloat64()
	c.Shipping = t.Shipping.InexactFloat64()
	c.Total = t.Total.InexactFloat64()
	return c
}

// UnitPrice resolves the snapshot price of a product under a variant selection:
// the price deltas of the selected variants on top of salePrice ?? price.
func UnitPrice(p Product, selection VariantSelection) (float64, error) {
	if err := ValidateProduct(p); err != nil {
		return 0, err
	}

	price := decimal.NewFromFloat(p.EffectivePrice())
	for _, opt := range selection {
		v, ok := p.FindVariant(opt.Name, opt.Value)
		if !ok {
			return 0, invalidProductf("product %s does not offer %s=%s", p.ID, opt.Name, opt.Value)
		}
		if v.PriceDelta != nil {
			price = price.Add(decimal.NewFromFloat(*v.PriceDelta))
		}
	}
	if price.IsNegative() {
		return 0, invalidProductf("product %s resolves to a negative price", p.ID)
	}
	return price.InexactFloat64(), nil
}
