package summary

import (
	"github.com/luminoshop/cartsync/pkg/types"
	"github.com/shopspring/decimal"
)

// Summary is the display-level aggregate derived from a settled cart.
// Subtotal is recomputed from the lines; DiscountTotal, ShippingFee, Total
// and FreeShipping mirror the server-provided fields verbatim so the client
// never disagrees with server policy on tax, shipping thresholds, or
// promotion stacking.
type Summary struct {
	Subtotal      decimal.Decimal `json:"subtotal"`
	DiscountTotal decimal.Decimal `json:"discount_total"`
	ShippingFee   decimal.Decimal `json:"shipping_fee"`
	Total         decimal.Decimal `json:"total"`
	FreeShipping  bool            `json:"free_shipping"`
	TotalItems    int             `json:"total_items"`
}

// Calculate derives the summary for the given cart. Pure and deterministic;
// calling it again on an unchanged cart yields identical totals.
func Calculate(cart *types.Cart) Summary {
	if cart == nil {
		return Summary{
			Subtotal:      decimal.Zero,
			DiscountTotal: decimal.Zero,
			ShippingFee:   decimal.Zero,
			Total:         decimal.Zero,
		}
	}

	subtotal := decimal.Zero
	totalItems := 0
	for _, item := range cart.Items {
		subtotal = subtotal.Add(item.CurrentPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
		totalItems += item.Quantity
	}

	return Summary{
		Subtotal:      subtotal,
		DiscountTotal: cart.DiscountTotal,
		ShippingFee:   cart.ShippingFee,
		Total:         cart.Total,
		FreeShipping:  cart.FreeShipping,
		TotalItems:    totalItems,
	}
}

// Settled reports whether the cart satisfies the settle invariant
// total == subtotal - discountTotal + shippingFee.
func Settled(cart *types.Cart) bool {
	if cart == nil {
		return false
	}
	expected := cart.Subtotal.Sub(cart.DiscountTotal).Add(cart.ShippingFee)
	return cart.Total.Equal(expected)
}
