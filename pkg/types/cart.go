package types

import (
	"github.com/luminoshop/cartsync/pkg/enums"
	"github.com/shopspring/decimal"
)

// Cart is the authoritative aggregate as last confirmed by the server. The
// engine mirrors the monetary fields verbatim; it never computes them.
type Cart struct {
	ID            string          `json:"id"`
	Items         []CartItem      `json:"items"`
	Promotions    []Promotion     `json:"promotions"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	DiscountTotal decimal.Decimal `json:"discount_total"`
	ShippingFee   decimal.Decimal `json:"shipping_fee"`
	Total         decimal.Decimal `json:"total"`
	FreeShipping  bool            `json:"free_shipping"`
}

// CartItem is one line in the cart. The line id stays stable across quantity
// edits; a new id means a new line.
type CartItem struct {
	ID               string          `json:"id"`
	ProductID        string          `json:"product_id"`
	ProductVariantID *string         `json:"product_variant_id,omitempty"`
	ProductName      string          `json:"product_name"`
	Quantity         int             `json:"quantity"`
	CurrentPrice     decimal.Decimal `json:"current_price"`
	OriginalPrice    decimal.Decimal `json:"original_price"`
}

// Promotion is a discount applied to the cart as a whole. Bundle promotions
// carry the item combination that triggered them, for display attribution only.
type Promotion struct {
	Code          string             `json:"code"`
	DiscountType  enums.DiscountType `json:"discount_type"`
	DiscountValue decimal.Decimal    `json:"discount_value"`
	BundleItems   []BundleItem       `json:"bundle_items,omitempty"`
}

// BundleItem describes one entry of a bundle promotion's triggering combination.
type BundleItem struct {
	ProductID        string  `json:"product_id"`
	ProductVariantID *string `json:"product_variant_id,omitempty"`
	ProductName      string  `json:"product_name"`
	VariantName      *string `json:"variant_name,omitempty"`
	Quantity         int     `json:"quantity"`
}

// TotalItems sums the quantities across all lines.
func (c *Cart) TotalItems() int {
	if c == nil {
		return 0
	}
	total := 0
	for _, item := range c.Items {
		total += item.Quantity
	}
	return total
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Items) == 0
}

// FindItem returns the index of the line with the given id, or -1.
func (c *Cart) FindItem(itemID string) int {
	if c == nil {
		return -1
	}
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy so readers never alias engine-owned state.
func (c *Cart) Clone() *Cart {
	if c == nil {
		return nil
	}
	out := *c
	if c.Items != nil {
		out.Items = make([]CartItem, len(c.Items))
		for i, item := range c.Items {
			out.Items[i] = item.Clone()
		}
	}
	if c.Promotions != nil {
		out.Promotions = make([]Promotion, len(c.Promotions))
		for i, promo := range c.Promotions {
			out.Promotions[i] = promo.Clone()
		}
	}
	return &out
}

// Clone returns a copy with no shared pointers.
func (i CartItem) Clone() CartItem {
	out := i
	out.ProductVariantID = copyStringPtr(i.ProductVariantID)
	return out
}

// Discounted reports whether the line should render a discount badge.
func (i CartItem) Discounted() bool {
	return i.OriginalPrice.GreaterThan(i.CurrentPrice)
}

// Clone returns a copy with no shared pointers or slices.
func (p Promotion) Clone() Promotion {
	out := p
	if p.BundleItems != nil {
		out.BundleItems = make([]BundleItem, len(p.BundleItems))
		for i, entry := range p.BundleItems {
			out.BundleItems[i] = entry.Clone()
		}
	}
	return out
}

// Clone returns a copy with no shared pointers.
func (b BundleItem) Clone() BundleItem {
	out := b
	out.ProductVariantID = copyStringPtr(b.ProductVariantID)
	out.VariantName = copyStringPtr(b.VariantName)
	return out
}

func copyStringPtr(src *string) *string {
	if src == nil {
		return nil
	}
	val := *src
	return &val
}
