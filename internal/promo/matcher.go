package promo

import (
	"github.com/luminoshop/cartsync/pkg/enums"
	"github.com/luminoshop/cartsync/pkg/types"
)

// MatchBundlePromotions returns every bundle promotion on the cart that the
// item participates in. Matching is attribution only: the server already
// decided eligibility, this just tags lines for display. An item can be
// tagged by more than one simultaneously active bundle.
func MatchBundlePromotions(item types.CartItem, cart *types.Cart) []types.Promotion {
	if cart == nil || len(cart.Promotions) == 0 {
		return nil
	}

	var matched []types.Promotion
	for _, promotion := range cart.Promotions {
		if promotion.DiscountType != enums.DiscountTypeBundle {
			continue
		}
		if bundleContains(promotion.BundleItems, item) {
			matched = append(matched, promotion.Clone())
		}
	}
	return matched
}

// bundleContains reports whether any bundle entry matches the item. Product
// ids must be equal; a variant id on the entry must also be equal, while an
// entry without a variant matches any variant of that product.
func bundleContains(entries []types.BundleItem, item types.CartItem) bool {
	for _, entry := range entries {
		if entry.ProductID != item.ProductID {
			continue
		}
		if entry.ProductVariantID == nil {
			return true
		}
		if item.ProductVariantID != nil && *entry.ProductVariantID == *item.ProductVariantID {
			return true
		}
	}
	return false
}
