package dto

import (
	"github.com/shopspring/decimal"

	"github.com/luminoshop/cartsync/internal/engine"
	"github.com/luminoshop/cartsync/internal/promo"
	"github.com/luminoshop/cartsync/internal/summary"
	"github.com/luminoshop/cartsync/pkg/types"
)

// CartView is the full cart payload served to the storefront. Totals come
// from the last server-confirmed cart; per-line bundle hints are derived
// locally for display.
type CartView struct {
	CartID     string          `json:"cart_id"`
	Items      []ItemView      `json:"items"`
	Promotions []PromotionView `json:"promotions"`
	Summary    summary.Summary `json:"summary"`
	Loaded     bool            `json:"loaded"`
	LoadFailed bool            `json:"load_failed"`
	Pending    bool            `json:"pending"`
	LastOp     string          `json:"last_op,omitempty"`
	Phase      string          `json:"phase"`
}

type ItemView struct {
	ID               string          `json:"id"`
	ProductID        string          `json:"product_id"`
	ProductVariantID *string         `json:"product_variant_id,omitempty"`
	ProductName      string          `json:"product_name"`
	Quantity         int             `json:"quantity"`
	CurrentPrice     decimal.Decimal `json:"current_price"`
	OriginalPrice    decimal.Decimal `json:"original_price"`
	Discounted       bool            `json:"discounted"`
	BundlePromotions []PromotionView `json:"bundle_promotions,omitempty"`
}

type PromotionView struct {
	Code          string          `json:"code"`
	DiscountType  string          `json:"discount_type"`
	DiscountValue decimal.Decimal `json:"discount_value"`
}

// NewCartView derives the response payload from an engine state snapshot.
func NewCartView(state engine.State) CartView {
	cart := state.Cart
	if cart == nil {
		cart = &types.Cart{}
	}

	items := make([]ItemView, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, ItemView{
			ID:               item.ID,
			ProductID:        item.ProductID,
			ProductVariantID: item.ProductVariantID,
			ProductName:      item.ProductName,
			Quantity:         item.Quantity,
			CurrentPrice:     item.CurrentPrice,
			OriginalPrice:    item.OriginalPrice,
			Discounted:       item.Discounted(),
			BundlePromotions: promotionViews(promo.MatchBundlePromotions(item, cart)),
		})
	}

	return CartView{
		CartID:     cart.ID,
		Items:      items,
		Promotions: promotionViews(cart.Promotions),
		Summary:    summary.Calculate(cart),
		Loaded:     state.Loaded,
		LoadFailed: state.LoadFailed,
		Pending:    state.Pending,
		LastOp:     state.LastOp.String(),
		Phase:      state.Phase.String(),
	}
}

func promotionViews(promotions []types.Promotion) []PromotionView {
	if len(promotions) == 0 {
		return nil
	}
	views := make([]PromotionView, 0, len(promotions))
	for _, p := range promotions {
		views = append(views, PromotionView{
			Code:          p.Code,
			DiscountType:  p.DiscountType.String(),
			DiscountValue: p.DiscountValue,
		})
	}
	return views
}
