package dto

// AddItemRequest is the payload for POST /api/v1/cart/items.
type AddItemRequest struct {
	ProductID        string  `json:"product_id" validate:"required"`
	ProductVariantID *string `json:"product_variant_id,omitempty"`
	Quantity         int     `json:"quantity" validate:"required,gt=0"`
}

// UpdateItemRequest is the payload for PATCH /api/v1/cart/items/{itemID}.
// Quantity zero removes the line.
type UpdateItemRequest struct {
	Quantity int `json:"quantity" validate:"min=0"`
}

// PromotionsRequest is the payload for POST /api/v1/cart/promotions.
type PromotionsRequest struct {
	Codes []string `json:"codes" validate:"required,min=1"`
}

// EmailRequest is the payload for POST /api/v1/cart/email.
type EmailRequest struct {
	Email string `json:"email" validate:"required,email"`
	Share bool   `json:"share"`
}

// InitializeRequest is the payload for POST /api/v1/cart/refresh.
type InitializeRequest struct {
	Force bool `json:"force"`
}
