// Package workflows holds the thin controllers between the HTTP facade and
// the sync engine. Each controller does local validation the engine should
// not repeat, then delegates; server decisions always pass through verbatim.
package workflows

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/luminoshop/cartsync/internal/engine"
	"github.com/luminoshop/cartsync/internal/summary"
	"github.com/luminoshop/cartsync/pkg/enums"
	pkgerrors "github.com/luminoshop/cartsync/pkg/errors"
)

var validate = validator.New()

// Syncer is the slice of the engine the controllers depend on.
type Syncer interface {
	Snapshot() engine.State
	ApplyPromotions(ctx context.Context, codes []string) error
	EmailCart(ctx context.Context, email string, share bool) error
}

// PromoController prepares promotion code submissions.
type PromoController struct {
	syncer Syncer
}

func NewPromoController(syncer Syncer) (*PromoController, error) {
	if syncer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "syncer is required")
	}
	return &PromoController{syncer: syncer}, nil
}

// Apply trims and dedupes the submitted codes, rejecting empty input before
// anything reaches the queue. Duplicate codes in one submission collapse to
// a single entry, first occurrence wins.
func (p *PromoController) Apply(ctx context.Context, codes []string) error {
	seen := make(map[string]struct{}, len(codes))
	cleaned := make([]string, 0, len(codes))
	for _, code := range codes {
		trimmed := strings.TrimSpace(code)
		if trimmed == "" {
			continue
		}
		key := strings.ToUpper(trimmed)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		cleaned = append(cleaned, trimmed)
	}
	if len(cleaned) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one promotion code is required")
	}
	return p.syncer.ApplyPromotions(ctx, cleaned)
}

// EmailCartController prepares cart share requests.
type EmailCartController struct {
	syncer Syncer
}

func NewEmailCartController(syncer Syncer) (*EmailCartController, error) {
	if syncer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "syncer is required")
	}
	return &EmailCartController{syncer: syncer}, nil
}

// Send validates the recipient address locally and forwards the request.
func (e *EmailCartController) Send(ctx context.Context, email string, share bool) error {
	email = strings.TrimSpace(email)
	if err := validate.Var(email, "required,email"); err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid email address")
	}
	return e.syncer.EmailCart(ctx, email, share)
}

// Handoff is the payload handed to the checkout surface once the cart is
// safe to price against.
type Handoff struct {
	CartID  string          `json:"cart_id"`
	Summary summary.Summary `json:"summary"`
}

// CheckoutHandoff gates the transition from cart to checkout.
type CheckoutHandoff struct {
	syncer Syncer
}

func NewCheckoutHandoff(syncer Syncer) (*CheckoutHandoff, error) {
	if syncer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "syncer is required")
	}
	return &CheckoutHandoff{syncer: syncer}, nil
}

// Prepare refuses while a mutation is still in flight, after a failed load,
// on an empty cart, or when the totals do not satisfy the settle invariant.
// Otherwise it returns the cart id and the derived summary.
func (c *CheckoutHandoff) Prepare(ctx context.Context) (*Handoff, error) {
	state := c.syncer.Snapshot()

	if state.Pending {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "a cart operation is still in progress")
	}
	if !state.Loaded || state.LoadFailed {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "cart has not loaded")
	}
	if state.Phase == enums.OpPhaseFailed {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "last cart operation failed, refresh before checkout")
	}
	if state.Cart.IsEmpty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	if !summary.Settled(state.Cart) {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "cart totals are not settled")
	}

	return &Handoff{
		CartID:  state.Cart.ID,
		Summary: summary.Calculate(state.Cart),
	}, nil
}
