package cart

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	cartdto "github.com/luminoshop/cartsync/api/controllers/cart/dto"
	"github.com/luminoshop/cartsync/api/responses"
	"github.com/luminoshop/cartsync/api/validators"
	"github.com/luminoshop/cartsync/internal/engine"
	"github.com/luminoshop/cartsync/internal/upstream"
	pkgerrors "github.com/luminoshop/cartsync/pkg/errors"
	"github.com/luminoshop/cartsync/pkg/logger"
	"github.com/luminoshop/cartsync/pkg/types"
)

// Engine is the slice of the sync engine the cart handlers use.
type Engine interface {
	Initialize(ctx context.Context, forceRefresh bool) error
	AddItem(ctx context.Context, req upstream.AddItemRequest) error
	UpdateItem(ctx context.Context, itemID string, quantity int) error
	RemoveItem(ctx context.Context, itemID string) error
	Clear(ctx context.Context) error
	Snapshot() engine.State
	Badge() types.LocalCartSnapshot
}

// Fetch returns the current cart view without touching the server.
func Fetch(eng Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if eng == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart engine unavailable"))
			return
		}
		responses.WriteSuccess(w, cartdto.NewCartView(eng.Snapshot()))
	}
}

// Badge returns the advisory item-count hint. Served from local state so it
// stays cheap enough for every page load.
func Badge(eng Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if eng == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart engine unavailable"))
			return
		}
		responses.WriteSuccess(w, eng.Badge())
	}
}

// Refresh fetches the authoritative cart from the server.
func Refresh(eng Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if eng == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart engine unavailable"))
			return
		}

		var payload cartdto.InitializeRequest
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		if err := eng.Initialize(r.Context(), payload.Force); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cartdto.NewCartView(eng.Snapshot()))
	}
}

// AddItem adds a product line to the cart.
func AddItem(eng Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if eng == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart engine unavailable"))
			return
		}

		var payload cartdto.AddItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		err := eng.AddItem(r.Context(), upstream.AddItemRequest{
			ProductID:        payload.ProductID,
			ProductVariantID: payload.ProductVariantID,
			Quantity:         payload.Quantity,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, cartdto.NewCartView(eng.Snapshot()))
	}
}

// UpdateItem changes a line quantity; quantity zero removes the line.
func UpdateItem(eng Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if eng == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart engine unavailable"))
			return
		}

		itemID := chi.URLParam(r, "itemID")
		if itemID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "item id is required"))
			return
		}

		var payload cartdto.UpdateItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := eng.UpdateItem(r.Context(), itemID, payload.Quantity); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cartdto.NewCartView(eng.Snapshot()))
	}
}

// RemoveItem deletes a line from the cart.
func RemoveItem(eng Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if eng == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart engine unavailable"))
			return
		}

		itemID := chi.URLParam(r, "itemID")
		if itemID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "item id is required"))
			return
		}

		if err := eng.RemoveItem(r.Context(), itemID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cartdto.NewCartView(eng.Snapshot()))
	}
}

// Clear empties local state and the persisted badge snapshot.
func Clear(eng Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if eng == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart engine unavailable"))
			return
		}

		if err := eng.Clear(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cartdto.NewCartView(eng.Snapshot()))
	}
}
