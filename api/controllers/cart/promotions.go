package cart

import (
	"context"
	"net/http"

	cartdto "github.com/luminoshop/cartsync/api/controllers/cart/dto"
	"github.com/luminoshop/cartsync/api/responses"
	"github.com/luminoshop/cartsync/api/validators"
	pkgerrors "github.com/luminoshop/cartsync/pkg/errors"
	"github.com/luminoshop/cartsync/pkg/logger"
)

type PromoApplier interface {
	Apply(ctx context.Context, codes []string) error
}

type EmailSender interface {
	Send(ctx context.Context, email string, share bool) error
}

// ApplyPromotions submits promotion codes. Rejections pass the server's
// message through untouched so the storefront can show it verbatim.
func ApplyPromotions(promos PromoApplier, eng Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if promos == nil || eng == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart engine unavailable"))
			return
		}

		var payload cartdto.PromotionsRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := promos.Apply(r.Context(), payload.Codes); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cartdto.NewCartView(eng.Snapshot()))
	}
}

// Email forwards a share-cart request. Cart state is never touched.
func Email(sender EmailSender, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sender == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart engine unavailable"))
			return
		}

		var payload cartdto.EmailRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := sender.Send(r.Context(), payload.Email, payload.Share); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]string{"status": "sent"})
	}
}
