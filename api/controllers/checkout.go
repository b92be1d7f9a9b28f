package controllers

import (
	"context"
	"net/http"

	"github.com/luminoshop/cartsync/api/responses"
	"github.com/luminoshop/cartsync/internal/workflows"
	pkgerrors "github.com/luminoshop/cartsync/pkg/errors"
	"github.com/luminoshop/cartsync/pkg/logger"
)

type HandoffPreparer interface {
	Prepare(ctx context.Context) (*workflows.Handoff, error)
}

// CheckoutHandoff gates the cart-to-checkout transition. A pending mutation,
// a failed load, an empty cart, or unsettled totals all refuse the handoff.
func CheckoutHandoff(preparer HandoffPreparer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if preparer == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout unavailable"))
			return
		}

		handoff, err := preparer.Prepare(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, handoff)
	}
}
