package controllers

import (
	"net/http"

	"github.com/nvasquez/stagefront-backend/api/responses"
	"github.com/nvasquez/stagefront-backend/api/validators"
	checkoutsvc "github.com/nvasquez/stagefront-backend/internal/checkout"
	"github.com/nvasquez/stagefront-backend/pkg/logger"
)

type initializeCheckoutRequest struct {
	SuccessURL string `json:"success_url" validate:"required,url"`
	CancelURL  string `json:"cancel_url" validate:"required,url"`
}

// CheckoutInitialize starts a hosted checkout session from the current cart.
func CheckoutInitialize(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := cartOwner(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload initializeCheckoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.Initialize(r.Context(), owner, payload.SuccessURL, payload.CancelURL)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, session)
	}
}

// CheckoutComplete lands the shopper after a finished checkout and clears the cart.
func CheckoutComplete(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := cartOwner(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Complete(r.Context(), owner); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "completed"})
	}
}
