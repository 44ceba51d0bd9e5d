package controllers

import (
	"net/http"

	"github.com/nvasquez/stagefront-backend/api/middleware"
	"github.com/nvasquez/stagefront-backend/api/responses"
	"github.com/nvasquez/stagefront-backend/api/validators"
	fulfillmentsvc "github.com/nvasquez/stagefront-backend/internal/fulfillment"
	purchasesvc "github.com/nvasquez/stagefront-backend/internal/purchase"
	"github.com/nvasquez/stagefront-backend/pkg/enums"
	pkgerrors "github.com/nvasquez/stagefront-backend/pkg/errors"
	"github.com/nvasquez/stagefront-backend/pkg/logger"
)

type openPurchaseRequest struct {
	Kind        string `json:"kind" validate:"required,oneof=credit_grant membership order"`
	Label       string `json:"label" validate:"required"`
	AmountCents int64  `json:"amount_cents" validate:"required,min=1"`
	Currency    string `json:"currency"`

	Credits     int64  `json:"credits"`
	PackageName string `json:"package_name"`
	Tier        string `json:"tier"`
}

type confirmWalletRequest struct {
	PaymentMethodRef string `json:"payment_method_ref" validate:"required"`
}

type confirmCardRequest struct {
	PaymentMethodID string `json:"payment_method_id" validate:"required"`
	BillingName     string `json:"billing_name" validate:"required"`
	BillingEmail    string `json:"billing_email" validate:"required,email"`
}

// PurchaseOpen starts a purchase attempt and returns its snapshot.
func PurchaseOpen(svc purchasesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload openPurchaseRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		kind, err := enums.ParseFulfillmentKind(payload.Kind)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid kind"))
			return
		}

		req := purchasesvc.OpenRequest{
			Kind:        kind,
			Label:       payload.Label,
			AmountCents: payload.AmountCents,
			Currency:    enums.CurrencyUSD,
			Credits:     payload.Credits,
			PackageName: payload.PackageName,
		}
		if payload.Currency != "" {
			currency, err := enums.ParseCurrency(payload.Currency)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid currency"))
				return
			}
			req.Currency = currency
		}
		if payload.Tier != "" {
			tier, err := enums.ParseMembershipTier(payload.Tier)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid tier"))
				return
			}
			req.Tier = tier
		}
		if kind == enums.FulfillmentKindOrder {
			owner, err := cartOwner(r)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			req.CartOwner = owner
		}

		view, err := svc.Open(r.Context(), middleware.UserIDFromContext(r.Context()), req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, view)
	}
}

// PurchaseConfirmWallet confirms an attempt through the wallet sheet path.
func PurchaseConfirmWallet(svc purchasesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		attemptID, err := attemptIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload confirmWalletRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.ConfirmWithWallet(r.Context(), attemptID, payload.PaymentMethodRef)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, view)
	}
}

// PurchaseConfirmCard confirms an attempt with collected card details.
func PurchaseConfirmCard(svc purchasesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		attemptID, err := attemptIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload confirmCardRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.ConfirmWithCard(r.Context(), attemptID, purchasesvc.CardDetails{
			PaymentMethodID: payload.PaymentMethodID,
			BillingName:     payload.BillingName,
			BillingEmail:    payload.BillingEmail,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, view)
	}
}

// PurchaseAttempt returns the attempt's current snapshot.
func PurchaseAttempt(svc purchasesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		attemptID, err := attemptIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.Attempt(attemptID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, view)
	}
}

// PurchaseClose drops the attempt.
func PurchaseClose(svc purchasesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		attemptID, err := attemptIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		svc.Close(attemptID)
		responses.WriteSuccess(w, map[string]string{"status": "closed"})
	}
}

// AccountCredits returns the signed-in user's credit balance.
func AccountCredits(svc fulfillmentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())

		balance, err := svc.CreditBalance(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]int64{"balance": balance})
	}
}

// FundingTotal returns the public funding-goal running total.
func FundingTotal(svc fulfillmentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		total, err := svc.FundingTotal(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]int64{"amount_cents": total})
	}
}
