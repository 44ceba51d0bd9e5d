package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/nvasquez/stagefront-backend/api/middleware"
	"github.com/nvasquez/stagefront-backend/api/responses"
	"github.com/nvasquez/stagefront-backend/api/validators"
	cartsvc "github.com/nvasquez/stagefront-backend/internal/cart"
	"github.com/nvasquez/stagefront-backend/pkg/enums"
	pkgerrors "github.com/nvasquez/stagefront-backend/pkg/errors"
	"github.com/nvasquez/stagefront-backend/pkg/logger"
	"github.com/nvasquez/stagefront-backend/pkg/types"
)

type productPayload struct {
	ID    uuid.UUID `json:"id" validate:"required"`
	Title string    `json:"title" validate:"required"`
	Image string    `json:"image"`
}

type variantPayload struct {
	ID              uuid.UUID `json:"id" validate:"required"`
	Title           string    `json:"title"`
	PriceCents      int64     `json:"price_cents" validate:"min=0"`
	SalePriceCents  *int64    `json:"sale_price_cents"`
	Currency        string    `json:"currency"`
	ManageInventory bool      `json:"manage_inventory"`
}

func (p variantPayload) toVariant() (types.Variant, error) {
	currency := enums.CurrencyUSD
	if p.Currency != "" {
		parsed, err := enums.ParseCurrency(p.Currency)
		if err != nil {
			return types.Variant{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid currency")
		}
		currency = parsed
	}
	return types.Variant{
		ID:              p.ID,
		Title:           p.Title,
		PriceCents:      p.PriceCents,
		SalePriceCents:  p.SalePriceCents,
		Currency:        currency,
		ManageInventory: p.ManageInventory,
	}, nil
}

type addCartLineRequest struct {
	Product           productPayload `json:"product" validate:"required"`
	Variant           variantPayload `json:"variant" validate:"required"`
	Quantity          int            `json:"quantity" validate:"required,min=1"`
	AvailableQuantity int            `json:"available_quantity" validate:"min=0"`
}

type updateCartLineRequest struct {
	Quantity int `json:"quantity" validate:"min=0"`
}

type cartResponse struct {
	Lines []types.CartLine `json:"lines"`
	Total string           `json:"total"`
}

func cartOwner(r *http.Request) (string, error) {
	owner := middleware.CartOwnerFromContext(r.Context())
	if owner == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "cart owner could not be resolved; sign in or send X-Guest-Id")
	}
	return owner, nil
}

// CartView returns the hydrated cart plus its formatted total.
func CartView(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := cartOwner(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		lines, err := svc.Lines(r.Context(), owner)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		total, err := svc.Total(r.Context(), owner)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if lines == nil {
			lines = []types.CartLine{}
		}

		responses.WriteSuccess(w, cartResponse{Lines: lines, Total: total})
	}
}

// CartAdd merges a line into the cart, enforcing the stock ceiling.
func CartAdd(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := cartOwner(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload addCartLineRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		variant, err := payload.Variant.toVariant()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product := types.Product{
			ID:    payload.Product.ID,
			Title: payload.Product.Title,
			Image: payload.Product.Image,
		}

		if err := svc.Add(r.Context(), owner, product, variant, payload.Quantity, payload.AvailableQuantity); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		writeCart(w, r, svc, logg, owner)
	}
}

// CartUpdateQuantity sets a line's quantity directly.
func CartUpdateQuantity(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := cartOwner(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		variantID, err := variantIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateCartLineRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.UpdateQuantity(r.Context(), owner, variantID, payload.Quantity); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		writeCart(w, r, svc, logg, owner)
	}
}

// CartRemove drops a line from the cart.
func CartRemove(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := cartOwner(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		variantID, err := variantIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Remove(r.Context(), owner, variantID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		writeCart(w, r, svc, logg, owner)
	}
}

// CartClear empties the cart.
func CartClear(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := cartOwner(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Clear(r.Context(), owner); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		writeCart(w, r, svc, logg, owner)
	}
}

func writeCart(w http.ResponseWriter, r *http.Request, svc cartsvc.Service, logg *logger.Logger, owner string) {
	lines, err := svc.Lines(r.Context(), owner)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	total, err := svc.Total(r.Context(), owner)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	if lines == nil {
		lines = []types.CartLine{}
	}
	responses.WriteSuccess(w, cartResponse{Lines: lines, Total: total})
}
