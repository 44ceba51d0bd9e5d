package types

import (
	"github.com/google/uuid"

	"github.com/nvasquez/stagefront-backend/pkg/enums"
)

// Product carries the display fields a cart line snapshots.
type Product struct {
	ID    uuid.UUID `json:"id"`
	Title string    `json:"title"`
	Image string    `json:"image,omitempty"`
}

// Variant is the purchasable unit. Prices are integer minor units.
type Variant struct {
	ID              uuid.UUID      `json:"id"`
	Title           string         `json:"title"`
	PriceCents      int64          `json:"price_cents"`
	SalePriceCents  *int64         `json:"sale_price_cents,omitempty"`
	Currency        enums.Currency `json:"currency"`
	ManageInventory bool           `json:"manage_inventory"`
}

// EffectivePriceCents returns the sale price when present, else the unit price.
func (v Variant) EffectivePriceCents() int64 {
	if v.SalePriceCents != nil {
		return *v.SalePriceCents
	}
	return v.PriceCents
}

// CartLine pairs a variant snapshot with a mutable quantity. The cart holds at
// most one line per variant id.
type CartLine struct {
	Product  Product `json:"product"`
	Variant  Variant `json:"variant"`
	Quantity int     `json:"quantity"`
}

// LineTotalCents is (sale price if present, else unit price) * quantity.
func (l CartLine) LineTotalCents() int64 {
	return l.Variant.EffectivePriceCents() * int64(l.Quantity)
}
