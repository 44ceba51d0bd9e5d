package money

import (
	"github.com/nvasquez/stagefront-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// EmptyCartTotal is the sentinel returned for a cart with no lines. It is
// deliberately not a formatted zero amount.
const EmptyCartTotal = "Empty"

type currencyInfo struct {
	symbol   string
	exponent int32
}

var currencyTable = map[enums.Currency]currencyInfo{
	enums.CurrencyUSD: {symbol: "$", exponent: 2},
	enums.CurrencyEUR: {symbol: "€", exponent: 2},
	enums.CurrencyGBP: {symbol: "£", exponent: 2},
}

var defaultInfo = currencyInfo{symbol: "$", exponent: 2}

// Format renders an integer minor-unit amount as a display string, e.g.
// Format(1999, CurrencyUSD) == "$19.99". Unknown currencies fall back to USD
// presentation.
func Format(amountMinor int64, currency enums.Currency) string {
	info, ok := currencyTable[currency]
	if !ok {
		info = defaultInfo
	}
	amount := decimal.NewFromInt(amountMinor).Shift(-info.exponent)
	if amount.IsNegative() {
		return "-" + info.symbol + amount.Neg().StringFixed(info.exponent)
	}
	return info.symbol + amount.StringFixed(info.exponent)
}

// MinorUnits converts a display-unit amount into minor units, e.g. dollars to
// cents. Callers of the payment intent client own this conversion.
func MinorUnits(displayAmount float64, currency enums.Currency) int64 {
	info, ok := currencyTable[currency]
	if !ok {
		info = defaultInfo
	}
	return decimal.NewFromFloat(displayAmount).Shift(info.exponent).Round(0).IntPart()
}
