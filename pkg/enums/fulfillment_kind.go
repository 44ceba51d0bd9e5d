package enums

import "fmt"

// FulfillmentKind names the local bookkeeping action after a successful charge.
type FulfillmentKind string

const (
	FulfillmentKindCreditGrant FulfillmentKind = "credit_grant"
	FulfillmentKindMembership  FulfillmentKind = "membership"
	FulfillmentKindOrder       FulfillmentKind = "order"
)

var validFulfillmentKinds = []FulfillmentKind{
	FulfillmentKindCreditGrant,
	FulfillmentKindMembership,
	FulfillmentKindOrder,
}

// String implements fmt.Stringer.
func (k FulfillmentKind) String() string {
	return string(k)
}

// IsValid reports whether the kind is recognized.
func (k FulfillmentKind) IsValid() bool {
	for _, candidate := range validFulfillmentKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseFulfillmentKind converts a raw string into a FulfillmentKind.
func ParseFulfillmentKind(value string) (FulfillmentKind, error) {
	for _, candidate := range validFulfillmentKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid fulfillment kind %q", value)
}
