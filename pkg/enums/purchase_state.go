package enums

import "fmt"

// PurchaseState tracks a single purchase attempt through the confirmation flow.
type PurchaseState string

const (
	PurchaseStateIdle          PurchaseState = "idle"
	PurchaseStateIntentPending PurchaseState = "intent_pending"
	PurchaseStateIntentReady   PurchaseState = "intent_ready"
	PurchaseStateConfirming    PurchaseState = "confirming"
	PurchaseStateSucceeded     PurchaseState = "succeeded"
	PurchaseStateFailed        PurchaseState = "failed"
	PurchaseStateUnavailable   PurchaseState = "unavailable"
)

var validPurchaseStates = []PurchaseState{
	PurchaseStateIdle,
	PurchaseStateIntentPending,
	PurchaseStateIntentReady,
	PurchaseStateConfirming,
	PurchaseStateSucceeded,
	PurchaseStateFailed,
	PurchaseStateUnavailable,
}

// String implements fmt.Stringer.
func (s PurchaseState) String() string {
	return string(s)
}

// IsValid reports whether the state is recognized.
func (s PurchaseState) IsValid() bool {
	for _, candidate := range validPurchaseStates {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed.
func (s PurchaseState) IsTerminal() bool {
	return s == PurchaseStateSucceeded || s == PurchaseStateFailed || s == PurchaseStateUnavailable
}

// ParsePurchaseState converts a raw string into a PurchaseState.
func ParsePurchaseState(value string) (PurchaseState, error) {
	for _, candidate := range validPurchaseStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid purchase state %q", value)
}
