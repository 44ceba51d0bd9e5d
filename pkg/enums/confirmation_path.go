package enums

import "fmt"

// ConfirmationPath identifies which entry point confirmed a payment intent.
type ConfirmationPath string

const (
	ConfirmationPathWallet ConfirmationPath = "wallet"
	ConfirmationPathCard   ConfirmationPath = "card"
)

var validConfirmationPaths = []ConfirmationPath{
	ConfirmationPathWallet,
	ConfirmationPathCard,
}

// String implements fmt.Stringer.
func (p ConfirmationPath) String() string {
	return string(p)
}

// IsValid reports whether the path is recognized.
func (p ConfirmationPath) IsValid() bool {
	for _, candidate := range validConfirmationPaths {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseConfirmationPath converts a raw string into a ConfirmationPath.
func ParseConfirmationPath(value string) (ConfirmationPath, error) {
	for _, candidate := range validConfirmationPaths {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid confirmation path %q", value)
}
