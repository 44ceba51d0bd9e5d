package payments

import (
	"context"

	"github.com/nvasquez/stagefront-backend/pkg/enums"
)

// ConfirmParams carries the payment credentials for a confirmation. Exactly
// one of PaymentMethodID (wallet path) or card billing details is set.
type ConfirmParams struct {
	PaymentMethodID string
	BillingName     string
	BillingEmail    string

	// HandleActions is false on the wallet path; the wallet sheet owns any
	// next-action UI, the server must not trigger it.
	HandleActions bool
}

// ConfirmResult is the processor's verdict on a single confirmation.
type ConfirmResult struct {
	Status         enums.PaymentStatus
	IntentRef      string
	FailureMessage string
}

// Processor confirms payment intents with the upstream processor. Each
// clientSecret is presented at most once.
type Processor interface {
	ConfirmCardPayment(ctx context.Context, clientSecret string, params ConfirmParams) (*ConfirmResult, error)
}
