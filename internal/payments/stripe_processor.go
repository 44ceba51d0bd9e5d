package payments

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v84"

	pkgerrors "github.com/nvasquez/stagefront-backend/pkg/errors"
	"github.com/nvasquez/stagefront-backend/pkg/enums"
	pkgstripe "github.com/nvasquez/stagefront-backend/pkg/stripe"
)

type stripeProcessor struct {
	client *pkgstripe.Client
}

// NewStripeProcessor adapts the Stripe client to the Processor port.
func NewStripeProcessor(client *pkgstripe.Client) (Processor, error) {
	if client == nil || client.API() == nil {
		return nil, fmt.Errorf("stripe client required")
	}
	return &stripeProcessor{client: client}, nil
}

func (p *stripeProcessor) ConfirmCardPayment(ctx context.Context, clientSecret string, params ConfirmParams) (*ConfirmResult, error) {
	intentID, err := pkgstripe.IntentIDFromClientSecret(clientSecret)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid client secret")
	}

	confirmParams := &stripe.PaymentIntentConfirmParams{}
	// PaymentIntentConfirmParams no longer exposes a ClientSecret field;
	// AddExtra sends the same client_secret form value on the request.
	confirmParams.AddExtra("client_secret", clientSecret)
	if params.PaymentMethodID != "" {
		confirmParams.PaymentMethod = stripe.String(params.PaymentMethodID)
	}
	if !params.HandleActions {
		// The caller owns any next-action UI; a confirmation that needs one
		// must fail instead of stalling in requires_action.
		confirmParams.ErrorOnRequiresAction = stripe.Bool(true)
	}

	intent, err := p.client.API().V1PaymentIntents.Confirm(ctx, intentID, confirmParams)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeConfirmation, err, "confirm payment intent")
	}

	result := &ConfirmResult{IntentRef: intent.ID}
	switch intent.Status {
	case stripe.PaymentIntentStatusSucceeded:
		result.Status = enums.PaymentStatusSucceeded
	default:
		result.Status = enums.PaymentStatusFailed
		result.FailureMessage = fmt.Sprintf("payment intent ended in status %s", intent.Status)
		if intent.LastPaymentError != nil && intent.LastPaymentError.Msg != "" {
			result.FailureMessage = intent.LastPaymentError.Msg
		}
	}
	return result, nil
}
