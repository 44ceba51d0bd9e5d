package purchase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nvasquez/stagefront-backend/internal/fulfillment"
	"github.com/nvasquez/stagefront-backend/internal/payments"
	pkgerrors "github.com/nvasquez/stagefront-backend/pkg/errors"
	"github.com/nvasquez/stagefront-backend/pkg/enums"
	"github.com/nvasquez/stagefront-backend/pkg/flags"
	"github.com/nvasquez/stagefront-backend/pkg/logger"
	"github.com/nvasquez/stagefront-backend/pkg/metrics"
)

// OpenRequest describes the purchase a surface wants to confirm.
type OpenRequest struct {
	Kind        enums.FulfillmentKind
	Label       string
	AmountCents int64
	Currency    enums.Currency

	// Credit grant fields.
	Credits     int64
	PackageName string

	// Membership fields.
	Tier enums.MembershipTier

	// Order fields.
	CartOwner string

	// OnClose is invoked when the attempt is forced to unavailable while the
	// surface is open.
	OnClose func()
}

// CardDetails carries the card-path confirmation inputs.
type CardDetails struct {
	PaymentMethodID string
	BillingName     string
	BillingEmail    string
}

// Service drives purchase attempts through the confirmation state machine.
type Service interface {
	Open(ctx context.Context, userID string, req OpenRequest) (*AttemptView, error)
	ConfirmWithWallet(ctx context.Context, attemptID, paymentMethodRef string) (*AttemptView, error)
	ConfirmWithCard(ctx context.Context, attemptID string, card CardDetails) (*AttemptView, error)
	Attempt(attemptID string) (*AttemptView, error)
	Close(attemptID string)
}

type service struct {
	gate      *flags.Gate
	intents   payments.IntentClient
	processor payments.Processor
	fulfiller fulfillment.Service
	metrics   *metrics.PurchaseMetrics
	logg      *logger.Logger
	now       func() time.Time

	mu       sync.Mutex
	attempts map[string]*attempt
}

// NewService wires the purchase confirmation flow.
func NewService(
	gate *flags.Gate,
	intents payments.IntentClient,
	processor payments.Processor,
	fulfiller fulfillment.Service,
	purchaseMetrics *metrics.PurchaseMetrics,
	logg *logger.Logger,
) (Service, error) {
	if gate == nil {
		return nil, fmt.Errorf("payments gate required")
	}
	if intents == nil {
		return nil, fmt.Errorf("intent client required")
	}
	if processor == nil {
		return nil, fmt.Errorf("payment processor required")
	}
	if fulfiller == nil {
		return nil, fmt.Errorf("fulfillment service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		gate:      gate,
		intents:   intents,
		processor: processor,
		fulfiller: fulfiller,
		metrics:   purchaseMetrics,
		logg:      logg,
		now:       time.Now,
		attempts:  map[string]*attempt{},
	}, nil
}

// Open starts a new attempt: re-checks the gate, creates the payment intent
// and caches its secret for this attempt only.
func (s *service) Open(ctx context.Context, userID string, req OpenRequest) (*AttemptView, error) {
	a := &attempt{
		id:      uuid.NewString(),
		userID:  userID,
		req:     req,
		state:   enums.PurchaseStateIdle,
		onClose: req.OnClose,
	}
	s.register(a)
	ctx = s.logg.WithAttemptID(ctx, a.id)

	if !s.gate.Enabled() {
		a.forceUnavailable()
		return a.view(), pkgerrors.New(pkgerrors.CodeConfiguration, "live payments are disabled")
	}

	a.transition(enums.PurchaseStateIntentPending)

	intent, err := s.intents.CreateIntent(ctx, userID, payments.IntentRequest{
		Kind:        req.Kind,
		Label:       req.Label,
		AmountCents: req.AmountCents,
		Currency:    req.Currency,
	})
	if err != nil {
		a.fail(failureMessage(err))
		return a.view(), err
	}

	a.mu.Lock()
	a.clientSecret = intent.ClientSecret
	a.state = enums.PurchaseStateIntentReady
	a.mu.Unlock()

	// A gate flip while the surface is open forces the attempt down.
	cancel := s.gate.Subscribe(func(enabled bool) {
		if !enabled {
			a.forceUnavailable()
		}
	})
	a.mu.Lock()
	a.cancelGateSub = cancel
	a.mu.Unlock()

	// Re-check for a flip that landed between intent creation and the
	// subscription registration.
	if !s.gate.Enabled() {
		a.forceUnavailable()
		s.finish(a)
		return a.view(), pkgerrors.New(pkgerrors.CodeConfiguration, "live payments are disabled")
	}

	s.logg.Info(ctx, "purchase attempt opened")
	return a.view(), nil
}

// ConfirmWithWallet confirms through the platform payment sheet. Next-action
// handling is suppressed; the sheet owns that UI.
func (s *service) ConfirmWithWallet(ctx context.Context, attemptID, paymentMethodRef string) (*AttemptView, error) {
	if strings.TrimSpace(paymentMethodRef) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment method ref is required")
	}
	return s.confirm(ctx, attemptID, enums.ConfirmationPathWallet, payments.ConfirmParams{
		PaymentMethodID: paymentMethodRef,
		HandleActions:   false,
	})
}

// ConfirmWithCard confirms with collected card details.
func (s *service) ConfirmWithCard(ctx context.Context, attemptID string, card CardDetails) (*AttemptView, error) {
	if strings.TrimSpace(card.PaymentMethodID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment method is required")
	}
	return s.confirm(ctx, attemptID, enums.ConfirmationPathCard, payments.ConfirmParams{
		PaymentMethodID: card.PaymentMethodID,
		BillingName:     card.BillingName,
		BillingEmail:    card.BillingEmail,
		HandleActions:   true,
	})
}

func (s *service) confirm(ctx context.Context, attemptID string, path enums.ConfirmationPath, params payments.ConfirmParams) (*AttemptView, error) {
	a, err := s.lookup(attemptID)
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithAttemptID(ctx, a.id)

	secret, ok := a.beginConfirmation()
	if !ok {
		// Either a confirmation is already in flight or the attempt is done.
		// The second entry point is a no-op; callers read the state.
		return a.view(), nil
	}

	started := s.now()
	result, err := s.processor.ConfirmCardPayment(ctx, secret, params)
	s.metrics.ObserveDuration(path.String(), s.now().Sub(started))

	if err != nil {
		s.metrics.IncFailure(path.String())
		a.fail(failureMessage(err))
		s.finish(a)
		s.logg.Warn(ctx, fmt.Sprintf("payment confirmation failed (%s)", path))
		return a.view(), pkgerrors.Wrap(pkgerrors.CodeConfirmation, err, "payment confirmation failed")
	}

	if !result.Status.Succeeded() {
		s.metrics.IncFailure(path.String())
		message := result.FailureMessage
		if message == "" {
			message = "payment was not completed"
		}
		a.fail(message)
		s.finish(a)
		s.logg.Warn(ctx, fmt.Sprintf("payment not completed (%s)", path))
		return a.view(), pkgerrors.New(pkgerrors.CodeConfirmation, message)
	}

	a.mu.Lock()
	a.state = enums.PurchaseStateSucceeded
	a.intentRef = result.IntentRef
	a.mu.Unlock()
	s.finish(a)
	s.metrics.IncSuccess(path.String())
	s.logg.Info(ctx, fmt.Sprintf("payment confirmed (%s)", path))

	// The charge is settled. Fulfillment problems are logged and repaired out
	// of band, never reported to the payer as a payment failure.
	if _, err := s.fulfiller.Apply(ctx, fulfillment.Input{
		IntentRef:   result.IntentRef,
		UserID:      fulfillmentUser(a.userID),
		Kind:        a.req.Kind,
		Credits:     a.req.Credits,
		PackageName: a.req.PackageName,
		AmountCents: a.req.AmountCents,
		Tier:        a.req.Tier,
		CartOwner:   a.req.CartOwner,
	}); err != nil {
		s.logg.Error(ctx, "fulfillment failed after successful charge", err)
	}

	return a.view(), nil
}

// Attempt returns the current snapshot.
func (s *service) Attempt(attemptID string) (*AttemptView, error) {
	a, err := s.lookup(attemptID)
	if err != nil {
		return nil, err
	}
	return a.view(), nil
}

// Close drops the attempt and its gate subscription. Idempotent.
func (s *service) Close(attemptID string) {
	s.mu.Lock()
	a, ok := s.attempts[attemptID]
	delete(s.attempts, attemptID)
	s.mu.Unlock()

	if ok {
		s.finish(a)
	}
}

func (s *service) register(a *attempt) {
	s.mu.Lock()
	s.attempts[a.id] = a
	s.mu.Unlock()
}

func (s *service) lookup(attemptID string) (*attempt, error) {
	s.mu.Lock()
	a, ok := s.attempts[attemptID]
	s.mu.Unlock()
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "purchase attempt not found")
	}
	return a, nil
}

// finish cancels the gate subscription once the attempt reaches a terminal
// state; a flip can no longer change the outcome.
func (s *service) finish(a *attempt) {
	a.mu.Lock()
	cancel := a.cancelGateSub
	a.cancelGateSub = nil
	a.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

func fulfillmentUser(userID string) string {
	if strings.TrimSpace(userID) == "" {
		return payments.GuestSubject
	}
	return userID
}

func failureMessage(err error) string {
	if typed := pkgerrors.As(err); typed != nil {
		return typed.Message()
	}
	return err.Error()
}
