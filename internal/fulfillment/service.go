package fulfillment

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/nvasquez/stagefront-backend/internal/cart"
	"github.com/nvasquez/stagefront-backend/pkg/db/models"
	pkgerrors "github.com/nvasquez/stagefront-backend/pkg/errors"
	"github.com/nvasquez/stagefront-backend/pkg/enums"
	"github.com/nvasquez/stagefront-backend/pkg/logger"
)

// Input describes the local bookkeeping owed for one confirmed intent.
type Input struct {
	IntentRef string
	UserID    string
	Kind      enums.FulfillmentKind

	// Credit grant fields.
	Credits     int64
	PackageName string

	// Shared by credit grants and memberships.
	AmountCents int64

	// Membership fields.
	Tier enums.MembershipTier

	// Order fields.
	CartOwner string
}

// Service applies fulfillment exactly once per confirmed intent.
type Service interface {
	Apply(ctx context.Context, input Input) (bool, error)
	CreditBalance(ctx context.Context, userID string) (int64, error)
	FundingTotal(ctx context.Context) (int64, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// claimStore reserves an intent ref across processes, typically backed by the
// shared redis client. It may be nil; the unique index stays authoritative.
type claimStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

const claimScope = "fulfillment"

const claimTTL = 24 * time.Hour

type service struct {
	tx     txRunner
	repo   Repository
	carts  cart.Service
	claims claimStore
	logg   *logger.Logger

	// In-process guard in front of the unique index. Two concurrent success
	// callbacks for the same intent collapse to one applied fulfillment.
	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewService wires the fulfillment service. claims may be nil.
func NewService(tx txRunner, repo Repository, carts cart.Service, claims claimStore, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("fulfillment repository required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		tx:       tx,
		repo:     repo,
		carts:    carts,
		claims:   claims,
		logg:     logg,
		inFlight: map[string]struct{}{},
	}, nil
}

// Apply performs the bookkeeping for a confirmed intent. It returns
// (false, nil) when the intent was already fulfilled; the second arrival of
// the same intent_ref is a harmless no-op, never a double grant.
func (s *service) Apply(ctx context.Context, input Input) (bool, error) {
	if err := validateInput(input); err != nil {
		return false, err
	}

	if !s.claim(ctx, input.IntentRef) {
		return false, nil
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if err := repo.RecordFulfillment(ctx, &models.FulfillmentRecord{
			IntentRef: input.IntentRef,
			Kind:      input.Kind,
			UserID:    input.UserID,
		}); err != nil {
			return err
		}

		switch input.Kind {
		case enums.FulfillmentKindCreditGrant:
			if err := repo.GrantCredits(ctx, input.UserID, input.Credits); err != nil {
				return err
			}
			return repo.CreateCreditTransaction(ctx, &models.CreditTransaction{
				UserID:      input.UserID,
				Credits:     input.Credits,
				PackageName: input.PackageName,
				AmountCents: input.AmountCents,
				IntentRef:   input.IntentRef,
			})
		case enums.FulfillmentKindMembership:
			if err := repo.CreateMembership(ctx, &models.Membership{
				UserID:      input.UserID,
				Tier:        input.Tier,
				AmountCents: input.AmountCents,
				IntentRef:   input.IntentRef,
			}); err != nil {
				return err
			}
			return repo.IncrementFundingTotal(ctx, input.AmountCents)
		case enums.FulfillmentKindOrder:
			return nil
		default:
			return pkgerrors.New(pkgerrors.CodeValidation, "unknown fulfillment kind")
		}
	})
	if err != nil {
		if IsDuplicateIntent(err) {
			// Another process already fulfilled this intent.
			return false, nil
		}
		s.release(ctx, input.IntentRef)
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "apply fulfillment")
	}

	if input.Kind == enums.FulfillmentKindOrder {
		// The cart slot lives outside the transaction. The charge is already
		// settled, so a failed clear is reported but the fulfillment stands.
		if err := s.carts.Clear(ctx, input.CartOwner); err != nil {
			s.logg.Error(ctx, "fulfilled order but failed to clear cart", err)
			return true, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart after order")
		}
	}

	s.logg.Info(ctx, fmt.Sprintf("fulfillment applied (%s)", input.Kind))
	return true, nil
}

func (s *service) CreditBalance(ctx context.Context, userID string) (int64, error) {
	if strings.TrimSpace(userID) == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	return s.repo.CreditBalance(ctx, userID)
}

func (s *service) FundingTotal(ctx context.Context) (int64, error) {
	return s.repo.FundingTotal(ctx)
}

func (s *service) claim(ctx context.Context, intentRef string) bool {
	s.mu.Lock()
	if _, seen := s.inFlight[intentRef]; seen {
		s.mu.Unlock()
		return false
	}
	s.inFlight[intentRef] = struct{}{}
	s.mu.Unlock()

	if s.claims == nil {
		return true
	}
	ok, err := s.claims.SetNX(ctx, s.claims.IdempotencyKey(claimScope, intentRef), "1", claimTTL)
	if err != nil {
		// The unique index still rejects a double apply; keep going.
		s.logg.Warn(ctx, "fulfillment claim store unavailable: "+err.Error())
		return true
	}
	if !ok {
		s.mu.Lock()
		delete(s.inFlight, intentRef)
		s.mu.Unlock()
		return false
	}
	return true
}

func (s *service) release(ctx context.Context, intentRef string) {
	s.mu.Lock()
	delete(s.inFlight, intentRef)
	s.mu.Unlock()

	if s.claims != nil {
		if err := s.claims.Del(ctx, s.claims.IdempotencyKey(claimScope, intentRef)); err != nil {
			s.logg.Warn(ctx, "fulfillment claim release failed: "+err.Error())
		}
	}
}

func validateInput(input Input) error {
	if strings.TrimSpace(input.IntentRef) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "intent ref is required")
	}
	if strings.TrimSpace(input.UserID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	switch input.Kind {
	case enums.FulfillmentKindCreditGrant:
		if input.Credits <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "credits must be positive")
		}
		if strings.TrimSpace(input.PackageName) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "package name is required")
		}
	case enums.FulfillmentKindMembership:
		if !input.Tier.IsValid() {
			return pkgerrors.New(pkgerrors.CodeValidation, "unknown membership tier")
		}
		if input.AmountCents <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
		}
	case enums.FulfillmentKindOrder:
		if strings.TrimSpace(input.CartOwner) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart owner is required")
		}
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown fulfillment kind")
	}
	return nil
}
