package fulfillment

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nvasquez/stagefront-backend/pkg/db/models"
	"github.com/nvasquez/stagefront-backend/pkg/enums"
	"github.com/nvasquez/stagefront-backend/pkg/logger"
	"github.com/nvasquez/stagefront-backend/pkg/types"
)

type stubTxRunner struct{}

func (stubTxRunner) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubRepo struct {
	mu sync.Mutex

	records      []*models.FulfillmentRecord
	credits      map[string]int64
	transactions []*models.CreditTransaction
	memberships  []*models.Membership
	fundingTotal int64

	recordErr error
}

func newStubRepo() *stubRepo {
	return &stubRepo{credits: map[string]int64{}}
}

func (r *stubRepo) WithTx(*gorm.DB) Repository { return r }

func (r *stubRepo) RecordFulfillment(_ context.Context, record *models.FulfillmentRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.recordErr != nil {
		return r.recordErr
	}
	for _, existing := range r.records {
		if existing.IntentRef == record.IntentRef {
			return errors.New("UNIQUE constraint failed: fulfillment_records.intent_ref")
		}
	}
	r.records = append(r.records, record)
	return nil
}

func (r *stubRepo) GrantCredits(_ context.Context, userID string, credits int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.credits[userID] += credits
	return nil
}

func (r *stubRepo) CreateCreditTransaction(_ context.Context, txn *models.CreditTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transactions = append(r.transactions, txn)
	return nil
}

func (r *stubRepo) CreateMembership(_ context.Context, membership *models.Membership) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.memberships = append(r.memberships, membership)
	return nil
}

func (r *stubRepo) IncrementFundingTotal(_ context.Context, amountCents int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fundingTotal += amountCents
	return nil
}

func (r *stubRepo) CreditBalance(_ context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.credits[userID], nil
}

func (r *stubRepo) FundingTotal(context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fundingTotal, nil
}

type stubCarts struct {
	mu       sync.Mutex
	cleared  []string
	clearErr error
}

func (s *stubCarts) Add(context.Context, string, types.Product, types.Variant, int, int) error {
	return nil
}

func (s *stubCarts) Remove(context.Context, string, uuid.UUID) error { return nil }

func (s *stubCarts) UpdateQuantity(context.Context, string, uuid.UUID, int) error { return nil }

func (s *stubCarts) Clear(_ context.Context, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clearErr != nil {
		return s.clearErr
	}
	s.cleared = append(s.cleared, owner)
	return nil
}

func (s *stubCarts) Lines(context.Context, string) ([]types.CartLine, error) { return nil, nil }

func (s *stubCarts) Total(context.Context, string) (string, error) { return "", nil }

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func newTestService(t *testing.T, repo Repository, carts *stubCarts) Service {
	t.Helper()
	if carts == nil {
		carts = &stubCarts{}
	}
	svc, err := NewService(stubTxRunner{}, repo, carts, nil, testLogger())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func creditInput(intentRef string) Input {
	return Input{
		IntentRef:   intentRef,
		UserID:      "user-1",
		Kind:        enums.FulfillmentKindCreditGrant,
		Credits:     100,
		PackageName: "Starter Pack",
		AmountCents: 999,
	}
}

func TestApplyCreditGrant(t *testing.T) {
	t.Parallel()

	repo := newStubRepo()
	svc := newTestService(t, repo, nil)

	applied, err := svc.Apply(context.Background(), creditInput("pi_1"))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !applied {
		t.Fatal("expected fulfillment to be applied")
	}

	balance, err := svc.CreditBalance(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("CreditBalance: %v", err)
	}
	if balance != 100 {
		t.Fatalf("expected balance 100, got %d", balance)
	}
	if len(repo.transactions) != 1 {
		t.Fatalf("expected one credit transaction, got %d", len(repo.transactions))
	}
	if repo.transactions[0].IntentRef != "pi_1" {
		t.Fatalf("transaction missing intent ref: %+v", repo.transactions[0])
	}
}

func TestApplySameIntentTwiceIsNoOp(t *testing.T) {
	t.Parallel()

	repo := newStubRepo()
	svc := newTestService(t, repo, nil)

	applied, err := svc.Apply(context.Background(), creditInput("pi_1"))
	if err != nil || !applied {
		t.Fatalf("first apply: applied=%v err=%v", applied, err)
	}

	applied, err = svc.Apply(context.Background(), creditInput("pi_1"))
	if err != nil {
		t.Fatalf("second apply must not error: %v", err)
	}
	if applied {
		t.Fatal("second apply must be a no-op")
	}

	balance, _ := svc.CreditBalance(context.Background(), "user-1")
	if balance != 100 {
		t.Fatalf("expected single grant, got balance %d", balance)
	}
}

func TestApplyDuplicateFromAnotherProcess(t *testing.T) {
	t.Parallel()

	repo := newStubRepo()

	// A record inserted elsewhere collides on the unique intent_ref index.
	first := newTestService(t, repo, nil)
	if _, err := first.Apply(context.Background(), creditInput("pi_1")); err != nil {
		t.Fatalf("seed apply: %v", err)
	}

	second := newTestService(t, repo, nil)
	applied, err := second.Apply(context.Background(), creditInput("pi_1"))
	if err != nil {
		t.Fatalf("duplicate apply must not error: %v", err)
	}
	if applied {
		t.Fatal("duplicate apply must be a no-op")
	}
}

func TestApplyConcurrentCallbacksCollapse(t *testing.T) {
	t.Parallel()

	repo := newStubRepo()
	svc := newTestService(t, repo, nil)

	var wg sync.WaitGroup
	appliedCount := make(chan bool, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			applied, err := svc.Apply(context.Background(), creditInput("pi_1"))
			if err != nil {
				t.Errorf("Apply: %v", err)
			}
			appliedCount <- applied
		}()
	}
	wg.Wait()
	close(appliedCount)

	total := 0
	for applied := range appliedCount {
		if applied {
			total++
		}
	}
	if total != 1 {
		t.Fatalf("expected exactly one applied fulfillment, got %d", total)
	}

	balance, _ := svc.CreditBalance(context.Background(), "user-1")
	if balance != 100 {
		t.Fatalf("expected single grant, got balance %d", balance)
	}
}

func TestApplyMembershipIncrementsFundingTotal(t *testing.T) {
	t.Parallel()

	repo := newStubRepo()
	svc := newTestService(t, repo, nil)

	applied, err := svc.Apply(context.Background(), Input{
		IntentRef:   "pi_2",
		UserID:      "user-1",
		Kind:        enums.FulfillmentKindMembership,
		Tier:        enums.MembershipTierPatron,
		AmountCents: 5000,
	})
	if err != nil || !applied {
		t.Fatalf("Apply: applied=%v err=%v", applied, err)
	}

	if len(repo.memberships) != 1 {
		t.Fatalf("expected one membership, got %d", len(repo.memberships))
	}
	total, err := svc.FundingTotal(context.Background())
	if err != nil {
		t.Fatalf("FundingTotal: %v", err)
	}
	if total != 5000 {
		t.Fatalf("expected funding total 5000, got %d", total)
	}
}

func TestApplyOrderClearsCart(t *testing.T) {
	t.Parallel()

	repo := newStubRepo()
	carts := &stubCarts{}
	svc := newTestService(t, repo, carts)

	applied, err := svc.Apply(context.Background(), Input{
		IntentRef: "pi_3",
		UserID:    "user-1",
		Kind:      enums.FulfillmentKindOrder,
		CartOwner: "user-1",
	})
	if err != nil || !applied {
		t.Fatalf("Apply: applied=%v err=%v", applied, err)
	}
	if len(carts.cleared) != 1 || carts.cleared[0] != "user-1" {
		t.Fatalf("expected cart cleared for user-1, got %v", carts.cleared)
	}
}

func TestApplyOrderCartClearFailureStillFulfilled(t *testing.T) {
	t.Parallel()

	repo := newStubRepo()
	carts := &stubCarts{clearErr: errors.New("redis down")}
	svc := newTestService(t, repo, carts)

	applied, err := svc.Apply(context.Background(), Input{
		IntentRef: "pi_4",
		UserID:    "user-1",
		Kind:      enums.FulfillmentKindOrder,
		CartOwner: "user-1",
	})
	if !applied {
		t.Fatal("fulfillment must stand even when the cart clear fails")
	}
	if err == nil {
		t.Fatal("expected the clear failure to be reported")
	}

	// The intent stays pinned; a retry must not double-apply.
	applied, err = svc.Apply(context.Background(), Input{
		IntentRef: "pi_4",
		UserID:    "user-1",
		Kind:      enums.FulfillmentKindOrder,
		CartOwner: "user-1",
	})
	if err != nil || applied {
		t.Fatalf("expected no-op on retry, applied=%v err=%v", applied, err)
	}
}

func TestApplyTransientFailureReleasesGuard(t *testing.T) {
	t.Parallel()

	repo := newStubRepo()
	repo.recordErr = errors.New("connection reset")
	svc := newTestService(t, repo, nil)

	if _, err := svc.Apply(context.Background(), creditInput("pi_5")); err == nil {
		t.Fatal("expected transient failure to surface")
	}

	// Once the dependency recovers the same intent can be applied.
	repo.recordErr = nil
	applied, err := svc.Apply(context.Background(), creditInput("pi_5"))
	if err != nil || !applied {
		t.Fatalf("expected apply after recovery, applied=%v err=%v", applied, err)
	}
}

func TestApplyValidatesInput(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, newStubRepo(), nil)

	cases := []struct {
		name  string
		input Input
	}{
		{"missing intent ref", Input{UserID: "user-1", Kind: enums.FulfillmentKindOrder, CartOwner: "user-1"}},
		{"missing user", Input{IntentRef: "pi_1", Kind: enums.FulfillmentKindOrder, CartOwner: "user-1"}},
		{"unknown kind", Input{IntentRef: "pi_1", UserID: "user-1", Kind: "mystery"}},
		{"zero credits", Input{IntentRef: "pi_1", UserID: "user-1", Kind: enums.FulfillmentKindCreditGrant, PackageName: "Starter"}},
		{"bad tier", Input{IntentRef: "pi_1", UserID: "user-1", Kind: enums.FulfillmentKindMembership, AmountCents: 100, Tier: "gold"}},
		{"order without owner", Input{IntentRef: "pi_1", UserID: "user-1", Kind: enums.FulfillmentKindOrder}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := svc.Apply(context.Background(), tc.input); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

type fakeClaims struct {
	mu   sync.Mutex
	keys map[string]struct{}
	dels []string
}

func newFakeClaims() *fakeClaims {
	return &fakeClaims{keys: map[string]struct{}{}}
}

func (c *fakeClaims) SetNX(_ context.Context, key string, _ any, _ time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, taken := c.keys[key]; taken {
		return false, nil
	}
	c.keys[key] = struct{}{}
	return true, nil
}

func (c *fakeClaims) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		delete(c.keys, key)
		c.dels = append(c.dels, key)
	}
	return nil
}

func (c *fakeClaims) IdempotencyKey(scope, id string) string {
	return "sf:idempotency:" + scope + ":" + id
}

func TestApplyClaimHeldByAnotherProcessIsNoOp(t *testing.T) {
	t.Parallel()

	claims := newFakeClaims()
	claims.keys[claims.IdempotencyKey(claimScope, "pi_6")] = struct{}{}

	repo := newStubRepo()
	svc, err := NewService(stubTxRunner{}, repo, &stubCarts{}, claims, testLogger())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	applied, err := svc.Apply(context.Background(), creditInput("pi_6"))
	if err != nil || applied {
		t.Fatalf("expected no-op while the claim is held, applied=%v err=%v", applied, err)
	}
	if len(repo.records) != 0 {
		t.Fatalf("expected no fulfillment rows, got %d", len(repo.records))
	}
}

func TestApplyTransientFailureReleasesClaim(t *testing.T) {
	t.Parallel()

	claims := newFakeClaims()
	repo := newStubRepo()
	repo.recordErr = errors.New("connection reset")
	svc, err := NewService(stubTxRunner{}, repo, &stubCarts{}, claims, testLogger())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	if _, err := svc.Apply(context.Background(), creditInput("pi_7")); err == nil {
		t.Fatal("expected transient failure to surface")
	}
	if len(claims.dels) != 1 {
		t.Fatalf("expected the claim key to be released, dels=%v", claims.dels)
	}

	repo.recordErr = nil
	applied, err := svc.Apply(context.Background(), creditInput("pi_7"))
	if err != nil || !applied {
		t.Fatalf("expected apply after recovery, applied=%v err=%v", applied, err)
	}
}
