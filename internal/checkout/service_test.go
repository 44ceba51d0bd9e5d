package checkout

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/nvasquez/stagefront-backend/internal/cart"
	"github.com/nvasquez/stagefront-backend/pkg/config"
	pkgerrors "github.com/nvasquez/stagefront-backend/pkg/errors"
	"github.com/nvasquez/stagefront-backend/pkg/enums"
	"github.com/nvasquez/stagefront-backend/pkg/flags"
	"github.com/nvasquez/stagefront-backend/pkg/logger"
	"github.com/nvasquez/stagefront-backend/pkg/types"
)

type stubCarts struct {
	lines   []types.CartLine
	cleared bool
}

func (s *stubCarts) Add(context.Context, string, types.Product, types.Variant, int, int) error {
	return nil
}

func (s *stubCarts) Remove(context.Context, string, uuid.UUID) error { return nil }

func (s *stubCarts) UpdateQuantity(context.Context, string, uuid.UUID, int) error { return nil }

func (s *stubCarts) Clear(context.Context, string) error {
	s.cleared = true
	return nil
}

func (s *stubCarts) Lines(context.Context, string) ([]types.CartLine, error) {
	return s.lines, nil
}

func (s *stubCarts) Total(context.Context, string) (string, error) { return "", nil }

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func seededLines() []types.CartLine {
	return []types.CartLine{{
		Product: types.Product{ID: uuid.New(), Title: "Tour Poster"},
		Variant: types.Variant{
			ID:         uuid.New(),
			Title:      "18x24",
			PriceCents: 2500,
			Currency:   enums.CurrencyUSD,
		},
		Quantity: 2,
	}}
}

func newTestService(t *testing.T, endpoint string, gateEnabled bool, carts cart.Service) Service {
	t.Helper()
	svc, err := NewService(
		config.CommerceConfig{CheckoutSessionEndpoint: endpoint},
		flags.NewGate(gateEnabled),
		carts,
		nil,
		testLogger(),
	)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestInitializeReturnsSessionURL(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		w.Write([]byte(`{"url": "https://checkout.example.com/session/abc"}`))
	}))
	defer server.Close()

	svc := newTestService(t, server.URL, true, &stubCarts{lines: seededLines()})

	session, err := svc.Initialize(context.Background(), "user-1", "https://shop.example.com/success", "https://shop.example.com/cancel")
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if session.URL != "https://checkout.example.com/session/abc" {
		t.Fatalf("unexpected session url %q", session.URL)
	}
}

func TestInitializeRejectsWhenGateClosed(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, "https://unused.example.com", false, &stubCarts{lines: seededLines()})

	_, err := svc.Initialize(context.Background(), "user-1", "https://shop.example.com/success", "https://shop.example.com/cancel")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConfiguration {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestInitializeRejectsEmptyCart(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, "https://unused.example.com", true, &stubCarts{})

	_, err := svc.Initialize(context.Background(), "user-1", "https://shop.example.com/success", "https://shop.example.com/cancel")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestInitializeTreatsErrorFieldAsFailure(t *testing.T) {
	t.Parallel()

	// The hosted checkout API reports failures inside a 200 response.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"error": "variant is out of stock"}`))
	}))
	defer server.Close()

	svc := newTestService(t, server.URL, true, &stubCarts{lines: seededLines()})

	_, err := svc.Initialize(context.Background(), "user-1", "https://shop.example.com/success", "https://shop.example.com/cancel")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if typed.Message() != "variant is out of stock" {
		t.Fatalf("expected upstream message to carry through, got %q", typed.Message())
	}
}

func TestInitializeMissingURLIsFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	svc := newTestService(t, server.URL, true, &stubCarts{lines: seededLines()})

	_, err := svc.Initialize(context.Background(), "user-1", "https://shop.example.com/success", "https://shop.example.com/cancel")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error for missing url, got %v", err)
	}
}

func TestInitializeDoesNotRetryUpstreamErrors(t *testing.T) {
	t.Parallel()

	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	svc := newTestService(t, server.URL, true, &stubCarts{lines: seededLines()})

	if _, err := svc.Initialize(context.Background(), "user-1", "https://shop.example.com/success", "https://shop.example.com/cancel"); err == nil {
		t.Fatal("expected upstream failure to surface")
	}
	if calls != 1 {
		t.Fatalf("expected exactly one upstream call, got %d", calls)
	}
}

func TestCompleteClearsCart(t *testing.T) {
	t.Parallel()

	carts := &stubCarts{lines: seededLines()}
	svc := newTestService(t, "https://unused.example.com", true, carts)

	if err := svc.Complete(context.Background(), "user-1"); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if !carts.cleared {
		t.Fatal("expected Complete to clear the cart")
	}
}
