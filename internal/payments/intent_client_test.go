package payments

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nvasquez/stagefront-backend/pkg/auth"
	"github.com/nvasquez/stagefront-backend/pkg/config"
	pkgerrors "github.com/nvasquez/stagefront-backend/pkg/errors"
	"github.com/nvasquez/stagefront-backend/pkg/enums"
	"github.com/nvasquez/stagefront-backend/pkg/logger"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "stagefront-test",
		ExpirationMinutes: 5,
	}
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func newTestClient(t *testing.T, endpoint string) IntentClient {
	t.Helper()
	client, err := NewIntentClient(
		config.PaymentsConfig{IntentEndpoint: endpoint},
		testJWTConfig(),
		nil,
		testLogger(),
	)
	if err != nil {
		t.Fatalf("NewIntentClient: %v", err)
	}
	return client
}

func creditIntentRequest() IntentRequest {
	return IntentRequest{
		Kind:        enums.FulfillmentKindCreditGrant,
		Label:       "Starter Pack",
		AmountCents: 999,
		Currency:    enums.CurrencyUSD,
	}
}

func TestCreateIntentSendsBearerTokenAndBody(t *testing.T) {
	t.Parallel()

	var gotAuth string
	var gotBody intentRequestBody
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		w.Write([]byte(`{"clientSecret": "pi_123_secret_456"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	intent, err := client.CreateIntent(context.Background(), "user-1", creditIntentRequest())
	if err != nil {
		t.Fatalf("CreateIntent: %v", err)
	}
	if intent.ClientSecret != "pi_123_secret_456" {
		t.Fatalf("unexpected client secret %q", intent.ClientSecret)
	}

	if !strings.HasPrefix(gotAuth, "Bearer ") {
		t.Fatalf("expected bearer authorization, got %q", gotAuth)
	}
	claims, err := auth.ParseSessionToken(testJWTConfig(), strings.TrimPrefix(gotAuth, "Bearer "))
	if err != nil {
		t.Fatalf("bearer token should be a valid session token: %v", err)
	}
	if claims.UserID != "user-1" {
		t.Fatalf("unexpected token user %q", claims.UserID)
	}

	if gotBody.Kind != "credit_grant" || gotBody.Label != "Starter Pack" || gotBody.AmountCents != 999 {
		t.Fatalf("unexpected request body %+v", gotBody)
	}
}

func TestCreateIntentErrorFieldIsFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"error": "amount does not match package"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.CreateIntent(context.Background(), "user-1", creditIntentRequest())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if typed.Message() != "amount does not match package" {
		t.Fatalf("expected upstream message to carry through, got %q", typed.Message())
	}
}

func TestCreateIntentMissingClientSecret(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.CreateIntent(context.Background(), "user-1", creditIntentRequest())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if typed.Message() != "no client secret returned" {
		t.Fatalf("unexpected message %q", typed.Message())
	}
}

func TestCreateIntentDoesNotRetry(t *testing.T) {
	t.Parallel()

	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	if _, err := client.CreateIntent(context.Background(), "user-1", creditIntentRequest()); err == nil {
		t.Fatal("expected upstream failure to surface")
	}
	if calls != 1 {
		t.Fatalf("expected exactly one upstream call, got %d", calls)
	}
}

func TestCreateIntentValidatesInput(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, "https://unused.example.com")

	req := creditIntentRequest()
	req.AmountCents = 0
	if _, err := client.CreateIntent(context.Background(), "user-1", req); err == nil {
		t.Fatal("expected non-positive amount to be rejected")
	}

	req = creditIntentRequest()
	req.Kind = "mystery"
	if _, err := client.CreateIntent(context.Background(), "user-1", req); err == nil {
		t.Fatal("expected unknown kind to be rejected")
	}
}

func TestCreateIntentGuestSubject(t *testing.T) {
	t.Parallel()

	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"clientSecret": "pi_123_secret_456"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	if _, err := client.CreateIntent(context.Background(), "", creditIntentRequest()); err != nil {
		t.Fatalf("CreateIntent: %v", err)
	}

	claims, err := auth.ParseSessionToken(testJWTConfig(), strings.TrimPrefix(gotAuth, "Bearer "))
	if err != nil {
		t.Fatalf("parse bearer token: %v", err)
	}
	if claims.UserID != GuestSubject {
		t.Fatalf("expected guest subject, got %q", claims.UserID)
	}
}

func TestCreateIntentUnconfiguredEndpoint(t *testing.T) {
	t.Parallel()

	client, err := NewIntentClient(config.PaymentsConfig{}, testJWTConfig(), nil, testLogger())
	if err != nil {
		t.Fatalf("NewIntentClient: %v", err)
	}

	_, err = client.CreateIntent(context.Background(), "user-1", creditIntentRequest())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConfiguration {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
