package stripe

import (
	"context"
	"testing"

	"github.com/nvasquez/stagefront-backend/pkg/config"
)

func TestNewClientValidatesKeyAgainstEnv(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	if _, err := NewClient(ctx, config.StripeConfig{APIKey: "sk_test_123", Env: "test"}, nil); err != nil {
		t.Fatalf("expected test key to be accepted: %v", err)
	}
	if _, err := NewClient(ctx, config.StripeConfig{APIKey: "sk_live_123", Env: "test"}, nil); err == nil {
		t.Fatal("expected live key in test env to be rejected")
	}
	if _, err := NewClient(ctx, config.StripeConfig{APIKey: "", Env: "test"}, nil); err == nil {
		t.Fatal("expected missing key to be rejected")
	}
	if _, err := NewClient(ctx, config.StripeConfig{APIKey: "sk_test_123", Env: "staging"}, nil); err == nil {
		t.Fatal("expected unknown env to be rejected")
	}
}

func TestIntentIDFromClientSecret(t *testing.T) {
	t.Parallel()

	id, err := IntentIDFromClientSecret("pi_123_secret_456")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "pi_123" {
		t.Fatalf("unexpected id %q", id)
	}

	if _, err := IntentIDFromClientSecret(""); err == nil {
		t.Fatal("expected error for empty secret")
	}
	if _, err := IntentIDFromClientSecret("pi_123"); err == nil {
		t.Fatal("expected error for malformed secret")
	}
}
