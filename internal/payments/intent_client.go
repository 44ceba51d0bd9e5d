package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nvasquez/stagefront-backend/pkg/auth"
	"github.com/nvasquez/stagefront-backend/pkg/config"
	pkgerrors "github.com/nvasquez/stagefront-backend/pkg/errors"
	"github.com/nvasquez/stagefront-backend/pkg/enums"
	"github.com/nvasquez/stagefront-backend/pkg/logger"
)

// IntentRequest describes the purchase the external intent function should
// price and create an intent for.
type IntentRequest struct {
	Kind        enums.FulfillmentKind
	Label       string
	AmountCents int64
	Currency    enums.Currency
}

// Intent is the created payment intent handle. The clientSecret is single-use;
// a failed confirmation requires a fresh intent.
type Intent struct {
	ClientSecret string
}

// GuestSubject is the token subject used when no user is signed in.
const GuestSubject = "guest"

// IntentClient creates payment intents through the external function.
type IntentClient interface {
	CreateIntent(ctx context.Context, userID string, req IntentRequest) (*Intent, error)
}

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type intentClient struct {
	cfg    config.PaymentsConfig
	jwtCfg config.JWTConfig
	http   httpDoer
	logg   *logger.Logger
	now    func() time.Time
}

// NewIntentClient builds the client for the create-payment-intent function.
func NewIntentClient(cfg config.PaymentsConfig, jwtCfg config.JWTConfig, client httpDoer, logg *logger.Logger) (IntentClient, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.RequestTimeout}
	}
	return &intentClient{
		cfg:    cfg,
		jwtCfg: jwtCfg,
		http:   client,
		logg:   logg,
		now:    time.Now,
	}, nil
}

type intentRequestBody struct {
	Kind        string `json:"kind"`
	Label       string `json:"label"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
}

type intentResponseBody struct {
	ClientSecret string `json:"clientSecret"`
	Error        string `json:"error"`
}

// CreateIntent posts the purchase descriptor with a bearer session token and
// returns the intent's client secret. Unauthenticated purchases run under the
// "guest" subject. Failures are surfaced to the caller as-is; the client never
// retries on its own.
func (c *intentClient) CreateIntent(ctx context.Context, userID string, req IntentRequest) (*Intent, error) {
	if strings.TrimSpace(c.cfg.IntentEndpoint) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "payment intent endpoint is not configured")
	}
	subject := strings.TrimSpace(userID)
	if subject == "" {
		subject = GuestSubject
	}
	if !req.Kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown purchase kind")
	}
	if req.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	token, err := auth.MintSessionToken(c.jwtCfg, c.now(), auth.SessionTokenPayload{UserID: subject})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint session token")
	}

	body, err := json.Marshal(intentRequestBody{
		Kind:        req.Kind.String(),
		Label:       req.Label,
		AmountCents: req.AmountCents,
		Currency:    req.Currency.String(),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode intent request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.IntentEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build intent request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment intent request failed")
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read intent response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, pkgerrors.New(
			pkgerrors.CodeDependency,
			fmt.Sprintf("payment intent request failed with status %d", resp.StatusCode),
		)
	}

	var parsed intentResponseBody
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode intent response")
	}
	if parsed.Error != "" {
		// An error field inside a 200 body is still a failed intent.
		return nil, pkgerrors.New(pkgerrors.CodeDependency, parsed.Error)
	}
	if strings.TrimSpace(parsed.ClientSecret) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "no client secret returned")
	}

	c.logg.Info(ctx, "payment intent created")
	return &Intent{ClientSecret: parsed.ClientSecret}, nil
}
