package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/nvasquez/stagefront-backend/internal/cart"
	"github.com/nvasquez/stagefront-backend/pkg/config"
	pkgerrors "github.com/nvasquez/stagefront-backend/pkg/errors"
	"github.com/nvasquez/stagefront-backend/pkg/flags"
	"github.com/nvasquez/stagefront-backend/pkg/logger"
)

// Session is the hosted checkout handoff returned to the storefront.
type Session struct {
	URL string `json:"url"`
}

// Service starts hosted checkout sessions from the current cart and finishes
// them after the shopper returns.
type Service interface {
	Initialize(ctx context.Context, owner, successURL, cancelURL string) (*Session, error)
	Complete(ctx context.Context, owner string) error
}

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type service struct {
	cfg   config.CommerceConfig
	gate  *flags.Gate
	carts cart.Service
	http  httpDoer
	logg  *logger.Logger
}

// NewService builds the checkout initiator.
func NewService(cfg config.CommerceConfig, gate *flags.Gate, carts cart.Service, client httpDoer, logg *logger.Logger) (Service, error) {
	if gate == nil {
		return nil, fmt.Errorf("payments gate required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.RequestTimeout}
	}
	return &service{
		cfg:   cfg,
		gate:  gate,
		carts: carts,
		http:  client,
		logg:  logg,
	}, nil
}

type sessionItem struct {
	VariantID uuid.UUID `json:"variant_id"`
	Quantity  int       `json:"quantity"`
}

type sessionRequest struct {
	Items      []sessionItem `json:"items"`
	SuccessURL string        `json:"success_url,omitempty"`
	CancelURL  string        `json:"cancel_url,omitempty"`
}

type sessionResponse struct {
	URL   string `json:"url"`
	Error string `json:"error"`
}

// Initialize maps the cart into session line items and exchanges them with the
// hosted checkout API for a redirect URL. The cart is left untouched; it is
// only cleared by Complete after the shopper finishes.
func (s *service) Initialize(ctx context.Context, owner, successURL, cancelURL string) (*Session, error) {
	if !s.gate.Enabled() {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "live payments are disabled")
	}
	if strings.TrimSpace(s.cfg.CheckoutSessionEndpoint) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "checkout endpoint is not configured")
	}

	lines, err := s.carts.Lines(ctx, owner)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	items := make([]sessionItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, sessionItem{
			VariantID: line.Variant.ID,
			Quantity:  line.Quantity,
		})
	}

	body, err := json.Marshal(sessionRequest{
		Items:      items,
		SuccessURL: successURL,
		CancelURL:  cancelURL,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode checkout request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.CheckoutSessionEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build checkout request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checkout unavailable")
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read checkout response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, pkgerrors.New(
			pkgerrors.CodeDependency,
			fmt.Sprintf("checkout session request failed with status %d", resp.StatusCode),
		)
	}

	var parsed sessionResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode checkout response")
	}
	if parsed.Error != "" {
		// A 200 carrying an error field is still a failed session.
		return nil, pkgerrors.New(pkgerrors.CodeDependency, parsed.Error)
	}
	if strings.TrimSpace(parsed.URL) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "checkout unavailable")
	}

	s.logg.Info(ctx, "checkout session created")
	return &Session{URL: parsed.URL}, nil
}

// Complete clears the cart after a finished checkout.
func (s *service) Complete(ctx context.Context, owner string) error {
	if err := s.carts.Clear(ctx, owner); err != nil {
		return err
	}
	s.logg.Info(ctx, "checkout completed, cart cleared")
	return nil
}
