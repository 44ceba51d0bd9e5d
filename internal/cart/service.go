package cart

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	pkgerrors "github.com/nvasquez/stagefront-backend/pkg/errors"
	"github.com/nvasquez/stagefront-backend/pkg/money"
	"github.com/nvasquez/stagefront-backend/pkg/types"
)

// Service exposes the cart store operations.
type Service interface {
	Add(ctx context.Context, owner string, product types.Product, variant types.Variant, quantity, availableQuantity int) error
	Remove(ctx context.Context, owner string, variantID uuid.UUID) error
	UpdateQuantity(ctx context.Context, owner string, variantID uuid.UUID, quantity int) error
	Clear(ctx context.Context, owner string) error
	Lines(ctx context.Context, owner string) ([]types.CartLine, error)
	Total(ctx context.Context, owner string) (string, error)
}

type service struct {
	storage Storage

	// Single writer per process; the mutex serializes the load-mutate-save
	// cycle so a mutation never observes a half-written collection.
	mu sync.Mutex
}

// NewService builds a cart service backed by the provided storage slot.
func NewService(storage Storage) (Service, error) {
	if storage == nil {
		return nil, fmt.Errorf("cart storage required")
	}
	return &service{storage: storage}, nil
}

// Add merges the requested quantity into an existing line for the same
// variant or appends a new line. When the variant tracks inventory the
// combined quantity must fit under availableQuantity; a violation is a
// rejected operation, never a silent clamp.
func (s *service) Add(ctx context.Context, owner string, product types.Product, variant types.Variant, quantity, availableQuantity int) error {
	if strings.TrimSpace(owner) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart owner is required")
	}
	if variant.ID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "variant id is required")
	}
	if quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	lines, err := s.load(ctx, owner)
	if err != nil {
		return err
	}

	existing := -1
	for i, line := range lines {
		if line.Variant.ID == variant.ID {
			existing = i
			break
		}
	}

	inCart := 0
	if existing >= 0 {
		inCart = lines[existing].Quantity
	}

	if variant.ManageInventory && inCart+quantity > availableQuantity {
		remaining := availableQuantity - inCart
		if remaining < 0 {
			remaining = 0
		}
		return pkgerrors.New(
			pkgerrors.CodeValidation,
			fmt.Sprintf("insufficient stock for %s (%s): only %d available", product.Title, variant.Title, remaining),
		).WithDetails(map[string]any{
			"product_id": product.ID,
			"variant_id": variant.ID,
			"remaining":  remaining,
		})
	}

	if existing >= 0 {
		lines[existing].Quantity += quantity
	} else {
		lines = append(lines, types.CartLine{
			Product:  product,
			Variant:  variant,
			Quantity: quantity,
		})
	}

	return s.save(ctx, owner, lines)
}

// Remove drops the line for the variant; absent lines are a no-op.
func (s *service) Remove(ctx context.Context, owner string, variantID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines, err := s.load(ctx, owner)
	if err != nil {
		return err
	}

	kept := lines[:0]
	removed := false
	for _, line := range lines {
		if line.Variant.ID == variantID {
			removed = true
			continue
		}
		kept = append(kept, line)
	}
	if !removed {
		return nil
	}

	return s.save(ctx, owner, kept)
}

// UpdateQuantity sets the line's quantity directly. Unlike Add it does NOT
// re-validate against inventory; callers clamp to >= 1. The asymmetry is
// load-bearing for the storefront UI and must not be "fixed" here.
func (s *service) UpdateQuantity(ctx context.Context, owner string, variantID uuid.UUID, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines, err := s.load(ctx, owner)
	if err != nil {
		return err
	}

	for i, line := range lines {
		if line.Variant.ID != variantID {
			continue
		}
		if quantity <= 0 {
			return s.save(ctx, owner, append(lines[:i], lines[i+1:]...))
		}
		lines[i].Quantity = quantity
		return s.save(ctx, owner, lines)
	}

	return pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
}

// Clear empties the collection.
func (s *service) Clear(ctx context.Context, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.storage.Delete(ctx, owner); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

// Lines returns the hydrated collection.
func (s *service) Lines(ctx context.Context, owner string) ([]types.CartLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx, owner)
}

// Total formats the cart total, or returns the empty sentinel for a cart
// with no lines. The total is rendered in the first line's currency; the
// catalog is single-currency, mixed-currency carts are not summed correctly.
func (s *service) Total(ctx context.Context, owner string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines, err := s.load(ctx, owner)
	if err != nil {
		return "", err
	}
	if len(lines) == 0 {
		return money.EmptyCartTotal, nil
	}

	var total int64
	for _, line := range lines {
		total += line.LineTotalCents()
	}
	return money.Format(total, lines[0].Variant.Currency), nil
}

func (s *service) load(ctx context.Context, owner string) ([]types.CartLine, error) {
	lines, err := s.storage.Load(ctx, owner)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return lines, nil
}

func (s *service) save(ctx context.Context, owner string, lines []types.CartLine) error {
	if err := s.storage.Save(ctx, owner, lines); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist cart")
	}
	return nil
}
