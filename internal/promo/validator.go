package promo

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/marketplace-checkout/pkg/checkout"
	pkgerrors "github.com/angelmondragon/marketplace-checkout/pkg/errors"
)

// Store resolves a normalized code to its rule. Unknown codes return (nil, nil).
type Store interface {
	FindByCode(ctx context.Context, code string) (*Rule, error)
}

// Validator checks a promo code against the aggregate pre-discount subtotal.
type Validator struct {
	store Store
	now   func() time.Time
}

func NewValidator(store Store, now func() time.Time) (*Validator, error) {
	if store == nil {
		return nil, fmt.Errorf("promo store required")
	}
	if now == nil {
		now = time.Now
	}
	return &Validator{store: store, now: now}, nil
}

// Validate resolves code and returns the discount it grants on subtotalCents.
// Checks run in this order: existence, active window, expiry, minimum order.
func (v *Validator) Validate(ctx context.Context, code string, subtotalCents int) (*Applied, error) {
	normalized := NormalizeCode(code)
	if normalized == "" {
		return nil, checkout.InvalidPromoCode(code, "empty")
	}

	rule, err := v.store.FindByCode(ctx, normalized)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup promo code")
	}
	if rule == nil {
		return nil, checkout.InvalidPromoCode(normalized, "unknown")
	}
	if !rule.Active {
		return nil, checkout.InvalidPromoCode(normalized, "inactive")
	}

	now := v.now()
	if rule.StartsAt != nil && now.Before(*rule.StartsAt) {
		return nil, checkout.InvalidPromoCode(normalized, "not_started")
	}
	if rule.ExpiresAt != nil && !now.Before(*rule.ExpiresAt) {
		return nil, checkout.PromoExpired(normalized, *rule.ExpiresAt)
	}
	if rule.MinimumOrderCents != nil && subtotalCents < *rule.MinimumOrderCents {
		return nil, checkout.PromoMinimumNotMet(normalized, *rule.MinimumOrderCents, subtotalCents)
	}

	return &Applied{
		Rule:          *rule,
		DiscountCents: rule.DiscountCents(subtotalCents),
	}, nil
}
