package checkout

import (
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/marketplace-checkout/pkg/errors"
)

func EmptyCart() *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeEmptyCart, "cart has no lines")
}

// InvalidPromoCode covers unknown codes as well as inactive or not yet started ones.
func InvalidPromoCode(code, reason string) *pkgerrors.Error {
	return pkgerrors.Newf(pkgerrors.CodeInvalidPromoCode, "promo code %q is not valid", code).WithDetails(map[string]any{
		"code":   code,
		"reason": reason,
	})
}

func PromoMinimumNotMet(code string, minimumCents, subtotalCents int) *pkgerrors.Error {
	return pkgerrors.Newf(pkgerrors.CodePromoMinimumNotMet, "promo code %q requires a subtotal of at least %s", code, FormatCents(minimumCents)).WithDetails(map[string]any{
		"code":           code,
		"minimum_cents":  minimumCents,
		"subtotal_cents": subtotalCents,
	})
}

func PromoExpired(code string, expiredAt time.Time) *pkgerrors.Error {
	return pkgerrors.Newf(pkgerrors.CodePromoExpired, "promo code %q has expired", code).WithDetails(map[string]any{
		"code":       code,
		"expired_at": expiredAt.UTC(),
	})
}

// InvalidRedemption reports a loyalty request that breaks the increment, balance or subtotal rules.
func InvalidRedemption(reason string, requested, balance, maxRedeemable int) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeInvalidRedemption, reason).WithDetails(map[string]any{
		"requested_points":      requested,
		"balance_points":        balance,
		"max_redeemable_points": maxRedeemable,
	})
}

func SessionNotFound(sessionID uuid.UUID) *pkgerrors.Error {
	return pkgerrors.Newf(pkgerrors.CodeSessionNotFound, "checkout session %s not found", sessionID)
}

func SessionExpired(sessionID uuid.UUID, expiredAt time.Time) *pkgerrors.Error {
	return pkgerrors.Newf(pkgerrors.CodeSessionExpired, "checkout session %s expired", sessionID).WithDetails(map[string]any{
		"session_id": sessionID,
		"expired_at": expiredAt.UTC(),
	})
}

func InvalidStatusTransition(orderID uuid.UUID, from, to string) *pkgerrors.Error {
	return pkgerrors.Newf(pkgerrors.CodeInvalidStatusTransition, "order cannot move from %s to %s", from, to).WithDetails(map[string]any{
		"order_id": orderID,
		"from":     from,
		"to":       to,
	})
}
