package checkout

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-checkout/internal/cart"
	"github.com/angelmondragon/marketplace-checkout/internal/pricing"
	"github.com/angelmondragon/marketplace-checkout/pkg/enums"
	"github.com/angelmondragon/marketplace-checkout/pkg/types"
)

// DraftOrder is the unpersisted order for one vendor inside a session.
type DraftOrder struct {
	Position             int               `json:"position"`
	VendorID             uuid.UUID         `json:"vendor_id"`
	VendorName           string            `json:"vendor_name"`
	Lines                []cart.Line       `json:"lines"`
	Status               enums.OrderStatus `json:"status"`
	SubtotalCents        int               `json:"subtotal_cents"`
	DeliveryFeeCents     int               `json:"delivery_fee_cents"`
	PlatformFeeCents     int               `json:"platform_fee_cents"`
	TaxCents             int               `json:"tax_cents"`
	PromoDiscountCents   int               `json:"promo_discount_cents"`
	LoyaltyDiscountCents int               `json:"loyalty_discount_cents"`
	DiscountCents        int               `json:"discount_cents"`
	TotalCents           int               `json:"total_cents"`
	EstimatedPrepMinutes int               `json:"estimated_prep_minutes"`
}

// Session is one payment intent covering a draft order per vendor.
type Session struct {
	ID                  uuid.UUID          `json:"id"`
	CustomerID          uuid.UUID          `json:"customer_id"`
	Currency            enums.Currency     `json:"currency"`
	DeliveryMode        enums.DeliveryMode `json:"delivery_mode"`
	DeliveryAddress     *types.Address     `json:"delivery_address,omitempty"`
	ScheduledFor        *time.Time         `json:"scheduled_for,omitempty"`
	PromoCode           *string            `json:"promo_code,omitempty"`
	LoyaltyPointsUsed   int                `json:"loyalty_points_used"`
	Drafts              []DraftOrder       `json:"drafts"`
	Totals              pricing.Totals     `json:"totals"`
	AggregateTotalCents int                `json:"aggregate_total_cents"`
	CreatedAt           time.Time          `json:"created_at"`
	ExpiresAt           time.Time          `json:"expires_at"`
}

// IsExpired reports whether the session can no longer be confirmed at now.
func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
