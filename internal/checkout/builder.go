package checkout

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-checkout/internal/pricing"
	pkgcheckout "github.com/angelmondragon/marketplace-checkout/pkg/checkout"
	"github.com/angelmondragon/marketplace-checkout/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-checkout/pkg/errors"
	"github.com/angelmondragon/marketplace-checkout/pkg/types"
)

type BuildParams struct {
	SessionID         uuid.UUID
	CustomerID        uuid.UUID
	Currency          enums.Currency
	Breakdowns        []pricing.Breakdown
	DeliveryMode      enums.DeliveryMode
	DeliveryAddress   *types.Address
	ScheduledFor      *time.Time
	PromoCode         *string
	LoyaltyPointsUsed int
	Now               time.Time
	TTL               time.Duration
}

// BuildSession turns priced breakdowns into a session with one PENDING draft
// per vendor, in breakdown order. The aggregate total is the sum of the draft totals.
func BuildSession(p BuildParams) (*Session, error) {
	if len(p.Breakdowns) == 0 {
		return nil, pkgcheckout.EmptyCart()
	}
	if err := validateFulfillment(p); err != nil {
		return nil, err
	}

	id := p.SessionID
	if id == uuid.Nil {
		id = uuid.New()
	}
	now := p.Now.UTC()

	session := &Session{
		ID:                id,
		CustomerID:        p.CustomerID,
		Currency:          p.Currency,
		DeliveryMode:      p.DeliveryMode,
		ScheduledFor:      p.ScheduledFor,
		PromoCode:         p.PromoCode,
		LoyaltyPointsUsed: p.LoyaltyPointsUsed,
		Drafts:            make([]DraftOrder, 0, len(p.Breakdowns)),
		Totals:            pricing.Aggregate(p.Breakdowns),
		CreatedAt:         now,
		ExpiresAt:         now.Add(p.TTL),
	}
	if p.DeliveryMode == enums.DeliveryModeDelivery && p.DeliveryAddress != nil {
		addr := p.DeliveryAddress.Normalize()
		session.DeliveryAddress = &addr
	}

	for i, b := range p.Breakdowns {
		session.Drafts = append(session.Drafts, DraftOrder{
			Position:             i,
			VendorID:             b.Group.VendorID,
			VendorName:           b.Group.VendorName,
			Lines:                b.Group.Lines,
			Status:               enums.OrderStatusPending,
			SubtotalCents:        b.SubtotalCents,
			DeliveryFeeCents:     b.DeliveryFeeCents,
			PlatformFeeCents:     b.PlatformFeeCents,
			TaxCents:             b.TaxCents,
			PromoDiscountCents:   b.PromoDiscountCents,
			LoyaltyDiscountCents: b.LoyaltyDiscountCents,
			DiscountCents:        b.DiscountCents,
			TotalCents:           b.TotalCents,
			EstimatedPrepMinutes: b.Policy.EstimatedPrepMinutes,
		})
		session.AggregateTotalCents += b.TotalCents
	}
	return session, nil
}

func validateFulfillment(p BuildParams) error {
	if !p.DeliveryMode.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "delivery mode must be DELIVERY or PICKUP")
	}
	if p.DeliveryMode == enums.DeliveryModeDelivery {
		if p.DeliveryAddress == nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "delivery address is required for delivery orders")
		}
		if err := p.DeliveryAddress.Validate(); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid delivery address")
		}
	}
	if p.ScheduledFor != nil && !p.ScheduledFor.After(p.Now) {
		return pkgerrors.New(pkgerrors.CodeValidation, "scheduled time must be in the future")
	}
	return nil
}
