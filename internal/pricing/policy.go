package pricing

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/marketplace-checkout/pkg/checkout"
	"github.com/angelmondragon/marketplace-checkout/pkg/enums"
)

// Policy is the set of vendor rules that affect pricing.
type Policy struct {
	VendorID             uuid.UUID
	VendorName           string
	MinimumOrderCents    int
	DeliveryFeeCents     int
	PlatformFeeType      enums.PlatformFeeType
	PlatformFeeValue     decimal.Decimal
	EstimatedPrepMinutes int
}

// PlatformFeeCents is the platform fee charged on a vendor subtotal.
func (p Policy) PlatformFeeCents(subtotalCents int) int {
	switch p.PlatformFeeType {
	case enums.PlatformFeePercentage:
		return checkout.PercentOf(subtotalCents, p.PlatformFeeValue)
	case enums.PlatformFeeFixed:
		return int(p.PlatformFeeValue.Round(0).IntPart())
	default:
		return 0
	}
}

// PolicyStore loads vendor policies. Vendors without a policy are absent from the result.
type PolicyStore interface {
	FindPolicies(ctx context.Context, vendorIDs []uuid.UUID) (map[uuid.UUID]Policy, error)
}
