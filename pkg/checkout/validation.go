package checkout

import (
	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/marketplace-checkout/pkg/errors"
)

// VendorMinimumInput describes one vendor group's subtotal against its policy minimum.
type VendorMinimumInput struct {
	VendorID      uuid.UUID
	VendorName    string
	MinimumCents  int
	SubtotalCents int
}

// VendorMinimumViolation is returned to callers for each vendor below its minimum.
type VendorMinimumViolation struct {
	VendorID      uuid.UUID `json:"vendor_id"`
	VendorName    string    `json:"vendor_name,omitempty"`
	RequiredCents int       `json:"required_cents"`
	ActualCents   int       `json:"actual_cents"`
}

// ValidateVendorMinimums fails the whole checkout when any vendor subtotal is
// below that vendor's minimum order. The top-level details describe the first
// violating vendor in input order; all violations are listed.
func ValidateVendorMinimums(groups []VendorMinimumInput) error {
	var violations []VendorMinimumViolation
	for _, group := range groups {
		if group.MinimumCents <= 0 {
			continue
		}
		if group.SubtotalCents < group.MinimumCents {
			violations = append(violations, VendorMinimumViolation{
				VendorID:      group.VendorID,
				VendorName:    group.VendorName,
				RequiredCents: group.MinimumCents,
				ActualCents:   group.SubtotalCents,
			})
		}
	}
	if len(violations) == 0 {
		return nil
	}

	first := violations[0]
	return pkgerrors.Newf(pkgerrors.CodeVendorMinimumNotMet, "vendor %s requires a minimum order of %s, cart has %s", first.VendorID, FormatCents(first.RequiredCents), FormatCents(first.ActualCents)).WithDetails(map[string]any{
		"vendor_id":      first.VendorID,
		"required_cents": first.RequiredCents,
		"actual_cents":   first.ActualCents,
		"violations":     violations,
	})
}
