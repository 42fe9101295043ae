package cart

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-checkout/pkg/checkout"
	pkgerrors "github.com/angelmondragon/marketplace-checkout/pkg/errors"
)

// Partition groups lines by vendor. Groups are ordered by the first
// appearance of their vendor in lines, and lines keep their relative order
// inside each group. The input slice is not modified.
func Partition(lines []Line) ([]VendorGroup, error) {
	if len(lines) == 0 {
		return nil, checkout.EmptyCart()
	}
	if err := ValidateLines(lines); err != nil {
		return nil, err
	}

	index := make(map[uuid.UUID]int, len(lines))
	groups := make([]VendorGroup, 0, len(lines))
	for _, line := range lines {
		pos, ok := index[line.VendorID]
		if !ok {
			pos = len(groups)
			index[line.VendorID] = pos
			groups = append(groups, VendorGroup{
				VendorID:   line.VendorID,
				VendorName: line.VendorName,
			})
		}
		group := &groups[pos]
		group.Lines = append(group.Lines, line)
		group.SubtotalCents += line.SubtotalCents()
	}
	return groups, nil
}

// ValidateLines rejects lines that cannot be priced.
func ValidateLines(lines []Line) error {
	var problems []map[string]any
	for i, line := range lines {
		var reason string
		switch {
		case line.VendorID == uuid.Nil:
			reason = "vendor_id is required"
		case line.ProductID == uuid.Nil:
			reason = "product_id is required"
		case line.Quantity < 1:
			reason = "quantity must be at least 1"
		case line.UnitPriceCents < 0:
			reason = "unit_price_cents must not be negative"
		default:
			continue
		}
		problems = append(problems, map[string]any{"line": i, "reason": reason})
	}
	if len(problems) == 0 {
		return nil
	}
	return pkgerrors.Newf(pkgerrors.CodeValidation, "%d cart line(s) are invalid", len(problems)).WithDetails(map[string]any{
		"lines": problems,
	})
}
