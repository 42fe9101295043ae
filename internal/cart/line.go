package cart

import "github.com/google/uuid"

// Line is a cart line snapshot taken when the product was added to the cart.
type Line struct {
	ProductID      uuid.UUID `json:"product_id"`
	VendorID       uuid.UUID `json:"vendor_id"`
	VendorName     string    `json:"vendor_name"`
	ProductName    string    `json:"product_name"`
	UnitPriceCents int       `json:"unit_price_cents"`
	Quantity       int       `json:"quantity"`
}

// SubtotalCents is unit price times quantity.
func (l Line) SubtotalCents() int {
	return l.UnitPriceCents * l.Quantity
}

// VendorGroup is the transient per-vendor slice of a cart.
type VendorGroup struct {
	VendorID      uuid.UUID
	VendorName    string
	Lines         []Line
	SubtotalCents int
}

// SubtotalCents sums the subtotal of every group.
func SubtotalCents(groups []VendorGroup) int {
	total := 0
	for _, group := range groups {
		total += group.SubtotalCents
	}
	return total
}
