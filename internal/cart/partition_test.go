package cart

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/marketplace-checkout/pkg/errors"
)

func line(vendor uuid.UUID, name string, priceCents, qty int) Line {
	return Line{
		ProductID:      uuid.New(),
		VendorID:       vendor,
		VendorName:     name,
		ProductName:    "item",
		UnitPriceCents: priceCents,
		Quantity:       qty,
	}
}

func TestPartitionPreservesFirstAppearanceOrder(t *testing.T) {
	t.Parallel()
	vendorB := uuid.New()
	vendorA := uuid.New()
	vendorC := uuid.New()
	lines := []Line{
		line(vendorB, "Bakery", 300, 2),
		line(vendorA, "Apothecary", 1000, 1),
		line(vendorB, "Bakery", 150, 4),
		line(vendorC, "Coffee", 450, 1),
		line(vendorA, "Apothecary", 250, 2),
	}

	groups, err := Partition(lines)
	require.NoError(t, err)
	require.Len(t, groups, 3)

	assert.Equal(t, vendorB, groups[0].VendorID)
	assert.Equal(t, vendorA, groups[1].VendorID)
	assert.Equal(t, vendorC, groups[2].VendorID)

	require.Len(t, groups[0].Lines, 2)
	assert.Equal(t, lines[0].ProductID, groups[0].Lines[0].ProductID)
	assert.Equal(t, lines[2].ProductID, groups[0].Lines[1].ProductID)

	assert.Equal(t, 1200, groups[0].SubtotalCents)
	assert.Equal(t, 1500, groups[1].SubtotalCents)
	assert.Equal(t, 450, groups[2].SubtotalCents)
}

func TestPartitionSubtotalsMatchLines(t *testing.T) {
	t.Parallel()
	vendors := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	var lines []Line
	lineTotal := 0
	for i := 0; i < 12; i++ {
		l := line(vendors[i%len(vendors)], "v", 97*(i+1), i%3+1)
		lineTotal += l.SubtotalCents()
		lines = append(lines, l)
	}

	groups, err := Partition(lines)
	require.NoError(t, err)
	assert.Equal(t, lineTotal, SubtotalCents(groups))
}

func TestPartitionDoesNotMutateInput(t *testing.T) {
	t.Parallel()
	vendor := uuid.New()
	lines := []Line{line(vendor, "Only", 500, 1), line(vendor, "Only", 700, 3)}
	snapshot := append([]Line(nil), lines...)

	_, err := Partition(lines)
	require.NoError(t, err)
	assert.Equal(t, snapshot, lines)
}

func TestPartitionEmptyCart(t *testing.T) {
	t.Parallel()
	_, err := Partition(nil)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeEmptyCart, pkgerrors.As(err).Code())
}

func TestPartitionRejectsInvalidLines(t *testing.T) {
	t.Parallel()
	vendor := uuid.New()
	_, err := Partition([]Line{line(vendor, "v", 100, 0)})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = Partition([]Line{line(uuid.Nil, "v", 100, 1)})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}
