package pricing

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-checkout/pkg/db/models"
)

// Repository loads vendor policies from vendor_policies.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) FindPolicies(ctx context.Context, vendorIDs []uuid.UUID) (map[uuid.UUID]Policy, error) {
	policies := make(map[uuid.UUID]Policy, len(vendorIDs))
	if len(vendorIDs) == 0 {
		return policies, nil
	}

	var rows []models.VendorPolicy
	if err := r.db.WithContext(ctx).
		Where("vendor_id IN ?", vendorIDs).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		policies[row.VendorID] = Policy{
			VendorID:             row.VendorID,
			VendorName:           row.VendorName,
			MinimumOrderCents:    row.MinimumOrderCents,
			DeliveryFeeCents:     row.DeliveryFeeCents,
			PlatformFeeType:      row.PlatformFeeType,
			PlatformFeeValue:     row.PlatformFeeValue,
			EstimatedPrepMinutes: row.EstimatedPrepMinutes,
		}
	}
	return policies, nil
}
