package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/marketplace-checkout/pkg/enums"
)

// VendorPolicy holds the pricing rules a vendor applies at checkout.
// PlatformFeeValue is in cents for FIXED and in percent for PERCENTAGE.
type VendorPolicy struct {
	VendorID             uuid.UUID             `gorm:"column:vendor_id;type:uuid;primaryKey"`
	VendorName           string                `gorm:"column:vendor_name;not null"`
	MinimumOrderCents    int                   `gorm:"column:minimum_order_cents;not null;default:0"`
	DeliveryFeeCents     int                   `gorm:"column:delivery_fee_cents;not null;default:0"`
	PlatformFeeType      enums.PlatformFeeType `gorm:"column:platform_fee_type;type:text;not null;default:'FIXED'"`
	PlatformFeeValue     decimal.Decimal       `gorm:"column:platform_fee_value;type:numeric(12,4);not null;default:0"`
	EstimatedPrepMinutes int                   `gorm:"column:estimated_prep_minutes;not null;default:0"`
	CreatedAt            time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
