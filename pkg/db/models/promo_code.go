package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/marketplace-checkout/pkg/enums"
)

// PromoCode is a checkout-wide discount rule. Code is stored upper-cased.
// Value is a percentage for PERCENTAGE codes and cents for FIXED codes.
type PromoCode struct {
	ID                uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code              string             `gorm:"column:code;not null;uniqueIndex"`
	DiscountType      enums.DiscountType `gorm:"column:discount_type;type:text;not null"`
	Value             decimal.Decimal    `gorm:"column:value;type:numeric(12,4);not null"`
	MinimumOrderCents *int               `gorm:"column:minimum_order_cents"`
	StartsAt          *time.Time         `gorm:"column:starts_at"`
	ExpiresAt         *time.Time         `gorm:"column:expires_at"`
	Active            bool               `gorm:"column:active;not null"`
	CreatedAt         time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
