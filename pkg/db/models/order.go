package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-checkout/pkg/enums"
	"github.com/angelmondragon/marketplace-checkout/pkg/types"
)

// Order is the persisted per-vendor order materialized from a confirmed checkout session.
type Order struct {
	ID                   uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SessionID            uuid.UUID          `gorm:"column:session_id;type:uuid;not null"`
	Position             int                `gorm:"column:position;not null"`
	CustomerID           uuid.UUID          `gorm:"column:customer_id;type:uuid;not null"`
	VendorID             uuid.UUID          `gorm:"column:vendor_id;type:uuid;not null"`
	VendorName           string             `gorm:"column:vendor_name;not null"`
	Currency             enums.Currency     `gorm:"column:currency;type:text;not null;default:'USD'"`
	Status               enums.OrderStatus  `gorm:"column:status;type:text;not null"`
	DeliveryMode         enums.DeliveryMode `gorm:"column:delivery_mode;type:text;not null"`
	DeliveryAddress      *types.Address     `gorm:"column:delivery_address;type:jsonb;serializer:json"`
	ScheduledFor         *time.Time         `gorm:"column:scheduled_for"`
	PromoCode            *string            `gorm:"column:promo_code"`
	LoyaltyPointsUsed    int                `gorm:"column:loyalty_points_used;not null;default:0"`
	LoyaltyPointsDebited int                `gorm:"column:loyalty_points_debited;not null;default:0"`
	SubtotalCents        int                `gorm:"column:subtotal_cents;not null"`
	DeliveryFeeCents     int                `gorm:"column:delivery_fee_cents;not null;default:0"`
	PlatformFeeCents     int                `gorm:"column:platform_fee_cents;not null;default:0"`
	TaxCents             int                `gorm:"column:tax_cents;not null;default:0"`
	PromoDiscountCents   int                `gorm:"column:promo_discount_cents;not null;default:0"`
	LoyaltyDiscountCents int                `gorm:"column:loyalty_discount_cents;not null;default:0"`
	DiscountCents        int                `gorm:"column:discount_cents;not null;default:0"`
	TotalCents           int                `gorm:"column:total_cents;not null"`
	PaymentReference     string             `gorm:"column:payment_reference;not null"`
	EstimatedDeliveryAt  *time.Time         `gorm:"column:estimated_delivery_at"`
	CancelledAt          *time.Time         `gorm:"column:cancelled_at"`
	CompletedAt          *time.Time         `gorm:"column:completed_at"`
	Items                []OrderLineItem    `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt            time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
