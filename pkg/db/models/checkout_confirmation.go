package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-checkout/pkg/enums"
)

// CheckoutConfirmation records that a checkout session was paid and its orders
// were written. SessionID is the primary key, so at most one row can exist per session.
type CheckoutConfirmation struct {
	SessionID           uuid.UUID      `gorm:"column:session_id;type:uuid;primaryKey"`
	PaymentReference    string         `gorm:"column:payment_reference;not null"`
	CustomerID          uuid.UUID      `gorm:"column:customer_id;type:uuid;not null"`
	Currency            enums.Currency `gorm:"column:currency;type:text;not null;default:'USD'"`
	AggregateTotalCents int            `gorm:"column:aggregate_total_cents;not null"`
	OrderCount          int            `gorm:"column:order_count;not null"`
	PromoCode           *string        `gorm:"column:promo_code"`
	LoyaltyPointsUsed   int            `gorm:"column:loyalty_points_used;not null;default:0"`
	ConfirmedAt         time.Time      `gorm:"column:confirmed_at;not null"`
}
