package models

import (
	"time"

	"github.com/google/uuid"
)

// LoyaltyAccount stores a customer's redeemable point balance.
type LoyaltyAccount struct {
	CustomerID    uuid.UUID `gorm:"column:customer_id;type:uuid;primaryKey"`
	PointsBalance int       `gorm:"column:points_balance;not null;default:0"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
