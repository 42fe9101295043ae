package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderLineItem snapshots a cart line onto its vendor order.
type OrderLineItem struct {
	ID                uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID           uuid.UUID `gorm:"column:order_id;type:uuid;not null"`
	Position          int       `gorm:"column:position;not null"`
	ProductID         uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	ProductName       string    `gorm:"column:product_name;not null"`
	UnitPriceCents    int       `gorm:"column:unit_price_cents;not null"`
	Quantity          int       `gorm:"column:quantity;not null"`
	LineSubtotalCents int       `gorm:"column:line_subtotal_cents;not null"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime"`
}
