package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-checkout/pkg/enums"
)

// OrdersConfirmedEvent is emitted once per checkout session when payment
// confirmation materializes its orders.
type OrdersConfirmedEvent struct {
	SessionID           uuid.UUID             `json:"session_id"`
	CustomerID          uuid.UUID             `json:"customer_id"`
	PaymentReference    string                `json:"payment_reference"`
	Currency            enums.Currency        `json:"currency"`
	AggregateTotalCents int                   `json:"aggregate_total_cents"`
	LoyaltyPointsUsed   int                   `json:"loyalty_points_used"`
	PromoCode           *string               `json:"promo_code,omitempty"`
	Orders              []ConfirmedOrderEntry `json:"orders"`
	ConfirmedAt         time.Time             `json:"confirmed_at"`
}

// ConfirmedOrderEntry summarizes one vendor order inside OrdersConfirmedEvent.
type ConfirmedOrderEntry struct {
	OrderID             uuid.UUID  `json:"order_id"`
	VendorID            uuid.UUID  `json:"vendor_id"`
	TotalCents          int        `json:"total_cents"`
	EstimatedDeliveryAt *time.Time `json:"estimated_delivery_at,omitempty"`
}

// OrderStatusChangedEvent is emitted for every accepted status transition.
type OrderStatusChangedEvent struct {
	OrderID    uuid.UUID         `json:"order_id"`
	SessionID  uuid.UUID         `json:"session_id"`
	VendorID   uuid.UUID         `json:"vendor_id"`
	CustomerID uuid.UUID         `json:"customer_id"`
	From       enums.OrderStatus `json:"from"`
	To         enums.OrderStatus `json:"to"`
	Reason     *string           `json:"reason,omitempty"`
	ChangedAt  time.Time         `json:"changed_at"`
}
