package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-checkout/pkg/db/models"
	"github.com/angelmondragon/marketplace-checkout/pkg/enums"
	"github.com/angelmondragon/marketplace-checkout/pkg/types"
)

// OrderDTO is the API representation of a vendor order.
type OrderDTO struct {
	ID                   uuid.UUID          `json:"id"`
	SessionID            uuid.UUID          `json:"session_id"`
	CustomerID           uuid.UUID          `json:"customer_id"`
	VendorID             uuid.UUID          `json:"vendor_id"`
	VendorName           string             `json:"vendor_name"`
	Currency             enums.Currency     `json:"currency"`
	Status               enums.OrderStatus  `json:"status"`
	DeliveryMode         enums.DeliveryMode `json:"delivery_mode"`
	DeliveryAddress      *types.Address     `json:"delivery_address,omitempty"`
	ScheduledFor         *time.Time         `json:"scheduled_for,omitempty"`
	PromoCode            *string            `json:"promo_code,omitempty"`
	LoyaltyPointsUsed    int                `json:"loyalty_points_used"`
	LoyaltyPointsDebited int                `json:"loyalty_points_debited"`
	SubtotalCents        int                `json:"subtotal_cents"`
	DeliveryFeeCents     int                `json:"delivery_fee_cents"`
	PlatformFeeCents     int                `json:"platform_fee_cents"`
	TaxCents             int                `json:"tax_cents"`
	PromoDiscountCents   int                `json:"promo_discount_cents"`
	LoyaltyDiscountCents int                `json:"loyalty_discount_cents"`
	DiscountCents        int                `json:"discount_cents"`
	TotalCents           int                `json:"total_cents"`
	PaymentReference     string             `json:"payment_reference"`
	EstimatedDeliveryAt  *time.Time         `json:"estimated_delivery_at,omitempty"`
	CancelledAt          *time.Time         `json:"cancelled_at,omitempty"`
	CompletedAt          *time.Time         `json:"completed_at,omitempty"`
	Items                []LineItemDTO      `json:"items"`
	CreatedAt            time.Time          `json:"created_at"`
	UpdatedAt            time.Time          `json:"updated_at"`
}

type LineItemDTO struct {
	ProductID         uuid.UUID `json:"product_id"`
	ProductName       string    `json:"product_name"`
	UnitPriceCents    int       `json:"unit_price_cents"`
	Quantity          int       `json:"quantity"`
	LineSubtotalCents int       `json:"line_subtotal_cents"`
}

// OrderList wraps a page of orders plus the next page cursor.
type OrderList struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// SessionOrders is the result of confirming or reading a checkout session.
type SessionOrders struct {
	SessionID           uuid.UUID  `json:"session_id"`
	AggregateTotalCents int        `json:"aggregate_total_cents"`
	Duplicate           bool       `json:"duplicate"`
	Orders              []OrderDTO `json:"orders"`
}

func FromModel(order models.Order) OrderDTO {
	dto := OrderDTO{
		ID:                   order.ID,
		SessionID:            order.SessionID,
		CustomerID:           order.CustomerID,
		VendorID:             order.VendorID,
		VendorName:           order.VendorName,
		Currency:             order.Currency,
		Status:               order.Status,
		DeliveryMode:         order.DeliveryMode,
		DeliveryAddress:      order.DeliveryAddress,
		ScheduledFor:         order.ScheduledFor,
		PromoCode:            order.PromoCode,
		LoyaltyPointsUsed:    order.LoyaltyPointsUsed,
		LoyaltyPointsDebited: order.LoyaltyPointsDebited,
		SubtotalCents:        order.SubtotalCents,
		DeliveryFeeCents:     order.DeliveryFeeCents,
		PlatformFeeCents:     order.PlatformFeeCents,
		TaxCents:             order.TaxCents,
		PromoDiscountCents:   order.PromoDiscountCents,
		LoyaltyDiscountCents: order.LoyaltyDiscountCents,
		DiscountCents:        order.DiscountCents,
		TotalCents:           order.TotalCents,
		PaymentReference:     order.PaymentReference,
		EstimatedDeliveryAt:  order.EstimatedDeliveryAt,
		CancelledAt:          order.CancelledAt,
		CompletedAt:          order.CompletedAt,
		Items:                make([]LineItemDTO, 0, len(order.Items)),
		CreatedAt:            order.CreatedAt,
		UpdatedAt:            order.UpdatedAt,
	}
	for _, item := range order.Items {
		dto.Items = append(dto.Items, LineItemDTO{
			ProductID:         item.ProductID,
			ProductName:       item.ProductName,
			UnitPriceCents:    item.UnitPriceCents,
			Quantity:          item.Quantity,
			LineSubtotalCents: item.LineSubtotalCents,
		})
	}
	return dto
}

// NewSessionOrders converts orders of one session and sums their totals.
func NewSessionOrders(sessionID uuid.UUID, orders []models.Order, duplicate bool) *SessionOrders {
	out := &SessionOrders{
		SessionID: sessionID,
		Duplicate: duplicate,
		Orders:    make([]OrderDTO, 0, len(orders)),
	}
	for _, order := range orders {
		out.Orders = append(out.Orders, FromModel(order))
		out.AggregateTotalCents += order.TotalCents
	}
	return out
}
