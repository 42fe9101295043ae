package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-checkout/pkg/db/models"
	"github.com/angelmondragon/marketplace-checkout/pkg/enums"
	"github.com/angelmondragon/marketplace-checkout/pkg/outbox"
	"github.com/angelmondragon/marketplace-checkout/pkg/pagination"
)

// Repository defines persistence operations for the order tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateConfirmation(ctx context.Context, confirmation *models.CheckoutConfirmation) error
	FindConfirmation(ctx context.Context, sessionID uuid.UUID) (*models.CheckoutConfirmation, error)
	CreateOrders(ctx context.Context, orders []models.Order) error
	FindOrdersBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Order, error)
	FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params) (*OrderList, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, from enums.OrderStatus, updates map[string]any) (bool, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type loyaltyLedger interface {
	Debit(ctx context.Context, tx *gorm.DB, customerID uuid.UUID, points int) error
	Credit(ctx context.Context, tx *gorm.DB, customerID uuid.UUID, points int) error
}

type confirmationRecorder interface {
	ObserveConfirmation(outcome string, duration time.Duration)
	IncRetry()
	AddOrdersCreated(n int)
}
