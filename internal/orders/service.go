package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgcheckout "github.com/angelmondragon/marketplace-checkout/pkg/checkout"
	"github.com/angelmondragon/marketplace-checkout/pkg/db/models"
	"github.com/angelmondragon/marketplace-checkout/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-checkout/pkg/errors"
	"github.com/angelmondragon/marketplace-checkout/pkg/outbox"
	"github.com/angelmondragon/marketplace-checkout/pkg/outbox/payloads"
	"github.com/angelmondragon/marketplace-checkout/pkg/pagination"
)

// Service reads orders and moves them through the status machine.
type Service interface {
	Get(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error)
	ListBySession(ctx context.Context, sessionID uuid.UUID) (*SessionOrders, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params) (*OrderList, error)
	UpdateStatus(ctx context.Context, input UpdateStatusInput) (*OrderDTO, error)
}

// UpdateStatusInput describes a requested transition. ActorKind is recorded on
// the emitted event, e.g. "vendor" or "operator".
type UpdateStatusInput struct {
	OrderID   uuid.UUID
	Status    enums.OrderStatus
	Reason    *string
	ActorKind string
	ActorID   string
}

type service struct {
	repo    Repository
	tx      txRunner
	outbox  outboxPublisher
	loyalty loyaltyLedger
	now     func() time.Time
}

// NewService builds the order service with the required dependencies.
func NewService(repo Repository, tx txRunner, outbox outboxPublisher, loyalty loyaltyLedger, now func() time.Time) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if loyalty == nil {
		return nil, fmt.Errorf("loyalty ledger required")
	}
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:    repo,
		tx:      tx,
		outbox:  outbox,
		loyalty: loyalty,
		now:     now,
	}, nil
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order == nil {
		return nil, orderNotFound(orderID)
	}
	dto := FromModel(*order)
	return &dto, nil
}

func (s *service) ListBySession(ctx context.Context, sessionID uuid.UUID) (*SessionOrders, error) {
	orders, err := s.repo.FindOrdersBySession(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load session orders")
	}
	if len(orders) == 0 {
		return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "no orders for checkout session %s", sessionID)
	}
	return NewSessionOrders(sessionID, orders, false), nil
}

func (s *service) ListByCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params) (*OrderList, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	if _, err := pagination.Decode(params.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	list, err := s.repo.ListByCustomer(ctx, customerID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list customer orders")
	}
	return list, nil
}

// UpdateStatus applies one legal transition. Cancelling refunds the loyalty
// points that were actually debited for the order.
func (s *service) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*OrderDTO, error) {
	if !input.Status.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown order status %q", input.Status)
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, input.OrderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order == nil {
			return orderNotFound(input.OrderID)
		}
		from := order.Status
		if !from.CanTransitionTo(input.Status) {
			return pkgcheckout.InvalidStatusTransition(order.ID, string(from), string(input.Status))
		}

		changedAt := s.now().UTC()
		updates := map[string]any{
			"status":     input.Status,
			"updated_at": changedAt,
		}
		switch input.Status {
		case enums.OrderStatusCancelled:
			updates["cancelled_at"] = changedAt
			order.CancelledAt = &changedAt
		case enums.OrderStatusCompleted:
			updates["completed_at"] = changedAt
			order.CompletedAt = &changedAt
		}

		ok, err := repo.UpdateStatus(ctx, order.ID, from, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConflict, "order status changed concurrently").WithDetails(map[string]any{
				"order_id": order.ID,
			})
		}

		if input.Status == enums.OrderStatusCancelled && order.LoyaltyPointsDebited > 0 {
			if err := s.loyalty.Credit(ctx, tx, order.CustomerID, order.LoyaltyPointsDebited); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refund loyalty points")
			}
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			OrderingKey:   order.ID.String(),
			Actor:         &outbox.Actor{Kind: input.ActorKind, ID: input.ActorID},
			Data: payloads.OrderStatusChangedEvent{
				OrderID:    order.ID,
				SessionID:  order.SessionID,
				VendorID:   order.VendorID,
				CustomerID: order.CustomerID,
				From:       from,
				To:         input.Status,
				Reason:     input.Reason,
				ChangedAt:  changedAt,
			},
			OccurredAt: changedAt,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit status event")
		}

		order.Status = input.Status
		order.UpdatedAt = changedAt
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	dto := FromModel(*updated)
	return &dto, nil
}

func orderNotFound(orderID uuid.UUID) error {
	return pkgerrors.Newf(pkgerrors.CodeNotFound, "order %s not found", orderID)
}
