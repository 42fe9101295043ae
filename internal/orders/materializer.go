package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-checkout/internal/checkout"
	"github.com/angelmondragon/marketplace-checkout/internal/loyalty"
	pkgcheckout "github.com/angelmondragon/marketplace-checkout/pkg/checkout"
	dbpkg "github.com/angelmondragon/marketplace-checkout/pkg/db"
	"github.com/angelmondragon/marketplace-checkout/pkg/db/models"
	"github.com/angelmondragon/marketplace-checkout/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-checkout/pkg/errors"
	"github.com/angelmondragon/marketplace-checkout/pkg/logger"
	"github.com/angelmondragon/marketplace-checkout/pkg/metrics"
	"github.com/angelmondragon/marketplace-checkout/pkg/outbox"
	"github.com/angelmondragon/marketplace-checkout/pkg/outbox/payloads"
)

// errConfirmedElsewhere marks a transaction that lost the race on the confirmation row.
var errConfirmedElsewhere = errors.New("session confirmed by a concurrent request")

type MaterializerOptions struct {
	MaxAttempts  int
	Backoff      time.Duration
	DeliveryLead time.Duration
	Now          func() time.Time
}

type MaterializerParams struct {
	Repository Repository
	Tx         txRunner
	Sessions   checkout.SessionStore
	Loyalty    loyaltyLedger
	Outbox     outboxPublisher
	Metrics    confirmationRecorder
	Logger     *logger.Logger
	Options    MaterializerOptions
}

// Materializer turns a paid checkout session into persisted vendor orders.
type Materializer struct {
	repo     Repository
	tx       txRunner
	sessions checkout.SessionStore
	loyalty  loyaltyLedger
	outbox   outboxPublisher
	metrics  confirmationRecorder
	logg     *logger.Logger
	opts     MaterializerOptions
	sleep    func(ctx context.Context, d time.Duration) error
}

func NewMaterializer(params MaterializerParams) (*Materializer, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("session store required")
	}
	if params.Loyalty == nil {
		return nil, fmt.Errorf("loyalty ledger required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	opts := params.Options
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Materializer{
		repo:     params.Repository,
		tx:       params.Tx,
		sessions: params.Sessions,
		loyalty:  params.Loyalty,
		outbox:   params.Outbox,
		metrics:  params.Metrics,
		logg:     params.Logger,
		opts:     opts,
		sleep:    sleepContext,
	}, nil
}

// ConfirmPayment materializes the session's orders at most once. Repeated
// confirmations for the same session return the orders created the first time.
func (m *Materializer) ConfirmPayment(ctx context.Context, sessionID uuid.UUID, paymentReference string) (*SessionOrders, error) {
	started := time.Now()
	ctx = m.logg.WithSessionID(ctx, sessionID.String())

	result, err := m.confirm(ctx, sessionID, strings.TrimSpace(paymentReference))
	outcome := confirmationOutcome(result, err)
	if m.metrics != nil {
		m.metrics.ObserveConfirmation(outcome, time.Since(started))
	}
	switch outcome {
	case metrics.OutcomeCreated:
		if m.metrics != nil {
			m.metrics.AddOrdersCreated(len(result.Orders))
		}
		m.logg.Info(m.logg.WithField(ctx, "order_count", len(result.Orders)), "checkout session confirmed")
	case metrics.OutcomeFailed:
		m.logg.Error(ctx, "checkout confirmation failed", err)
	}
	return result, err
}

func (m *Materializer) confirm(ctx context.Context, sessionID uuid.UUID, paymentReference string) (*SessionOrders, error) {
	if sessionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	if paymentReference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment reference is required")
	}

	confirmation, err := m.repo.FindConfirmation(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load checkout confirmation")
	}
	if confirmation != nil {
		return m.confirmedOrders(ctx, confirmation, paymentReference)
	}

	session, err := m.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load checkout session")
	}
	if session == nil {
		return nil, pkgcheckout.SessionNotFound(sessionID)
	}
	confirmedAt := m.opts.Now().UTC()
	if session.IsExpired(confirmedAt) {
		return nil, pkgcheckout.SessionExpired(sessionID, session.ExpiresAt)
	}

	var created []models.Order
	backoff := m.opts.Backoff
	for attempt := 1; ; attempt++ {
		created, err = m.materialize(ctx, session, paymentReference, confirmedAt)
		if err == nil || errors.Is(err, errConfirmedElsewhere) {
			break
		}
		if !dbpkg.IsTransient(err) || attempt >= m.opts.MaxAttempts {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "materialize orders")
		}
		if m.metrics != nil {
			m.metrics.IncRetry()
		}
		m.logg.Warn(m.logg.WithFields(ctx, map[string]any{
			"attempt": attempt,
			"error":   err.Error(),
		}), "retrying order materialization")
		if sleepErr := m.sleep(ctx, backoff); sleepErr != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, sleepErr, "materialize orders")
		}
		backoff *= 2
	}

	if errors.Is(err, errConfirmedElsewhere) {
		winner, findErr := m.repo.FindConfirmation(ctx, sessionID)
		if findErr != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, findErr, "load checkout confirmation")
		}
		if winner == nil {
			return nil, pkgerrors.New(pkgerrors.CodeDependency, "checkout confirmation vanished after unique violation")
		}
		return m.confirmedOrders(ctx, winner, paymentReference)
	}

	if delErr := m.sessions.Delete(ctx, sessionID); delErr != nil {
		m.logg.Warn(m.logg.WithField(ctx, "error", delErr.Error()), "failed to delete confirmed checkout session")
	}
	return NewSessionOrders(sessionID, created, false), nil
}

// materialize writes everything for one confirmation in a single transaction.
func (m *Materializer) materialize(ctx context.Context, session *checkout.Session, paymentReference string, confirmedAt time.Time) ([]models.Order, error) {
	orders := m.buildOrders(session, paymentReference, confirmedAt)

	err := m.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := m.repo.WithTx(tx)
		confirmation := &models.CheckoutConfirmation{
			SessionID:           session.ID,
			PaymentReference:    paymentReference,
			CustomerID:          session.CustomerID,
			Currency:            session.Currency,
			AggregateTotalCents: session.AggregateTotalCents,
			OrderCount:          len(orders),
			PromoCode:           session.PromoCode,
			LoyaltyPointsUsed:   session.LoyaltyPointsUsed,
			ConfirmedAt:         confirmedAt,
		}
		if err := repo.CreateConfirmation(ctx, confirmation); err != nil {
			if dbpkg.IsUniqueViolation(err, "") {
				return errConfirmedElsewhere
			}
			return err
		}

		err := m.loyalty.Debit(ctx, tx, session.CustomerID, session.LoyaltyPointsUsed)
		switch {
		case err == nil:
			for i := range orders {
				orders[i].LoyaltyPointsDebited = orders[i].LoyaltyPointsUsed
			}
		case errors.Is(err, loyalty.ErrInsufficientBalance):
			// Payment already captured; the order stands and the shortfall is left for reconciliation.
			m.logg.Warn(m.logg.WithFields(ctx, map[string]any{
				"customer_id": session.CustomerID.String(),
				"points":      session.LoyaltyPointsUsed,
			}), "loyalty balance no longer covers redeemed points")
		default:
			return err
		}

		if err := repo.CreateOrders(ctx, orders); err != nil {
			return err
		}

		return m.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrdersConfirmed,
			AggregateType: enums.AggregateCheckoutSession,
			AggregateID:   session.ID,
			OrderingKey:   session.ID.String(),
			Actor:         &outbox.Actor{Kind: "payment_processor", ID: paymentReference},
			Data:          ordersConfirmedPayload(session, orders, paymentReference, confirmedAt),
			OccurredAt:    confirmedAt,
		})
	})
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (m *Materializer) buildOrders(session *checkout.Session, paymentReference string, confirmedAt time.Time) []models.Order {
	orders := make([]models.Order, 0, len(session.Drafts))
	for _, draft := range session.Drafts {
		order := models.Order{
			ID:                   uuid.New(),
			SessionID:            session.ID,
			Position:             draft.Position,
			CustomerID:           session.CustomerID,
			VendorID:             draft.VendorID,
			VendorName:           draft.VendorName,
			Currency:             session.Currency,
			Status:               enums.OrderStatusConfirmed,
			DeliveryMode:         session.DeliveryMode,
			DeliveryAddress:      session.DeliveryAddress,
			ScheduledFor:         session.ScheduledFor,
			PromoCode:            session.PromoCode,
			LoyaltyPointsUsed:    draft.LoyaltyDiscountCents,
			SubtotalCents:        draft.SubtotalCents,
			DeliveryFeeCents:     draft.DeliveryFeeCents,
			PlatformFeeCents:     draft.PlatformFeeCents,
			TaxCents:             draft.TaxCents,
			PromoDiscountCents:   draft.PromoDiscountCents,
			LoyaltyDiscountCents: draft.LoyaltyDiscountCents,
			DiscountCents:        draft.DiscountCents,
			TotalCents:           draft.TotalCents,
			PaymentReference:     paymentReference,
			EstimatedDeliveryAt:  m.estimateDelivery(session, draft, confirmedAt),
			CreatedAt:            confirmedAt,
			UpdatedAt:            confirmedAt,
		}
		for i, line := range draft.Lines {
			order.Items = append(order.Items, models.OrderLineItem{
				ID:                uuid.New(),
				OrderID:           order.ID,
				Position:          i,
				ProductID:         line.ProductID,
				ProductName:       line.ProductName,
				UnitPriceCents:    line.UnitPriceCents,
				Quantity:          line.Quantity,
				LineSubtotalCents: line.SubtotalCents(),
				CreatedAt:         confirmedAt,
			})
		}
		orders = append(orders, order)
	}
	return orders
}

func (m *Materializer) estimateDelivery(session *checkout.Session, draft checkout.DraftOrder, confirmedAt time.Time) *time.Time {
	if session.ScheduledFor != nil {
		at := session.ScheduledFor.UTC()
		return &at
	}
	at := confirmedAt.Add(time.Duration(draft.EstimatedPrepMinutes) * time.Minute)
	if session.DeliveryMode == enums.DeliveryModeDelivery {
		at = at.Add(m.opts.DeliveryLead)
	}
	return &at
}

// confirmedOrders answers a repeat confirmation from the persisted
// confirmation row and the orders written with it.
func (m *Materializer) confirmedOrders(ctx context.Context, confirmation *models.CheckoutConfirmation, paymentReference string) (*SessionOrders, error) {
	if confirmation.PaymentReference != paymentReference {
		m.logg.Warn(m.logg.WithFields(ctx, map[string]any{
			"payment_reference":          paymentReference,
			"original_payment_reference": confirmation.PaymentReference,
		}), "duplicate confirmation carries a different payment reference")
	}
	orders, err := m.repo.FindOrdersBySession(ctx, confirmation.SessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load session orders")
	}
	return NewSessionOrders(confirmation.SessionID, orders, true), nil
}

func ordersConfirmedPayload(session *checkout.Session, orders []models.Order, paymentReference string, confirmedAt time.Time) payloads.OrdersConfirmedEvent {
	event := payloads.OrdersConfirmedEvent{
		SessionID:           session.ID,
		CustomerID:          session.CustomerID,
		PaymentReference:    paymentReference,
		Currency:            session.Currency,
		AggregateTotalCents: session.AggregateTotalCents,
		LoyaltyPointsUsed:   session.LoyaltyPointsUsed,
		PromoCode:           session.PromoCode,
		Orders:              make([]payloads.ConfirmedOrderEntry, 0, len(orders)),
		ConfirmedAt:         confirmedAt,
	}
	for _, order := range orders {
		event.Orders = append(event.Orders, payloads.ConfirmedOrderEntry{
			OrderID:             order.ID,
			VendorID:            order.VendorID,
			TotalCents:          order.TotalCents,
			EstimatedDeliveryAt: order.EstimatedDeliveryAt,
		})
	}
	return event
}

func confirmationOutcome(result *SessionOrders, err error) string {
	if err == nil {
		if result != nil && result.Duplicate {
			return metrics.OutcomeDuplicate
		}
		return metrics.OutcomeCreated
	}
	if pkgerrors.Retryable(err) {
		return metrics.OutcomeFailed
	}
	return metrics.OutcomeRejected
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
