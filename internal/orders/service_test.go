package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/marketplace-checkout/internal/loyalty"
	"github.com/angelmondragon/marketplace-checkout/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-checkout/pkg/errors"
	"github.com/angelmondragon/marketplace-checkout/pkg/outbox"
	"github.com/angelmondragon/marketplace-checkout/pkg/outbox/payloads"
	"github.com/angelmondragon/marketplace-checkout/pkg/pagination"
)

func newOrderService(t *testing.T, f *fixture) Service {
	t.Helper()
	svc, err := NewService(f.repo, f.client, outbox.NewService(f.outboxRepo, f.logg), loyalty.NewTxLedger(f.loyalty), f.now)
	require.NoError(t, err)
	return svc
}

func confirmSession(t *testing.T, f *fixture, customerID uuid.UUID) *SessionOrders {
	t.Helper()
	session := f.seedSession(t, customerID)
	out, err := f.m.ConfirmPayment(context.Background(), session.ID, "pi_"+session.ID.String()[:8])
	require.NoError(t, err)
	return out
}

func TestUpdateStatusWalksHappyPath(t *testing.T) {
	f := newFixture(t)
	svc := newOrderService(t, f)
	ctx := context.Background()
	orderID := confirmSession(t, f, uuid.New()).Orders[0].ID

	for _, next := range []enums.OrderStatus{
		enums.OrderStatusPreparing,
		enums.OrderStatusReady,
		enums.OrderStatusOutForDelivery,
		enums.OrderStatusCompleted,
	} {
		f.clock = f.clock.Add(10 * time.Minute)
		updated, err := svc.UpdateStatus(ctx, UpdateStatusInput{OrderID: orderID, Status: next, ActorKind: "vendor"})
		require.NoError(t, err, "transition to %s", next)
		assert.Equal(t, next, updated.Status)
	}

	order, err := svc.Get(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCompleted, order.Status)
	require.NotNil(t, order.CompletedAt)
	assert.True(t, f.clock.Equal(*order.CompletedAt))
	assert.Nil(t, order.CancelledAt)

	events, err := f.outboxRepo.ListByAggregate(ctx, orderID)
	require.NoError(t, err)
	require.Len(t, events, 4)
	transitions := map[enums.OrderStatus]enums.OrderStatus{}
	for _, event := range events {
		assert.Equal(t, enums.EventOrderStatusChanged, event.EventType)
		assert.Equal(t, orderID.String(), event.OrderingKey)
		envelope, err := outbox.DecodeEnvelope(event.Payload)
		require.NoError(t, err)
		assert.Equal(t, event.ID, envelope.EventID)
		var payload payloads.OrderStatusChangedEvent
		require.NoError(t, envelope.DecodeData(&payload))
		transitions[payload.From] = payload.To
	}
	assert.Equal(t, enums.OrderStatusPreparing, transitions[enums.OrderStatusConfirmed])
	assert.Equal(t, enums.OrderStatusCompleted, transitions[enums.OrderStatusOutForDelivery])

	_, err = svc.UpdateStatus(ctx, UpdateStatusInput{OrderID: orderID, Status: enums.OrderStatusCancelled})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidStatusTransition))
}

func TestUpdateStatusRejectsSkips(t *testing.T) {
	f := newFixture(t)
	svc := newOrderService(t, f)
	orderID := confirmSession(t, f, uuid.New()).Orders[0].ID

	for _, target := range []enums.OrderStatus{enums.OrderStatusReady, enums.OrderStatusConfirmed, enums.OrderStatusPending} {
		_, err := svc.UpdateStatus(context.Background(), UpdateStatusInput{OrderID: orderID, Status: target})
		require.Error(t, err)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidStatusTransition), "target %s", target)
	}

	_, err := svc.UpdateStatus(context.Background(), UpdateStatusInput{OrderID: orderID, Status: enums.OrderStatus("SHIPPED")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.UpdateStatus(context.Background(), UpdateStatusInput{OrderID: uuid.New(), Status: enums.OrderStatusPreparing})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestCancelRefundsLoyaltyShare(t *testing.T) {
	f := newFixture(t)
	svc := newOrderService(t, f)
	ctx := context.Background()
	customerID := uuid.New()
	require.NoError(t, f.loyalty.Credit(ctx, customerID, 500))
	orders := confirmSession(t, f, customerID)
	assert.Equal(t, 300, f.balance(t, customerID))

	reason := "vendor closed early"
	cancelled, err := svc.UpdateStatus(ctx, UpdateStatusInput{
		OrderID:   orders.Orders[1].ID,
		Status:    enums.OrderStatusCancelled,
		Reason:    &reason,
		ActorKind: "operator",
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)
	assert.Equal(t, 443, f.balance(t, customerID))

	sibling, err := svc.Get(ctx, orders.Orders[0].ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusConfirmed, sibling.Status)
}

func TestCancelRefundsOnlyDebitedPoints(t *testing.T) {
	f := newFixture(t)
	svc := newOrderService(t, f)
	ctx := context.Background()
	customerID := uuid.New()
	orders := confirmSession(t, f, customerID)
	assert.Equal(t, 0, f.balance(t, customerID))

	for _, order := range orders.Orders {
		assert.Zero(t, order.LoyaltyPointsDebited)
		_, err := svc.UpdateStatus(ctx, UpdateStatusInput{
			OrderID:   order.ID,
			Status:    enums.OrderStatusCancelled,
			ActorKind: "operator",
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 0, f.balance(t, customerID))
}

func TestRepositoryUpdateStatusIsConditional(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	orderID := confirmSession(t, f, uuid.New()).Orders[0].ID

	ok, err := f.repo.UpdateStatus(ctx, orderID, enums.OrderStatusPreparing, map[string]any{"status": enums.OrderStatusReady})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.repo.UpdateStatus(ctx, orderID, enums.OrderStatusConfirmed, map[string]any{"status": enums.OrderStatusPreparing})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestListBySession(t *testing.T) {
	f := newFixture(t)
	svc := newOrderService(t, f)
	confirmed := confirmSession(t, f, uuid.New())

	out, err := svc.ListBySession(context.Background(), confirmed.SessionID)
	require.NoError(t, err)
	assert.Equal(t, orderIDs(confirmed), orderIDs(out))
	assert.Equal(t, 3500, out.AggregateTotalCents)

	_, err = svc.ListBySession(context.Background(), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestListByCustomerPages(t *testing.T) {
	f := newFixture(t)
	svc := newOrderService(t, f)
	ctx := context.Background()
	customerID := uuid.New()

	confirmSession(t, f, customerID)
	f.clock = f.clock.Add(time.Hour)
	latest := confirmSession(t, f, customerID)
	confirmSession(t, f, uuid.New())

	page, err := svc.ListByCustomer(ctx, customerID, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Orders, 2)
	require.NotEmpty(t, page.NextCursor)
	for _, order := range page.Orders {
		assert.Equal(t, latest.SessionID, order.SessionID)
	}

	next, err := svc.ListByCustomer(ctx, customerID, pagination.Params{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, next.Orders, 2)
	assert.Empty(t, next.NextCursor)
	for _, order := range next.Orders {
		assert.NotEqual(t, latest.SessionID, order.SessionID)
		assert.Equal(t, customerID, order.CustomerID)
	}

	_, err = svc.ListByCustomer(ctx, customerID, pagination.Params{Cursor: "%%%"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
