package registry

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/marketplace-checkout/pkg/config"
	"github.com/angelmondragon/marketplace-checkout/pkg/db/models"
	"github.com/angelmondragon/marketplace-checkout/pkg/enums"
	"github.com/angelmondragon/marketplace-checkout/pkg/outbox"
	"github.com/angelmondragon/marketplace-checkout/pkg/outbox/payloads"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := New(config.PubSubConfig{OrdersTopic: " orders-topic ", PaymentsSubscription: "payments-sub"})
	require.NoError(t, err)
	return reg
}

// row builds an outbox row whose envelope agrees with it, the way
// outbox.Service.Emit writes them.
func row(t *testing.T, eventType enums.OutboxEventType, aggregateType enums.OutboxAggregateType, aggregateID uuid.UUID, data any) models.OutboxEvent {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	id := uuid.New()
	payload, err := json.Marshal(outbox.Envelope{
		Version:    outbox.EnvelopeVersion,
		EventID:    id,
		EventType:  eventType,
		OccurredAt: time.Now().UTC(),
		Data:       raw,
	})
	require.NoError(t, err)
	return models.OutboxEvent{
		ID:            id,
		EventType:     eventType,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		Payload:       payload,
	}
}

func TestResolveOrdersConfirmed(t *testing.T) {
	reg := newTestRegistry(t)
	orderID := uuid.New()
	sessionID := uuid.New()
	event := row(t, enums.EventOrdersConfirmed, enums.AggregateCheckoutSession, sessionID, payloads.OrdersConfirmedEvent{
		SessionID:           sessionID,
		PaymentReference:    "pi_123",
		AggregateTotalCents: 3700,
		Orders:              []payloads.ConfirmedOrderEntry{{OrderID: orderID, TotalCents: 3700}},
	})

	resolved, err := reg.Resolve(event)
	require.NoError(t, err)
	assert.Equal(t, "orders-topic", resolved.Descriptor.Topic)
	assert.Equal(t, event.ID, resolved.Envelope.EventID)

	payload, ok := resolved.Payload.(*payloads.OrdersConfirmedEvent)
	require.True(t, ok, "unexpected payload type %T", resolved.Payload)
	require.Len(t, payload.Orders, 1)
	assert.Equal(t, orderID, payload.Orders[0].OrderID)
	assert.Equal(t, "pi_123", payload.PaymentReference)
}

func TestResolveStatusChanged(t *testing.T) {
	reg := newTestRegistry(t)
	orderID := uuid.New()
	event := row(t, enums.EventOrderStatusChanged, enums.AggregateOrder, orderID, payloads.OrderStatusChangedEvent{
		OrderID: orderID,
		From:    enums.OrderStatusConfirmed,
		To:      enums.OrderStatusPreparing,
	})

	resolved, err := reg.Resolve(event)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPreparing, resolved.Payload.(*payloads.OrderStatusChangedEvent).To)
}

func TestResolveRejectionsAreNonRetryable(t *testing.T) {
	reg := newTestRegistry(t)
	valid := func() models.OutboxEvent {
		return row(t, enums.EventOrdersConfirmed, enums.AggregateCheckoutSession, uuid.New(), map[string]any{"session_id": uuid.New()})
	}

	cases := map[string]func() models.OutboxEvent{
		"unknown event": func() models.OutboxEvent {
			return row(t, enums.OutboxEventType("refund_issued"), enums.AggregateOrder, uuid.New(), map[string]string{"reason": "none"})
		},
		"aggregate mismatch": func() models.OutboxEvent {
			e := valid()
			e.AggregateType = enums.AggregateOrder
			return e
		},
		"missing aggregate id": func() models.OutboxEvent {
			e := valid()
			e.AggregateID = uuid.Nil
			return e
		},
		"null payload": func() models.OutboxEvent {
			return row(t, enums.EventOrdersConfirmed, enums.AggregateCheckoutSession, uuid.New(), nil)
		},
		"corrupt envelope": func() models.OutboxEvent {
			e := valid()
			e.Payload = json.RawMessage(`{"data":`)
			return e
		},
		"event id mismatch": func() models.OutboxEvent {
			e := valid()
			e.ID = uuid.New()
			return e
		},
		"payload shape": func() models.OutboxEvent {
			return row(t, enums.EventOrdersConfirmed, enums.AggregateCheckoutSession, uuid.New(), []int{1, 2})
		},
	}
	for name, build := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := reg.Resolve(build())
			require.Error(t, err)
			assert.True(t, IsNonRetryable(err), "expected non-retryable, got %T: %v", err, err)
		})
	}
}

func TestRegistryTopicsAndValidation(t *testing.T) {
	assert.Equal(t, []string{"orders-topic"}, newTestRegistry(t).Topics())

	_, err := New(config.PubSubConfig{OrdersTopic: "  "})
	assert.Error(t, err)
}
