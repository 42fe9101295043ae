package payments

import (
	"context"
	"errors"
	"io"
	"testing"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/marketplace-checkout/internal/orders"
	pkgerrors "github.com/angelmondragon/marketplace-checkout/pkg/errors"
	"github.com/angelmondragon/marketplace-checkout/pkg/logger"
)

type stubConfirmer struct {
	calls   int
	lastRef string
	err     error
}

func (s *stubConfirmer) ConfirmPayment(_ context.Context, sessionID uuid.UUID, ref string) (*orders.SessionOrders, error) {
	s.calls++
	s.lastRef = ref
	if s.err != nil {
		return nil, s.err
	}
	return &orders.SessionOrders{SessionID: sessionID}, nil
}

type memoryDeduper struct {
	seen    map[string]bool
	deleted []string
	err     error
}

func (m *memoryDeduper) Claim(_ context.Context, id string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if m.seen[id] {
		return false, nil
	}
	m.seen[id] = true
	return true, nil
}

func (m *memoryDeduper) Release(_ context.Context, id string) error {
	delete(m.seen, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func newTestConsumer(confirmer *stubConfirmer, dedupe *memoryDeduper) *Consumer {
	return &Consumer{
		confirmer:   confirmer,
		idempotency: dedupe,
		logg:        logger.New(logger.Options{ServiceName: "payments-test", Output: io.Discard}),
	}
}

func paymentMessage(id string, sessionID uuid.UUID) *pubsub.Message {
	return &pubsub.Message{
		ID:   id,
		Data: []byte(`{"session_id":"` + sessionID.String() + `","payment_reference":"pi_123"}`),
	}
}

func TestProcessConfirmsOnce(t *testing.T) {
	confirmer := &stubConfirmer{}
	dedupe := &memoryDeduper{seen: map[string]bool{}}
	c := newTestConsumer(confirmer, dedupe)
	msg := paymentMessage("m-1", uuid.New())

	assert.Equal(t, processResult{ack: true}, c.process(context.Background(), msg))
	assert.Equal(t, processResult{ack: true}, c.process(context.Background(), msg))
	assert.Equal(t, 1, confirmer.calls)
	assert.Equal(t, "pi_123", confirmer.lastRef)
}

func TestProcessAcksMalformedMessages(t *testing.T) {
	confirmer := &stubConfirmer{}
	c := newTestConsumer(confirmer, &memoryDeduper{seen: map[string]bool{}})

	for _, data := range []string{
		`not json`,
		`{"session_id":"` + uuid.NewString() + `"}`,
		`{"payment_reference":"pi_1"}`,
	} {
		res := c.process(context.Background(), &pubsub.Message{ID: "bad", Data: []byte(data)})
		assert.True(t, res.ack, data)
	}
	assert.Zero(t, confirmer.calls)
}

func TestProcessAcksDomainRejections(t *testing.T) {
	confirmer := &stubConfirmer{err: pkgerrors.New(pkgerrors.CodeSessionExpired, "expired")}
	dedupe := &memoryDeduper{seen: map[string]bool{}}
	c := newTestConsumer(confirmer, dedupe)

	res := c.process(context.Background(), paymentMessage("m-2", uuid.New()))
	assert.Equal(t, processResult{ack: true}, res)
	assert.Empty(t, dedupe.deleted)
}

func TestProcessNacksRetryableFailures(t *testing.T) {
	confirmer := &stubConfirmer{err: pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("db down"), "materialize")}
	dedupe := &memoryDeduper{seen: map[string]bool{}}
	c := newTestConsumer(confirmer, dedupe)
	msg := paymentMessage("m-3", uuid.New())

	require.Equal(t, processResult{nack: true}, c.process(context.Background(), msg))
	assert.Equal(t, []string{"m-3"}, dedupe.deleted)

	confirmer.err = nil
	assert.Equal(t, processResult{ack: true}, c.process(context.Background(), msg))
	assert.Equal(t, 2, confirmer.calls)
}

func TestProcessNacksWhenIdempotencyStoreFails(t *testing.T) {
	confirmer := &stubConfirmer{}
	c := newTestConsumer(confirmer, &memoryDeduper{err: errors.New("redis down")})

	assert.Equal(t, processResult{nack: true}, c.process(context.Background(), paymentMessage("m-4", uuid.New())))
	assert.Zero(t, confirmer.calls)
}

func TestNewConsumerRequiresDependencies(t *testing.T) {
	_, err := NewConsumer(nil, nil, nil, nil)
	require.Error(t, err)
}
