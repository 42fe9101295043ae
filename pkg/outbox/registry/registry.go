// Package registry maps outbox event types to the topic they publish on and
// the payload type consumers decode.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-checkout/pkg/config"
	"github.com/angelmondragon/marketplace-checkout/pkg/db/models"
	"github.com/angelmondragon/marketplace-checkout/pkg/enums"
	"github.com/angelmondragon/marketplace-checkout/pkg/outbox"
	"github.com/angelmondragon/marketplace-checkout/pkg/outbox/payloads"
)

type Descriptor struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string
	newPayload    func() any
}

// Resolved is an outbox row whose envelope and payload decoded cleanly.
type Resolved struct {
	Descriptor Descriptor
	Envelope   outbox.Envelope
	Payload    any
}

type Registry struct {
	byType map[enums.OutboxEventType]Descriptor
}

// NonRetryableError marks a row that will fail the same way on every attempt.
// The publisher dead-letters it immediately.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error {
	return e.Err
}

func NonRetryable(format string, args ...any) error {
	return NonRetryableError{Err: fmt.Errorf(format, args...)}
}

// IsNonRetryable reports whether err or anything it wraps is a NonRetryableError.
func IsNonRetryable(err error) bool {
	var target NonRetryableError
	return errors.As(err, &target)
}

// New routes both order event types to the orders topic.
func New(cfg config.PubSubConfig) (*Registry, error) {
	topic := strings.TrimSpace(cfg.OrdersTopic)
	if topic == "" {
		return nil, errors.New("orders topic is required")
	}
	r := &Registry{byType: map[enums.OutboxEventType]Descriptor{}}
	r.add(Descriptor{
		EventType:     enums.EventOrdersConfirmed,
		AggregateType: enums.AggregateCheckoutSession,
		Topic:         topic,
		newPayload:    func() any { return &payloads.OrdersConfirmedEvent{} },
	})
	r.add(Descriptor{
		EventType:     enums.EventOrderStatusChanged,
		AggregateType: enums.AggregateOrder,
		Topic:         topic,
		newPayload:    func() any { return &payloads.OrderStatusChangedEvent{} },
	})
	return r, nil
}

func (r *Registry) add(desc Descriptor) {
	r.byType[desc.EventType] = desc
}

// Topics returns every topic some event type publishes to, sorted.
func (r *Registry) Topics() []string {
	seen := map[string]struct{}{}
	topics := []string{}
	for _, desc := range r.byType {
		if _, ok := seen[desc.Topic]; !ok {
			seen[desc.Topic] = struct{}{}
			topics = append(topics, desc.Topic)
		}
	}
	sort.Strings(topics)
	return topics
}

// Resolve checks that the row is internally consistent and decodes its
// payload. Every failure is non-retryable.
func (r *Registry) Resolve(event models.OutboxEvent) (*Resolved, error) {
	desc, ok := r.byType[event.EventType]
	if !ok {
		return nil, NonRetryable("unsupported event type %q", event.EventType)
	}
	if desc.AggregateType != event.AggregateType {
		return nil, NonRetryable("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType)
	}
	if event.AggregateID == uuid.Nil {
		return nil, NonRetryable("missing aggregate_id")
	}

	envelope, err := outbox.DecodeEnvelope(event.Payload)
	if err != nil {
		return nil, NonRetryableError{Err: err}
	}
	if envelope.EventID != event.ID {
		return nil, NonRetryable("envelope event_id %s does not match row %s", envelope.EventID, event.ID)
	}
	if envelope.EventType != event.EventType {
		return nil, NonRetryable("envelope event_type %q does not match row %q", envelope.EventType, event.EventType)
	}

	payload := desc.newPayload()
	if err := envelope.DecodeData(payload); err != nil {
		return nil, NonRetryableError{Err: err}
	}
	return &Resolved{Descriptor: desc, Envelope: envelope, Payload: payload}, nil
}
