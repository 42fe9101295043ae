package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-checkout/internal/orders"
	pkgerrors "github.com/angelmondragon/marketplace-checkout/pkg/errors"
	"github.com/angelmondragon/marketplace-checkout/pkg/logger"
)

// ConsumerName scopes this consumer's delivery claims.
const ConsumerName = "payments-confirmed"

// Confirmed is the payment processor's notification that a session was charged.
type Confirmed struct {
	SessionID        uuid.UUID `json:"session_id"`
	PaymentReference string    `json:"payment_reference"`
}

// Validate checks the fields the materializer needs.
func (c Confirmed) Validate() error {
	if c.SessionID == uuid.Nil {
		return fmt.Errorf("session_id is required")
	}
	if strings.TrimSpace(c.PaymentReference) == "" {
		return fmt.Errorf("payment_reference is required")
	}
	return nil
}

type confirmer interface {
	ConfirmPayment(ctx context.Context, sessionID uuid.UUID, paymentReference string) (*orders.SessionOrders, error)
}

type deduper interface {
	Claim(ctx context.Context, messageID string) (bool, error)
	Release(ctx context.Context, messageID string) error
}

// Consumer turns payment-confirmed messages into materialized orders.
type Consumer struct {
	confirmer    confirmer
	subscription *pubsub.Subscriber
	idempotency  deduper
	logg         *logger.Logger
}

// NewConsumer builds a payments consumer.
func NewConsumer(confirmer confirmer, subscription *pubsub.Subscriber, manager deduper, logg *logger.Logger) (*Consumer, error) {
	if confirmer == nil {
		return nil, fmt.Errorf("order materializer required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("payments subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency guard required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		confirmer:    confirmer,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	logCtx := c.logg.WithField(ctx, "message_id", msg.ID)

	var event Confirmed
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		c.logg.Error(logCtx, "failed to decode payment event", err)
		return processResult{ack: true}
	}
	if err := event.Validate(); err != nil {
		c.logg.Error(logCtx, "invalid payment event", err)
		return processResult{ack: true}
	}
	logCtx = c.logg.WithSessionID(logCtx, event.SessionID.String())

	claimed, err := c.idempotency.Claim(ctx, msg.ID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if !claimed {
		c.logg.Info(logCtx, "payment event already processed")
		return processResult{ack: true}
	}

	out, err := c.confirmer.ConfirmPayment(logCtx, event.SessionID, event.PaymentReference)
	if err != nil {
		if pkgerrors.Retryable(err) {
			c.logg.Error(logCtx, "order materialization failed, will retry", err)
			if relErr := c.idempotency.Release(ctx, msg.ID); relErr != nil {
				c.logg.Warn(c.logg.WithField(logCtx, "error", relErr.Error()), "failed to release delivery claim")
			}
			return processResult{nack: true}
		}
		c.logg.Warn(c.logg.WithField(logCtx, "error_code", pkgerrors.As(err).Code()), "payment confirmation rejected")
		return processResult{ack: true}
	}

	c.logg.Info(c.logg.WithFields(logCtx, map[string]any{
		"orders":    len(out.Orders),
		"duplicate": out.Duplicate,
	}), "payment confirmed")
	return processResult{ack: true}
}
