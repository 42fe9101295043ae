package idempotency

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/marketplace-checkout/pkg/redis"
)

var ErrMissingMessageID = errors.New("message id is required")

// Guard dedupes Pub/Sub deliveries for a single consumer. A claim is a SETNX
// on mkt:idempotency:msg:<consumer>:<message_id> whose value is the claim
// time, kept for ttl.
type Guard struct {
	store    redis.IdempotencyStore
	consumer string
	ttl      time.Duration
	now      func() time.Time
}

func NewGuard(store redis.IdempotencyStore, consumer string, ttl time.Duration) (*Guard, error) {
	consumer = strings.TrimSpace(consumer)
	switch {
	case store == nil:
		return nil, errors.New("idempotency store is required")
	case consumer == "":
		return nil, errors.New("consumer name is required")
	case ttl <= 0:
		return nil, fmt.Errorf("claim ttl must be positive, got %s", ttl)
	}
	return &Guard{store: store, consumer: consumer, ttl: ttl, now: time.Now}, nil
}

// Claim reports whether this delivery is the first one seen for messageID.
// false with a nil error means an earlier delivery already holds the claim.
func (g *Guard) Claim(ctx context.Context, messageID string) (bool, error) {
	key, err := g.key(messageID)
	if err != nil {
		return false, err
	}
	claimed, err := g.store.SetNX(ctx, key, g.now().UTC().Format(time.RFC3339Nano), g.ttl)
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", key, err)
	}
	return claimed, nil
}

// Release drops a claim so the next redelivery of messageID is processed.
func (g *Guard) Release(ctx context.Context, messageID string) error {
	key, err := g.key(messageID)
	if err != nil {
		return err
	}
	if err := g.store.Del(ctx, key); err != nil {
		return fmt.Errorf("release %s: %w", key, err)
	}
	return nil
}

func (g *Guard) key(messageID string) (string, error) {
	messageID = strings.TrimSpace(messageID)
	if messageID == "" {
		return "", ErrMissingMessageID
	}
	return g.store.IdempotencyKey("msg:"+g.consumer, messageID), nil
}
