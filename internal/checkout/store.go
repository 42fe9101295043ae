package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SessionStore keeps sessions between preview and payment confirmation.
// Get returns (nil, nil) when the session is unknown.
type SessionStore interface {
	Save(ctx context.Context, session *Session, ttl time.Duration) error
	Get(ctx context.Context, id uuid.UUID) (*Session, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type jsonKV interface {
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	GetJSON(ctx context.Context, key string, dst any) (bool, error)
	Del(ctx context.Context, keys ...string) error
	CheckoutSessionKey(sessionID string) string
}

type redisSessionStore struct {
	kv jsonKV
}

// NewRedisSessionStore stores sessions as JSON documents in Redis.
func NewRedisSessionStore(kv jsonKV) (SessionStore, error) {
	if kv == nil {
		return nil, fmt.Errorf("redis client required")
	}
	return &redisSessionStore{kv: kv}, nil
}

func (s *redisSessionStore) Save(ctx context.Context, session *Session, ttl time.Duration) error {
	if session == nil {
		return fmt.Errorf("session required")
	}
	return s.kv.SetJSON(ctx, s.kv.CheckoutSessionKey(session.ID.String()), session, ttl)
}

func (s *redisSessionStore) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	var session Session
	found, err := s.kv.GetJSON(ctx, s.kv.CheckoutSessionKey(id.String()), &session)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &session, nil
}

func (s *redisSessionStore) Delete(ctx context.Context, id uuid.UUID) error {
	return s.kv.Del(ctx, s.kv.CheckoutSessionKey(id.String()))
}
