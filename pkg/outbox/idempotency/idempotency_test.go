package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	claimed map[string]any
	ttls    map[string]time.Duration
	err     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{claimed: map[string]any{}, ttls: map[string]time.Duration{}}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	value, _ := f.claimed[key].(string)
	return value, nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if _, ok := f.claimed[key]; ok {
		return false, nil
	}
	f.claimed[key] = value
	f.ttls[key] = ttl
	return true, nil
}

func (f *fakeStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	f.claimed[key] = value
	f.ttls[key] = ttl
	return nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return "mkt:idempotency:" + scope + ":" + id
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.claimed, key)
	}
	return nil
}

func TestClaimOncePerMessage(t *testing.T) {
	store := newFakeStore()
	guard, err := NewGuard(store, "payments-confirmed", 24*time.Hour)
	require.NoError(t, err)
	guard.now = func() time.Time { return time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC) }

	first, err := guard.Claim(context.Background(), "1234567890")
	require.NoError(t, err)
	assert.True(t, first)

	again, err := guard.Claim(context.Background(), "1234567890")
	require.NoError(t, err)
	assert.False(t, again)

	key := "mkt:idempotency:msg:payments-confirmed:1234567890"
	assert.Equal(t, "2026-05-01T08:00:00Z", store.claimed[key])
	assert.Equal(t, 24*time.Hour, store.ttls[key])
}

func TestReleaseAllowsReclaim(t *testing.T) {
	guard, err := NewGuard(newFakeStore(), "payments-confirmed", time.Hour)
	require.NoError(t, err)
	ctx := context.Background()

	claimed, err := guard.Claim(ctx, "msg-9")
	require.NoError(t, err)
	require.True(t, claimed)

	require.NoError(t, guard.Release(ctx, "msg-9"))
	claimed, err = guard.Claim(ctx, "msg-9")
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestClaimErrors(t *testing.T) {
	store := newFakeStore()
	guard, err := NewGuard(store, "payments-confirmed", time.Hour)
	require.NoError(t, err)

	_, err = guard.Claim(context.Background(), " ")
	assert.ErrorIs(t, err, ErrMissingMessageID)
	assert.ErrorIs(t, guard.Release(context.Background(), ""), ErrMissingMessageID)

	boom := errors.New("boom")
	store.err = boom
	_, err = guard.Claim(context.Background(), "msg-1")
	assert.ErrorIs(t, err, boom)
}

func TestNewGuardValidation(t *testing.T) {
	_, err := NewGuard(nil, "payments-confirmed", time.Hour)
	assert.Error(t, err)
	_, err = NewGuard(newFakeStore(), "  ", time.Hour)
	assert.Error(t, err)
	_, err = NewGuard(newFakeStore(), "payments-confirmed", 0)
	assert.Error(t, err)
}
