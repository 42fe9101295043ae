package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/marketplace-checkout/pkg/config"
)

type sessionFixture struct {
	ID    string `json:"id"`
	Total int    `json:"total"`
}

func TestJSONRoundTripAndMissingKey(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{cmd: mock}
	key := client.CheckoutSessionKey("abc")

	require.NoError(t, client.SetJSON(ctx, key, sessionFixture{ID: "abc", Total: 1057}, 30*time.Minute))
	assert.Equal(t, 30*time.Minute, mock.ttls[key])

	var got sessionFixture
	found, err := client.GetJSON(ctx, key, &got)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, sessionFixture{ID: "abc", Total: 1057}, got)

	require.NoError(t, client.Del(ctx, key))
	found, err = client.GetJSON(ctx, key, &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestGetJSONRejectsCorruptPayload(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{cmd: mock}
	mock.data["mkt:checkout_session:bad"] = "{not json"

	var got sessionFixture
	_, err := client.GetJSON(ctx, "mkt:checkout_session:bad", &got)
	require.Error(t, err)
}

func TestSetNXOnlyOnce(t *testing.T) {
	ctx := context.Background()
	client := &Client{cmd: newMockCmdable()}

	ok, err := client.SetNX(ctx, "k", "v1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.SetNX(ctx, "k", "v2", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	v, err := client.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v1", v)
}

func TestZeroClientIsNotConnected(t *testing.T) {
	client := &Client{}
	assert.ErrorIs(t, client.Ping(context.Background()), ErrNotConnected)
	assert.ErrorIs(t, client.Set(context.Background(), "k", "v", 0), ErrNotConnected)
	assert.ErrorIs(t, client.Del(context.Background(), "k"), ErrNotConnected)
	require.NoError(t, client.Close())
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	assert.Equal(t, "mkt:idempotency:scope:id", client.IdempotencyKey("scope", "id"))
	assert.Equal(t, "mkt:checkout_session:s-1", client.CheckoutSessionKey("s-1"))
	assert.Equal(t, "mkt:idempotency:scope", client.IdempotencyKey("scope", ""))
	assert.Equal(t, "mkt", Key())
	assert.Equal(t, "mkt:a:b", Key(" a ", "", "b"))
}

func TestOptionsPrefersURLAndFillsGaps(t *testing.T) {
	opts, err := Options(config.RedisConfig{
		URL:         "redis://:secret@cache.internal:6380/3",
		Address:     "ignored:6379",
		DB:          7,
		PoolSize:    20,
		DialTimeout: 2 * time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, "cache.internal:6380", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 3, opts.DB)
	assert.Equal(t, 20, opts.PoolSize)
	assert.Equal(t, 2*time.Second, opts.DialTimeout)

	opts, err = Options(config.RedisConfig{Address: "localhost:6379", DB: 2})
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", opts.Addr)
	assert.Equal(t, 2, opts.DB)

	_, err = Options(config.RedisConfig{})
	assert.Error(t, err)
	_, err = Options(config.RedisConfig{URL: "http://nope"})
	assert.Error(t, err)
}

type mockCmdable struct {
	data map[string]string
	ttls map[string]time.Duration
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{
		data: make(map[string]string),
		ttls: make(map[string]time.Duration),
	}
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockCmdable) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	m.data[key] = stringify(value)
	m.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (m *mockCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd {
	if _, exists := m.data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = stringify(value)
	m.ttls[key] = expiration
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(m.data, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func stringify(value any) string {
	if b, ok := value.([]byte); ok {
		return string(b)
	}
	return fmt.Sprint(value)
}
