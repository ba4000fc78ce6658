package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type faultLog struct {
	mu  sync.Mutex
	ops []string
}

func (f *faultLog) hook(op, _ string, _ error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, op)
}

func (f *faultLog) list() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ops...)
}

func newTestRedisCache(t *testing.T) (*RedisCache, *miniredis.Miniredis, *faultLog) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { client.Close() })

	faults := &faultLog{}
	c := NewRedisCacheFromClient(client, zerolog.Nop(), RedisOptions{
		Timeout: 200 * time.Millisecond,
		OnFault: faults.hook,
	})
	return c, mr, faults
}

func TestRedisCache_SetGet(t *testing.T) {
	c, mr, faults := newTestRedisCache(t)
	ctx := context.Background()

	_, ok := c.Get(ctx, "context:dev:m1")
	assert.False(t, ok)

	c.Set(ctx, "context:dev:m1", []byte(`{"suggestedReply":"hi"}`), DefaultTTL)

	got, ok := c.Get(ctx, "context:dev:m1")
	require.True(t, ok)
	assert.JSONEq(t, `{"suggestedReply":"hi"}`, string(got))
	assert.Equal(t, DefaultTTL, mr.TTL("context:dev:m1"))
	assert.Empty(t, faults.list())
}

func TestRedisCache_Expiry(t *testing.T) {
	c, mr, _ := newTestRedisCache(t)
	ctx := context.Background()

	c.Set(ctx, "k", []byte("v"), 300*time.Second)

	mr.FastForward(299 * time.Second)
	_, ok := c.Get(ctx, "k")
	assert.True(t, ok, "entry should still be served within its TTL")

	mr.FastForward(time.Second)
	_, ok = c.Get(ctx, "k")
	assert.False(t, ok, "entry must not be served once its TTL has elapsed")
}

func TestRedisCache_OverwriteReplacesWholesale(t *testing.T) {
	c, mr, _ := newTestRedisCache(t)
	ctx := context.Background()

	c.Set(ctx, "k", []byte("first"), time.Minute)
	mr.FastForward(30 * time.Second)
	c.Set(ctx, "k", []byte("second"), time.Minute)

	got, ok := c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "second", string(got))
	assert.Equal(t, time.Minute, mr.TTL("k"))
}

func TestRedisCache_StoreDownIsAbsorbed(t *testing.T) {
	c, mr, faults := newTestRedisCache(t)
	ctx := context.Background()

	c.Set(ctx, "k", []byte("v"), time.Minute)
	mr.Close()

	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)

	c.Set(ctx, "k2", []byte("v2"), time.Minute)

	assert.Equal(t, []string{"get", "set"}, faults.list())
}

func TestRedisCache_PingAndClient(t *testing.T) {
	c, _, _ := newTestRedisCache(t)
	require.NoError(t, c.Ping(context.Background()))
	assert.NotNil(t, c.Client())
}

func TestNewRedisCache_BadURL(t *testing.T) {
	_, err := NewRedisCache(context.Background(), "not-a-url://", zerolog.Nop(), RedisOptions{})
	assert.Error(t, err)
}

func TestNewRedisCache_Connects(t *testing.T) {
	mr := miniredis.RunT(t)
	c, err := NewRedisCache(context.Background(), "redis://"+mr.Addr(), zerolog.Nop(), RedisOptions{})
	require.NoError(t, err)
	defer c.Close()

	c.Set(context.Background(), "k", []byte("v"), time.Minute)
	assert.True(t, mr.Exists("k"))
}

func TestNewRedisCache_UnreachableStartsDegraded(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	c, err := NewRedisCache(context.Background(), "redis://"+addr, zerolog.Nop(), RedisOptions{Timeout: 100 * time.Millisecond})
	require.NoError(t, err)
	defer c.Close()

	assert.Error(t, c.Ping(context.Background()))

	_, ok := c.Get(context.Background(), "k")
	assert.False(t, ok)
	c.Set(context.Background(), "k", []byte("v"), time.Minute)
}
