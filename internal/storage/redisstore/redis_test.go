package redisstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tumioparbe/web/internal/storage"
)

func newTestBackend(t *testing.T, ttl time.Duration) (*Backend, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err, "miniredis start")
	t.Cleanup(mr.Close)

	b := New(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "test:", ttl)
	t.Cleanup(func() { _ = b.Close() })
	return b, mr
}

func TestBackend_RoundTrip(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBackend(t, 0)

	_, err := b.Get(ctx, "sid-1", "tokens")
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, b.Set(ctx, "sid-1", "tokens", []byte(`{"access":"a"}`)))
	got, err := b.Get(ctx, "sid-1", "tokens")
	require.NoError(t, err)
	assert.JSONEq(t, `{"access":"a"}`, string(got))

	_, err = b.Get(ctx, "sid-2", "tokens")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, b.Delete(ctx, "sid-1", "tokens"))
	require.NoError(t, b.Delete(ctx, "sid-1", "tokens"))
	_, err = b.Get(ctx, "sid-1", "tokens")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestBackend_SlidingTTL(t *testing.T) {
	ctx := context.Background()
	b, mr := newTestBackend(t, time.Hour)

	require.NoError(t, b.Set(ctx, "sid-1", "k", []byte("v")))
	assert.Equal(t, time.Hour, mr.TTL("test:sid-1"))

	mr.FastForward(59 * time.Minute)
	require.NoError(t, b.Set(ctx, "sid-1", "k2", []byte("v")))
	assert.Equal(t, time.Hour, mr.TTL("test:sid-1"), "write must extend the namespace TTL")

	mr.FastForward(2 * time.Hour)
	_, err := b.Get(ctx, "sid-1", "k")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestOpen_BadURL(t *testing.T) {
	_, err := Open(context.Background(), "://nope", "", 0)
	require.Error(t, err)
}
