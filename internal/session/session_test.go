package session

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	ctx := context.Background()

	sess := New("mumc")
	require.NotEmpty(t, sess.Token)
	require.NoError(t, store.Set(ctx, sess))

	got, err := store.Get(ctx, sess.Token)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "mumc", got.Username)

	require.NoError(t, store.Delete(ctx, sess.Token))
	got, err = store.Get(ctx, sess.Token)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore(-time.Second) // already expired
	ctx := context.Background()

	sess := New("mumc")
	require.NoError(t, store.Set(ctx, sess))

	got, err := store.Get(ctx, sess.Token)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryStoreRateLimit(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := store.CheckRateLimit(ctx, "1.2.3.4", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	}

	ok, err := store.CheckRateLimit(ctx, "1.2.3.4", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	// Другой ключ не затронут
	ok, err = store.CheckRateLimit(ctx, "5.6.7.8", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func setupRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, time.Hour), mr
}

func TestRedisStoreRoundTrip(t *testing.T) {
	store, _ := setupRedisStore(t)
	ctx := context.Background()

	sess := New("universiteit_maastricht")
	require.NoError(t, store.Set(ctx, sess))

	got, err := store.Get(ctx, sess.Token)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "universiteit_maastricht", got.Username)

	require.NoError(t, store.Delete(ctx, sess.Token))
	got, err = store.Get(ctx, sess.Token)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisStoreUnknownToken(t *testing.T) {
	store, _ := setupRedisStore(t)

	got, err := store.Get(context.Background(), "no-such-token")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisStoreRateLimit(t *testing.T) {
	store, _ := setupRedisStore(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := store.CheckRateLimit(ctx, "login:1.2.3.4", 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	}

	ok, err := store.CheckRateLimit(ctx, "login:1.2.3.4", 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFailoverFallsBackWhenPrimaryDies(t *testing.T) {
	logger := zerolog.New(os.Stdout)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	primary := NewRedisStore(client, time.Hour)
	fallback := NewMemoryStore(time.Hour)
	store := NewFailoverStore(primary, fallback, &logger)

	ctx := context.Background()

	sess := New("mumc")
	require.NoError(t, store.Set(ctx, sess))

	// Primary serves the session while healthy.
	got, err := store.Get(ctx, sess.Token)
	require.NoError(t, err)
	require.NotNil(t, got)

	// Kill Redis; writes and reads keep working through memory.
	mr.Close()

	next := New("mondriaan_heerlen")
	require.NoError(t, store.Set(ctx, next))

	got, err = store.Get(ctx, next.Token)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "mondriaan_heerlen", got.Username)
}
