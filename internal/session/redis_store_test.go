package session_test

import (
	"context"
	"io"
	"testing"
	"time"

	"taskboard/internal/session"

	"github.com/alicebob/miniredis/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func setupTestRedis(t *testing.T) (*session.RedisStore, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	store, err := session.NewRedisStore("redis://"+s.Addr(), quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, s
}

func TestNewRedisStore_BadURL(t *testing.T) {
	_, err := session.NewRedisStore("not a url", quietLogger())

	assert.Error(t, err)
}

func TestRedisStore_RevokeAndCheck(t *testing.T) {
	store, s := setupTestRedis(t)
	ctx := context.Background()

	revoked, err := store.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, store.Revoke(ctx, "jti-1", time.Now().Add(time.Hour)))

	revoked, err = store.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)
	assert.True(t, s.Exists("revoked:jti-1"))
	assert.InDelta(t, time.Hour.Seconds(), s.TTL("revoked:jti-1").Seconds(), 5)
}

func TestRedisStore_RevocationExpires(t *testing.T) {
	store, s := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Revoke(ctx, "jti-2", time.Now().Add(time.Minute)))
	s.FastForward(2 * time.Minute)

	revoked, err := store.IsRevoked(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRedisStore_ExpiredTokenIsNotStored(t *testing.T) {
	store, s := setupTestRedis(t)

	require.NoError(t, store.Revoke(context.Background(), "jti-3", time.Now().Add(-time.Minute)))

	assert.False(t, s.Exists("revoked:jti-3"))
}

func TestRedisStore_BreakerOpensWhenRedisIsDown(t *testing.T) {
	store, s := setupTestRedis(t)
	ctx := context.Background()
	s.Close()

	for i := 0; i < 4; i++ {
		_, err := store.IsRevoked(ctx, "jti")
		assert.Error(t, err)
	}

	_, err := store.IsRevoked(ctx, "jti")
	assert.ErrorContains(t, err, "circuit breaker is open")
}

func TestMemoryStore(t *testing.T) {
	store := session.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Revoke(ctx, "a", time.Now().Add(time.Hour)))
	require.NoError(t, store.Revoke(ctx, "b", time.Now().Add(-time.Hour)))

	revoked, err := store.IsRevoked(ctx, "a")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = store.IsRevoked(ctx, "b")
	require.NoError(t, err)
	assert.False(t, revoked)
	assert.NoError(t, store.Ping(ctx))
}
