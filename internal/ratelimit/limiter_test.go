package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLimiter(t *testing.T, policy Policy) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb, "rate_limit", policy, zerolog.Nop()), mr
}

func TestFixedWindow(t *testing.T) {
	l, mr := newLimiter(t, FailOpen)
	ctx := context.Background()
	id := Identifier("10.0.0.1", "ana@example.com")

	for i := 1; i <= 5; i++ {
		exceeded, err := l.Exceeded(ctx, id, 5, 300*time.Second)
		require.NoError(t, err)
		assert.False(t, exceeded, "attempt %d", i)
	}
	exceeded, err := l.Exceeded(ctx, id, 5, 300*time.Second)
	require.NoError(t, err)
	assert.True(t, exceeded, "6th attempt")

	// rejected attempts are not counted
	v, err := mr.Get("rate_limit:" + id)
	require.NoError(t, err)
	assert.Equal(t, "5", v)
	assert.Equal(t, 300*time.Second, mr.TTL("rate_limit:"+id))

	mr.FastForward(301 * time.Second)
	exceeded, err = l.Exceeded(ctx, id, 5, 300*time.Second)
	require.NoError(t, err)
	assert.False(t, exceeded, "window elapsed")
}

func TestIdentifiersAreIndependent(t *testing.T) {
	l, _ := newLimiter(t, FailOpen)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, _ = l.Exceeded(ctx, Identifier("1.1.1.1", "a"), 2, time.Minute)
	}
	exceeded, _ := l.Exceeded(ctx, Identifier("1.1.1.1", "a"), 2, time.Minute)
	assert.True(t, exceeded)

	exceeded, _ = l.Exceeded(ctx, Identifier("1.1.1.1", "b"), 2, time.Minute)
	assert.False(t, exceeded)
	exceeded, _ = l.Exceeded(ctx, Identifier("2.2.2.2", "a"), 2, time.Minute)
	assert.False(t, exceeded)
}

func TestReset(t *testing.T) {
	l, mr := newLimiter(t, FailOpen)
	ctx := context.Background()
	id := Identifier("10.0.0.1", "ana")

	for i := 0; i < 3; i++ {
		_, _ = l.Exceeded(ctx, id, 3, time.Minute)
	}
	require.NoError(t, l.Reset(ctx, id))
	assert.False(t, mr.Exists("rate_limit:"+id))

	exceeded, err := l.Exceeded(ctx, id, 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, exceeded)
}

func TestStoreFailurePolicy(t *testing.T) {
	for _, tc := range []struct {
		policy   Policy
		exceeded bool
	}{
		{FailOpen, false},
		{FailClosed, true},
	} {
		t.Run(tc.policy.String(), func(t *testing.T) {
			l, mr := newLimiter(t, tc.policy)
			mr.Close()

			exceeded, err := l.Exceeded(context.Background(), "x", 5, time.Minute)
			assert.Error(t, err)
			assert.Equal(t, tc.exceeded, exceeded)
		})
	}
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("Closed")
	require.NoError(t, err)
	assert.Equal(t, FailClosed, p)
	p, err = ParsePolicy("open")
	require.NoError(t, err)
	assert.Equal(t, FailOpen, p)
	_, err = ParsePolicy("")
	assert.Error(t, err)
}
