package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/sobirovsardorLearnBox/learnflow-academy-sub000/internal/executor"
	"github.com/sobirovsardorLearnBox/learnflow-academy-sub000/internal/storetest"
)

func setupLimiter(t *testing.T) (*Limiter, *storetest.Server) {
	srv := storetest.New()
	t.Cleanup(srv.Close)

	exec := executor.New(srv.Config(), zaptest.NewLogger(t))
	return New(exec, zaptest.NewLogger(t)), srv
}

func TestCheck_CountsWithinWindow(t *testing.T) {
	limiter, _ := setupLimiter(t)
	limiter.now = func() time.Time { return time.Unix(1000, 0) }
	ctx := context.Background()

	for _, wantRemaining := range []int{2, 1, 0} {
		result, err := limiter.Check(ctx, "ip:1.2.3.4", 3, 10*time.Second)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
		assert.Equal(t, wantRemaining, result.Remaining)
	}

	result, err := limiter.Check(ctx, "ip:1.2.3.4", 3, 10*time.Second)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, 0, result.Remaining)
}

func TestCheck_WindowRollover(t *testing.T) {
	limiter, _ := setupLimiter(t)
	ctx := context.Background()

	limiter.now = func() time.Time { return time.Unix(1000, 0) }
	for i := 0; i < 4; i++ {
		limiter.Check(ctx, "ip:1.2.3.4", 3, 10*time.Second)
	}

	// The next window gets a fresh counter.
	limiter.now = func() time.Time { return time.Unix(1010, 0) }
	result, err := limiter.Check(ctx, "ip:1.2.3.4", 3, 10*time.Second)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, 2, result.Remaining)
}

func TestCheck_ResetIn(t *testing.T) {
	limiter, _ := setupLimiter(t)
	limiter.now = func() time.Time { return time.Unix(1003, 0) }

	result, err := limiter.Check(context.Background(), "ip:1.2.3.4", 3, 10*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 7*time.Second, result.ResetIn)
}

func TestCheck_CounterExpiresWithWindow(t *testing.T) {
	limiter, srv := setupLimiter(t)
	limiter.now = func() time.Time { return time.Unix(1000, 0) }

	_, err := limiter.Check(context.Background(), "ip:1.2.3.4", 3, 10*time.Second)
	require.NoError(t, err)

	ttl, ok := srv.TTLOf("ratelimit:ip:1.2.3.4:100")
	require.True(t, ok)
	assert.InDelta(t, 10, ttl.Seconds(), 1)
}

func TestCheck_IndependentIdentifiers(t *testing.T) {
	limiter, _ := setupLimiter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		limiter.Check(ctx, "ip:1.2.3.4", 3, 10*time.Second)
	}

	result, err := limiter.Check(ctx, "ip:5.6.7.8", 3, 10*time.Second)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, 2, result.Remaining)
}

func TestCheck_FailsOpen(t *testing.T) {
	limiter, srv := setupLimiter(t)
	srv.Close()

	result, err := limiter.Check(context.Background(), "ip:1.2.3.4", 3, 10*time.Second)
	assert.Error(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, 3, result.Remaining)
}

func TestCheck_FailsOpenWhenUnconfigured(t *testing.T) {
	exec := executor.New(&executor.Config{}, zaptest.NewLogger(t))
	limiter := New(exec, zaptest.NewLogger(t))

	result, err := limiter.Check(context.Background(), "ip:1.2.3.4", 3, 10*time.Second)
	assert.ErrorIs(t, err, executor.ErrNotConfigured)
	assert.True(t, result.Allowed)
}
