package artwork

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiterAllowsUpToCapacity(t *testing.T) {
	t.Parallel()

	l := newSlidingWindowLimiter(3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, l.Wait(ctx))
	}
	assert.Equal(t, 3, l.Pending())
}

func TestLimiterBlocksUntilWindowSlides(t *testing.T) {
	t.Parallel()

	window := 80 * time.Millisecond
	l := newSlidingWindowLimiter(1, window)
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx))

	start := time.Now()
	require.NoError(t, l.Wait(ctx))
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, window, "second attempt should wait for the oldest stamp to slide out")
}

func TestLimiterContextCancellation(t *testing.T) {
	t.Parallel()

	l := newSlidingWindowLimiter(1, time.Minute)
	require.NoError(t, l.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := l.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, l.Pending(), "cancelled wait must not record an attempt")
}

func TestLimiterPruneDropsOldStamps(t *testing.T) {
	t.Parallel()

	l := newSlidingWindowLimiter(5, time.Minute)
	current := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return current }

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, l.Wait(ctx))
	}
	assert.Equal(t, 5, l.Pending())

	current = current.Add(2 * time.Minute)
	assert.Equal(t, 0, l.Pending())

	// With the window clear, capacity is available again without waiting.
	require.NoError(t, l.Wait(ctx))
}
