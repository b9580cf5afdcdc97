package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlidingWindowLimiter_Disabled(t *testing.T) {
	t.Parallel()

	var l *slidingWindowLimiter
	assert.Nil(t, newSlidingWindowLimiter(0, time.Minute))
	assert.NoError(t, l.Wait(context.Background()))
}

func TestSlidingWindowLimiter_AllowsBurstUpToLimit(t *testing.T) {
	t.Parallel()

	l := newSlidingWindowLimiter(3, time.Minute)
	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, l.Wait(context.Background()))
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestSlidingWindowLimiter_BlocksUntilWindowSlides(t *testing.T) {
	t.Parallel()

	window := 80 * time.Millisecond
	l := newSlidingWindowLimiter(2, window)

	require.NoError(t, l.Wait(context.Background()))
	require.NoError(t, l.Wait(context.Background()))

	start := time.Now()
	require.NoError(t, l.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), window/2)
}

func TestSlidingWindowLimiter_WaitHonorsContext(t *testing.T) {
	t.Parallel()

	l := newSlidingWindowLimiter(1, time.Hour)
	require.NoError(t, l.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := l.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
