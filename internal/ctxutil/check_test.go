package ctxutil_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/osdep/internal/ctxutil"
)

func TestCanceled(t *testing.T) {
	t.Parallel()

	t.Run("returns nil for active context", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, ctxutil.Canceled(context.Background()))
	})

	t.Run("returns error for canceled context", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		require.ErrorIs(t, ctxutil.Canceled(ctx), context.Canceled)
	})

	t.Run("returns error for deadline exceeded", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithTimeout(context.Background(), 0)
		defer cancel()
		<-ctx.Done()
		require.ErrorIs(t, ctxutil.Canceled(ctx), context.DeadlineExceeded)
	})
}

func TestSleep(t *testing.T) {
	t.Parallel()

	t.Run("waits for the duration", func(t *testing.T) {
		t.Parallel()
		start := time.Now()
		require.NoError(t, ctxutil.Sleep(context.Background(), 5*time.Millisecond))
		assert.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)
	})

	t.Run("returns early on cancel", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(10 * time.Millisecond)
			cancel()
		}()
		start := time.Now()
		require.ErrorIs(t, ctxutil.Sleep(ctx, time.Hour), context.Canceled)
		assert.Less(t, time.Since(start), time.Minute)
	})

	t.Run("zero duration checks the context only", func(t *testing.T) {
		t.Parallel()
		require.NoError(t, ctxutil.Sleep(context.Background(), 0))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		require.ErrorIs(t, ctxutil.Sleep(ctx, 0), context.Canceled)
	})
}
