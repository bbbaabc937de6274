package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fairgate/internal/platform/clock"
	dErrors "fairgate/pkg/domain-errors"
)

func TestMemoryCounter(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFake(time.Unix(1_700_000_000, 0))
	counter := NewMemoryCounter(clk)

	t.Run("counts within a window", func(t *testing.T) {
		for want := int64(1); want <= 3; want++ {
			count, remaining, err := counter.Incr(ctx, "k", time.Minute)
			require.NoError(t, err)
			assert.Equal(t, want, count)
			assert.Equal(t, time.Minute, remaining)
		}
	})

	t.Run("remaining shrinks as the window ages", func(t *testing.T) {
		clk.Advance(20 * time.Second)
		_, remaining, err := counter.Incr(ctx, "k", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, 40*time.Second, remaining)
	})

	t.Run("window reset starts a fresh count", func(t *testing.T) {
		clk.Advance(time.Minute)
		count, _, err := counter.Incr(ctx, "k", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("keys are independent", func(t *testing.T) {
		count, _, err := counter.Incr(ctx, "other", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})
}

func newTestLimiter(clk clock.Clock, opts ...LimiterOption) *Limiter {
	return NewLimiter(NewMemoryCounter(clk), opts...)
}

func TestLimiterAllow(t *testing.T) {
	ctx := context.Background()

	t.Run("origin limit is exact", func(t *testing.T) {
		clk := clock.NewFake(time.Unix(1_700_000_000, 0))
		l := newTestLimiter(clk, WithLimits(3, 10))

		for i := 0; i < 3; i++ {
			require.NoError(t, l.Allow(ctx, "1.2.3.4", ""))
		}
		err := l.Allow(ctx, "1.2.3.4", "")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeRateLimited))
		assert.GreaterOrEqual(t, dErrors.RetryAfterOf(err), 1)
	})

	t.Run("identity limit is checked after origin", func(t *testing.T) {
		clk := clock.NewFake(time.Unix(1_700_000_000, 0))
		l := newTestLimiter(clk, WithLimits(100, 2))

		require.NoError(t, l.Allow(ctx, "1.2.3.4", "wallet-a"))
		require.NoError(t, l.Allow(ctx, "5.6.7.8", "wallet-a"))
		err := l.Allow(ctx, "9.9.9.9", "wallet-a")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeRateLimited))
	})

	t.Run("empty identity skips the identity scope", func(t *testing.T) {
		clk := clock.NewFake(time.Unix(1_700_000_000, 0))
		l := newTestLimiter(clk, WithLimits(100, 1))

		require.NoError(t, l.Allow(ctx, "1.2.3.4", ""))
		require.NoError(t, l.Allow(ctx, "1.2.3.4", ""))
	})

	t.Run("window reset readmits", func(t *testing.T) {
		clk := clock.NewFake(time.Unix(1_700_000_000, 0))
		l := newTestLimiter(clk, WithLimits(1, 1), WithWindow(time.Minute))

		require.NoError(t, l.Allow(ctx, "1.2.3.4", "wallet-a"))
		require.Error(t, l.Allow(ctx, "1.2.3.4", "wallet-a"))

		clk.Advance(time.Minute + time.Second)
		assert.NoError(t, l.Allow(ctx, "1.2.3.4", "wallet-a"))
	})

	t.Run("disabled scope admits everything", func(t *testing.T) {
		clk := clock.NewFake(time.Unix(1_700_000_000, 0))
		l := newTestLimiter(clk, WithLimits(0, 0))

		for i := 0; i < 50; i++ {
			require.NoError(t, l.Allow(ctx, "1.2.3.4", "wallet-a"))
		}
	})
}

type failingCounter struct{ err error }

func (f failingCounter) Incr(context.Context, string, time.Duration) (int64, time.Duration, error) {
	return 0, 0, f.err
}

type recordingCounter struct {
	count int64
	calls int
}

func (r *recordingCounter) Incr(_ context.Context, _ string, window time.Duration) (int64, time.Duration, error) {
	r.calls++
	r.count++
	return r.count, window, nil
}

func TestLimiterSharedBackend(t *testing.T) {
	ctx := context.Background()

	t.Run("shared counter is preferred", func(t *testing.T) {
		shared := &recordingCounter{}
		clk := clock.NewFake(time.Unix(1_700_000_000, 0))
		l := newTestLimiter(clk, WithSharedCounter(shared), WithLimits(10, 10))

		require.NoError(t, l.Allow(ctx, "1.2.3.4", "wallet-a"))
		assert.Equal(t, 2, shared.calls, "both scopes hit the shared counter")
	})

	t.Run("shared failure degrades to memory by default", func(t *testing.T) {
		clk := clock.NewFake(time.Unix(1_700_000_000, 0))
		l := newTestLimiter(clk,
			WithSharedCounter(failingCounter{err: assert.AnError}),
			WithLimits(1, 1))

		require.NoError(t, l.Allow(ctx, "1.2.3.4", ""))
		err := l.Allow(ctx, "1.2.3.4", "")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeRateLimited))
	})

	t.Run("require shared fails closed on backend failure", func(t *testing.T) {
		clk := clock.NewFake(time.Unix(1_700_000_000, 0))
		l := newTestLimiter(clk,
			WithSharedCounter(failingCounter{err: assert.AnError}),
			WithRequireShared(true))

		err := l.Allow(ctx, "1.2.3.4", "wallet-a")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBackendUnavailable))
		assert.Equal(t, 1, dErrors.RetryAfterOf(err))
	})

	t.Run("require shared fails closed when unconfigured", func(t *testing.T) {
		clk := clock.NewFake(time.Unix(1_700_000_000, 0))
		l := newTestLimiter(clk, WithRequireShared(true))

		err := l.Allow(ctx, "1.2.3.4", "wallet-a")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBackendUnavailable))
	})
}
