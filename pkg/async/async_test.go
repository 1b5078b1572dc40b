package async_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/sessiontrack/pkg/async"
)

func TestGo(t *testing.T) {
	t.Parallel()

	t.Run("returns value", func(t *testing.T) {
		t.Parallel()
		f := async.Go(context.Background(), func(context.Context) (string, error) {
			return "ok", nil
		})
		v, err := f.Await(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "ok", v)
	})

	t.Run("returns error", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("boom")
		f := async.Go(context.Background(), func(context.Context) (int, error) {
			return 0, boom
		})
		_, err := f.Await(context.Background())
		assert.ErrorIs(t, err, boom)
	})

	t.Run("recovers panic", func(t *testing.T) {
		t.Parallel()
		f := async.Go(context.Background(), func(context.Context) (int, error) {
			panic("kaboom")
		})
		_, err := f.Await(context.Background())
		assert.ErrorIs(t, err, async.ErrPanic)
		assert.Contains(t, err.Error(), "kaboom")
	})

	t.Run("skips function for cancelled context", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		var called atomic.Bool
		f := async.Go(ctx, func(context.Context) (int, error) {
			called.Store(true)
			return 1, nil
		})
		<-f.Done()
		_, err := f.Await(context.Background())
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, called.Load())
	})

	t.Run("finished result wins over done context", func(t *testing.T) {
		t.Parallel()
		f := async.Go(context.Background(), func(context.Context) (int, error) {
			return 7, nil
		})
		<-f.Done()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		for range 100 {
			v, err := f.Await(ctx)
			require.NoError(t, err)
			assert.Equal(t, 7, v)
		}
	})

	t.Run("await honours its own context", func(t *testing.T) {
		t.Parallel()
		release := make(chan struct{})
		defer close(release)
		f := async.Go(context.Background(), func(context.Context) (int, error) {
			<-release
			return 1, nil
		})

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err := f.Await(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestSettle(t *testing.T) {
	t.Parallel()

	t.Run("runs concurrently and keeps order", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		start := time.Now()

		slow := async.Go(ctx, func(context.Context) (string, error) {
			time.Sleep(50 * time.Millisecond)
			return "slow", nil
		})
		failing := async.Go(ctx, func(context.Context) (string, error) {
			time.Sleep(50 * time.Millisecond)
			return "", errors.New("failed")
		})

		res := async.Settle(ctx, slow, failing)
		require.Len(t, res, 2)
		assert.Equal(t, "slow", res[0].Value)
		assert.NoError(t, res[0].Err)
		assert.Error(t, res[1].Err)
		assert.Less(t, time.Since(start), 95*time.Millisecond)
	})

	t.Run("keeps finished results after deadline", func(t *testing.T) {
		t.Parallel()
		release := make(chan struct{})
		defer close(release)

		for range 100 {
			ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
			slow := async.Go(ctx, func(ctx context.Context) (string, error) {
				<-ctx.Done()
				<-release
				return "", ctx.Err()
			})
			fast := async.Go(context.Background(), func(context.Context) (string, error) {
				return "fast", nil
			})
			<-fast.Done()
			<-ctx.Done()

			res := async.Settle(ctx, slow, fast)
			cancel()
			assert.ErrorIs(t, res[0].Err, context.DeadlineExceeded)
			require.NoError(t, res[1].Err)
			assert.Equal(t, "fast", res[1].Value)
		}
	})

	t.Run("empty", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, async.Settle[int](context.Background()))
	})
}
