package cache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/apigate/pkg/cache"
)

func TestMemory(t *testing.T) {
	t.Parallel()

	t.Run("returns ErrNotFound for missing key", func(t *testing.T) {
		t.Parallel()

		c := cache.NewMemory[string]()
		defer c.Close()

		_, err := c.Get(context.Background(), "missing")
		require.ErrorIs(t, err, cache.ErrNotFound)
	})

	t.Run("returns stored value", func(t *testing.T) {
		t.Parallel()

		c := cache.NewMemory[int]()
		defer c.Close()

		ctx := context.Background()
		require.NoError(t, c.Set(ctx, "key", 42, time.Minute))

		val, err := c.Get(ctx, "key")
		require.NoError(t, err)
		require.Equal(t, 42, val)
	})

	t.Run("expired entries are not returned", func(t *testing.T) {
		t.Parallel()

		c := cache.NewMemory[string](cache.WithCleanupInterval(0))
		defer c.Close()

		ctx := context.Background()
		require.NoError(t, c.Set(ctx, "key", "value", time.Millisecond))
		time.Sleep(5 * time.Millisecond)

		_, err := c.Get(ctx, "key")
		require.ErrorIs(t, err, cache.ErrNotFound)
	})

	t.Run("negative ttl never expires", func(t *testing.T) {
		t.Parallel()

		c := cache.NewMemory[string](cache.WithDefaultTTL(time.Millisecond), cache.WithCleanupInterval(0))
		defer c.Close()

		ctx := context.Background()
		require.NoError(t, c.Set(ctx, "key", "value", -1))
		time.Sleep(5 * time.Millisecond)

		val, err := c.Get(ctx, "key")
		require.NoError(t, err)
		require.Equal(t, "value", val)
	})

	t.Run("janitor purges expired entries", func(t *testing.T) {
		t.Parallel()

		c := cache.NewMemory[string](cache.WithCleanupInterval(time.Millisecond))
		defer c.Close()

		require.NoError(t, c.Set(context.Background(), "key", "value", time.Millisecond))
		require.Eventually(t, func() bool { return c.Len() == 0 }, time.Second, 2*time.Millisecond)
	})

	t.Run("delete removes key", func(t *testing.T) {
		t.Parallel()

		c := cache.NewMemory[string]()
		defer c.Close()

		ctx := context.Background()
		require.NoError(t, c.Set(ctx, "key", "value", 0))
		require.NoError(t, c.Delete(ctx, "key"))

		_, err := c.Get(ctx, "key")
		require.ErrorIs(t, err, cache.ErrNotFound)
	})

	t.Run("set after close fails", func(t *testing.T) {
		t.Parallel()

		c := cache.NewMemory[string]()
		require.NoError(t, c.Close())
		require.NoError(t, c.Close())
		require.ErrorIs(t, c.Set(context.Background(), "key", "value", 0), cache.ErrClosed)
	})
}

func TestLoader(t *testing.T) {
	t.Parallel()

	t.Run("computes once and caches", func(t *testing.T) {
		t.Parallel()

		c := cache.NewMemory[string]()
		defer c.Close()
		l := cache.NewLoader[string](c)

		var calls atomic.Int32
		fn := func(context.Context) (string, time.Duration, error) {
			calls.Add(1)
			return "computed", time.Minute, nil
		}

		ctx := context.Background()
		for range 3 {
			v, err := l.GetOrSet(ctx, "key", fn)
			require.NoError(t, err)
			require.Equal(t, "computed", v)
		}
		require.Equal(t, int32(1), calls.Load())
	})

	t.Run("errors are not cached", func(t *testing.T) {
		t.Parallel()

		c := cache.NewMemory[string]()
		defer c.Close()
		l := cache.NewLoader[string](c)

		boom := errors.New("boom")
		_, err := l.GetOrSet(context.Background(), "key", func(context.Context) (string, time.Duration, error) {
			return "", 0, boom
		})
		require.ErrorIs(t, err, boom)

		_, err = c.Get(context.Background(), "key")
		require.ErrorIs(t, err, cache.ErrNotFound)
	})

	t.Run("concurrent misses share one call", func(t *testing.T) {
		t.Parallel()

		c := cache.NewMemory[int]()
		defer c.Close()
		l := cache.NewLoader[int](c)

		var calls atomic.Int32
		release := make(chan struct{})
		fn := func(context.Context) (int, time.Duration, error) {
			calls.Add(1)
			<-release
			return 7, time.Minute, nil
		}

		var wg sync.WaitGroup
		for range 10 {
			wg.Go(func() {
				v, err := l.GetOrSet(context.Background(), "key", fn)
				require.NoError(t, err)
				require.Equal(t, 7, v)
			})
		}
		time.Sleep(20 * time.Millisecond)
		close(release)
		wg.Wait()

		require.Equal(t, int32(1), calls.Load())
	})

	t.Run("forget drops cached value", func(t *testing.T) {
		t.Parallel()

		c := cache.NewMemory[int]()
		defer c.Close()
		l := cache.NewLoader[int](c)

		ctx := context.Background()
		n := 0
		fn := func(context.Context) (int, time.Duration, error) {
			n++
			return n, time.Minute, nil
		}

		v, err := l.GetOrSet(ctx, "key", fn)
		require.NoError(t, err)
		require.Equal(t, 1, v)

		require.NoError(t, l.Forget(ctx, "key"))

		v, err = l.GetOrSet(ctx, "key", fn)
		require.NoError(t, err)
		require.Equal(t, 2, v)
	})
}
