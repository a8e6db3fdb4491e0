package internal_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/apigate/internal"
)

func TestIdentityScope(t *testing.T) {
	t.Parallel()

	t.Run("no scope is anonymous", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		require.False(t, internal.LogIn(ctx, alice))
		require.Nil(t, internal.CurrentIdentity(ctx))
		internal.LogOut(ctx)
	})

	t.Run("release clears the identity", func(t *testing.T) {
		t.Parallel()

		ctx, release := internal.WithIdentityScope(context.Background())
		require.True(t, internal.LogIn(ctx, alice))
		require.Equal(t, alice, internal.CurrentIdentity(ctx))

		release()
		require.Nil(t, internal.CurrentIdentity(ctx))
	})

	t.Run("concurrent scopes are isolated", func(t *testing.T) {
		t.Parallel()

		var wg sync.WaitGroup
		for _, u := range []testUser{alice, bob} {
			wg.Go(func() {
				ctx, release := internal.WithIdentityScope(context.Background())
				defer release()
				for range 100 {
					internal.LogIn(ctx, u)
					if got := internal.CurrentIdentity(ctx); got != internal.Identity(u) {
						t.Errorf("scope of %s observed %v", u.ID, got)
					}
				}
			})
		}
		wg.Wait()
	})

	t.Run("log extractor", func(t *testing.T) {
		t.Parallel()

		extract := internal.IdentityExtractor()
		ctx, release := internal.WithIdentityScope(context.Background())
		defer release()

		_, ok := extract(ctx)
		require.False(t, ok)

		internal.LogIn(ctx, alice)
		attr, ok := extract(ctx)
		require.True(t, ok)
		require.Equal(t, "identity_id", attr.Key)
		require.Equal(t, "1", attr.Value.String())
	})
}
