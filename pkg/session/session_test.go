package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/apigate/pkg/cache"
	"github.com/dmitrymomot/apigate/pkg/session"
)

func TestSession(t *testing.T) {
	t.Parallel()

	t.Run("new session is dirty and new", func(t *testing.T) {
		t.Parallel()

		sess := session.New("id", "token", time.Now().Add(time.Hour))
		require.True(t, sess.IsNew())
		require.True(t, sess.IsDirty())
		require.False(t, sess.IsAuthenticated())
		require.NotNil(t, sess.Values)
	})

	t.Run("authenticate and logout", func(t *testing.T) {
		t.Parallel()

		sess := session.New("id", "token", time.Now().Add(time.Hour))
		sess.ClearDirty()

		sess.Authenticate("42")
		require.True(t, sess.IsAuthenticated())
		require.True(t, sess.IsDirty())

		sess.ClearDirty()
		sess.Logout()
		require.False(t, sess.IsAuthenticated())
		require.True(t, sess.IsDirty())
	})

	t.Run("delete of missing key keeps session clean", func(t *testing.T) {
		t.Parallel()

		sess := session.New("id", "token", time.Now().Add(time.Hour))
		sess.ClearDirty()
		sess.DeleteValue("missing")
		require.False(t, sess.IsDirty())
	})

	t.Run("typed values", func(t *testing.T) {
		t.Parallel()

		sess := session.New("id", "token", time.Now().Add(time.Hour))
		sess.SetValue("count", 3)

		n, err := session.Value[int](sess, "count")
		require.NoError(t, err)
		require.Equal(t, 3, n)

		_, err = session.Value[string](sess, "count")
		require.Error(t, err)

		require.Equal(t, "fallback", session.ValueOr(sess, "missing", "fallback"))
	})

	t.Run("expiry", func(t *testing.T) {
		t.Parallel()

		require.True(t, session.New("id", "token", time.Now().Add(-time.Second)).IsExpired())
	})
}

func newStore(t *testing.T) *session.CacheStore {
	t.Helper()

	c := cache.NewMemory[session.Session]()
	t.Cleanup(func() { _ = c.Close() })
	return session.NewCacheStore(c)
}

func TestCacheStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		t.Parallel()

		store := newStore(t)
		sess := session.New("id-1", "tok-1", time.Now().Add(time.Hour))
		sess.Authenticate("42")
		require.NoError(t, store.Create(ctx, sess))
		require.False(t, sess.IsNew())
		require.False(t, sess.IsDirty())

		got, err := store.Get(ctx, "tok-1")
		require.NoError(t, err)
		require.Equal(t, "id-1", got.ID)
		require.Equal(t, "42", got.IdentityID)
	})

	t.Run("unknown token", func(t *testing.T) {
		t.Parallel()

		_, err := newStore(t).Get(ctx, "nope")
		require.ErrorIs(t, err, session.ErrNotFound)
	})

	t.Run("empty token", func(t *testing.T) {
		t.Parallel()

		_, err := newStore(t).Get(ctx, "")
		require.ErrorIs(t, err, session.ErrInvalidToken)
	})

	t.Run("expired session cannot be stored", func(t *testing.T) {
		t.Parallel()

		sess := session.New("id", "tok", time.Now().Add(-time.Minute))
		require.ErrorIs(t, newStore(t).Create(ctx, sess), session.ErrExpired)
	})

	t.Run("update under a rotated token drops the old one", func(t *testing.T) {
		t.Parallel()

		store := newStore(t)
		sess := session.New("id", "old", time.Now().Add(time.Hour))
		require.NoError(t, store.Create(ctx, sess))

		sess.Token = "new"
		require.NoError(t, store.Update(ctx, "old", sess))

		_, err := store.Get(ctx, "old")
		require.ErrorIs(t, err, session.ErrNotFound)

		got, err := store.Get(ctx, "new")
		require.NoError(t, err)
		require.Equal(t, "id", got.ID)
	})

	t.Run("delete", func(t *testing.T) {
		t.Parallel()

		store := newStore(t)
		sess := session.New("id", "tok", time.Now().Add(time.Hour))
		require.NoError(t, store.Create(ctx, sess))
		require.NoError(t, store.Delete(ctx, "tok"))

		_, err := store.Get(ctx, "tok")
		require.ErrorIs(t, err, session.ErrNotFound)
	})
}
