package internal_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/apigate/internal"
)

func TestResponseWriter(t *testing.T) {
	t.Parallel()

	t.Run("first status wins", func(t *testing.T) {
		t.Parallel()

		w := httptest.NewRecorder()
		rw := internal.NewResponseWriter(w)
		require.False(t, rw.Written())

		rw.WriteHeader(http.StatusForbidden)
		rw.WriteHeader(http.StatusOK)
		require.True(t, rw.Written())
		require.Equal(t, http.StatusForbidden, rw.Status())
		require.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("write implies 200", func(t *testing.T) {
		t.Parallel()

		w := httptest.NewRecorder()
		rw := internal.NewResponseWriter(w)
		n, err := rw.Write([]byte(`{"status":200}`))
		require.NoError(t, err)
		require.Equal(t, int64(n), rw.Size())
		require.Equal(t, http.StatusOK, rw.Status())
		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("wrapping is idempotent", func(t *testing.T) {
		t.Parallel()

		w := httptest.NewRecorder()
		rw := internal.NewResponseWriter(w)
		require.Same(t, rw, internal.NewResponseWriter(rw))
		require.Equal(t, http.ResponseWriter(w), rw.Unwrap())
	})

	t.Run("flush reaches the recorder", func(t *testing.T) {
		t.Parallel()

		w := httptest.NewRecorder()
		rw := internal.NewResponseWriter(w)
		require.NoError(t, http.NewResponseController(rw).Flush())
		require.True(t, w.Flushed)
	})
}
