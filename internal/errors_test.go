package internal_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/apigate/internal"
)

func TestIsError(t *testing.T) {
	t.Parallel()

	t.Run("direct", func(t *testing.T) {
		t.Parallel()
		require.True(t, internal.IsError(internal.ErrNotFound("not found")))
	})

	t.Run("wrapped", func(t *testing.T) {
		t.Parallel()
		err := fmt.Errorf("bind: %w", internal.ErrBadRequest("bad"))
		require.True(t, internal.IsError(err))
	})

	t.Run("plain error", func(t *testing.T) {
		t.Parallel()
		require.False(t, internal.IsError(errors.New("boom")))
	})

	t.Run("nil", func(t *testing.T) {
		t.Parallel()
		require.False(t, internal.IsError(nil))
		require.Nil(t, internal.AsError(nil))
	})
}

func TestErrorConstructors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err    *internal.Error
		kind   internal.Kind
		status int
	}{
		{internal.ErrAuthenticationRequired("x"), internal.KindAuthenticationRequired, http.StatusForbidden},
		{internal.ErrInvalidCredential("x"), internal.KindInvalidCredential, http.StatusForbidden},
		{internal.ErrForbidden("x"), internal.KindForbidden, http.StatusForbidden},
		{internal.ErrMethodNotAllowed("x"), internal.KindMethodNotAllowed, http.StatusMethodNotAllowed},
		{internal.ErrBadRequest("x"), internal.KindBadRequest, http.StatusBadRequest},
		{internal.ErrMissingArgument("x"), internal.KindMissingArgument, http.StatusBadRequest},
		{internal.ErrNotFound("x"), internal.KindNotFound, http.StatusBadRequest},
		{internal.ErrInvalidRequest("x"), internal.KindInvalidRequest, http.StatusBadRequest},
		{internal.ErrMissingParameter("x"), internal.KindMissingArgument, http.StatusInternalServerError},
		{internal.ErrInternal("x"), internal.KindInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.kind, tt.err.Kind)
			require.Equal(t, tt.status, tt.err.StatusCode())
			require.Equal(t, "x", tt.err.Error())
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("db down")
	err := internal.ErrInternal("load failed", internal.WithCause(cause))
	require.ErrorIs(t, err, cause)
}

func TestClassify(t *testing.T) {
	t.Parallel()

	t.Run("gateway error is kept", func(t *testing.T) {
		t.Parallel()
		orig := internal.ErrMethodNotAllowed("get does not support POST")
		got := internal.Classify(fmt.Errorf("wrapped: %w", orig))
		require.Same(t, orig, got)
	})

	t.Run("permission denied becomes 403", func(t *testing.T) {
		t.Parallel()
		err := fmt.Errorf("edit page: %w", internal.ErrPermissionDenied)
		got := internal.Classify(err)
		require.Equal(t, http.StatusForbidden, got.Status)
		require.Equal(t, internal.KindForbidden, got.Kind)
		require.ErrorIs(t, got, internal.ErrPermissionDenied)
	})

	t.Run("permission denied overrides a gateway status", func(t *testing.T) {
		t.Parallel()
		orig := internal.ErrInternal("lookup failed", internal.WithCause(internal.ErrPermissionDenied))
		got := internal.Classify(fmt.Errorf("wrap: %w", orig))
		require.Equal(t, http.StatusForbidden, got.Status)
		require.Equal(t, internal.KindForbidden, got.Kind)
		require.Equal(t, "lookup failed", got.Message)
		require.ErrorIs(t, got, internal.ErrPermissionDenied)
		require.Equal(t, http.StatusInternalServerError, orig.Status)
	})

	t.Run("unknown error becomes 500 with its message", func(t *testing.T) {
		t.Parallel()
		got := internal.Classify(errors.New("boom"))
		require.Equal(t, http.StatusInternalServerError, got.Status)
		require.Equal(t, "boom", got.Message)
	})

	t.Run("nil stays nil", func(t *testing.T) {
		t.Parallel()
		require.Nil(t, internal.Classify(nil))
	})
}
