package middlewares_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/apigate/internal"
	"github.com/dmitrymomot/apigate/middlewares"
)

func TestRecover(t *testing.T) {
	t.Parallel()

	t.Run("panic becomes internal error envelope", func(t *testing.T) {
		t.Parallel()

		h := serve(t, func(c internal.Context) error {
			panic("secret detail")
		}, middlewares.Recover())

		w := record(h, httptest.NewRequest(http.MethodGet, "/x", nil))
		require.Equal(t, http.StatusInternalServerError, w.Code)

		var env struct {
			Message string `json:"message"`
			Status  int    `json:"status"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
		require.Equal(t, http.StatusInternalServerError, env.Status)
		require.Equal(t, "Internal Server Error", env.Message)
		require.NotContains(t, w.Body.String(), "secret detail")
	})

	t.Run("custom message", func(t *testing.T) {
		t.Parallel()

		h := serve(t, func(c internal.Context) error {
			panic(errors.New("boom"))
		}, middlewares.Recover(middlewares.WithRecoverMessage("Oops")))

		w := record(h, httptest.NewRequest(http.MethodGet, "/x", nil))
		require.Contains(t, w.Body.String(), `"message":"Oops"`)
	})

	t.Run("passes through when no panic", func(t *testing.T) {
		t.Parallel()

		h := serve(t, ok, middlewares.Recover())
		w := record(h, httptest.NewRequest(http.MethodGet, "/x", nil))
		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("error wraps panic value and stack", func(t *testing.T) {
		t.Parallel()

		var got error
		app, err := internal.New(
			internal.WithMiddleware(middlewares.Recover()),
			internal.WithHandlers(route(func(c internal.Context) error { panic("kaboom") })),
			internal.WithErrorHandler(func(c internal.Context, err error) error {
				got = err
				c.Response().WriteHeader(http.StatusTeapot)
				return nil
			}),
		)
		require.NoError(t, err)

		w := record(app.Router(), httptest.NewRequest(http.MethodGet, "/x", nil))
		require.Equal(t, http.StatusTeapot, w.Code)
		require.True(t, middlewares.IsPanicError(got))

		pe, ok := middlewares.AsPanicError(got)
		require.True(t, ok)
		require.Equal(t, "kaboom", pe.Value)
		require.NotEmpty(t, pe.Stack)
		require.Equal(t, http.StatusInternalServerError, internal.Classify(got).Status)
	})

	t.Run("stack disabled", func(t *testing.T) {
		t.Parallel()

		var got error
		app, err := internal.New(
			internal.WithMiddleware(middlewares.Recover(middlewares.WithRecoverDisablePrintStack())),
			internal.WithHandlers(route(func(c internal.Context) error { panic(42) })),
			internal.WithErrorHandler(func(c internal.Context, err error) error {
				got = err
				return nil
			}),
		)
		require.NoError(t, err)

		record(app.Router(), httptest.NewRequest(http.MethodGet, "/x", nil))
		pe, ok := middlewares.AsPanicError(got)
		require.True(t, ok)
		require.Equal(t, 42, pe.Value)
		require.Nil(t, pe.Stack)
	})
}

func TestPanicError(t *testing.T) {
	t.Parallel()

	err := &middlewares.PanicError{Value: "x"}
	require.Equal(t, "panic: x", err.Error())
	require.False(t, middlewares.IsPanicError(errors.New("plain")))

	_, ok := middlewares.AsPanicError(nil)
	require.False(t, ok)
}
