package internal_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/apigate/internal"
)

func newRC(t *testing.T, req *http.Request, tail string) *internal.RequestContext {
	t.Helper()

	rc, err := internal.NewRequestContext(httptest.NewRecorder(), req, tail, 0)
	require.NoError(t, err)
	return rc
}

func TestExtractor(t *testing.T) {
	t.Parallel()

	t.Run("empty sources returns false", func(t *testing.T) {
		t.Parallel()

		ext := internal.NewExtractor()
		rc := newRC(t, httptest.NewRequest(http.MethodGet, "/", nil), "")
		v, ok := ext.Extract(rc)
		require.False(t, ok)
		require.Empty(t, v)
	})

	t.Run("first source wins", func(t *testing.T) {
		t.Parallel()

		ext := internal.NewExtractor(
			internal.FromHeader("X-First"),
			internal.FromHeader("X-Second"),
		)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-First", "first-val")
		req.Header.Set("X-Second", "second-val")

		v, ok := ext.Extract(newRC(t, req, ""))
		require.True(t, ok)
		require.Equal(t, "first-val", v)
	})

	t.Run("falls through to later sources", func(t *testing.T) {
		t.Parallel()

		ext := internal.NewExtractor(
			internal.FromQuery("token"),
			internal.FromHeader("X-Auth-Token"),
		)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Auth-Token", "1:abc")

		v, ok := ext.Extract(newRC(t, req, ""))
		require.True(t, ok)
		require.Equal(t, "1:abc", v)
	})

	t.Run("var prefers query over form", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodPost, "/?token=q", strings.NewReader("token=f"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		v, ok := internal.NewExtractor(internal.FromVar("token")).Extract(newRC(t, req, ""))
		require.True(t, ok)
		require.Equal(t, "q", v)
	})

	t.Run("var reads form when query misses", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("token=f"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		v, ok := internal.NewExtractor(internal.FromVar("token")).Extract(newRC(t, req, ""))
		require.True(t, ok)
		require.Equal(t, "f", v)
	})

	t.Run("bearer token", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "bearer abc")

		v, ok := internal.NewExtractor(internal.FromBearerToken()).Extract(newRC(t, req, ""))
		require.True(t, ok)
		require.Equal(t, "abc", v)
	})

	t.Run("bearer prefix only misses", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer ")

		_, ok := internal.NewExtractor(internal.FromBearerToken()).Extract(newRC(t, req, ""))
		require.False(t, ok)
	})
}

func TestNewRequestContext(t *testing.T) {
	t.Parallel()

	t.Run("splits service method and remaining path", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/api/pages/get/param1/value%201", nil)
		rc := newRC(t, req, "/pages/get/param1/value%201/")
		require.Equal(t, "pages", rc.Service)
		require.Equal(t, "get", rc.Method)
		require.Equal(t, "param1/value%201", rc.Remaining)
		require.Equal(t, http.MethodGet, rc.EffectiveVerb)
	})

	t.Run("non-empty body makes effective verb POST", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"a":1}`))
		req.Header.Set("Content-Type", "application/json")
		rc := newRC(t, req, "svc/m")
		require.Equal(t, http.MethodPut, rc.Verb)
		require.Equal(t, http.MethodPost, rc.EffectiveVerb)
		require.True(t, rc.IsJSON())
		require.JSONEq(t, `{"a":1}`, string(rc.Body))
	})

	t.Run("GET vars come from query", func(t *testing.T) {
		t.Parallel()

		rc := newRC(t, httptest.NewRequest(http.MethodGet, "/?a=1", nil), "svc/m")
		require.Equal(t, "1", rc.Vars().Get("a"))
	})

	t.Run("POST vars come from form", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodPost, "/?a=1", strings.NewReader("b=2"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rc := newRC(t, req, "svc/m")
		require.Equal(t, "2", rc.Vars().Get("b"))
		require.Empty(t, rc.Vars().Get("a"))
	})

	t.Run("body over limit is rejected", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 64)))
		_, err := internal.NewRequestContext(httptest.NewRecorder(), req, "svc/m", 16)
		require.Error(t, err)

		httpErr := internal.AsError(err)
		require.NotNil(t, httpErr)
		require.Equal(t, http.StatusBadRequest, httpErr.Status)
	})
}
