package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/apigate/pkg/health"
)

func TestRun(t *testing.T) {
	t.Parallel()

	t.Run("no checks is healthy", func(t *testing.T) {
		t.Parallel()

		resp := health.Run(context.Background(), nil)
		require.Equal(t, health.StatusHealthy, resp.Status)
		require.Empty(t, resp.Checks)
	})

	t.Run("one failure makes the result unhealthy", func(t *testing.T) {
		t.Parallel()

		resp := health.Run(context.Background(), health.Checks{
			"db":    func(context.Context) error { return nil },
			"cache": func(context.Context) error { return errors.New("connection refused") },
		})
		require.Equal(t, health.StatusUnhealthy, resp.Status)
		require.Equal(t, health.StatusHealthy, resp.Checks["db"].Status)
		require.NotEmpty(t, resp.Checks["db"].Duration)
		require.Equal(t, health.StatusUnhealthy, resp.Checks["cache"].Status)
		require.Equal(t, "health: check failed: connection refused", resp.Checks["cache"].Error)
	})

	t.Run("check ignoring ctx times out", func(t *testing.T) {
		t.Parallel()

		release := make(chan struct{})
		defer close(release)

		resp := health.Run(context.Background(), health.Checks{
			"slow": func(context.Context) error { <-release; return nil },
		}, health.WithTimeout(20*time.Millisecond))
		require.Equal(t, health.StatusUnhealthy, resp.Status)
		require.Equal(t, health.ErrCheckTimeout.Error(), resp.Checks["slow"].Error)
	})

	t.Run("deadline error is reported as timeout", func(t *testing.T) {
		t.Parallel()

		resp := health.Run(context.Background(), health.Checks{
			"ctx": func(ctx context.Context) error { <-ctx.Done(); return ctx.Err() },
		}, health.WithTimeout(10*time.Millisecond))
		require.Equal(t, health.ErrCheckTimeout.Error(), resp.Checks["ctx"].Error)
	})
}

func TestHandlers(t *testing.T) {
	t.Parallel()

	t.Run("liveness", func(t *testing.T) {
		t.Parallel()

		w := httptest.NewRecorder()
		health.LivenessHandler()(w, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, "OK", w.Body.String())
	})

	t.Run("readiness text", func(t *testing.T) {
		t.Parallel()

		h := health.ReadinessHandler(health.Checks{
			"db": func(context.Context) error { return errors.New("down") },
		})
		w := httptest.NewRecorder()
		h(w, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusServiceUnavailable, w.Code)
		require.Equal(t, "Service Unavailable", w.Body.String())
		require.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	})

	t.Run("readiness json", func(t *testing.T) {
		t.Parallel()

		h := health.ReadinessHandler(health.Checks{
			"db": func(context.Context) error { return nil },
		})
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Accept", "application/json")
		w := httptest.NewRecorder()
		h(w, req)
		require.Equal(t, http.StatusOK, w.Code)

		var resp health.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Equal(t, health.StatusHealthy, resp.Status)
		require.Equal(t, health.StatusHealthy, resp.Checks["db"].Status)
	})
}
