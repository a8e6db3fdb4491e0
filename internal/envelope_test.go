package internal_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/apigate/internal"
)

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var env map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestWriteSuccess(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	require.NoError(t, internal.WriteSuccess(w, map[string]int{"n": 1}))

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "application/json", w.Header().Get("Content-Type"))
	require.JSONEq(t, `{"status":200,"message":"success","payload":{"n":1}}`, w.Body.String())
}

func TestWriteError(t *testing.T) {
	t.Parallel()

	t.Run("classified error keeps status", func(t *testing.T) {
		t.Parallel()

		w := httptest.NewRecorder()
		require.NoError(t, internal.WriteError(w, internal.ErrMethodNotAllowed("list does not support POST")))

		require.Equal(t, http.StatusMethodNotAllowed, w.Code)
		env := decodeEnvelope(t, w)
		require.EqualValues(t, 405, env["status"])
		require.Equal(t, "list does not support POST", env["message"])
		require.Empty(t, env["payload"])
	})

	t.Run("unclassified error is 500", func(t *testing.T) {
		t.Parallel()

		w := httptest.NewRecorder()
		require.NoError(t, internal.WriteError(w, errors.New("boom")))

		require.Equal(t, http.StatusInternalServerError, w.Code)
		require.JSONEq(t, `{"status":500,"message":"boom","payload":[]}`, w.Body.String())
	})
}

func TestWriteRaw(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   any
		want string
	}{
		{"string verbatim", `{"raw":true}`, `{"raw":true}`},
		{"bytes verbatim", []byte("plain"), "plain"},
		{"struct encoded", struct {
			A int `json:"a"`
		}{A: 1}, `{"a":1}`},
		{"nil writes nothing", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := httptest.NewRecorder()
			require.NoError(t, internal.WriteRaw(w, tt.in))
			require.Equal(t, http.StatusOK, w.Code)
			require.Equal(t, "application/json", w.Header().Get("Content-Type"))
			require.Equal(t, tt.want, w.Body.String())
		})
	}
}
