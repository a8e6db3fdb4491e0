package internal

import (
	"net/http"
)

// ResponseWriter records the status a handler sent, for call metrics and
// for error handling that must not write twice. Flush and Hijack stay
// reachable through http.ResponseController via Unwrap.
type ResponseWriter struct {
	http.ResponseWriter
	status int
	size   int64
}

// NewResponseWriter wraps w. An already wrapped writer is returned as is.
func NewResponseWriter(w http.ResponseWriter) *ResponseWriter {
	if rw, ok := w.(*ResponseWriter); ok {
		return rw
	}
	return &ResponseWriter{ResponseWriter: w}
}

// WriteHeader sends code unless a status went out already.
func (w *ResponseWriter) WriteHeader(code int) {
	if w.status != 0 {
		return
	}
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *ResponseWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(b)
	w.size += int64(n)
	return n, err
}

// Status is the sent status, or 200 when nothing was sent yet.
func (w *ResponseWriter) Status() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

// Size is the number of body bytes written.
func (w *ResponseWriter) Size() int64 { return w.size }

// Written reports whether the status line went out.
func (w *ResponseWriter) Written() bool { return w.status != 0 }

func (w *ResponseWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
