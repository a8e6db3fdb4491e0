package internal

// Handler declares custom routes served next to the gateway.
//
// Example:
//
//	type SessionHandler struct {
//	    sessions *apigate.SessionManager
//	}
//
//	func (h *SessionHandler) Routes(r apigate.Router) {
//	    r.POST("/session", h.create)
//	    r.DELETE("/session", h.destroy)
//	}
type Handler interface {
	Routes(r Router)
}

// HandlerFunc is the signature for route handlers.
// It receives a Context and returns an error.
// Returning a non-nil error triggers the app's error handler.
type HandlerFunc func(c Context) error

// Middleware wraps a HandlerFunc to add cross-cutting concerns.
// Middleware can inspect/modify the request, short-circuit processing,
// or wrap the response.
//
// Example:
//
//	func RequireJSON(next apigate.HandlerFunc) apigate.HandlerFunc {
//	    return func(c apigate.Context) error {
//	        if c.Request().Method == http.MethodPost && !strings.Contains(c.Header("Content-Type"), "json") {
//	            return c.Error(http.StatusBadRequest, "JSON body required")
//	        }
//	        return next(c)
//	    }
//	}
type Middleware func(next HandlerFunc) HandlerFunc

// ErrorHandler handles errors returned from handlers.
type ErrorHandler func(Context, error) error
