package internal

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Router is the interface custom handlers use to declare routes next to
// the gateway, e.g. a login endpoint that creates sessions.
// Custom routes must not overlap the gateway prefix.
type Router interface {
	// Handle registers h for method and path.
	Handle(method, path string, h HandlerFunc, mw ...Middleware)

	GET(path string, h HandlerFunc, mw ...Middleware)
	POST(path string, h HandlerFunc, mw ...Middleware)
	DELETE(path string, h HandlerFunc, mw ...Middleware)

	// Route groups routes under a path prefix.
	Route(pattern string, fn func(r Router))

	// Use adds middleware for routes registered after it in this group.
	Use(mw ...Middleware)

	// Mount attaches a plain http.Handler, e.g. a third-party router.
	Mount(pattern string, h http.Handler)
}

type chiRouter struct {
	mux chi.Router
	app *App
}

func (r *chiRouter) Handle(method, path string, h HandlerFunc, mw ...Middleware) {
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	r.mux.Method(method, path, r.app.wrapHandler(h))
}

func (r *chiRouter) GET(path string, h HandlerFunc, mw ...Middleware) {
	r.Handle(http.MethodGet, path, h, mw...)
}

func (r *chiRouter) POST(path string, h HandlerFunc, mw ...Middleware) {
	r.Handle(http.MethodPost, path, h, mw...)
}

func (r *chiRouter) DELETE(path string, h HandlerFunc, mw ...Middleware) {
	r.Handle(http.MethodDelete, path, h, mw...)
}

func (r *chiRouter) Route(pattern string, fn func(Router)) {
	r.mux.Route(pattern, func(sub chi.Router) {
		fn(&chiRouter{mux: sub, app: r.app})
	})
}

func (r *chiRouter) Use(mw ...Middleware) {
	for _, m := range mw {
		r.mux.Use(r.app.adaptMiddleware(m))
	}
}

func (r *chiRouter) Mount(pattern string, h http.Handler) {
	r.mux.Mount(pattern, h)
}

// adaptMiddleware runs mw as chi middleware. next sees c.Request(), so a
// middleware that replaces the request context (request id, identity scope)
// hands the new one on.
func (a *App) adaptMiddleware(mw Middleware) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		h := mw(func(c Context) error {
			next.ServeHTTP(c.Response(), c.Request())
			return nil
		})
		return a.wrapHandler(h)
	}
}
