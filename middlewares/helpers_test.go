package middlewares_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/apigate/internal"
)

// route mounts a single GET handler at "/x".
type route internal.HandlerFunc

func (h route) Routes(r internal.Router) {
	r.GET("/x", internal.HandlerFunc(h))
	r.POST("/x", internal.HandlerFunc(h))
}

type echoService struct{}

func (echoService) Ping() string { return "pong" }

// serve builds an app with mw in front of both a custom route and the gateway.
func serve(t *testing.T, h internal.HandlerFunc, mw ...internal.Middleware) http.Handler {
	t.Helper()

	app, err := internal.New(
		internal.WithMiddleware(mw...),
		internal.WithHandlers(route(h)),
		internal.WithServices(internal.Service{
			Name:    "echo",
			Handler: echoService{},
			Rules:   map[string]internal.MethodAccessRule{"ping": {Public: true}},
		}),
		internal.WithPublicAccess(),
		internal.WithPrefix("/api"),
	)
	require.NoError(t, err)
	return app.Router()
}

func ok(c internal.Context) error {
	c.Response().WriteHeader(http.StatusOK)
	return nil
}

func record(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}
