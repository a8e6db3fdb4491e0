// Package middlewares provides HTTP middleware for apigate applications.
//
// Middleware registered with WithMiddleware runs in front of both custom
// routes and gateway calls.
//
// # Request ID
//
// RequestID assigns a UUIDv7 to each request, or keeps the one sent by an
// upstream proxy. Use RequestIDExtractor with WithLogger to add request_id to
// every log entry, including the ones written by the dispatcher:
//
//	app, err := apigate.New(
//	    apigate.WithLogger("api", middlewares.RequestIDExtractor()),
//	    apigate.WithMiddleware(middlewares.RequestID()),
//	)
//
// # Recover
//
// Recover turns panics in custom routes into a 500 envelope. The returned
// error wraps a *PanicError for error handlers that want the value or stack:
//
//	apigate.WithErrorHandler(func(c apigate.Context, err error) error {
//	    if pe, ok := middlewares.AsPanicError(err); ok {
//	        c.LogError("panic", "value", pe.Value)
//	    }
//	    return apigate.WriteError(c.Response(), err)
//	})
//
// Gateway calls recover panics on their own.
//
// # CORS
//
// CORS answers preflight requests and adds CORS headers. The defaults allow
// the token and signature headers used by the gateway:
//
//	middlewares.CORS(
//	    middlewares.WithAllowOrigins("https://app.example.com"),
//	    middlewares.WithAllowCredentials(),
//	)
//
// # Recommended Order
//
//	apigate.WithMiddleware(
//	    middlewares.CORS(),
//	    middlewares.RequestID(),
//	    middlewares.Recover(),
//	)
package middlewares
