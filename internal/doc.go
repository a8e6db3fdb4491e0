// Package internal provides the core types and implementation of the apigate gateway.
//
// This package is internal and should not be used directly. Import "github.com/dmitrymomot/apigate"
// instead, which re-exports the public API.
//
// # Request Pipeline
//
// The Dispatcher serves every path of the form
//
//	<prefix>/<service>/<method>/<k1>/<v1>/...
//
// and runs these stages in order. Any failure short-circuits to the error envelope:
//
//  1. Build a RequestContext (verb, effective verb, vars, body, remaining path).
//  2. Install a request-scoped identity holder; a session identity is logged in.
//  3. Look up the service in the Registry (400 "Invalid request").
//  4. WebserviceAuthenticator: token, security id and message checks (403).
//  5. Policy: whitelist, permission code, public flag, verb (403/405).
//  6. Binder: query/form vars, JSON body, path pairs or match pattern, entities.
//  7. Invoke the Go method reflectively; panics become 500.
//  8. Write the raw value, or map it and write {status, message, payload}.
//
// # Services
//
// A Service wraps any Go value. Exposed names map to Go methods by upper-casing
// the first rune, or through MethodAccessRule.Call. Parameter names are declared
// positionally in Service.Params; a leading context.Context is injected:
//
//	type PageService struct{ repo *Repo }
//
//	func (s *PageService) Rename(ctx context.Context, page *Page, title string) (*Page, error)
//
//	internal.Service{
//	    Name:    "pages",
//	    Handler: &PageService{repo: repo},
//	    Rules:   map[string]internal.MethodAccessRule{"rename": {Verb: "POST", Permission: "pages.write"}},
//	    Params:  map[string][]internal.Param{"rename": {internal.Required("page"), internal.Required("title")}},
//	}
//
// Calling POST /pages/rename with pageID=7&pageClass=Page&title=Home loads
// entity 7 through the resolver registered for "Page" before the call.
//
// # Errors
//
// Every stage returns an *Error carrying its Kind and HTTP status. Classify
// turns any other error into an internal error, except ErrPermissionDenied
// which becomes 403.
//
// # Custom Routes
//
// Custom handlers and middleware use the Context/HandlerFunc/Middleware types
// and run on the same chi router as the gateway:
//
//	app, err := internal.New(
//	    internal.WithServices(pages),
//	    internal.WithHandlers(sessionHandler),
//	    internal.WithMiddleware(requestID),
//	    internal.WithHealthChecks(internal.WithReadinessCheck("db", dbCheck)),
//	)
package internal
