// Package apigate exposes the methods of plain Go values as an HTTP API.
//
// Every request of the form
//
//	<prefix>/<service>/<method>/<k1>/<v1>/...
//
// is authenticated, checked against the method's access rule, bound to the
// method's parameters and answered with a JSON envelope:
//
//	{"status": 200, "message": "success", "payload": ...}
//
// # Quick Start
//
//	type Pages struct{ repo *Repo }
//
//	func (p *Pages) Rename(ctx context.Context, page *Page, title string) (*Page, error) {
//	    return p.repo.Rename(ctx, page, title)
//	}
//
//	app, err := apigate.New(
//	    apigate.WithServices(apigate.Service{
//	        Name:    "pages",
//	        Handler: &Pages{repo: repo},
//	        Rules: map[string]apigate.MethodAccessRule{
//	            "rename": {Verb: "POST", Permission: "pages.write"},
//	        },
//	        Params: map[string][]apigate.Param{
//	            "rename": {apigate.Required("page"), apigate.Required("title")},
//	        },
//	    }),
//	    apigate.WithEntity("Page", pageResolver),
//	    apigate.WithCredentialStore(store),
//	    apigate.WithHasher(hasher), // *tokenhash.Hasher
//	    apigate.WithPermissions(apigate.RolePermissions{"editor": {"pages.write"}}, nil),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := app.Run(":8080"); err != nil {
//	    log.Fatal(err)
//	}
//
// A call
//
//	POST /pages/rename  pageID=7&pageClass=Page&title=Home
//	X-Auth-Token: 42:secret
//
// authenticates identity 42, checks pages.write, loads Page 7 through
// pageResolver and invokes Rename.
//
// # Access Rules
//
// Only methods listed in Rules are callable. Rules can also be loaded from
// YAML and override the ones declared in code:
//
//	rules, err := apigate.LoadRules(os.DirFS("config"), "rules.yaml")
//	app, err := apigate.New(apigate.WithServices(pages), apigate.WithRules(rules))
//
// # Errors
//
// Services return plain errors or *Error values. [Classify] maps any error to
// a status: *Error keeps its own, [ErrPermissionDenied] becomes 403 and
// everything else 500.
//
// # Custom Routes
//
// Handlers and middleware run on the same router as the gateway:
//
//	func (h *Login) Routes(r apigate.Router) {
//	    r.POST("/login", h.login)
//	}
//
//	apigate.New(
//	    apigate.WithHandlers(login),
//	    apigate.WithMiddleware(middlewares.RequestID()),
//	    apigate.WithHealthChecks(apigate.WithReadinessCheck("db", db.Healthcheck(pool))),
//	)
package apigate
