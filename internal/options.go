package internal

import (
	"context"
	"log/slog"
	"maps"
	"path"
	"strings"

	"github.com/dmitrymomot/apigate/pkg/logger"
	"github.com/dmitrymomot/apigate/pkg/session"
)

// Option configures the application.
type Option func(*App)

// WithServices registers service objects with the gateway.
// Registration is validated when New runs.
//
// Example:
//
//	apigate.WithServices(apigate.Service{
//	    Name:    "pages",
//	    Handler: &PageService{},
//	    Rules: map[string]apigate.MethodAccessRule{
//	        "get":    {Public: true},
//	        "update": {Verb: "POST", Permission: "pages.write"},
//	    },
//	    Params: map[string][]apigate.Param{
//	        "get":    {apigate.Required("page")},
//	        "update": {apigate.Required("page"), apigate.Optional("title", "")},
//	    },
//	})
func WithServices(svcs ...Service) Option {
	return func(a *App) {
		a.services = append(a.services, svcs...)
	}
}

// WithRules merges a rule set, e.g. loaded with LoadRules, into the
// registered services. Rules for unregistered services fail New.
func WithRules(rs RuleSet) Option {
	return func(a *App) {
		if a.rules == nil {
			a.rules = RuleSet{}
		}
		for name, rules := range rs {
			if a.rules[name] == nil {
				a.rules[name] = make(map[string]MethodAccessRule, len(rules))
			}
			maps.Copy(a.rules[name], rules)
		}
	}
}

// WithEntity binds an entity discriminator to its resolver.
// Requests reference entities as <name>ID plus <name>Class=<discriminator>.
func WithEntity(discriminator string, resolver EntityResolver) Option {
	return func(a *App) {
		if discriminator != "" && resolver != nil {
			a.entities.Register(discriminator, resolver)
		}
	}
}

// WithEntities replaces the entity registry.
func WithEntities(entities *EntityRegistry) Option {
	return func(a *App) {
		if entities != nil {
			a.entities = entities
		}
	}
}

// WithCredentialStore enables X-Auth-Token authentication.
// A Hasher must also be configured.
func WithCredentialStore(store CredentialStore) Option {
	return func(a *App) {
		a.credentials = store
	}
}

// WithHasher sets the token hash derivation.
func WithHasher(h Hasher) Option {
	return func(a *App) {
		a.hasher = h
	}
}

// WithTokenHeader overrides the auth token header name.
// Defaults to "X-Auth-Token".
func WithTokenHeader(name string) Option {
	return func(a *App) {
		if name != "" {
			a.tokenHeader = name
		}
	}
}

// WithPermissions configures role-based permission checks for rules with a
// permission code. The extractor determines the caller's role; nil reads
// Role() from identities that implement RoleIdentity.
//
// Example:
//
//	apigate.WithPermissions(
//	    apigate.RolePermissions{
//	        "admin":  {"pages.read", "pages.write"},
//	        "editor": {"pages.read"},
//	    },
//	    nil,
//	)
func WithPermissions(permissions RolePermissions, extractor RoleExtractorFunc) Option {
	return func(a *App) {
		a.permissions = NewRoleChecker(permissions, extractor)
	}
}

// WithPermissionChecker sets a custom permission checker.
func WithPermissionChecker(checker PermissionChecker) Option {
	return func(a *App) {
		a.permissions = checker
	}
}

// WithSession enables cookie sessions as an identity source.
// When no security token source is configured, a random per-process one is created.
//
// Example:
//
//	apigate.WithSession(session.NewCacheStore(cache), identities,
//	    apigate.WithSessionSecure(true),
//	)
func WithSession(store session.Store, loader IdentityLoader, opts ...SessionOption) Option {
	return func(a *App) {
		a.sessions = NewSessionManager(store, loader, opts...)
	}
}

// WithSessionManager uses an existing session manager, e.g. one shared with
// a login handler.
func WithSessionManager(sm *SessionManager) Option {
	return func(a *App) {
		a.sessions = sm
	}
}

// WithSecurityTokens sets the security id source checked for session callers.
func WithSecurityTokens(src SecurityTokenSource) Option {
	return func(a *App) {
		a.securityTokens = src
	}
}

// WithoutSecurityID disables the security id check for session callers.
func WithoutSecurityID() Option {
	return func(a *App) {
		a.allowSecurityID = false
	}
}

// WithMessageValidator requires identified callers to pass message validation.
func WithMessageValidator(v MessageValidator) Option {
	return func(a *App) {
		a.validator = v
	}
}

// WithPublicAccess lets anonymous callers reach methods marked public.
func WithPublicAccess() Option {
	return func(a *App) {
		a.allowPublicAccess = true
	}
}

// WithUnlistedMethods lets services without rules expose every method
// that has a valid signature, callable with GET or POST.
func WithUnlistedMethods() Option {
	return func(a *App) {
		a.allowUnlisted = true
	}
}

// WithObjectMapper sets the result mapper. Defaults to DefaultMapper.
func WithObjectMapper(m ObjectMapper) Option {
	return func(a *App) {
		a.mapper = m
	}
}

// WithMetrics enables Prometheus metrics served at path.
// An empty path uses "/metrics".
func WithMetrics(metricsPath string) Option {
	return func(a *App) {
		a.enableMetrics = true
		if metricsPath != "" {
			a.metricsPath = metricsPath
		}
	}
}

// WithPrefix mounts the gateway below prefix, e.g. "/api".
func WithPrefix(prefix string) Option {
	return func(a *App) {
		a.prefix = strings.TrimSuffix(path.Join("/", prefix), "/")
	}
}

// WithEndpointListing serves the whitelisted methods at <prefix>/<name>.
// An empty name uses "_endpoints".
func WithEndpointListing(name string) Option {
	return func(a *App) {
		a.listEndpoints = true
		if name = strings.Trim(name, "/"); name != "" {
			a.endpointsPath = name
		}
	}
}

// WithMaxBodySize limits request bodies. Defaults to 10 MiB.
func WithMaxBodySize(n int64) Option {
	return func(a *App) {
		if n > 0 {
			a.maxBody = n
		}
	}
}

// WithShutdownHook registers a cleanup function run after the server stops.
//
// Example:
//
//	apigate.WithShutdownHook(db.Shutdown(pool))
func WithShutdownHook(fn func(context.Context) error) Option {
	return func(a *App) {
		if fn != nil {
			a.shutdownHooks = append(a.shutdownHooks, fn)
		}
	}
}

// WithMiddleware adds global middleware to the application.
// Middleware is applied in the order provided and runs before the gateway.
func WithMiddleware(mw ...Middleware) Option {
	return func(a *App) {
		a.middlewares = append(a.middlewares, mw...)
	}
}

// WithHandlers registers custom route handlers next to the gateway.
func WithHandlers(h ...Handler) Option {
	return func(a *App) {
		a.handlers = append(a.handlers, h...)
	}
}

// WithErrorHandler sets the error handler for custom routes and middleware.
// Gateway calls always answer with the error envelope.
func WithErrorHandler(h ErrorHandler) Option {
	return func(a *App) {
		a.errorHandler = h
	}
}

// WithNotFoundHandler sets a custom 404 handler for paths outside the gateway.
func WithNotFoundHandler(h HandlerFunc) Option {
	return func(a *App) {
		a.notFoundHandler = h
	}
}

// WithMethodNotAllowedHandler sets a custom 405 handler for custom routes.
func WithMethodNotAllowedHandler(h HandlerFunc) Option {
	return func(a *App) {
		a.methodNotAllowedHandler = h
	}
}

// WithHealthChecks enables health check endpoints with optional configuration.
// Liveness (/health/live): Always returns OK if process is running.
// Readiness (/health/ready): Runs all configured checks.
//
// Example:
//
//	apigate.WithHealthChecks(
//	    apigate.WithReadinessCheck("db", db.Healthcheck(pool)),
//	    apigate.WithReadinessCheck("redis", redis.Healthcheck(client)),
//	)
func WithHealthChecks(opts ...HealthOption) Option {
	return func(a *App) {
		cfg := &healthConfig{
			livenessPath:  defaultLivenessPath,
			readinessPath: defaultReadinessPath,
		}
		for _, opt := range opts {
			opt(cfg)
		}
		a.healthConfig = cfg
	}
}

// WithLogger creates a logger with a component name and optional extractors.
// The identity extractor is always added.
//
// Example:
//
//	apigate.New(
//	    apigate.WithLogger("gateway", middlewares.RequestIDExtractor()),
//	)
func WithLogger(component string, extractors ...logger.ContextExtractor) Option {
	return func(a *App) {
		extractors = append(extractors, IdentityExtractor())
		a.logger = logger.New(extractors...).With("component", component)
	}
}

// WithCustomLogger sets a fully custom logger.
func WithCustomLogger(l *slog.Logger) Option {
	return func(a *App) {
		if l != nil {
			a.logger = l
		}
	}
}
