package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/apigate/pkg/health"
	"github.com/dmitrymomot/apigate/pkg/logger"
	"github.com/dmitrymomot/apigate/pkg/securitytoken"
)

// Server limits applied by Run.
const (
	defaultReadTimeout       = 15 * time.Second
	defaultWriteTimeout      = 30 * time.Second
	defaultIdleTimeout       = 120 * time.Second
	defaultReadHeaderTimeout = 5 * time.Second
	defaultMaxHeaderBytes    = 1 << 20 // 1MB
	defaultShutdownTimeout   = 30 * time.Second
)

// DefaultMetricsPath is where WithMetrics exposes the collectors.
const DefaultMetricsPath = "/metrics"

// App wires the gateway collaborators onto a chi router and runs the server.
// App is immutable after creation - all configuration is done via New().
type App struct {
	router                  chi.Router
	errorHandler            ErrorHandler
	notFoundHandler         HandlerFunc
	methodNotAllowedHandler HandlerFunc
	healthConfig            *healthConfig
	logger                  *slog.Logger

	registry       *Registry
	entities       *EntityRegistry
	services       []Service
	rules          RuleSet
	credentials    CredentialStore
	hasher         Hasher
	tokenHeader    string
	permissions    PermissionChecker
	sessions       *SessionManager
	securityTokens SecurityTokenSource
	validator      MessageValidator
	mapper         ObjectMapper
	metrics        *Metrics
	metricsPath    string
	dispatcher     *Dispatcher

	prefix            string
	endpointsPath     string
	maxBody           int64
	allowPublicAccess bool
	allowSecurityID   bool
	allowUnlisted     bool
	listEndpoints     bool
	enableMetrics     bool

	middlewares   []Middleware
	handlers      []Handler
	shutdownHooks []func(context.Context) error
	errs          []error
}

// New creates a gateway application with the given options.
// Invalid service registrations and collaborator setup failures are
// returned as a joined error.
//
// Example:
//
//	app, err := apigate.New(
//	    apigate.WithServices(apigate.Service{Name: "pages", Handler: pages, Rules: rules}),
//	    apigate.WithCredentialStore(store),
//	    apigate.WithHasher(hasher),
//	)
func New(opts ...Option) (*App, error) {
	a := &App{
		router:          chi.NewRouter(),
		logger:          logger.NewNope(),
		registry:        NewRegistry(),
		entities:        NewEntityRegistry(),
		tokenHeader:     DefaultTokenHeader,
		endpointsPath:   DefaultEndpointsPath,
		metricsPath:     DefaultMetricsPath,
		maxBody:         DefaultMaxBodySize,
		allowSecurityID: true,
	}

	for _, opt := range opts {
		opt(a)
	}

	services, err := a.rules.apply(a.services)
	if err != nil {
		a.errs = append(a.errs, err)
	}
	for _, svc := range services {
		if err := a.registry.Register(svc); err != nil {
			a.errs = append(a.errs, err)
		}
	}

	if a.sessions != nil {
		a.sessions.SetLogger(a.logger)
		if a.securityTokens == nil && a.allowSecurityID {
			issuer, err := securitytoken.NewRandom()
			if err != nil {
				a.errs = append(a.errs, fmt.Errorf("security tokens: %w", err))
			} else {
				a.securityTokens = issuer
			}
		}
	}

	if a.enableMetrics {
		m, err := NewMetrics(nil)
		if err != nil {
			a.errs = append(a.errs, fmt.Errorf("metrics: %w", err))
		}
		a.metrics = m
	}

	if err := errors.Join(a.errs...); err != nil {
		return nil, err
	}

	a.dispatcher = NewDispatcher(DispatcherConfig{
		Registry: a.registry,
		Entities: a.entities,
		Policy:   NewPolicy(a.permissions, a.allowUnlisted),
		Auth:     a.authenticator(),
		Sessions: a.sessions,
		Mapper:   a.mapper,
		Metrics:  a.metrics,
		Logger:   a.logger,
		Prefix:   a.prefix,
		MaxBody:  a.maxBody,
	})

	a.setupRoutes()
	return a, nil
}

func (a *App) authenticator() *WebserviceAuthenticator {
	var tokens *TokenAuthenticator
	if a.credentials != nil && a.hasher != nil {
		tokens = NewTokenAuthenticator(a.credentials, a.hasher, a.tokenHeader)
	}
	return NewWebserviceAuthenticator(tokens,
		WithPublicAccessAllowed(a.allowPublicAccess),
		WithSecurityIDCheck(a.allowSecurityID),
		WithSecurityTokenSource(a.securityTokens),
		WithMessageValidatorCheck(a.validator),
	)
}

// Router returns the underlying chi.Router for the App.
func (a *App) Router() chi.Router {
	return a.router
}

// Registry returns the service registry.
func (a *App) Registry() *Registry {
	return a.registry
}

// Dispatcher returns the gateway handler mounted below the prefix.
func (a *App) Dispatcher() *Dispatcher {
	return a.dispatcher
}

// Metrics returns the gateway metrics, or nil when WithMetrics is not set.
func (a *App) Metrics() *Metrics {
	return a.metrics
}

// SecurityTokens returns the security id source, or nil.
func (a *App) SecurityTokens() SecurityTokenSource {
	return a.securityTokens
}

// Run starts the HTTP server and blocks until shutdown.
//
// Example:
//
//	err := app.Run(":8080", apigate.Logger(log))
func (a *App) Run(addr string, opts ...RunOption) error {
	cfg := buildRunConfig(opts...)

	log := cfg.logger
	if log == nil {
		log = a.logger
	}

	// App hooks run after the ones passed to Run.
	cfg.shutdownHooks = append(slices.Clone(cfg.shutdownHooks), a.shutdownHooks...)
	log.Info("gateway configured",
		slog.String("prefix", a.prefix+"/"),
		slog.Int("services", len(a.registry.Services())),
	)
	return newGatewayServer(addr, a.router, cfg, log).run()
}

// setupRoutes configures the router with middleware and handlers.
func (a *App) setupRoutes() {
	if a.notFoundHandler != nil {
		a.router.NotFound(a.wrapHandler(a.notFoundHandler))
	}
	if a.methodNotAllowedHandler != nil {
		a.router.MethodNotAllowed(a.wrapHandler(a.methodNotAllowedHandler))
	}

	for _, mw := range a.middlewares {
		a.router.Use(a.adaptMiddleware(mw))
	}

	if a.healthConfig != nil {
		a.router.Get(a.healthConfig.livenessPath, health.LivenessHandler())
		a.router.Get(a.healthConfig.readinessPath,
			health.ReadinessHandler(a.healthConfig.checks, health.WithLogger(a.logger)))
	}

	if a.metrics != nil {
		a.router.Method(http.MethodGet, a.metricsPath, a.metrics.Handler())
	}

	if a.listEndpoints {
		a.router.Get(a.prefix+"/"+a.endpointsPath, EndpointsHandler(a.registry))
	}

	r := &chiRouter{mux: a.router, app: a}
	for _, h := range a.handlers {
		h.Routes(r)
	}

	a.router.Handle(a.prefix+"/*", a.dispatcher)
}

// wrapHandler converts a HandlerFunc to http.HandlerFunc using the app's error handler.
func (a *App) wrapHandler(h HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := newContext(w, r, a.logger)
		if err := h(c); err != nil {
			a.handleError(c, err)
		}
	}
}

// handleError handles errors from handlers using the configured error handler.
// Without one the error is classified and written as an envelope.
func (a *App) handleError(c Context, err error) {
	if c.Written() {
		return
	}
	if a.errorHandler != nil {
		_ = a.errorHandler(c, err)
		return
	}
	if werr := WriteError(c.Response(), Classify(err)); werr != nil {
		a.logger.ErrorContext(c, "failed to write error response", slog.Any("error", werr))
	}
}

// healthConfig holds health check endpoint configuration.
type healthConfig struct {
	checks        health.Checks
	livenessPath  string
	readinessPath string
}

// Default health check paths.
const (
	defaultLivenessPath  = "/health/live"
	defaultReadinessPath = "/health/ready"
)

// HealthOption configures health check endpoints.
type HealthOption func(*healthConfig)

// WithLivenessPath sets a custom liveness endpoint path.
// Defaults to "/health/live".
func WithLivenessPath(path string) HealthOption {
	return func(c *healthConfig) {
		if path != "" {
			c.livenessPath = path
		}
	}
}

// WithReadinessPath sets a custom readiness endpoint path.
// Defaults to "/health/ready".
func WithReadinessPath(path string) HealthOption {
	return func(c *healthConfig) {
		if path != "" {
			c.readinessPath = path
		}
	}
}

// WithReadinessCheck adds a named readiness check.
// Checks run in parallel during readiness probe.
//
// Example:
//
//	apigate.WithReadinessCheck("db", db.Healthcheck(pool))
func WithReadinessCheck(name string, fn health.CheckFunc) HealthOption {
	return func(c *healthConfig) {
		if c.checks == nil {
			c.checks = make(health.Checks)
		}
		c.checks[name] = fn
	}
}
