package apigate

import (
	"context"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/dmitrymomot/apigate/internal"
	"github.com/dmitrymomot/apigate/pkg/health"
	"github.com/dmitrymomot/apigate/pkg/logger"
	"github.com/dmitrymomot/apigate/pkg/session"
)

// Type aliases - public API
type (
	// App owns the router, the dispatcher and the server lifecycle.
	App = internal.App

	// Router is the interface handlers use to declare custom routes.
	Router = internal.Router

	// Context provides request/response access for custom routes.
	Context = internal.Context

	// Handler declares routes on a router.
	Handler = internal.Handler

	// HandlerFunc is the signature for route handlers.
	HandlerFunc = internal.HandlerFunc

	// Middleware wraps a HandlerFunc.
	Middleware = internal.Middleware

	// ErrorHandler handles errors returned from custom handlers.
	ErrorHandler = internal.ErrorHandler

	// Option configures the application.
	Option = internal.Option

	// RunOption configures the server runtime.
	RunOption = internal.RunOption

	// HealthOption configures health check endpoints.
	HealthOption = internal.HealthOption

	// ContextExtractor extracts a slog attribute from context.
	ContextExtractor = logger.ContextExtractor

	// Service exposes the methods of a Go value over HTTP.
	Service = internal.Service

	// MethodAccessRule describes how one method may be called.
	MethodAccessRule = internal.MethodAccessRule

	// Param declares a positional method parameter.
	Param = internal.Param

	// RuleSet holds access rules keyed by service and method.
	RuleSet = internal.RuleSet

	// Endpoint describes one callable method.
	Endpoint = internal.Endpoint

	// Identity is an authenticated caller.
	Identity = internal.Identity

	// RoleIdentity is an Identity with a role.
	RoleIdentity = internal.RoleIdentity

	// Entity is a domain object loadable by id.
	Entity = internal.Entity

	// EntityResolver loads entities of one concrete type.
	EntityResolver = internal.EntityResolver

	// EntityRegistry maps class discriminators to resolvers.
	EntityRegistry = internal.EntityRegistry

	// Credential is the stored token material of an identity.
	Credential = internal.Credential

	// CredentialStore looks up credentials by identity id.
	CredentialStore = internal.CredentialStore

	// TokenAuthenticator resolves identities from "<identityId>:<secret>" tokens.
	TokenAuthenticator = internal.TokenAuthenticator

	// Hasher derives the stored hash of a token secret.
	Hasher = internal.Hasher

	// Permission is a permission code.
	Permission = internal.Permission

	// PermissionChecker decides whether an identity holds a permission code.
	PermissionChecker = internal.PermissionChecker

	// PermissionFunc adapts a function to PermissionChecker.
	PermissionFunc = internal.PermissionFunc

	// RolePermissions maps roles to granted permission codes.
	RolePermissions = internal.RolePermissions

	// RoleExtractorFunc returns the role of an identity.
	RoleExtractorFunc = internal.RoleExtractorFunc

	// RoleChecker grants permission codes by role.
	RoleChecker = internal.RoleChecker

	// SecurityTokenSource checks per-session security ids.
	SecurityTokenSource = internal.SecurityTokenSource

	// MessageValidator verifies signed requests.
	MessageValidator = internal.MessageValidator

	// ObjectMapper converts method results before serialization.
	ObjectMapper = internal.ObjectMapper

	// ObjectMapperFunc adapts a function to ObjectMapper.
	ObjectMapperFunc = internal.ObjectMapperFunc

	// WireMapper is implemented by values that provide their own wire form.
	WireMapper = internal.WireMapper

	// Error is a classified gateway error with an HTTP status.
	Error = internal.Error

	// ErrorOption configures an Error.
	ErrorOption = internal.ErrorOption

	// Kind classifies an Error.
	Kind = internal.Kind

	// SessionOption configures the session manager.
	SessionOption = internal.SessionOption

	// SessionManager binds session cookies to identities.
	SessionManager = internal.SessionManager

	// IdentityLoader loads a session identity by id.
	IdentityLoader = internal.IdentityLoader

	// IdentityLoaderFunc adapts a function to IdentityLoader.
	IdentityLoaderFunc = internal.IdentityLoaderFunc

	// Session represents a user session.
	Session = session.Session

	// SessionStore defines the interface for session persistence.
	SessionStore = session.Store

	// ResponseWriter wraps http.ResponseWriter and tracks the status.
	ResponseWriter = internal.ResponseWriter
)

// Errors for checking return values.
var (
	ErrPermissionDenied   = internal.ErrPermissionDenied
	ErrEntityNotFound     = internal.ErrEntityNotFound
	ErrCredentialNotFound = internal.ErrCredentialNotFound
	ErrUnknownService     = internal.ErrUnknownService
)

// Defaults.
const (
	DefaultTokenHeader     = internal.DefaultTokenHeader
	DefaultMetricsPath     = internal.DefaultMetricsPath
	DefaultEndpointsPath   = internal.DefaultEndpointsPath
	DefaultMaxBodySize     = internal.DefaultMaxBodySize
	DefaultSuccessMessage  = internal.DefaultSuccessMessage
	DefaultSecurityIDParam = internal.DefaultSecurityIDParam
)

// Constructors

// New creates a gateway with the given options.
// Registration errors (bad rules, unknown methods, unknown services in a
// RuleSet) are returned joined.
//
// Example:
//
//	app, err := apigate.New(
//	    apigate.WithServices(pages),
//	    apigate.WithEntity("Page", pageResolver),
//	    apigate.WithCredentialStore(store),
//	    apigate.WithHasher(hasher), // *tokenhash.Hasher
//	)
//	if err != nil {
//	    return err
//	}
//
//	err = app.Run(":8080", apigate.Logger(slog))
func New(opts ...Option) (*App, error) {
	return internal.New(opts...)
}

// NewTokenAuthenticator creates a TokenAuthenticator reading header, for
// custom routes that authenticate outside the gateway (e.g. session login).
// An empty header means DefaultTokenHeader.
func NewTokenAuthenticator(store CredentialStore, hasher Hasher, header string) *TokenAuthenticator {
	return internal.NewTokenAuthenticator(store, hasher, header)
}

// Required declares a parameter without a default.
func Required(name string) Param {
	return internal.Required(name)
}

// Optional declares a parameter with a default used when it is absent.
func Optional(name string, def any) Param {
	return internal.Optional(name, def)
}

// EntityFunc builds an EntityResolver from two functions.
// A nil canView allows everyone.
func EntityFunc(
	load func(ctx context.Context, id string) (Entity, error),
	canView func(ctx context.Context, identity Identity, entity Entity) bool,
) EntityResolver {
	return internal.EntityFunc(load, canView)
}

// ParseRules decodes a YAML RuleSet.
//
// Example:
//
//	pages:
//	  echo: GET
//	  rename:
//	    type: POST
//	    perm: pages.write
func ParseRules(data []byte) (RuleSet, error) {
	return internal.ParseRules(data)
}

// LoadRules reads and decodes a YAML RuleSet from fsys.
func LoadRules(fsys fs.FS, name string) (RuleSet, error) {
	return internal.LoadRules(fsys, name)
}

// Endpoints lists the callable methods of every service registered on app.
func Endpoints(app *App) []Endpoint {
	return internal.Endpoints(app.Registry())
}

// Identity helpers

// CurrentIdentity returns the identity logged in for this request, or nil.
func CurrentIdentity(ctx context.Context) Identity {
	return internal.CurrentIdentity(ctx)
}

// LogIn sets the identity for the current request only.
// It reports false when ctx carries no request scope.
func LogIn(ctx context.Context, id Identity) bool {
	return internal.LogIn(ctx, id)
}

// LogOut clears the identity of the current request.
func LogOut(ctx context.Context) {
	internal.LogOut(ctx)
}

// IdentityExtractor adds the current identity id to log entries.
func IdentityExtractor() ContextExtractor {
	return internal.IdentityExtractor()
}

// Error helpers

// Classify converts any error into an *Error.
// Unknown errors become internal errors; ErrPermissionDenied becomes 403.
func Classify(err error) *Error {
	return internal.Classify(err)
}

// ErrBadRequest returns a 400 error.
func ErrBadRequest(message string, opts ...ErrorOption) *Error {
	return internal.ErrBadRequest(message, opts...)
}

// ErrNotFound returns a not-found error with status 400.
func ErrNotFound(message string, opts ...ErrorOption) *Error {
	return internal.ErrNotFound(message, opts...)
}

// ErrForbidden returns a 403 error.
func ErrForbidden(message string, opts ...ErrorOption) *Error {
	return internal.ErrForbidden(message, opts...)
}

// ErrInternal returns a 500 error.
func ErrInternal(message string, opts ...ErrorOption) *Error {
	return internal.ErrInternal(message, opts...)
}

// WithCause attaches an underlying error.
func WithCause(err error) ErrorOption {
	return internal.WithCause(err)
}

// WriteSuccess writes a 200 envelope with the given payload.
func WriteSuccess(w http.ResponseWriter, payload any) error {
	return internal.WriteSuccess(w, payload)
}

// WriteError classifies err and writes its envelope.
func WriteError(w http.ResponseWriter, err error) error {
	return internal.WriteError(w, err)
}

// App options

// WithServices registers services with the gateway.
func WithServices(svcs ...Service) Option {
	return internal.WithServices(svcs...)
}

// WithRules overrides the access rules of registered services.
// A rule for an unknown service fails New.
func WithRules(rs RuleSet) Option {
	return internal.WithRules(rs)
}

// WithEntity registers a resolver for a class discriminator.
func WithEntity(discriminator string, resolver EntityResolver) Option {
	return internal.WithEntity(discriminator, resolver)
}

// WithCredentialStore sets where token credentials are looked up.
// Token authentication is enabled only together with WithHasher.
func WithCredentialStore(store CredentialStore) Option {
	return internal.WithCredentialStore(store)
}

// WithHasher sets the token secret hasher.
func WithHasher(h Hasher) Option {
	return internal.WithHasher(h)
}

// WithTokenHeader sets the header carrying the auth token.
// Defaults to "X-Auth-Token".
func WithTokenHeader(name string) Option {
	return internal.WithTokenHeader(name)
}

// WithPermissions grants permission codes by role.
// A nil extractor reads the role from RoleIdentity.
func WithPermissions(permissions RolePermissions, extractor RoleExtractorFunc) Option {
	return internal.WithPermissions(permissions, extractor)
}

// NewRoleChecker creates the checker WithPermissions installs, for callers
// that share it with entity visibility checks.
func NewRoleChecker(permissions RolePermissions, extractor RoleExtractorFunc) *RoleChecker {
	return internal.NewRoleChecker(permissions, extractor)
}

// WithPermissionChecker sets a custom permission checker.
func WithPermissionChecker(checker PermissionChecker) Option {
	return internal.WithPermissionChecker(checker)
}

// WithSession enables cookie sessions backed by store.
// The session identity is logged in for every gateway call.
//
// Example:
//
//	apigate.WithSession(
//	    session.NewRedisStore(rdb),
//	    identities,
//	    apigate.WithSessionSecure(true),
//	)
func WithSession(store SessionStore, loader IdentityLoader, opts ...SessionOption) Option {
	return internal.WithSession(store, loader, opts...)
}

// WithSessionManager shares an existing session manager, e.g. one also used
// by login handlers.
func WithSessionManager(sm *SessionManager) Option {
	return internal.WithSessionManager(sm)
}

// WithSecurityTokens sets the source of per-session security ids.
func WithSecurityTokens(src SecurityTokenSource) Option {
	return internal.WithSecurityTokens(src)
}

// WithoutSecurityID disables the security id check.
func WithoutSecurityID() Option {
	return internal.WithoutSecurityID()
}

// WithMessageValidator enables signed request validation.
func WithMessageValidator(v MessageValidator) Option {
	return internal.WithMessageValidator(v)
}

// WithPublicAccess lets anonymous callers reach public methods.
func WithPublicAccess() Option {
	return internal.WithPublicAccess()
}

// WithUnlistedMethods lets services without rules expose every method,
// callable with GET or POST.
func WithUnlistedMethods() Option {
	return internal.WithUnlistedMethods()
}

// WithObjectMapper sets the result mapper.
func WithObjectMapper(m ObjectMapper) Option {
	return internal.WithObjectMapper(m)
}

// WithMetrics exposes Prometheus metrics at metricsPath.
// Defaults to "/metrics".
func WithMetrics(metricsPath string) Option {
	return internal.WithMetrics(metricsPath)
}

// WithPrefix mounts the gateway under prefix.
func WithPrefix(prefix string) Option {
	return internal.WithPrefix(prefix)
}

// WithEndpointListing serves the endpoint list under the gateway prefix.
// Defaults to "_endpoints".
func WithEndpointListing(name string) Option {
	return internal.WithEndpointListing(name)
}

// WithMaxBodySize limits request bodies.
func WithMaxBodySize(n int64) Option {
	return internal.WithMaxBodySize(n)
}

// WithShutdownHook registers a cleanup function run on shutdown.
func WithShutdownHook(fn func(context.Context) error) Option {
	return internal.WithShutdownHook(fn)
}

// WithMiddleware adds global middleware.
// Middleware is applied in the order provided.
func WithMiddleware(mw ...Middleware) Option {
	return internal.WithMiddleware(mw...)
}

// WithHandlers registers handlers that declare custom routes.
func WithHandlers(h ...Handler) Option {
	return internal.WithHandlers(h...)
}

// WithErrorHandler sets a custom error handler for custom routes.
func WithErrorHandler(h ErrorHandler) Option {
	return internal.WithErrorHandler(h)
}

// WithNotFoundHandler sets a custom 404 handler.
func WithNotFoundHandler(h HandlerFunc) Option {
	return internal.WithNotFoundHandler(h)
}

// WithMethodNotAllowedHandler sets a custom 405 handler.
func WithMethodNotAllowedHandler(h HandlerFunc) Option {
	return internal.WithMethodNotAllowedHandler(h)
}

// WithHealthChecks enables health check endpoints.
// Liveness (/health/live) always returns OK if the process is running.
// Readiness (/health/ready) runs all configured checks.
//
// Example:
//
//	apigate.WithHealthChecks(
//	    apigate.WithReadinessCheck("db", db.Healthcheck(pool)),
//	)
func WithHealthChecks(opts ...HealthOption) Option {
	return internal.WithHealthChecks(opts...)
}

// WithLogger creates a logger with a component name and optional extractors.
// The current identity id is always extracted.
func WithLogger(component string, extractors ...ContextExtractor) Option {
	return internal.WithLogger(component, extractors...)
}

// WithCustomLogger sets a fully custom logger.
func WithCustomLogger(l *slog.Logger) Option {
	return internal.WithCustomLogger(l)
}

// Health check options

// WithLivenessPath sets a custom liveness endpoint path.
func WithLivenessPath(path string) HealthOption {
	return internal.WithLivenessPath(path)
}

// WithReadinessPath sets a custom readiness endpoint path.
func WithReadinessPath(path string) HealthOption {
	return internal.WithReadinessPath(path)
}

// WithReadinessCheck adds a named readiness check.
func WithReadinessCheck(name string, fn health.CheckFunc) HealthOption {
	return internal.WithReadinessCheck(name, fn)
}

// Session options

// WithSessionCookieName sets the session cookie name.
func WithSessionCookieName(name string) SessionOption {
	return internal.WithSessionCookieName(name)
}

// WithSessionMaxAge sets the session max age in seconds.
func WithSessionMaxAge(seconds int) SessionOption {
	return internal.WithSessionMaxAge(seconds)
}

// WithSessionDomain sets the session cookie domain.
func WithSessionDomain(domain string) SessionOption {
	return internal.WithSessionDomain(domain)
}

// WithSessionPath sets the session cookie path.
func WithSessionPath(path string) SessionOption {
	return internal.WithSessionPath(path)
}

// WithSessionSecure sets the session cookie Secure flag.
func WithSessionSecure(secure bool) SessionOption {
	return internal.WithSessionSecure(secure)
}

// WithSessionSameSite sets the session cookie SameSite attribute.
func WithSessionSameSite(sameSite http.SameSite) SessionOption {
	return internal.WithSessionSameSite(sameSite)
}

// NewSessionManager creates a session manager for use with WithSessionManager.
func NewSessionManager(store SessionStore, loader IdentityLoader, opts ...SessionOption) *SessionManager {
	return internal.NewSessionManager(store, loader, opts...)
}

// Run options

// Logger sets the server logger.
// If nil, the app logger is used.
func Logger(l *slog.Logger) RunOption {
	return internal.Logger(l)
}

// ShutdownTimeout sets the timeout for graceful shutdown.
// Defaults to 30 seconds.
func ShutdownTimeout(d time.Duration) RunOption {
	return internal.ShutdownTimeout(d)
}

// StartupHook registers a function to run before the server starts listening.
// A failing hook aborts Run.
func StartupHook(fn func(context.Context) error) RunOption {
	return internal.StartupHook(fn)
}

// ShutdownHook registers a cleanup function to run during shutdown.
func ShutdownHook(fn func(context.Context) error) RunOption {
	return internal.ShutdownHook(fn)
}

// WithContext sets a custom base context for signal handling.
func WithContext(ctx context.Context) RunOption {
	return internal.WithContext(ctx)
}

// Context helpers

// ContextValue retrieves a typed value from the context.
// Returns the zero value of T if the key is not found or type assertion fails.
func ContextValue[T any](c Context, key any) T {
	return internal.ContextValue[T](c, key)
}
