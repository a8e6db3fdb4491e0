package internal

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"runtime/debug"
	"strings"
	"time"
)

// Dispatcher serves gateway calls: /<service>/<method>/<k1>/<v1>/...
type Dispatcher struct {
	registry *Registry
	binder   *Binder
	policy   *Policy
	auth     *WebserviceAuthenticator
	sessions *SessionManager
	mapper   ObjectMapper
	metrics  *Metrics
	logger   *slog.Logger
	prefix   string
	maxBody  int64
}

// DispatcherConfig holds the collaborators of a Dispatcher.
// Registry, Policy and Auth are required.
type DispatcherConfig struct {
	Registry *Registry
	Entities *EntityRegistry
	Policy   *Policy
	Auth     *WebserviceAuthenticator
	// Sessions resolves session identities. Nil disables sessions.
	Sessions *SessionManager
	// Mapper converts results. Nil means DefaultMapper.
	Mapper  ObjectMapper
	Metrics *Metrics
	Logger  *slog.Logger
	// Prefix is stripped from the request path before parsing.
	Prefix  string
	MaxBody int64
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	d := &Dispatcher{
		registry: cfg.Registry,
		binder:   NewBinder(cfg.Entities),
		policy:   cfg.Policy,
		auth:     cfg.Auth,
		sessions: cfg.Sessions,
		mapper:   cfg.Mapper,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
		prefix:   strings.TrimSuffix(cfg.Prefix, "/"),
		maxBody:  cfg.MaxBody,
	}
	if d.mapper == nil {
		d.mapper = DefaultMapper{}
	}
	if d.logger == nil {
		d.logger = slog.New(slog.DiscardHandler)
	}
	return d
}

// call carries the resolved labels of one dispatch for logs and metrics.
type call struct {
	service string
	method  string
}

// ServeHTTP implements http.Handler. Every failure is written as an error envelope.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rw := NewResponseWriter(w)

	ctx, release := WithIdentityScope(r.Context())
	defer release()

	var c call
	err := d.dispatch(ctx, rw, r.WithContext(ctx), &c)

	status := rw.Status()
	var failure *Error
	if err != nil {
		failure = Classify(err)
		status = failure.Status
		if !rw.Written() {
			if werr := WriteError(rw, failure); werr != nil {
				d.logger.ErrorContext(ctx, "failed to write error response", slog.Any("error", werr))
			}
		}
		d.logFailure(ctx, c, failure)
	}

	d.metrics.observe(c.service, c.method, status, time.Since(start), failure)
}

func (d *Dispatcher) dispatch(ctx context.Context, w http.ResponseWriter, r *http.Request, c *call) error {
	tail := strings.TrimPrefix(r.URL.EscapedPath(), d.prefix)
	rc, err := NewRequestContext(w, r, tail, d.maxBody)
	if err != nil {
		return err
	}

	if d.sessions != nil {
		identity, sess, err := d.sessions.Identify(ctx, r)
		if err != nil {
			return err
		}
		if sess != nil {
			ctx = WithSessionID(ctx, sess.ID)
		}
		if identity != nil {
			LogIn(ctx, identity)
		}
	}

	svc, ok := d.registry.lookup(rc.Service)
	if !ok {
		return ErrInvalidRequest("Invalid request")
	}
	c.service = svc.Name

	if err := d.auth.Authenticate(ctx, rc); err != nil {
		return err
	}

	res, err := d.policy.Evaluate(ctx, svc, rc.Method, rc.EffectiveVerb)
	if err != nil {
		return err
	}

	m, ok := svc.method(res.Call)
	if !ok {
		return ErrInvalidRequest("Invalid request")
	}
	c.method = rc.Method

	args, err := d.binder.Args(rc, res.Match, res.Rule.Match)
	if err != nil {
		return err
	}

	values, err := d.binder.Bind(ctx, rc, svc.Name, m, args)
	if err != nil {
		return err
	}

	result, err := d.invoke(ctx, m, values)
	if err != nil {
		return err
	}

	if res.Raw {
		return WriteRaw(w, result)
	}

	payload, err := d.mapper.MapObject(ctx, result)
	if err != nil {
		return err
	}
	return WriteSuccess(w, payload)
}

// invoke calls m, injecting ctx when the method takes one.
// A panic in the method becomes an internal error.
func (d *Dispatcher) invoke(ctx context.Context, m *method, args []reflect.Value) (result any, err error) {
	defer func() {
		if p := recover(); p != nil {
			d.logger.ErrorContext(ctx, "service method panicked",
				slog.String("method", m.name),
				slog.Any("panic", p),
				slog.String("stack", string(debug.Stack())),
			)
			err = ErrInternal("Internal Server Error", WithCause(fmt.Errorf("panic: %v", p)))
		}
	}()

	in := args
	if m.takesContext {
		in = append([]reflect.Value{reflect.ValueOf(&ctx).Elem()}, args...)
	}

	out := m.fn.Call(in)
	if m.returnsValue {
		result = out[0].Interface()
	}
	if m.returnsError {
		if e := out[len(out)-1]; !e.IsNil() {
			err = e.Interface().(error)
		}
	}
	return result, err
}

func (d *Dispatcher) logFailure(ctx context.Context, c call, failure *Error) {
	attrs := []any{
		slog.String("service", c.service),
		slog.String("method", c.method),
		slog.Int("status", failure.Status),
		slog.String("kind", failure.Kind.String()),
		slog.String("error", failure.Message),
	}
	if failure.Err != nil {
		attrs = append(attrs, slog.Any("cause", failure.Err))
	}

	if failure.Status >= http.StatusInternalServerError {
		d.logger.ErrorContext(ctx, "gateway call failed", attrs...)
		return
	}
	d.logger.WarnContext(ctx, "gateway call rejected", attrs...)
}
