package internal

import (
	"cmp"
	"context"
	"log/slog"
	"time"
)

// RunOption configures a single Run of the gateway.
type RunOption func(*runConfig)

type runConfig struct {
	logger          *slog.Logger
	baseCtx         context.Context
	startupHooks    []hook
	shutdownHooks   []hook
	shutdownTimeout time.Duration
}

func buildRunConfig(opts ...RunOption) *runConfig {
	rc := &runConfig{baseCtx: context.Background(), shutdownTimeout: defaultShutdownTimeout}
	for _, opt := range opts {
		opt(rc)
	}
	return rc
}

// Logger overrides the app logger for lifecycle messages.
func Logger(l *slog.Logger) RunOption {
	return func(rc *runConfig) { rc.logger = cmp.Or(l, rc.logger) }
}

// ShutdownTimeout bounds draining in-flight calls plus the shutdown hooks.
// Non-positive values keep the 30 second default.
func ShutdownTimeout(d time.Duration) RunOption {
	return func(rc *runConfig) {
		if d > 0 {
			rc.shutdownTimeout = d
		}
	}
}

// StartupHook runs fn before the listener opens, e.g. database migrations.
// Run returns the first hook error without serving.
func StartupHook(fn func(context.Context) error) RunOption {
	return func(rc *runConfig) { rc.startupHooks = appendHook(rc.startupHooks, fn) }
}

// ShutdownHook runs fn after the server stopped, in registration order and
// before the hooks given to New. Errors of all hooks are joined.
//
//	apigate.ShutdownHook(flush)
func ShutdownHook(fn func(context.Context) error) RunOption {
	return func(rc *runConfig) { rc.shutdownHooks = appendHook(rc.shutdownHooks, fn) }
}

// WithContext replaces the base context. Canceling it stops the server
// the same way SIGTERM does.
func WithContext(ctx context.Context) RunOption {
	return func(rc *runConfig) { rc.baseCtx = cmp.Or(ctx, rc.baseCtx) }
}

func appendHook(hooks []hook, fn hook) []hook {
	if fn == nil {
		return hooks
	}
	return append(hooks, fn)
}
