package middlewares

import (
	"runtime"

	"github.com/dmitrymomot/apigate/internal"
)

// DefaultStackSize is the default maximum stack trace size in bytes.
const DefaultStackSize = 4096

// RecoverConfig configures the recover middleware.
type RecoverConfig struct {
	Message           string // Envelope message (default: "Internal Server Error")
	StackSize         int    // Max stack trace size (default: 4096)
	DisablePrintStack bool   // Disable stack trace in logs
}

// RecoverOption configures RecoverConfig.
type RecoverOption func(*RecoverConfig)

// WithRecoverStackSize sets the maximum stack trace size.
func WithRecoverStackSize(size int) RecoverOption {
	return func(cfg *RecoverConfig) {
		cfg.StackSize = size
	}
}

// WithRecoverDisablePrintStack disables including stack trace in logs.
func WithRecoverDisablePrintStack() RecoverOption {
	return func(cfg *RecoverConfig) {
		cfg.DisablePrintStack = true
	}
}

// WithRecoverMessage sets the message written in the error envelope.
func WithRecoverMessage(msg string) RecoverOption {
	return func(cfg *RecoverConfig) {
		cfg.Message = msg
	}
}

// Recover returns middleware that recovers from panics in custom routes
// and later middleware. The panic is logged and returned as an internal
// gateway error wrapping a *PanicError, so the client never sees the panic value.
// Gateway calls recover on their own.
func Recover(opts ...RecoverOption) internal.Middleware {
	cfg := &RecoverConfig{
		Message:   "Internal Server Error",
		StackSize: DefaultStackSize,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	return func(next internal.HandlerFunc) internal.HandlerFunc {
		return func(c internal.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}

				var stack []byte
				if cfg.DisablePrintStack {
					c.LogError("panic recovered", "panic", r)
				} else {
					stack = make([]byte, cfg.StackSize)
					stack = stack[:runtime.Stack(stack, false)]
					c.LogError("panic recovered", "panic", r, "stack", string(stack))
				}

				err = internal.ErrInternal(cfg.Message, internal.WithCause(&PanicError{
					Value: r,
					Stack: stack,
				}))
			}()

			return next(c)
		}
	}
}
