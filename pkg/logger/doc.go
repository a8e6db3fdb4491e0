// Package logger builds slog loggers with context extraction and optional
// Sentry forwarding.
//
// A ContextExtractor pulls one attribute out of the context of each log call,
// so request-scoped values such as the request id or the caller identity
// appear on every entry:
//
//	log := logger.New(middlewares.RequestIDExtractor(), apigate.IdentityExtractor())
//	log.InfoContext(ctx, "call served", slog.Int("status", 200))
//	// {"level":"INFO","msg":"call served","status":200,"request_id":"...","identity_id":"42"}
//
// Setup reads its Config from the environment (LOG_LEVEL, LOG_FORMAT,
// SENTRY_DSN, SENTRY_ENVIRONMENT, SENTRY_MIN_LEVEL). With a DSN, errors
// create Sentry issues and records at or above SENTRY_MIN_LEVEL are stored
// as Sentry logs. Without one, or when Sentry fails to initialize, logging
// stays local.
//
//	log, flush, err := logger.Setup(cfg.Log, os.Stdout, extractors...)
//	defer flush(context.Background())
//
// NewLogHandlerDecorator adds extraction to any slog.Handler.
package logger
