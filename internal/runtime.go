package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
)

type hook = func(context.Context) error

// gatewayServer is one run of the gateway: listener, HTTP server and the
// hooks around them.
type gatewayServer struct {
	srv      *http.Server
	log      *slog.Logger
	base     context.Context
	startup  []hook
	shutdown []hook
	grace    time.Duration
}

func newGatewayServer(addr string, h http.Handler, cfg *runConfig, log *slog.Logger) *gatewayServer {
	if addr == "" {
		addr = ":8080"
	}
	return &gatewayServer{
		srv: &http.Server{
			Addr:              addr,
			Handler:           h,
			ReadTimeout:       defaultReadTimeout,
			WriteTimeout:      defaultWriteTimeout,
			IdleTimeout:       defaultIdleTimeout,
			ReadHeaderTimeout: defaultReadHeaderTimeout,
			MaxHeaderBytes:    defaultMaxHeaderBytes,
		},
		log:      log,
		base:     cfg.baseCtx,
		startup:  cfg.startupHooks,
		shutdown: cfg.shutdownHooks,
		grace:    cfg.shutdownTimeout,
	}
}

// run serves until SIGINT, SIGTERM, base context cancellation or a serve
// error, then drains in-flight calls and runs the shutdown hooks.
func (s *gatewayServer) run() error {
	ctx, stop := signal.NotifyContext(s.base, os.Interrupt, syscall.SIGTERM)
	defer stop()

	for i, fn := range s.startup {
		if err := fn(ctx); err != nil {
			return fmt.Errorf("startup hook %d: %w", i, err)
		}
	}

	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info("gateway listening", slog.String("address", ln.Addr().String()))
		if err := s.srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return s.stop()
	})

	return g.Wait()
}

// stop runs with its own deadline: the signal context is already done.
func (s *gatewayServer) stop() error {
	s.log.Info("gateway stopping", slog.Duration("grace", s.grace))

	ctx, cancel := context.WithTimeout(context.Background(), s.grace)
	defer cancel()

	errs := []error{s.srv.Shutdown(ctx)}
	for _, fn := range s.shutdown {
		if err := fn(ctx); err != nil {
			s.log.Error("shutdown hook failed", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}
	s.log.Info("gateway stopped")
	return nil
}
