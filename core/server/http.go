package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/dmitrymomot/fanout/core/logger"
)

// HTTPServer wraps http.Server with graceful shutdown and configuration options.
// Safe for concurrent use.
type HTTPServer struct {
	mu       sync.Mutex
	addr     string
	opts     options
	server   *http.Server
	listener net.Listener
	cancel   context.CancelFunc
	running  bool
}

// NewHTTP creates a new HTTPServer with the given address and options.
func NewHTTP(addr string, opts ...Option) *HTTPServer {
	return &HTTPServer{
		addr: addr,
		opts: newOptions(opts),
	}
}

// Addr returns the bound listen address, or "" when the server is not listening.
func (s *HTTPServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Start starts the server and blocks until the context is canceled or an error occurs.
// Returns context.Err() when the context is canceled. Use Stop for graceful shutdown.
func (s *HTTPServer) Start(ctx context.Context, handler http.Handler) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrServerAlreadyRunning
	}
	if err := ctx.Err(); err != nil {
		s.mu.Unlock()
		return err
	}

	lc := net.ListenConfig{KeepAlive: s.opts.keepAlive}
	ln, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("%w on %s: %w", ErrListen, s.addr, err)
	}

	// Hijacked connections (WebSocket) are not tracked by Shutdown; they
	// observe the end of the server through the base context instead.
	baseCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.server = &http.Server{
		Handler:      handler,
		ReadTimeout:  s.opts.readTimeout,
		WriteTimeout: s.opts.writeTimeout,
		IdleTimeout:  s.opts.idleTimeout,
		TLSConfig:    s.opts.tlsConfig,
		BaseContext:  func(net.Listener) context.Context { return baseCtx },
	}
	s.listener = ln
	s.cancel = cancel
	s.running = true
	srv := s.server
	hasTLS := s.opts.tlsConfig != nil
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		s.opts.logger.InfoContext(ctx, "starting http server", logger.Addr(ln.Addr().String()))

		var err error
		if hasTLS {
			err = srv.ServeTLS(ln, "", "")
		} else {
			err = srv.Serve(ln)
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		s.mu.Lock()
		s.running = false
		s.listener = nil
		s.mu.Unlock()
		cancel()
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop gracefully shuts down the server using the configured timeout.
// Returns immediately if the server is not running.
func (s *HTTPServer) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running || s.server == nil {
		return nil
	}

	s.opts.logger.Info("shutting down http server gracefully", logger.Duration(s.opts.shutdown))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.shutdown)
	defer cancel()

	err := s.server.Shutdown(shutdownCtx)
	s.cancel()
	s.running = false
	s.listener = nil

	if err != nil {
		s.opts.logger.Error("http server shutdown error", logger.Error(err))
		return err
	}

	s.opts.logger.Info("http server shutdown complete")
	return nil
}

// Run provides errgroup compatibility for coordinated lifecycle management.
func (s *HTTPServer) Run(ctx context.Context, handler http.Handler) func() error {
	return func() error {
		errCh := make(chan error, 1)
		go func() {
			errCh <- s.Start(ctx, handler)
		}()

		select {
		case <-ctx.Done():
			if stopErr := s.Stop(); stopErr != nil {
				s.opts.logger.Error("failed to stop http server during context cancellation", logger.Error(stopErr))
			}
			<-errCh
			return nil
		case err := <-errCh:
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
	}
}
