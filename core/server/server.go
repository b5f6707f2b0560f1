package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/dmitrymomot/fanout/core/logger"
)

// ConnHandler serves one accepted connection. The server closes conn after
// ServeConn returns. ctx is canceled when the server stops.
type ConnHandler interface {
	ServeConn(ctx context.Context, conn net.Conn) error
}

// ConnHandlerFunc adapts a function to ConnHandler.
type ConnHandlerFunc func(ctx context.Context, conn net.Conn) error

// ServeConn calls f(ctx, conn).
func (f ConnHandlerFunc) ServeConn(ctx context.Context, conn net.Conn) error {
	return f(ctx, conn)
}

// Server is a TCP server that runs a ConnHandler per connection and shuts
// down gracefully. Safe for concurrent use.
type Server struct {
	mu       sync.Mutex
	addr     string
	opts     options
	listener net.Listener
	cancel   context.CancelFunc
	conns    map[net.Conn]struct{}
	wg       sync.WaitGroup
	running  bool
}

// New creates a new Server with the given address and options.
func New(addr string, opts ...Option) *Server {
	return &Server{
		addr: addr,
		opts: newOptions(opts),
	}
}

// Addr returns the bound listen address, or "" when the server is not listening.
// Useful with ":0" addresses.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Start listens and serves connections until the context is canceled or the
// listener fails. Returns context.Err() when the context is canceled; call
// Stop to close the listener and drain connections.
func (s *Server) Start(ctx context.Context, h ConnHandler) error {
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
	if s.opts.tlsConfig != nil {
		ln = tls.NewListener(ln, s.opts.tlsConfig)
	}

	// Connection contexts outlive ctx: Stop decides when handlers are canceled.
	connCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.listener = ln
	s.cancel = cancel
	s.conns = make(map[net.Conn]struct{})
	s.running = true
	s.mu.Unlock()

	s.opts.logger.InfoContext(ctx, "starting tcp server", logger.Addr(ln.Addr().String()))

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.serve(connCtx, ln, h)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
			cancel()
		}
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) serve(ctx context.Context, ln net.Listener, h ConnHandler) error {
	var delay time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				delay = min(max(2*delay, 5*time.Millisecond), acceptRetryDelay)
				s.opts.logger.Warn("accept error, retrying", logger.Error(err), logger.Duration(delay))
				time.Sleep(delay)
				continue
			}
			return err
		}
		delay = 0

		if !s.track(conn) {
			_ = conn.Close()
			continue
		}
		go s.handle(ctx, conn, h)
	}
}

func (s *Server) handle(ctx context.Context, conn net.Conn, h ConnHandler) {
	defer s.wg.Done()
	defer s.untrack(conn)
	defer conn.Close()

	start := time.Now()
	log := s.opts.logger.With(logger.RemoteAddr(conn.RemoteAddr()))
	log.DebugContext(ctx, "connection accepted")

	if err := h.ServeConn(ctx, conn); err != nil {
		log.WarnContext(ctx, "connection handler failed", logger.Error(err), logger.Elapsed(start))
		return
	}
	log.DebugContext(ctx, "connection closed", logger.Elapsed(start))
}

// track registers conn. It reports false once Stop has begun, so that the
// wait group is never incremented after Stop starts waiting.
func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return false
	}
	s.conns[conn] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}

// Stop closes the listener, cancels handler contexts and waits up to the
// shutdown timeout for handlers to return before force-closing connections.
// Returns immediately if the server is not running.
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	ln, cancel := s.listener, s.cancel
	s.mu.Unlock()

	s.opts.logger.Info("shutting down tcp server gracefully", logger.Duration(s.opts.shutdown))

	err := ln.Close()
	cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(s.opts.shutdown):
		s.mu.Lock()
		n := len(s.conns)
		for conn := range s.conns {
			_ = conn.Close()
		}
		s.mu.Unlock()
		s.opts.logger.Warn("shutdown timeout exceeded, closed connections", logger.Count("connections", n))
		<-done
	}

	s.mu.Lock()
	s.listener = nil
	s.mu.Unlock()

	if err != nil && !errors.Is(err, net.ErrClosed) {
		s.opts.logger.Error("tcp server shutdown error", logger.Error(err))
		return err
	}

	s.opts.logger.Info("tcp server shutdown complete")
	return nil
}

// Run provides errgroup compatibility for coordinated lifecycle management.
// The returned function serves until ctx is canceled, then stops gracefully.
func (s *Server) Run(ctx context.Context, h ConnHandler) func() error {
	return func() error {
		errCh := make(chan error, 1)
		go func() {
			errCh <- s.Start(ctx, h)
		}()

		select {
		case <-ctx.Done():
			if stopErr := s.Stop(); stopErr != nil {
				s.opts.logger.Error("failed to stop tcp server during context cancellation", logger.Error(stopErr))
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
