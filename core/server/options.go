package server

import (
	"crypto/tls"
	"io"
	"log/slog"
	"time"
)

type options struct {
	logger       *slog.Logger
	shutdown     time.Duration
	keepAlive    time.Duration
	readTimeout  time.Duration
	writeTimeout time.Duration
	idleTimeout  time.Duration
	tlsConfig    *tls.Config
}

func newOptions(opts []Option) options {
	o := options{
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		shutdown:     DefaultShutdownTimeout,
		keepAlive:    DefaultKeepAlive,
		readTimeout:  DefaultReadTimeout,
		writeTimeout: DefaultWriteTimeout,
		idleTimeout:  DefaultIdleTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Option configures Server and HTTPServer.
type Option func(*options)

// WithTLS wraps the listener with TLS.
func WithTLS(config *tls.Config) Option {
	return func(o *options) {
		o.tlsConfig = config
	}
}

// WithLogger sets a custom logger for server operations. Nil is ignored.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithShutdownTimeout sets the maximum time Stop waits for handlers to return
// before closing their connections.
func WithShutdownTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.shutdown = timeout
	}
}

// WithKeepAlive sets the TCP keep-alive period. A negative value disables it.
func WithKeepAlive(period time.Duration) Option {
	return func(o *options) {
		o.keepAlive = period
	}
}

// WithReadTimeout sets the HTTP request read timeout. HTTPServer only.
func WithReadTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.readTimeout = timeout
	}
}

// WithWriteTimeout sets the HTTP response write timeout. HTTPServer only.
func WithWriteTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.writeTimeout = timeout
	}
}

// WithIdleTimeout sets the HTTP keep-alive idle timeout. HTTPServer only.
func WithIdleTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.idleTimeout = timeout
	}
}
