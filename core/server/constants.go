package server

import "time"

const (
	// DefaultShutdownTimeout is the default time to wait for handlers to finish on Stop.
	DefaultShutdownTimeout = 10 * time.Second

	// DefaultKeepAlive is the TCP keep-alive period for accepted connections.
	DefaultKeepAlive = 30 * time.Second

	// DefaultReadTimeout is the default timeout for reading an HTTP request.
	DefaultReadTimeout = 15 * time.Second

	// DefaultWriteTimeout is the default timeout for writing an HTTP response.
	DefaultWriteTimeout = 15 * time.Second

	// DefaultIdleTimeout is the default timeout for idle HTTP keep-alive connections.
	DefaultIdleTimeout = 60 * time.Second

	// acceptRetryDelay bounds the backoff after a temporary Accept error.
	acceptRetryDelay = time.Second
)
