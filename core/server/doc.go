// Package server provides TCP and HTTP servers with graceful shutdown,
// configurable options, and defaults suited to long-lived connections.
//
// # TCP Server
//
// Server accepts connections and runs a ConnHandler for each one on its own
// goroutine:
//
//	srv := server.New(":8000", server.WithLogger(log))
//
//	handler := server.ConnHandlerFunc(func(ctx context.Context, conn net.Conn) error {
//		_, err := io.Copy(conn, conn)
//		return err
//	})
//
//	eg, ctx := errgroup.WithContext(ctx)
//	eg.Go(srv.Run(ctx, handler))
//
// Stop closes the listener, cancels the context passed to every handler and
// waits for handlers to return. Connections still open after the shutdown
// timeout are closed.
//
// # HTTP Server
//
// HTTPServer wraps http.Server with the same Start, Stop and Run lifecycle.
// Handlers that hijack the connection, such as WebSocket endpoints, see their
// request context canceled when Stop runs.
//
//	httpSrv := server.NewHTTP(":8080", server.WithIdleTimeout(time.Minute))
//	eg.Go(httpSrv.Run(ctx, mux))
//
// # Configuration
//
// Config and HTTPConfig carry env tags for use with core/config:
//
//	type AppConfig struct {
//		TCP  server.Config     `envPrefix:"TCP_"`
//		HTTP server.HTTPConfig `envPrefix:"HTTP_"`
//	}
//
//	srv, err := server.NewFromConfig(cfg.TCP, server.WithLogger(log))
//
// # Error Handling
//
// Start returns ErrServerAlreadyRunning when called twice and wraps listener
// failures in ErrListen. Handler errors are logged, never returned.
package server
