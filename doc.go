// Package fanout provides in-process asynchronous channels built on an explicit
// polling protocol, plus the server plumbing to run a chat relay on top of them.
//
// # Package Organization
//
// The module is organized into three main categories:
//
//   - Channels: generic mpsc and broadcast channels and the polling protocol they share
//   - Core: configuration, logging, servers and health checks
//   - Application: the chat relay and its server binary
//
// # Getting Documentation
//
// For detailed documentation on any package, use the go doc command:
//
//	go doc github.com/dmitrymomot/fanout/pkg/broadcast
//	go doc -all github.com/dmitrymomot/fanout/pkg/stream
//
// # Channel Packages
//
//	github.com/dmitrymomot/fanout/pkg/stream      - Poll protocol: Status, Waker, Signal and drivers (Next, Await, All, Chan)
//	github.com/dmitrymomot/fanout/pkg/mpsc        - Unbounded multi-producer single-consumer channel
//	github.com/dmitrymomot/fanout/pkg/broadcast   - Unbounded fan-out channel with per-receiver cursors
//	github.com/dmitrymomot/fanout/pkg/ratelimiter - Keyed in-memory token bucket limiter
//
// # Core Packages
//
//	github.com/dmitrymomot/fanout/core/config - Type-safe environment variable loading with .env support
//	github.com/dmitrymomot/fanout/core/logger - Structured logging presets and attribute helpers on log/slog
//	github.com/dmitrymomot/fanout/core/server - TCP and HTTP servers with graceful shutdown
//	github.com/dmitrymomot/fanout/core/health - Liveness and readiness HTTP handlers
//
// # Application
//
//	github.com/dmitrymomot/fanout/internal/chat   - Chat relay over TCP and WebSocket
//	github.com/dmitrymomot/fanout/cmd/chat-server - Server binary wiring the relay, servers and health checks
package fanout
