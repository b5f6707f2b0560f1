// Package logger provides structured logging utilities built on Go's standard
// slog package: a small factory with environment presets and a set of attribute
// helpers for consistent keys across the relay and its servers.
//
// # Basic Usage
//
//	import "github.com/dmitrymomot/fanout/core/logger"
//
//	// Development: text format, debug level, stdout
//	log := logger.New(logger.WithDevelopment("chat-server"))
//
//	// Production: JSON format, info level, stdout
//	log := logger.New(
//		logger.WithProduction("chat-server"),
//		logger.WithLevel(slog.LevelWarn),
//	)
//
//	// Pick a preset from APP_ENV
//	log := logger.New(logger.ForEnv(os.Getenv("APP_ENV"), "chat-server"))
//
// # Attribute Helpers
//
// Helpers return an empty slog.Attr for nil or empty input, which slog drops,
// so they are safe to pass unconditionally:
//
//	log.Error("session ended",
//		logger.Error(err),
//		logger.SessionID(id.String()),
//		logger.RemoteAddr(conn.RemoteAddr()),
//		logger.Component("chat"),
//	)
//
// # Testing with Custom Output
//
//	var buf bytes.Buffer
//	log := logger.New(logger.WithJSONFormatter(), logger.WithOutput(&buf))
//	log.Info("test message", logger.Component("test"))
//	assert.Contains(t, buf.String(), `"component":"test"`)
package logger
