package logger_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/fanout/core/logger"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("json output with attributes", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := logger.New(
			logger.WithJSONFormatter(),
			logger.WithOutput(&buf),
			logger.WithAttr(slog.String("service", "relay")),
		)
		log.Info("session started", logger.Component("chat"))

		var rec map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
		assert.Equal(t, "session started", rec["msg"])
		assert.Equal(t, "relay", rec["service"])
		assert.Equal(t, "chat", rec["component"])
	})

	t.Run("level filters records", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := logger.New(logger.WithOutput(&buf), logger.WithLevel(slog.LevelWarn))
		log.Info("hidden")
		assert.Empty(t, buf.String())

		log.Warn("shown")
		assert.Contains(t, buf.String(), "shown")
	})

	t.Run("development preset logs debug as text", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := logger.New(logger.WithDevelopment("chat-server"), logger.WithOutput(&buf))
		log.Debug("debug line")

		out := buf.String()
		assert.Contains(t, out, "debug line")
		assert.Contains(t, out, "app=chat-server")
		assert.Contains(t, out, "env=development")
	})

	t.Run("production preset logs json", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := logger.New(logger.ForEnv("production", "chat-server"), logger.WithOutput(&buf))
		log.Debug("dropped")
		log.Info("kept")

		var rec map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
		assert.Equal(t, "kept", rec["msg"])
		assert.Equal(t, "production", rec["env"])
	})

	t.Run("handler options are not mutated", func(t *testing.T) {
		t.Parallel()

		opts := &slog.HandlerOptions{AddSource: true}
		_ = logger.New(logger.WithHandlerOptions(opts), logger.WithLevel(slog.LevelError), logger.WithOutput(&bytes.Buffer{}))
		assert.Nil(t, opts.Level)
	})
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want slog.Level
		ok   bool
	}{
		{"debug", slog.LevelDebug, true},
		{"INFO", slog.LevelInfo, true},
		{" warn ", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"", slog.LevelInfo, false},
		{"verbose", slog.LevelInfo, false},
	}
	for _, tt := range tests {
		got, ok := logger.ParseLevel(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
	}
}
