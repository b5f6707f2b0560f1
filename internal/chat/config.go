package chat

import "time"

// Config holds relay settings with environment variable support.
type Config struct {
	// MaxLineBytes caps one incoming line (TCP) or frame (WebSocket).
	MaxLineBytes int `env:"CHAT_MAX_LINE_BYTES" envDefault:"65536"`

	// WriteTimeout bounds each write to a client. Zero disables it.
	WriteTimeout time.Duration `env:"CHAT_WRITE_TIMEOUT" envDefault:"10s"`

	// Echo also delivers a session's own messages back to it.
	Echo bool `env:"CHAT_ECHO" envDefault:"false"`

	// AllowedOrigins lists WebSocket origins. Empty means same-origin only, "*" allows any.
	AllowedOrigins []string `env:"CHAT_ALLOWED_ORIGINS" envSeparator:","`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxLineBytes: 64 << 10,
		WriteTimeout: 10 * time.Second,
	}
}
