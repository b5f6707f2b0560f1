package main

import (
	"github.com/dmitrymomot/fanout/core/server"
	"github.com/dmitrymomot/fanout/internal/chat"
	"github.com/dmitrymomot/fanout/pkg/ratelimiter"
)

// Config is loaded from the environment (and a .env file, if present).
type Config struct {
	AppName  string `env:"APP_NAME" envDefault:"chat-server"`
	AppEnv   string `env:"APP_ENV" envDefault:"development"`
	LogLevel string `env:"LOG_LEVEL" envDefault:""`

	TCP  server.Config     `envPrefix:"TCP_"`
	HTTP server.HTTPConfig `envPrefix:"HTTP_"`
	Chat chat.Config

	// CHAT_RATE_CAPACITY=0 disables rate limiting.
	RateLimit ratelimiter.Config `envPrefix:"CHAT_"`
}
