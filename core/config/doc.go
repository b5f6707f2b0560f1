// Package config provides type-safe environment variable loading with caching
// using Go generics. Each configuration type is loaded once and cached for
// subsequent calls.
//
// The package loads a .env file from the working directory on first use, if
// one exists, and uses the caarlos0/env library for parsing environment
// variables into struct fields.
//
// Basic usage:
//
//	import "github.com/dmitrymomot/fanout/core/config"
//
//	type RelayConfig struct {
//		Addr         string        `env:"RELAY_ADDR" envDefault:":8000"`
//		WriteTimeout time.Duration `env:"RELAY_WRITE_TIMEOUT" envDefault:"10s"`
//		Token        string        `env:"RELAY_TOKEN,required"`
//	}
//
//	func main() {
//		var cfg RelayConfig
//
//		// Load with error handling
//		if err := config.Load(&cfg); err != nil {
//			log.Fatal(err)
//		}
//
//		// Or panic on failure (useful for startup)
//		config.MustLoad(&cfg)
//	}
//
// # Caching Behavior
//
// Each configuration type is loaded only once per application lifetime:
//
//	var cfg1 RelayConfig
//	config.Load(&cfg1) // Loads from environment
//
//	var cfg2 RelayConfig
//	config.Load(&cfg2) // Returns cached value, cfg1 == cfg2
//
// Different types are cached independently. Nested structs can be composed
// with the envPrefix tag:
//
//	type Config struct {
//		TCP  server.Config `envPrefix:"TCP_"`
//		Chat chat.Config
//	}
package config
