package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/fanout/core/config"
	"github.com/dmitrymomot/fanout/core/health"
	"github.com/dmitrymomot/fanout/core/logger"
	"github.com/dmitrymomot/fanout/core/server"
	"github.com/dmitrymomot/fanout/internal/chat"
	"github.com/dmitrymomot/fanout/pkg/ratelimiter"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cfg Config
	config.MustLoad(&cfg) // panic on error

	logOpts := []logger.Option{logger.ForEnv(cfg.AppEnv, cfg.AppName)}
	if level, ok := logger.ParseLevel(cfg.LogLevel); ok {
		logOpts = append(logOpts, logger.WithLevel(level))
	}
	log := logger.New(logOpts...)
	logger.SetAsDefault(log)

	eg, ctx := errgroup.WithContext(ctx)

	relayOpts := []chat.Option{
		chat.WithConfig(cfg.Chat),
		chat.WithLogger(log),
	}
	if cfg.RateLimit.Enabled() {
		limiter, err := ratelimiter.New(cfg.RateLimit, ratelimiter.WithLogger(log.With(logger.Component("ratelimiter"))))
		if err != nil {
			log.Error("Failed to create rate limiter", logger.Component("ratelimiter"), logger.Error(err))
			os.Exit(1)
		}
		eg.Go(limiter.Run(ctx))
		relayOpts = append(relayOpts, chat.WithRateLimiter(limiter))
	}

	relay := chat.NewRelay(relayOpts...)
	defer relay.Close()

	mux := http.NewServeMux()
	mux.Handle("GET /ws", relay.WebSocketHandler())
	mux.HandleFunc("GET /health/live", health.Liveness)
	mux.Handle("GET /health/ready", health.Readiness(log, relay.Healthcheck))

	tcp, err := server.NewFromConfig(cfg.TCP, server.WithLogger(log.With(logger.Component("server.tcp"))))
	if err != nil {
		log.Error("Failed to create tcp server", logger.Component("server.tcp"), logger.Error(err))
		os.Exit(1)
	}
	httpSrv, err := server.NewHTTPFromConfig(cfg.HTTP, server.WithLogger(log.With(logger.Component("server.http"))))
	if err != nil {
		log.Error("Failed to create http server", logger.Component("server.http"), logger.Error(err))
		os.Exit(1)
	}

	eg.Go(tcp.Run(ctx, relay))
	eg.Go(httpSrv.Run(ctx, mux))

	if err := eg.Wait(); err != nil {
		log.Error("Failed to run server", logger.Component("server"), logger.Error(err))
		_ = relay.Close()
		os.Exit(1)
	}

	log.Info("Application stopped")
}
