package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/park285/Cheese-match-server/internal/chessbuilder"
	appcfg "github.com/park285/Cheese-match-server/internal/config"
	"github.com/park285/Cheese-match-server/internal/obslog"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer obslog.Sync()
	logger := obslog.L()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := chessbuilder.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("init_error", zap.Error(err))
	}

	// nil unless a relay runs, so the select below ignores it
	var relayDone chan error
	if deps.Relay != nil {
		relayDone = make(chan error, 1)
		go func() { relayDone <- deps.Relay.Run(ctx) }()
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- deps.API.Listen(cfg.HTTPAddr) }()

	select {
	case <-ctx.Done():
		logger.Info("shutdown_signal")
	case err := <-serveErr:
		if err != nil {
			logger.Error("http_serve_error", zap.Error(err))
		}
		stop()
	case err := <-relayDone:
		if err != nil {
			logger.Error("relay_error", zap.Error(err))
		}
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := deps.API.Close(shutdownCtx); err != nil {
		logger.Warn("http_shutdown_error", zap.Error(err))
	}
	if err := deps.Close(); err != nil {
		logger.Warn("close_error", zap.Error(err))
	}
	logger.Info("shutdown_complete")
}
