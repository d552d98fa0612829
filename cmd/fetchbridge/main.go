package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/recipeui/fetchbridge/internal/app"
	"github.com/recipeui/fetchbridge/internal/config"
	"github.com/recipeui/fetchbridge/internal/invoke"
	"github.com/recipeui/fetchbridge/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fetchbridge start failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	logger.InfoObj("fetchbridge starting", "config", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bridge, err := app.Build(ctx, cfg, log)
	if err != nil {
		logger.ErrorObj("failed to initialize bridge", "error", err)
		return err
	}
	defer func() {
		if cerr := bridge.Close(); cerr != nil {
			logger.ErrorObj("bridge close failed", "error", cerr)
		}
	}()

	switch cfg.Transport {
	case config.TransportHTTP:
		if err := invoke.ListenAndServe(ctx, cfg.HTTPAddr, invoke.NewRouter(bridge, log), log); err != nil {
			return fmt.Errorf("http transport: %w", err)
		}
	default:
		if err := invoke.NewStdio(bridge, os.Stdout, log).Serve(ctx, os.Stdin); err != nil && ctx.Err() == nil {
			return fmt.Errorf("stdio transport: %w", err)
		}
	}

	logger.InfoObj("fetchbridge stopped", "transport", cfg.Transport)
	return nil
}
