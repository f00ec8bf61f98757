package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"pathfinder/backend/internal/app"
	"pathfinder/backend/pkg/config"
	"pathfinder/backend/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := newRootCommand(buildContainer, os.Stdout)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func buildContainer(ctx context.Context, dryRun bool) (*app.Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if dryRun {
		cfg.GraphStore = config.StoreMemory
		cfg.LockBackend = config.LockMemory
	}

	if err := logger.Init(cfg.Env, cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return app.NewContainer(ctx, cfg)
}
