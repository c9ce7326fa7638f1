package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samvad-hq/reqwatch/internal/app"
	"github.com/samvad-hq/reqwatch/internal/config"
	"github.com/samvad-hq/reqwatch/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "watcher: %v\n", err)
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

	log.InfoObj("watcher starting", "app_meta", map[string]any{
		"app_name":         cfg.AppName,
		"app_env":          cfg.Env,
		"targets_file":     cfg.TargetsFile,
		"publishers_file":  cfg.PublishersFile,
		"refetch_interval": cfg.RefetchInterval.String(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	watcher, err := app.NewWatcher(ctx, cfg, log)
	if err != nil {
		log.ErrorObj("failed to initialize watcher", "error", err.Error())
		return err
	}
	return watcher.Run(ctx)
}
