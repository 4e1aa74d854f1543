package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samvad-hq/apiaggregator-client/internal/app"
	"github.com/samvad-hq/apiaggregator-client/internal/cli"
	"github.com/samvad-hq/apiaggregator-client/internal/config"
	"github.com/samvad-hq/apiaggregator-client/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "apiaggregator: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if _, err := logger.Init(cfg); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	logger.DebugObj("apiaggregator starting", "config", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return cli.Execute(ctx, cli.Deps{
		NewCaller: func() (*app.Caller, error) {
			return app.NewCaller(cfg, logger.Default())
		},
	})
}
