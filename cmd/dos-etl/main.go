package main

import (
	"context"
	"fmt"
	"os"

	"data-migration/infrastructure/config"
	"data-migration/infrastructure/di"
	"data-migration/interfaces/cli"
)

func newSession(ctx context.Context, cfg *config.Config, dryRun bool) (*cli.Session, error) {
	initialize := di.InitializeMigrationContainer
	if dryRun {
		initialize = di.InitializeDryRunContainer
	}
	container, cleanup, err := initialize(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &cli.Session{
		Runner:  container.Processor,
		Logger:  container.Logger,
		Metrics: container.Collector.Handler(),
		Close: func() {
			cleanup()
			_ = container.Logger.Sync()
		},
	}, nil
}

func main() {
	if err := cli.NewRootCommand(newSession).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
