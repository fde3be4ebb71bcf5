package main

import (
	"context"
	"log"
	"os"

	"github.com/spec-kit/helpdesk/internal/app"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/observability"
)

func main() {
	build := func(ctx context.Context) (*app.Container, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		// Keep stdout for command output.
		cfg.Logger.Output = "stderr"
		logger, err := observability.NewLogger(cfg.Logger)
		if err != nil {
			return nil, err
		}
		return app.Build(ctx, cfg, logger)
	}

	root := newRootCmd(build, os.Stdout)
	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}
