package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jarwiz-ai/jarwiz/config"
	"github.com/jarwiz-ai/jarwiz/internal/cli"
	"github.com/jarwiz-ai/jarwiz/internal/output"
	"github.com/jarwiz-ai/jarwiz/internal/setup"
)

func main() {
	if err := run(); err != nil {
		formatter := output.NewFormatter(os.Stderr)
		formatter.Error(err.Error())
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	deps := &cli.Dependencies{
		Config:  cfg,
		Backend: setup.Backend(cfg),
	}

	return cli.NewRootCmd(deps).ExecuteContext(context.Background())
}
