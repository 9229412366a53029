package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/yanqian/usage-forecaster/internal/bootstrap"
	"github.com/yanqian/usage-forecaster/internal/domain/analysis"
	"github.com/yanqian/usage-forecaster/internal/domain/schema"
	"github.com/yanqian/usage-forecaster/internal/infra/config"
	"github.com/yanqian/usage-forecaster/pkg/logger"
)

// environment is the wired pipeline for one command invocation.
type environment struct {
	cfg     *config.Config
	logger  *slog.Logger
	svc     analysis.Service
	cleanup func()
}

func newEnvironment(cmd *cobra.Command) (*environment, error) {
	log := logger.NewWithWriter(cmd.ErrOrStderr(), logLevel)
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return nil, err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	catalog, closeCatalog, err := bootstrap.NewCatalog(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	responder, err := bootstrap.NewResponder(ctx, cfg, log)
	if err != nil {
		closeCatalog()
		return nil, err
	}
	cache, closeCache := bootstrap.NewResultCache(cfg, log)
	builder := bootstrap.NewPromptBuilder(cfg, bootstrap.NewTokenCounter(cfg, log))
	svc := analysis.NewService(bootstrap.AnalysisConfig(cfg), catalog, builder, responder, cache, log)

	return &environment{
		cfg:    cfg,
		logger: log,
		svc:    svc,
		cleanup: func() {
			closeCache()
			closeCatalog()
		},
	}, nil
}

func parseWindowFlag(name, raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	ts, ok := schema.ParseTime(raw)
	if !ok {
		return time.Time{}, fmt.Errorf("--%s must be YYYY-MM-DD or RFC3339, got %q", name, raw)
	}
	return ts, nil
}
