package main

import (
	"context"
	"log/slog"

	"github.com/yanqian/usage-forecaster/internal/bootstrap"
	"github.com/yanqian/usage-forecaster/internal/domain/analysis"
	"github.com/yanqian/usage-forecaster/internal/domain/auth"
	"github.com/yanqian/usage-forecaster/internal/domain/prompt"
	"github.com/yanqian/usage-forecaster/internal/infra/config"
)

func provideAnalysisConfig(cfg *config.Config) analysis.Config {
	return bootstrap.AnalysisConfig(cfg)
}

func provideResponder(cfg *config.Config, logger *slog.Logger) (analysis.Responder, error) {
	return bootstrap.NewResponder(context.Background(), cfg, logger)
}

func provideTokenCounter(cfg *config.Config, logger *slog.Logger) prompt.TokenCounter {
	return bootstrap.NewTokenCounter(cfg, logger)
}

func providePromptBuilder(cfg *config.Config, counter prompt.TokenCounter) *prompt.Builder {
	return bootstrap.NewPromptBuilder(cfg, counter)
}

func provideCatalog(cfg *config.Config, logger *slog.Logger) (analysis.Catalog, func(), error) {
	registry, cleanup, err := bootstrap.NewCatalog(context.Background(), cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return registry, cleanup, nil
}

func provideResultCache(cfg *config.Config, logger *slog.Logger) (analysis.ResultCache, func()) {
	return bootstrap.NewResultCache(cfg, logger)
}

func provideAuthService(cfg *config.Config, logger *slog.Logger) auth.Service {
	service := bootstrap.NewAuthService(cfg, logger)
	if service == nil {
		logger.Info("http auth disabled, no jwt secret configured")
	}
	return service
}
