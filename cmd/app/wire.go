//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/yanqian/usage-forecaster/internal/bootstrap"
	"github.com/yanqian/usage-forecaster/internal/domain/analysis"
	"github.com/yanqian/usage-forecaster/internal/infra/config"
	httpiface "github.com/yanqian/usage-forecaster/internal/interface/http"
	"github.com/yanqian/usage-forecaster/pkg/logger"
)

func initializeApp() (*bootstrap.App, func(), error) {
	wire.Build(
		config.Load,
		logger.New,
		provideAnalysisConfig,
		provideResponder,
		provideTokenCounter,
		providePromptBuilder,
		provideCatalog,
		provideResultCache,
		provideAuthService,
		analysis.NewService,
		httpiface.NewHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil, nil
}
