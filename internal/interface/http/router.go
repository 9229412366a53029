package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/usage-forecaster/internal/domain/auth"
	"github.com/yanqian/usage-forecaster/internal/infra/config"
)

// NewRouter wires up the HTTP handlers and returns a configured server. A nil
// authSvc leaves the endpoints open.
func NewRouter(cfg *config.Config, handler *Handler, authSvc auth.Service) *http.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(
		gin.Recovery(),
		requestIDMiddleware(),
		requestLogger(handler.logger),
		corsMiddleware(cfg.HTTP.AllowedOrigins),
		errorHandlingMiddleware(handler.logger),
	)

	router.GET("/healthz", handler.Health)

	api := router.Group("/")
	api.Use(rateLimitMiddleware(cfg.HTTP.RateLimit, handler.logger))
	if authSvc != nil {
		api.Use(authMiddleware(authSvc))
	}
	{
		api.GET("/forecast", handler.Forecast)
		api.GET("/drift", handler.Drift)
		api.GET("/combined_forecast/:id", handler.CombinedForecast)
		api.GET("/detailed_drift/:id", handler.DetailedDrift)
	}

	return &http.Server{
		Addr:           cfg.HTTP.Address,
		Handler:        router,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
}
