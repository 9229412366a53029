package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/usage-forecaster/internal/domain/analysis"
	"github.com/yanqian/usage-forecaster/internal/domain/schema"
)

// Handler wires the HTTP transport to the analysis service.
type Handler struct {
	analysisSvc analysis.Service
	logger      *slog.Logger
}

// NewHandler constructs the root HTTP handler.
func NewHandler(analysisSvc analysis.Service, logger *slog.Logger) *Handler {
	return &Handler{
		analysisSvc: analysisSvc,
		logger:      logger.With("component", "http.handler"),
	}
}

// Forecast serves GET /forecast on the default (or ?source=) dataset.
func (h *Handler) Forecast(c *gin.Context) {
	h.forecast(c, c.Query("source"), analysis.VariantStandard)
}

// CombinedForecast serves GET /combined_forecast/:id.
func (h *Handler) CombinedForecast(c *gin.Context) {
	h.forecast(c, c.Param("id"), analysis.VariantCombined)
}

// Drift serves GET /drift?start&end.
func (h *Handler) Drift(c *gin.Context) {
	h.drift(c, c.Query("source"), analysis.VariantStandard)
}

// DetailedDrift serves GET /detailed_drift/:id with an optional window.
func (h *Handler) DetailedDrift(c *gin.Context) {
	h.drift(c, c.Param("id"), analysis.VariantDetailed)
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) forecast(c *gin.Context, sourceID string, variant analysis.Variant) {
	horizon, err := parseHorizon(c.Query("horizon"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	resp, svcErr := h.analysisSvc.Forecast(c.Request.Context(), analysis.ForecastRequest{
		SourceID: sourceID,
		Horizon:  horizon,
		Variant:  variant,
	})
	if svcErr != nil {
		abortWithError(c, fromDomainError(svcErr))
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) drift(c *gin.Context, sourceID string, variant analysis.Variant) {
	start, err := parseTimeParam("start", c.Query("start"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	end, err := parseTimeParam("end", c.Query("end"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	resp, svcErr := h.analysisSvc.Drift(c.Request.Context(), analysis.DriftRequest{
		SourceID: sourceID,
		Start:    start,
		End:      end,
		Variant:  variant,
	})
	if svcErr != nil {
		abortWithError(c, fromDomainError(svcErr))
		return
	}
	c.JSON(http.StatusOK, resp)
}

func parseHorizon(raw string) (int, *HTTPError) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, NewHTTPError(http.StatusBadRequest, analysis.CodeInvalidInput, "horizon must be a positive integer", err)
	}
	return n, nil
}

func parseTimeParam(name, raw string) (time.Time, *HTTPError) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	ts, ok := schema.ParseTime(raw)
	if !ok {
		return time.Time{}, NewHTTPError(http.StatusBadRequest, analysis.CodeInvalidInput, name+" must be a date (YYYY-MM-DD) or an RFC3339 timestamp", nil)
	}
	return ts, nil
}
