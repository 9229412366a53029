package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/usage-forecaster/internal/domain/analysis"
	"github.com/yanqian/usage-forecaster/internal/domain/auth"
	"github.com/yanqian/usage-forecaster/internal/domain/prompt"
	"github.com/yanqian/usage-forecaster/internal/domain/schema"
	"github.com/yanqian/usage-forecaster/internal/domain/series"
	"github.com/yanqian/usage-forecaster/internal/infra/config"
	apperrors "github.com/yanqian/usage-forecaster/pkg/errors"
)

func TestRouter_ForecastSuccess(t *testing.T) {
	resp := analysis.ForecastResponse{
		Source:   "usage",
		Horizon:  2,
		Interval: "1d",
		Points: []analysis.ForecastPoint{
			{Timestamp: "2025-01-01", Usage: 10, Type: "actual"},
			{Timestamp: "2025-01-02", Usage: 11, Type: "forecast"},
		},
	}
	svc := &stubAnalysis{
		forecastFn: func(ctx context.Context, req analysis.ForecastRequest) (analysis.ForecastResponse, error) {
			require.Equal(t, analysis.ForecastRequest{Horizon: 2, Variant: analysis.VariantStandard}, req)
			return resp, nil
		},
	}

	recorder := performRequest(newRouterUnderTest(t, svc, nil), "/forecast?horizon=2", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	require.NotEmpty(t, recorder.Header().Get(requestIDHeader))

	var got analysis.ForecastResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &got))
	require.Equal(t, resp.Points, got.Points)
}

func TestRouter_CombinedForecastUsesPathID(t *testing.T) {
	svc := &stubAnalysis{
		forecastFn: func(ctx context.Context, req analysis.ForecastRequest) (analysis.ForecastResponse, error) {
			require.Equal(t, "billing", req.SourceID)
			require.Equal(t, analysis.VariantCombined, req.Variant)
			require.Zero(t, req.Horizon)
			return analysis.ForecastResponse{Source: "billing"}, nil
		},
	}

	recorder := performRequest(newRouterUnderTest(t, svc, nil), "/combined_forecast/billing", "")
	require.Equal(t, http.StatusOK, recorder.Code)
}

func TestRouter_InvalidQuery(t *testing.T) {
	tests := map[string]string{
		"zero horizon":     "/forecast?horizon=0",
		"text horizon":     "/forecast?horizon=soon",
		"bad start":        "/drift?start=yesterday&end=2025-01-02",
		"bad detailed end": "/detailed_drift/usage?end=02/01/2025",
	}
	for name, path := range tests {
		t.Run(name, func(t *testing.T) {
			recorder := performRequest(newRouterUnderTest(t, &stubAnalysis{}, nil), path, "")
			require.Equal(t, http.StatusBadRequest, recorder.Code)

			body := decodeErrorBody(t, recorder.Body.Bytes())
			require.Equal(t, "invalid_input", body.Code)
			require.NotEmpty(t, body.Error)
			require.Nil(t, body.RawOutput)
		})
	}
}

func TestRouter_DriftPassesWindow(t *testing.T) {
	svc := &stubAnalysis{
		driftFn: func(ctx context.Context, req analysis.DriftRequest) (analysis.DriftResponse, error) {
			require.Equal(t, time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), req.Start)
			require.Equal(t, time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC), req.End)
			require.Equal(t, analysis.VariantStandard, req.Variant)
			return analysis.DriftResponse{Points: []analysis.DriftPoint{{Timestamp: "2025-01-03", Usage: 30, Drift: true}}, DriftCount: 1}, nil
		},
	}

	recorder := performRequest(newRouterUnderTest(t, svc, nil), "/drift?start=2025-01-02&end=2025-01-05", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Contains(t, recorder.Body.String(), `"drift":true`)
}

func TestRouter_DetailedDriftOpenWindow(t *testing.T) {
	svc := &stubAnalysis{
		driftFn: func(ctx context.Context, req analysis.DriftRequest) (analysis.DriftResponse, error) {
			require.Equal(t, "usage", req.SourceID)
			require.Equal(t, analysis.VariantDetailed, req.Variant)
			require.True(t, req.Start.IsZero())
			require.True(t, req.End.IsZero())
			return analysis.DriftResponse{}, nil
		},
	}

	recorder := performRequest(newRouterUnderTest(t, svc, nil), "/detailed_drift/usage", "")
	require.Equal(t, http.StatusOK, recorder.Code)
}

func TestRouter_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
		raw    string
	}{
		{"empty dataset", apperrors.Wrap(series.CodeEmptyDataset, "no rows", nil), http.StatusNotFound, series.CodeEmptyDataset, ""},
		{"no data in range", apperrors.Wrap(series.CodeNoDataInRange, "empty window", nil), http.StatusNotFound, series.CodeNoDataInRange, ""},
		{"unknown source", apperrors.Wrap(analysis.CodeUnknownSource, "nope", nil), http.StatusNotFound, analysis.CodeUnknownSource, ""},
		{"responder down", apperrors.Wrap(analysis.CodeResponderUnavailable, "connection refused", nil), http.StatusBadGateway, analysis.CodeResponderUnavailable, ""},
		{"protocol error", apperrors.Wrap(analysis.CodeResponderProtocolError, "missing response", nil), http.StatusBadGateway, analysis.CodeResponderProtocolError, ""},
		{
			"count mismatch",
			apperrors.WithRawOutput(apperrors.Wrap(schema.CodeUnexpectedRecordCount, "expected 7 values, got 6", nil), "", "[1,2,3,4,5,6]"),
			http.StatusInternalServerError, schema.CodeUnexpectedRecordCount, "[1,2,3,4,5,6]",
		},
		{"plain error", context.DeadlineExceeded, http.StatusInternalServerError, "internal_error", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubAnalysis{
				forecastFn: func(ctx context.Context, req analysis.ForecastRequest) (analysis.ForecastResponse, error) {
					return analysis.ForecastResponse{}, tt.err
				},
			}
			recorder := performRequest(newRouterUnderTest(t, svc, nil), "/forecast", "")
			require.Equal(t, tt.status, recorder.Code)

			body := decodeErrorBody(t, recorder.Body.Bytes())
			require.Equal(t, tt.code, body.Code)
			require.NotEmpty(t, body.Error)
			require.NotEmpty(t, body.Details)
			if tt.raw == "" {
				require.Nil(t, body.RawOutput)
			} else {
				require.NotNil(t, body.RawOutput)
				require.Equal(t, tt.raw, *body.RawOutput)
			}
		})
	}
}

func TestRouter_Auth(t *testing.T) {
	authSvc := auth.NewService(auth.Config{Secret: "test-secret", TokenTTL: time.Hour}, newTestLogger())
	token, err := authSvc.IssueToken(context.Background(), "dashboard")
	require.NoError(t, err)
	server := newRouterUnderTest(t, &stubAnalysis{}, authSvc)

	recorder := performRequest(server, "/forecast", "")
	require.Equal(t, http.StatusUnauthorized, recorder.Code)
	require.Equal(t, "unauthorized", decodeErrorBody(t, recorder.Body.Bytes()).Code)

	recorder = performRequest(server, "/forecast", "Bearer not-a-token")
	require.Equal(t, http.StatusUnauthorized, recorder.Code)

	recorder = performRequest(server, "/forecast", "Bearer "+token)
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder = performRequest(server, "/healthz", "")
	require.Equal(t, http.StatusOK, recorder.Code)
}

func TestRouter_RateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.HTTP.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 1, Burst: 1}
	server := NewRouter(cfg, NewHandler(&stubAnalysis{}, newTestLogger()), nil)

	require.Equal(t, http.StatusOK, performRequest(server, "/forecast", "").Code)
	recorder := performRequest(server, "/forecast", "")
	require.Equal(t, http.StatusTooManyRequests, recorder.Code)
	require.Equal(t, "rate_limit_exceeded", decodeErrorBody(t, recorder.Body.Bytes()).Code)
}

func TestRouter_PreservesRequestID(t *testing.T) {
	server := newRouterUnderTest(t, &stubAnalysis{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "6f1c2a8e-3d5b-4c1e-9a7f-0b2d4e6f8a1c")
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	require.Equal(t, "6f1c2a8e-3d5b-4c1e-9a7f-0b2d4e6f8a1c", rec.Header().Get(requestIDHeader))
}

func performRequest(server *http.Server, path, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	return rec
}

func testConfig() *config.Config {
	return &config.Config{
		HTTP: config.HTTPConfig{
			Address:      ":0",
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
		},
	}
}

func newRouterUnderTest(t *testing.T, svc analysis.Service, authSvc auth.Service) *http.Server {
	t.Helper()
	return NewRouter(testConfig(), NewHandler(svc, newTestLogger()), authSvc)
}

func newTestLogger() *slog.Logger {
	handler := slog.NewTextHandler(io.Discard, nil)
	return slog.New(handler)
}

type stubAnalysis struct {
	forecastFn func(ctx context.Context, req analysis.ForecastRequest) (analysis.ForecastResponse, error)
	driftFn    func(ctx context.Context, req analysis.DriftRequest) (analysis.DriftResponse, error)
}

func (s *stubAnalysis) Forecast(ctx context.Context, req analysis.ForecastRequest) (analysis.ForecastResponse, error) {
	if s.forecastFn != nil {
		return s.forecastFn(ctx, req)
	}
	return analysis.ForecastResponse{}, nil
}

func (s *stubAnalysis) Drift(ctx context.Context, req analysis.DriftRequest) (analysis.DriftResponse, error) {
	if s.driftFn != nil {
		return s.driftFn(ctx, req)
	}
	return analysis.DriftResponse{}, nil
}

func (s *stubAnalysis) Preview(ctx context.Context, req analysis.PreviewRequest) (prompt.Spec, error) {
	return prompt.Spec{}, nil
}

type errorBody struct {
	Error     string  `json:"error"`
	Code      string  `json:"code"`
	Details   string  `json:"details"`
	RawOutput *string `json:"raw_output"`
}

func decodeErrorBody(t *testing.T, raw []byte) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}
