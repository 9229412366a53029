package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/yanqian/usage-forecaster/internal/domain/assemble"
	"github.com/yanqian/usage-forecaster/internal/domain/extract"
	"github.com/yanqian/usage-forecaster/internal/domain/prompt"
	"github.com/yanqian/usage-forecaster/internal/domain/schema"
	"github.com/yanqian/usage-forecaster/internal/domain/series"
	apperrors "github.com/yanqian/usage-forecaster/pkg/errors"
	"github.com/yanqian/usage-forecaster/pkg/metrics"
	"github.com/yanqian/usage-forecaster/pkg/util"
)

// Service runs the forecast and drift pipelines.
type Service interface {
	Forecast(ctx context.Context, req ForecastRequest) (ForecastResponse, error)
	Drift(ctx context.Context, req DriftRequest) (DriftResponse, error)
	Preview(ctx context.Context, req PreviewRequest) (prompt.Spec, error)
}

type service struct {
	cfg       Config
	catalog   Catalog
	builder   *prompt.Builder
	responder Responder
	cache     *resultCache
	logger    *slog.Logger
	now       func() time.Time
}

// NewService wires up the analysis domain. A nil cache disables result caching.
func NewService(cfg Config, catalog Catalog, builder *prompt.Builder, responder Responder, cache ResultCache, logger *slog.Logger) Service {
	logger = logger.With("component", "analysis.service")
	return &service{
		cfg:       cfg,
		catalog:   catalog,
		builder:   builder,
		responder: responder,
		cache:     newResultCache(cache, cfg.CacheTTL, logger),
		logger:    logger,
		now:       util.NowUTC,
	}
}

func (s *service) Forecast(ctx context.Context, req ForecastRequest) (ForecastResponse, error) {
	started := s.now()
	horizon, err := s.resolveHorizon(req.Horizon, req.Variant)
	if err != nil {
		return ForecastResponse{}, err
	}
	ds, err := s.dataset(req.SourceID)
	if err != nil {
		return ForecastResponse{}, err
	}
	full, err := series.Load(ctx, ds.Source, series.LoadOptions{Layout: ds.Layout})
	if err != nil {
		return ForecastResponse{}, wrapLoad(err)
	}
	spec, err := s.builder.Build(prompt.KindForecast, full, horizon)
	if err != nil {
		return ForecastResponse{}, err
	}

	resp, cached, err := runCached(ctx, s.cache, cacheKey(prompt.KindForecast, ds.ID, spec), func(ctx context.Context) (ForecastResponse, error) {
		raw, err := s.generate(ctx, spec)
		if err != nil {
			return ForecastResponse{}, err
		}
		records, err := s.decode(raw, extract.Options{Mode: extract.ModeNumbers}, spec.Output)
		if err != nil {
			return ForecastResponse{}, err
		}

		combined, interval := assemble.Forecast(spec.Window, schema.Floats(records))
		return ForecastResponse{
			Source:     ds.ID,
			Horizon:    horizon,
			Interval:   interval.String(),
			Points:     toForecastPoints(combined),
			TokenUsage: metrics.PromptOnly(s.builder.Count(spec)),
		}, nil
	})
	if err != nil {
		return ForecastResponse{}, err
	}

	resp.Cached = cached
	resp.GeneratedAt = s.now()
	resp.DurationMs = time.Since(started).Milliseconds()
	s.logger.Info("forecast completed", "source", ds.ID, "horizon", horizon, "points", len(resp.Points), "cached", cached, "durationMs", resp.DurationMs)
	return resp, nil
}

func (s *service) Drift(ctx context.Context, req DriftRequest) (DriftResponse, error) {
	started := s.now()
	ds, err := s.dataset(req.SourceID)
	if err != nil {
		return DriftResponse{}, err
	}
	spec, window, err := s.driftSpec(ctx, ds, req.Start, req.End, req.Variant)
	if err != nil {
		return DriftResponse{}, err
	}

	key := cacheKey(prompt.KindDrift, ds.ID, spec) + window.Start.Format(time.RFC3339) + window.End.Format(time.RFC3339)
	resp, cached, err := runCached(ctx, s.cache, key, func(ctx context.Context) (DriftResponse, error) {
		raw, err := s.generate(ctx, spec)
		if err != nil {
			return DriftResponse{}, err
		}
		opts := extract.Options{Mode: extract.ModeRecords, RequiredFields: spec.Output.FieldNames()}
		records, err := s.decode(raw, opts, spec.Output)
		if err != nil {
			return DriftResponse{}, err
		}

		points := assemble.Drift(records, window)
		layout := spec.TimeLayout
		resp := DriftResponse{
			Source:     ds.ID,
			Start:      window.Start.Format(layout),
			End:        window.End.Format(layout),
			Points:     toDriftPoints(points, layout),
			DriftCount: assemble.CountDrift(points),
			TokenUsage: metrics.PromptOnly(s.builder.Count(spec)),
		}
		if div, ok := assemble.WindowDivergence(points); ok {
			resp.Divergence = &div
		}
		return resp, nil
	})
	if err != nil {
		return DriftResponse{}, err
	}

	resp.Cached = cached
	resp.GeneratedAt = s.now()
	resp.DurationMs = time.Since(started).Milliseconds()
	s.logger.Info("drift completed", "source", ds.ID, "points", len(resp.Points), "drift", resp.DriftCount, "cached", cached, "durationMs", resp.DurationMs)
	return resp, nil
}

func (s *service) Preview(ctx context.Context, req PreviewRequest) (prompt.Spec, error) {
	ds, err := s.dataset(req.SourceID)
	if err != nil {
		return prompt.Spec{}, err
	}
	switch prompt.Kind(req.Kind) {
	case prompt.KindForecast:
		horizon, err := s.resolveHorizon(req.Horizon, VariantStandard)
		if err != nil {
			return prompt.Spec{}, err
		}
		full, err := series.Load(ctx, ds.Source, series.LoadOptions{Layout: ds.Layout})
		if err != nil {
			return prompt.Spec{}, wrapLoad(err)
		}
		return s.builder.Build(prompt.KindForecast, full, horizon)
	case prompt.KindDrift:
		spec, _, err := s.driftSpec(ctx, ds, req.Start, req.End, VariantDetailed)
		return spec, err
	default:
		return prompt.Spec{}, apperrors.Wrap(CodeInvalidInput, fmt.Sprintf("unknown prompt kind %q", req.Kind), nil)
	}
}

// driftSpec resolves the window and builds the drift prompt for it.
func (s *service) driftSpec(ctx context.Context, ds Dataset, start, end time.Time, variant Variant) (prompt.Spec, series.Range, error) {
	if variant != VariantDetailed && (start.IsZero() || end.IsZero()) {
		return prompt.Spec{}, series.Range{}, apperrors.Wrap(CodeInvalidInput, "start and end are required", nil)
	}
	if !start.IsZero() && !end.IsZero() && start.After(end) {
		return prompt.Spec{}, series.Range{}, apperrors.Wrap(CodeInvalidInput, "start must not be after end", nil)
	}

	full, err := series.Load(ctx, ds.Source, series.LoadOptions{Layout: ds.Layout})
	if err != nil {
		return prompt.Spec{}, series.Range{}, wrapLoad(err)
	}

	window := series.Range{Start: start, End: end}
	if window.End.IsZero() {
		last, _ := full.Last()
		window.End = last.Timestamp
	}
	if window.Start.IsZero() {
		window.Start = window.End.Add(-s.cfg.DriftSpan)
	}
	if window.Start.After(window.End) {
		return prompt.Spec{}, series.Range{}, apperrors.Wrap(CodeInvalidInput, "start must not be after end", nil)
	}

	ranged := full.Between(window)
	if ranged.Len() == 0 {
		return prompt.Spec{}, series.Range{}, apperrors.Wrap(series.CodeNoDataInRange, "no data in the requested range", nil)
	}

	builder := s.builder
	if variant == VariantDetailed {
		builder = builder.WithDriftRule(s.cfg.DetailedDriftRule)
	}
	spec, err := builder.Build(prompt.KindDrift, ranged, 0)
	if err != nil {
		return prompt.Spec{}, series.Range{}, err
	}
	return spec, window, nil
}

func (s *service) resolveHorizon(horizon int, variant Variant) (int, error) {
	if horizon == 0 {
		horizon = s.cfg.ForecastHorizon
		if variant == VariantCombined {
			horizon = s.cfg.CombinedHorizon
		}
	}
	if horizon < 1 || (s.cfg.MaxHorizon > 0 && horizon > s.cfg.MaxHorizon) {
		return 0, apperrors.Wrap(CodeInvalidInput, fmt.Sprintf("horizon must be between 1 and %d", s.cfg.MaxHorizon), nil)
	}
	return horizon, nil
}

func (s *service) dataset(id string) (Dataset, error) {
	ds, ok := s.catalog.Dataset(id)
	if !ok {
		return Dataset{}, apperrors.Wrap(CodeUnknownSource, fmt.Sprintf("unknown source %q", id), nil)
	}
	return ds, nil
}

// generate makes the single responder call of a request.
func (s *service) generate(ctx context.Context, spec prompt.Spec) (string, error) {
	if s.cfg.ResponderTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.ResponderTimeout)
		defer cancel()
	}

	raw, err := s.responder.Generate(ctx, GenerateRequest{Prompt: spec.Render(), Timeout: s.cfg.ResponderTimeout})
	if err != nil {
		s.logger.Error("responder call failed", "kind", spec.Kind, "error", err)
		if apperrors.IsCode(err, CodeResponderUnavailable) || apperrors.IsCode(err, CodeResponderProtocolError) {
			return "", err
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return "", apperrors.Wrap(CodeResponderUnavailable, "responder timed out", err)
		}
		if errors.Is(err, context.Canceled) {
			return "", apperrors.Wrap(CodeResponderUnavailable, "responder call cancelled", err)
		}
		return "", apperrors.Wrap(CodeResponderUnavailable, "responder request failed", err)
	}
	return raw, nil
}

// decode extracts and validates raw. Every failure carries raw.
func (s *service) decode(raw string, opts extract.Options, sch schema.Schema) ([]schema.Record, error) {
	res, err := extract.Extract(raw, opts)
	if err != nil {
		s.logger.Warn("responder output rejected", "code", apperrors.Code(err), "raw_output", raw)
		return nil, err
	}
	if res.Dropped > 0 {
		s.logger.Warn("responder output repaired", "dropped", res.Dropped, "steps", res.Applied)
	}

	records, err := sch.Validate(res.Payload)
	if err != nil {
		s.logger.Warn("responder output rejected", "code", apperrors.Code(err), "error", err, "raw_output", raw)
		return nil, apperrors.WithRawOutput(err, CodeInternal, raw)
	}
	return records, nil
}

// wrapLoad keeps loader codes and tags source failures.
func wrapLoad(err error) error {
	if apperrors.Code(err) != "" {
		return err
	}
	return apperrors.Wrap(CodeSourceError, "failed to read series source", err)
}

func toForecastPoints(s series.Series) []ForecastPoint {
	layout := util.DisplayLayout(s.Timestamps())
	points := s.Points()
	out := make([]ForecastPoint, 0, len(points))
	for _, p := range points {
		out = append(out, ForecastPoint{
			Timestamp: p.Timestamp.Format(layout),
			Usage:     p.Value,
			Type:      string(p.Kind),
		})
	}
	return out
}

func toDriftPoints(points []assemble.DriftPoint, layout string) []DriftPoint {
	if layout == time.DateOnly {
		ts := make([]time.Time, len(points))
		for i, p := range points {
			ts[i] = p.Timestamp
		}
		layout = util.DisplayLayout(ts)
	}
	out := make([]DriftPoint, 0, len(points))
	for _, p := range points {
		out = append(out, DriftPoint{
			Timestamp: p.Timestamp.Format(layout),
			Usage:     p.Usage,
			Drift:     p.DriftDetected,
		})
	}
	return out
}
