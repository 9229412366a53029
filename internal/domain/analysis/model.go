package analysis

import (
	"context"
	"time"

	"github.com/yanqian/usage-forecaster/internal/domain/series"
	"github.com/yanqian/usage-forecaster/pkg/metrics"
)

// Error codes owned by the pipeline.
const (
	CodeInvalidInput           = "invalid_input"
	CodeUnknownSource          = "unknown_source"
	CodeResponderUnavailable   = "responder_unavailable"
	CodeResponderProtocolError = "responder_protocol_error"
	CodeSourceError            = "source_error"
	CodeInternal               = "internal_error"
)

// Config holds runtime knobs for the pipeline.
type Config struct {
	ForecastHorizon   int
	CombinedHorizon   int
	MaxHorizon        int
	DriftSpan         time.Duration
	DetailedDriftRule string
	ResponderTimeout  time.Duration
	CacheTTL          time.Duration
}

// GenerateRequest is one responder call.
type GenerateRequest struct {
	Prompt  string
	Timeout time.Duration
}

// Responder turns a prompt into free-form text. Implementations report
// CodeResponderUnavailable or CodeResponderProtocolError and never retry.
type Responder interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// Dataset is a configured series source.
type Dataset struct {
	ID     string
	Source series.Source
	Layout string
}

// Catalog resolves dataset ids. An empty id selects the default dataset.
type Catalog interface {
	Dataset(id string) (Dataset, bool)
}

// ResultCache stores serialized results by key.
type ResultCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Variant selects endpoint defaults.
type Variant int

const (
	VariantStandard Variant = iota
	// VariantCombined uses the combined-forecast horizon.
	VariantCombined
	// VariantDetailed allows an open drift window and uses the detailed rule.
	VariantDetailed
)

// ForecastRequest asks for a forecast. A zero horizon uses the variant default.
type ForecastRequest struct {
	SourceID string
	Horizon  int
	Variant  Variant
}

// DriftRequest asks for drift classification over an inclusive window.
type DriftRequest struct {
	SourceID string
	Start    time.Time
	End      time.Time
	Variant  Variant
}

// PreviewRequest renders a prompt without calling the responder.
type PreviewRequest struct {
	Kind     string
	SourceID string
	Horizon  int
	Start    time.Time
	End      time.Time
}

// ForecastPoint is one labeled value of a combined forecast.
type ForecastPoint struct {
	Timestamp string  `json:"timestamp"`
	Usage     float64 `json:"usage"`
	Type      string  `json:"type"`
}

// ForecastResponse is the actual window followed by the forecast.
type ForecastResponse struct {
	Source      string              `json:"source"`
	Horizon     int                 `json:"horizon"`
	Interval    string              `json:"interval"`
	Points      []ForecastPoint     `json:"points"`
	GeneratedAt time.Time           `json:"generatedAt"`
	DurationMs  int64               `json:"durationMs"`
	TokenUsage  *metrics.TokenUsage `json:"tokenUsage,omitempty"`
	Cached      bool                `json:"cached,omitempty"`
}

// DriftPoint is one classified observation.
type DriftPoint struct {
	Timestamp string  `json:"timestamp"`
	Usage     float64 `json:"usage"`
	Drift     bool    `json:"drift"`
}

// DriftResponse lists classified points inside the window.
type DriftResponse struct {
	Source     string       `json:"source"`
	Start      string       `json:"start"`
	End        string       `json:"end"`
	Points     []DriftPoint `json:"points"`
	DriftCount int          `json:"driftCount"`
	// Divergence is the Jensen-Shannon divergence between the first and second
	// half of the window usage. It is informational and never changes Drift.
	Divergence  *float64            `json:"divergence,omitempty"`
	GeneratedAt time.Time           `json:"generatedAt"`
	DurationMs  int64               `json:"durationMs"`
	TokenUsage  *metrics.TokenUsage `json:"tokenUsage,omitempty"`
	Cached      bool                `json:"cached,omitempty"`
}
