package prompt

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/yanqian/usage-forecaster/internal/domain/schema"
	"github.com/yanqian/usage-forecaster/internal/domain/series"
	apperrors "github.com/yanqian/usage-forecaster/pkg/errors"
	"github.com/yanqian/usage-forecaster/pkg/util"
)

// Kind selects the prompt template.
type Kind string

const (
	KindForecast Kind = "forecast"
	KindDrift    Kind = "drift"
)

// DefaultDriftRule is used when no rule is configured.
const DefaultDriftRule = "Drift is true when usage changed by more than 50% compared to the previous row, otherwise false. The first row has no previous row and is never drift."

// TokenCounter measures prompt size in model tokens.
type TokenCounter interface {
	Count(text string) int
}

// ApproxCounter estimates four bytes per token.
type ApproxCounter struct{}

// Count implements TokenCounter.
func (ApproxCounter) Count(text string) int {
	return (len(text) + 3) / 4
}

// Config bounds prompt construction.
type Config struct {
	// MaxWindow is the number of newest points sent to the responder.
	MaxWindow int
	// MaxPromptTokens drops older points until the prompt fits; zero disables.
	MaxPromptTokens int
	DriftRule       string
}

// Spec fully determines a rendered prompt.
type Spec struct {
	Kind         Kind
	Window       series.Series
	Horizon      int
	Instructions string
	TimeLayout   string
	Output       schema.Schema
}

// Builder turns a series into a prompt spec.
type Builder struct {
	cfg     Config
	counter TokenCounter
}

// NewBuilder returns a builder. A nil counter falls back to ApproxCounter.
func NewBuilder(cfg Config, counter TokenCounter) *Builder {
	if counter == nil {
		counter = ApproxCounter{}
	}
	if strings.TrimSpace(cfg.DriftRule) == "" {
		cfg.DriftRule = DefaultDriftRule
	}
	return &Builder{cfg: cfg, counter: counter}
}

// WithDriftRule returns a builder that uses rule for drift prompts. An empty
// rule returns b unchanged.
func (b *Builder) WithDriftRule(rule string) *Builder {
	if strings.TrimSpace(rule) == "" {
		return b
	}
	cp := *b
	cp.cfg.DriftRule = rule
	return &cp
}

// ForecastSchema is the expected reply shape for a forecast of horizon steps.
func ForecastSchema(horizon int) schema.Schema {
	return schema.Schema{Element: schema.TypeFloat, ExactCount: horizon}
}

// DriftSchema is the expected reply shape for drift classification.
func DriftSchema() schema.Schema {
	return schema.Schema{Fields: []schema.Field{
		{Name: "timestamp", Type: schema.TypeTime, Description: "the row timestamp, copied from the data", SkipInvalid: true},
		{Name: "usage", Type: schema.TypeFloat, Description: "the row usage value, copied from the data"},
		{Name: "drift", Type: schema.TypeBool, Description: "true if drift is detected at that row"},
	}}
}

// Build selects the window and produces the prompt Spec for kind.
func (b *Builder) Build(kind Kind, s series.Series, horizon int) (Spec, error) {
	if s.Len() == 0 {
		return Spec{}, apperrors.Wrap(series.CodeEmptyDataset, "cannot build a prompt from an empty series", nil)
	}

	spec := Spec{Kind: kind, Window: s.Tail(b.cfg.MaxWindow)}
	switch kind {
	case KindForecast:
		if horizon <= 0 {
			return Spec{}, apperrors.Wrap("invalid_input", "horizon must be positive", nil)
		}
		spec.Horizon = horizon
		spec.Instructions = "Follow the trend and seasonality visible in the data."
	case KindDrift:
		spec.Instructions = b.cfg.DriftRule
	default:
		return Spec{}, fmt.Errorf("unknown prompt kind %q", kind)
	}
	spec = spec.withWindow(spec.Window)

	if b.cfg.MaxPromptTokens > 0 {
		for spec.Window.Len() > 1 && b.counter.Count(spec.Render()) > b.cfg.MaxPromptTokens {
			spec = spec.withWindow(spec.Window.Tail(spec.Window.Len() - 1))
		}
	}
	return spec, nil
}

// Count returns the token size of the rendered spec.
func (b *Builder) Count(spec Spec) int {
	return b.counter.Count(spec.Render())
}

// withWindow recomputes everything derived from the window.
func (s Spec) withWindow(window series.Series) Spec {
	s.Window = window
	s.TimeLayout = util.DisplayLayout(window.Timestamps())
	if s.Kind == KindForecast {
		s.Output = ForecastSchema(s.Horizon)
	} else {
		s.Output = DriftSchema()
	}
	return s
}

// ExpectedCount is the record count the prompt asks for.
func (s Spec) ExpectedCount() int {
	if s.Kind == KindForecast {
		return s.Horizon
	}
	return s.Window.Len()
}

// Render produces the prompt text. Identical specs render identical bytes.
func (s Spec) Render() string {
	var b strings.Builder
	n := s.ExpectedCount()

	if s.Kind == KindForecast {
		b.WriteString("You are a time series forecasting expert.\n\n")
	} else {
		b.WriteString("You are a drift detection expert.\n\n")
	}

	fmt.Fprintf(&b, "DATA (CSV, %d rows, oldest first):\n", s.Window.Len())
	b.WriteString(s.CSV())
	b.WriteString("\n")

	b.WriteString("TASK:\n")
	if s.Kind == KindForecast {
		last, _ := s.Window.Last()
		fmt.Fprintf(&b, "Forecast the next %d usage values, one per step, continuing after the last timestamp %s. %s\n\n",
			n, last.Timestamp.Format(s.TimeLayout), s.Instructions)
	} else {
		fmt.Fprintf(&b, "For every row decide whether usage drifted. %s\n\n", s.Instructions)
	}

	b.WriteString("OUTPUT FORMAT:\n")
	if s.Kind == KindForecast {
		fmt.Fprintf(&b, "A JSON array of exactly %d numbers, for example [12.5, 13.1]. The i-th number is the value for the i-th step after the last timestamp.\n\n", n)
	} else {
		fmt.Fprintf(&b, "A JSON array of exactly %d objects, one per row in the same order, each with exactly these keys:\n", n)
		for _, f := range s.Output.Fields {
			fmt.Fprintf(&b, "  %q: %s, %s\n", f.Name, s.describeType(f.Type), f.Description)
		}
		first, _ := s.Window.First()
		fmt.Fprintf(&b, "Example: [{\"timestamp\": %q, \"usage\": %s, \"drift\": false}]\n\n",
			first.Timestamp.Format(s.TimeLayout), formatValue(first.Value))
	}

	b.WriteString("RULES:\n")
	b.WriteString("- Respond with JSON only. No prose, no markdown, no explanation.\n")
	if s.Kind == KindForecast {
		fmt.Fprintf(&b, "- Return exactly %d numbers. Do not return null.\n", n)
		b.WriteString("- Do not include timestamps or objects.\n")
	} else {
		fmt.Fprintf(&b, "- Return exactly %d objects. Do not skip rows.\n", n)
		b.WriteString("- Do not add any other keys.\n")
		b.WriteString("- Put one object per line.\n")
	}
	return b.String()
}

// CSV renders the window with a timestamp,usage header.
func (s Spec) CSV() string {
	var b strings.Builder
	b.WriteString("timestamp,usage\n")
	for _, p := range s.Window.Points() {
		b.WriteString(p.Timestamp.Format(s.TimeLayout))
		b.WriteByte(',')
		b.WriteString(formatValue(p.Value))
		b.WriteByte('\n')
	}
	return b.String()
}

func (s Spec) describeType(t schema.Type) string {
	switch t {
	case schema.TypeTime:
		return "string formatted as " + layoutHint(s.TimeLayout)
	case schema.TypeFloat:
		return "number"
	default:
		return t.String()
	}
}

func layoutHint(layout string) string {
	if layout == time.DateOnly {
		return "YYYY-MM-DD"
	}
	return "YYYY-MM-DDTHH:MM:SSZ"
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
