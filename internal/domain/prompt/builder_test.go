package prompt

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/usage-forecaster/internal/domain/series"
	apperrors "github.com/yanqian/usage-forecaster/pkg/errors"
)

func TestForecastPromptGolden(t *testing.T) {
	b := NewBuilder(Config{MaxWindow: 100}, nil)

	spec, err := b.Build(KindForecast, dailySeries(3, 10), 7)
	require.NoError(t, err)

	want := `You are a time series forecasting expert.

DATA (CSV, 3 rows, oldest first):
timestamp,usage
2025-01-01,10
2025-01-02,11
2025-01-03,12

TASK:
Forecast the next 7 usage values, one per step, continuing after the last timestamp 2025-01-03. Follow the trend and seasonality visible in the data.

OUTPUT FORMAT:
A JSON array of exactly 7 numbers, for example [12.5, 13.1]. The i-th number is the value for the i-th step after the last timestamp.

RULES:
- Respond with JSON only. No prose, no markdown, no explanation.
- Return exactly 7 numbers. Do not return null.
- Do not include timestamps or objects.
`
	require.Equal(t, want, spec.Render())
	require.Equal(t, 7, spec.Output.ExactCount)
}

func TestPromptIsDeterministic(t *testing.T) {
	b := NewBuilder(Config{MaxWindow: 50}, nil)
	s := dailySeries(80, 1.25)

	for _, kind := range []Kind{KindForecast, KindDrift} {
		first, err := b.Build(kind, s, 5)
		require.NoError(t, err)
		second, err := b.Build(kind, s, 5)
		require.NoError(t, err)
		require.Equal(t, first.Render(), second.Render())
	}
}

func TestDriftPromptNamesFieldsAndCount(t *testing.T) {
	b := NewBuilder(Config{MaxWindow: 100}, nil)

	spec, err := b.Build(KindDrift, dailySeries(5, 3.5), 0)
	require.NoError(t, err)

	text := spec.Render()
	for _, want := range []string{
		`"timestamp": string formatted as YYYY-MM-DD`,
		`"usage": number`,
		`"drift": boolean`,
		"exactly 5 objects",
		"JSON only",
		DefaultDriftRule,
		"2025-01-05,7.5\n",
	} {
		require.Contains(t, text, want)
	}
	require.Equal(t, 5, spec.ExpectedCount())
	require.Zero(t, spec.Output.ExactCount)
}

func TestWindowKeepsNewestPoints(t *testing.T) {
	b := NewBuilder(Config{MaxWindow: 3}, nil)

	spec, err := b.Build(KindForecast, dailySeries(10, 0), 2)
	require.NoError(t, err)
	require.Equal(t, 3, spec.Window.Len())
	require.Equal(t, "timestamp,usage\n2025-01-08,7\n2025-01-09,8\n2025-01-10,9\n", spec.CSV())
}

func TestTokenBudgetDropsOldestPoints(t *testing.T) {
	unlimited := NewBuilder(Config{MaxWindow: 100}, nil)
	full, err := unlimited.Build(KindForecast, dailySeries(60, 100), 3)
	require.NoError(t, err)

	budget := unlimited.Count(full) - 20
	b := NewBuilder(Config{MaxWindow: 100, MaxPromptTokens: budget}, nil)
	spec, err := b.Build(KindForecast, dailySeries(60, 100), 3)
	require.NoError(t, err)

	require.Less(t, spec.Window.Len(), 60)
	require.LessOrEqual(t, b.Count(spec), budget)
	last, _ := spec.Window.Last()
	require.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), last.Timestamp)
}

func TestHourlyDataRendersRFC3339(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := series.New([]series.Point{
		{Timestamp: base, Value: 1},
		{Timestamp: base.Add(time.Hour), Value: 2},
	})

	spec, err := NewBuilder(Config{}, nil).Build(KindDrift, s, 0)
	require.NoError(t, err)
	require.True(t, strings.Contains(spec.CSV(), "2025-01-01T01:00:00Z,2"))
	require.Contains(t, spec.Render(), "YYYY-MM-DDTHH:MM:SSZ")
}

func TestBuildRejectsBadInput(t *testing.T) {
	b := NewBuilder(Config{}, nil)

	_, err := b.Build(KindForecast, dailySeries(3, 0), 0)
	require.True(t, apperrors.IsCode(err, "invalid_input"))

	_, err = b.Build(KindForecast, series.Series{}, 3)
	require.True(t, apperrors.IsCode(err, series.CodeEmptyDataset))
}

func dailySeries(n int, start float64) series.Series {
	points := make([]series.Point, n)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range points {
		points[i] = series.Point{
			Timestamp: base.AddDate(0, 0, i),
			Value:     start + float64(i),
			Kind:      series.KindActual,
		}
	}
	return series.New(points)
}
