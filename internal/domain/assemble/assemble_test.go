package assemble

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/usage-forecaster/internal/domain/schema"
	"github.com/yanqian/usage-forecaster/internal/domain/series"
)

func TestForecastDailyTimestamps(t *testing.T) {
	actual := dailySeries(date(2025, 1, 1), 10)

	out, interval := Forecast(actual, []float64{20, 21, 22})
	require.Equal(t, Interval{Days: 1}, interval)
	require.Equal(t, 13, out.Len())

	points := out.Points()
	for _, p := range points[:10] {
		require.Equal(t, series.KindActual, p.Kind)
	}
	forecast := points[10:]
	require.Equal(t, date(2025, 1, 11), forecast[0].Timestamp)
	require.Equal(t, date(2025, 1, 12), forecast[1].Timestamp)
	require.Equal(t, date(2025, 1, 13), forecast[2].Timestamp)
	for i, p := range forecast {
		require.Equal(t, series.KindForecast, p.Kind)
		require.Equal(t, 20+float64(i), p.Value)
	}
}

func TestInferInterval(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		ts   []time.Time
		want Interval
	}{
		{
			name: "hourly",
			ts:   []time.Time{base, base.Add(time.Hour), base.Add(2 * time.Hour), base.Add(3 * time.Hour)},
			want: Interval{Step: time.Hour},
		},
		{
			name: "weekly dates",
			ts:   []time.Time{base, base.AddDate(0, 0, 7), base.AddDate(0, 0, 14)},
			want: Interval{Days: 7},
		},
		{
			name: "mode with gap",
			ts:   []time.Time{base, base.AddDate(0, 0, 1), base.AddDate(0, 0, 2), base.AddDate(0, 0, 5)},
			want: Interval{Days: 1},
		},
		{
			name: "tie prefers smaller",
			ts: []time.Time{
				base, base.Add(2 * time.Hour), base.Add(4 * time.Hour),
				base.Add(5 * time.Hour), base.Add(6 * time.Hour),
			},
			want: Interval{Step: time.Hour},
		},
		{
			name: "single point",
			ts:   []time.Time{base},
			want: DefaultInterval,
		},
		{
			name: "irregular",
			ts:   []time.Time{base, base.Add(time.Hour), base.Add(3 * time.Hour), base.Add(6 * time.Hour)},
			want: DefaultInterval,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, InferInterval(tt.ts))
		})
	}
}

func TestForecastHourly(t *testing.T) {
	base := time.Date(2025, 1, 1, 22, 0, 0, 0, time.UTC)
	actual := series.New([]series.Point{
		{Timestamp: base, Value: 1},
		{Timestamp: base.Add(time.Hour), Value: 2},
	})

	out, _ := Forecast(actual, []float64{3, 4})
	points := out.Points()
	require.Equal(t, time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), points[2].Timestamp)
	require.Equal(t, time.Date(2025, 1, 2, 1, 0, 0, 0, time.UTC), points[3].Timestamp)
}

func TestDriftWindowFilter(t *testing.T) {
	records := []schema.Record{
		driftRecord(date(2025, 1, 3), 12, true),
		driftRecord(date(2025, 1, 6), 50, true),
		driftRecord(date(2025, 1, 1), 10, false),
		driftRecord(date(2025, 1, 3), 99, false),
		driftRecord(date(2025, 1, 5), 11, false),
	}

	out := Drift(records, series.Range{Start: date(2025, 1, 1), End: date(2025, 1, 5)})
	require.Len(t, out, 3)
	require.Equal(t, date(2025, 1, 1), out[0].Timestamp)
	require.Equal(t, DriftPoint{Timestamp: date(2025, 1, 3), Usage: 12, DriftDetected: true}, out[1])
	require.Equal(t, date(2025, 1, 5), out[2].Timestamp)
	require.Equal(t, 1, CountDrift(out))
}

func TestDriftDropsRecordsWithoutTimestamp(t *testing.T) {
	records := []schema.Record{
		driftRecord(date(2025, 1, 2), 12, true),
		{Values: map[string]any{"usage": 40.0, "drift": true}},
	}

	out := Drift(records, series.Range{Start: date(2025, 1, 1), End: date(2025, 1, 5)})
	require.Equal(t, []DriftPoint{{Timestamp: date(2025, 1, 2), Usage: 12, DriftDetected: true}}, out)
}

func driftRecord(ts time.Time, usage float64, drift bool) schema.Record {
	return schema.Record{Values: map[string]any{"timestamp": ts, "usage": usage, "drift": drift}}
}

func dailySeries(start time.Time, n int) series.Series {
	points := make([]series.Point, n)
	for i := range points {
		points[i] = series.Point{Timestamp: start.AddDate(0, 0, i), Value: float64(i), Kind: series.KindActual}
	}
	return series.New(points)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
