package assemble

import (
	"sort"
	"time"

	"github.com/yanqian/usage-forecaster/internal/domain/schema"
	"github.com/yanqian/usage-forecaster/internal/domain/series"
)

// DriftPoint is one classified observation.
type DriftPoint struct {
	Timestamp     time.Time
	Usage         float64
	DriftDetected bool
}

// Forecast appends values after the last actual point at the inferred
// interval. Timestamps proposed by the responder are never used.
func Forecast(actual series.Series, values []float64) (series.Series, Interval) {
	interval := InferInterval(actual.Timestamps())
	last, ok := actual.Last()
	if !ok {
		return series.Series{}, interval
	}

	points := make([]series.Point, 0, actual.Len()+len(values))
	for _, p := range actual.Points() {
		p.Kind = series.KindActual
		points = append(points, p)
	}
	for i, v := range values {
		points = append(points, series.Point{
			Timestamp: interval.Advance(last.Timestamp, i+1),
			Value:     v,
			Kind:      series.KindForecast,
		})
	}
	return series.New(points), interval
}

// Drift keeps records inside window, ordered by timestamp. Records without
// a timestamp are dropped. Duplicate timestamps keep the first record in
// responder order.
func Drift(records []schema.Record, window series.Range) []DriftPoint {
	out := make([]DriftPoint, 0, len(records))
	for _, rec := range records {
		ts := rec.Time("timestamp")
		if ts.IsZero() || !window.Contains(ts) {
			continue
		}
		out = append(out, DriftPoint{
			Timestamp:     ts,
			Usage:         rec.Float("usage"),
			DriftDetected: rec.Bool("drift"),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	if len(out) < 2 {
		return out
	}
	deduped := out[:1]
	for _, p := range out[1:] {
		if p.Timestamp.Equal(deduped[len(deduped)-1].Timestamp) {
			continue
		}
		deduped = append(deduped, p)
	}
	return deduped
}

// CountDrift returns the number of points flagged as drift.
func CountDrift(points []DriftPoint) int {
	n := 0
	for _, p := range points {
		if p.DriftDetected {
			n++
		}
	}
	return n
}
