package series

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/yanqian/usage-forecaster/pkg/errors"
)

// Load reads, cleans and sorts a series. Rows with an unparsable timestamp or
// value are dropped without failing the load.
func Load(ctx context.Context, src Source, opts LoadOptions) (Series, error) {
	rows, err := src.Rows(ctx)
	if err != nil {
		return Series{}, fmt.Errorf("read %s: %w", src.Describe(), err)
	}
	return FromRows(rows, opts)
}

// FromRows applies the loader rules to rows that were already read.
func FromRows(rows []RawRow, opts LoadOptions) (Series, error) {
	layout := strings.TrimSpace(opts.Layout)
	if layout == "" {
		layout = time.DateOnly
	}

	points := make([]Point, 0, len(rows))
	for _, row := range rows {
		ts, ok := ParseTimestamp(row.Timestamp, layout)
		if !ok {
			continue
		}
		value, ok := parseValue(row.Value)
		if !ok {
			continue
		}
		points = append(points, Point{Timestamp: ts, Value: value, Kind: KindActual})
	}

	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Timestamp.Before(points[j].Timestamp)
	})
	points = dedupe(points)

	if len(points) == 0 {
		return Series{}, apperrors.Wrap(CodeEmptyDataset, "no parsable rows in dataset", nil)
	}

	s := Series{points: points}
	if opts.Range.IsZero() {
		return s, nil
	}
	filtered := s.Between(opts.Range)
	if filtered.Len() == 0 {
		return Series{}, apperrors.Wrap(CodeNoDataInRange, "no data in the requested range", nil)
	}
	return filtered, nil
}

// ParseTimestamp parses value with a single declared layout. Results are in UTC.
func ParseTimestamp(value, layout string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	switch layout {
	case LayoutUnix, LayoutUnixMilli:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			f, ferr := strconv.ParseFloat(value, 64)
			if ferr != nil || math.IsNaN(f) || math.IsInf(f, 0) {
				return time.Time{}, false
			}
			n = int64(f)
		}
		if layout == LayoutUnix {
			return time.Unix(n, 0).UTC(), true
		}
		return time.UnixMilli(n).UTC(), true
	default:
		ts, err := time.Parse(layout, value)
		if err != nil {
			return time.Time{}, false
		}
		return ts.UTC(), true
	}
}

func parseValue(value string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// dedupe keeps the first point for every timestamp; input must be sorted.
func dedupe(points []Point) []Point {
	if len(points) < 2 {
		return points
	}
	out := points[:1]
	for _, p := range points[1:] {
		if p.Timestamp.Equal(out[len(out)-1].Timestamp) {
			continue
		}
		out = append(out, p)
	}
	return out
}
