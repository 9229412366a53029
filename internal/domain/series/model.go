package series

import (
	"context"
	"time"
)

// Kind labels where a point came from.
type Kind string

const (
	// KindActual marks observed data.
	KindActual Kind = "actual"
	// KindForecast marks values produced by the responder.
	KindForecast Kind = "forecast"
)

// Point is a single timestamped value.
type Point struct {
	Timestamp time.Time
	Value     float64
	Kind      Kind
}

// RawRow is an unparsed row as read from a tabular source.
type RawRow struct {
	Timestamp string
	Value     string
}

// Source yields the raw rows of one configured time series. Implementations
// apply their own column mapping.
type Source interface {
	Rows(ctx context.Context) ([]RawRow, error)
	Describe() string
}

// Range is an inclusive time window. Zero bounds are open.
type Range struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether ts lies inside the range.
func (r Range) Contains(ts time.Time) bool {
	if !r.Start.IsZero() && ts.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && ts.After(r.End) {
		return false
	}
	return true
}

// IsZero reports whether the range has no bounds.
func (r Range) IsZero() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

// LoadOptions controls parsing and filtering.
type LoadOptions struct {
	// Layout is a Go time layout, or LayoutUnix / LayoutUnixMilli.
	Layout string
	Range  Range
}

const (
	// LayoutUnix parses epoch seconds.
	LayoutUnix = "unix"
	// LayoutUnixMilli parses epoch milliseconds.
	LayoutUnixMilli = "unixms"
)

// Error codes reported by the loader.
const (
	CodeEmptyDataset  = "empty_dataset"
	CodeNoDataInRange = "no_data_in_range"
)
