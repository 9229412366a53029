package assemble

import (
	"fmt"
	"sort"
	"time"

	"github.com/yanqian/usage-forecaster/pkg/util"
)

const day = 24 * time.Hour

// Interval is the sampling step of a series. Day-aligned data steps in
// calendar days so forecasts stay on midnight across DST changes.
type Interval struct {
	Step time.Duration
	Days int
}

// DefaultInterval is used when the data has no usable spacing.
var DefaultInterval = Interval{Days: 1}

// InferInterval returns the most common delta between consecutive timestamps,
// preferring the smaller delta on ties. With no deltas, or when every delta
// differs, it falls back to DefaultInterval.
func InferInterval(ts []time.Time) Interval {
	if len(ts) < 2 {
		return DefaultInterval
	}

	counts := make(map[time.Duration]int, len(ts)-1)
	for i := 1; i < len(ts); i++ {
		if d := ts[i].Sub(ts[i-1]); d > 0 {
			counts[d]++
		}
	}
	if len(counts) == 0 {
		return DefaultInterval
	}

	deltas := make([]time.Duration, 0, len(counts))
	for d := range counts {
		deltas = append(deltas, d)
	}
	sort.Slice(deltas, func(i, j int) bool { return deltas[i] < deltas[j] })

	best := deltas[0]
	for _, d := range deltas[1:] {
		if counts[d] > counts[best] {
			best = d
		}
	}
	if len(deltas) > 1 && counts[best] == 1 {
		return DefaultInterval
	}

	if best%day == 0 && allDateOnly(ts) {
		return Interval{Days: int(best / day)}
	}
	return Interval{Step: best}
}

// Advance returns the timestamp n steps after t.
func (i Interval) Advance(t time.Time, n int) time.Time {
	if i.Days > 0 {
		return t.AddDate(0, 0, i.Days*n)
	}
	return t.Add(time.Duration(n) * i.Step)
}

func (i Interval) String() string {
	if i.Days > 0 {
		return fmt.Sprintf("%dd", i.Days)
	}
	return i.Step.String()
}

func allDateOnly(ts []time.Time) bool {
	for _, t := range ts {
		if !util.IsDateOnly(t) {
			return false
		}
	}
	return true
}
