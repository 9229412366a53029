package util

import "time"

// NowUTC exposes time.Now for deterministic testing.
func NowUTC() time.Time {
	return time.Now().UTC()
}

// IsDateOnly reports whether t carries no time-of-day component.
func IsDateOnly(t time.Time) bool {
	return t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0
}

// DisplayLayout picks the shortest layout that renders every timestamp without
// losing precision: a plain date for day-aligned data, RFC3339 otherwise.
func DisplayLayout(ts []time.Time) string {
	for _, t := range ts {
		if !IsDateOnly(t) {
			return time.RFC3339
		}
	}
	return time.DateOnly
}
