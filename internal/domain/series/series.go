package series

import "time"

// Series is an ordered, immutable sequence of points with strictly increasing
// timestamps.
type Series struct {
	points []Point
}

// New builds a Series from points that are already sorted and unique.
func New(points []Point) Series {
	out := make([]Point, len(points))
	copy(out, points)
	return Series{points: out}
}

// Len returns the number of points.
func (s Series) Len() int {
	return len(s.points)
}

// Points returns a copy of the points.
func (s Series) Points() []Point {
	out := make([]Point, len(s.points))
	copy(out, s.points)
	return out
}

// At returns the i-th point.
func (s Series) At(i int) Point {
	return s.points[i]
}

// First returns the oldest point.
func (s Series) First() (Point, bool) {
	if len(s.points) == 0 {
		return Point{}, false
	}
	return s.points[0], true
}

// Last returns the newest point.
func (s Series) Last() (Point, bool) {
	if len(s.points) == 0 {
		return Point{}, false
	}
	return s.points[len(s.points)-1], true
}

// Tail returns the newest n points. Older points are truncated.
func (s Series) Tail(n int) Series {
	if n <= 0 || n >= len(s.points) {
		return s
	}
	return Series{points: s.points[len(s.points)-n:]}
}

// Between returns the points inside r.
func (s Series) Between(r Range) Series {
	out := make([]Point, 0, len(s.points))
	for _, p := range s.points {
		if r.Contains(p.Timestamp) {
			out = append(out, p)
		}
	}
	return Series{points: out}
}

// Timestamps returns the timestamps in order.
func (s Series) Timestamps() []time.Time {
	out := make([]time.Time, len(s.points))
	for i, p := range s.points {
		out[i] = p.Timestamp
	}
	return out
}
