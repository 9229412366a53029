package assemble

import "math"

// JSDivergence returns the Jensen-Shannon divergence in bits between p and q
// after normalizing each to sum to one. The result lies in [0, 1]. ok is
// false when the inputs differ in length, are empty, hold negative or
// non-finite values, or sum to zero.
func JSDivergence(p, q []float64) (float64, bool) {
	if len(p) == 0 || len(p) != len(q) {
		return 0, false
	}
	pn, ok := normalize(p)
	if !ok {
		return 0, false
	}
	qn, ok := normalize(q)
	if !ok {
		return 0, false
	}

	var div float64
	for i := range pn {
		m := (pn[i] + qn[i]) / 2
		div += klTerm(pn[i], m) + klTerm(qn[i], m)
	}
	div /= 2
	// Rounding can leave tiny negatives or overshoot 1.
	return math.Min(math.Max(div, 0), 1), true
}

// WindowDivergence compares the usage of the first half of points with the
// second half. With an odd count the middle point is left out.
func WindowDivergence(points []DriftPoint) (float64, bool) {
	half := len(points) / 2
	if half == 0 {
		return 0, false
	}
	p := make([]float64, half)
	q := make([]float64, half)
	for i := 0; i < half; i++ {
		p[i] = points[i].Usage
		q[i] = points[len(points)-half+i].Usage
	}
	return JSDivergence(p, q)
}

func normalize(v []float64) ([]float64, bool) {
	var sum float64
	for _, x := range v {
		if x < 0 || math.IsNaN(x) || math.IsInf(x, 0) {
			return nil, false
		}
		sum += x
	}
	if sum == 0 {
		return nil, false
	}
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x / sum
	}
	return out, true
}

func klTerm(a, m float64) float64 {
	if a == 0 {
		return 0
	}
	return a * math.Log2(a/m)
}
