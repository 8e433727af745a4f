package beat

import "math"

// nearestMatcher finds, for ascending query times, the distance to the
// closest onset in either direction. The onset index only moves forward, so
// a full pass over the clicks is linear in clicks + onsets.
type nearestMatcher struct {
	onsets []float64 // ascending, milliseconds
	idx    int
}

func newNearestMatcher(onsetsMs []float64) *nearestMatcher {
	return &nearestMatcher{onsets: onsetsMs}
}

func (m *nearestMatcher) reset() {
	m.idx = 0
}

// distance returns |t - nearest onset| in milliseconds, or +Inf without
// onsets. Successive calls must not decrease t.
func (m *nearestMatcher) distance(t float64) float64 {
	if len(m.onsets) == 0 {
		return math.Inf(1)
	}
	for m.idx+1 < len(m.onsets) && m.onsets[m.idx+1] <= t {
		m.idx++
	}

	d := math.Abs(t - m.onsets[m.idx])
	if m.idx+1 < len(m.onsets) {
		d = math.Min(d, m.onsets[m.idx+1]-t)
	}
	return d
}

func toMs(seconds []float64) []float64 {
	ms := make([]float64, len(seconds))
	for i, s := range seconds {
		ms[i] = s * 1000
	}
	return ms
}
