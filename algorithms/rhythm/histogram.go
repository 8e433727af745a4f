package rhythm

import (
	"github.com/RyanBlaney/sonido-rhythm/algorithms/common"
)

// OffsetHistogram counts onset-to-beat offsets, one bucket per millisecond
// of the beat period. Every onset adds one to each bucket within
// [offset-tolerance, offset+tolerance), wrapped into the period.
type OffsetHistogram struct {
	Counts    []float64 `json:"counts"`
	Tolerance int       `json:"tolerance_ms"`
}

// NewOffsetHistogram creates an empty histogram
func NewOffsetHistogram(periodMs, toleranceMs int) *OffsetHistogram {
	return &OffsetHistogram{
		Counts:    make([]float64, max(periodMs, 1)),
		Tolerance: toleranceMs,
	}
}

// PeriodMs returns the number of buckets
func (h *OffsetHistogram) PeriodMs() int {
	return len(h.Counts)
}

// Add records one onset at distanceMs from its beat
func (h *OffsetHistogram) Add(distanceMs int) {
	for j := distanceMs - h.Tolerance; j < distanceMs+h.Tolerance; j++ {
		h.Counts[common.Mod(j, len(h.Counts))]++
	}
}

// Smooth averages every populated bucket with the other populated buckets in
// [i-tolerance, i+tolerance). Empty buckets stay 0. Counts are not modified.
func (h *OffsetHistogram) Smooth() []float64 {
	period := len(h.Counts)
	smoothed := make([]float64, period)
	for i, c := range h.Counts {
		if c == 0 {
			continue
		}
		sum, n := c, 1.0
		for j := i - h.Tolerance; j < i+h.Tolerance; j++ {
			k := common.Mod(j, period)
			if k == i || h.Counts[k] == 0 {
				continue
			}
			sum += h.Counts[k]
			n++
		}
		smoothed[i] = sum / n
	}
	return smoothed
}

// Dominant returns up to maxOffsets offsets in order of smoothed score. After
// each pick every bucket within tolerance of it is suppressed, so returned
// offsets are more than tolerance apart on the circle. Extraction stops early
// when the best remaining bucket is empty or holds fewer than minRecurrence
// onsets.
func (h *OffsetHistogram) Dominant(maxOffsets int, minRecurrence float64) []int {
	period := len(h.Counts)
	scores := h.Smooth()

	offsets := make([]int, 0, maxOffsets)
	for range maxOffsets {
		best := common.ArgMax(scores)
		if best < 0 || scores[best] <= 0 || h.Counts[best] < minRecurrence {
			break
		}
		offsets = append(offsets, best)
		for j := best - h.Tolerance; j <= best+h.Tolerance; j++ {
			scores[common.Mod(j, period)] = 0
		}
	}
	return offsets
}

// Matches reports whether an onset at distanceMs falls within tolerance of
// one of offsets, using the same window as Add
func (h *OffsetHistogram) Matches(distanceMs int, offsets map[int]bool) bool {
	for j := distanceMs - h.Tolerance; j < distanceMs+h.Tolerance; j++ {
		if offsets[common.Mod(j, len(h.Counts))] {
			return true
		}
	}
	return false
}
