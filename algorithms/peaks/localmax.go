// Package peaks extracts onset candidates from a novelty function with an
// adaptive, per-segment threshold.
package peaks

// Window is the look-around configuration of the local-maximum detector, in
// frames. A peak must be the maximum of x[n-PreMax : n+PostMax], exceed the
// mean of x[n-PreAvg : n+PostAvg] by delta and come more than Wait frames
// after the previous peak.
type Window struct {
	PreMax  int `json:"pre_max"`
	PostMax int `json:"post_max"`
	PreAvg  int `json:"pre_avg"`
	PostAvg int `json:"post_avg"`
	Wait    int `json:"wait"`
}

// DefaultWindow returns the 5-frame look-around used by the picker
func DefaultWindow() Window {
	return Window{PreMax: 5, PostMax: 5, PreAvg: 5, PostAvg: 5, Wait: 5}
}

// LocalMaxima scans x[lo:hi] and returns the indices of the peaks that clear
// delta. Look-around windows may read outside [lo, hi) but are truncated at
// the array edges.
func LocalMaxima(x []float64, lo, hi int, delta float64, w Window) []int {
	lo = max(lo, 0)
	hi = min(hi, len(x))

	peaks := make([]int, 0)
	last := -w.Wait - 1
	for n := lo; n < hi; n++ {
		v := x[n]
		if v <= 0 || n <= last+w.Wait {
			continue
		}
		if !isWindowMax(x, n, w.PreMax, w.PostMax) {
			continue
		}
		if v < windowMean(x, n, w.PreAvg, w.PostAvg)+delta {
			continue
		}
		peaks = append(peaks, n)
		last = n
	}
	return peaks
}

func isWindowMax(x []float64, n, pre, post int) bool {
	a := max(n-pre, 0)
	b := min(n+post, len(x))
	for i := a; i < b; i++ {
		if x[i] > x[n] {
			return false
		}
	}
	return true
}

func windowMean(x []float64, n, pre, post int) float64 {
	a := max(n-pre, 0)
	b := min(n+post, len(x))
	if b <= a {
		return 0
	}
	sum := 0.0
	for i := a; i < b; i++ {
		sum += x[i]
	}
	return sum / float64(b-a)
}
